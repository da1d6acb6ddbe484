//go:build integration

package rod_test

import (
	"testing"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserManager_RecyclesBrowserAfterMaxPages(t *testing.T) {
	t.Parallel()

	// Create manager that recycles after 3 pages
	manager, err := rod.NewBrowserManager(rod.WithMaxPages(3))
	require.NoError(t, err)
	defer manager.Close()

	firstPID := manager.LauncherPID()
	for i := 0; i < 3; i++ {
		_, release, err := manager.OpenPage()
		require.NoError(t, err)
		release()
	}
	assert.Equal(t, 0, manager.Recycles())

	// The fourth page is served by a fresh browser
	_, release, err := manager.OpenPage()
	require.NoError(t, err)
	release()

	assert.Equal(t, 1, manager.Recycles())
	assert.NotEqual(t, firstPID, manager.LauncherPID())
}

func TestBrowserManager_DoesNotRecycleBeforeMaxPages(t *testing.T) {
	t.Parallel()

	manager, err := rod.NewBrowserManager(rod.WithMaxPages(5))
	require.NoError(t, err)
	defer manager.Close()

	firstPID := manager.LauncherPID()
	for i := 0; i < 2; i++ {
		_, release, err := manager.OpenPage()
		require.NoError(t, err)
		release()
	}

	assert.Equal(t, 0, manager.Recycles())
	assert.Equal(t, firstPID, manager.LauncherPID())
}

func TestBrowserManager_KeepsRetiredBrowserForOpenTabs(t *testing.T) {
	t.Parallel()

	// Given: a tab held open on a browser about to be retired
	manager, err := rod.NewBrowserManager(rod.WithMaxPages(1))
	require.NoError(t, err)
	defer manager.Close()

	held, releaseHeld, err := manager.OpenPage()
	require.NoError(t, err)

	// When: another page triggers a recycle
	_, release, err := manager.OpenPage()
	require.NoError(t, err)
	release()
	require.Equal(t, 1, manager.Recycles())

	// Then: the held tab still works until it is released
	require.NoError(t, held.Navigate("about:blank"))
	releaseHeld()
}

func TestBrowserManager_OpenPageAfterClose(t *testing.T) {
	t.Parallel()

	manager, err := rod.NewBrowserManager()
	require.NoError(t, err)
	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())

	_, _, err = manager.OpenPage()

	assert.Equal(t, docingest.EINVALID, docingest.ErrorCode(err))
}
