// Package fs provides file-based storage for crawl records.
//
// Records are stored as JSON Lines: one self-contained JSON object per
// line, one file per record type, opened in append mode. A crash can lose
// at most the record being written, and a torn final line is skipped on
// the next read.
package fs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fwojciec/docingest"
)

// File names inside the output directory.
const (
	PagesFile      = "pages.jsonl"
	ImagesFile     = "images.jsonl"
	VideoLinksFile = "video_links.jsonl"
	ErrorsFile     = "errors.jsonl"
	RunsFile       = "runs.jsonl"
)

var storeFiles = []string{PagesFile, ImagesFile, VideoLinksFile, ErrorsFile, RunsFile}

// Ensure Store implements the record interfaces at compile time.
var (
	_ docingest.RecordWriter  = (*Store)(nil)
	_ docingest.SummaryWriter = (*Store)(nil)
	_ docingest.ResumeSource  = (*Store)(nil)
)

// Store appends crawl records to JSON Lines files in a directory.
// All writes are serialized through a single writer goroutine.
// Store is safe for concurrent use.
type Store struct {
	dir   string
	fsync bool
	files map[string]*os.File

	mu     sync.RWMutex
	closed bool
	reqs   chan writeRequest
	done   chan struct{}
}

type writeRequest struct {
	file   *os.File
	line   []byte
	result chan error
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithFsync controls whether every record is synced to stable storage
// before the write returns. Defaults to true.
func WithFsync(enabled bool) StoreOption {
	return func(s *Store) {
		s.fsync = enabled
	}
}

// Open creates dir if needed and opens every record file for appending.
// Existing records are never modified; a torn final line left by a crash
// is terminated so that new records start on a fresh line.
func Open(dir string, opts ...StoreOption) (*Store, error) {
	s := &Store{
		dir:   dir,
		fsync: true,
		files: make(map[string]*os.File, len(storeFiles)),
		reqs:  make(chan writeRequest),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	for _, name := range storeFiles {
		f, err := openAppend(filepath.Join(dir, name))
		if err != nil {
			s.closeFiles()
			return nil, err
		}
		s.files[name] = f
	}

	go s.loop()
	return s, nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		return f, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if last[0] != '\n' {
		if _, err := f.Write([]byte{'\n'}); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("repairing %s: %w", path, err)
		}
	}
	return f, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) loop() {
	defer close(s.done)
	for req := range s.reqs {
		_, err := req.file.Write(req.line)
		if err == nil && s.fsync {
			err = req.file.Sync()
		}
		req.result <- err
	}
}

// WritePage appends a page record.
func (s *Store) WritePage(ctx context.Context, rec *docingest.PageRecord) error {
	return s.append(ctx, PagesFile, rec)
}

// WriteImage appends an image record.
func (s *Store) WriteImage(ctx context.Context, rec *docingest.ImageRecord) error {
	return s.append(ctx, ImagesFile, rec)
}

// WriteVideoLink appends a video link record.
func (s *Store) WriteVideoLink(ctx context.Context, rec *docingest.VideoLinkRecord) error {
	return s.append(ctx, VideoLinksFile, rec)
}

// WriteError appends an error record.
func (s *Store) WriteError(ctx context.Context, rec *docingest.ErrorRecord) error {
	return s.append(ctx, ErrorsFile, rec)
}

// WriteSummary appends a run summary.
func (s *Store) WriteSummary(ctx context.Context, summary *docingest.RunSummary) error {
	return s.append(ctx, RunsFile, summary)
}

func (s *Store) append(ctx context.Context, name string, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s record: %w", name, err)
	}
	line = append(line, '\n')

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return docingest.Errorf(docingest.EINVALID, "store closed")
	}

	req := writeRequest{file: s.files[name], line: line, result: make(chan error, 1)}
	select {
	case s.reqs <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := <-req.result; err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// Close waits for pending writes and closes every file.
// Close is safe to call multiple times.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.reqs)
	<-s.done
	return s.closeFiles()
}

func (s *Store) closeFiles() error {
	var errs []error
	for _, f := range s.files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// LoadResumeState reads every valid page record written by previous runs.
// Lines that do not decode, such as a record torn by a crash, are skipped.
func (s *Store) LoadResumeState(ctx context.Context) (*docingest.ResumeState, error) {
	f, err := os.Open(filepath.Join(s.dir, PagesFile))
	if errors.Is(err, os.ErrNotExist) {
		return &docingest.ResumeState{}, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	state := &docingest.ResumeState{}
	err = ReadLines(f, func(line []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var rec docingest.PageRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.URL == "" {
			return nil
		}
		state.Pages = append(state.Pages, &rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// ReadLines calls fn for every non-empty line of r. Lines may be of any
// length; page records routinely exceed bufio.Scanner's default limit.
func ReadLines(r io.Reader, fn func(line []byte) error) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if ferr := fn(trimmed); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}
	}
}
