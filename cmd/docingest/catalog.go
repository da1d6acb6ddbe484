package main

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/fs"
	"github.com/fwojciec/docingest/sqlite"
)

// openCatalog opens an existing catalog. Opening a missing path would
// create an empty database, so that case is reported instead.
func openCatalog(path string) (*sqlite.DB, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, docingest.Errorf(docingest.ENOTFOUND, "catalog %q does not exist", path)
	}
	db := sqlite.NewDB(path)
	if err := db.Open(); err != nil {
		return nil, fmt.Errorf("failed to open catalog at %q: %w", path, err)
	}
	return db, nil
}

// Run executes the errors command.
func (c *ErrorsCmd) Run(deps *Dependencies) (err error) {
	ctx := deps.Ctx

	kind := docingest.ErrorKind(c.Kind)
	if kind != "" && !slices.Contains(errorKinds, kind) {
		err := docingest.Errorf(docingest.EINVALID, "unknown error kind %q", c.Kind)
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}

	db, err := openCatalog(c.Catalog)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}
	defer closeInto(&err, db, "catalog")
	catalog := sqlite.NewCatalog(db)

	pages, err := catalog.CountPages(ctx)
	if err != nil {
		return fmt.Errorf("counting pages: %w", err)
	}
	recs, err := catalog.ListErrors(ctx, sqlite.ErrorFilter{Kind: kind, Limit: c.Limit, Offset: c.Offset})
	if err != nil {
		return fmt.Errorf("listing errors: %w", err)
	}

	fmt.Fprintf(deps.Stdout, "Catalog: %d pages, %d errors listed\n", pages, len(recs))
	for _, rec := range recs {
		fmt.Fprintf(deps.Stdout, "%s  %-18s %d  %s", rec.Timestamp.Format(time.DateTime), rec.ErrorKind, rec.Attempt, shortenURL(rec.URL, maxURLDisplay))
		if rec.HTTPStatus != 0 {
			fmt.Fprintf(deps.Stdout, " (HTTP %d)", rec.HTTPStatus)
		}
		fmt.Fprintln(deps.Stdout)
	}
	return nil
}

// Run executes the page command.
func (c *PageCmd) Run(deps *Dependencies) (err error) {
	db, err := openCatalog(c.Catalog)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}
	defer closeInto(&err, db, "catalog")

	rec, err := sqlite.NewCatalog(db).FindPage(deps.Ctx, c.URL)
	if err != nil {
		if docingest.ErrorCode(err) == docingest.ENOTFOUND {
			fmt.Fprintf(deps.Stderr, "error: no page recorded for %s\n", c.URL)
		}
		return err
	}
	fmt.Fprintln(deps.Stdout, fs.FormatPage(rec))
	return nil
}
