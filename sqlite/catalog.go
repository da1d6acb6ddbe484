package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/fwojciec/docingest"
)

// Compile-time interface verification.
var (
	_ docingest.RecordWriter  = (*Catalog)(nil)
	_ docingest.SummaryWriter = (*Catalog)(nil)
)

// Media kinds stored in the media table.
const (
	mediaImage = "image"
	mediaVideo = "video"
)

// Catalog mirrors crawl records into SQLite.
//
// Pages are keyed by URL and the latest fetch wins. Media rows are
// unique per (kind, page, media URL) so re-crawls do not duplicate them.
// Errors and runs are appended.
type Catalog struct {
	db *DB
}

// NewCatalog creates a Catalog on an open DB.
func NewCatalog(db *DB) *Catalog {
	return &Catalog{db: db}
}

// WritePage upserts a page record.
func (c *Catalog) WritePage(ctx context.Context, rec *docingest.PageRecord) error {
	links, err := json.Marshal(nonNil(rec.OutboundLinks))
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO pages (url, title, description, markdown, raw_content_hash, http_status, fetched_at, depth,
			outbound_links, screenshot_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			markdown = excluded.markdown,
			raw_content_hash = excluded.raw_content_hash,
			http_status = excluded.http_status,
			fetched_at = excluded.fetched_at,
			depth = excluded.depth,
			outbound_links = excluded.outbound_links,
			screenshot_file = excluded.screenshot_file
	`, rec.URL, rec.Title, rec.Description, rec.Markdown, rec.RawContentHash, rec.HTTPStatus,
		formatTime(rec.FetchedAt), rec.Depth, string(links), rec.ScreenshotFile)
	return err
}

// WriteImage stores an image reference.
func (c *Catalog) WriteImage(ctx context.Context, rec *docingest.ImageRecord) error {
	return c.writeMedia(ctx, mediaImage, rec)
}

// WriteVideoLink stores a video reference.
func (c *Catalog) WriteVideoLink(ctx context.Context, rec *docingest.VideoLinkRecord) error {
	return c.writeMedia(ctx, mediaVideo, rec)
}

func (c *Catalog) writeMedia(ctx context.Context, kind string, rec *docingest.MediaRecord) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO media (kind, source_page_url, media_url, alt_text)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, kind, rec.SourcePageURL, rec.MediaURL, rec.AltText)
	return err
}

// WriteError appends an error record.
func (c *Catalog) WriteError(ctx context.Context, rec *docingest.ErrorRecord) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO errors (url, error_kind, message, attempt, http_status, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.URL, string(rec.ErrorKind), rec.Message, rec.Attempt, rec.HTTPStatus, formatTime(rec.Timestamp))
	return err
}

// WriteSummary stores a run summary.
func (c *Catalog) WriteSummary(ctx context.Context, s *docingest.RunSummary) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO runs (id, start_url, started_at, finished_at, pages, markdown_bytes, images, video_links,
			unique_media, errors, resumed, degraded, stop_reason, fatal)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, s.RunID, s.StartURL, formatTime(s.StartedAt), formatTime(s.FinishedAt), s.Pages, s.MarkdownBytes,
		s.Images, s.VideoLinks, s.UniqueMedia, s.Errors, s.Resumed, s.Degraded, string(s.StopReason), s.Fatal)
	return err
}

// Close is a no-op; the DB is owned by the caller.
func (c *Catalog) Close() error {
	return nil
}

// FindPage returns the stored page for url.
func (c *Catalog) FindPage(ctx context.Context, url string) (*docingest.PageRecord, error) {
	var rec docingest.PageRecord
	var fetchedAt, links string

	err := c.db.QueryRowContext(ctx, `
		SELECT url, title, description, markdown, raw_content_hash, http_status, fetched_at, depth, outbound_links,
			screenshot_file
		FROM pages
		WHERE url = ?
	`, url).Scan(&rec.URL, &rec.Title, &rec.Description, &rec.Markdown, &rec.RawContentHash,
		&rec.HTTPStatus, &fetchedAt, &rec.Depth, &links, &rec.ScreenshotFile)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, docingest.Errorf(docingest.ENOTFOUND, "page not found")
	}
	if err != nil {
		return nil, err
	}

	if rec.FetchedAt, err = parseTime("fetched_at", fetchedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(links), &rec.OutboundLinks); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CountPages returns the number of distinct pages in the catalog.
func (c *Catalog) CountPages(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&n)
	return n, err
}

// ErrorFilter narrows ListErrors. Zero values match everything.
type ErrorFilter struct {
	Kind   docingest.ErrorKind
	Limit  int
	Offset int
}

// ListErrors returns error records in insertion order.
func (c *Catalog) ListErrors(ctx context.Context, filter ErrorFilter) ([]*docingest.ErrorRecord, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT url, error_kind, message, attempt, http_status, occurred_at FROM errors`)
	if filter.Kind != "" {
		query.WriteString(" WHERE error_kind = ?")
		args = append(args, string(filter.Kind))
	}
	query.WriteString(" ORDER BY id")
	args = page(&query, args, filter.Limit, filter.Offset)

	rows, err := c.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*docingest.ErrorRecord
	for rows.Next() {
		var rec docingest.ErrorRecord
		var kind, occurredAt string
		if err := rows.Scan(&rec.URL, &kind, &rec.Message, &rec.Attempt, &rec.HTTPStatus, &occurredAt); err != nil {
			return nil, err
		}
		rec.ErrorKind = docingest.ErrorKind(kind)
		if rec.Timestamp, err = parseTime("occurred_at", occurredAt); err != nil {
			return nil, err
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}
