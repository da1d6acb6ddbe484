package docingest

import (
	"context"
	"errors"
)

// Ensure MultiRecordWriter implements RecordWriter at compile time.
var _ RecordWriter = (MultiRecordWriter)(nil)

// MultiRecordWriter writes every record to each writer in order and
// stops at the first failure. The first writer is the system of record;
// later writers are mirrors.
type MultiRecordWriter []RecordWriter

// WritePage writes rec to every writer.
func (m MultiRecordWriter) WritePage(ctx context.Context, rec *PageRecord) error {
	for _, w := range m {
		if err := w.WritePage(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// WriteImage writes rec to every writer.
func (m MultiRecordWriter) WriteImage(ctx context.Context, rec *ImageRecord) error {
	for _, w := range m {
		if err := w.WriteImage(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// WriteVideoLink writes rec to every writer.
func (m MultiRecordWriter) WriteVideoLink(ctx context.Context, rec *VideoLinkRecord) error {
	for _, w := range m {
		if err := w.WriteVideoLink(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// WriteError writes rec to every writer.
func (m MultiRecordWriter) WriteError(ctx context.Context, rec *ErrorRecord) error {
	for _, w := range m {
		if err := w.WriteError(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every writer, even after a failure, and joins the errors.
func (m MultiRecordWriter) Close() error {
	var errs []error
	for _, w := range m {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}

// Ensure MultiSummaryWriter implements SummaryWriter at compile time.
var _ SummaryWriter = (MultiSummaryWriter)(nil)

// MultiSummaryWriter writes a summary to every writer and joins the errors.
type MultiSummaryWriter []SummaryWriter

// WriteSummary writes s to every writer.
func (m MultiSummaryWriter) WriteSummary(ctx context.Context, s *RunSummary) error {
	var errs []error
	for _, w := range m {
		errs = append(errs, w.WriteSummary(ctx, s))
	}
	return errors.Join(errs...)
}
