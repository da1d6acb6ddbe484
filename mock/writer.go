package mock

import (
	"context"

	"github.com/fwojciec/docingest"
)

var (
	_ docingest.RecordWriter  = (*RecordWriter)(nil)
	_ docingest.SummaryWriter = (*SummaryWriter)(nil)
)

// RecordWriter is a mock implementation of docingest.RecordWriter.
type RecordWriter struct {
	WritePageFn      func(ctx context.Context, rec *docingest.PageRecord) error
	WriteImageFn     func(ctx context.Context, rec *docingest.ImageRecord) error
	WriteVideoLinkFn func(ctx context.Context, rec *docingest.VideoLinkRecord) error
	WriteErrorFn     func(ctx context.Context, rec *docingest.ErrorRecord) error
	CloseFn          func() error
}

func (w *RecordWriter) WritePage(ctx context.Context, rec *docingest.PageRecord) error {
	return w.WritePageFn(ctx, rec)
}

func (w *RecordWriter) WriteImage(ctx context.Context, rec *docingest.ImageRecord) error {
	return w.WriteImageFn(ctx, rec)
}

func (w *RecordWriter) WriteVideoLink(ctx context.Context, rec *docingest.VideoLinkRecord) error {
	return w.WriteVideoLinkFn(ctx, rec)
}

func (w *RecordWriter) WriteError(ctx context.Context, rec *docingest.ErrorRecord) error {
	return w.WriteErrorFn(ctx, rec)
}

func (w *RecordWriter) Close() error {
	return w.CloseFn()
}

// SummaryWriter is a mock implementation of docingest.SummaryWriter.
type SummaryWriter struct {
	WriteSummaryFn func(ctx context.Context, s *docingest.RunSummary) error
}

func (w *SummaryWriter) WriteSummary(ctx context.Context, s *docingest.RunSummary) error {
	return w.WriteSummaryFn(ctx, s)
}
