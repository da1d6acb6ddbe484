// Package markdown renders run summaries as Markdown reports with
// nao1215/markdown.
package markdown

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/fwojciec/docingest"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// Ensure ReportWriter implements docingest.SummaryWriter at compile time.
var _ docingest.SummaryWriter = (*ReportWriter)(nil)

// ReportWriter writes the summary of the latest run to a Markdown file,
// replacing the previous report.
type ReportWriter struct {
	path string
}

// NewReportWriter creates a ReportWriter for path.
func NewReportWriter(path string) *ReportWriter {
	return &ReportWriter{path: path}
}

// WriteSummary renders s into the report file. The file is replaced
// atomically so a reader never sees a half-written report.
func (w *ReportWriter) WriteSummary(ctx context.Context, s *docingest.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(w.path), ".report-*.md")
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Render(tmp, s); err != nil {
		tmp.Close()
		return fmt.Errorf("rendering report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing report: %w", err)
	}
	return os.Rename(tmp.Name(), w.path)
}

// Render writes the Markdown report of s to out.
func Render(out io.Writer, s *docingest.RunSummary) error {
	md := markdown.NewMarkdown(out)

	md.H1("Crawl report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + s.RunID + "`"},
			{"Start URL", s.StartURL},
			{"Started", s.StartedAt.UTC().Format(time.RFC3339)},
			{"Duration", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond).String()},
			{"Stop reason", string(s.StopReason)},
		},
	})
	md.PlainText("")
	writeAlert(md, s)

	md.H2("Records")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Count"},
		Rows: [][]string{
			{"Pages", strconv.Itoa(s.Pages)},
			{"Markdown bytes", strconv.Itoa(s.MarkdownBytes)},
			{"Images", strconv.Itoa(s.Images)},
			{"Video links", strconv.Itoa(s.VideoLinks)},
			{"Unique media (est.)", strconv.Itoa(s.UniqueMedia)},
			{"Resumed pages", strconv.Itoa(s.Resumed)},
			{"Errors", strconv.Itoa(s.Errors)},
		},
	})
	md.PlainText("")

	if s.Errors > 0 {
		writeErrors(md, s)
	}
	return md.Build()
}

func writeAlert(md *markdown.Markdown, s *docingest.RunSummary) {
	switch {
	case s.StopReason == docingest.StopFatal:
		md.Cautionf("The run stopped on a fatal error: %s", s.Fatal)
	case s.Degraded:
		md.Warningf("Challenge pages were served during this run (%d). The corpus may be incomplete; refresh the session and resume.",
			s.ErrorsByKind[docingest.ChallengeDetected])
	case s.StopReason == docingest.StopPageCap:
		md.Note("The page cap was reached. Resume the crawl to continue.")
	case s.StopReason == docingest.StopAborted:
		md.Note("The run was interrupted. Resume the crawl to continue.")
	default:
		md.Tip("Every reachable page in scope was visited.")
	}
	md.PlainText("")
}

func writeErrors(md *markdown.Markdown, s *docingest.RunSummary) {
	md.H2("Errors by kind")
	md.PlainText("")

	kinds := make([]string, 0, len(s.ErrorsByKind))
	for k, n := range s.ErrorsByKind {
		if n > 0 {
			kinds = append(kinds, string(k))
		}
	}
	sort.Strings(kinds)

	rows := make([][]string, 0, len(kinds))
	chart := piechart.NewPieChart(io.Discard, piechart.WithTitle("Errors by kind"), piechart.WithShowData(true))
	for _, k := range kinds {
		n := s.ErrorsByKind[docingest.ErrorKind(k)]
		rows = append(rows, []string{k, strconv.Itoa(n)})
		chart.LabelAndIntValue(k, uint64(n))
	}
	md.Table(markdown.TableSet{Header: []string{"Kind", "Count"}, Rows: rows})
	md.PlainText("")
	if len(kinds) > 1 {
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}
}
