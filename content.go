package docingest

// ExtractResult is the main content of a page with its metadata.
type ExtractResult struct {
	Title       string
	Description string

	// ContentHTML is the page body with navigation, footers and other
	// site chrome removed. Headings, code and tables are kept.
	ContentHTML string
}

// Extractor isolates the main content of an HTML document.
type Extractor interface {
	Extract(html string) (*ExtractResult, error)
}

// Converter renders extracted HTML as Markdown. Identical input must
// produce identical output so content hashes stay comparable.
type Converter interface {
	Convert(html string) (string, error)
}
