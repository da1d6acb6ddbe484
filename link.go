package docingest

// RawLink is a reference found in a page before classification.
type RawLink struct {
	// URL is absolute, resolved against the page URL.
	URL string

	// Text is the anchor text or the image alt text.
	Text string

	// Embedded is true for references loaded by the page itself
	// (img, iframe, video, source, embed) rather than navigated to.
	Embedded bool

	// Tag is the element the reference came from ("a", "img", "iframe", ...).
	Tag string
}

// LinkKind is the classification of a link.
type LinkKind int

// Link kinds, in no particular order.
const (
	LinkIgnored LinkKind = iota
	LinkPage
	LinkImage
	LinkVideo
)

// String returns the lower-case kind name.
func (k LinkKind) String() string {
	switch k {
	case LinkPage:
		return "page"
	case LinkImage:
		return "image"
	case LinkVideo:
		return "video"
	default:
		return "ignored"
	}
}

// Link is a classified reference. URL is normalized for page links.
type Link struct {
	URL  string
	Text string
	Kind LinkKind
}

// LinkExtractor finds references in HTML.
type LinkExtractor interface {
	// ExtractLinks parses HTML and returns every reference in document order.
	// The baseURL is used to resolve relative URLs.
	ExtractLinks(html string, baseURL string) ([]RawLink, error)
}

// ChallengeDetector recognizes anti-bot interstitials.
type ChallengeDetector interface {
	// Detect returns the markers that identify html as a challenge page.
	// An empty result means the page is genuine content.
	Detect(html string) []string
}
