package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docingest"
)

// Ensure ChallengeDetector implements docingest.ChallengeDetector at compile time.
var _ docingest.ChallengeDetector = (*ChallengeDetector)(nil)

// DefaultChallengeMarkers are phrases that appear on common anti-bot
// interstitials, including localized variants.
var DefaultChallengeMarkers = []string{
	"just a moment",
	"один момент",
	"egy pillanat",
	"one moment",
	"security check",
	"checking your browser",
	"captcha",
	"cloudflare",
	"attention required",
}

// challengeSignatures are DOM elements only found on interstitial pages.
var challengeSignatures = []string{
	"#challenge-form",
	"#challenge-running",
	"#cf-challenge-running",
	"#challenge-stage",
	`script[src*="/cdn-cgi/challenge-platform/"]`,
	`form[action*="__cf_chl"]`,
	".cf-turnstile",
	".g-recaptcha",
	".h-captcha",
}

// shortBodyLimit bounds the visible text of a page whose body is inspected
// for markers. Real documentation pages mention "captcha" or "cloudflare"
// freely; interstitials carry almost no text.
const shortBodyLimit = 1024

// ChallengeDetector recognizes anti-bot interstitials by title, DOM
// signature, and the text of near-empty pages.
type ChallengeDetector struct {
	markers []string
}

// NewChallengeDetector creates a detector. With no markers,
// DefaultChallengeMarkers is used.
func NewChallengeDetector(markers ...string) *ChallengeDetector {
	if len(markers) == 0 {
		markers = DefaultChallengeMarkers
	}
	lowered := make([]string, len(markers))
	for i, m := range markers {
		lowered[i] = strings.ToLower(m)
	}
	return &ChallengeDetector{markers: lowered}
}

// Detect returns the markers found in html. Each marker is reported once.
func (d *ChallengeDetector) Detect(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var hits []string
	seen := make(map[string]bool)
	hit := func(m string) {
		if !seen[m] {
			seen[m] = true
			hits = append(hits, m)
		}
	}

	title := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
	for _, m := range d.markers {
		if strings.Contains(title, m) {
			hit(m)
		}
	}

	for _, sig := range challengeSignatures {
		if doc.Find(sig).Length() > 0 {
			hit(sig)
		}
	}

	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	text := strings.ToLower(strings.Join(strings.Fields(body.Text()), " "))
	if len(text) < shortBodyLimit {
		for _, m := range d.markers {
			if strings.Contains(text, m) {
				hit(m)
			}
		}
	}

	return hits
}
