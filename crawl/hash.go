package crawl

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ContentHash fingerprints a raw response body. Two fetches of an
// unchanged page hash alike, which lets consumers skip re-processing.
func ContentHash(body string) string {
	return strconv.FormatUint(xxhash.Sum64String(body), 16)
}
