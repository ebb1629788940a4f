package scraper

import (
	"net/http"
	"regexp"
	"strconv"
)

var contentRangePattern = regexp.MustCompile(`^bytes \d+-\d+/(\d+)`)

// TotalFromContentRange parses the total length out of a Content-Range
// header of the form "bytes <start>-<end>/<total>". A missing or
// malformed header yields -1, which never equals a real body length.
func TotalFromContentRange(header string) int64 {
	m := contentRangePattern.FindStringSubmatch(header)
	if m == nil {
		return -1
	}
	total, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return -1
	}
	return total
}

// NormalizeStatus fixes a transport anomaly: some origin servers answer
// a full-file request with 206 Partial Content even though the body
// carries the whole file. When the received length equals the declared
// total, the effective status is 200, so downstream integrity checks do
// not fail spuriously. Everything else passes through unchanged.
func NormalizeStatus(status int, contentRange string, bodyLen int) int {
	if status != http.StatusPartialContent {
		return status
	}
	if int64(bodyLen) == TotalFromContentRange(contentRange) {
		return http.StatusOK
	}
	return status
}
