package scraper

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTotalFromContentRange(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		header string
		want   int64
	}{
		{"full range", "bytes 0-1023/1024", 1024},
		{"mid range", "bytes 512-1023/40960", 40960},
		{"missing header", "", -1},
		{"wildcard total", "bytes 0-1023/*", -1},
		{"garbage", "chunks 1-2/3", -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.want, TotalFromContentRange(tc.header))
		})
	}
}

func TestNormalizeStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		status       int
		contentRange string
		bodyLen      int
		want         int
	}{
		{"complete partial response", http.StatusPartialContent, "bytes 0-1023/1024", 1024, http.StatusOK},
		{"incomplete partial response", http.StatusPartialContent, "bytes 0-1023/1024", 512, http.StatusPartialContent},
		{"missing range header", http.StatusPartialContent, "", 1024, http.StatusPartialContent},
		{"ok passes through", http.StatusOK, "", 1024, http.StatusOK},
		{"error passes through", http.StatusNotFound, "", 0, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.want, NormalizeStatus(tc.status, tc.contentRange, tc.bodyLen))
		})
	}
}
