package crawler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringSetMarshalSorted(t *testing.T) {
	t.Parallel()

	s := NewStringSet()
	s.Add("b")
	s.Add("a")
	s.Add("a")
	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.JSONEq(t, `["a","b"]`, string(data))

	var back StringSet
	require.NoError(t, json.Unmarshal(data, &back))
	require.True(t, back.Has("a"))
	require.True(t, back.Has("b"))
}

func TestFetchResultIsHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"application/json", false},
		{"image/png", false},
		{"", false},
	}
	for _, tt := range tests {
		r := FetchResult{Headers: http.Header{}}
		if tt.contentType != "" {
			r.Headers.Set("Content-Type", tt.contentType)
		}
		require.Equal(t, tt.want, r.IsHTML(), "content type %q", tt.contentType)
	}
}

func TestDownloadsByCategory(t *testing.T) {
	t.Parallel()

	res := NewCrawlResult()
	res.Downloads = append(res.Downloads,
		DownloadRecord{URL: "a", Category: CategoryImage},
		DownloadRecord{URL: "b", Category: CategoryScript},
		DownloadRecord{URL: "c", Category: CategoryImage},
	)
	require.Len(t, res.DownloadsByCategory(CategoryImage), 2)
	require.Len(t, res.DownloadsByCategory(CategoryHTML), 0)
}
