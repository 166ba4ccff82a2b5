package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCrawlCommandFlags(t *testing.T) {
	cmd := newCrawlCmd()
	for _, name := range []string{
		"max-pages", "no-follow", "delay", "timeout", "user-agent",
		"no-redirects", "download-images", "download-resources",
		"download-html", "download-root", "folder-name",
		"export", "export-path", "metrics-addr", "max-net-errors",
	} {
		require.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	require.Equal(t, "sitegrab", root.Use)

	crawl, _, err := root.Find([]string{"crawl"})
	require.NoError(t, err)
	require.Equal(t, "crawl <url>", crawl.Use)

	require.NotNil(t, root.PersistentFlags().Lookup("config"))
	require.NotNil(t, root.PersistentFlags().Lookup("verbose"))
	require.NotNil(t, root.PersistentFlags().Lookup("log-level"))
}
