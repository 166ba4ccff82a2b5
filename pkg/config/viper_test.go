package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestInitDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	require.NoError(t, Init(""))
	require.Equal(t, 50, viper.GetInt("crawl.max_pages"))
	require.True(t, viper.GetBool("extract.links"))
	require.Equal(t, 3, viper.GetInt("run.max_net_errors"))
}

func TestInitExplicitFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "sitegrab.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crawl:\n  max_pages: 7\n"), 0o600))

	require.NoError(t, Init(path))
	require.Equal(t, 7, viper.GetInt("crawl.max_pages"))
}

func TestInitMissingExplicitFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	require.Error(t, Init(filepath.Join(t.TempDir(), "nope.yaml")))
}
