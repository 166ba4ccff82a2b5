// Package config initializes the application's configuration. It uses
// Viper to merge settings from a config file, environment variables,
// and command-line flags into one view.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Init loads configuration into the global Viper instance. cfgFile, when
// non-empty, names an explicit config file; otherwise the usual search
// paths are tried. A missing config file is not an error: defaults,
// environment variables, and flags still apply.
func Init(cfgFile string) error {
	v := viper.GetViper()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("sitegrab")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.sitegrab")
		v.AddConfigPath("/etc/sitegrab/")
	}

	setDefaults(v)

	v.SetEnvPrefix("SITEGRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.enabled", true)
	v.SetDefault("crawl.max_pages", 50)
	v.SetDefault("crawl.delay", "500ms")
	v.SetDefault("crawl.excluded_extensions", []string{})

	v.SetDefault("extract.links", true)
	v.SetDefault("extract.images", true)
	v.SetDefault("extract.text", true)
	v.SetDefault("extract.contacts", true)
	v.SetDefault("extract.meta", true)
	v.SetDefault("extract.forms", true)
	v.SetDefault("extract.resources", true)

	v.SetDefault("http.timeout", "10s")
	v.SetDefault("http.user_agent", "sitegrab/1.0 (+https://github.com/sitegrab/sitegrab)")
	v.SetDefault("http.follow_redirects", true)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.retry_pause", "1s")

	v.SetDefault("download.images", false)
	v.SetDefault("download.resources", false)
	v.SetDefault("download.html", false)
	v.SetDefault("download.root", "downloads")
	v.SetDefault("download.folder_name", "")

	v.SetDefault("run.max_net_errors", 3)
	v.SetDefault("run.metrics_addr", "")
	v.SetDefault("run.export_format", "")
	v.SetDefault("run.export_path", "")
}
