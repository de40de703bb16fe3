// Package config loads the site configuration for galyleo. The
// configuration is read once at process start and treated as read-only
// for the process lifetime; components receive it by value.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the site-wide settings every launch depends on.
type Config struct {
	// ProxyDomain is the public reverse-proxy domain. Session URLs are
	// minted as https://<token>.<ProxyDomain> and the broker management
	// endpoints live under https://manage.<ProxyDomain>.
	ProxyDomain string `mapstructure:"proxy_domain"`

	// DNSDomain is appended to compute-node hostnames so the reverse
	// proxy can resolve them from the service network.
	DNSDomain string `mapstructure:"dns_domain"`

	// Partition is the scheduler partition used when the user does not
	// request one.
	Partition string `mapstructure:"partition"`

	// Interface is the default UI kind, "lab" or "notebook".
	Interface string `mapstructure:"interface"`

	// CacheDir is where generated batch scripts are kept. Created with
	// owner-only permissions on first use.
	CacheDir string `mapstructure:"cache_dir"`
}

// Load reads the configuration from the given file, or from
// ~/.galyleo/config.yaml when path is empty. A missing config file is
// not an error; defaults apply. GALYLEO_* environment variables
// override file values.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("proxy_domain", "expanse-user-content.sdsc.edu")
	v.SetDefault("dns_domain", "eth.cluster")
	v.SetDefault("partition", "shared")
	v.SetDefault("interface", "lab")
	v.SetDefault("cache_dir", filepath.Join(galyleoDir(), "scripts"))

	v.SetEnvPrefix("GALYLEO")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(galyleoDir())
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// galyleoDir returns the per-user galyleo directory (~/.galyleo).
func galyleoDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fall back to the working directory; viper paths must not be empty.
		return ".galyleo"
	}
	return filepath.Join(home, ".galyleo")
}
