package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/specialistvlad/gamepipe/internal/config"
)

// IndexFileName is the cache index database below the cache directory.
const IndexFileName = "index.db"

// Config holds all the necessary configuration for an App instance to run.
// Fields set here win over the settings block of the configuration files.
type Config struct {
	ConfigPaths []string // .hcl and .yaml files or directories

	CacheDir          string
	WorkDir           string
	Offline           bool
	ManifestURL       string
	AssetRepository   string
	MavenRepositories []string
	AssetWorkers      int
	DefaultVersion    string
	// ReplacementPipeline names the pipeline the game handler prefers.
	ReplacementPipeline string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

// applySettings fills every unset field from the loaded settings and then
// from the built-in defaults.
func (c *Config) applySettings(s config.Settings) {
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&c.CacheDir, s.CacheDir)
	fill(&c.WorkDir, s.WorkDir)
	fill(&c.ManifestURL, s.ManifestURL)
	fill(&c.AssetRepository, s.AssetRepository)
	fill(&c.DefaultVersion, s.DefaultVersion)
	if len(c.MavenRepositories) == 0 {
		c.MavenRepositories = s.MavenRepositories
	}
	if c.AssetWorkers == 0 {
		c.AssetWorkers = s.AssetWorkers
	}
	c.Offline = c.Offline || s.Offline

	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir()
	}
	fill(&c.WorkDir, filepath.Join(c.CacheDir, "work"))
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs *multierror.Error
	if c.CacheDir == "" {
		errs = multierror.Append(errs, errors.New("cache directory is required"))
	}
	if c.AssetWorkers < 0 {
		errs = multierror.Append(errs, errors.New("asset workers must not be negative"))
	}
	if c.HealthcheckPort < 0 || c.HealthcheckPort > 65535 {
		errs = multierror.Append(errs, fmt.Errorf("invalid health check port %d", c.HealthcheckPort))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("invalid application configuration: %w", err)
	}
	return nil
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "gamepipe")
	}
	return filepath.Join(os.TempDir(), "gamepipe")
}
