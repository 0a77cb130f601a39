package config

import (
	"fmt"
	"time"

	"github.com/jonwraymond/answercache/auth"
	"github.com/jonwraymond/answercache/cache"
	"github.com/jonwraymond/answercache/observe"
)

// Config is the complete daemon configuration.
type Config struct {
	Cache   CacheConfig   `mapstructure:"cache"`
	Observe ObserveConfig `mapstructure:"observe"`
	Admin   AdminConfig   `mapstructure:"admin"`
}

// CacheConfig mirrors cache.Config with file keys.
type CacheConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	Path                string        `mapstructure:"path"`
	SimilarityThreshold float64       `mapstructure:"similarity_threshold"`
	RefreshThreshold    time.Duration `mapstructure:"refresh_threshold"`
	MaxSize             int           `mapstructure:"max_size"`
	PruneTrigger        int           `mapstructure:"prune_trigger"`
	PruneTarget         int           `mapstructure:"prune_target"`
	HotCapacity         int           `mapstructure:"hot_capacity"`
	FlushInterval       time.Duration `mapstructure:"flush_interval"`
}

// ObserveConfig mirrors observe.Config with file keys.
type ObserveConfig struct {
	ServiceName string        `mapstructure:"service_name"`
	Version     string        `mapstructure:"version"`
	Tracing     TracingConfig `mapstructure:"tracing"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Exporter  string  `mapstructure:"exporter"`
	SamplePct float64 `mapstructure:"sample_pct"`
}

// MetricsConfig selects the metrics exporter.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter"`
}

// LoggingConfig sets the log level. Level changes apply at runtime.
type LoggingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Level   string `mapstructure:"level"`
}

// AdminConfig configures the admin HTTP server and its credentials.
type AdminConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	APIKeyHeader    string        `mapstructure:"api_key_header"`
	JWT             JWTConfig     `mapstructure:"jwt"`
	APIKeys         []APIKey      `mapstructure:"api_keys"`
}

// JWTConfig enables bearer tokens when Secret is set.
type JWTConfig struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	Leeway   time.Duration `mapstructure:"leeway"`
}

// APIKey registers one static key. Exactly one of Key (plaintext, usually a
// secret reference) or Hash (hex SHA-256) is set.
type APIKey struct {
	ID        string   `mapstructure:"id"`
	Key       string   `mapstructure:"key"`
	Hash      string   `mapstructure:"hash"`
	Principal string   `mapstructure:"principal"`
	Roles     []string `mapstructure:"roles"`
}

// CacheSettings converts the cache section.
func (c *Config) CacheSettings() cache.Config {
	return cache.Config{
		Enabled:             c.Cache.Enabled,
		Path:                c.Cache.Path,
		SimilarityThreshold: c.Cache.SimilarityThreshold,
		RefreshThreshold:    c.Cache.RefreshThreshold,
		MaxSize:             c.Cache.MaxSize,
		PruneTrigger:        c.Cache.PruneTrigger,
		PruneTarget:         c.Cache.PruneTarget,
		HotCapacity:         c.Cache.HotCapacity,
		FlushInterval:       c.Cache.FlushInterval,
	}
}

// ObserveSettings converts the observe section.
func (c *Config) ObserveSettings() observe.Config {
	o := c.Observe
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     o.Version,
		Tracing: observe.TracingConfig{
			Enabled:   o.Tracing.Enabled,
			Exporter:  o.Tracing.Exporter,
			SamplePct: o.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.Metrics.Enabled,
			Exporter: o.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: o.Logging.Enabled,
			Level:   o.Logging.Level,
		},
	}
}

// AuthEnabled reports whether any admin credential is configured.
func (c *Config) AuthEnabled() bool {
	return c.Admin.JWT.Secret != "" || len(c.Admin.APIKeys) > 0
}

// PrometheusEnabled reports whether metrics are exported for scraping.
func (c *Config) PrometheusEnabled() bool {
	return c.Observe.Metrics.Enabled && c.Observe.Metrics.Exporter == "prometheus"
}

// Authenticator builds the admin authenticator from the JWT and API key
// settings. It returns nil when no credentials are configured.
func (c *Config) Authenticator() (*auth.CompositeAuthenticator, error) {
	var auths []auth.Authenticator

	if c.Admin.JWT.Secret != "" {
		j, err := auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret:   []byte(c.Admin.JWT.Secret),
			Issuer:   c.Admin.JWT.Issuer,
			Audience: c.Admin.JWT.Audience,
			Leeway:   c.Admin.JWT.Leeway,
		})
		if err != nil {
			return nil, err
		}
		auths = append(auths, j)
	}

	if len(c.Admin.APIKeys) > 0 {
		keys := make([]auth.APIKey, 0, len(c.Admin.APIKeys))
		for _, k := range c.Admin.APIKeys {
			hash := k.Hash
			if k.Key != "" {
				hash = auth.HashAPIKey(k.Key)
			}
			keys = append(keys, auth.APIKey{ID: k.ID, Hash: hash, Principal: k.Principal, Roles: k.Roles})
		}
		store, err := auth.NewStaticKeyStore(keys...)
		if err != nil {
			return nil, err
		}
		auths = append(auths, auth.NewAPIKeyAuthenticator(c.Admin.APIKeyHeader, store))
	}

	if len(auths) == 0 {
		return nil, nil
	}
	return auth.NewCompositeAuthenticator(auths...), nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.CacheSettings().Validate(); err != nil {
		return fmt.Errorf("%w: cache: %w", ErrInvalid, err)
	}
	obs := c.ObserveSettings()
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("%w: observe: %w", ErrInvalid, err)
	}
	if c.Admin.Addr == "" {
		return fmt.Errorf("%w: admin.addr is required", ErrInvalid)
	}
	for i, k := range c.Admin.APIKeys {
		switch {
		case k.ID == "":
			return fmt.Errorf("%w: admin.api_keys[%d]: id is required", ErrInvalid, i)
		case (k.Key == "") == (k.Hash == ""):
			return fmt.Errorf("%w: admin.api_keys[%d]: exactly one of key or hash is required", ErrInvalid, i)
		case k.Principal == "":
			return fmt.Errorf("%w: admin.api_keys[%d]: principal is required", ErrInvalid, i)
		}
	}
	return nil
}
