package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonwraymond/answercache/auth"
	"github.com/jonwraymond/answercache/cache"
	"github.com/jonwraymond/answercache/secret"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "ANSWERCACHE"

// Admin server defaults.
const (
	DefaultAddr            = ":8080"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultServiceName     = "answercached"
	DefaultCachePath       = "answercache.json"
)

// Option configures Load and NewWatcher.
type Option func(*loader)

// WithResolver replaces the default strict env+file secret resolver.
func WithResolver(r *secret.Resolver) Option {
	return func(l *loader) {
		if r != nil {
			l.resolver = r
		}
	}
}

type loader struct {
	v        *viper.Viper
	path     string
	resolver *secret.Resolver
}

func newLoader(path string, opts ...Option) *loader {
	l := &loader{v: viper.New(), path: path, resolver: secret.DefaultResolver()}
	for _, opt := range opts {
		opt(l)
	}

	setDefaults(l.v)
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
	if path != "" {
		l.v.SetConfigFile(path)
	}
	return l
}

// Load reads path (optional; "" means environment and defaults only),
// applies environment overrides, resolves secrets and validates.
func Load(ctx context.Context, path string, opts ...Option) (*Config, error) {
	l := newLoader(path, opts...)
	if err := l.read(); err != nil {
		return nil, err
	}
	return l.decode(ctx)
}

func (l *loader) read() error {
	if l.path == "" {
		return nil
	}
	if err := l.v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrLoad, l.path, err)
	}
	return nil
}

func (l *loader) decode(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrLoad, err)
	}
	if err := l.resolveSecrets(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *loader) resolveSecrets(ctx context.Context, cfg *Config) error {
	fields := map[string]*string{
		"cache.path":         &cfg.Cache.Path,
		"admin.addr":         &cfg.Admin.Addr,
		"admin.jwt.secret":   &cfg.Admin.JWT.Secret,
		"admin.jwt.issuer":   &cfg.Admin.JWT.Issuer,
		"admin.jwt.audience": &cfg.Admin.JWT.Audience,
	}
	for i := range cfg.Admin.APIKeys {
		k := &cfg.Admin.APIKeys[i]
		fields[fmt.Sprintf("admin.api_keys[%d].key", i)] = &k.Key
		fields[fmt.Sprintf("admin.api_keys[%d].hash", i)] = &k.Hash
		fields[fmt.Sprintf("admin.api_keys[%d].principal", i)] = &k.Principal
	}
	return l.resolver.ResolveAll(ctx, fields)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", DefaultCachePath)
	v.SetDefault("cache.similarity_threshold", cache.DefaultSimilarityThreshold)
	v.SetDefault("cache.refresh_threshold", cache.DefaultRefreshThreshold)
	v.SetDefault("cache.max_size", cache.DefaultMaxSize)
	v.SetDefault("cache.prune_trigger", cache.DefaultPruneTrigger)
	v.SetDefault("cache.prune_target", cache.DefaultPruneTarget)
	v.SetDefault("cache.hot_capacity", cache.DefaultHotCapacity)
	v.SetDefault("cache.flush_interval", cache.DefaultFlushInterval)

	v.SetDefault("observe.service_name", DefaultServiceName)
	v.SetDefault("observe.version", "")
	v.SetDefault("observe.tracing.enabled", false)
	v.SetDefault("observe.tracing.exporter", "none")
	v.SetDefault("observe.tracing.sample_pct", 1.0)
	v.SetDefault("observe.metrics.enabled", false)
	v.SetDefault("observe.metrics.exporter", "prometheus")
	v.SetDefault("observe.logging.enabled", true)
	v.SetDefault("observe.logging.level", "info")

	v.SetDefault("admin.addr", DefaultAddr)
	v.SetDefault("admin.read_timeout", DefaultReadTimeout)
	v.SetDefault("admin.write_timeout", DefaultWriteTimeout)
	v.SetDefault("admin.shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("admin.api_key_header", auth.DefaultAPIKeyHeader)
	v.SetDefault("admin.jwt.secret", "")
	v.SetDefault("admin.jwt.issuer", "")
	v.SetDefault("admin.jwt.audience", "")
	v.SetDefault("admin.jwt.leeway", time.Duration(0))
}
