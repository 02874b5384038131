package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Source SourceConfig `yaml:"source" mapstructure:"source"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Map    MapConfig    `yaml:"map" mapstructure:"map"`
	Render RenderConfig `yaml:"render" mapstructure:"render"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	S3     S3Config     `yaml:"s3" mapstructure:"s3"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// SourceConfig selects the feature source and configures the Overpass
// client. Kind is "overpass" or "shapefile".
type SourceConfig struct {
	Kind        string          `yaml:"kind" mapstructure:"kind"`
	Endpoint    string          `yaml:"endpoint" mapstructure:"endpoint"`
	RateLimit   float64         `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int             `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Shapefile   ShapefileConfig `yaml:"shapefile" mapstructure:"shapefile"`
}

// ShapefileConfig points at local extracts, one per dataset class.
// Classes without a path fetch as empty.
type ShapefileConfig struct {
	Roads     string `yaml:"roads" mapstructure:"roads"`
	Buildings string `yaml:"buildings" mapstructure:"buildings"`
	Forests   string `yaml:"forests" mapstructure:"forests"`
}

// CacheConfig configures the persistent fetch cache.
type CacheConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	TTLHours    int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// MapConfig holds the default map extent and title.
type MapConfig struct {
	Lat    float64 `yaml:"lat" mapstructure:"lat"`
	Lon    float64 `yaml:"lon" mapstructure:"lon"`
	SizeKM float64 `yaml:"size_km" mapstructure:"size_km"`
	Title  string  `yaml:"title" mapstructure:"title"`
}

// RenderConfig configures the encoders and the style sheet.
type RenderConfig struct {
	WidthPx          int     `yaml:"width_px" mapstructure:"width_px"`
	JPEGQuality      int     `yaml:"jpeg_quality" mapstructure:"jpeg_quality"`
	FontPath         string  `yaml:"font_path" mapstructure:"font_path"`
	StylesPath       string  `yaml:"styles_path" mapstructure:"styles_path"`
	ScaleBarFraction float64 `yaml:"scale_bar_fraction" mapstructure:"scale_bar_fraction"`
}

// OutputConfig lists where rendered maps land on disk.
type OutputConfig struct {
	Paths []string `yaml:"paths" mapstructure:"paths"`
}

// S3Config holds object-storage upload settings.
type S3Config struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Region    string `yaml:"region" mapstructure:"region"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// ServerConfig configures the map server.
type ServerConfig struct {
	Port            int     `yaml:"port" mapstructure:"port"`
	MaxSizeKM       float64 `yaml:"max_size_km" mapstructure:"max_size_km"`
	CacheEntries    int     `yaml:"cache_entries" mapstructure:"cache_entries"`
	CacheTTLMinutes int     `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// A missing .env just means the environment is set directly.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OSMPLOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.kind", "overpass")
	v.SetDefault("source.endpoint", "https://overpass-api.de/api/interpreter")
	v.SetDefault("source.rate_limit", 1.0)
	v.SetDefault("source.timeout_secs", 30)
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", "osmplot.db")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("map.lat", 56.855)
	v.SetDefault("map.lon", 24.305)
	v.SetDefault("map.size_km", 1.0)
	v.SetDefault("map.title", "OpenStreetMap Visualization - Salaspils area near Riga, Latvia")
	v.SetDefault("render.width_px", 1024)
	v.SetDefault("render.jpeg_quality", 90)
	v.SetDefault("render.scale_bar_fraction", 0.25)
	v.SetDefault("output.paths", []string{"map.jpg", "map.pdf"})
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_size_km", 20.0)
	v.SetDefault("server.cache_entries", 64)
	v.SetDefault("server.cache_ttl_minutes", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration can support the given mode.
// Modes: render (one-shot CLI render), fetch (raw payload download),
// serve (HTTP server), upload (render plus S3 upload). All problems are
// reported at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	// Bounds that hold in every mode.
	if c.Render.WidthPx < 16 || c.Render.WidthPx > 4096 {
		problems = append(problems, "render.width_px must be between 16 and 4096")
	}
	if c.Render.JPEGQuality < 1 || c.Render.JPEGQuality > 100 {
		problems = append(problems, "render.jpeg_quality must be between 1 and 100")
	}
	if c.Render.ScaleBarFraction <= 0 || c.Render.ScaleBarFraction > 1 {
		problems = append(problems, "render.scale_bar_fraction must be in (0, 1]")
	}
	if c.Map.SizeKM <= 0 {
		problems = append(problems, "map.size_km must be > 0")
	}
	if c.Source.RateLimit <= 0 {
		problems = append(problems, "source.rate_limit must be > 0")
	}
	switch c.Source.Kind {
	case "overpass":
	case "shapefile":
		sf := c.Source.Shapefile
		if sf.Roads == "" && sf.Buildings == "" && sf.Forests == "" {
			problems = append(problems, "source.shapefile needs at least one class path")
		}
	default:
		problems = append(problems, "source.kind must be overpass or shapefile")
	}
	switch c.Cache.Driver {
	case "sqlite":
		if c.Cache.Path == "" {
			problems = append(problems, "cache.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Cache.DatabaseURL == "" {
			problems = append(problems, "cache.database_url is required for the postgres driver")
		}
	case "off":
	default:
		problems = append(problems, "cache.driver must be sqlite, postgres or off")
	}
	if c.Cache.Driver != "off" && c.Cache.TTLHours <= 0 {
		problems = append(problems, "cache.ttl_hours must be > 0")
	}

	switch mode {
	case "fetch":
		// The shared bounds above are all fetch needs.
	case "render":
		if len(c.Output.Paths) == 0 {
			problems = append(problems, "output.paths is required")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
		if c.Server.MaxSizeKM <= 0 {
			problems = append(problems, "server.max_size_km must be > 0")
		}
		if c.Server.CacheEntries < 0 {
			problems = append(problems, "server.cache_entries must be >= 0")
		}
	case "upload":
		if c.S3.Endpoint == "" {
			problems = append(problems, "s3.endpoint is required")
		}
		if c.S3.AccessKey == "" {
			problems = append(problems, "s3.access_key is required")
		}
		if c.S3.SecretKey == "" {
			problems = append(problems, "s3.secret_key is required")
		}
		if c.S3.Bucket == "" {
			problems = append(problems, "s3.bucket is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
