// Package config loads the application configuration from file, environment
// and defaults, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Crime  CrimeConfig  `yaml:"crime" mapstructure:"crime"`
	Stops  StopsConfig  `yaml:"stops" mapstructure:"stops"`
	Geo    GeoConfig    `yaml:"geo" mapstructure:"geo"`
	Join   JoinConfig   `yaml:"join" mapstructure:"join"`
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// CrimeConfig configures the crime-incident source.
type CrimeConfig struct {
	Dir  string `yaml:"dir" mapstructure:"dir"`
	XCol string `yaml:"x_col" mapstructure:"x_col"`
	YCol string `yaml:"y_col" mapstructure:"y_col"`
}

// StopsConfig configures the transit-stop source.
type StopsConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	XCol    string `yaml:"x_col" mapstructure:"x_col"`
	YCol    string `yaml:"y_col" mapstructure:"y_col"`
	CodeCol string `yaml:"code_col" mapstructure:"code_col"`
}

// GeoConfig holds the coordinate reference systems and buffer geometry.
type GeoConfig struct {
	GeographicEPSG int     `yaml:"geographic_epsg" mapstructure:"geographic_epsg"`
	ProjectedEPSG  int     `yaml:"projected_epsg" mapstructure:"projected_epsg"`
	BufferMeters   float64 `yaml:"buffer_meters" mapstructure:"buffer_meters"`
	BufferSegments int     `yaml:"buffer_segments" mapstructure:"buffer_segments"`
}

// JoinConfig holds the grouping keys and the retained-column allowlist for
// the final projection.
type JoinConfig struct {
	GroupBy       []string `yaml:"group_by" mapstructure:"group_by"`
	RetainColumns []string `yaml:"retain_columns" mapstructure:"retain_columns"`
}

// ExportConfig configures the optional geospatial export of each converted
// table alongside its source file.
type ExportConfig struct {
	Geo    bool   `yaml:"geo" mapstructure:"geo"`
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("STOPCRIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. The input dirs default empty so the keys are known to
	// viper and can be supplied purely through the environment.
	v.SetDefault("crime.dir", "")
	v.SetDefault("stops.dir", "")
	v.SetDefault("crime.x_col", "Longitude")
	v.SetDefault("crime.y_col", "Latitude")
	v.SetDefault("stops.x_col", "Longitude")
	v.SetDefault("stops.y_col", "Latitude")
	v.SetDefault("stops.code_col", "NaptanCode")
	v.SetDefault("geo.geographic_epsg", 4326)
	v.SetDefault("geo.projected_epsg", 27700)
	v.SetDefault("geo.buffer_meters", 100)
	v.SetDefault("geo.buffer_segments", 64)
	v.SetDefault("join.group_by", []string{"NaptanCode", "Crime type"})
	v.SetDefault("join.retain_columns", []string{
		"Crime ID", "Month", "Reported by", "Falls within",
		"Location", "LSOA code", "LSOA name", "Last outcome category",
		"ATCOCode", "CommonName", "Landmark", "Street", "NptgLocalityCode",
		"LocalityName", "Status", "CreationDateTime", "ModificationDateTime",
	})
	v.SetDefault("export.geo", false)
	v.SetDefault("export.prefix", "geo_")
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

// Validate checks that the configuration names both input directories and a
// sensible buffer radius.
func (c *Config) Validate() error {
	if c.Crime.Dir == "" {
		return eris.New("config: crime.dir is required")
	}
	if c.Stops.Dir == "" {
		return eris.New("config: stops.dir is required")
	}
	if c.Geo.BufferMeters <= 0 {
		return eris.Errorf("config: geo.buffer_meters must be positive, got %v", c.Geo.BufferMeters)
	}
	if len(c.Join.GroupBy) == 0 {
		return eris.New("config: join.group_by must not be empty")
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
