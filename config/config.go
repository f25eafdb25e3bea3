package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Google        GoogleConfig        `mapstructure:"google"`
	Solar         SolarConfig         `mapstructure:"solar"`
	Raster        RasterConfig        `mapstructure:"raster"`
	Footprint     FootprintConfig     `mapstructure:"footprint"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Visualization VisualizationConfig `mapstructure:"visualization"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type GoogleConfig struct {
	APIKey          string `mapstructure:"api_key"`
	CredentialsPath string `mapstructure:"credentials_path"`
	Scopes          string `mapstructure:"scopes"`
	ProjectID       string `mapstructure:"project_id"`
	GeocodeURL      string `mapstructure:"geocode_url"`
}

// ScopesList splits the comma separated scope string.
func (g GoogleConfig) ScopesList() []string {
	var scopes []string
	for _, s := range strings.Split(g.Scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

type SolarConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	RadiusMeters    float64       `mapstructure:"radius_meters"`
	RequiredQuality string        `mapstructure:"required_quality"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	CostPerMeter    float64       `mapstructure:"cost_per_meter"`
}

type RasterConfig struct {
	// MaxAreaM2 of 0 disables the upper bound.
	MinAreaM2     float64       `mapstructure:"min_area_m2"`
	MaxAreaM2     float64       `mapstructure:"max_area_m2"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	QueueTimeout  time.Duration `mapstructure:"queue_timeout"`
}

type FootprintConfig struct {
	// Source is one of "none", "local" or "stac".
	Source         string  `mapstructure:"source"`
	Path           string  `mapstructure:"path"`
	STACURL        string  `mapstructure:"stac_url"`
	STACCollection string  `mapstructure:"stac_collection"`
	CostPerFoot    float64 `mapstructure:"cost_per_foot"`
}

type CacheConfig struct {
	// Backend is one of "memory", "redis" or "none".
	Backend    string `mapstructure:"backend"`
	MaxEntries int    `mapstructure:"max_entries"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type VisualizationConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load reads the YAML config file, then applies environment overrides.
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

// FromEnv builds the configuration from defaults and the environment only.
// LoadOrEnv loads configPath and falls back to FromEnv when that fails. The
// returned config is never nil; the error is the load failure, if any.
func LoadOrEnv(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return FromEnv(), err
	}
	return cfg, nil
}

func FromEnv() *Config {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	cfg, err := unmarshal(v)
	if err != nil {
		return getDefaultConfig()
	}
	return cfg
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("SOLAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// the .env names stay unprefixed
	_ = v.BindEnv("google.api_key", "GOOGLE_API_KEY")
	_ = v.BindEnv("google.credentials_path", "GOOGLE_CREDENTIALS_PATH")
	_ = v.BindEnv("google.scopes", "GOOGLE_SCOPES")
	_ = v.BindEnv("google.project_id", "PROJECT_ID")
}

func setDefaults(v *viper.Viper) {
	def := getDefaultConfig()

	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.mode", def.Server.Mode)
	v.SetDefault("server.read_timeout", def.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", def.Server.WriteTimeout)

	v.SetDefault("google.api_key", "")
	v.SetDefault("google.credentials_path", "")
	v.SetDefault("google.scopes", def.Google.Scopes)
	v.SetDefault("google.project_id", "")
	v.SetDefault("google.geocode_url", def.Google.GeocodeURL)

	v.SetDefault("solar.base_url", def.Solar.BaseURL)
	v.SetDefault("solar.radius_meters", def.Solar.RadiusMeters)
	v.SetDefault("solar.required_quality", def.Solar.RequiredQuality)
	v.SetDefault("solar.http_timeout", def.Solar.HTTPTimeout)
	v.SetDefault("solar.cost_per_meter", def.Solar.CostPerMeter)

	v.SetDefault("raster.min_area_m2", def.Raster.MinAreaM2)
	v.SetDefault("raster.max_area_m2", def.Raster.MaxAreaM2)
	v.SetDefault("raster.max_concurrent", def.Raster.MaxConcurrent)
	v.SetDefault("raster.queue_timeout", def.Raster.QueueTimeout)

	v.SetDefault("footprint.source", def.Footprint.Source)
	v.SetDefault("footprint.path", def.Footprint.Path)
	v.SetDefault("footprint.stac_url", "")
	v.SetDefault("footprint.stac_collection", def.Footprint.STACCollection)
	v.SetDefault("footprint.cost_per_foot", def.Footprint.CostPerFoot)

	v.SetDefault("cache.backend", def.Cache.Backend)
	v.SetDefault("cache.max_entries", def.Cache.MaxEntries)

	v.SetDefault("redis.addr", def.Redis.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", def.Redis.TTL)

	v.SetDefault("visualization.dir", def.Visualization.Dir)
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":5000",
			Mode:         "debug",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Google: GoogleConfig{
			Scopes:     "https://www.googleapis.com/auth/solar",
			GeocodeURL: "https://maps.googleapis.com/maps/api/geocode/json",
		},
		Solar: SolarConfig{
			BaseURL:         "https://solar.googleapis.com/v1",
			RadiusMeters:    50,
			RequiredQuality: "HIGH",
			HTTPTimeout:     60 * time.Second,
			CostPerMeter:    20,
		},
		Raster: RasterConfig{
			MinAreaM2:     10,
			MaxAreaM2:     0,
			MaxConcurrent: 2,
			QueueTimeout:  30 * time.Second,
		},
		Footprint: FootprintConfig{
			Source:         "none",
			Path:           "data/footprints/{region}.geojson",
			STACCollection: "ms-buildings",
			CostPerFoot:    6.10,
		},
		Cache: CacheConfig{
			Backend:    "memory",
			MaxEntries: 0,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  24 * time.Hour,
		},
		Visualization: VisualizationConfig{
			Dir: "visualizations",
		},
	}
}
