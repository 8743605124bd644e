package config

import (
	"time"

	"github.com/kasuganosora/skyquest/cache"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    cache.Config   `mapstructure:"cache"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Content  ContentConfig  `mapstructure:"content"`
	Game     GameConfig     `mapstructure:"game"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

// LogConfig controls the zap logger. An empty FilePath logs to stdout only.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type StorageConfig struct {
	Backend   string `mapstructure:"backend"` // cache | db
	KeyPrefix string `mapstructure:"key_prefix"`
}

type ContentConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type GameConfig struct {
	MainCharacter   string       `mapstructure:"main_character"`
	TickMs          int          `mapstructure:"tick_ms"`
	AutosaveS       int          `mapstructure:"autosave_s"`
	RecentEventsCap int          `mapstructure:"recent_events_cap"`
	StateLogCap     int          `mapstructure:"state_log_cap"`
	Rewards         RewardConfig `mapstructure:"rewards"`
}

// RewardConfig holds reward balance constants.
type RewardConfig struct {
	TimeBonusPercent      int `mapstructure:"time_bonus_percent"`
	PartnerBonusPercent   int `mapstructure:"partner_bonus_percent"`
	PartnerBonusThreshold int `mapstructure:"partner_bonus_threshold"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTL         time.Duration `mapstructure:"jwt_ttl"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists the WebSocket/SSE origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// AdminIPs may call the admin reset endpoint. Empty allows any address.
	AdminIPs []string `mapstructure:"admin_ips"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/skyquest.db")
	v.SetDefault("database.mysql_max_open", 20)
	v.SetDefault("database.mysql_max_idle", 5)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("storage.backend", "db")
	v.SetDefault("storage.key_prefix", "skyquest:")
	v.SetDefault("content.data_dir", "./data/content")
	v.SetDefault("game.main_character", "jett")
	v.SetDefault("game.tick_ms", 100)
	v.SetDefault("game.autosave_s", 60)
	v.SetDefault("game.recent_events_cap", 20)
	v.SetDefault("game.state_log_cap", 100)
	v.SetDefault("game.rewards.time_bonus_percent", 20)
	v.SetDefault("game.rewards.partner_bonus_percent", 10)
	v.SetDefault("game.rewards.partner_bonus_threshold", 3)
	v.SetDefault("security.jwt_secret", "change-me")
	v.SetDefault("security.jwt_ttl", "72h")
	v.SetDefault("security.rate_limit_rps", 50)
	v.SetDefault("security.rate_limit_burst", 100)
	v.SetDefault("security.admin_ips", []string{"127.0.0.1", "::1"})
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration with every default applied and no file.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}
