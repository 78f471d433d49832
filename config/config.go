package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/cwrk-planet/lobby-chat/internal/postgres"
	"github.com/cwrk-planet/lobby-chat/internal/security"
	"github.com/cwrk-planet/lobby-chat/internal/transport/ws"
	"github.com/cwrk-planet/lobby-chat/internal/wire"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. LOBBY_POSTGRES_DSN.
const EnvPrefix = "LOBBY"

type HTTP struct {
	Addr            string        `yaml:"addr"`                               // ":8080"
	ReadTimeout     time.Duration `yaml:"readTimeout" split_words:"true"`     // "15s"
	WriteTimeout    time.Duration `yaml:"writeTimeout" split_words:"true"`    // "30s"
	IdleTimeout     time.Duration `yaml:"idleTimeout" split_words:"true"`     // "60s"
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" split_words:"true"` // "10s"
}

type GRPC struct {
	Addr           string        `yaml:"addr"`
	HealthInterval time.Duration `yaml:"healthInterval" split_words:"true"`
}

type Logging struct {
	Env       string `yaml:"env"`                          // dev|stage|prod
	Service   string `yaml:"service"`                      // lobby-chat
	Version   string `yaml:"version"`                      // v0.1.0
	Backend   string `yaml:"backend"`                      // std|zap
	AddSource bool   `yaml:"addSource" split_words:"true"` // false|true
	Debug     bool   `yaml:"debug"`                        // false|true
}

type Postgres struct {
	DSN               string        `yaml:"dsn"`
	MaxConns          int32         `yaml:"maxConns" split_words:"true"`
	MinConns          int32         `yaml:"minConns" split_words:"true"`
	MaxConnLifetime   time.Duration `yaml:"maxConnLifetime" split_words:"true"`
	MaxConnIdleTime   time.Duration `yaml:"maxConnIdleTime" split_words:"true"`
	HealthCheckPeriod time.Duration `yaml:"healthCheckPeriod" split_words:"true"`
	ApplicationName   string        `yaml:"applicationName" split_words:"true"`
	PingTimeout       time.Duration `yaml:"pingTimeout" split_words:"true"`
	// Migrate creates missing tables on startup.
	Migrate bool `yaml:"migrate"`
}

func (p Postgres) ToPGConfig() postgres.Config {
	return postgres.Config{
		DSN:               p.DSN,
		MaxConns:          p.MaxConns,
		MinConns:          p.MinConns,
		MaxConnLifetime:   p.MaxConnLifetime,
		MaxConnIdleTime:   p.MaxConnIdleTime,
		HealthCheckPeriod: p.HealthCheckPeriod,
		ApplicationName:   p.ApplicationName,
		Migrate:           p.Migrate,
		PingTimeout:       p.PingTimeout,
	}
}

type Security struct {
	JWTSecret         string        `yaml:"jwtSecret" split_words:"true"`
	Issuer            string        `yaml:"issuer"`
	AccessTTL         time.Duration `yaml:"accessTTL" envconfig:"ACCESS_TTL"`     // напр. 24h
	ClockSkew         time.Duration `yaml:"clockSkew" split_words:"true"`         // напр. 30s
	PasswordMinLength int           `yaml:"passwordMinLength" split_words:"true"`
	BcryptCost        int           `yaml:"bcryptCost" split_words:"true"`
}

func (s Security) Bcrypt() security.BcryptConfig {
	return security.BcryptConfig{Cost: s.BcryptCost, MinLength: s.PasswordMinLength}
}

type Gateway struct {
	Framing      string        `yaml:"framing"`                         // legacy|envelope
	RequireToken bool          `yaml:"requireToken" split_words:"true"`
	ReadLimit    int64         `yaml:"readLimit" split_words:"true"`
	PingInterval time.Duration `yaml:"pingInterval" split_words:"true"`
	PongWait     time.Duration `yaml:"pongWait" split_words:"true"`
	WriteWait    time.Duration `yaml:"writeWait" split_words:"true"`
	SendBuffer   int           `yaml:"sendBuffer" split_words:"true"`
	RateLimit    float64       `yaml:"rateLimit" split_words:"true"`    // сообщений в секунду
	RateBurst    int           `yaml:"rateBurst" split_words:"true"`
	MaxContent   int           `yaml:"maxContent" split_words:"true"`   // символов
}

func (g Gateway) Format() wire.Format {
	f, _ := wire.ParseFormat(g.Framing)
	return f
}

func (g Gateway) ToWSConfig(origins []string) ws.Config {
	return ws.Config{
		Framing:        g.Format(),
		RequireToken:   g.RequireToken,
		AllowedOrigins: origins,
		ReadLimit:      g.ReadLimit,
		PingInterval:   g.PingInterval,
		PongWait:       g.PongWait,
		WriteWait:      g.WriteWait,
		SendBuffer:     g.SendBuffer,
		RateLimit:      g.RateLimit,
		RateBurst:      g.RateBurst,
	}
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowedOrigins" split_words:"true"`
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	GRPC     GRPC     `yaml:"grpc"`
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
	Security Security `yaml:"security"`
	Gateway  Gateway  `yaml:"gateway"`
	CORS     CORS     `yaml:"cors"`
}

// LoadConfig reads CONFIG_PATH (default ./config/config.yaml), applies an
// optional .env file and then LOBBY_* environment overrides.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	return Load(path)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if len(c.Security.JWTSecret) < 16 {
		return errors.New("security.jwtSecret must be at least 16 bytes")
	}
	if c.Security.ClockSkew < 0 || c.Security.ClockSkew > time.Minute {
		return errors.New("security.clockSkew must be in [0..1m]")
	}
	if c.Security.BcryptCost != 0 && (c.Security.BcryptCost < 4 || c.Security.BcryptCost > 18) {
		return errors.New("security.bcryptCost must be in [4..18]")
	}
	if _, err := wire.ParseFormat(c.Gateway.Framing); err != nil {
		return fmt.Errorf("gateway.framing: %w", err)
	}
	if c.Gateway.RateLimit < 0 {
		return errors.New("gateway.rateLimit must be >= 0")
	}

	// установка дефолтов, если значения не указаны
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.GRPC.Addr == "" {
		c.GRPC.Addr = ":9090"
	}
	if c.GRPC.HealthInterval == 0 {
		c.GRPC.HealthInterval = 10 * time.Second
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "lobby-chat"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Security.Issuer == "" {
		c.Security.Issuer = "lobby-chat"
	}
	if c.Security.AccessTTL == 0 {
		c.Security.AccessTTL = 24 * time.Hour
	}
	if c.Security.PasswordMinLength == 0 {
		c.Security.PasswordMinLength = 6
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}
	return nil
}
