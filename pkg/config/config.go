package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"SignalPull/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required,oneof=development staging production test"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
		StreamClients   int           `yaml:"stream_clients" default:"256" validate:"gte=0"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Feed struct {
		URL          string        `yaml:"url" validate:"required,url"`
		PollInterval time.Duration `yaml:"poll_interval" default:"2s" validate:"gt=0"`
		FetchTimeout time.Duration `yaml:"fetch_timeout" default:"5s" validate:"gt=0"`
	} `yaml:"feed"`
	Strategies struct {
		Colors struct {
			Enabled bool `yaml:"enabled" default:"true"`
		} `yaml:"colors"`
		White struct {
			Enabled    bool          `yaml:"enabled" default:"true"`
			Offset     time.Duration `yaml:"offset" default:"13m" validate:"gt=0"`
			Popularity int           `yaml:"popularity" default:"3" validate:"gte=1,lte=80"`
			Timezone   string        `yaml:"timezone" default:"Local"`
		} `yaml:"white"`
	} `yaml:"strategies"`
	Session struct {
		Header       string        `yaml:"header" default:"X-Session-Token"`
		TTL          time.Duration `yaml:"ttl" default:"24h"`
		StaticTokens []string      `yaml:"static_tokens"`
		RateLimit    float64       `yaml:"rate_limit" default:"1"` // actions per second
		RateBurst    int           `yaml:"rate_burst" default:"5" validate:"gte=1"`
	} `yaml:"session"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr" default:"localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl" default:"10m"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"signalpull.signals"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"5s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"signalpull"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Journal struct {
		Backend       string        `yaml:"backend" default:"none" validate:"oneof=none clickhouse sqlite"`
		SQLitePath    string        `yaml:"sqlite_path" default:"data/outcomes.db"`
		BufferSize    int           `yaml:"buffer_size" default:"256" validate:"gt=0"`
		BatchSize     int           `yaml:"batch_size" default:"100" validate:"gt=0"`
		FlushInterval time.Duration `yaml:"flush_interval" default:"2s" validate:"gt=0"`
		DedupeTTL     time.Duration `yaml:"dedupe_ttl" default:"1h"`
	} `yaml:"journal"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("FEED_URL"); v != "" {
		c.Feed.URL = v
	}
	if v := getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("POLL_INTERVAL: %w", err)
		}
		c.Feed.PollInterval = d
	}
	c.Server.Port = util.ParseIntDefault(getenv("SERVER_PORT"), c.Server.Port)
	c.Redis.DB = util.ParseIntDefault(getenv("REDIS_DB"), c.Redis.DB)
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if !c.Strategies.Colors.Enabled && !c.Strategies.White.Enabled {
		return fmt.Errorf("at least one strategy must be enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Journal.Backend == "sqlite" && c.Journal.SQLitePath == "" {
		return fmt.Errorf("journal.sqlite_path cannot be empty when the sqlite journal is used")
	}
	if _, err := c.WhiteLocation(); err != nil {
		return err
	}
	return nil
}

// WhiteLocation resolves the time zone used to render white timing estimates.
func (c *Config) WhiteLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Strategies.White.Timezone)
	if err != nil {
		return nil, fmt.Errorf("strategies.white.timezone: %w", err)
	}
	return loc, nil
}
