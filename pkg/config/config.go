package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Markets struct {
		Domestic MarketConfig `yaml:"domestic"`
		Foreign  MarketConfig `yaml:"foreign"`
	} `yaml:"markets"`
	Prediction struct {
		HorizonDays     int     `yaml:"horizon_days"`
		MinHistory      int     `yaml:"min_history"`
		MinTrainingRows int     `yaml:"min_training_rows"`
		NeutralBandPct  float64 `yaml:"neutral_band_pct"`
	} `yaml:"prediction"`
	Training struct {
		Timeout      time.Duration `yaml:"timeout"`
		BackupKeep   int           `yaml:"backup_keep"`
		ArtifactDir  string        `yaml:"artifact_dir"`
		NeuralEnsemble bool        `yaml:"neural_ensemble"`
	} `yaml:"training"`
	Store struct {
		Dir string `yaml:"dir"`
	} `yaml:"store"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Feed struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Telegram struct {
		Enabled bool   `yaml:"enabled"`
		Token   string `yaml:"token"`
		ChatID  int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
}

// MarketConfig lists the instruments served for one region. IndexProxies
// names the instruments whose closes stand in for the region's index when
// detecting the market regime; empty means the whole instrument list.
type MarketConfig struct {
	Instruments  []string `yaml:"instruments"`
	IndexProxies []string `yaml:"index_proxies"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.Defaults()
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

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Telegram.Token = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Markets.Domestic.Instruments) == 0 && len(c.Markets.Foreign.Instruments) == 0 {
		return fmt.Errorf("at least one market needs instruments")
	}
	if c.Prediction.HorizonDays <= 0 {
		return fmt.Errorf("prediction.horizon_days must be positive")
	}
	if c.Prediction.NeutralBandPct < 0 {
		return fmt.Errorf("prediction.neutral_band_pct cannot be negative")
	}
	if c.Training.ArtifactDir == "" {
		return fmt.Errorf("training.artifact_dir is required")
	}
	if c.Store.Dir == "" {
		return fmt.Errorf("store.dir is required")
	}
	return nil
}

// Defaults fills unset numeric knobs with the values the pipeline was tuned
// with.
func (c *Config) Defaults() {
	if c.Prediction.HorizonDays == 0 {
		c.Prediction.HorizonDays = 1
	}
	if c.Prediction.MinHistory == 0 {
		c.Prediction.MinHistory = 30
	}
	if c.Prediction.MinTrainingRows == 0 {
		c.Prediction.MinTrainingRows = 50
	}
	if c.Prediction.NeutralBandPct == 0 {
		c.Prediction.NeutralBandPct = 0.5
	}
	if c.Training.Timeout == 0 {
		c.Training.Timeout = 10 * time.Minute
	}
	if c.Training.BackupKeep == 0 {
		c.Training.BackupKeep = 5
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Feed.ReconnectDelay == 0 {
		c.Feed.ReconnectDelay = 5 * time.Second
	}
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = 30 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}
