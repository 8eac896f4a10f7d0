package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"

	AuthModeLocal  = "local"
	AuthModeRemote = "remote"

	SearchSyncInline = "inline"
	SearchSyncEvents = "events"
)

type TodoConfig struct {
	Address  string        `yaml:"address" env:"TODO_ADDRESS" env-default:":5000"`
	LogLevel string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Params   Params        `yaml:"params"`
	Auth     AuthClient    `yaml:"auth"`
	Storage  Storage       `yaml:"storage"`
	Kafka    Kafka         `yaml:"kafka"`
	Elastic  Elasticsearch `yaml:"elasticsearch"`
	Server   Server        `yaml:"server"`
}

type AuthConfig struct {
	Address  string `yaml:"address" env:"AUTH_ADDRESS" env-default:":5001"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Params   Params `yaml:"params"`
	JWT      JWT    `yaml:"jwt"`
	DB       DB     `yaml:"db"`
	Redis    Redis  `yaml:"redis"`
	Server   Server `yaml:"server"`
}

type Params struct {
	Text     MinMaxLen `yaml:"text"`
	Password MinMaxLen `yaml:"password"`
}

type MinMaxLen struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

type AuthClient struct {
	Mode      string        `yaml:"mode" env:"AUTH_MODE" env-default:"local"`
	Address   string        `yaml:"address" env:"AUTH_URL"`
	Timeout   time.Duration `yaml:"timeout" env-default:"3s"`
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
}

type Storage struct {
	Driver   string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mongo"`
	Mongo    Mongo  `yaml:"mongo"`
	Postgres DB     `yaml:"postgres"`
	SQLite   SQLite `yaml:"sqlite"`
}

type SQLite struct {
	Path string `yaml:"path" env:"SQLITE_PATH" env-default:"todo.db"`
}

type Mongo struct {
	URI        string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database   string `yaml:"database" env-default:"todo"`
	Collection string `yaml:"collection" env-default:"todos"`
}

type DB struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"5432"`
	User     string `yaml:"user"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	DBName   string `yaml:"db_name"`
}

type Redis struct {
	Address  string `yaml:"address" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"`
}

type JWT struct {
	Secret string        `yaml:"secret" env:"JWT_SECRET"`
	TTL    time.Duration `yaml:"ttl" env-default:"72h"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" env-default:"task-events"`
	GroupId string   `yaml:"group_id" env-default:"task-indexer"`
}

type Elasticsearch struct {
	Addresses []string `yaml:"addresses" env:"ELASTICSEARCH_ADDRESSES"`
	Index     string   `yaml:"index" env-default:"tasks"`
	Sync      string   `yaml:"sync" env:"SEARCH_SYNC" env-default:"inline"`
}

// IndexerConfig drives the process that follows task events into the
// search index.
type IndexerConfig struct {
	LogLevel string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Kafka    Kafka         `yaml:"kafka"`
	Elastic  Elasticsearch `yaml:"elasticsearch"`
	Retries  int           `yaml:"retries" env-default:"3"`
}

type Server struct {
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

func MustLoadTodoConfig() *TodoConfig {
	var cfg TodoConfig
	if err := load(&cfg); err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return &cfg
}

func MustLoadIndexerConfig() *IndexerConfig {
	var cfg IndexerConfig
	if err := load(&cfg); err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return &cfg
}

func MustLoadAuthConfig() *AuthConfig {
	var cfg AuthConfig
	if err := load(&cfg); err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return &cfg
}

func load(cfg any) error {
	godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		return errors.New("no config path in env")
	}

	return ReadConfig(path, cfg)
}

// ReadConfig reads the YAML file at path into cfg, then applies env overrides.
func ReadConfig(path string, cfg any) error {
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

func (c *TodoConfig) Validate() error {
	switch c.Storage.Driver {
	case StorageMongo, StoragePostgres, StorageMemory, StorageSQLite:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Auth.Mode {
	case AuthModeLocal:
		if c.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret is required in local mode")
		}
	case AuthModeRemote:
		if c.Auth.Address == "" {
			return errors.New("auth.address is required in remote mode")
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.Auth.Mode)
	}

	switch c.Elastic.Sync {
	case SearchSyncInline, SearchSyncEvents:
	case "":
		c.Elastic.Sync = SearchSyncInline
	default:
		return fmt.Errorf("unknown elasticsearch.sync %q", c.Elastic.Sync)
	}

	if c.Params.Text.Max <= 0 {
		c.Params.Text.Max = 500
	}
	if c.Params.Text.Min <= 0 {
		c.Params.Text.Min = 1
	}
	return nil
}

func (c *AuthConfig) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Params.Password.Min <= 0 {
		c.Params.Password.Min = 6
	}
	if c.Params.Password.Max <= 0 {
		c.Params.Password.Max = 72
	}
	return nil
}

func (c *IndexerConfig) Validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required")
	}
	if len(c.Elastic.Addresses) == 0 {
		return errors.New("elasticsearch.addresses is required")
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	return nil
}
