package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

type Config struct {
	Server Server `yaml:"server"`
	Compat Compat `yaml:"compat"`
}

type Server struct {
	Port          int    `yaml:"port"`
	BaseURL       string `yaml:"baseURL"`
	StoreDriver   string `yaml:"storeDriver"` // mongo, postgres
	MongoURI      string `yaml:"mongoURI"`
	MongoDatabase string `yaml:"mongoDatabase"`
	PostgresDsn   string `yaml:"postgresDsn"`
	StoreTimeout  string `yaml:"storeTimeout"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	CacheTTL      string `yaml:"cacheTTL"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`

	// ---
	StoreTimeoutDuration time.Duration `yaml:"-"`
	CacheTTLDuration     time.Duration `yaml:"-"`
}

// Compat holds switches restoring legacy response codes.
type Compat struct {
	MalformedIDStatus500 bool `yaml:"malformedIdStatus500"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, errors.Wrapf(err, "parsing %s", path)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	if c.Server.StoreDriver == "" {
		c.Server.StoreDriver = DriverMongo
	}
	if c.Server.MongoDatabase == "" {
		c.Server.MongoDatabase = "catalog"
	}
	if c.Server.StoreTimeout == "" {
		c.Server.StoreTimeout = "5s"
	}
	if c.Server.CacheTTL == "" {
		c.Server.CacheTTL = "1m"
	}
}

// Validate checks the configuration and resolves duration fields.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Server.StoreDriver {
	case DriverMongo:
		if c.Server.MongoURI == "" {
			return fmt.Errorf("server.mongoURI is required for the mongo driver")
		}
	case DriverPostgres:
		if c.Server.PostgresDsn == "" {
			return fmt.Errorf("server.postgresDsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("server.storeDriver must be %q or %q, got %q", DriverMongo, DriverPostgres, c.Server.StoreDriver)
	}

	timeout, err := time.ParseDuration(c.Server.StoreTimeout)
	if err != nil || timeout <= 0 {
		return fmt.Errorf("server.storeTimeout must be a positive duration, got %q", c.Server.StoreTimeout)
	}
	c.Server.StoreTimeoutDuration = timeout

	ttl, err := time.ParseDuration(c.Server.CacheTTL)
	if err != nil || ttl <= 0 {
		return fmt.Errorf("server.cacheTTL must be a positive duration, got %q", c.Server.CacheTTL)
	}
	c.Server.CacheTTLDuration = ttl

	if c.Server.EnableTrace && c.Server.TraceEndpoint == "" {
		return fmt.Errorf("server.traceEndpoint is required when tracing is enabled")
	}

	return nil
}

// MalformedIDStatus is the status code for updates addressed by a malformed
// identifier.
func (c Config) MalformedIDStatus() int {
	if c.Compat.MalformedIDStatus500 {
		return 500
	}
	return 400
}
