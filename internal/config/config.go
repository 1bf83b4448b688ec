package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Database struct {
	Host         string `env:"HOST" envDefault:"localhost"`
	Port         string `env:"PORT" envDefault:"5432"`
	User         string `env:"USER" envDefault:"postgres"`
	Password     string `env:"PASSWORD"`
	Name         string `env:"NAME" envDefault:"idos"`
	SSLMode      string `env:"SSLMODE" envDefault:"disable"`
	MaxRetries   int    `env:"MAX_RETRIES" envDefault:"5"`
	MaxOpenConns int    `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
	AutoMigrate  bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type Client struct {
	BaseURL string        `env:"BASE_URL" envDefault:"http://localhost:3000/api/v1"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type Config struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	Server      struct {
		Port         string        `env:"PORT" envDefault:"3000"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
		IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	} `envPrefix:"SERVER_"`
	Database    Database `envPrefix:"DATABASE_"`
	Redis struct {
		Addr       string `env:"ADDR" envDefault:"localhost:6379"`
		Password   string `env:"PASSWORD"`
		MaxRetries int    `env:"MAX_RETRIES" envDefault:"5"`
	} `envPrefix:"REDIS_"`
	Kafka struct {
		Brokers       []string      `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
		ConsumerGroup string        `env:"CONSUMER_GROUP" envDefault:"idos-balance"`
		PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"3s"`
		MaxRetries    int           `env:"MAX_RETRIES" envDefault:"5"`
	} `envPrefix:"KAFKA_"`
	JWT struct {
		Secret     string        `env:"SECRET,required,notEmpty"`
		Expiration time.Duration `env:"EXPIRATION" envDefault:"24h"`
	} `envPrefix:"JWT_"`
	InitialAdmin struct {
		Email     string `env:"EMAIL"`
		Password  string `env:"PASSWORD"`
		FirstName string `env:"FIRST_NAME" envDefault:"Admin"`
		LastName  string `env:"LAST_NAME" envDefault:"Admin"`
	} `envPrefix:"INITIAL_ADMIN_"`
	Client       Client `envPrefix:"CLIENT_"`
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		var aggErr env.AggregateError
		if errors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads only the DATABASE_ settings, for tools that never
// serve traffic.
func LoadDatabase() (Database, error) {
	_ = godotenv.Load()

	var db Database
	if err := env.ParseWithOptions(&db, env.Options{Prefix: "DATABASE_"}); err != nil {
		return Database{}, err
	}
	return db, nil
}

func LoadClient() (Client, error) {
	_ = godotenv.Load()

	var c Client
	if err := env.ParseWithOptions(&c, env.Options{Prefix: "CLIENT_"}); err != nil {
		return Client{}, err
	}
	return c, nil
}
