package config_test

import (
	"testing"
	"time"

	"github.com/jesser-selmi/idos-front/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("defaults with required secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

		cfg, err := config.Load()

		assert.NoError(t, err)
		assert.Equal(t, "3000", cfg.Server.Port)
		assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
		assert.False(t, cfg.IsProduction())
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")

		_, err := config.Load()

		assert.Error(t, err)
	})
}

func TestLoadDatabase(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_NAME", "idos_test")

	db, err := config.LoadDatabase()

	assert.NoError(t, err)
	assert.Equal(t, "idos_test", db.Name)
	assert.Equal(t, "5432", db.Port)
}

func TestLoadClient(t *testing.T) {
	t.Setenv("CLIENT_TIMEOUT", "3s")

	c, err := config.LoadClient()

	assert.NoError(t, err)
	assert.Equal(t, 3*time.Second, c.Timeout)
	assert.Equal(t, "http://localhost:3000/api/v1", c.BaseURL)
}

func TestNewCircuitBreaker(t *testing.T) {
	cb := config.NewCircuitBreaker("test", 0)

	assert.Equal(t, "test", cb.Name())
	assert.Equal(t, "closed", cb.State().String())
}
