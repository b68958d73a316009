package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "online", cfg.Channel.OnlineChannelID)
	assert.Equal(t, 1, cfg.Channel.OnlineMinStock)
	assert.Equal(t, 5, cfg.Channel.StoreMinStock)
	assert.Equal(t, 5*time.Second, cfg.Catalog.Timeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_MIN_STOCK", "3")
	t.Setenv("CATALOG_TIMEOUT", "250ms")
	t.Setenv("SESSION_MAX_IDLE", "120")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

	cfg := Load()

	assert.Equal(t, 3, cfg.Channel.StoreMinStock)
	assert.Equal(t, 250*time.Millisecond, cfg.Catalog.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.Session.MaxIdle)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ONLINE_MIN_STOCK", "lots")
	t.Setenv("VIEW_STATE_TTL", "soon")

	cfg := Load()

	assert.Equal(t, 1, cfg.Channel.OnlineMinStock)
	assert.Equal(t, 30*time.Minute, cfg.Session.ViewStateTTL)
}
