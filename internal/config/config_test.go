package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8082", cfg.HTTPAddr)
	assert.Equal(t, "KOP", cfg.OrderCodePrefix)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 4, cfg.WorkerCount)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("ORDER_CODE_PREFIX", "TOKO")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092 ,")
	t.Setenv("WORKER_COUNT", "12")

	cfg := Load()
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, "TOKO", cfg.OrderCodePrefix)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 12, cfg.WorkerCount)
}

func TestLoadBadWorkerCount(t *testing.T) {
	t.Setenv("WORKER_COUNT", "banyak")
	assert.Equal(t, 4, Load().WorkerCount)
}
