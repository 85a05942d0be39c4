package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sqsx/core/config"
	"github.com/dmitrymomot/sqsx/core/queue"
)

type testConfig struct {
	Name    string `env:"SQSX_TEST_NAME" envDefault:"default-name"`
	Retries int    `env:"SQSX_TEST_RETRIES" envDefault:"3"`
}

type requiredConfig struct {
	Value string `env:"SQSX_TEST_REQUIRED_VALUE,required"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults and environment", func(t *testing.T) {
		config.Reset()
		t.Setenv("SQSX_TEST_RETRIES", "7")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "default-name", cfg.Name)
		assert.Equal(t, 7, cfg.Retries)
	})

	t.Run("cached per type", func(t *testing.T) {
		config.Reset()
		t.Setenv("SQSX_TEST_NAME", "first")

		var first testConfig
		require.NoError(t, config.Load(&first))

		t.Setenv("SQSX_TEST_NAME", "second")

		var second testConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, "first", second.Name)
	})

	t.Run("required variable missing", func(t *testing.T) {
		config.Reset()

		var cfg requiredConfig
		err := config.Load(&cfg)
		assert.Error(t, err)
		assert.Panics(t, func() { config.MustLoad(&cfg) })
	})

	t.Run("queue config", func(t *testing.T) {
		config.Reset()
		t.Setenv("SQSX_MAX_MESSAGES", "5")
		t.Setenv("SQSX_RUN_FOREVER", "false")

		var cfg queue.Config
		require.NoError(t, config.Load(&cfg))

		expected := queue.DefaultConfig()
		expected.MaxMessages = 5
		expected.RunForever = false
		assert.Equal(t, expected, cfg)
	})
}
