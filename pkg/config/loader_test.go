package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/notify/pkg/config"
)

func TestLoad(t *testing.T) {
	type serverConfig struct {
		Addr        string        `env:"TEST_LOAD_ADDR" envDefault:":9090"`
		PollEvery   time.Duration `env:"TEST_LOAD_POLL" envDefault:"5s"`
		WorkerCount int           `env:"TEST_LOAD_WORKERS" envDefault:"4"`
	}

	t.Setenv("TEST_LOAD_ADDR", ":7070")

	var cfg serverConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.PollEvery)
	assert.Equal(t, 4, cfg.WorkerCount)
}

func TestLoad_CachesPerType(t *testing.T) {
	type cachedConfig struct {
		Name string `env:"TEST_CACHE_NAME" envDefault:"first"`
	}

	var first cachedConfig
	require.NoError(t, config.Load(&first))
	assert.Equal(t, "first", first.Name)

	// The environment changes but the cached value wins.
	t.Setenv("TEST_CACHE_NAME", "second")

	var second cachedConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first", second.Name)
}

func TestLoad_RequiredMissing(t *testing.T) {
	type strictConfig struct {
		Token string `env:"TEST_REQUIRED_TOKEN,required"`
	}

	var cfg strictConfig
	err := config.Load(&cfg)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_NilPointer(t *testing.T) {
	t.Parallel()

	var cfg *struct{}
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}

func TestMustLoad_PanicsOnFailure(t *testing.T) {
	type brokenConfig struct {
		Token string `env:"TEST_MUST_TOKEN,required"`
	}

	assert.Panics(t, func() {
		var cfg brokenConfig
		config.MustLoad(&cfg)
	})
}
