package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrNilPointer    = errors.New("config: nil pointer passed to Load")
	ErrParsingConfig = errors.New("config: failed to parse environment")
)

var (
	dotenvOnce sync.Once

	mu    sync.Mutex
	cache = make(map[reflect.Type]any)
)

// Load parses environment variables into v based on its env struct tags.
// Each configuration type is parsed once per process; later calls for the
// same type return the cached value, so packages can load their own config
// without coordinating initialization order.
//
// A .env file in the working directory is applied before the first parse and
// is optional.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	key := reflect.TypeOf(*v)

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	// Cache a copy so later mutations of v do not leak into other callers.
	cache[key] = *v
	return nil
}

// MustLoad is Load for configuration the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}
