// Package config loads typed configuration structs from environment
// variables, with optional .env file support for development.
//
// Each configuration type is parsed once per process and cached, so any
// component can call Load for the config it needs without coordinating
// initialization order.
//
// # Usage
//
//	type PostgresConfig struct {
//		ConnectionString string `env:"PG_CONN_URL,required"`
//		MaxOpenConns     int    `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
//	}
//
//	var cfg PostgresConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
// MustLoad panics on failure, for configuration the service cannot start
// without.
package config
