// Package config provides type-safe environment variable loading with caching
// using Go generics. Each configuration type is loaded once and cached for
// subsequent calls.
//
// The package loads a .env file on first use and uses the caarlos0/env
// library for parsing environment variables into struct fields.
//
// Basic usage:
//
//	import (
//		"github.com/dmitrymomot/sqsx/core/config"
//		"github.com/dmitrymomot/sqsx/core/queue"
//		"github.com/dmitrymomot/sqsx/integration/sqs"
//	)
//
//	func main() {
//		var queueCfg queue.Config
//		config.MustLoad(&queueCfg)
//
//		var sqsCfg sqs.Config
//		if err := config.Load(&sqsCfg); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// # Caching Behavior
//
// Each configuration type is loaded only once per application lifetime:
//
//	var cfg1 queue.Config
//	config.Load(&cfg1) // Loads from environment
//
//	var cfg2 queue.Config
//	config.Load(&cfg2) // Returns cached value, cfg1 == cfg2
//
// Different types are cached independently. Reset clears the cache in tests.
package config
