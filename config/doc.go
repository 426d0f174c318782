// Package config holds the explicit configuration for a tradevec process.
//
// Values are resolved in order: built-in defaults, then a TOML file, then
// TRADEVEC_* environment variables (optionally seeded from a .env file),
// then command line flags applied by the caller through Options. The
// resulting Config is passed to constructors; nothing reads the environment
// after Load returns.
//
// Example file:
//
//	[embedding]
//	provider = "ollama"
//	host = "http://localhost:11434"
//	model = "nomic-embed-text"
//	batch_size = 64
//
//	[store]
//	backend = "sqlite"
//	path = "data/vectors"
//
//	[paths]
//	raw_dir = "data/raw"
//	processed_dir = "data/processed"
package config
