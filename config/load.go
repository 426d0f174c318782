// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/tradevec/ai"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TRADEVEC_"

// Load resolves defaults, the TOML file at path (skipped when path is empty)
// and the environment. The result is not validated.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		if err := c.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadDotEnv loads KEY=value pairs from files into the process environment
// without overriding variables that are already set. Missing files are
// skipped. With no arguments it reads .env in the working directory.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// TOML renders c as a config file. The API key is masked.
func (c *Config) TOML() ([]byte, error) {
	masked := *c
	if masked.Embedding.APIKey != "" && masked.Embedding.APIKey != "none" {
		masked.Embedding.APIKey = "***"
	}
	return toml.Marshal(&masked)
}

type lookupFunc func(key string) (string, bool)

// applyEnv overlays TRADEVEC_* variables. OPENAI_API_KEY and DATABASE_URL
// are honoured as fallbacks for the API key and the postgres DSN.
func (c *Config) applyEnv(lookup lookupFunc) error {
	env := envReader{lookup: lookup}

	if v, ok := env.str("EMBEDDING_PROVIDER"); ok {
		c.Embedding.Provider = ai.ProviderKind(strings.ToLower(v))
	}
	env.setStr("EMBEDDING_HOST", &c.Embedding.Host)
	env.setStr("EMBEDDING_MODEL", &c.Embedding.Model)
	if v, ok := env.str("EMBEDDING_API_KEY"); ok {
		c.Embedding.APIKey = v
	} else if v, ok := lookup("OPENAI_API_KEY"); ok && v != "" {
		c.Embedding.APIKey = v
	}
	env.setInt("EMBEDDING_DIMENSION", &c.Embedding.Dimension)
	env.setInt("BATCH_SIZE", &c.Embedding.BatchSize)
	env.setInt("CONCURRENCY", &c.Embedding.Concurrency)
	env.setInt("MAX_RETRIES", &c.Embedding.MaxRetries)
	env.setDuration("RETRY_DELAY", &c.Embedding.RetryDelay)
	env.setFloat("REQUESTS_PER_SECOND", &c.Embedding.RequestsPerSecond)

	if v, ok := env.str("STORE_BACKEND"); ok {
		c.Store.Backend = Backend(strings.ToLower(v))
	}
	env.setStr("STORE_PATH", &c.Store.Path)
	if v, ok := env.str("STORE_DSN"); ok {
		c.Store.DSN = v
	} else if v, ok := lookup("DATABASE_URL"); ok && v != "" && c.Store.DSN == "" {
		c.Store.DSN = v
	}
	env.setStr("COLLECTION", &c.Store.Collection)
	env.setInt("UPSERT_BATCH_SIZE", &c.Store.UpsertBatchSize)

	env.setStr("RAW_DIR", &c.Paths.RawDir)
	env.setStr("PROCESSED_DIR", &c.Paths.ProcessedDir)
	env.setStr("LOG_LEVEL", &c.LogLevel)

	return env.err
}

// envReader reads prefixed variables and remembers the first parse error.
type envReader struct {
	lookup lookupFunc
	err    error
}

func (r *envReader) str(name string) (string, bool) {
	v, ok := r.lookup(EnvPrefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *envReader) setStr(name string, dst *string) {
	if v, ok := r.str(name); ok {
		*dst = v
	}
}

func (r *envReader) setInt(name string, dst *int) {
	v, ok := r.str(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(name, v, err)
		return
	}
	*dst = n
}

func (r *envReader) setFloat(name string, dst *float64) {
	v, ok := r.str(name)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(name, v, err)
		return
	}
	*dst = f
}

func (r *envReader) setDuration(name string, dst *Duration) {
	v, ok := r.str(name)
	if !ok {
		return
	}
	if err := dst.UnmarshalText([]byte(v)); err != nil {
		r.fail(name, v, err)
	}
}

func (r *envReader) fail(name, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s%s=%q: %w", ErrInvalidConfig, EnvPrefix, name, value, err)
	}
}
