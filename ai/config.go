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


package ai

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ProviderKind selects the embedding provider implementation.
type ProviderKind string

const (
	// ProviderOpenAI talks to OpenAI or any OpenAI-compatible server
	// (LocalAI, vLLM, Ollama's /v1 endpoint).
	ProviderOpenAI ProviderKind = "openai"

	// ProviderOllama talks to Ollama's native embedding API.
	ProviderOllama ProviderKind = "ollama"

	// ProviderMock produces deterministic vectors without network access.
	ProviderMock ProviderKind = "mock"
)

// ProviderKinds lists every recognized provider.
var ProviderKinds = []ProviderKind{ProviderOpenAI, ProviderOllama, ProviderMock}

// Config holds configuration for the embedding provider.
type Config struct {
	// Provider selects the implementation.
	// Default: "openai"
	Provider ProviderKind

	// Host is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server
	Host string

	// Model is the model identifier to use for text embeddings.
	// Example: "text-embedding-3-small", "nomic-embed-text"
	Model string

	// APIKey authenticates against hosted services. Local servers accept any value.
	// Default: "none"
	APIKey string

	// Dimension is the expected embedding length. Zero means the length is
	// discovered by probing the provider once at startup.
	Dimension int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the provider kind.
func WithProvider(kind ProviderKind) ConfigOption {
	return func(c *Config) {
		c.Provider = kind
	}
}

// WithHost sets the embedding service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithDimension sets the expected embedding length.
func WithDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimension = dim
	}
}

// DefaultConfig returns a Config with sensible defaults for a local
// OpenAI-compatible service.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Host:     "http://localhost:11434/v1",
		Model:    "text-embedding-3-small",
		APIKey:   "none",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderOllama),
//	    WithHost("http://localhost:11434"),
//	    WithModel("nomic-embed-text"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get the /v1 suffix most servers require; Ollama's
// native API is served from the root, so a trailing /v1 is removed instead.
func (c *Config) Normalize() {
	c.Provider = ProviderKind(strings.ToLower(string(c.Provider)))
	if c.Host == "" {
		return
	}
	c.Host = strings.TrimSuffix(c.Host, "/")
	switch c.Provider {
	case ProviderOpenAI:
		if !strings.HasSuffix(c.Host, "/v1") {
			c.Host = c.Host + "/v1"
		}
	case ProviderOllama:
		c.Host = strings.TrimSuffix(c.Host, "/v1")
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if !slices.Contains(ProviderKinds, c.Provider) {
		return fmt.Errorf("ai config: unknown Provider %q", c.Provider)
	}
	if c.Provider == ProviderMock {
		if c.Dimension <= 0 {
			return errors.New("ai config: Dimension is required for the mock provider")
		}
		return nil
	}
	if c.Host == "" {
		return errors.New("ai config: Host is required")
	}
	if c.Model == "" {
		return errors.New("ai config: Model is required")
	}
	if c.Dimension < 0 {
		return errors.New("ai config: Dimension cannot be negative")
	}
	return nil
}
