// Package ollama provides the embedding service using Ollama's native API.
//
// Unlike ai/openai, which can reach Ollama through its OpenAI-compatible /v1
// endpoint, this package talks to the server root through langchaingo's
// Ollama client. Config.Normalize strips a trailing /v1 from the host.
//
//	provider, err := ollama.NewProvider(&ai.Config{
//	    Provider: ai.ProviderOllama,
//	    Host:     "http://localhost:11434",
//	    Model:    "nomic-embed-text",
//	})
package ollama
