// Package openrouter implements the generation.Provider interface against
// the OpenRouter chat-completions API. It speaks plain JSON over HTTP and
// maps HTTP-level failures onto the generation package's error taxonomy so
// the client can decide retryability.
package openrouter
