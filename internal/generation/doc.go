// Package generation implements the stage-invocation client that sits
// between the pipeline and the LLM provider. Every call flows through the
// shared cache, rate limiter, and circuit breaker, with bounded retries for
// transient provider failures. The Provider interface is the boundary to the
// concrete LLM backends (OpenRouter, Gemini).
package generation
