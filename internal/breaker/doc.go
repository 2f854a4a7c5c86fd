// Package breaker implements a three-state circuit breaker (closed, open,
// half-open) that isolates the pipeline from a failing LLM provider. One
// Breaker instance guards one API endpoint and is shared by all workers.
package breaker
