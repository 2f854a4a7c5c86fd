// Package ratelimit implements the token-bucket limiter that bounds outbound
// calls to the LLM provider. A single Limiter is shared by all pipeline
// workers targeting the same API endpoint.
package ratelimit
