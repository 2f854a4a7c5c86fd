// Package cache implements the stage-result cache: a TTL-bounded,
// size-bounded LRU keyed by (term, stage, model config) digests. Serving a
// repeated term from here skips the LLM call entirely, which is where most
// of the pipeline's cost savings come from.
package cache
