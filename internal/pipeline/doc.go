// Package pipeline orchestrates the two-stage flashcard generation for a
// vocabulary batch: a nuance-analysis call followed by a card-formatting
// call per item, fanned out over a bounded worker pool. A batch never
// fails wholesale because some of its items failed; ProcessBatch always
// returns one outcome per submitted item.
package pipeline
