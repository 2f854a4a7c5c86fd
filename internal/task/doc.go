// Package task manages background job queuing, processing, and lifecycle.
// It provides mechanisms for asynchronous execution of long-running
// operations like generating flashcards for a vocabulary batch, ensuring
// they don't block HTTP request handling, plus a bounded worker pool used
// to fan generation work out over the items of a single batch.
package task
