// Package domain defines the core business entities of the flashcard
// generation pipeline: vocabulary items, stage payloads (nuance analysis and
// flashcard rows), and the validation rules that apply to them.
package domain
