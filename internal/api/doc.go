// Package api implements the HTTP transport layer: request decoding and
// validation, DTO mapping, error-to-status translation, and the chi routing
// table. Handlers delegate all business logic to internal/service and never
// touch the stores directly.
package api
