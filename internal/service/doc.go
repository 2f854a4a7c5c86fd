// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects, the stores
// defined in internal/store, the generation pipeline, and the background
// task runner to fulfill batch submission and query features.
//
// Services receive dependencies through constructor injection and apply
// transactional boundaries when operations span multiple stores. They
// translate store-level errors into service-level ones so the API layer
// never sees infrastructure detail.
package service
