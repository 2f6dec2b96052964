// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects and repositories
// (defined in internal/store) to fulfill application features.
//
// Key components:
//
//   - TaskService: the task lifecycle. Every mutation runs in a single
//     store transaction and emits a notification event after commit.
//   - SubscriptionRegistry: the per-task set of emails that receive
//     notifications. It only grows, and adding an existing email is a no-op.
//   - UserService: registration, credential checks and user lookup.
//
// Expected failures are returned as sentinel errors (ErrNotFound,
// ErrForbidden and ErrConflict families) that the API layer maps to HTTP
// statuses. Unexpected failures are wrapped in TaskServiceError.
//
// The service layer depends on domain entities and repository interfaces (from store),
// but never on specific infrastructure implementations.
package service
