// Package mocks provides shared test doubles for the tracker.
//
// MemoryStore implements every store interface in memory with the same
// observable behavior as the Postgres stores (unique emails, cascading task
// deletes, anonymized content after a user is deleted). MockTxManager runs
// transactions against it and rolls the store back when the work fails.
//
//	mem := mocks.NewMemoryStore()
//	svc, err := service.NewTaskService(
//	    mocks.NewMockTxManager(mem),
//	    mem.Tasks(), mem.Comments(), mem.Files(), mem.Subscriptions(),
//	    files, emitter, logger,
//	)
//
// The function-field mocks (MockJWTService, MockPasswordVerifier,
// MockTransport) record their calls and fall back to fixed values when no
// function is set.
package mocks
