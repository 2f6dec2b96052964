// Package events decouples the task services from notification delivery.
//
// Services emit a NotificationEvent once a mutation has committed; handlers
// registered on the InMemoryEventEmitter (in the server binary, the one that
// enqueues a dispatch job) take it from there.
package events
