// Package domain contains the core business entities, value objects, and
// domain logic of the application: users, tasks with their open/closed
// lifecycle, comments, the single attached file, and the email subscriptions
// that make up a task's implicit mailing list.
package domain
