// Package api is the HTTP surface of the tracker: chi routes, JSON request
// decoding and validation, bearer authentication, and the mapping of service
// errors to status codes and safe messages.
package api
