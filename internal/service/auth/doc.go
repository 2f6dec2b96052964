// Package auth issues and validates HS256 bearer tokens and verifies
// bcrypt password hashes.
package auth
