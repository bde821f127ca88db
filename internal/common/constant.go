// Package common contains shared constants and sentinel errors used across
// drive client components.
package common

// MaxFileSize is the largest file the backend accepts, in bytes (500 MiB).
// The file-selection surface validates against it before enqueueing.
const MaxFileSize = 500 * 1024 * 1024

// SessionCookieName is the cookie used to attach credentials to API requests.
const SessionCookieName = "token"
