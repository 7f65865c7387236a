// Package services holds the bridge's business logic: short-link issuance,
// payment submission, and chat observation. This file centralizes the
// service-level error values so handlers can map them to HTTP results.
package services

import "errors"

var (
	// ErrInvalidInput marks a malformed or missing field. The wrapped message
	// names the field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLinkNotFound indicates an unknown or expired short-link code.
	ErrLinkNotFound = errors.New("link not found")

	// ErrChatUnavailable is returned when the video has no active live chat
	// or the provider could not tell. Nothing was posted; retrying is safe.
	ErrChatUnavailable = errors.New("chat unavailable")

	// ErrPostFailed is returned when the provider rejected the post. Nothing
	// was recorded; retrying is safe.
	ErrPostFailed = errors.New("post failed")

	// ErrCodeSpaceExhausted is returned when every generated code collided.
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique link code")
)
