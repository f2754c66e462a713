// SPDX-License-Identifier: MIT

package daemon

import "errors"

var (
	// ErrMissingServer is returned when no HTTP handler is provided.
	ErrMissingServer = errors.New("HTTP server handler is required")

	// ErrMissingManager is returned when an App runs without a manager.
	ErrMissingManager = errors.New("manager is required")

	// ErrManagerNotStarted is returned when shutting down a manager that never started.
	ErrManagerNotStarted = errors.New("manager not started")

	// ErrServerStartFailed is returned when the listener cannot be bound.
	ErrServerStartFailed = errors.New("server failed to start")
)
