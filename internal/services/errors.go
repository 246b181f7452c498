// Package services implements the business logic of the file-store bot: the
// access gate, the range ingestion worker, the delivery scheduler, the
// cleanup scheduler, and broadcast fan-out. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// Translation into user-facing messages is performed in the bot router.
package services

import "errors"

var (
	// ErrNoMediaInRange is returned when a completed range walk extracted
	// zero media items; nothing is persisted in that case.
	ErrNoMediaInRange = errors.New("no media found in range")

	// ErrUnknownToken indicates that a retrieval token resolves to neither
	// a content item nor a batch. This is the canonical not-found outcome
	// for expired or mistyped links, not an internal error.
	ErrUnknownToken = errors.New("invalid or expired link")

	// ErrSendFailed is returned when a remote transmission error aborted a
	// delivery. Items already sent remain delivered.
	ErrSendFailed = errors.New("delivery transmission failed")

	// ErrNoAudience is returned when a broadcast is requested but no users
	// are stored.
	ErrNoAudience = errors.New("no stored users to broadcast to")
)
