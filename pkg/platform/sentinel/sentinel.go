package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and collaborator adapters
// return these (optionally wrapped) so services can translate them into coded
// domain errors.
//
// For validation failures of caller input use pkg/domain-errors directly.
var (
	ErrNotFound = errors.New("not found")
	ErrExpired  = errors.New("expired")
	// ErrUnavailable means a collaborator could not be reached or did not
	// answer in time.
	ErrUnavailable = errors.New("unavailable")
)
