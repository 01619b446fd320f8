package services

import "errors"

var (
	// ErrClientBlocked is returned when a client exceeded the unknown-key limit
	ErrClientBlocked = errors.New("client temporarily blocked after repeated invalid license keys")

	// ErrBackupsDisabled is returned by backup controls when no scheduler is configured
	ErrBackupsDisabled = errors.New("scheduled backups are disabled")

	// ErrMissingQuery is returned by search without a query
	ErrMissingQuery = errors.New("search query is required")
)
