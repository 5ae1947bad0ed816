package domain

import "errors"

var (
	// ErrAlreadyRunning - прогон уже выполняется, новый отклонён без ожидания
	ErrAlreadyRunning = errors.New("ingestion run already in progress")

	ErrListingNotFound = errors.New("listing not found")
	ErrTaskNotFound    = errors.New("task not found")

	ErrInvalidListing  = errors.New("invalid listing")
	ErrSourceFailure   = errors.New("source adapter failure")
	ErrDispatchFailure = errors.New("outreach dispatch failure")
)
