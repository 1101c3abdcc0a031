package domain

import "errors"

var (
	// ErrMalformedBlock is returned when a block has no parsable leading ordinal.
	ErrMalformedBlock = errors.New("malformed question block")
	// ErrSourceUnavailable indicates the answers document could not be fetched.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrWriteFailed indicates a dataset writer or publisher failed.
	ErrWriteFailed = errors.New("dataset write failed")
	// ErrImportInProgress is returned when another import holds the run lock.
	ErrImportInProgress = errors.New("import already in progress")
	// ErrDatasetNotFound indicates nothing has been imported into the store yet.
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrTopicNotFound indicates the requested topic partition does not exist.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrQuestionNotFound indicates no record carries the requested ID.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidRecord is returned when a record fails schema validation.
	ErrInvalidRecord = errors.New("invalid question record")
)
