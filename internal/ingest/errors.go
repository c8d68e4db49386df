package ingest

import "errors"

var (
	// ErrInputDirMissing is returned when the input folder does not exist.
	ErrInputDirMissing = errors.New("input folder does not exist")

	// ErrNoInputFiles is returned when the input folder holds no *.hl7 files.
	ErrNoInputFiles = errors.New("no .hl7 files in input folder")

	// ErrStorageUnavailable is returned when the store cannot be opened or the
	// pre-load truncate fails. Both abort the run.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
