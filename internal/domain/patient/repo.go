package patient

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrDuplicateKey is returned by Insert when a row with the same PATIENT_ID
// already exists.
var ErrDuplicateKey = errors.New("patient already exists")

// ErrInvalidTable is returned when a table name is not a plain SQL identifier.
var ErrInvalidTable = errors.New("invalid table name")

// Repository persists Patient records. Implementations hold a single
// connection and are not safe for concurrent use.
type Repository interface {
	// Insert writes every column of p. A uniqueness violation on
	// PATIENT_ID yields an error matching ErrDuplicateKey.
	Insert(ctx context.Context, p *Patient) (int64, error)
	// DumpAll returns every row ordered by PATIENT_ID. An empty table
	// yields an empty slice and a nil error.
	DumpAll(ctx context.Context) ([]*Patient, error)
	// Truncate removes every row.
	Truncate(ctx context.Context) error
	Close() error
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateTable checks that name is safe to interpolate into SQL.
func ValidateTable(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	return nil
}

func duplicateError(id string) error {
	return fmt.Errorf("insert patient %q: %w", id, ErrDuplicateKey)
}
