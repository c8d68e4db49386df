package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE unique_violation.
const pgUniqueViolation = "23505"

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// -- PostgreSQL Repository --

type patientRepoPG struct {
	pool  *pgxpool.Pool
	db    querier
	table string
}

// NewPGRepo returns a Repository backed by pool. The repository owns the
// pool and closes it in Close.
func NewPGRepo(pool *pgxpool.Pool, table string) (Repository, error) {
	if err := ValidateTable(table); err != nil {
		return nil, err
	}
	return &patientRepoPG{pool: pool, db: pool, table: table}, nil
}

func (r *patientRepoPG) Insert(ctx context.Context, p *Patient) (int64, error) {
	tag, err := r.db.Exec(ctx, `INSERT INTO `+r.table+` (`+patientCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.PatientID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender,
		p.AddressStreet, p.AddressCity, p.AddressState, p.AddressZip,
		p.MessageType, p.ReceivedDate,
	)
	if err != nil {
		if isPGDuplicate(err) {
			return 0, duplicateError(p.PatientID)
		}
		return 0, fmt.Errorf("insert patient %q: %w", p.PatientID, err)
	}
	return tag.RowsAffected(), nil
}

func (r *patientRepoPG) DumpAll(ctx context.Context) ([]*Patient, error) {
	rows, err := r.db.Query(ctx, `SELECT `+patientCols+` FROM `+r.table+` ORDER BY PATIENT_ID`)
	if err != nil {
		return nil, fmt.Errorf("query patients: %w", err)
	}
	defer rows.Close()

	patients := []*Patient{}
	for rows.Next() {
		var p Patient
		if err := rows.Scan(
			&p.PatientID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender,
			&p.AddressStreet, &p.AddressCity, &p.AddressState, &p.AddressZip,
			&p.MessageType, &p.ReceivedDate,
		); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		patients = append(patients, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepoPG) Truncate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `TRUNCATE TABLE `+r.table); err != nil {
		return fmt.Errorf("truncate %s: %w", r.table, err)
	}
	return nil
}

func (r *patientRepoPG) Close() error {
	r.pool.Close()
	return nil
}

func isPGDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
