package patient

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// dialect captures what differs between the database/sql backends.
type dialect struct {
	truncate    string // statement template, %s is the table
	isDuplicate func(error) bool
}

// -- database/sql Repository (SQLite, MySQL) --

type patientRepoSQL struct {
	db      *sql.DB
	table   string
	dialect dialect
}

func newSQLRepo(db *sql.DB, table string, d dialect) (Repository, error) {
	if err := ValidateTable(table); err != nil {
		return nil, err
	}
	return &patientRepoSQL{db: db, table: table, dialect: d}, nil
}

func (r *patientRepoSQL) Insert(ctx context.Context, p *Patient) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO `+r.table+` (`+patientCols+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		p.PatientID, p.FirstName, p.LastName, nullTime(p.DateOfBirth), nullString(p.Gender),
		nullString(p.AddressStreet), nullString(p.AddressCity), nullString(p.AddressState), nullString(p.AddressZip),
		nullString(p.MessageType), p.ReceivedDate.UTC(),
	)
	if err != nil {
		if r.dialect.isDuplicate(err) {
			return 0, duplicateError(p.PatientID)
		}
		return 0, fmt.Errorf("insert patient %q: %w", p.PatientID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (r *patientRepoSQL) DumpAll(ctx context.Context) ([]*Patient, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+patientCols+` FROM `+r.table+` ORDER BY PATIENT_ID`)
	if err != nil {
		return nil, fmt.Errorf("query patients: %w", err)
	}
	defer rows.Close()

	patients := []*Patient{}
	for rows.Next() {
		var (
			p                                         Patient
			dob, received                             flexTime
			gender, street, city, state, zip, msgType sql.NullString
		)
		if err := rows.Scan(
			&p.PatientID, &p.FirstName, &p.LastName, &dob, &gender,
			&street, &city, &state, &zip,
			&msgType, &received,
		); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		p.DateOfBirth = dob.ptr()
		p.Gender = fromNull(gender)
		p.AddressStreet = fromNull(street)
		p.AddressCity = fromNull(city)
		p.AddressState = fromNull(state)
		p.AddressZip = fromNull(zip)
		p.MessageType = fromNull(msgType)
		p.ReceivedDate = received.Time
		patients = append(patients, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepoSQL) Truncate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf(r.dialect.truncate, r.table)); err != nil {
		return fmt.Errorf("truncate %s: %w", r.table, err)
	}
	return nil
}

func (r *patientRepoSQL) Close() error {
	return r.db.Close()
}

// Drivers differ in how they bind pointers, so optional values are passed
// as either the plain value or an untyped nil.
func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// flexTime scans DATE and TIMESTAMP columns from drivers that return either
// time.Time or the textual form SQLite stores.
type flexTime struct {
	Time  time.Time
	Valid bool
}

var flexTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func (ft *flexTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		ft.Time, ft.Valid = time.Time{}, false
		return nil
	case time.Time:
		ft.Time, ft.Valid = v, true
		return nil
	case []byte:
		return ft.parse(string(v))
	case string:
		return ft.parse(v)
	default:
		return fmt.Errorf("cannot scan %T into time", src)
	}
}

func (ft *flexTime) parse(s string) error {
	for _, layout := range flexTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ft.Time, ft.Valid = t, true
			return nil
		}
	}
	return fmt.Errorf("unrecognized time value %q", s)
}

func (ft flexTime) ptr() *time.Time {
	if !ft.Valid {
		return nil
	}
	t := ft.Time
	return &t
}
