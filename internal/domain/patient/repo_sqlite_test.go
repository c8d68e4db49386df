package patient

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

const testTableDDL = `CREATE TABLE PATIENTS (
	PATIENT_ID TEXT PRIMARY KEY,
	FIRST_NAME TEXT,
	LAST_NAME TEXT,
	DATE_OF_BIRTH DATE,
	GENDER TEXT,
	ADDRESS_STREET TEXT,
	ADDRESS_CITY TEXT,
	ADDRESS_STATE TEXT,
	ADDRESS_ZIP TEXT,
	HL7_MESSAGE_TYPE TEXT,
	RECEIVED_DATE TIMESTAMP NOT NULL
)`

func newTestSQLiteRepo(t *testing.T) Repository {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "patients.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(testTableDDL); err != nil {
		db.Close()
		t.Fatalf("create table: %v", err)
	}
	repo, err := NewSQLiteRepo(db, "PATIENTS")
	if err != nil {
		db.Close()
		t.Fatalf("new repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sp(s string) *string { return &s }

func TestSQLiteRepo_InsertAndDump(t *testing.T) {
	repo := newTestSQLiteRepo(t)
	ctx := context.Background()

	dob := time.Date(1985, 3, 15, 0, 0, 0, 0, time.UTC)
	received := time.Date(2024, 3, 12, 9, 30, 15, 0, time.UTC)
	in := &Patient{
		PatientID:     "P001",
		LastName:      "Meier",
		FirstName:     "Anna",
		DateOfBirth:   &dob,
		Gender:        sp("F"),
		AddressStreet: sp("Hauptstr. 5"),
		AddressCity:   sp("Berlin"),
		AddressState:  sp("BE"),
		AddressZip:    sp("10115"),
		MessageType:   sp("ADT^A04"),
		ReceivedDate:  received,
	}

	n, err := repo.Insert(ctx, in)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row affected, got %d", n)
	}

	rows, err := repo.DumpAll(ctx)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	got := rows[0]
	if got.PatientID != "P001" || got.LastName != "Meier" || got.FirstName != "Anna" {
		t.Errorf("unexpected identity %+v", got)
	}
	if got.DateOfBirth == nil || !got.DateOfBirth.Equal(dob) {
		t.Errorf("expected DOB %v, got %v", dob, got.DateOfBirth)
	}
	wantStr(t, "Gender", got.Gender, "F")
	wantStr(t, "AddressStreet", got.AddressStreet, "Hauptstr. 5")
	wantStr(t, "AddressCity", got.AddressCity, "Berlin")
	wantStr(t, "AddressState", got.AddressState, "BE")
	wantStr(t, "AddressZip", got.AddressZip, "10115")
	wantStr(t, "MessageType", got.MessageType, "ADT^A04")
	if !got.ReceivedDate.Equal(received) {
		t.Errorf("expected ReceivedDate %v, got %v", received, got.ReceivedDate)
	}
}

func TestSQLiteRepo_NullColumns(t *testing.T) {
	repo := newTestSQLiteRepo(t)
	ctx := context.Background()

	if _, err := repo.Insert(ctx, &Patient{PatientID: "P002", ReceivedDate: time.Now()}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	rows, err := repo.DumpAll(ctx)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	got := rows[0]
	if got.DateOfBirth != nil || got.Gender != nil || got.AddressStreet != nil || got.AddressCity != nil ||
		got.AddressState != nil || got.AddressZip != nil || got.MessageType != nil {
		t.Errorf("expected NULL columns to scan as nil, got %+v", got)
	}
}

func TestSQLiteRepo_Duplicate(t *testing.T) {
	repo := newTestSQLiteRepo(t)
	ctx := context.Background()

	p := &Patient{PatientID: "P001", LastName: "Meier", ReceivedDate: time.Now()}
	if _, err := repo.Insert(ctx, p); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := repo.Insert(ctx, &Patient{PatientID: "P001", LastName: "Other", ReceivedDate: time.Now()})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	rows, err := repo.DumpAll(ctx)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if len(rows) != 1 || rows[0].LastName != "Meier" {
		t.Errorf("expected the original row to survive, got %+v", rows)
	}
}

func TestSQLiteRepo_DumpOrderAndEmpty(t *testing.T) {
	repo := newTestSQLiteRepo(t)
	ctx := context.Background()

	rows, err := repo.DumpAll(ctx)
	if err != nil {
		t.Fatalf("dump empty: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", rows)
	}

	for _, id := range []string{"P3", "P1", "P2"} {
		if _, err := repo.Insert(ctx, &Patient{PatientID: id, ReceivedDate: time.Now()}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	rows, err = repo.DumpAll(ctx)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	var ids []string
	for _, r := range rows {
		ids = append(ids, r.PatientID)
	}
	if len(ids) != 3 || ids[0] != "P1" || ids[1] != "P2" || ids[2] != "P3" {
		t.Errorf("expected [P1 P2 P3], got %v", ids)
	}
}

func TestSQLiteRepo_Truncate(t *testing.T) {
	repo := newTestSQLiteRepo(t)
	ctx := context.Background()

	for _, id := range []string{"A", "B"} {
		if _, err := repo.Insert(ctx, &Patient{PatientID: id, ReceivedDate: time.Now()}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	if err := repo.Truncate(ctx); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	rows, err := repo.DumpAll(ctx)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected empty table, got %d rows", len(rows))
	}

	// The key is free again.
	if _, err := repo.Insert(ctx, &Patient{PatientID: "A", ReceivedDate: time.Now()}); err != nil {
		t.Errorf("insert after truncate: %v", err)
	}
}

func TestSQLiteRepo_MissingTable(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo, err := NewSQLiteRepo(db, "PATIENTS")
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	defer repo.Close()

	_, err = repo.Insert(context.Background(), &Patient{PatientID: "X", ReceivedDate: time.Now()})
	if err == nil {
		t.Fatal("expected error for missing table")
	}
	if errors.Is(err, ErrDuplicateKey) {
		t.Errorf("missing table must not be reported as duplicate: %v", err)
	}
	if _, err := repo.DumpAll(context.Background()); err == nil {
		t.Error("expected dump error for missing table")
	}
}

func TestSQLiteRepo_CanceledContext(t *testing.T) {
	repo := newTestSQLiteRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.Insert(ctx, &Patient{PatientID: "X", ReceivedDate: time.Now()}); err == nil {
		t.Error("expected error for canceled context")
	}
}
