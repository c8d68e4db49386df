package ingest

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/hl7ingest/internal/domain/patient"
)

// Outcome is the per-file result of a run.
type Outcome string

const (
	OutcomeInserted     Outcome = "inserted"
	OutcomeDuplicate    Outcome = "duplicate_key"
	OutcomeInsertFailed Outcome = "insert_failed"
	OutcomeParseFailed  Outcome = "parse_failed"
	OutcomeSkippedNoID  Outcome = "skipped_no_patient_id"
	OutcomeReadFailed   Outcome = "read_failed"
)

// InputState describes what the run found in the input folder.
type InputState string

const (
	InputOK      InputState = "ok"
	InputMissing InputState = "missing"
	InputEmpty   InputState = "empty"
)

// FileResult records what happened to one file. The message header fields
// are set once the file parsed.
type FileResult struct {
	File        string    `json:"file"`
	Outcome     Outcome   `json:"outcome"`
	PatientID   string    `json:"patient_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	ControlID   string    `json:"control_id,omitempty"`
	Sender      string    `json:"sender,omitempty"`
	Version     string    `json:"hl7_version,omitempty"`
	MessageTime time.Time `json:"message_time,omitempty"`
}

// Report is the end-of-run record.
type Report struct {
	RunID      uuid.UUID          `json:"run_id"`
	Dir        string             `json:"dir"`
	Input      InputState         `json:"input"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Truncated  bool               `json:"truncated"`
	Files      []FileResult       `json:"files"`
	Rows       []*patient.Patient `json:"rows"`
	DumpErr    error              `json:"-"`
}

// Summary counts files per outcome.
type Summary struct {
	Processed    int
	Inserted     int
	Duplicates   int
	InsertFailed int
	ParseFailed  int
	SkippedNoID  int
	ReadFailed   int
}

func (r *Report) Summary() Summary {
	s := Summary{Processed: len(r.Files)}
	for _, f := range r.Files {
		switch f.Outcome {
		case OutcomeInserted:
			s.Inserted++
		case OutcomeDuplicate:
			s.Duplicates++
		case OutcomeInsertFailed:
			s.InsertFailed++
		case OutcomeParseFailed:
			s.ParseFailed++
		case OutcomeSkippedNoID:
			s.SkippedNoID++
		case OutcomeReadFailed:
			s.ReadFailed++
		}
	}
	return s
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// WriteTable prints the dumped rows as an aligned table.
func (r *Report) WriteTable(w io.Writer) error {
	if r.DumpErr != nil {
		_, err := fmt.Fprintf(w, "could not read back table: %v\n", r.DumpErr)
		return err
	}
	return WriteRows(w, r.Rows)
}

// WriteRows prints rows as an aligned table, or "no data" when rows is empty.
func WriteRows(w io.Writer, rows []*patient.Patient) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "no data")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATIENT_ID\tLAST_NAME\tFIRST_NAME\tDATE_OF_BIRTH\tGENDER\tSTREET\tCITY\tSTATE\tZIP\tMESSAGE_TYPE\tRECEIVED_DATE")
	for _, p := range rows {
		dob := "-"
		if p.DateOfBirth != nil {
			dob = p.DateOfBirth.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.PatientID, orDash(p.LastName), orDash(p.FirstName), dob, opt(p.Gender),
			opt(p.AddressStreet), opt(p.AddressCity), opt(p.AddressState), opt(p.AddressZip),
			opt(p.MessageType), p.ReceivedDate.Format(time.RFC3339))
	}
	return tw.Flush()
}

func opt(s *string) string {
	if s == nil {
		return "-"
	}
	return orDash(*s)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
