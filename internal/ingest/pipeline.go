package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/hl7ingest/internal/domain/patient"
	"github.com/ehr/hl7ingest/internal/platform/hl7v2"
)

// Parser turns raw message text into a segment tree.
type Parser interface {
	Parse(raw []byte) (*hl7v2.Message, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(raw []byte) (*hl7v2.Message, error)

func (f ParserFunc) Parse(raw []byte) (*hl7v2.Message, error) { return f(raw) }

// DefaultParser is the hl7v2 parser.
var DefaultParser Parser = ParserFunc(hl7v2.Parse)

// Connector opens the store. It is called at most once per run, and only
// after input files were found.
type Connector func(ctx context.Context) (patient.Repository, error)

// Options control a run.
type Options struct {
	// ClearBeforeLoad truncates the table before the first insert.
	ClearBeforeLoad bool
	// QueryTimeout bounds each store round trip. Zero means no limit.
	QueryTimeout time.Duration
}

// Pipeline loads a folder of HL7 files into the patient store. Files are
// processed one at a time in name order.
type Pipeline struct {
	source  Source
	parser  Parser
	connect Connector
	opts    Options
	logger  zerolog.Logger
	now     func() time.Time
}

func New(source Source, parser Parser, connect Connector, opts Options, logger zerolog.Logger) *Pipeline {
	if parser == nil {
		parser = DefaultParser
	}
	return &Pipeline{
		source:  source,
		parser:  parser,
		connect: connect,
		opts:    opts,
		logger:  logger.With().Str("component", "ingest").Logger(),
		now:     time.Now,
	}
}

// Run processes every *.hl7 file in dir. Per-file failures are recorded in
// the report and never stop the batch. The returned error is non-nil only
// when the run could not start or was canceled; the report is always
// non-nil.
func (p *Pipeline) Run(ctx context.Context, dir string) (*Report, error) {
	report := &Report{RunID: uuid.New(), Dir: dir, StartedAt: p.now()}
	log := p.logger.With().Str("run_id", report.RunID.String()).Logger()
	defer func() { report.FinishedAt = p.now() }()

	files, err := p.source.List(dir)
	if err != nil {
		if errors.Is(err, ErrInputDirMissing) {
			report.Input = InputMissing
		}
		return report, err
	}
	if len(files) == 0 {
		report.Input = InputEmpty
		return report, fmt.Errorf("%w: %s", ErrNoInputFiles, dir)
	}
	report.Input = InputOK

	store, err := p.connect(ctx)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("close store")
		}
	}()

	if p.opts.ClearBeforeLoad {
		qctx, cancel := p.queryContext(ctx)
		err := store.Truncate(qctx)
		cancel()
		if err != nil {
			return report, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		report.Truncated = true
		log.Info().Msg("table cleared before load")
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			log.Warn().Int("remaining", len(files)-len(report.Files)).Msg("run canceled")
			return report, err
		}
		res := p.processFile(ctx, store, path)
		report.Files = append(report.Files, res)
		logResult(log, res)
	}

	qctx, cancel := p.queryContext(ctx)
	report.Rows, report.DumpErr = store.DumpAll(qctx)
	cancel()
	if report.DumpErr != nil {
		log.Error().Err(report.DumpErr).Msg("read back table")
	}

	s := report.Summary()
	log.Info().
		Str("dir", dir).
		Int("processed", s.Processed).
		Int("inserted", s.Inserted).
		Int("duplicates", s.Duplicates).
		Int("insert_failed", s.InsertFailed).
		Int("parse_failed", s.ParseFailed).
		Int("skipped_no_id", s.SkippedNoID).
		Int("read_failed", s.ReadFailed).
		Int("rows", len(report.Rows)).
		Msg("run complete")

	return report, nil
}

func (p *Pipeline) processFile(ctx context.Context, store patient.Repository, path string) FileResult {
	res := FileResult{File: filepath.Base(path)}

	raw, err := p.source.Read(path)
	if err != nil {
		res.Outcome, res.Reason = OutcomeReadFailed, err.Error()
		return res
	}

	msg, err := p.parser.Parse(raw)
	if err != nil {
		res.Outcome, res.Reason = OutcomeParseFailed, err.Error()
		return res
	}
	if msg != nil {
		res.ControlID, res.Version, res.MessageTime = msg.ControlID, msg.Version, msg.Timestamp
		res.Sender = sender(msg)
	}

	rec := patient.FromHL7(msg, p.now())
	if !rec.HasID() {
		res.Outcome, res.Reason = OutcomeSkippedNoID, "no patient identifier in PID-3"
		return res
	}
	res.PatientID = rec.PatientID

	qctx, cancel := p.queryContext(ctx)
	_, err = store.Insert(qctx, rec)
	cancel()
	switch {
	case err == nil:
		res.Outcome = OutcomeInserted
	case errors.Is(err, patient.ErrDuplicateKey):
		res.Outcome, res.Reason = OutcomeDuplicate, err.Error()
	default:
		res.Outcome, res.Reason = OutcomeInsertFailed, err.Error()
	}
	return res
}

// Dump opens the store and returns every row.
func (p *Pipeline) Dump(ctx context.Context) ([]*patient.Patient, error) {
	store, err := p.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	defer store.Close()

	qctx, cancel := p.queryContext(ctx)
	defer cancel()
	return store.DumpAll(qctx)
}

func (p *Pipeline) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.opts.QueryTimeout)
}

func logResult(log zerolog.Logger, res FileResult) {
	ev := log.Warn()
	if res.Outcome == OutcomeInserted {
		ev = log.Info()
	}
	ev = ev.Str("file", res.File).Str("outcome", string(res.Outcome))
	if res.PatientID != "" {
		ev = ev.Str("patient_id", res.PatientID)
	}
	if res.Reason != "" {
		ev = ev.Str("reason", res.Reason)
	}
	if res.ControlID != "" {
		ev = ev.Str("control_id", res.ControlID)
	}
	if res.Sender != "" {
		ev = ev.Str("sender", res.Sender)
	}
	if res.Version != "" {
		ev = ev.Str("hl7_version", res.Version)
	}
	if !res.MessageTime.IsZero() {
		ev = ev.Time("message_time", res.MessageTime)
	}
	ev.Msg("file processed")
}

// sender joins MSH-3 and MSH-4 as "app^facility", dropping empty parts.
func sender(msg *hl7v2.Message) string {
	switch {
	case msg.SendingApp == "":
		return msg.SendingFac
	case msg.SendingFac == "":
		return msg.SendingApp
	}
	return msg.SendingApp + "^" + msg.SendingFac
}
