package report

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vigia-app/vigia/internal/config"
	"github.com/vigia-app/vigia/internal/models"
	"github.com/vigia-app/vigia/internal/wallet"
)

// SubKind classifies submission failures by the pipeline stage that failed.
type SubKind int

const (
	// SubValidation means the input failed local validation. No network calls
	// were made.
	SubValidation SubKind = iota + 1
	// SubNetwork means session or network reconciliation failed.
	SubNetwork
	// SubUpload means the attached image could not be published. The report
	// is never committed with a dangling reference.
	SubUpload
	// SubTransaction means the ledger write failed, carrying the revert
	// reason when the ledger surfaced one.
	SubTransaction
)

// SubmissionError is a discriminated submission failure.
type SubmissionError struct {
	Kind SubKind
	Err  error
}

func (e *SubmissionError) Error() string {
	switch e.Kind {
	case SubValidation:
		return fmt.Sprintf("submission validation failed: %v", e.Err)
	case SubNetwork:
		return fmt.Sprintf("submission network step failed: %v", e.Err)
	case SubUpload:
		return fmt.Sprintf("submission upload failed: %v", e.Err)
	default:
		return fmt.Sprintf("submission transaction failed: %v", e.Err)
	}
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Uploader publishes image bytes and returns their content identifier.
type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// Submitter performs the ledger writes.
type Submitter interface {
	SubmitReport(ctx context.Context, session *wallet.Session, input models.ReportInput) (string, error)
	ConfirmReport(ctx context.Context, session *wallet.Session, id uint64) (string, error)
}

// Recorder persists the local submission audit trail.
type Recorder interface {
	InsertSubmission(ctx context.Context, sub models.Submission) error
	UpdateSubmissionStatus(ctx context.Context, id, status, txHash string) error
}

// Input is a user-supplied report draft with an optional attached image.
type Input struct {
	Latitude    string
	Longitude   string
	Description string
	Category    string
	Image       []byte
	ImageType   string
}

// Result is a successful submission outcome.
type Result struct {
	TxHash       string `json:"tx_hash"`
	CID          string `json:"cid,omitempty"`
	SubmissionID string `json:"submission_id"`
}

// Pipeline drives one report submission through its strictly ordered stages:
// validate, reconcile network, publish image, commit to the ledger. A second
// write (submit or confirm) while one is in flight is rejected, never
// interleaved, since both would drive the same provider prompt surface.
type Pipeline struct {
	sessions  *wallet.Manager
	uploader  Uploader // nil when no content store is configured
	submitter Submitter
	recorder  Recorder // nil when auditing is disabled
	target    config.NetworkDescriptor
	reconcile func(ctx context.Context, p wallet.Provider, target config.NetworkDescriptor) error

	mu       sync.Mutex
	inFlight bool
}

// NewPipeline assembles the submission pipeline.
func NewPipeline(sessions *wallet.Manager, uploader Uploader, submitter Submitter, recorder Recorder, target config.NetworkDescriptor) *Pipeline {
	return &Pipeline{
		sessions:  sessions,
		uploader:  uploader,
		submitter: submitter,
		recorder:  recorder,
		target:    target,
		reconcile: wallet.EnsureNetwork,
	}
}

// Submit runs the full submission pipeline and blocks until the ledger
// transaction is finalized.
func (p *Pipeline) Submit(ctx context.Context, in Input) (*Result, error) {
	if !p.acquire() {
		return nil, config.ErrSubmitInFlight
	}
	defer p.release()

	if err := validateInput(in); err != nil {
		return nil, &SubmissionError{Kind: SubValidation, Err: err}
	}

	session := p.sessions.Active()
	if session == nil {
		return nil, &SubmissionError{Kind: SubNetwork, Err: config.ErrNoActiveSession}
	}

	if err := p.reconcile(ctx, session.Provider, p.target); err != nil {
		return nil, &SubmissionError{Kind: SubNetwork, Err: err}
	}

	cid := ""
	if len(in.Image) > 0 {
		if p.uploader == nil {
			return nil, &SubmissionError{Kind: SubUpload, Err: config.ErrStoreUnavailable}
		}
		var err error
		cid, err = p.uploader.Upload(ctx, in.Image, in.ImageType)
		if err != nil {
			return nil, &SubmissionError{Kind: SubUpload, Err: err}
		}
	}

	sub := models.Submission{
		ID:          uuid.NewString(),
		Address:     session.Address,
		CID:         cid,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Description: in.Description,
		Category:    in.Category,
		Status:      models.SubmissionPending,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	p.record(ctx, sub)

	txHash, err := p.submitter.SubmitReport(ctx, session, models.ReportInput{
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		ImageHash:   cid,
		Description: in.Description,
		Category:    in.Category,
	})
	if err != nil {
		p.updateRecord(ctx, sub.ID, models.SubmissionFailed, txHash)
		return nil, &SubmissionError{Kind: SubTransaction, Err: err}
	}

	p.updateRecord(ctx, sub.ID, models.SubmissionConfirmed, txHash)

	slog.Info("report submitted",
		"submissionId", sub.ID,
		"txHash", txHash,
		"cid", cid,
		"category", in.Category,
	)

	return &Result{TxHash: txHash, CID: cid, SubmissionID: sub.ID}, nil
}

// Confirm adds the session account's confirmation to an existing report,
// reconciling the network first like any other write. It shares the in-flight
// guard with Submit: both drive the same provider prompt surface.
func (p *Pipeline) Confirm(ctx context.Context, id uint64) (string, error) {
	if !p.acquire() {
		return "", config.ErrSubmitInFlight
	}
	defer p.release()

	session := p.sessions.Active()
	if session == nil {
		return "", &SubmissionError{Kind: SubNetwork, Err: config.ErrNoActiveSession}
	}

	if err := p.reconcile(ctx, session.Provider, p.target); err != nil {
		return "", &SubmissionError{Kind: SubNetwork, Err: err}
	}

	txHash, err := p.submitter.ConfirmReport(ctx, session, id)
	if err != nil {
		return "", &SubmissionError{Kind: SubTransaction, Err: err}
	}

	slog.Info("report confirmed", "reportId", id, "txHash", txHash)
	return txHash, nil
}

func (p *Pipeline) acquire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight {
		return false
	}
	p.inFlight = true
	return true
}

func (p *Pipeline) release() {
	p.mu.Lock()
	p.inFlight = false
	p.mu.Unlock()
}

// record writes the audit row. Audit failures are logged, never fatal to the
// submission itself.
func (p *Pipeline) record(ctx context.Context, sub models.Submission) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.InsertSubmission(ctx, sub); err != nil {
		slog.Error("record submission", "submissionId", sub.ID, "error", err)
	}
}

func (p *Pipeline) updateRecord(ctx context.Context, id, status, txHash string) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.UpdateSubmissionStatus(ctx, id, status, txHash); err != nil {
		slog.Error("update submission status", "submissionId", id, "status", status, "error", err)
	}
}

// validateInput enforces the local preconditions: non-empty description,
// category in the fixed set, parseable coordinates.
func validateInput(in Input) error {
	if in.Description == "" {
		return fmt.Errorf("description is required")
	}
	if !slices.Contains(config.ReportCategories, in.Category) {
		return fmt.Errorf("unknown category %q", in.Category)
	}
	if err := validateCoordinate(in.Latitude, -90, 90); err != nil {
		return fmt.Errorf("latitude: %w", err)
	}
	if err := validateCoordinate(in.Longitude, -180, 180); err != nil {
		return fmt.Errorf("longitude: %w", err)
	}
	if len(in.Image) > 0 && in.ImageType == "" {
		return fmt.Errorf("image attached without a content type")
	}
	return nil
}

func validateCoordinate(s string, min, max float64) error {
	if s == "" {
		return fmt.Errorf("missing")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a decimal number: %q", s)
	}
	if v < min || v > max {
		return fmt.Errorf("%g out of range [%g, %g]", v, min, max)
	}
	return nil
}
