// Package vars implements the variable store orchestrator: the
// externally visible create/read/update/delete operations composed from
// the quota gate, the blob store and the metadata ledger.
package vars

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/varhold/varhold/internal/apperr"
	"github.com/varhold/varhold/internal/models"
	"github.com/varhold/varhold/internal/quota"
	"github.com/varhold/varhold/internal/storage"
)

// Ledger is the slice of the metadata ledger the orchestrator needs.
// Every lookup is scoped by the owning user id, which makes cross-tenant
// access structurally impossible rather than permission-checked.
type Ledger interface {
	CreateVariable(ctx context.Context, v *models.Variable) (*models.Variable, error)
	GetVariableByID(ctx context.Context, id, userID uuid.UUID) (*models.Variable, error)
	GetVariableByKey(ctx context.Context, key string, userID uuid.UUID) (*models.Variable, error)
	ListVariables(ctx context.Context, userID uuid.UUID, page, pageSize int, search string) ([]*models.Variable, int64, error)
	CountVariablesByUser(ctx context.Context, userID uuid.UUID) (int, error)
	UpdateVariable(ctx context.Context, id, userID uuid.UUID, description *string, sizeBytes *int64, tags []string) (*models.Variable, error)
	DeleteVariable(ctx context.Context, id, userID uuid.UUID) (*models.Variable, error)
}

// keyPattern is the allowed variable key syntax: alphanumeric plus
// underscore, hyphen and dot, 1 to 255 characters.
var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,255}$`)

// ValidateKey checks variable key syntax.
func ValidateKey(key string) error {
	if key == "" {
		return apperr.New(apperr.KindValidation, "variable key cannot be empty")
	}
	if len(key) > 255 {
		return apperr.New(apperr.KindValidation, "variable key cannot exceed 255 characters")
	}
	if !keyPattern.MatchString(key) {
		return apperr.New(apperr.KindValidation,
			"variable key can only contain alphanumeric characters, underscore, hyphen, and dot")
	}
	return nil
}

// Recorder counts variable store operations and quota rejections.
type Recorder interface {
	ObserveVariableOp(operation, outcome string)
	ObserveQuotaRejection(quotaType string)
}

// Service orchestrates variable operations over the blob store and ledger.
type Service struct {
	ledger Ledger
	blobs  storage.Backend
	rec    Recorder
	logger zerolog.Logger
}

// NewService creates a variable store service.
func NewService(ledger Ledger, blobs storage.Backend, logger zerolog.Logger) *Service {
	return &Service{
		ledger: ledger,
		blobs:  blobs,
		logger: logger.With().Str("component", "vars").Logger(),
	}
}

// WithMetrics attaches an operation recorder. The service works without
// one.
func (s *Service) WithMetrics(rec Recorder) *Service {
	s.rec = rec
	return s
}

func (s *Service) observe(operation string, err error) {
	if s.rec == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = apperr.KindOf(err).String()
	}
	s.rec.ObserveVariableOp(operation, outcome)
}

func (s *Service) rejectQuota(quotaType string) {
	if s.rec != nil {
		s.rec.ObserveQuotaRejection(quotaType)
	}
}

// CreateInput is a create request with an already-decoded document.
type CreateInput struct {
	Key         string
	Description string
	Data        json.RawMessage
	Tags        []string
	IsEncrypted bool
}

// UpdateInput is a partial update. Nil fields are left unchanged; a nil
// Data keeps the stored document.
type UpdateInput struct {
	Description *string
	Data        json.RawMessage
	Tags        []string
}

// VariableWithData pairs ledger metadata with the decoded document.
type VariableWithData struct {
	*models.Variable
	Data json.RawMessage `json:"data"`
}

// documentSize returns the compacted size of a JSON document in bytes.
// The document is never decoded, so numbers keep their exact textual
// form.
func documentSize(doc json.RawMessage) (int64, error) {
	if !json.Valid(doc) {
		return 0, apperr.New(apperr.KindValidation, "document is not valid JSON")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, doc); err != nil {
		return 0, apperr.Wrap(apperr.KindValidation, "document is not valid JSON", err)
	}
	return int64(buf.Len()), nil
}

// Create validates, quota-checks and stores a new variable: blob write
// first, ledger insert second, so a failure between the two leaves an
// orphan blob (cleaned by the reconciliation sweep) and never a ledger
// row without backing data.
//
// The count check is read-then-act: two concurrent creates can both pass
// it and momentarily exceed the limit by one. The ledger's (user, key)
// unique constraint remains the sole authority on key conflicts.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, tier *models.Tier, in CreateInput) (out *VariableWithData, err error) {
	defer func() { s.observe("create", err) }()

	if err := ValidateKey(in.Key); err != nil {
		return nil, err
	}

	count, err := s.ledger.CountVariablesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !quota.CanCreateVariable(count, tier) {
		s.rejectQuota("variables")
		return nil, apperr.Newf(apperr.KindQuotaExceeded, "maximum %d variables allowed", tier.MaxVariables)
	}

	// Advisory pre-check; the insert below is the real conflict authority.
	if _, err := s.ledger.GetVariableByKey(ctx, in.Key, userID); err == nil {
		return nil, apperr.New(apperr.KindConflict, "variable key already exists")
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	size, err := documentSize(in.Data)
	if err != nil {
		return nil, err
	}
	if !quota.WithinSizeLimit(size, tier) {
		s.rejectQuota("size")
		return nil, apperr.Newf(apperr.KindValidation,
			"document size exceeds maximum allowed size (%d MB)", tier.MaxVariableSizeMB)
	}

	storagePath, err := s.blobs.Store(ctx, userID, in.Key, in.Data)
	if err != nil {
		return nil, err
	}

	created, err := s.ledger.CreateVariable(ctx, &models.Variable{
		UserID:      userID,
		Key:         in.Key,
		Description: in.Description,
		SizeBytes:   size,
		StoragePath: storagePath,
		IsEncrypted: in.IsEncrypted,
		Tags:        in.Tags,
	})
	if err != nil {
		// The blob just written is now orphaned. Accepted failure mode:
		// no rollback here, the reconciliation sweep collects it.
		s.logger.Warn().
			Str("user_id", userID.String()).
			Str("key", in.Key).
			Msg("ledger insert failed after blob write, orphan blob left behind")
		return nil, err
	}

	return &VariableWithData{Variable: created, Data: in.Data}, nil
}

// Get returns a variable and its document, scoped to the owner. A ledger
// row whose blob is missing surfaces as NotFound, not an I/O failure.
func (s *Service) Get(ctx context.Context, userID uuid.UUID, id uuid.UUID) (out *VariableWithData, err error) {
	defer func() { s.observe("get", err) }()

	variable, err := s.ledger.GetVariableByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	data, err := s.blobs.Retrieve(ctx, variable.StoragePath)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.logger.Error().
				Str("variable_id", variable.ID.String()).
				Msg("ledger row references missing blob")
		}
		return nil, err
	}

	return &VariableWithData{Variable: variable, Data: data}, nil
}

// List returns a page of the user's variable metadata. Documents are not
// fetched.
func (s *Service) List(ctx context.Context, userID uuid.UUID, page, pageSize int, search string) ([]*models.Variable, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return s.ledger.ListVariables(ctx, userID, page, pageSize, search)
}

// Update applies a partial update. When the document is replaced the
// size is re-checked against the tier and the blob overwritten in place;
// the version increments on every update either way.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, tier *models.Tier, id uuid.UUID, in UpdateInput) (out *VariableWithData, err error) {
	defer func() { s.observe("update", err) }()

	variable, err := s.ledger.GetVariableByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	var newSize *int64
	if in.Data != nil {
		size, err := documentSize(in.Data)
		if err != nil {
			return nil, err
		}
		if !quota.WithinSizeLimit(size, tier) {
			s.rejectQuota("size")
			return nil, apperr.Newf(apperr.KindValidation,
				"document size exceeds maximum allowed size (%d MB)", tier.MaxVariableSizeMB)
		}
		if err := s.blobs.Update(ctx, variable.StoragePath, in.Data); err != nil {
			return nil, err
		}
		newSize = &size
	}

	updated, err := s.ledger.UpdateVariable(ctx, id, userID, in.Description, newSize, in.Tags)
	if err != nil {
		return nil, err
	}

	data, err := s.blobs.Retrieve(ctx, updated.StoragePath)
	if err != nil {
		return nil, err
	}

	return &VariableWithData{Variable: updated, Data: data}, nil
}

// Delete removes the ledger row first, then best-effort deletes the
// blob using the returned storage path. A crash between the two leaves
// an orphan blob, never a dangling ledger reference.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID, id uuid.UUID) (err error) {
	defer func() { s.observe("delete", err) }()

	variable, err := s.ledger.DeleteVariable(ctx, id, userID)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, variable.StoragePath); err != nil {
		s.logger.Warn().
			Err(err).
			Str("variable_id", variable.ID.String()).
			Msg("blob cleanup failed after ledger delete, orphan blob left behind")
	}
	return nil
}
