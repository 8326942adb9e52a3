package billing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/facturante/backend/internal/domain/billing"
	"github.com/facturante/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Session is one editing session owning a single document. The document is
// never shared across sessions; the session's own lock serializes the
// mutations and reads of concurrent requests against the same session.
type Session struct {
	mu        sync.Mutex
	ID        uuid.UUID         `json:"id"`
	Document  *billing.Document `json:"document"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Lock takes the session's lock. The service holds it around every document
// mutation; callers reading the document for rendering hold it too.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session's lock
func (s *Session) Unlock() { s.mu.Unlock() }

// EditorService orchestrates document editing sessions. It applies the
// reactive-recompute model: totals and, for credit notes, the allocation
// clamp re-run synchronously after every mutation, so callers always observe
// a consistent snapshot.
//
// The service mutex only guards the session map; concurrent access to one
// session's document is serialized by the session's own lock.
type EditorService struct {
	mu          sync.RWMutex
	sessions    map[uuid.UUID]*Session
	terms       PaymentTermDirectory
	outstanding OutstandingDocumentLookup
	logger      *zap.Logger
}

// NewEditorService creates an editor service
func NewEditorService(terms PaymentTermDirectory, outstanding OutstandingDocumentLookup, logger *zap.Logger) *EditorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EditorService{
		sessions:    make(map[uuid.UUID]*Session),
		terms:       terms,
		outstanding: outstanding,
		logger:      logger,
	}
}

// OpenSession loads a document into a new editing session. Pricing
// normalization runs here, once; interactive edits afterwards use the plain
// line calculators.
func (s *EditorService) OpenSession(ctx context.Context, doc *billing.Document) (*Session, error) {
	if doc == nil {
		return nil, shared.NewDomainError("INVALID_DOCUMENT", "Document cannot be nil")
	}
	if !doc.Kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Unknown document kind")
	}

	doc.Normalize()

	if doc.PaymentTerm != "" {
		due, err := s.DueDate(ctx, doc.PaymentTerm, doc.PostingDate)
		if err != nil {
			return nil, err
		}
		doc.DueDate = due
	}

	now := time.Now()
	session := &Session{
		ID:        uuid.New(),
		Document:  doc,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.Info("editing session opened",
		zap.String("session_id", session.ID.String()),
		zap.String("kind", doc.Kind.String()),
		zap.Int("lines", len(doc.Lines)),
	)
	return session, nil
}

// Session returns the session by id
func (s *EditorService) Session(sessionID uuid.UUID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, shared.NewDomainError("SESSION_NOT_FOUND", "Editing session not found")
	}
	return session, nil
}

// CloseSession discards the session and its document
func (s *EditorService) CloseSession(sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return shared.NewDomainError("SESSION_NOT_FOUND", "Editing session not found")
	}
	delete(s.sessions, sessionID)
	s.logger.Info("editing session closed", zap.String("session_id", sessionID.String()))
	return nil
}

// AddLine appends a line to the session's document
func (s *EditorService) AddLine(ctx context.Context, sessionID uuid.UUID, line billing.LineItem) (billing.LineItem, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return billing.LineItem{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	added := session.Document.AddLine(line)
	session.UpdatedAt = time.Now()
	return added, nil
}

// UpdateLine applies an interactive edit to one line
func (s *EditorService) UpdateLine(ctx context.Context, sessionID, lineID uuid.UUID, edit billing.LineEdit) (billing.LineItem, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return billing.LineItem{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	updated, err := session.Document.UpdateLine(lineID, edit)
	if err != nil {
		return billing.LineItem{}, err
	}
	session.UpdatedAt = time.Now()
	return updated, nil
}

// RemoveLine removes one line from the session's document
func (s *EditorService) RemoveLine(ctx context.Context, sessionID, lineID uuid.UUID) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if err := session.Document.RemoveLine(lineID); err != nil {
		return err
	}
	session.UpdatedAt = time.Now()
	return nil
}

// SetDocumentDiscount sets the document-level discount
func (s *EditorService) SetDocumentDiscount(ctx context.Context, sessionID uuid.UUID, amount decimal.Decimal) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.Document.SetDiscountAmount(amount)
	session.UpdatedAt = time.Now()
	return nil
}

// AddPerception appends a document-level perception charge
func (s *EditorService) AddPerception(ctx context.Context, sessionID uuid.UUID, name string, amount decimal.Decimal) (billing.Perception, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return billing.Perception{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	p := session.Document.AddPerception(name, amount)
	session.UpdatedAt = time.Now()
	return p, nil
}

// RemovePerception removes a perception charge
func (s *EditorService) RemovePerception(ctx context.Context, sessionID, perceptionID uuid.UUID) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if err := session.Document.RemovePerception(perceptionID); err != nil {
		return err
	}
	session.UpdatedAt = time.Now()
	return nil
}

// ToggleAllocation selects or deselects a single outstanding document.
// The candidate is resolved through the outstanding-documents collaborator;
// adding is subject to the single-reconciliation-group rule and the clamp.
func (s *EditorService) ToggleAllocation(ctx context.Context, sessionID uuid.UUID, sourceDocumentID string, selecting bool) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if !selecting {
		session.Document.DeselectOutstanding(sourceDocumentID)
		session.UpdatedAt = time.Now()
		return nil
	}

	candidate, err := s.outstanding.Outstanding(ctx, sourceDocumentID)
	if err != nil {
		return err
	}
	if err := session.Document.SelectOutstanding(candidate); err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == shared.ErrMixedReconciliationGroup.Code {
			s.logger.Warn("allocation rejected: mixed reconciliation groups",
				zap.String("session_id", sessionID.String()),
				zap.String("source_document", sourceDocumentID),
			)
		}
		return err
	}
	session.UpdatedAt = time.Now()
	return nil
}

// ToggleAllocationGroup selects or deselects a whole reconciliation group as
// one atomic set operation
func (s *EditorService) ToggleAllocationGroup(ctx context.Context, sessionID uuid.UUID, groupID string, selecting bool) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if !selecting {
		session.Document.DeselectGroup(groupID)
		session.UpdatedAt = time.Now()
		return nil
	}

	candidates, err := s.outstanding.OutstandingForSupplier(ctx, session.Document.SupplierName)
	if err != nil {
		return err
	}
	if err := session.Document.SelectGroup(groupID, candidates); err != nil {
		return err
	}
	session.UpdatedAt = time.Now()
	return nil
}

// ListOutstanding returns the allocation candidates for the session's
// supplier
func (s *EditorService) ListOutstanding(ctx context.Context, sessionID uuid.UUID) ([]billing.OutstandingDocument, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	return s.outstanding.OutstandingForSupplier(ctx, session.Document.SupplierName)
}

// ApplyPaymentTerm records a payment term on the document and derives its
// due date from the posting date
func (s *EditorService) ApplyPaymentTerm(ctx context.Context, sessionID uuid.UUID, termName string) (time.Time, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return time.Time{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	due, err := s.DueDate(ctx, termName, session.Document.PostingDate)
	if err != nil {
		return time.Time{}, err
	}
	session.Document.SetPaymentTerm(termName, due)
	session.UpdatedAt = time.Now()
	return due, nil
}

// DueDate derives a due date from a payment term and base date using the
// payment-terms directory
func (s *EditorService) DueDate(ctx context.Context, termName string, baseDate time.Time) (time.Time, error) {
	terms, err := s.terms.PaymentTerms(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return billing.DueDate(termName, baseDate, terms), nil
}

// Snapshot returns the submission snapshot of the session's document
func (s *EditorService) Snapshot(sessionID uuid.UUID) (billing.DocumentSnapshot, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return billing.DocumentSnapshot{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	return session.Document.Snapshot(), nil
}
