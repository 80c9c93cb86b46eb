// Package service implements the wizard conversation orchestrator: the
// bounded reasoning loop, tool application, and draft commit.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"quotebuilder_backend/internal/quotes/transport"
	"quotebuilder_backend/internal/wizard/repository"
	"quotebuilder_backend/platform/ai/reasoner"
	"quotebuilder_backend/platform/apperr"
	"quotebuilder_backend/platform/logger"

	"github.com/google/uuid"
)

// SessionStore persists JSON-encoded sessions.
type SessionStore interface {
	Save(ctx context.Context, id uuid.UUID, data []byte) error
	Get(ctx context.Context, id uuid.UUID) ([]byte, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CatalogSearcher resolves searchCatalog tool calls. Implementations must
// never fail the turn: errors and empty catalogs come back as readable text.
type CatalogSearcher interface {
	Search(ctx context.Context, ownerID uuid.UUID, query, category string, limit int) string
}

// QuoteWriter persists a committed draft using the quotes module.
type QuoteWriter interface {
	Create(ctx context.Context, ownerID uuid.UUID, req transport.CreateQuoteRequest) (*transport.QuoteResponse, error)
	Update(ctx context.Context, id, ownerID uuid.UUID, req transport.UpdateQuoteRequest) (*transport.QuoteResponse, error)
}

// Entitlements gates wizard access and supplies per-user quoting defaults.
type Entitlements interface {
	CanAccessWizard(ctx context.Context, userID uuid.UUID) (bool, error)
	UserDefaults(ctx context.Context, userID uuid.UUID) (reasoner.UserDefaults, error)
}

// TurnResult is the outcome of one conversation turn.
type TurnResult struct {
	Session      *Session
	Reply        string
	QuickReplies []string
	Display      *reasoner.DisplayPayload
	UISignals    UISignals
	CapExhausted bool
}

// apologies rotate across consecutive reasoner failures so the user never
// sees the same canned line twice in a row.
var apologies = []string{
	"Sorry, I hit a snag talking to the quoting assistant. Could you try that again?",
	"Something went wrong on my end there. Mind repeating that?",
	"I couldn't process that just now. Let's give it another shot.",
}

// Service orchestrates wizard conversations.
type Service struct {
	store        SessionStore
	reasoner     reasoner.Client
	catalog      CatalogSearcher
	quotes       QuoteWriter
	entitlements Entitlements
	log          *logger.Logger

	maxReasonerCalls int
	searchLimit      int

	inflight sync.Map // session id -> struct{}
}

// New creates the wizard service. maxReasonerCalls bounds the reasoning loop
// per turn; searchLimit caps catalog results fed back to the service.
func New(
	store SessionStore,
	client reasoner.Client,
	catalog CatalogSearcher,
	quotes QuoteWriter,
	entitlements Entitlements,
	log *logger.Logger,
	maxReasonerCalls int,
	searchLimit int,
) *Service {
	if maxReasonerCalls < 1 {
		maxReasonerCalls = 1
	}
	return &Service{
		store:            store,
		reasoner:         client,
		catalog:          catalog,
		quotes:           quotes,
		entitlements:     entitlements,
		log:              log,
		maxReasonerCalls: maxReasonerCalls,
		searchLimit:      searchLimit,
	}
}

// CreateSession starts a new wizard conversation for the user. Pro tier is
// required; the defaults are read once here and pinned to the session.
func (s *Service) CreateSession(ctx context.Context, ownerID uuid.UUID) (*Session, error) {
	allowed, err := s.entitlements.CanAccessWizard(ctx, ownerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to check wizard entitlement", err)
	}
	if !allowed {
		return nil, apperr.Forbidden("the quote wizard requires a pro subscription")
	}

	defaults, err := s.entitlements.UserDefaults(ctx, ownerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load user defaults", err)
	}

	session := NewSession(ownerID, defaults)
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession loads a session owned by the user.
func (s *Service) GetSession(ctx context.Context, ownerID, sessionID uuid.UUID) (*Session, error) {
	return s.load(ctx, ownerID, sessionID)
}

// DeleteSession discards a session so the user can start over.
func (s *Service) DeleteSession(ctx context.Context, ownerID, sessionID uuid.UUID) error {
	if _, err := s.load(ctx, ownerID, sessionID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete session", err)
	}
	return nil
}

// RunMessage runs one conversation turn for a plain user message.
func (s *Service) RunMessage(ctx context.Context, ownerID, sessionID uuid.UUID, text string) (*TurnResult, error) {
	return s.runTurn(ctx, ownerID, sessionID, NewUserTurn(text))
}

// Selection is one product picked from a displayed list.
type Selection struct {
	ProductID uuid.UUID
	Qty       float64
}

// RunSelections flushes a batch of product selections as a single synthetic
// user turn and runs the conversation once. However many products were
// picked, the reasoning service sees exactly one message.
func (s *Service) RunSelections(ctx context.Context, ownerID, sessionID uuid.UUID, selections []Selection) (*TurnResult, error) {
	if len(selections) == 0 {
		return nil, apperr.Validation("at least one selection is required")
	}

	parts := make([]string, 0, len(selections))
	for _, sel := range selections {
		parts = append(parts, fmt.Sprintf("productId=%s qty=%g", sel.ProductID, sel.Qty))
	}
	api := "ADD_SELECTED: " + strings.Join(parts, "; ")
	display := fmt.Sprintf("Selected %d product(s)", len(selections))

	return s.runTurn(ctx, ownerID, sessionID, NewSyntheticUserTurn(display, api))
}

// runTurn appends the user turn and drives the bounded reasoning loop.
func (s *Service) runTurn(ctx context.Context, ownerID, sessionID uuid.UUID, userTurn Turn) (*TurnResult, error) {
	session, err := s.load(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Committed {
		return nil, apperr.Validation("this quote has already been created; start a new session")
	}

	if _, loaded := s.inflight.LoadOrStore(sessionID, struct{}{}); loaded {
		return nil, apperr.Busy("a reply is already being generated for this session")
	}
	defer s.inflight.Delete(sessionID)

	session.Transcript = append(session.Transcript, userTurn)

	result, err := s.loop(ctx, session)
	if err != nil {
		// Cancellation or a save failure. The failed turn's mutations were
		// never swapped in, so the stored session is intact.
		return nil, err
	}

	session.QuickReplies = result.QuickReplies
	session.UpdatedAt = time.Now().UTC()
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	result.Session = session
	return result, nil
}

// loop is the bounded conversation loop: at most maxReasonerCalls round
// trips per user turn. Tool mutations accumulate on a working copy of the
// draft and are swapped in only when the turn ends without a failure.
func (s *Service) loop(ctx context.Context, session *Session) (*TurnResult, error) {
	start := time.Now()
	working := session.Draft.clone()
	var signals UISignals
	var lastReply *reasoner.Reply
	toolCallCount := 0
	reasonerCalls := 0
	capExhausted := true

	for i := 0; i < s.maxReasonerCalls; i++ {
		if err := ctx.Err(); err != nil {
			// Cancelled turns behave like failures minus the apology: the
			// draft stays untouched and nothing is persisted.
			return nil, err
		}

		reply, err := s.reasoner.Send(ctx, reasoner.SendRequest{
			Messages: session.Transcript.APIMessages(),
			Tools:    ToolDefinitions(),
			State:    session.sessionState(),
			Defaults: &session.Defaults,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.ReasonerError(session.ID.String(), i+1, err)
			return s.apologize(session), nil
		}

		reasonerCalls++
		lastReply = reply
		session.absorbState(reply.State)

		calls, skipped := DecodeCalls(reply.ToolCalls)
		if len(skipped) > 0 {
			s.log.Warn("ignoring unknown tool calls", "sessionID", session.ID.String(), "kinds", skipped)
		}
		toolCallCount += len(calls)

		searches, rest := PartitionCalls(calls)
		working, signals = applyAccumulating(working, signals, rest)

		if len(searches) == 0 {
			// Final reply for this turn.
			session.Transcript = append(session.Transcript, NewAssistantTurn(reply.Message))
			capExhausted = false
			break
		}

		// The requesting reply goes into the transcript (hidden when it has
		// no prose), then the results ride back as one synthetic user turn.
		requesting := NewAssistantTurn(reply.Message)
		requesting.Hidden = reply.Message == ""
		session.Transcript = append(session.Transcript, requesting)
		session.Transcript = append(session.Transcript, s.searchResultsTurn(ctx, session.OwnerID, searches))
	}

	// On cap exhaustion this is still a degraded success: the last searching
	// iteration already placed its reply in the transcript (visible whenever
	// it carried prose), so there is nothing further to append. The trailing
	// search results ride into the next request via the API projection.

	session.Draft = working
	session.FailureCount = 0

	result := &TurnResult{
		Reply:        session.Transcript.LastAssistantText(),
		UISignals:    signals,
		CapExhausted: capExhausted,
	}
	if lastReply != nil {
		result.Display = lastReply.Display
		result.QuickReplies = lastReply.QuickReplies
	}
	if len(result.QuickReplies) == 0 {
		result.QuickReplies = SuggestQuickReplies(result.Reply)
	}

	s.log.WizardTurn(session.ID.String(), reasonerCalls, toolCallCount, capExhausted, float64(time.Since(start).Milliseconds()))
	return result, nil
}

// applyAccumulating folds one iteration's calls into the working copy.
func applyAccumulating(working DraftQuote, signals UISignals, calls []Call) (DraftQuote, UISignals) {
	next, more := Apply(working, calls)
	signals.ShowRemoveItem = signals.ShowRemoveItem || more.ShowRemoveItem
	signals.ShowEditQuantity = signals.ShowEditQuantity || more.ShowEditQuantity
	return next, signals
}

// searchResultsTurn resolves every search in the batch and packs the results
// into one synthetic user turn.
func (s *Service) searchResultsTurn(ctx context.Context, ownerID uuid.UUID, searches []SearchCatalog) Turn {
	var b strings.Builder
	for i, search := range searches {
		limit := search.Limit
		if limit <= 0 || limit > s.searchLimit {
			limit = s.searchLimit
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Catalog results for %q:\n", search.Query)
		b.WriteString(s.catalog.Search(ctx, ownerID, search.Query, search.Category, limit))
	}
	return NewSyntheticUserTurn("Searched the catalog", b.String())
}

// apologize appends a rotating canned failure reply and leaves the draft
// untouched. A failed turn is still a completed turn from the app's view.
func (s *Service) apologize(session *Session) *TurnResult {
	message := apologies[session.FailureCount%len(apologies)]
	session.FailureCount++
	session.Transcript = append(session.Transcript, NewAssistantTurn(message))
	return &TurnResult{Reply: message}
}

// Commit persists the draft through the quotes module. An empty draft is
// refused before any persistence happens; on failure the session and draft
// survive so the user can retry.
func (s *Service) Commit(ctx context.Context, ownerID, sessionID uuid.UUID) (*transport.QuoteResponse, error) {
	session, err := s.load(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Committed {
		return nil, apperr.Conflict("this session's quote has already been created")
	}
	if _, loaded := s.inflight.LoadOrStore(sessionID, struct{}{}); loaded {
		return nil, apperr.Busy("a reply is still being generated for this session")
	}
	defer s.inflight.Delete(sessionID)

	draft := session.Draft
	if draft.Empty() {
		return nil, apperr.Validation("add a name or at least one item before creating the quote")
	}

	quote, err := s.quotes.Create(ctx, ownerID, transport.CreateQuoteRequest{
		Name:       draft.Name,
		ClientName: draft.ClientName,
	})
	if err != nil {
		return nil, err
	}

	items := make([]transport.QuoteItemRequest, 0, len(draft.Items))
	for _, item := range draft.Items {
		items = append(items, transport.QuoteItemRequest{
			ProductID:      item.ProductID,
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	labor := draft.LaborCents
	markup := draft.MarkupPercent
	quote, err = s.quotes.Update(ctx, quote.ID, ownerID, transport.UpdateQuoteRequest{
		LaborCents:    &labor,
		MarkupPercent: &markup,
		Items:         &items,
	})
	if err != nil {
		return nil, err
	}

	session.Committed = true
	session.QuoteID = &quote.ID
	session.Phase = reasoner.PhaseDone
	session.UpdatedAt = time.Now().UTC()
	if err := s.save(ctx, session); err != nil {
		// The quote exists; losing the committed flag only risks a duplicate
		// on retry, which the user can delete. Surface the store failure.
		return nil, err
	}

	return quote, nil
}

func (s *Service) load(ctx context.Context, ownerID, sessionID uuid.UUID) (*Session, error) {
	data, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			return nil, apperr.NotFound("wizard session not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load session", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to decode session", err)
	}
	if session.OwnerID != ownerID {
		return nil, apperr.NotFound("wizard session not found")
	}
	return &session, nil
}

func (s *Service) save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to encode session", err)
	}
	if err := s.store.Save(ctx, session.ID, data); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to save session", err)
	}
	return nil
}
