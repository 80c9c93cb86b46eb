package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"quotebuilder_backend/internal/quotes/transport"
	"quotebuilder_backend/internal/wizard/repository"
	"quotebuilder_backend/platform/ai/reasoner"
	"quotebuilder_backend/platform/apperr"
	"quotebuilder_backend/platform/logger"

	"github.com/google/uuid"
)

// ── Fakes ─────────────────────────────────────────────────────────────────────

type fakeStore struct {
	mu      sync.Mutex
	data    map[uuid.UUID][]byte
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[uuid.UUID][]byte{}}
}

func (f *fakeStore) Save(_ context.Context, id uuid.UUID, data []byte) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	f.data[id] = cp
	return nil
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.data[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return data, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, id)
	return nil
}

func (f *fakeStore) session(t *testing.T, id uuid.UUID) *Session {
	t.Helper()
	data, err := f.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("session %s not in store: %v", id, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("stored session does not decode: %v", err)
	}
	return &s
}

type fakeReasoner struct {
	mu       sync.Mutex
	sends    int
	requests []reasoner.SendRequest
	fn       func(call int, req reasoner.SendRequest) (*reasoner.Reply, error)
	started  chan struct{}
	release  chan struct{}
}

func (f *fakeReasoner) Send(ctx context.Context, req reasoner.SendRequest) (*reasoner.Reply, error) {
	f.mu.Lock()
	f.sends++
	call := f.sends
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.fn(call, req)
}

func (f *fakeReasoner) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends
}

type fakeCatalog struct {
	mu      sync.Mutex
	queries []string
	result  string
}

func (f *fakeCatalog) Search(_ context.Context, _ uuid.UUID, query, _ string, _ int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.result != "" {
		return f.result
	}
	return "- Toilet (id: 11111111-1111-1111-1111-111111111111) — $149.00 per unit [Bathroom]"
}

type fakeQuotes struct {
	createCalls int
	updateCalls int
	createErr   error
	updateErr   error
	lastUpdate  transport.UpdateQuoteRequest
	quoteID     uuid.UUID
}

func (f *fakeQuotes) Create(_ context.Context, _ uuid.UUID, req transport.CreateQuoteRequest) (*transport.QuoteResponse, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.quoteID == uuid.Nil {
		f.quoteID = uuid.New()
	}
	return &transport.QuoteResponse{ID: f.quoteID, Name: req.Name, ClientName: req.ClientName}, nil
}

func (f *fakeQuotes) Update(_ context.Context, id, _ uuid.UUID, req transport.UpdateQuoteRequest) (*transport.QuoteResponse, error) {
	f.updateCalls++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.lastUpdate = req
	return &transport.QuoteResponse{ID: id}, nil
}

type fakeEntitlements struct {
	allowed  bool
	defaults reasoner.UserDefaults
}

func (f *fakeEntitlements) CanAccessWizard(context.Context, uuid.UUID) (bool, error) {
	return f.allowed, nil
}

func (f *fakeEntitlements) UserDefaults(context.Context, uuid.UUID) (reasoner.UserDefaults, error) {
	return f.defaults, nil
}

// ── Harness ───────────────────────────────────────────────────────────────────

type harness struct {
	svc     *Service
	store   *fakeStore
	llm     *fakeReasoner
	catalog *fakeCatalog
	quotes  *fakeQuotes
	ownerID uuid.UUID
}

func newHarness(t *testing.T, llm *fakeReasoner) *harness {
	t.Helper()
	store := newFakeStore()
	catalog := &fakeCatalog{}
	quotes := &fakeQuotes{}
	svc := New(
		store,
		llm,
		catalog,
		quotes,
		&fakeEntitlements{allowed: true},
		logger.New("test"),
		5,
		5,
	)
	return &harness{
		svc:     svc,
		store:   store,
		llm:     llm,
		catalog: catalog,
		quotes:  quotes,
		ownerID: uuid.New(),
	}
}

func (h *harness) newSession(t *testing.T) *Session {
	t.Helper()
	session, err := h.svc.CreateSession(context.Background(), h.ownerID)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return session
}

func finalReply(message string) func(int, reasoner.SendRequest) (*reasoner.Reply, error) {
	return func(int, reasoner.SendRequest) (*reasoner.Reply, error) {
		return &reasoner.Reply{Message: message}, nil
	}
}

func searchCall(query string) reasoner.ToolCall {
	args, _ := json.Marshal(map[string]string{"query": query})
	return reasoner.ToolCall{ID: "tc", Name: "searchCatalog", Args: args}
}

// ── Session lifecycle ─────────────────────────────────────────────────────────

func TestCreateSessionRequiresProTier(t *testing.T) {
	store := newFakeStore()
	svc := New(store, &fakeReasoner{fn: finalReply("hi")}, &fakeCatalog{}, &fakeQuotes{},
		&fakeEntitlements{allowed: false}, logger.New("test"), 5, 5)

	_, err := svc.CreateSession(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for free tier, got %v", err)
	}
	if len(store.data) != 0 {
		t.Fatal("no session should be stored for a rejected create")
	}
}

func TestNewSessionStartsOnIntroScreen(t *testing.T) {
	h := newHarness(t, &fakeReasoner{fn: finalReply("hi")})
	session := h.newSession(t)

	if session.Screen() != ScreenIntro {
		t.Fatalf("expected intro screen, got %q", session.Screen())
	}
	if !session.Draft.Empty() {
		t.Fatal("new session draft must be empty")
	}
}

func TestGetSessionScopedToOwner(t *testing.T) {
	h := newHarness(t, &fakeReasoner{fn: finalReply("hi")})
	session := h.newSession(t)

	_, err := h.svc.GetSession(context.Background(), uuid.New(), session.ID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}
}

func TestDeleteSessionStartsOver(t *testing.T) {
	h := newHarness(t, &fakeReasoner{fn: finalReply("hi")})
	session := h.newSession(t)

	if err := h.svc.DeleteSession(context.Background(), h.ownerID, session.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := h.svc.GetSession(context.Background(), h.ownerID, session.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

// ── Conversation loop ─────────────────────────────────────────────────────────

func TestRunMessageSimpleTurn(t *testing.T) {
	h := newHarness(t, &fakeReasoner{fn: finalReply("What project are we quoting today?")})
	session := h.newSession(t)

	result, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "Hi")
	if err != nil {
		t.Fatalf("RunMessage failed: %v", err)
	}

	if result.Reply != "What project are we quoting today?" {
		t.Fatalf("unexpected reply %q", result.Reply)
	}
	if result.CapExhausted {
		t.Fatal("single round trip must not report cap exhaustion")
	}
	stored := h.store.session(t, session.ID)
	if len(stored.Transcript) != 2 {
		t.Fatalf("expected user + assistant turns, got %d", len(stored.Transcript))
	}
}

func TestRunMessageCapNeverExceeded(t *testing.T) {
	// A reasoner that searches forever must be cut off at the cap.
	llm := &fakeReasoner{fn: func(int, reasoner.SendRequest) (*reasoner.Reply, error) {
		return &reasoner.Reply{ToolCalls: []reasoner.ToolCall{searchCall("toilet")}}, nil
	}}
	h := newHarness(t, llm)
	session := h.newSession(t)

	result, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "bathroom remodel")
	if err != nil {
		t.Fatalf("RunMessage failed: %v", err)
	}

	if llm.sendCount() != 5 {
		t.Fatalf("expected exactly 5 reasoner calls, got %d", llm.sendCount())
	}
	if !result.CapExhausted {
		t.Fatal("expected capExhausted to be flagged")
	}
	// Degraded success: the turn still completed and persisted.
	h.store.session(t, session.ID)
}

func TestRunMessageCapExhaustionTranscriptShape(t *testing.T) {
	// Every reply searches and repeats the same interim note; the stored
	// transcript must carry the note once per iteration, never twice.
	llm := &fakeReasoner{fn: func(int, reasoner.SendRequest) (*reasoner.Reply, error) {
		return &reasoner.Reply{Message: "Let me check the catalog.", ToolCalls: []reasoner.ToolCall{searchCall("toilet")}}, nil
	}}
	h := newHarness(t, llm)
	session := h.newSession(t)

	result, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "bathroom remodel")
	if err != nil {
		t.Fatalf("RunMessage failed: %v", err)
	}
	if !result.CapExhausted {
		t.Fatal("expected capExhausted to be flagged")
	}

	stored := h.store.session(t, session.ID)
	// user, then five rounds of (assistant note, hidden synthetic results)
	if len(stored.Transcript) != 11 {
		t.Fatalf("expected 11 turns, got %d", len(stored.Transcript))
	}
	notes := 0
	for _, turn := range stored.Transcript {
		if turn.Role == reasoner.RoleAssistant && turn.DisplayText == "Let me check the catalog." && !turn.Hidden {
			notes++
		}
	}
	if notes != 5 {
		t.Fatalf("interim note must appear once per iteration, got %d", notes)
	}
	if last := stored.Transcript[len(stored.Transcript)-1]; last.Role != reasoner.RoleUser || !last.Hidden {
		t.Fatalf("transcript must end with the hidden search results, got %+v", last)
	}
	if result.Reply != "Let me check the catalog." {
		t.Fatalf("the last reply is shown as the turn's outcome, got %q", result.Reply)
	}
}

func TestRunMessageCapExhaustionNoEmptyBubble(t *testing.T) {
	// Prose-free searching replies leave nothing to show; no turn may
	// surface as an empty visible assistant bubble.
	llm := &fakeReasoner{fn: func(int, reasoner.SendRequest) (*reasoner.Reply, error) {
		return &reasoner.Reply{ToolCalls: []reasoner.ToolCall{searchCall("toilet")}}, nil
	}}
	h := newHarness(t, llm)
	session := h.newSession(t)

	result, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "bathroom remodel")
	if err != nil {
		t.Fatalf("RunMessage failed: %v", err)
	}
	if !result.CapExhausted {
		t.Fatal("expected capExhausted to be flagged")
	}

	stored := h.store.session(t, session.ID)
	for i, turn := range stored.Transcript {
		if turn.Role == reasoner.RoleAssistant && turn.DisplayText == "" && !turn.Hidden {
			t.Fatalf("turn %d is a visible empty assistant turn: %+v", i, turn)
		}
	}
	if result.Reply != "" {
		t.Fatalf("no reply prose was ever produced, got %q", result.Reply)
	}
}

func TestRunMessageSingleSearchOneExtraRoundTrip(t *testing.T) {
	llm := &fakeReasoner{fn: func(call int, req reasoner.SendRequest) (*reasoner.Reply, error) {
		if call == 1 {
			return &reasoner.Reply{ToolCalls: []reasoner.ToolCall{searchCall("toilet")}}, nil
		}
		return &reasoner.Reply{Message: "I found a toilet for $149. Should I add it?"}, nil
	}}
	h := newHarness(t, llm)
	session := h.newSession(t)

	result, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "add a toilet")
	if err != nil {
		t.Fatalf("RunMessage failed: %v", err)
	}

	if llm.sendCount() != 2 {
		t.Fatalf("one search must cost exactly one extra round trip, got %d calls", llm.sendCount())
	}
	if result.CapExhausted {
		t.Fatal("two round trips under a cap of five is not exhaustion")
	}
	if len(h.catalog.queries) != 1 || h.catalog.queries[0] != "toilet" {
		t.Fatalf("expected one catalog search for toilet, got %v", h.catalog.queries)
	}
}

func TestRunMessageSearchResultsOrdering(t *testing.T) {
	llm := &fakeReasoner{fn: func(call int, req reasoner.SendRequest) (*reasoner.Reply, error) {
		if call == 1 {
			return &reasoner.Reply{Message: "Let me check the catalog.", ToolCalls: []reasoner.ToolCall{searchCall("toilet")}}, nil
		}
		return &reasoner.Reply{Message: "Found one."}, nil
	}}
	h := newHarness(t, llm)
	session := h.newSession(t)

	if _, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "add a toilet"); err != nil {
		t.Fatalf("RunMessage failed: %v", err)
	}

	stored := h.store.session(t, session.ID)
	// user, requesting assistant, synthetic results, final assistant
	if len(stored.Transcript) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(stored.Transcript))
	}
	results := stored.Transcript[2]
	if results.Role != reasoner.RoleUser || results.APIText == nil {
		t.Fatalf("search results must ride back as a synthetic user turn: %+v", results)
	}
	if !strings.Contains(*results.APIText, "$149.00") {
		t.Fatalf("synthetic turn must carry the catalog results, got %q", *results.APIText)
	}
	if !results.Hidden {
		t.Fatal("synthetic search-result turns are hidden from the user")
	}
	// The second request must include the results so the model can use them.
	secondReq := llm.requests[1]
	last := secondReq.Messages[len(secondReq.Messages)-1]
	if last.Role != reasoner.RoleUser || !strings.Contains(last.Content, "$149.00") {
		t.Fatalf("second request must end with the search results, got %+v", last)
	}
}

func TestRunMessageBusyGuardRejectsReentry(t *testing.T) {
	llm := &fakeReasoner{
		fn:      finalReply("done"),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	h := newHarness(t, llm)
	session := h.newSession(t)

	done := make(chan error, 1)
	go func() {
		_, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "first")
		done <- err
	}()
	<-llm.started

	_, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "second")
	if !apperr.Is(err, apperr.KindBusy) {
		t.Fatalf("expected busy while a turn is in flight, got %v", err)
	}

	close(llm.release)
	if err := <-done; err != nil {
		t.Fatalf("first turn failed: %v", err)
	}

	// The guard is released; the next turn goes through.
	if _, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "third"); err != nil {
		t.Fatalf("turn after release failed: %v", err)
	}
}

func TestRunMessageFailureLeavesDraftUntouched(t *testing.T) {
	calls := 0
	llm := &fakeReasoner{fn: func(call int, req reasoner.SendRequest) (*reasoner.Reply, error) {
		calls++
		if calls == 1 {
			// First turn builds some draft state.
			args, _ := json.Marshal(map[string]any{"name": "Toilet", "qty": 1, "unitPriceCents": 14900})
			return &reasoner.Reply{
				Message:   "Added a toilet.",
				ToolCalls: []reasoner.ToolCall{{Name: "addItem", Args: args}},
			}, nil
		}
		return nil, errors.New("upstream 503")
	}}
	h := newHarness(t, llm)
	session := h.newSession(t)

	if _, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "add a toilet"); err != nil {
		t.Fatalf("first turn failed: %v", err)
	}

	result, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "now add tile")
	if err != nil {
		t.Fatalf("failed turn must still complete: %v", err)
	}
	if !strings.Contains(strings.ToLower(result.Reply), "sorry") && !strings.Contains(strings.ToLower(result.Reply), "wrong") && !strings.Contains(strings.ToLower(result.Reply), "couldn't") {
		t.Fatalf("expected an apologetic reply, got %q", result.Reply)
	}

	stored := h.store.session(t, session.ID)
	if len(stored.Draft.Items) != 1 || stored.Draft.Items[0].Name != "Toilet" {
		t.Fatalf("failed turn must leave the draft untouched: %+v", stored.Draft)
	}

	// A second failure rotates to a different phrasing.
	second, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "try again")
	if err != nil {
		t.Fatalf("second failed turn errored: %v", err)
	}
	if second.Reply == result.Reply {
		t.Fatalf("consecutive failures should rotate phrasings, both were %q", second.Reply)
	}
}

func TestRunMessageCancelledContext(t *testing.T) {
	llm := &fakeReasoner{fn: finalReply("hi")}
	h := newHarness(t, llm)
	session := h.newSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.svc.RunMessage(ctx, h.ownerID, session.ID, "hello")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	stored := h.store.session(t, session.ID)
	if len(stored.Transcript) != 0 {
		t.Fatalf("cancelled turn must not persist anything, transcript has %d turns", len(stored.Transcript))
	}
}

func TestRunMessageBathroomRemodelScenario(t *testing.T) {
	llm := &fakeReasoner{fn: func(int, reasoner.SendRequest) (*reasoner.Reply, error) {
		itemArgs, _ := json.Marshal(map[string]any{"name": "Toilet", "qty": 1, "unitPriceCents": 14900})
		laborArgs, _ := json.Marshal(map[string]any{"hours": 8, "rateCents": 7500})
		return &reasoner.Reply{
			Message: "I've added a toilet and 8 hours of labor.",
			ToolCalls: []reasoner.ToolCall{
				{Name: "addItem", Args: itemArgs},
				{Name: "setLabor", Args: laborArgs},
			},
		}, nil
	}}
	h := newHarness(t, llm)
	session := h.newSession(t)

	if _, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "bathroom remodel, 8x10"); err != nil {
		t.Fatalf("RunMessage failed: %v", err)
	}

	stored := h.store.session(t, session.ID)
	if len(stored.Draft.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(stored.Draft.Items))
	}
	if stored.Draft.LaborCents != 60000 {
		t.Fatalf("expected labor of 60000 cents, got %d", stored.Draft.LaborCents)
	}
}

func TestRunMessageQuickReplyFallback(t *testing.T) {
	llm := &fakeReasoner{fn: finalReply("What's your budget for this project?")}
	h := newHarness(t, llm)
	session := h.newSession(t)

	result, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "kitchen remodel")
	if err != nil {
		t.Fatalf("RunMessage failed: %v", err)
	}
	if len(result.QuickReplies) == 0 {
		t.Fatal("expected heuristic quick replies when the reasoner supplies none")
	}
}

func TestRunMessageServerQuickRepliesWin(t *testing.T) {
	llm := &fakeReasoner{fn: func(int, reasoner.SendRequest) (*reasoner.Reply, error) {
		return &reasoner.Reply{
			Message:      "What's your budget?",
			QuickReplies: []string{"Under $5k", "Over $5k"},
		}, nil
	}}
	h := newHarness(t, llm)
	session := h.newSession(t)

	result, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "deck")
	if err != nil {
		t.Fatalf("RunMessage failed: %v", err)
	}
	if len(result.QuickReplies) != 2 || result.QuickReplies[0] != "Under $5k" {
		t.Fatalf("server-provided quick replies must win over the heuristic: %v", result.QuickReplies)
	}
}

func TestRunMessagePhaseFollowsServerState(t *testing.T) {
	llm := &fakeReasoner{fn: func(int, reasoner.SendRequest) (*reasoner.Reply, error) {
		return &reasoner.Reply{
			Message: "All set, your quote is ready.",
			State:   &reasoner.SessionState{Raw: json.RawMessage(`{"phase":"done","internal":"x"}`)},
		}, nil
	}}
	h := newHarness(t, llm)
	session := h.newSession(t)

	if _, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "that's everything"); err != nil {
		t.Fatalf("RunMessage failed: %v", err)
	}

	stored := h.store.session(t, session.ID)
	if stored.Phase != reasoner.PhaseDone {
		t.Fatalf("expected phase done from server state, got %q", stored.Phase)
	}
	if stored.Screen() != ScreenDone {
		t.Fatalf("done phase must drive the done screen, got %q", stored.Screen())
	}
	if string(stored.State) != `{"phase":"done","internal":"x"}` {
		t.Fatalf("state token must be stored verbatim, got %s", stored.State)
	}
}

func TestRunMessageStateEchoedVerbatim(t *testing.T) {
	token := json.RawMessage(`{"phase":"gathering","opaque":[1,2,3]}`)
	llm := &fakeReasoner{fn: func(call int, req reasoner.SendRequest) (*reasoner.Reply, error) {
		if call == 1 {
			return &reasoner.Reply{Message: "Noted.", State: &reasoner.SessionState{Raw: token}}, nil
		}
		if req.State == nil || string(req.State.Raw) != string(token) {
			return nil, errors.New("state token not echoed verbatim")
		}
		return &reasoner.Reply{Message: "Still noted."}, nil
	}}
	h := newHarness(t, llm)
	session := h.newSession(t)

	if _, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "first"); err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
	result, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "second")
	if err != nil {
		t.Fatalf("second turn failed: %v", err)
	}
	if result.Reply != "Still noted." {
		t.Fatalf("unexpected reply %q", result.Reply)
	}
}

// ── Selections ────────────────────────────────────────────────────────────────

func TestRunSelectionsSingleSyntheticTurn(t *testing.T) {
	llm := &fakeReasoner{fn: finalReply("Added your selections.")}
	h := newHarness(t, llm)
	session := h.newSession(t)

	productA := uuid.New()
	productB := uuid.New()
	_, err := h.svc.RunSelections(context.Background(), h.ownerID, session.ID, []Selection{
		{ProductID: productA, Qty: 2},
		{ProductID: productB, Qty: 1},
	})
	if err != nil {
		t.Fatalf("RunSelections failed: %v", err)
	}

	stored := h.store.session(t, session.ID)
	var userTurns []Turn
	for _, turn := range stored.Transcript {
		if turn.Role == reasoner.RoleUser {
			userTurns = append(userTurns, turn)
		}
	}
	if len(userTurns) != 1 {
		t.Fatalf("a selection batch must produce exactly one user turn, got %d", len(userTurns))
	}
	if userTurns[0].APIText == nil || !strings.HasPrefix(*userTurns[0].APIText, "ADD_SELECTED:") {
		t.Fatalf("selection turn must carry the ADD_SELECTED payload, got %+v", userTurns[0])
	}
	api := *userTurns[0].APIText
	if !strings.Contains(api, productA.String()) || !strings.Contains(api, "qty=2") ||
		!strings.Contains(api, productB.String()) || !strings.Contains(api, "qty=1") {
		t.Fatalf("all selections must ride in that one turn, got %q", api)
	}
}

func TestRunSelectionsRejectsEmptyBatch(t *testing.T) {
	h := newHarness(t, &fakeReasoner{fn: finalReply("hi")})
	session := h.newSession(t)

	_, err := h.svc.RunSelections(context.Background(), h.ownerID, session.ID, nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// ── Commit ────────────────────────────────────────────────────────────────────

func TestCommitEmptyDraftMakesNoPersistenceCall(t *testing.T) {
	h := newHarness(t, &fakeReasoner{fn: finalReply("hi")})
	session := h.newSession(t)

	_, err := h.svc.Commit(context.Background(), h.ownerID, session.ID)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty draft, got %v", err)
	}
	if h.quotes.createCalls != 0 || h.quotes.updateCalls != 0 {
		t.Fatalf("empty-draft commit must not touch persistence: create=%d update=%d",
			h.quotes.createCalls, h.quotes.updateCalls)
	}
}

func commitReadyHarness(t *testing.T) (*harness, *Session) {
	t.Helper()
	llm := &fakeReasoner{fn: func(int, reasoner.SendRequest) (*reasoner.Reply, error) {
		nameArgs, _ := json.Marshal(map[string]string{"name": "Bathroom remodel"})
		itemArgs, _ := json.Marshal(map[string]any{"name": "Toilet", "qty": 1, "unitPriceCents": 14900})
		laborArgs, _ := json.Marshal(map[string]any{"hours": 8, "rateCents": 7500})
		return &reasoner.Reply{
			Message: "Draft ready.",
			ToolCalls: []reasoner.ToolCall{
				{Name: "setQuoteName", Args: nameArgs},
				{Name: "addItem", Args: itemArgs},
				{Name: "setLabor", Args: laborArgs},
			},
		}, nil
	}}
	h := newHarness(t, llm)
	session := h.newSession(t)
	if _, err := h.svc.RunMessage(context.Background(), h.ownerID, session.ID, "bathroom remodel"); err != nil {
		t.Fatalf("setup turn failed: %v", err)
	}
	return h, session
}

func TestCommitCreatesThenUpdates(t *testing.T) {
	h, session := commitReadyHarness(t)

	quote, err := h.svc.Commit(context.Background(), h.ownerID, session.ID)
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if h.quotes.createCalls != 1 || h.quotes.updateCalls != 1 {
		t.Fatalf("commit runs create then update once each, got create=%d update=%d",
			h.quotes.createCalls, h.quotes.updateCalls)
	}
	if h.quotes.lastUpdate.Items == nil || len(*h.quotes.lastUpdate.Items) != 1 {
		t.Fatalf("update must carry the draft items: %+v", h.quotes.lastUpdate)
	}
	if h.quotes.lastUpdate.LaborCents == nil || *h.quotes.lastUpdate.LaborCents != 60000 {
		t.Fatalf("update must carry the labor cents: %+v", h.quotes.lastUpdate.LaborCents)
	}

	stored := h.store.session(t, session.ID)
	if !stored.Committed || stored.QuoteID == nil || *stored.QuoteID != quote.ID {
		t.Fatalf("session must record the committed quote: %+v", stored)
	}
	if stored.Screen() != ScreenDone {
		t.Fatalf("committed session shows the done screen, got %q", stored.Screen())
	}
}

func TestCommitPersistenceFailurePreservesDraft(t *testing.T) {
	h, session := commitReadyHarness(t)
	h.quotes.createErr = errors.New("db down")

	if _, err := h.svc.Commit(context.Background(), h.ownerID, session.ID); err == nil {
		t.Fatal("expected commit to surface the persistence failure")
	}

	stored := h.store.session(t, session.ID)
	if stored.Committed {
		t.Fatal("failed commit must not mark the session committed")
	}
	if len(stored.Draft.Items) != 1 {
		t.Fatalf("draft must survive a failed commit for retry: %+v", stored.Draft)
	}

	// Retry succeeds once persistence recovers.
	h.quotes.createErr = nil
	if _, err := h.svc.Commit(context.Background(), h.ownerID, session.ID); err != nil {
		t.Fatalf("retry after recovery failed: %v", err)
	}
}

func TestCommitTwiceConflicts(t *testing.T) {
	h, session := commitReadyHarness(t)

	if _, err := h.svc.Commit(context.Background(), h.ownerID, session.ID); err != nil {
		t.Fatalf("first commit failed: %v", err)
	}
	if _, err := h.svc.Commit(context.Background(), h.ownerID, session.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on double commit, got %v", err)
	}
}
