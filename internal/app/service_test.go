package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"designflow/api/internal/merge"
	"designflow/api/internal/publish"
	"designflow/api/internal/store"
	"designflow/api/internal/taxonomy"
)

// memStore is an in-memory DataStore with the same transition semantics as
// the Postgres implementation.
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	submissions map[int64]*store.Submission
	approved    map[int64]*store.ApprovedTool
	pingErr     error
}

func newMemStore() *memStore {
	return &memStore{
		nextID:      1,
		submissions: make(map[int64]*store.Submission),
		approved:    make(map[int64]*store.ApprovedTool),
	}
}

func (m *memStore) Ping(ctx context.Context) error { return m.pingErr }

func (m *memStore) InsertSubmission(ctx context.Context, item store.Submission) (store.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = m.nextID
	m.nextID++
	item.Status = store.StatusPending
	item.SubmittedAt = time.Now()
	m.submissions[item.ID] = &item
	return item, nil
}

func (m *memStore) ListSubmissionsByStatus(ctx context.Context, status string) ([]store.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]store.Submission, 0)
	for _, item := range m.submissions {
		if item.Status == status {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (m *memStore) CountSubmissionsByStatus(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, item := range m.submissions {
		counts[item.Status]++
	}
	return counts, nil
}

func (m *memStore) CountPendingByPhaseTitle(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, item := range m.submissions {
		if item.Status == store.StatusPending {
			counts[item.PhaseTitle]++
		}
	}
	return counts, nil
}

func (m *memStore) GetPendingSubmission(ctx context.Context, id int64) (store.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.submissions[id]
	if !ok || item.Status != store.StatusPending {
		return store.Submission{}, sql.ErrNoRows
	}
	return *item, nil
}

func (m *memStore) SetSubmissionStatus(ctx context.Context, id int64, status, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.submissions[id]
	if !ok || item.Status != store.StatusPending {
		return sql.ErrNoRows
	}
	now := time.Now()
	item.Status = status
	item.ReviewedAt = &now
	if reason != "" {
		item.RejectionReason = &reason
	}
	return nil
}

func (m *memStore) InsertApprovedTool(ctx context.Context, item store.ApprovedTool) (store.ApprovedTool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = m.nextID
	m.nextID++
	item.ApprovedAt = time.Now()
	item.Visible = true
	m.approved[item.ID] = &item
	return item, nil
}

func (m *memStore) ListApprovedTools(ctx context.Context) ([]store.ApprovedTool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]store.ApprovedTool, 0)
	for _, item := range m.approved {
		items = append(items, *item)
	}
	return items, nil
}

func (m *memStore) ListVisibleApprovedTools(ctx context.Context) ([]store.ApprovedTool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]store.ApprovedTool, 0)
	for _, item := range m.approved {
		if item.Visible {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (m *memStore) SetApprovedToolVisibility(ctx context.Context, id int64, visible bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.approved[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.Visible = visible
	return nil
}

func (m *memStore) DeleteApprovedTool(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.approved[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.approved, id)
	return nil
}

func (m *memStore) UpdateApprovedTool(ctx context.Context, id int64, fields store.ApprovedToolFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.approved[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.Name = fields.Name
	item.URL = fields.URL
	item.Description = fields.Description
	item.Icon = fields.Icon
	item.PhaseNumber = fields.PhaseNumber
	item.PhaseTitle = fields.PhaseTitle
	item.SectionTitle = fields.SectionTitle
	item.UseCase = fields.UseCase
	return nil
}

type fakeNotifier struct {
	configured bool
	calls      []string // approval URLs passed in
	err        error
}

func (f *fakeNotifier) IsConfigured() bool { return f.configured }

func (f *fakeNotifier) NotifySubmission(submission store.Submission, approvalURL string) error {
	f.calls = append(f.calls, approvalURL)
	return f.err
}

type fakePublisher struct {
	configured bool
	result     publish.Result
	err        error
	calls      int
}

func (f *fakePublisher) IsConfigured() bool { return f.configured }

func (f *fakePublisher) Publish(ctx context.Context, submission store.Submission) (publish.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeTokens struct {
	mu      sync.Mutex
	nextTok int
	tokens  map[string]int64
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{tokens: make(map[string]int64)}
}

func (f *fakeTokens) Issue(ctx context.Context, submissionID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTok++
	tok := fmt.Sprintf("tok-%d", f.nextTok)
	f.tokens[tok] = submissionID
	return tok, nil
}

func (f *fakeTokens) Lookup(ctx context.Context, tok string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tokens[tok]
	if !ok {
		return 0, errors.New("not found")
	}
	return id, nil
}

func (f *fakeTokens) Revoke(ctx context.Context, tok string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, tok)
	return nil
}

func testPhases() []taxonomy.Phase {
	return []taxonomy.Phase{
		{
			Number:      1,
			Title:       "Discovery",
			Description: "Understand the problem space",
			Sections: []taxonomy.Section{
				{
					Title: "A. PRD Review",
					Tools: []taxonomy.Tool{
						{Name: "Doc Summarizer", Icon: taxonomy.IconGemini, URL: "https://example.com/doc", Description: "Summarizes PRDs"},
					},
				},
			},
		},
		{
			Number:      2,
			Title:       "Define",
			Description: "Frame the solution",
			Sections: []taxonomy.Section{
				{
					Title: "B. Journey Mapping",
					Tools: []taxonomy.Tool{
						{Name: "Journey Board", Icon: taxonomy.IconMiro, URL: "https://example.com/journey", Description: "Maps user journeys"},
					},
				},
			},
		},
	}
}

func newTestService(db DataStore) *Service {
	return NewService(Options{
		Taxonomy:      taxonomy.NewStore(testPhases()),
		Store:         db,
		AdminPassword: "correct-pw",
		PublicBaseURL: "https://tools.example.com",
	})
}

func validSubmit() SubmitRequest {
	return SubmitRequest{
		ToolName:         "Framer",
		URL:              "https://framer.com",
		Description:      "Interactive prototyping",
		Icon:             "gemini",
		PhaseNumber:      1,
		SectionTitle:     "A. PRD Review",
		SubmittedByEmail: "a@b.com",
	}
}

func domainStatus(t *testing.T, err error) int {
	t.Helper()
	var derr *DomainError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	return derr.Status
}

func TestSubmitValidatesRequiredFields(t *testing.T) {
	svc := newTestService(newMemStore())

	req := validSubmit()
	req.ToolName = ""
	req.SubmittedByEmail = ""

	_, err := svc.Submit(context.Background(), req)
	if got := domainStatus(t, err); got != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", got)
	}
	var derr *DomainError
	errors.As(err, &derr)
	missing, ok := derr.Details.([]string)
	if !ok || len(missing) != 2 {
		t.Fatalf("details = %v, want two missing fields", derr.Details)
	}
}

func TestSubmitWithoutDatabase(t *testing.T) {
	svc := newTestService(nil)

	_, err := svc.Submit(context.Background(), validSubmit())
	if got := domainStatus(t, err); got != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", got)
	}
	var derr *DomainError
	errors.As(err, &derr)
	if derr.Message != "Database not configured" {
		t.Fatalf("message = %q", derr.Message)
	}
}

func TestSubmitPersistsPendingAndNotifies(t *testing.T) {
	db := newMemStore()
	notifier := &fakeNotifier{configured: true}
	tokens := newFakeTokens()
	svc := NewService(Options{
		Taxonomy:      taxonomy.NewStore(testPhases()),
		Store:         db,
		Notifier:      notifier,
		Tokens:        tokens,
		AdminPassword: "correct-pw",
		PublicBaseURL: "https://tools.example.com",
	})

	submission, err := svc.Submit(context.Background(), validSubmit())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if submission.Status != store.StatusPending {
		t.Fatalf("status = %q, want pending", submission.Status)
	}
	if submission.PhaseTitle != "Discovery" {
		t.Fatalf("phase title = %q, want resolved from taxonomy", submission.PhaseTitle)
	}
	if len(notifier.calls) != 1 {
		t.Fatalf("notifier calls = %d, want 1", len(notifier.calls))
	}
	if notifier.calls[0] != "https://tools.example.com/api/approve?token=tok-1" {
		t.Fatalf("approval URL = %q", notifier.calls[0])
	}
}

func TestSubmitSucceedsWhenNotificationFails(t *testing.T) {
	db := newMemStore()
	notifier := &fakeNotifier{configured: true, err: errors.New("smtp down")}
	svc := NewService(Options{
		Taxonomy:      taxonomy.NewStore(testPhases()),
		Store:         db,
		Notifier:      notifier,
		AdminPassword: "correct-pw",
	})

	if _, err := svc.Submit(context.Background(), validSubmit()); err != nil {
		t.Fatalf("Submit() error = %v, want success despite notifier failure", err)
	}
}

func TestApproveRequiresCredential(t *testing.T) {
	db := newMemStore()
	svc := newTestService(db)
	submitted, _ := svc.Submit(context.Background(), validSubmit())

	_, err := svc.Approve(context.Background(), submitted.ID, "wrong-pw")
	if got := domainStatus(t, err); got != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", got)
	}

	// No state change on auth failure.
	after, err := db.GetPendingSubmission(context.Background(), submitted.ID)
	if err != nil || after.Status != store.StatusPending {
		t.Fatalf("submission mutated after failed auth: %+v err=%v", after, err)
	}
}

func TestAuthorizeFailsClosedWithoutSecret(t *testing.T) {
	svc := NewService(Options{
		Taxonomy: taxonomy.NewStore(testPhases()),
		Store:    newMemStore(),
	})
	_, err := svc.Approve(context.Background(), 1, "")
	if got := domainStatus(t, err); got != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 when no secret configured", got)
	}
}

func TestApproveRoundTrip(t *testing.T) {
	db := newMemStore()
	publisher := &fakePublisher{
		configured: true,
		result: publish.Result{
			Branch:   "add-tool-1-1700000000",
			Commit:   "abc1234",
			PRURL:    "https://github.com/acme/site/pull/12",
			PRNumber: 12,
		},
	}
	svc := NewService(Options{
		Taxonomy:      taxonomy.NewStore(testPhases()),
		Store:         db,
		Publisher:     publisher,
		AdminPassword: "correct-pw",
	})

	submitted, _ := svc.Submit(context.Background(), validSubmit())
	result, err := svc.Approve(context.Background(), submitted.ID, "correct-pw")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if result.PRNumber != 12 {
		t.Fatalf("PRNumber = %d, want 12", result.PRNumber)
	}
	if publisher.calls != 1 {
		t.Fatalf("publisher calls = %d, want 1", publisher.calls)
	}

	visible, _ := db.ListVisibleApprovedTools(context.Background())
	if len(visible) != 1 {
		t.Fatalf("visible approved tools = %d, want 1", len(visible))
	}
	tool := visible[0]
	req := validSubmit()
	if tool.Name != req.ToolName || tool.URL != req.URL || tool.Description != req.Description ||
		tool.Icon != req.Icon || tool.PhaseNumber != req.PhaseNumber || tool.SectionTitle != req.SectionTitle {
		t.Fatalf("approved tool fields do not match submission: %+v", tool)
	}
	if tool.ApprovedBy != "admin" {
		t.Fatalf("approved_by = %q, want admin", tool.ApprovedBy)
	}
	if tool.SubmissionID == nil || *tool.SubmissionID != submitted.ID {
		t.Fatalf("submission_id = %v, want %d", tool.SubmissionID, submitted.ID)
	}

	// Terminal: a second approve sees no pending row.
	_, err = svc.Approve(context.Background(), submitted.ID, "correct-pw")
	if got := domainStatus(t, err); got != http.StatusNotFound {
		t.Fatalf("re-approve status = %d, want 404", got)
	}
	visible, _ = db.ListVisibleApprovedTools(context.Background())
	if len(visible) != 1 {
		t.Fatalf("re-approve must not double-insert, got %d rows", len(visible))
	}
}

func TestApproveProceedsWhenPublishFails(t *testing.T) {
	db := newMemStore()
	publisher := &fakePublisher{configured: true, err: errors.New("remote unreachable")}
	svc := NewService(Options{
		Taxonomy:      taxonomy.NewStore(testPhases()),
		Store:         db,
		Publisher:     publisher,
		AdminPassword: "correct-pw",
	})

	submitted, _ := svc.Submit(context.Background(), validSubmit())
	result, err := svc.Approve(context.Background(), submitted.ID, "correct-pw")
	if err != nil {
		t.Fatalf("Approve() error = %v, want success despite publish failure", err)
	}
	if result.PRURL != "" || result.PRNumber != 0 {
		t.Fatalf("expected empty publish metadata, got %+v", result)
	}

	visible, _ := db.ListVisibleApprovedTools(context.Background())
	if len(visible) != 1 {
		t.Fatalf("approval should still insert the tool, got %d rows", len(visible))
	}
}

func TestApproveByToken(t *testing.T) {
	db := newMemStore()
	tokens := newFakeTokens()
	notifier := &fakeNotifier{configured: true}
	svc := NewService(Options{
		Taxonomy:      taxonomy.NewStore(testPhases()),
		Store:         db,
		Notifier:      notifier,
		Tokens:        tokens,
		AdminPassword: "correct-pw",
		PublicBaseURL: "https://tools.example.com",
	})

	submitted, _ := svc.Submit(context.Background(), validSubmit())
	result, err := svc.ApproveByToken(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("ApproveByToken() error = %v", err)
	}
	if result.Submission.ID != submitted.ID {
		t.Fatalf("approved submission %d, want %d", result.Submission.ID, submitted.ID)
	}

	visible, _ := db.ListVisibleApprovedTools(context.Background())
	if len(visible) != 1 || visible[0].ApprovedBy != "email-link" {
		t.Fatalf("expected one tool approved by email-link, got %+v", visible)
	}

	// Token is single-use.
	if _, err := svc.ApproveByToken(context.Background(), "tok-1"); err == nil {
		t.Fatal("expected reused token to fail")
	}
}

func TestApproveByUnknownToken(t *testing.T) {
	svc := NewService(Options{
		Taxonomy: taxonomy.NewStore(testPhases()),
		Store:    newMemStore(),
		Tokens:   newFakeTokens(),
	})
	_, err := svc.ApproveByToken(context.Background(), "bogus")
	if got := domainStatus(t, err); got != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", got)
	}
}

func TestRejectRecordsReason(t *testing.T) {
	db := newMemStore()
	svc := newTestService(db)
	submitted, _ := svc.Submit(context.Background(), validSubmit())

	if err := svc.Reject(context.Background(), submitted.ID, "", "correct-pw"); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}

	rejected, _ := db.ListSubmissionsByStatus(context.Background(), store.StatusRejected)
	if len(rejected) != 1 {
		t.Fatalf("rejected = %d, want 1", len(rejected))
	}
	if rejected[0].RejectionReason == nil || *rejected[0].RejectionReason != "No reason provided" {
		t.Fatalf("rejection reason = %v, want default placeholder", rejected[0].RejectionReason)
	}
	if rejected[0].ReviewedAt == nil {
		t.Fatal("reviewed_at must be set on terminal transition")
	}

	// No approved row for rejections.
	visible, _ := db.ListVisibleApprovedTools(context.Background())
	if len(visible) != 0 {
		t.Fatalf("reject must not create approved tools, got %d", len(visible))
	}
}

func TestHideShowDeleteLifecycle(t *testing.T) {
	db := newMemStore()
	svc := newTestService(db)
	submitted, _ := svc.Submit(context.Background(), validSubmit())
	if _, err := svc.Approve(context.Background(), submitted.ID, "correct-pw"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	tools, _ := svc.AllApprovedTools(context.Background())
	toolID := tools[0].ID

	if err := svc.HideTool(context.Background(), toolID, "wrong-pw"); err == nil {
		t.Fatal("hide with bad credential must fail")
	}
	if err := svc.HideTool(context.Background(), toolID, "correct-pw"); err != nil {
		t.Fatalf("HideTool() error = %v", err)
	}
	visible, _ := db.ListVisibleApprovedTools(context.Background())
	if len(visible) != 0 {
		t.Fatal("hidden tool still visible")
	}

	if err := svc.ShowTool(context.Background(), toolID, "correct-pw"); err != nil {
		t.Fatalf("ShowTool() error = %v", err)
	}
	visible, _ = db.ListVisibleApprovedTools(context.Background())
	if len(visible) != 1 {
		t.Fatal("shown tool not visible")
	}

	if err := svc.DeleteTool(context.Background(), toolID, "correct-pw"); err != nil {
		t.Fatalf("DeleteTool() error = %v", err)
	}
	if err := svc.DeleteTool(context.Background(), toolID, "correct-pw"); err == nil {
		t.Fatal("deleting a missing tool must fail")
	}
}

func TestAddAndEditTool(t *testing.T) {
	db := newMemStore()
	svc := newTestService(db)

	fields := store.ApprovedToolFields{
		Name:         "Whiteboard AI",
		URL:          "https://example.com/wb",
		Description:  "Clusters sticky notes",
		Icon:         "miro",
		PhaseNumber:  2,
		SectionTitle: "B. Journey Mapping",
	}
	added, err := svc.AddTool(context.Background(), fields, "correct-pw")
	if err != nil {
		t.Fatalf("AddTool() error = %v", err)
	}
	if added.SubmissionID != nil {
		t.Fatal("directly added tool must have no submission reference")
	}
	if added.PhaseTitle != "Define" {
		t.Fatalf("phase title = %q, want resolved from taxonomy", added.PhaseTitle)
	}

	fields.Description = "Clusters and themes sticky notes"
	fields.PhaseTitle = "Define"
	if err := svc.EditTool(context.Background(), added.ID, fields, "correct-pw"); err != nil {
		t.Fatalf("EditTool() error = %v", err)
	}
	tools, _ := svc.AllApprovedTools(context.Background())
	if tools[0].Description != "Clusters and themes sticky notes" {
		t.Fatalf("edit did not persist: %+v", tools[0])
	}

	_, err = svc.AddTool(context.Background(), store.ApprovedToolFields{}, "correct-pw")
	if got := domainStatus(t, err); got != http.StatusBadRequest {
		t.Fatalf("AddTool with empty fields status = %d, want 400", got)
	}
}

func TestMergedPhasesIncludeApprovedAndDropOrphans(t *testing.T) {
	db := newMemStore()
	svc := newTestService(db)

	submitted, _ := svc.Submit(context.Background(), validSubmit())
	if _, err := svc.Approve(context.Background(), submitted.ID, "correct-pw"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	// Orphan: section title matches nothing in the static tree.
	if _, err := db.InsertApprovedTool(context.Background(), store.ApprovedTool{
		Name:         "Ghost Tool",
		PhaseNumber:  1,
		SectionTitle: "Z. Gone",
		ApprovedBy:   "admin",
	}); err != nil {
		t.Fatalf("seed orphan: %v", err)
	}

	phases, err := svc.Phases(context.Background(), merge.Filters{})
	if err != nil {
		t.Fatalf("Phases() error = %v", err)
	}

	var names []string
	for _, phase := range phases {
		for _, section := range phase.Sections {
			for _, tool := range section.Tools {
				names = append(names, tool.Name)
			}
		}
	}
	found := false
	for _, name := range names {
		if name == "Ghost Tool" {
			t.Fatal("orphaned tool leaked into merged output")
		}
		if name == "Framer" {
			found = true
		}
	}
	if !found {
		t.Fatalf("approved tool missing from merge: %v", names)
	}
}

func TestStatsCountMergedTools(t *testing.T) {
	db := newMemStore()
	svc := newTestService(db)
	submitted, _ := svc.Submit(context.Background(), validSubmit())
	if _, err := svc.Approve(context.Background(), submitted.ID, "correct-pw"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalTools != 3 {
		t.Fatalf("TotalTools = %d, want 3 (two static plus one approved)", stats.TotalTools)
	}
	if stats.AverageToolsPerPhase != "1.50" {
		t.Fatalf("AverageToolsPerPhase = %q, want 1.50", stats.AverageToolsPerPhase)
	}
}

func TestAdminStats(t *testing.T) {
	db := newMemStore()
	svc := newTestService(db)
	first, _ := svc.Submit(context.Background(), validSubmit())
	second := validSubmit()
	second.ToolName = "Sketcher"
	if _, err := svc.Submit(context.Background(), second); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := svc.Approve(context.Background(), first.ID, "correct-pw"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	stats, err := svc.AdminStats(context.Background())
	if err != nil {
		t.Fatalf("AdminStats() error = %v", err)
	}
	if stats.ByStatus[store.StatusPending] != 1 || stats.ByStatus[store.StatusApproved] != 1 {
		t.Fatalf("ByStatus = %v", stats.ByStatus)
	}
	if stats.ByPhase["Discovery"] != 1 {
		t.Fatalf("ByPhase = %v", stats.ByPhase)
	}
}
