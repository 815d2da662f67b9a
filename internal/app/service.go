// Package app holds the submission lifecycle service and its HTTP surface.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"designflow/api/internal/merge"
	"designflow/api/internal/publish"
	"designflow/api/internal/search"
	"designflow/api/internal/store"
	"designflow/api/internal/taxonomy"
)

// DataStore is the durable backend for submissions and approved tools.
type DataStore interface {
	Ping(ctx context.Context) error
	InsertSubmission(ctx context.Context, item store.Submission) (store.Submission, error)
	ListSubmissionsByStatus(ctx context.Context, status string) ([]store.Submission, error)
	CountSubmissionsByStatus(ctx context.Context) (map[string]int, error)
	CountPendingByPhaseTitle(ctx context.Context) (map[string]int, error)
	GetPendingSubmission(ctx context.Context, id int64) (store.Submission, error)
	SetSubmissionStatus(ctx context.Context, id int64, status, rejectionReason string) error
	InsertApprovedTool(ctx context.Context, item store.ApprovedTool) (store.ApprovedTool, error)
	ListApprovedTools(ctx context.Context) ([]store.ApprovedTool, error)
	ListVisibleApprovedTools(ctx context.Context) ([]store.ApprovedTool, error)
	SetApprovedToolVisibility(ctx context.Context, id int64, visible bool) error
	DeleteApprovedTool(ctx context.Context, id int64) error
	UpdateApprovedTool(ctx context.Context, id int64, fields store.ApprovedToolFields) error
}

// Notifier sends the new-submission email. Failures never fail the submit.
type Notifier interface {
	IsConfigured() bool
	NotifySubmission(submission store.Submission, approvalURL string) error
}

// Publisher pushes an approved tool toward the site source repository.
// Failures never fail the approval.
type Publisher interface {
	IsConfigured() bool
	Publish(ctx context.Context, submission store.Submission) (publish.Result, error)
}

// TokenStore issues and resolves one-click email approval tokens.
type TokenStore interface {
	Issue(ctx context.Context, submissionID int64) (string, error)
	Lookup(ctx context.Context, token string) (int64, error)
	Revoke(ctx context.Context, token string) error
}

// Options wires the service's collaborators. Store, Notifier, Publisher,
// Tokens and Search may each be nil; the service degrades per collaborator.
type Options struct {
	Taxonomy      *taxonomy.Store
	Store         DataStore
	Notifier      Notifier
	Publisher     Publisher
	Tokens        TokenStore
	Search        *search.Service
	AdminPassword string
	PublicBaseURL string
}

type Service struct {
	taxonomy      *taxonomy.Store
	store         DataStore
	notifier      Notifier
	publisher     Publisher
	tokens        TokenStore
	search        *search.Service
	adminPassword string
	publicBaseURL string
}

func NewService(opts Options) *Service {
	tax := opts.Taxonomy
	if tax == nil {
		tax = taxonomy.Default()
	}
	return &Service{
		taxonomy:      tax,
		store:         opts.Store,
		notifier:      opts.Notifier,
		publisher:     opts.Publisher,
		tokens:        opts.Tokens,
		search:        opts.Search,
		adminPassword: opts.AdminPassword,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
	}
}

// authorize checks the per-call admin credential. An unset secret fails
// closed: no password grants access until ADMIN_PASSWORD is configured.
func (s *Service) authorize(password string) error {
	if s.adminPassword == "" || password != s.adminPassword {
		return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	}
	return nil
}

func (s *Service) requireStore() error {
	if s.store == nil {
		return domainError(http.StatusInternalServerError, "STORAGE_UNAVAILABLE", "Database not configured", nil)
	}
	return nil
}

// Ping reports backend connectivity for the readiness probe.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.requireStore(); err != nil {
		return err
	}
	return s.store.Ping(ctx)
}

// mergedPhases overlays visible approved tools onto the static taxonomy.
// Without a database the static tree is served alone.
func (s *Service) mergedPhases(ctx context.Context) ([]merge.Phase, error) {
	var approved []store.ApprovedTool
	if s.store != nil {
		rows, err := s.store.ListVisibleApprovedTools(ctx)
		if err != nil {
			return nil, err
		}
		approved = rows
	}
	phases, orphans := merge.Merge(s.taxonomy, approved)
	for _, orphan := range orphans {
		log.Printf("merge: dropping approved tool %d (%s): no section %q in phase %d",
			orphan.ID, orphan.Name, orphan.SectionTitle, orphan.PhaseNumber)
	}
	return phases, nil
}

// Phases returns the merged taxonomy with optional search/icon filters.
func (s *Service) Phases(ctx context.Context, filters merge.Filters) ([]merge.Phase, error) {
	phases, err := s.mergedPhases(ctx)
	if err != nil {
		return nil, err
	}
	return merge.Filter(phases, filters), nil
}

// PhaseByNumber returns a single merged phase.
func (s *Service) PhaseByNumber(ctx context.Context, number int) (merge.Phase, error) {
	phases, err := s.mergedPhases(ctx)
	if err != nil {
		return merge.Phase{}, err
	}
	for _, phase := range phases {
		if phase.Number == number {
			return phase, nil
		}
	}
	return merge.Phase{}, domainError(http.StatusNotFound, "NOT_FOUND", "Phase not found", nil)
}

// Tools returns the flattened merged tool list. When a search term is given
// and the search index is healthy the index answers; otherwise the
// in-memory substring scan does.
func (s *Service) Tools(ctx context.Context, filters merge.ListFilters) ([]merge.FlatTool, error) {
	phases, err := s.mergedPhases(ctx)
	if err != nil {
		return nil, err
	}
	if filters.Search != "" && s.search != nil && s.search.Enabled() {
		query := search.Query{Text: filters.Search, Icon: filters.Icon}
		if filters.Phase != nil {
			query.PhaseNumber = *filters.Phase
		}
		if records, _, ok := s.search.Search(query); ok {
			return recordsToFlatTools(records), nil
		}
	}
	return merge.ToolList(phases, filters), nil
}

func recordsToFlatTools(records []search.Record) []merge.FlatTool {
	tools := make([]merge.FlatTool, 0, len(records))
	for _, record := range records {
		tool := merge.FlatTool{
			Phase:       record.Phase,
			PhaseNumber: record.PhaseNumber,
			Section:     record.Section,
			Source:      record.Source,
		}
		tool.Name = record.Name
		tool.Icon = taxonomy.Icon(record.Icon)
		tool.URL = record.URL
		tool.Description = record.Description
		tools = append(tools, tool)
	}
	return tools
}

// ToolByName returns the first merged tool with the given exact name.
func (s *Service) ToolByName(ctx context.Context, name string) (merge.FlatTool, error) {
	phases, err := s.mergedPhases(ctx)
	if err != nil {
		return merge.FlatTool{}, err
	}
	tool, ok := merge.FindTool(phases, name)
	if !ok {
		return merge.FlatTool{}, domainError(http.StatusNotFound, "NOT_FOUND", "Tool not found", nil)
	}
	return tool, nil
}

// Sections returns section summaries, optionally for one phase.
func (s *Service) Sections(ctx context.Context, phaseNumber *int) ([]merge.SectionSummary, error) {
	phases, err := s.mergedPhases(ctx)
	if err != nil {
		return nil, err
	}
	return merge.Sections(phases, phaseNumber), nil
}

// SearchAll runs the substring search across phases, sections and tools.
func (s *Service) SearchAll(ctx context.Context, query string) (merge.SearchResults, error) {
	phases, err := s.mergedPhases(ctx)
	if err != nil {
		return merge.SearchResults{}, err
	}
	return merge.Search(phases, query), nil
}

// Stats recomputes the aggregate view over the merged taxonomy.
func (s *Service) Stats(ctx context.Context) (merge.Stats, error) {
	phases, err := s.mergedPhases(ctx)
	if err != nil {
		return merge.Stats{}, err
	}
	return merge.ComputeStats(phases), nil
}

// SubmitRequest carries a tool proposal. ToolName and Name are aliases;
// either satisfies the required name field.
type SubmitRequest struct {
	ToolName         string `json:"toolName"`
	Name             string `json:"name"`
	URL              string `json:"url"`
	Description      string `json:"description"`
	Icon             string `json:"icon"`
	PhaseNumber      int    `json:"phaseNumber"`
	PhaseTitle       string `json:"phaseTitle"`
	SectionTitle     string `json:"sectionTitle"`
	UseCase          string `json:"useCase"`
	SubmittedByName  string `json:"submitterName"`
	SubmittedByEmail string `json:"email"`
}

func (r SubmitRequest) name() string {
	if r.ToolName != "" {
		return r.ToolName
	}
	return r.Name
}

func (r SubmitRequest) validate() error {
	var missing []string
	if strings.TrimSpace(r.name()) == "" {
		missing = append(missing, "toolName")
	}
	if strings.TrimSpace(r.URL) == "" {
		missing = append(missing, "url")
	}
	if r.PhaseNumber == 0 {
		missing = append(missing, "phaseNumber")
	}
	if strings.TrimSpace(r.SectionTitle) == "" {
		missing = append(missing, "sectionTitle")
	}
	if strings.TrimSpace(r.SubmittedByEmail) == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Missing required fields", missing)
	}
	return nil
}

// Submit persists a proposal as pending and best-effort notifies the
// moderator. The notification outcome never changes the response.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (store.Submission, error) {
	if err := req.validate(); err != nil {
		return store.Submission{}, err
	}
	if err := s.requireStore(); err != nil {
		return store.Submission{}, err
	}

	phaseTitle := req.PhaseTitle
	if phaseTitle == "" {
		if phase, ok := s.taxonomy.PhaseByNumber(req.PhaseNumber); ok {
			phaseTitle = phase.Title
		}
	}

	submission, err := s.store.InsertSubmission(ctx, store.Submission{
		Name:             strings.TrimSpace(req.name()),
		URL:              strings.TrimSpace(req.URL),
		Description:      req.Description,
		Icon:             req.Icon,
		PhaseNumber:      req.PhaseNumber,
		PhaseTitle:       phaseTitle,
		SectionTitle:     req.SectionTitle,
		UseCase:          req.UseCase,
		SubmittedByName:  req.SubmittedByName,
		SubmittedByEmail: req.SubmittedByEmail,
	})
	if err != nil {
		return store.Submission{}, err
	}

	s.notify(ctx, submission)
	return submission, nil
}

func (s *Service) notify(ctx context.Context, submission store.Submission) {
	if s.notifier == nil || !s.notifier.IsConfigured() {
		return
	}

	approvalURL := ""
	if s.tokens != nil {
		tok, err := s.tokens.Issue(ctx, submission.ID)
		if err != nil {
			log.Printf("submit: issue approval token for %d: %v", submission.ID, err)
		} else {
			approvalURL = fmt.Sprintf("%s/api/approve?token=%s", s.publicBaseURL, tok)
		}
	}

	if err := s.notifier.NotifySubmission(submission, approvalURL); err != nil {
		log.Printf("submit: notify for submission %d: %v", submission.ID, err)
	}
}

// ApproveResult carries the publish metadata alongside the acknowledgment.
type ApproveResult struct {
	Submission store.Submission
	PRURL      string
	PRNumber   int
}

// Approve transitions a pending submission to approved on behalf of an
// authenticated admin.
func (s *Service) Approve(ctx context.Context, submissionID int64, password string) (ApproveResult, error) {
	if err := s.authorize(password); err != nil {
		return ApproveResult{}, err
	}
	return s.approve(ctx, submissionID, "admin")
}

// ApproveByToken performs the same transition via an emailed one-click
// capability token. The token itself is the credential; it is revoked
// after use.
func (s *Service) ApproveByToken(ctx context.Context, tok string) (ApproveResult, error) {
	if s.tokens == nil {
		return ApproveResult{}, domainError(http.StatusNotFound, "NOT_FOUND", "Invalid or expired approval link", nil)
	}
	submissionID, err := s.tokens.Lookup(ctx, tok)
	if err != nil {
		return ApproveResult{}, domainError(http.StatusNotFound, "NOT_FOUND", "Invalid or expired approval link", nil)
	}
	result, err := s.approve(ctx, submissionID, "email-link")
	if err != nil {
		return ApproveResult{}, err
	}
	if err := s.tokens.Revoke(ctx, tok); err != nil {
		log.Printf("approve: revoke token for submission %d: %v", submissionID, err)
	}
	return result, nil
}

func (s *Service) approve(ctx context.Context, submissionID int64, approvedBy string) (ApproveResult, error) {
	if err := s.requireStore(); err != nil {
		return ApproveResult{}, err
	}

	submission, err := s.store.GetPendingSubmission(ctx, submissionID)
	if errors.Is(err, sql.ErrNoRows) {
		return ApproveResult{}, domainError(http.StatusNotFound, "NOT_FOUND", "Submission not found", nil)
	}
	if err != nil {
		return ApproveResult{}, err
	}

	// Publishing is best-effort: a failed branch or PR never blocks the
	// approval itself.
	var published publish.Result
	if s.publisher != nil && s.publisher.IsConfigured() {
		published, err = s.publisher.Publish(ctx, submission)
		if err != nil {
			log.Printf("approve: publish submission %d: %v", submissionID, err)
			published = publish.Result{}
		}
	}

	if err := s.store.SetSubmissionStatus(ctx, submissionID, store.StatusApproved, ""); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ApproveResult{}, domainError(http.StatusNotFound, "NOT_FOUND", "Submission not found", nil)
		}
		return ApproveResult{}, err
	}

	if _, err := s.store.InsertApprovedTool(ctx, store.ApprovedTool{
		SubmissionID: &submission.ID,
		Name:         submission.Name,
		URL:          submission.URL,
		Description:  submission.Description,
		Icon:         submission.Icon,
		PhaseNumber:  submission.PhaseNumber,
		PhaseTitle:   submission.PhaseTitle,
		SectionTitle: submission.SectionTitle,
		UseCase:      submission.UseCase,
		PRURL:        published.PRURL,
		PRNumber:     published.PRNumber,
		ApprovedBy:   approvedBy,
	}); err != nil {
		return ApproveResult{}, err
	}

	s.reindexSearch(ctx)
	return ApproveResult{Submission: submission, PRURL: published.PRURL, PRNumber: published.PRNumber}, nil
}

// Reject transitions a pending submission to rejected with a reason.
func (s *Service) Reject(ctx context.Context, submissionID int64, reason, password string) error {
	if err := s.authorize(password); err != nil {
		return err
	}
	if err := s.requireStore(); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		reason = "No reason provided"
	}
	if err := s.store.SetSubmissionStatus(ctx, submissionID, store.StatusRejected, reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainError(http.StatusNotFound, "NOT_FOUND", "Submission not found", nil)
		}
		return err
	}
	return nil
}

// PendingSubmissions lists the moderation queue, newest first.
func (s *Service) PendingSubmissions(ctx context.Context) ([]store.Submission, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	return s.store.ListSubmissionsByStatus(ctx, store.StatusPending)
}

// SubmissionStats is the admin moderation dashboard payload.
type SubmissionStats struct {
	ByStatus map[string]int `json:"byStatus"`
	ByPhase  map[string]int `json:"byPhase"`
}

func (s *Service) AdminStats(ctx context.Context) (SubmissionStats, error) {
	if err := s.requireStore(); err != nil {
		return SubmissionStats{}, err
	}
	byStatus, err := s.store.CountSubmissionsByStatus(ctx)
	if err != nil {
		return SubmissionStats{}, err
	}
	byPhase, err := s.store.CountPendingByPhaseTitle(ctx)
	if err != nil {
		return SubmissionStats{}, err
	}
	return SubmissionStats{ByStatus: byStatus, ByPhase: byPhase}, nil
}

// AllApprovedTools lists every approved row, hidden ones included.
func (s *Service) AllApprovedTools(ctx context.Context) ([]store.ApprovedTool, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	return s.store.ListApprovedTools(ctx)
}

func (s *Service) setVisibility(ctx context.Context, toolID int64, visible bool, password string) error {
	if err := s.authorize(password); err != nil {
		return err
	}
	if err := s.requireStore(); err != nil {
		return err
	}
	if err := s.store.SetApprovedToolVisibility(ctx, toolID, visible); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainError(http.StatusNotFound, "NOT_FOUND", "Tool not found", nil)
		}
		return err
	}
	s.reindexSearch(ctx)
	return nil
}

// HideTool removes an approved tool from public reads without deleting it.
func (s *Service) HideTool(ctx context.Context, toolID int64, password string) error {
	return s.setVisibility(ctx, toolID, false, password)
}

// ShowTool restores a hidden tool.
func (s *Service) ShowTool(ctx context.Context, toolID int64, password string) error {
	return s.setVisibility(ctx, toolID, true, password)
}

// DeleteTool permanently removes an approved tool.
func (s *Service) DeleteTool(ctx context.Context, toolID int64, password string) error {
	if err := s.authorize(password); err != nil {
		return err
	}
	if err := s.requireStore(); err != nil {
		return err
	}
	if err := s.store.DeleteApprovedTool(ctx, toolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainError(http.StatusNotFound, "NOT_FOUND", "Tool not found", nil)
		}
		return err
	}
	s.reindexSearch(ctx)
	return nil
}

func validateToolFields(fields store.ApprovedToolFields) error {
	var missing []string
	if strings.TrimSpace(fields.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(fields.URL) == "" {
		missing = append(missing, "url")
	}
	if fields.PhaseNumber == 0 {
		missing = append(missing, "phaseNumber")
	}
	if strings.TrimSpace(fields.SectionTitle) == "" {
		missing = append(missing, "sectionTitle")
	}
	if len(missing) > 0 {
		return domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Missing required fields", missing)
	}
	return nil
}

// AddTool inserts an approved tool directly, with no backing submission.
func (s *Service) AddTool(ctx context.Context, fields store.ApprovedToolFields, password string) (store.ApprovedTool, error) {
	if err := s.authorize(password); err != nil {
		return store.ApprovedTool{}, err
	}
	if err := validateToolFields(fields); err != nil {
		return store.ApprovedTool{}, err
	}
	if err := s.requireStore(); err != nil {
		return store.ApprovedTool{}, err
	}

	phaseTitle := fields.PhaseTitle
	if phaseTitle == "" {
		if phase, ok := s.taxonomy.PhaseByNumber(fields.PhaseNumber); ok {
			phaseTitle = phase.Title
		}
	}

	inserted, err := s.store.InsertApprovedTool(ctx, store.ApprovedTool{
		Name:         fields.Name,
		URL:          fields.URL,
		Description:  fields.Description,
		Icon:         fields.Icon,
		PhaseNumber:  fields.PhaseNumber,
		PhaseTitle:   phaseTitle,
		SectionTitle: fields.SectionTitle,
		UseCase:      fields.UseCase,
		ApprovedBy:   "admin",
	})
	if err != nil {
		return store.ApprovedTool{}, err
	}
	s.reindexSearch(ctx)
	return inserted, nil
}

// EditTool overwrites the editable fields of an approved tool.
func (s *Service) EditTool(ctx context.Context, toolID int64, fields store.ApprovedToolFields, password string) error {
	if err := s.authorize(password); err != nil {
		return err
	}
	if err := validateToolFields(fields); err != nil {
		return err
	}
	if err := s.requireStore(); err != nil {
		return err
	}
	if err := s.store.UpdateApprovedTool(ctx, toolID, fields); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainError(http.StatusNotFound, "NOT_FOUND", "Tool not found", nil)
		}
		return err
	}
	s.reindexSearch(ctx)
	return nil
}

// reindexSearch mirrors the merged taxonomy into the search index after
// any approved-tool change (fire-and-forget).
func (s *Service) reindexSearch(ctx context.Context) {
	if s.search == nil || !s.search.Enabled() {
		return
	}
	phases, err := s.mergedPhases(ctx)
	if err != nil {
		log.Printf("search: load merged taxonomy for reindex: %v", err)
		return
	}
	tools := merge.ToolList(phases, merge.ListFilters{})
	records := make([]search.Record, 0, len(tools))
	for i, tool := range tools {
		id := fmt.Sprintf("static-%d-%d", tool.PhaseNumber, i)
		if tool.Source == merge.SourceSubmitted {
			id = fmt.Sprintf("submitted-%d", tool.ID)
		}
		records = append(records, search.Record{
			ID:          id,
			Name:        tool.Name,
			Description: tool.Description,
			URL:         tool.URL,
			Icon:        string(tool.Icon),
			Phase:       tool.Phase,
			PhaseNumber: tool.PhaseNumber,
			Section:     tool.Section,
			Source:      tool.Source,
		})
	}
	s.search.ReindexAll(records)
}

// ReindexSearch pushes the current merged taxonomy into the search index.
// Called once at startup when Meilisearch is configured.
func (s *Service) ReindexSearch(ctx context.Context) {
	s.reindexSearch(ctx)
}
