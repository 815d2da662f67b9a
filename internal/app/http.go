package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"designflow/api/internal/merge"
	"designflow/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   "1.0.0",
			"service":   "design-workflow-api",
		})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"success": status == "ready",
			"status":  status,
			"checks":  checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/approve" {
		s.handleApproveLink(w, r)
		return
	}

	segments := splitPath(r.URL.Path)
	if len(segments) < 2 || segments[0] != "api" {
		writeError(w, http.StatusNotFound, "Not found", nil)
		return
	}

	switch {
	case r.Method == http.MethodGet && len(segments) == 2 && segments[1] == "phases":
		s.handlePhases(w, r)
	case r.Method == http.MethodGet && len(segments) == 3 && segments[1] == "phases":
		s.handlePhaseByNumber(w, r, segments[2])
	case r.Method == http.MethodGet && len(segments) == 2 && segments[1] == "tools":
		s.handleTools(w, r)
	case r.Method == http.MethodGet && len(segments) == 3 && segments[1] == "tools":
		s.handleToolByName(w, r, segments[2])
	case r.Method == http.MethodGet && len(segments) == 2 && segments[1] == "sections":
		s.handleSections(w, r)
	case r.Method == http.MethodGet && len(segments) == 2 && segments[1] == "search":
		s.handleSearch(w, r)
	case r.Method == http.MethodGet && len(segments) == 2 && segments[1] == "stats":
		s.handleStats(w, r)
	case r.Method == http.MethodPost && len(segments) == 2 && segments[1] == "submit":
		s.handleSubmit(w, r)
	case segments[1] == "admin":
		s.handleAdmin(w, r, segments[2:])
	default:
		writeError(w, http.StatusNotFound, "Not found", nil)
	}
}

func (s *HTTPServer) handlePhases(w http.ResponseWriter, r *http.Request) {
	filters := merge.Filters{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Icon:   strings.TrimSpace(r.URL.Query().Get("icon")),
	}
	phases, err := s.service.Phases(r.Context(), filters)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccessCount(w, phases, len(phases))
}

func (s *HTTPServer) handlePhaseByNumber(w http.ResponseWriter, r *http.Request, raw string) {
	number, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid phase ID", nil)
		return
	}
	phase, err := s.service.PhaseByNumber(r.Context(), number)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccess(w, phase)
}

func (s *HTTPServer) handleTools(w http.ResponseWriter, r *http.Request) {
	filters := merge.ListFilters{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Icon:   strings.TrimSpace(r.URL.Query().Get("icon")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("phase")); raw != "" {
		if number, err := strconv.Atoi(raw); err == nil {
			filters.Phase = &number
		}
	}
	tools, err := s.service.Tools(r.Context(), filters)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccessCount(w, tools, len(tools))
}

func (s *HTTPServer) handleToolByName(w http.ResponseWriter, r *http.Request, raw string) {
	name, err := url.PathUnescape(raw)
	if err != nil {
		name = raw
	}
	tool, err := s.service.ToolByName(r.Context(), name)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccess(w, tool)
}

func (s *HTTPServer) handleSections(w http.ResponseWriter, r *http.Request) {
	var phaseNumber *int
	if raw := strings.TrimSpace(r.URL.Query().Get("phase")); raw != "" {
		if number, err := strconv.Atoi(raw); err == nil {
			phaseNumber = &number
		}
	}
	sections, err := s.service.Sections(r.Context(), phaseNumber)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccessCount(w, sections, len(sections))
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Search query is required", nil)
		return
	}
	results, err := s.service.SearchAll(r.Context(), query)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"query":        query,
		"results":      results,
		"totalResults": results.Total(),
	})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccess(w, stats)
}

func (s *HTTPServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body SubmitRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if _, err := s.service.Submit(r.Context(), body); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Submission received! You will be notified once it is approved.",
	})
}

func (s *HTTPServer) handleAdmin(w http.ResponseWriter, r *http.Request, segments []string) {
	switch {
	case r.Method == http.MethodGet && len(segments) == 1 && segments[0] == "submissions":
		submissions, err := s.service.PendingSubmissions(r.Context())
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeSuccessCount(w, submissions, len(submissions))

	case r.Method == http.MethodGet && len(segments) == 1 && segments[0] == "stats":
		stats, err := s.service.AdminStats(r.Context())
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeSuccess(w, stats)

	case r.Method == http.MethodGet && len(segments) == 1 && segments[0] == "tools":
		tools, err := s.service.AllApprovedTools(r.Context())
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeSuccessCount(w, tools, len(tools))

	case r.Method == http.MethodPost && len(segments) == 1 && segments[0] == "approve":
		s.handleAdminApprove(w, r)

	case r.Method == http.MethodPost && len(segments) == 1 && segments[0] == "reject":
		s.handleAdminReject(w, r)

	case r.Method == http.MethodPost && len(segments) == 2 && segments[0] == "tools":
		s.handleAdminToolAction(w, r, segments[1])

	default:
		writeError(w, http.StatusNotFound, "Not found", nil)
	}
}

func (s *HTTPServer) handleAdminApprove(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SubmissionID  int64  `json:"submissionId"`
		AdminPassword string `json:"adminPassword"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	result, err := s.service.Approve(r.Context(), body.SubmissionID, body.AdminPassword)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	response := map[string]any{
		"success":  true,
		"message":  "Submission approved",
		"prUrl":    nil,
		"prNumber": nil,
	}
	if result.PRURL != "" {
		response["prUrl"] = result.PRURL
	}
	if result.PRNumber != 0 {
		response["prNumber"] = result.PRNumber
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleAdminReject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SubmissionID  int64  `json:"submissionId"`
		Reason        string `json:"reason"`
		AdminPassword string `json:"adminPassword"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	if err := s.service.Reject(r.Context(), body.SubmissionID, body.Reason, body.AdminPassword); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Submission rejected",
	})
}

func (s *HTTPServer) handleAdminToolAction(w http.ResponseWriter, r *http.Request, action string) {
	var body struct {
		ToolID        int64  `json:"toolId"`
		AdminPassword string `json:"adminPassword"`
		store.ApprovedToolFields
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	switch action {
	case "hide":
		if err := s.service.HideTool(r.Context(), body.ToolID, body.AdminPassword); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Tool hidden"})
	case "show":
		if err := s.service.ShowTool(r.Context(), body.ToolID, body.AdminPassword); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Tool visible"})
	case "delete":
		if err := s.service.DeleteTool(r.Context(), body.ToolID, body.AdminPassword); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Tool deleted"})
	case "add":
		inserted, err := s.service.AddTool(r.Context(), body.ApprovedToolFields, body.AdminPassword)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": inserted})
	case "edit":
		if err := s.service.EditTool(r.Context(), body.ToolID, body.ApprovedToolFields, body.AdminPassword); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Tool updated"})
	default:
		writeError(w, http.StatusNotFound, "Not found", nil)
	}
}

// handleApproveLink serves the one-click email approval. The response is an
// HTML page because the moderator lands here from their mail client.
func (s *HTTPServer) handleApproveLink(w http.ResponseWriter, r *http.Request) {
	tok := strings.TrimSpace(r.URL.Query().Get("token"))
	if tok == "" {
		writeHTML(w, http.StatusBadRequest, approvalErrorPage("Missing approval token"))
		return
	}
	result, err := s.service.ApproveByToken(r.Context(), tok)
	if err != nil {
		status, message, _ := mapError(err)
		writeHTML(w, status, approvalErrorPage(message))
		return
	}
	writeHTML(w, http.StatusOK, approvalSuccessPage(result.Submission))
}

const approvalPageStyle = `
	body {
		font-family: 'Source Sans 3', sans-serif;
		background-color: #0A1628;
		color: white;
		display: flex;
		align-items: center;
		justify-content: center;
		min-height: 100vh;
		margin: 0;
		padding: 20px;
	}
	.container { text-align: center; max-width: 500px; }
	h1 { color: #FFA60C; }
	a {
		display: inline-block;
		margin-top: 20px;
		background-color: #FFA60C;
		color: white;
		padding: 12px 24px;
		text-decoration: none;
		border-radius: 4px;
	}
	a:hover { background-color: #ff8c00; }
`

func approvalSuccessPage(submission store.Submission) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
  <head>
    <title>Tool Approved</title>
    <style>%s</style>
  </head>
  <body>
    <div class="container">
      <h1>&#10003; Tool Approved!</h1>
      <p><strong>%s</strong> has been successfully added to the Design Workflow.</p>
      <p>It will appear in the <strong>%s</strong> phase under <strong>%s</strong>.</p>
      <a href="/">View Site</a>
    </div>
  </body>
</html>`,
		approvalPageStyle,
		html.EscapeString(submission.Name),
		html.EscapeString(submission.PhaseTitle),
		html.EscapeString(submission.SectionTitle),
	)
}

func approvalErrorPage(message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
  <head>
    <title>Approval Failed</title>
    <style>%s</style>
  </head>
  <body>
    <div class="container">
      <h1>Approval Failed</h1>
      <p>%s</p>
      <a href="/">Back to Site</a>
    </div>
  </body>
</html>`,
		approvalPageStyle,
		html.EscapeString(message),
	)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	header.Set("Cache-Control", "no-store")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeHTML(w http.ResponseWriter, status int, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(page))
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
	})
}

func writeSuccessCount(w http.ResponseWriter, data any, count int) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
		"count":   count,
	})
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	response := map[string]any{
		"success": false,
		"error":   message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, message, details := mapError(err)
	writeError(w, status, message, details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "Not found", nil
	}
	return http.StatusInternalServerError, "Server error", nil
}
