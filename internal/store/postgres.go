package store

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const submissionColumns = `
	id, name, url, description, icon,
	phase_number, phase_title, section_title, use_case,
	submitted_by_name, submitted_by_email,
	status, submitted_at, reviewed_at, rejection_reason
`

func scanSubmission(row interface{ Scan(...any) error }) (Submission, error) {
	var item Submission
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.URL,
		&item.Description,
		&item.Icon,
		&item.PhaseNumber,
		&item.PhaseTitle,
		&item.SectionTitle,
		&item.UseCase,
		&item.SubmittedByName,
		&item.SubmittedByEmail,
		&item.Status,
		&item.SubmittedAt,
		&item.ReviewedAt,
		&item.RejectionReason,
	)
	return item, err
}

func (s *PostgresStore) InsertSubmission(ctx context.Context, item Submission) (Submission, error) {
	const query = `
		INSERT INTO submitted_tools (
			name, url, description, icon,
			phase_number, phase_title, section_title, use_case,
			submitted_by_name, submitted_by_email
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + submissionColumns
	row := s.db.QueryRowContext(ctx, query,
		item.Name,
		item.URL,
		item.Description,
		item.Icon,
		item.PhaseNumber,
		item.PhaseTitle,
		item.SectionTitle,
		item.UseCase,
		item.SubmittedByName,
		item.SubmittedByEmail,
	)
	inserted, err := scanSubmission(row)
	if err != nil {
		return Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	return inserted, nil
}

func (s *PostgresStore) ListSubmissionsByStatus(ctx context.Context, status string) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+submissionColumns+`
		FROM submitted_tools
		WHERE status = $1
		ORDER BY submitted_at DESC
	`, status)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	items := make([]Submission, 0)
	for rows.Next() {
		item, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CountSubmissionsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM submitted_tools GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("count submissions by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

func (s *PostgresStore) CountPendingByPhaseTitle(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT phase_title, COUNT(*)
		FROM submitted_tools
		WHERE status = 'pending'
		GROUP BY phase_title
	`)
	if err != nil {
		return nil, fmt.Errorf("count pending by phase: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var phaseTitle string
		var count int
		if err := rows.Scan(&phaseTitle, &count); err != nil {
			return nil, fmt.Errorf("scan phase count: %w", err)
		}
		counts[phaseTitle] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate phase counts: %w", err)
	}
	return counts, nil
}

// GetPendingSubmission loads a submission only while it is still pending.
// Approved or rejected rows report sql.ErrNoRows, which keeps approve and
// reject at-most-once.
func (s *PostgresStore) GetPendingSubmission(ctx context.Context, id int64) (Submission, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+submissionColumns+`
		FROM submitted_tools
		WHERE id = $1 AND status = 'pending'
	`, id)
	return scanSubmission(row)
}

// SetSubmissionStatus transitions a pending submission to approved or
// rejected. The status='pending' predicate is the optimistic guard: a
// concurrent transition that already won leaves zero rows to update and the
// caller sees sql.ErrNoRows.
func (s *PostgresStore) SetSubmissionStatus(ctx context.Context, id int64, status, rejectionReason string) error {
	var reason any
	if rejectionReason != "" {
		reason = rejectionReason
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE submitted_tools
		SET status = $2, reviewed_at = NOW(), rejection_reason = $3
		WHERE id = $1 AND status = 'pending'
	`, id, status, reason)
	if err != nil {
		return fmt.Errorf("set submission status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set submission status rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const approvedColumns = `
	id, submission_id, name, url, description, icon,
	phase_number, phase_title, section_title, use_case,
	COALESCE(pr_url, ''), COALESCE(pr_number, 0),
	approved_by, approved_at, visible
`

func scanApprovedTool(row interface{ Scan(...any) error }) (ApprovedTool, error) {
	var item ApprovedTool
	err := row.Scan(
		&item.ID,
		&item.SubmissionID,
		&item.Name,
		&item.URL,
		&item.Description,
		&item.Icon,
		&item.PhaseNumber,
		&item.PhaseTitle,
		&item.SectionTitle,
		&item.UseCase,
		&item.PRURL,
		&item.PRNumber,
		&item.ApprovedBy,
		&item.ApprovedAt,
		&item.Visible,
	)
	return item, err
}

func (s *PostgresStore) InsertApprovedTool(ctx context.Context, item ApprovedTool) (ApprovedTool, error) {
	var prURL, prNumber any
	if item.PRURL != "" {
		prURL = item.PRURL
	}
	if item.PRNumber != 0 {
		prNumber = item.PRNumber
	}
	const query = `
		INSERT INTO approved_tools (
			submission_id, name, url, description, icon,
			phase_number, phase_title, section_title, use_case,
			pr_url, pr_number, approved_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + approvedColumns
	row := s.db.QueryRowContext(ctx, query,
		item.SubmissionID,
		item.Name,
		item.URL,
		item.Description,
		item.Icon,
		item.PhaseNumber,
		item.PhaseTitle,
		item.SectionTitle,
		item.UseCase,
		prURL,
		prNumber,
		item.ApprovedBy,
	)
	inserted, err := scanApprovedTool(row)
	if err != nil {
		return ApprovedTool{}, fmt.Errorf("insert approved tool: %w", err)
	}
	return inserted, nil
}

func (s *PostgresStore) ListApprovedTools(ctx context.Context) ([]ApprovedTool, error) {
	return s.listApproved(ctx, `
		SELECT `+approvedColumns+`
		FROM approved_tools
		ORDER BY approved_at DESC
	`)
}

// ListVisibleApprovedTools returns visible rows oldest-first so the merge
// appends them in approval order.
func (s *PostgresStore) ListVisibleApprovedTools(ctx context.Context) ([]ApprovedTool, error) {
	return s.listApproved(ctx, `
		SELECT `+approvedColumns+`
		FROM approved_tools
		WHERE visible
		ORDER BY approved_at ASC
	`)
}

func (s *PostgresStore) listApproved(ctx context.Context, query string) ([]ApprovedTool, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list approved tools: %w", err)
	}
	defer rows.Close()

	items := make([]ApprovedTool, 0)
	for rows.Next() {
		item, err := scanApprovedTool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approved tool: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approved tools: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) SetApprovedToolVisibility(ctx context.Context, id int64, visible bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE approved_tools SET visible = $2 WHERE id = $1
	`, id, visible)
	if err != nil {
		return fmt.Errorf("set tool visibility: %w", err)
	}
	return requireRow(result)
}

// DeleteApprovedTool permanently removes a row. There is no soft delete.
func (s *PostgresStore) DeleteApprovedTool(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM approved_tools WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete approved tool: %w", err)
	}
	return requireRow(result)
}

func (s *PostgresStore) UpdateApprovedTool(ctx context.Context, id int64, fields ApprovedToolFields) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE approved_tools
		SET name=$2, url=$3, description=$4, icon=$5,
		    phase_number=$6, phase_title=$7, section_title=$8, use_case=$9
		WHERE id=$1
	`, id,
		fields.Name,
		fields.URL,
		fields.Description,
		fields.Icon,
		fields.PhaseNumber,
		fields.PhaseTitle,
		fields.SectionTitle,
		fields.UseCase,
	)
	if err != nil {
		return fmt.Errorf("update approved tool: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
