// Package repository provides the PostgreSQL persistence layer of the
// lifecycle engine, plus a Redis read-through cache for the reference
// lookups (properties, users).
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"leaseflow/internal/common/database"
	apperrors "leaseflow/internal/common/errors"
	"leaseflow/internal/common/logger"
	"leaseflow/internal/models"
)

// Postgres implements the lifecycle Repository on top of PostgreSQL.
// Status-bearing columns live in regular columns; the document-shaped
// blocks (history, application data, metadata, payment) live in JSONB.
type Postgres struct {
	db     *sql.DB
	logger logger.Logger
}

// NewPostgres wraps an established database client.
func NewPostgres(client *database.PostgresClient, log logger.Logger) *Postgres {
	return &Postgres{
		db:     client.DB,
		logger: log.WithFields(map[string]interface{}{"component": "repository"}),
	}
}

const applicationColumns = `
	id, property_id, applicant_id, status, previous_status,
	status_history, application_data,
	score, score_breakdown, scored_at,
	rejection, info_request, conditional_approval, payment,
	expires_at, expired_at, created_at, updated_at`

const selectApplicationQuery = `
	SELECT ` + applicationColumns + `
	FROM applications
	WHERE id = $1 AND deleted_at IS NULL`

// LoadApplication fetches a single application. Soft-deleted rows are
// invisible here and report NOT_FOUND like missing ones.
func (p *Postgres) LoadApplication(ctx context.Context, id string) (*models.Application, error) {
	row := p.db.QueryRowContext(ctx, selectApplicationQuery, id)

	app, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("application", id)
	}
	if err != nil {
		return nil, apperrors.NewQueryFailedError("load_application", err)
	}
	return app, nil
}

const updateApplicationQuery = `
	UPDATE applications SET
		status = $2, previous_status = $3,
		status_history = $4, application_data = $5,
		score = $6, score_breakdown = $7, scored_at = $8,
		rejection = $9, info_request = $10, conditional_approval = $11,
		payment = $12, expired_at = $13, updated_at = $14
	WHERE id = $1 AND status = $15 AND deleted_at IS NULL`

// SaveApplication writes the full mutable state of an application, but
// only while the stored status still equals expectedPriorStatus. A miss
// means either the row vanished (NOT_FOUND) or another writer got there
// first (CONFLICT); a follow-up existence probe tells the two apart.
func (p *Postgres) SaveApplication(ctx context.Context, app *models.Application, expectedPriorStatus models.Status) (*models.Application, error) {
	history, err := json.Marshal(app.StatusHistory)
	if err != nil {
		return nil, apperrors.NewQueryFailedError("save_application", err)
	}
	data, err := json.Marshal(app.Data)
	if err != nil {
		return nil, apperrors.NewQueryFailedError("save_application", err)
	}
	payment, err := json.Marshal(app.Payment)
	if err != nil {
		return nil, apperrors.NewQueryFailedError("save_application", err)
	}

	result, err := p.db.ExecContext(ctx, updateApplicationQuery,
		app.ID,
		string(app.Status),
		nullString(string(app.PreviousStatus)),
		history,
		data,
		nullInt(app.Score),
		marshalNullable(app.ScoreBreakdown),
		nullTime(app.ScoredAt),
		marshalNullable(app.Rejection),
		marshalNullable(app.InfoRequest),
		marshalNullable(app.ConditionalApproval),
		payment,
		nullTime(app.ExpiredAt),
		app.UpdatedAt,
		string(expectedPriorStatus),
	)
	if err != nil {
		return nil, apperrors.NewQueryFailedError("save_application", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, apperrors.NewQueryFailedError("save_application", err)
	}
	if affected == 0 {
		var exists bool
		probeErr := p.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1 AND deleted_at IS NULL)`,
			app.ID).Scan(&exists)
		if probeErr != nil {
			return nil, apperrors.NewQueryFailedError("save_application", probeErr)
		}
		if !exists {
			return nil, apperrors.NewNotFoundError("application", app.ID)
		}
		return nil, apperrors.NewConflictError(app.ID, string(expectedPriorStatus))
	}

	return app, nil
}

// LoadCoApplicants returns the co-applicants attached to an application,
// oldest first. No co-applicants is an empty slice, not an error.
func (p *Postgres) LoadCoApplicants(ctx context.Context, applicationID string) ([]models.CoApplicant, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, application_id, full_name, monthly_income,
		       employment_status, employment_duration, created_at
		FROM co_applicants
		WHERE application_id = $1
		ORDER BY created_at`, applicationID)
	if err != nil {
		return nil, apperrors.NewQueryFailedError("load_co_applicants", err)
	}
	defer rows.Close()

	var out []models.CoApplicant
	for rows.Next() {
		var co models.CoApplicant
		var employmentStatus, employmentDuration sql.NullString
		if err := rows.Scan(&co.ID, &co.ApplicationID, &co.FullName, &co.MonthlyIncome,
			&employmentStatus, &employmentDuration, &co.CreatedAt); err != nil {
			return nil, apperrors.NewQueryFailedError("load_co_applicants", err)
		}
		co.EmploymentStatus = employmentStatus.String
		co.EmploymentDuration = employmentDuration.String
		out = append(out, co)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryFailedError("load_co_applicants", err)
	}
	return out, nil
}

func (p *Postgres) LoadProperty(ctx context.Context, id string) (*models.Property, error) {
	var property models.Property
	err := p.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title FROM properties WHERE id = $1`, id).
		Scan(&property.ID, &property.OwnerID, &property.Title)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("property", id)
	}
	if err != nil {
		return nil, apperrors.NewQueryFailedError("load_property", err)
	}
	return &property, nil
}

func (p *Postgres) LoadUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	var phone sql.NullString
	err := p.db.QueryRowContext(ctx,
		`SELECT id, email, full_name, phone FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Email, &user.FullName, &phone)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("user", id)
	}
	if err != nil {
		return nil, apperrors.NewQueryFailedError("load_user", err)
	}
	user.Phone = phone.String
	return &user, nil
}

// ListStaleDrafts returns the IDs of drafts whose last update predates
// the cutoff, oldest first, for the expiry sweep.
func (p *Postgres) ListStaleDrafts(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id FROM applications
		WHERE status = $1 AND updated_at < $2 AND deleted_at IS NULL
		ORDER BY updated_at`, string(models.StatusDraft), cutoff)
	if err != nil {
		return nil, apperrors.NewQueryFailedError("list_stale_drafts", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewQueryFailedError("list_stale_drafts", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryFailedError("list_stale_drafts", err)
	}
	return ids, nil
}

// CreateNotification inserts a delivery-audit record, normally in the
// pending state.
func (p *Postgres) CreateNotification(ctx context.Context, n *models.Notification) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO notifications
			(id, application_id, recipient_id, type, channel, subject, body, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.ApplicationID, n.RecipientID, n.Type, n.Channel,
		n.Subject, n.Body, n.Status, n.CreatedAt)
	if err != nil {
		return apperrors.NewQueryFailedError("create_notification", err)
	}
	return nil
}

// MarkNotification finalizes a delivery-audit record as sent or failed.
func (p *Postgres) MarkNotification(ctx context.Context, id, status string, sentAt *time.Time) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE notifications SET status = $2, sent_at = $3 WHERE id = $1`,
		id, status, nullTime(sentAt))
	if err != nil {
		return apperrors.NewQueryFailedError("mark_notification", err)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app            models.Application
		previousStatus sql.NullString
		history        []byte
		data           []byte
		score          sql.NullInt64
		breakdown      []byte
		scoredAt       sql.NullTime
		rejection      []byte
		infoRequest    []byte
		conditional    []byte
		payment        []byte
		expiresAt      sql.NullTime
		expiredAt      sql.NullTime
	)

	err := row.Scan(
		&app.ID, &app.PropertyID, &app.ApplicantID, &app.Status, &previousStatus,
		&history, &data,
		&score, &breakdown, &scoredAt,
		&rejection, &infoRequest, &conditional, &payment,
		&expiresAt, &expiredAt, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	app.PreviousStatus = models.Status(previousStatus.String)

	if err := unmarshalInto(history, &app.StatusHistory); err != nil {
		return nil, err
	}
	if err := unmarshalInto(data, &app.Data); err != nil {
		return nil, err
	}
	if err := unmarshalInto(payment, &app.Payment); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(breakdown, &app.ScoreBreakdown); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(rejection, &app.Rejection); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(infoRequest, &app.InfoRequest); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(conditional, &app.ConditionalApproval); err != nil {
		return nil, err
	}

	if score.Valid {
		v := int(score.Int64)
		app.Score = &v
	}
	if scoredAt.Valid {
		t := scoredAt.Time
		app.ScoredAt = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		app.ExpiresAt = &t
	}
	if expiredAt.Valid {
		t := expiredAt.Time
		app.ExpiredAt = &t
	}

	return &app, nil
}

func unmarshalInto(raw []byte, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// unmarshalNullable fills a pointer-to-pointer destination only when the
// column held a value.
func unmarshalNullable[T any](raw []byte, dst **T) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}

// marshalNullable renders a nil pointer as SQL NULL instead of the JSON
// literal null.
func marshalNullable(v interface{}) interface{} {
	switch ptr := v.(type) {
	case *models.ScoreBreakdown:
		if ptr == nil {
			return nil
		}
	case *models.RejectionDetails:
		if ptr == nil {
			return nil
		}
	case *models.InfoRequestDetails:
		if ptr == nil {
			return nil
		}
	case *models.ConditionalApprovalDetails:
		if ptr == nil {
			return nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
