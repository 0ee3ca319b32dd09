package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaseflow/internal/common/database"
	apperrors "leaseflow/internal/common/errors"
	"leaseflow/internal/common/logger"
	"leaseflow/internal/models"
)

func newMockRepo(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewPostgres(&database.PostgresClient{DB: db}, logger.NewTestLogger(t))
	return repo, mock
}

func applicationRows(t *testing.T, app *models.Application) *sqlmock.Rows {
	t.Helper()
	history, err := json.Marshal(app.StatusHistory)
	require.NoError(t, err)
	data, err := json.Marshal(app.Data)
	require.NoError(t, err)
	payment, err := json.Marshal(app.Payment)
	require.NoError(t, err)

	var breakdown interface{}
	if app.ScoreBreakdown != nil {
		raw, err := json.Marshal(app.ScoreBreakdown)
		require.NoError(t, err)
		breakdown = raw
	}

	return sqlmock.NewRows([]string{
		"id", "property_id", "applicant_id", "status", "previous_status",
		"status_history", "application_data",
		"score", "score_breakdown", "scored_at",
		"rejection", "info_request", "conditional_approval", "payment",
		"expires_at", "expired_at", "created_at", "updated_at",
	}).AddRow(
		app.ID, app.PropertyID, app.ApplicantID, string(app.Status), nil,
		history, data,
		nil, breakdown, nil,
		nil, nil, nil, payment,
		nil, nil, app.CreatedAt, app.UpdatedAt,
	)
}

func sampleApplication() *models.Application {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return &models.Application{
		ID:          "app-1",
		PropertyID:  "prop-1",
		ApplicantID: "user-1",
		Status:      models.StatusUnderReview,
		StatusHistory: []models.StatusHistoryEntry{
			{Status: models.StatusDraft, ChangedAt: now, ChangedBy: "user-1"},
		},
		Data:      models.ApplicationData{MonthlyIncome: 3200, EmploymentStatus: "employed"},
		Payment:   models.PaymentInfo{Status: models.PaymentPaid},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestLoadApplication(t *testing.T) {
	repo, mock := newMockRepo(t)
	want := sampleApplication()

	mock.ExpectQuery(`SELECT(.|\s)+FROM applications`).
		WithArgs("app-1").
		WillReturnRows(applicationRows(t, want))

	got, err := repo.LoadApplication(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, models.StatusUnderReview, got.Status)
	assert.Equal(t, want.Data.MonthlyIncome, got.Data.MonthlyIncome)
	assert.Len(t, got.StatusHistory, 1)
	assert.Nil(t, got.Score)
	assert.Nil(t, got.Rejection)
	assert.Equal(t, models.PaymentPaid, got.Payment.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadApplication_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT(.|\s)+FROM applications`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.LoadApplication(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestSaveApplication(t *testing.T) {
	repo, mock := newMockRepo(t)
	app := sampleApplication()
	app.PreviousStatus = models.StatusUnderReview
	app.Status = models.StatusRejected
	app.Rejection = &models.RejectionDetails{Category: "insufficient_income"}

	mock.ExpectExec(`UPDATE applications SET`).
		WithArgs(
			app.ID,
			"rejected",
			sqlmock.AnyArg(), // previous_status
			sqlmock.AnyArg(), // status_history
			sqlmock.AnyArg(), // application_data
			sqlmock.AnyArg(), // score
			sqlmock.AnyArg(), // score_breakdown
			sqlmock.AnyArg(), // scored_at
			sqlmock.AnyArg(), // rejection
			sqlmock.AnyArg(), // info_request
			sqlmock.AnyArg(), // conditional_approval
			sqlmock.AnyArg(), // payment
			sqlmock.AnyArg(), // expired_at
			sqlmock.AnyArg(), // updated_at
			"under_review",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	saved, err := repo.SaveApplication(context.Background(), app, models.StatusUnderReview)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, saved.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveApplication_ConflictOnStaleStatus(t *testing.T) {
	repo, mock := newMockRepo(t)
	app := sampleApplication()

	mock.ExpectExec(`UPDATE applications SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(app.ID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := repo.SaveApplication(context.Background(), app, models.StatusUnderReview)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))

	var se *apperrors.StandardError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Retryable)
}

func TestSaveApplication_NotFoundWhenRowGone(t *testing.T) {
	repo, mock := newMockRepo(t)
	app := sampleApplication()

	mock.ExpectExec(`UPDATE applications SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(app.ID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := repo.SaveApplication(context.Background(), app, models.StatusUnderReview)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestLoadCoApplicants(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT(.|\s)+FROM co_applicants`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "application_id", "full_name", "monthly_income",
			"employment_status", "employment_duration", "created_at",
		}).
			AddRow("co-1", "app-1", "Jamie Soto", 1200.0, "employed", "2 years", now).
			AddRow("co-2", "app-1", "Kay Osei", 800.0, nil, nil, now))

	coApplicants, err := repo.LoadCoApplicants(context.Background(), "app-1")
	require.NoError(t, err)
	require.Len(t, coApplicants, 2)
	assert.Equal(t, 1200.0, coApplicants[0].MonthlyIncome)
	assert.Empty(t, coApplicants[1].EmploymentStatus)
}

func TestLoadCoApplicants_Empty(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT(.|\s)+FROM co_applicants`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "application_id", "full_name", "monthly_income",
			"employment_status", "employment_duration", "created_at",
		}))

	coApplicants, err := repo.LoadCoApplicants(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Empty(t, coApplicants)
}

func TestLoadProperty(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT id, owner_id, title FROM properties`).
		WithArgs("prop-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "title"}).
			AddRow("prop-1", "user-owner", "2BR Apartment"))

	property, err := repo.LoadProperty(context.Background(), "prop-1")
	require.NoError(t, err)
	assert.Equal(t, "user-owner", property.OwnerID)
}

func TestListStaleDrafts(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id FROM applications`).
		WithArgs("draft", cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("app-1").AddRow("app-2"))

	ids, err := repo.ListStaleDrafts(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, []string{"app-1", "app-2"}, ids)
}

func TestCreateAndMarkNotification(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	notification := &models.Notification{
		ID:            "ntf-1",
		ApplicationID: "app-1",
		RecipientID:   "user-1",
		Type:          models.NotificationTypeStatusChange,
		Channel:       "email",
		Subject:       "Application update",
		Body:          "Your application moved to under review.",
		Status:        models.NotificationPending,
		CreatedAt:     now,
	}

	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs("ntf-1", "app-1", "user-1", models.NotificationTypeStatusChange,
			"email", "Application update", notification.Body, models.NotificationPending, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.CreateNotification(context.Background(), notification))

	sentAt := now.Add(time.Second)
	mock.ExpectExec(`UPDATE notifications SET`).
		WithArgs("ntf-1", models.NotificationSent, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkNotification(context.Background(), "ntf-1", models.NotificationSent, &sentAt))

	require.NoError(t, mock.ExpectationsWereMet())
}
