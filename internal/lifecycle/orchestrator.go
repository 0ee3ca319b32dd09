package lifecycle

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "leaseflow/internal/common/errors"
	"leaseflow/internal/common/logger"
	"leaseflow/internal/common/metrics"
	"leaseflow/internal/models"
)

// SystemActorID identifies automated actors such as the stale-draft sweep.
const SystemActorID = "system"

// Repository is the persistence boundary the engine depends on. The
// expectedPriorStatus argument to SaveApplication is the optimistic
// concurrency guard: implementations must refuse the write with a
// CONFLICT error when the stored status no longer matches it.
type Repository interface {
	LoadApplication(ctx context.Context, id string) (*models.Application, error)
	SaveApplication(ctx context.Context, app *models.Application, expectedPriorStatus models.Status) (*models.Application, error)
	LoadCoApplicants(ctx context.Context, applicationID string) ([]models.CoApplicant, error)
	LoadProperty(ctx context.Context, id string) (*models.Property, error)
	LoadUser(ctx context.Context, id string) (*models.User, error)
	ListStaleDrafts(ctx context.Context, cutoff time.Time) ([]string, error)
}

// Notifier is the outbound side-effect boundary. Both calls are
// fire-and-forget: implementations schedule delivery, log their own
// failures, and never block the business operation on the outcome.
type Notifier interface {
	SendStatusChangeNotification(ctx context.Context, applicationID string, newStatus models.Status, metadata map[string]interface{})
	SendScoringCompleteNotification(ctx context.Context, applicationID string, score, maxScore int)
}

// ChangeOptions carries the optional, target-status-specific inputs of a
// status-change request.
type ChangeOptions struct {
	// Reason is recorded in the history entry and, where the target
	// status has a reason field, in its metadata block.
	Reason string

	// Rejection metadata (target: rejected).
	RejectionCategory string
	RejectionDetails  map[string]interface{}

	// Conditional-approval metadata (target: conditional_approval).
	Requirements      []string
	RequiredDocuments []string

	// DueDate applies to info requests and conditional approvals.
	DueDate *time.Time

	// ManualPaymentVerification marks the payment as verified by hand
	// instead of through the payment provider (target: payment_verified).
	ManualPaymentVerification bool

	// Expired marks a system withdrawal caused by the stale-draft sweep.
	Expired bool
}

// Orchestrator is the only component permitted to mutate an
// application's status. It coordinates validation, authorization,
// persistence and notification for each request.
type Orchestrator struct {
	repo     Repository
	notifier Notifier
	logger   logger.Logger
	tracer   trace.Tracer

	expiryConcurrency int
	now               func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithExpiryConcurrency bounds how many stale drafts the sweep withdraws
// in parallel.
func WithExpiryConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.expiryConcurrency = n
		}
	}
}

// New builds an Orchestrator around the given collaborators. Both the
// repository and the notifier are injected; the engine owns no global
// clients.
func New(repo Repository, notifier Notifier, log logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		repo:              repo,
		notifier:          notifier,
		logger:            log.WithFields(map[string]interface{}{"component": "lifecycle"}),
		tracer:            otel.Tracer("leaseflow/lifecycle"),
		expiryConcurrency: 4,
		now:               func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ValidNextStatuses exposes the transition table for consumers that need
// to render only legal actions.
func (o *Orchestrator) ValidNextStatuses(current models.Status) []models.Status {
	return ValidNextStatuses(current)
}

// RequestStatusChange moves an application to a new status. It loads the
// record, checks transition legality and actor authorization, appends
// exactly one history entry, populates target-specific metadata, persists
// under the optimistic concurrency guard, and schedules a notification.
func (o *Orchestrator) RequestStatusChange(ctx context.Context, applicationID string, requested models.Status, actorID string, role models.Role, opts ChangeOptions) (*models.Application, error) {
	ctx, span := o.tracer.Start(ctx, "lifecycle.RequestStatusChange", trace.WithAttributes(
		attribute.String("application.id", applicationID),
		attribute.String("status.requested", string(requested)),
		attribute.String("actor.role", string(role)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.OperationDuration.WithLabelValues("request_status_change").Observe(time.Since(start).Seconds())
	}()

	app, err := o.repo.LoadApplication(ctx, applicationID)
	if err != nil {
		return nil, o.failTransition(span, err)
	}

	current := app.Status
	if !IsTransitionAllowed(current, requested) {
		err := apperrors.NewInvalidTransitionError(
			string(current), string(requested), statusStrings(ValidNextStatuses(current)))
		return nil, o.failTransition(span, err)
	}

	if err := o.authorize(ctx, app, requested, actorID, role); err != nil {
		return nil, o.failTransition(span, err)
	}

	if requested == models.StatusSubmitted {
		if err := ValidateSubmission(app.Data); err != nil {
			return nil, o.failTransition(span, err)
		}
	}

	now := o.now()
	app.StatusHistory = append(app.StatusHistory, models.StatusHistoryEntry{
		Status:    requested,
		ChangedAt: now,
		ChangedBy: actorID,
		Reason:    opts.Reason,
	})
	app.PreviousStatus = current
	app.Status = requested
	app.UpdatedAt = now
	applyStatusMetadata(app, requested, actorID, now, opts)

	saved, err := o.repo.SaveApplication(ctx, app, current)
	if err != nil {
		return nil, o.failTransition(span, err)
	}

	// Fire-and-forget: delivery failures are the notifier's to log and
	// must never fail the already-persisted status change.
	o.notifier.SendStatusChangeNotification(ctx, saved.ID, requested, map[string]interface{}{
		"previousStatus": string(current),
		"changedBy":      actorID,
		"reason":         opts.Reason,
	})

	metrics.StatusTransitions.WithLabelValues(string(current), string(requested)).Inc()
	o.logger.Info("status changed", map[string]interface{}{
		"applicationId": saved.ID,
		"from":          string(current),
		"to":            string(requested),
		"changedBy":     actorID,
	})

	return saved, nil
}

// ComputeAndStoreScore runs the score calculator over the application and
// its co-applicants and persists the result. Recomputing with unchanged
// input yields the identical score and breakdown.
func (o *Orchestrator) ComputeAndStoreScore(ctx context.Context, applicationID string) (*ScoreResult, error) {
	ctx, span := o.tracer.Start(ctx, "lifecycle.ComputeAndStoreScore", trace.WithAttributes(
		attribute.String("application.id", applicationID),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.OperationDuration.WithLabelValues("compute_score").Observe(time.Since(start).Seconds())
	}()

	app, err := o.repo.LoadApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	coApplicants, err := o.repo.LoadCoApplicants(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	result := CalculateScore(app.Data, coApplicants)

	now := o.now()
	total := result.TotalScore
	breakdown := result.Breakdown
	app.Score = &total
	app.ScoreBreakdown = &breakdown
	app.ScoredAt = &now
	app.UpdatedAt = now

	if _, err := o.repo.SaveApplication(ctx, app, app.Status); err != nil {
		return nil, err
	}

	metrics.ScoresComputed.Inc()
	o.notifier.SendScoringCompleteNotification(ctx, applicationID, total, result.MaxScore)

	o.logger.Info("score computed", map[string]interface{}{
		"applicationId": applicationID,
		"score":         total,
		"flags":         breakdown.Flags,
	})

	return &result, nil
}

// authorize applies the role rules after transition legality has been
// established. Withdrawal belongs to the owning applicant (or an admin or
// the system); reviewer statuses belong to the property owner, an agent
// or an admin and never to the applicant; the applicant-side statuses
// belong to the owning applicant, an admin or the system.
func (o *Orchestrator) authorize(ctx context.Context, app *models.Application, requested models.Status, actorID string, role models.Role) error {
	switch requested {
	case models.StatusWithdrawn:
		if role == models.RoleAdmin || role == models.RoleSystem {
			return nil
		}
		if role == models.RoleApplicant && actorID == app.ApplicantID {
			return nil
		}

	case models.StatusUnderReview, models.StatusInfoRequested, models.StatusConditionalApproval,
		models.StatusApproved, models.StatusRejected:
		switch role {
		case models.RoleAdmin, models.RoleAgent:
			return nil
		case models.RoleOwner:
			property, err := o.repo.LoadProperty(ctx, app.PropertyID)
			if err != nil {
				return err
			}
			if property.OwnerID == actorID {
				return nil
			}
		}

	case models.StatusPendingPayment, models.StatusPaymentVerified, models.StatusSubmitted:
		if role == models.RoleAdmin || role == models.RoleSystem {
			return nil
		}
		if role == models.RoleApplicant && actorID == app.ApplicantID {
			return nil
		}
	}

	return apperrors.NewForbiddenError(actorID, string(role), string(requested))
}

// applyStatusMetadata populates the metadata block of the target status.
// Blocks belonging to unrelated prior states are left untouched.
func applyStatusMetadata(app *models.Application, requested models.Status, actorID string, now time.Time, opts ChangeOptions) {
	switch requested {
	case models.StatusRejected:
		app.Rejection = &models.RejectionDetails{
			Category: opts.RejectionCategory,
			Reason:   opts.Reason,
			Details:  opts.RejectionDetails,
		}

	case models.StatusInfoRequested:
		app.InfoRequest = &models.InfoRequestDetails{
			Reason:      opts.Reason,
			RequestedAt: now,
			RequestedBy: actorID,
			DueDate:     opts.DueDate,
		}

	case models.StatusConditionalApproval:
		app.ConditionalApproval = &models.ConditionalApprovalDetails{
			Reason:            opts.Reason,
			Requirements:      opts.Requirements,
			RequiredDocuments: opts.RequiredDocuments,
			DueDate:           opts.DueDate,
		}

	case models.StatusPaymentVerified:
		outcome := models.PaymentPaid
		if opts.ManualPaymentVerification {
			outcome = models.PaymentManuallyVerified
			app.Payment.ManuallyVerifiedBy = actorID
			app.Payment.ManuallyVerifiedAt = &now
		}
		app.Payment.Attempts = append(app.Payment.Attempts, models.PaymentAttempt{
			At:      now,
			Outcome: outcome,
			Note:    opts.Reason,
		})
		app.Payment.Status = outcome

	case models.StatusWithdrawn:
		if opts.Expired {
			app.ExpiredAt = &now
		}
	}
}

func (o *Orchestrator) failTransition(span trace.Span, err error) error {
	code := string(apperrors.CodeOf(err))
	if code == "" {
		code = "INTERNAL"
	}
	metrics.TransitionFailures.WithLabelValues(code).Inc()
	span.SetAttributes(attribute.String("error.code", code))
	return err
}

func statusStrings(statuses []models.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
