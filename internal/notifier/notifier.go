// Package notifier delivers lifecycle notifications over SES email and
// SNS SMS. Delivery is fully asynchronous: callers enqueue and move on,
// and every attempt leaves an audit record regardless of outcome.
package notifier

import (
	"context"
	"sync"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	"leaseflow/internal/common/logger"
	"leaseflow/internal/common/metrics"
	"leaseflow/internal/models"
)

// EmailSender matches the SES client surface so tests can fake it.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SMSSender matches the SNS client surface so tests can fake it.
type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Store resolves recipients and records delivery attempts.
type Store interface {
	LoadApplication(ctx context.Context, id string) (*models.Application, error)
	LoadProperty(ctx context.Context, id string) (*models.Property, error)
	LoadUser(ctx context.Context, id string) (*models.User, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
	MarkNotification(ctx context.Context, id, status string, sentAt *time.Time) error
}

// Config controls queue sizing and channel toggles.
type Config struct {
	QueueSize    int
	Workers      int
	EmailEnabled bool
	FromEmail    string
	SMSEnabled   bool
}

type jobKind int

const (
	jobStatusChange jobKind = iota
	jobScoringComplete
)

type job struct {
	kind          jobKind
	applicationID string
	newStatus     models.Status
	metadata      map[string]interface{}
	score         int
	maxScore      int
}

// Queue is the asynchronous notifier behind the lifecycle engine. A
// bounded channel feeds a fixed worker pool; when the channel is full
// the notification is dropped with a log line and a metric rather than
// blocking the status change that triggered it.
type Queue struct {
	store  Store
	email  EmailSender
	sms    SMSSender
	cfg    Config
	logger logger.Logger

	jobs     chan job
	wg       sync.WaitGroup
	stopOnce sync.Once

	// mu guards closed. enqueue holds the read lock across its send and
	// Stop takes the write lock before closing, so a send can never race
	// the close.
	mu     sync.RWMutex
	closed bool
}

// NewQueue builds a notifier. email and sms may be nil when the matching
// channel is disabled.
func NewQueue(store Store, email EmailSender, sms SMSSender, cfg Config, log logger.Logger) *Queue {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	return &Queue{
		store:  store,
		email:  email,
		sms:    sms,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
		jobs:   make(chan job, cfg.QueueSize),
	}
}

// Start launches the worker pool. Workers run until Stop is called and
// use their own context: an enqueued notification must not die with the
// request that produced it.
func (q *Queue) Start() {
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for j := range q.jobs {
				q.deliver(context.Background(), j)
			}
		}()
	}
}

// Stop drains the queue and waits for in-flight deliveries to finish.
// Enqueues arriving after Stop are dropped, not panicked on.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.jobs)
	})
	q.wg.Wait()
}

// SendStatusChangeNotification enqueues a status-change notification for
// the applicant. Never blocks and never returns an error.
func (q *Queue) SendStatusChangeNotification(_ context.Context, applicationID string, newStatus models.Status, metadata map[string]interface{}) {
	q.enqueue(job{
		kind:          jobStatusChange,
		applicationID: applicationID,
		newStatus:     newStatus,
		metadata:      metadata,
	})
}

// SendScoringCompleteNotification enqueues a scoring-complete
// notification for the property owner.
func (q *Queue) SendScoringCompleteNotification(_ context.Context, applicationID string, score, maxScore int) {
	q.enqueue(job{
		kind:          jobScoringComplete,
		applicationID: applicationID,
		score:         score,
		maxScore:      maxScore,
	})
}

func (q *Queue) enqueue(j job) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.NotificationAttempts.WithLabelValues(j.typeName(), "dropped").Inc()
		q.logger.Warn("notification queue stopped, dropping", map[string]interface{}{
			"applicationId": j.applicationID,
			"type":          j.typeName(),
		})
		return
	}

	select {
	case q.jobs <- j:
	default:
		metrics.NotificationAttempts.WithLabelValues(j.typeName(), "dropped").Inc()
		q.logger.Warn("notification queue full, dropping", map[string]interface{}{
			"applicationId": j.applicationID,
			"type":          j.typeName(),
		})
	}
}

func (j job) typeName() string {
	if j.kind == jobScoringComplete {
		return models.NotificationTypeScoringComplete
	}
	return models.NotificationTypeStatusChange
}

func (q *Queue) deliver(ctx context.Context, j job) {
	app, err := q.store.LoadApplication(ctx, j.applicationID)
	if err != nil {
		q.deliveryError(j, "load application", err)
		return
	}
	property, err := q.store.LoadProperty(ctx, app.PropertyID)
	if err != nil {
		q.deliveryError(j, "load property", err)
		return
	}

	var (
		recipient *models.User
		subject   string
		body      string
	)
	switch j.kind {
	case jobScoringComplete:
		recipient, err = q.store.LoadUser(ctx, property.OwnerID)
		if err == nil {
			subject, body = renderScoringComplete(recipient, property.Title, j.score, j.maxScore)
		}
	default:
		recipient, err = q.store.LoadUser(ctx, app.ApplicantID)
		if err == nil {
			subject, body = renderStatusChange(j.newStatus, recipient, property.Title)
		}
	}
	if err != nil {
		q.deliveryError(j, "load recipient", err)
		return
	}

	q.logger.Debug("delivering notification", map[string]interface{}{
		"applicationId": j.applicationID,
		"type":          j.typeName(),
		"recipientId":   recipient.ID,
		"metadata":      j.metadata,
	})

	if q.cfg.EmailEnabled && q.email != nil {
		q.sendEmail(ctx, j, recipient, subject, body)
	}
	if q.cfg.SMSEnabled && q.sms != nil && recipient.Phone != "" && j.kind == jobStatusChange {
		q.sendSMS(ctx, j, recipient, property.Title)
	}
}

func (q *Queue) sendEmail(ctx context.Context, j job, recipient *models.User, subject, body string) {
	record := &models.Notification{
		ID:            uuid.NewString(),
		ApplicationID: j.applicationID,
		RecipientID:   recipient.ID,
		Type:          j.typeName(),
		Channel:       "email",
		Subject:       subject,
		Body:          body,
		Status:        models.NotificationPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := q.store.CreateNotification(ctx, record); err != nil {
		q.deliveryError(j, "create record", err)
		return
	}

	_, err := q.email.SendEmail(ctx, &ses.SendEmailInput{
		Source: awssdk.String(q.cfg.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{recipient.Email},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: awssdk.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: awssdk.String(body)},
			},
		},
	})

	if err != nil {
		metrics.NotificationAttempts.WithLabelValues(j.typeName(), "failed").Inc()
		q.logger.Error("email delivery failed", map[string]interface{}{
			"applicationId":  j.applicationID,
			"notificationId": record.ID,
			"error":          err.Error(),
		})
		if markErr := q.store.MarkNotification(ctx, record.ID, models.NotificationFailed, nil); markErr != nil {
			q.logger.Error("marking notification failed", map[string]interface{}{
				"notificationId": record.ID,
				"error":          markErr.Error(),
			})
		}
		return
	}

	sentAt := time.Now().UTC()
	metrics.NotificationAttempts.WithLabelValues(j.typeName(), "sent").Inc()
	if err := q.store.MarkNotification(ctx, record.ID, models.NotificationSent, &sentAt); err != nil {
		q.logger.Error("marking notification sent", map[string]interface{}{
			"notificationId": record.ID,
			"error":          err.Error(),
		})
	}
}

func (q *Queue) sendSMS(ctx context.Context, j job, recipient *models.User, propertyTitle string) {
	_, err := q.sms.Publish(ctx, &sns.PublishInput{
		PhoneNumber: awssdk.String(recipient.Phone),
		Message:     awssdk.String(renderStatusChangeSMS(j.newStatus, propertyTitle)),
	})
	if err != nil {
		metrics.NotificationAttempts.WithLabelValues(j.typeName(), "sms_failed").Inc()
		q.logger.Error("sms delivery failed", map[string]interface{}{
			"applicationId": j.applicationID,
			"error":         err.Error(),
		})
		return
	}
	metrics.NotificationAttempts.WithLabelValues(j.typeName(), "sms_sent").Inc()
}

func (q *Queue) deliveryError(j job, stage string, err error) {
	metrics.NotificationAttempts.WithLabelValues(j.typeName(), "failed").Inc()
	q.logger.Error("notification delivery failed", map[string]interface{}{
		"applicationId": j.applicationID,
		"type":          j.typeName(),
		"stage":         stage,
		"error":         err.Error(),
	})
}
