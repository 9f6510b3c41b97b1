package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mlefebvre/budget-approval-api/pkg/config"
	"github.com/mlefebvre/budget-approval-api/pkg/jobs"
)

const jobTypeNotification = "workflow.notification"

// Sender delivers one notification to a set of directory actor ids. The
// concrete transport (mail relay, chat webhook) lives behind this interface;
// the default deployment logs deliveries.
type Sender interface {
	Send(ctx context.Context, addressees []string, subject, body string) error
}

// LogSender writes notifications to the application log. It stands in until
// a real mail transport is configured.
type LogSender struct {
	Logger *zap.Logger
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, addressees []string, subject, _ string) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.L()
	}
	logger.Info("notification dispatched",
		zap.Strings("addressees", addressees),
		zap.String("subject", subject))
	return nil
}

type notificationPayload struct {
	Addressees []string
	Subject    string
	Body       string
}

// NotificationService fans workflow events out to addressees through a
// background worker pool. Delivery is best-effort with bounded retries;
// enqueue failures are logged and swallowed so a transition never blocks on
// notification.
type NotificationService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService wires the sender behind a job queue.
func NewNotificationService(sender Sender, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(notificationPayload)
		if !ok {
			logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
			return nil
		}
		return sender.Send(ctx, payload.Addressees, payload.Subject, payload.Body)
	}

	queue := jobs.NewQueue("notifications", handler, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return &NotificationService{queue: queue, logger: logger}
}

// Start launches the worker pool.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify enqueues one notification.
func (s *NotificationService) Notify(_ context.Context, addressees []string, subject, body string) {
	if len(addressees) == 0 {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: jobTypeNotification,
		Payload: notificationPayload{
			Addressees: addressees,
			Subject:    subject,
			Body:       body,
		},
	})
	if err != nil {
		s.logger.Warn("notification enqueue failed",
			zap.String("subject", subject),
			zap.Error(err))
	}
}
