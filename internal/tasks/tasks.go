package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"brasul/fretes/internal/email"
	"brasul/fretes/internal/freight"
	"brasul/fretes/internal/services"
)

// TaskType defines the type of a background task.
const (
	TypeEmailDelivery  = "email:deliver"
	TypeFreightCleanup = "freight:cleanup"
)

const defaultFromAddress = "nao-responda@fretes.example.com"

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// Enqueuer is the part of *asynq.Client used to schedule tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EmailQueue schedules email delivery tasks.
type EmailQueue struct {
	client Enqueuer
	logger *zap.Logger
}

var _ services.EmailQueue = (*EmailQueue)(nil)

func NewEmailQueue(client Enqueuer, logger *zap.Logger) *EmailQueue {
	return &EmailQueue{client: client, logger: logger}
}

func (q *EmailQueue) EnqueueEmail(ctx context.Context, to, templateID string, data map[string]interface{}) error {
	payload, err := json.Marshal(EmailTaskPayload{To: to, TemplateID: templateID, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal email task payload: %w", err)
	}
	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(TypeEmailDelivery, payload), asynq.Queue("critical"))
	if err != nil {
		return fmt.Errorf("failed to enqueue email task: %w", err)
	}
	q.logger.Debug("email task enqueued", zap.String("task_id", info.ID), zap.String("template", templateID))
	return nil
}

// --- Task Server (Processing tasks) ---

// ProcessorConfig holds the settings the task handlers need.
type ProcessorConfig struct {
	FromAddress string
	Retention   time.Duration
}

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg                  ProcessorConfig
	emailSender          email.Sender
	emailTemplateService services.IEmailTemplateService
	freightService       services.IFreightService
	logger               *zap.Logger
	now                  func() time.Time
}

func NewTaskProcessor(
	cfg ProcessorConfig,
	emailSender email.Sender,
	emailTemplateService services.IEmailTemplateService,
	freightService services.IFreightService,
	logger *zap.Logger,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:                  cfg,
		emailSender:          emailSender,
		emailTemplateService: emailTemplateService,
		freightService:       freightService,
		logger:               logger,
		now:                  time.Now,
	}
}

// NewServer configures an Asynq server and its handler mux. The caller
// starts it with srv.Start(mux).
func NewServer(rdb *redis.Client, processor *TaskProcessor, logger *zap.Logger) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed",
					zap.String("type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err))
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	mux.HandleFunc(TypeFreightCleanup, processor.HandleFreightCleanupTask)
	return srv, mux
}

// NewScheduler registers the periodic freight cleanup on schedule (cron
// syntax or "@every 1h" style).
func NewScheduler(rdb *redis.Client, schedule string, retention time.Duration, loc *time.Location, logger *zap.Logger) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt(rdb), &asynq.SchedulerOpts{
		Location: loc,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				logger.Error("failed to enqueue scheduled task", zap.Error(err))
			}
		},
	})
	task, err := NewFreightCleanupTask(retention)
	if err != nil {
		return nil, err
	}
	if _, err := scheduler.Register(schedule, task, asynq.Queue("low"), asynq.Unique(time.Hour)); err != nil {
		return nil, fmt.Errorf("failed to register cleanup schedule %q: %w", schedule, err)
	}
	return scheduler, nil
}

// --- Task Handlers ---

// EmailTaskPayload names a template and the data it is rendered with.
type EmailTaskPayload struct {
	To         string                 `json:"to"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"`
	Data       map[string]interface{} `json:"data"`
}

// HandleEmailDeliveryTask renders the template and hands the message to the
// sender.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("email task without recipient: %w", asynq.SkipRetry)
	}

	locale := payload.Locale
	if locale == "" {
		locale = services.DefaultLocale
	}

	tmpl, err := p.emailTemplateService.GetTemplate(ctx, payload.TemplateID, locale)
	if err != nil {
		p.logger.Error("email template lookup failed",
			zap.String("template", payload.TemplateID),
			zap.String("locale", locale),
			zap.Error(err))
		return fmt.Errorf("email template not found: %w", asynq.SkipRetry)
	}

	subject, body, err := services.RenderTemplate(tmpl, payload.Data)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	fromAddress := p.cfg.FromAddress
	if fromAddress == "" {
		fromAddress = defaultFromAddress
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", payload.To))
	sb.WriteString(fmt.Sprintf("From: %s\r\n", fromAddress))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	sb.WriteString(fmt.Sprintf("%s: %s\r\n", email.TemplateHeader, payload.TemplateID))
	sb.WriteString("Date: " + p.now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")

	if err := p.emailSender.Send(ctx, []string{payload.To}, subject, []byte(sb.String())); err != nil {
		p.logger.Warn("email sending failed", zap.String("template", payload.TemplateID), zap.Error(err))
		return err
	}

	p.logger.Info("email task processed", zap.String("template", payload.TemplateID))
	return nil
}

// FreightCleanupPayload sets the retention for one cleanup run. Zero uses
// the processor default.
type FreightCleanupPayload struct {
	OlderThanHours int `json:"older_than_hours"`
}

func NewFreightCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(FreightCleanupPayload{OlderThanHours: int(olderThan / time.Hour)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cleanup payload: %w", err)
	}
	return asynq.NewTask(TypeFreightCleanup, payload), nil
}

// HandleFreightCleanupTask deletes listings past their retention.
func (p *TaskProcessor) HandleFreightCleanupTask(ctx context.Context, t *asynq.Task) error {
	var payload FreightCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("failed to unmarshal cleanup payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	olderThan := time.Duration(payload.OlderThanHours) * time.Hour
	if olderThan <= 0 {
		olderThan = p.cfg.Retention
	}

	deleted, err := p.freightService.Cleanup(ctx, olderThan)
	if err != nil {
		var verr *freight.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	p.logger.Info("freight cleanup task finished", zap.Int64("deleted", deleted), zap.Duration("older_than", olderThan))
	return nil
}
