package service

import (
	"context"
	"time"

	"github.com/lapply/lapply/internal/entity"
	"github.com/lapply/lapply/pkg/line"
)

// CancelOutcome classifies what the primary status transition did.
type CancelOutcome string

const (
	// OutcomeCanceled: this call won the transition to canceled.
	OutcomeCanceled CancelOutcome = "canceled"
	// OutcomeAlreadyCanceled: the application was already canceled; the
	// remaining side-effect steps were still run (repair mode).
	OutcomeAlreadyCanceled CancelOutcome = "already_canceled"
	// OutcomeNotCancelable: the application is in a dashboard-flow state
	// (pending/confirmed) this flow does not touch. No side effects.
	OutcomeNotCancelable CancelOutcome = "not_cancelable"
)

type OperationStatus string

const (
	OperationOK      OperationStatus = "ok"
	OperationNoop    OperationStatus = "noop"
	OperationSkipped OperationStatus = "skipped"
	OperationFailed  OperationStatus = "failed"
)

// Operation records the result of one step of the cancellation sequence,
// so a caller retrying after a mid-sequence failure can see how far the
// previous attempt got.
type Operation struct {
	Name   string          `json:"name"`
	Status OperationStatus `json:"status"`
	Count  int64           `json:"count,omitempty"`
}

// CancellationResult summarizes one Cancel invocation.
type CancellationResult struct {
	ApplicationID         string        `json:"application_id"`
	Outcome               CancelOutcome `json:"outcome"`
	RemindersCanceled     int64         `json:"reminders_canceled"`
	StepDeliveriesSkipped int64         `json:"step_deliveries_skipped"`
	CapacityReleased      bool          `json:"capacity_released"`
	Operations            []Operation   `json:"operations"`
}

func (r *CancellationResult) addOperation(name string, status OperationStatus, count int64) {
	r.Operations = append(r.Operations, Operation{Name: name, Status: status, Count: count})
}

// CancellationService is the single shared cancellation operation. Every
// caller (web cancel link, LINE bot command, admin repair) goes through it.
type CancellationService interface {
	// Cancel runs the four-step consistency sequence. It is idempotent:
	// re-invoking it on an already-canceled application re-runs the
	// side-effect steps and converges, so a transient failure anywhere in
	// the sequence is repaired by calling Cancel again. On a mid-sequence
	// store error the partial result is returned alongside the error.
	Cancel(ctx context.Context, applicationID string) (*CancellationResult, error)
}

// ApplicationQueryService finds a user's current and future applications.
type ApplicationQueryService interface {
	// FindCancelable returns the user's applied, future applications for
	// one tenant ordered by slot time ascending, freshly queried per call.
	FindCancelable(ctx context.Context, userID, organizationID string, now time.Time) ([]*entity.CancelableApplication, error)

	GetByOrganization(ctx context.Context, organizationID string, limit, offset int) ([]*entity.Application, error)
	GetEventAvailability(ctx context.Context, eventID string) (*entity.Event, error)
}

// NotificationService sends follow-up messaging over LINE.
type NotificationService interface {
	DispatchDueReminders(ctx context.Context) (int, error)
	DispatchDueStepDeliveries(ctx context.Context) (int, error)
	SendCancellationConfirmation(ctx context.Context, applicationID string) error
}

// LinePusher is the outbound LINE Messaging API surface the services need.
type LinePusher interface {
	Push(ctx context.Context, channelToken, to string, messages ...line.Message) error
}

// TaskPublisher publishes tasks to the delayed queue.
type TaskPublisher interface {
	Publish(ctx context.Context, task *Task) error
}

// Task is a unit of queued work.
type Task struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	ExecuteAt  time.Time              `json:"execute_at"`
	MaxRetries int                    `json:"max_retries"`
	Attempts   int                    `json:"attempts"`
}

const (
	TaskTypeSendConfirmation = "send_confirmation"
	TaskTypeSendReminder     = "send_reminder"
	TaskTypeSendStep         = "send_step"
)
