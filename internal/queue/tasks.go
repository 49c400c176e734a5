package queue

import (
	"encoding/json"

	"github.com/movelink-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskNotificationDispatch 站内通知投递任务
	TaskNotificationDispatch = constants.TaskNotificationDispatch
	// TaskEscrowPayout 托管放款转账任务
	TaskEscrowPayout = constants.TaskEscrowPayout
	// TaskRefundPayout 退款转账任务
	TaskRefundPayout = constants.TaskRefundPayout
)

// NotificationDispatchPayload 站内通知投递任务载荷
type NotificationDispatchPayload struct {
	UserID    uint   `json:"user_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	RelatedID uint   `json:"related_id"`
}

// EscrowPayoutPayload 托管放款转账任务载荷
type EscrowPayoutPayload struct {
	PaymentID uint `json:"payment_id"`
	RequestID uint `json:"request_id"`
}

// RefundPayoutPayload 退款转账任务载荷
type RefundPayoutPayload struct {
	RefundID uint `json:"refund_id"`
}

// NewNotificationDispatchTask 创建通知投递任务
func NewNotificationDispatchTask(payload NotificationDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDispatch, body), nil
}

// NewEscrowPayoutTask 创建托管放款转账任务
func NewEscrowPayoutTask(payload EscrowPayoutPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEscrowPayout, body), nil
}

// NewRefundPayoutTask 创建退款转账任务
func NewRefundPayoutTask(payload RefundPayoutPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRefundPayout, body), nil
}
