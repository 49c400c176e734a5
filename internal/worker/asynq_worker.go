package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/movelink-next/internal/logger"
	"github.com/movelink-next/internal/payrail"
	"github.com/movelink-next/internal/provider"
	"github.com/movelink-next/internal/queue"
	"github.com/movelink-next/internal/service"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskNotificationDispatch, c.handleNotificationDispatch)
	mux.HandleFunc(queue.TaskEscrowPayout, c.handleEscrowPayout)
	mux.HandleFunc(queue.TaskRefundPayout, c.handleRefundPayout)
}

func (c *Consumer) handleNotificationDispatch(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.NotificationDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_notification_unmarshal_failed", "error", err)
		return err
	}
	if payload.UserID == 0 {
		logger.Debugw("worker_notification_skip_invalid_payload", "user_id", payload.UserID)
		return nil
	}
	if err := c.NotificationService.DispatchDirect(service.NotifyInput{
		UserID:    payload.UserID,
		Title:     payload.Title,
		Message:   payload.Message,
		Type:      payload.Type,
		RelatedID: payload.RelatedID,
	}); err != nil {
		logger.Warnw("worker_notification_dispatch_failed", "user_id", payload.UserID, "error", err)
		return err
	}
	return nil
}

// handleEscrowPayout 批准放款后向搬家公司转账。
// 参考号由支付与申请 ID 决定，重试不会产生二次转账。
func (c *Consumer) handleEscrowPayout(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.EscrowPayoutPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_escrow_payout_unmarshal_failed", "error", err)
		return err
	}
	if payload.PaymentID == 0 {
		logger.Debugw("worker_escrow_payout_skip_invalid_payload", "payment_id", payload.PaymentID)
		return nil
	}

	payment, err := c.PaymentRepo.GetByID(payload.PaymentID)
	if err != nil {
		logger.Warnw("worker_escrow_payout_fetch_failed", "payment_id", payload.PaymentID, "error", err)
		return err
	}
	if payment == nil || !payment.EscrowReleased {
		logger.Debugw("worker_escrow_payout_skip_not_released", "payment_id", payload.PaymentID)
		return nil
	}

	if c.PayrailClient == nil {
		logger.Warnw("worker_escrow_payout_skip_payrail_disabled", "payment_id", payment.ID)
		return nil
	}
	result, err := c.PayrailClient.Transfer(ctx, payrail.TransferInput{
		Reference: fmt.Sprintf("escrow:%d:%d", payment.ID, payload.RequestID),
		Direction: payrail.DirectionMoverPayout,
		UserID:    payment.MoverID,
		Amount:    payment.MoverPayout.Decimal,
		Remark:    fmt.Sprintf("escrow release for quote %d", payment.QuoteID),
	})
	if err != nil {
		logger.Warnw("worker_escrow_payout_transfer_failed", "payment_id", payment.ID, "error", err)
		return err
	}
	logger.Infow("worker_escrow_payout_done",
		"payment_id", payment.ID,
		"trade_id", result.TradeID,
		"amount", payment.MoverPayout.String(),
	)
	return nil
}

// handleRefundPayout 批准退款后向客户转账并回写完成状态。
func (c *Consumer) handleRefundPayout(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.RefundPayoutPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_refund_payout_unmarshal_failed", "error", err)
		return err
	}
	if payload.RefundID == 0 {
		logger.Debugw("worker_refund_payout_skip_invalid_payload", "refund_id", payload.RefundID)
		return nil
	}

	refund, err := c.RefundService.GetRefund(payload.RefundID)
	if err != nil {
		if errors.Is(err, service.ErrRefundNotFound) {
			logger.Debugw("worker_refund_payout_skip_not_found", "refund_id", payload.RefundID)
			return nil
		}
		return err
	}

	var payoutRef string
	if c.PayrailClient != nil {
		result, err := c.PayrailClient.Transfer(ctx, payrail.TransferInput{
			Reference: fmt.Sprintf("refund:%d", refund.ID),
			Direction: payrail.DirectionClientRefund,
			UserID:    refund.ClientID,
			Amount:    refund.Amount.Decimal,
			Remark:    fmt.Sprintf("refund for payment %d", refund.PaymentID),
		})
		if err != nil {
			logger.Warnw("worker_refund_payout_transfer_failed", "refund_id", refund.ID, "error", err)
			return err
		}
		payoutRef = result.TradeID
	} else {
		// 通道未配置时本地记账完成，参考号可追溯
		payoutRef = "local:" + uuid.NewString()
		logger.Warnw("worker_refund_payout_payrail_disabled", "refund_id", refund.ID, "payout_ref", payoutRef)
	}

	if _, err := c.RefundService.CompleteRefund(service.CompleteRefundInput{
		RefundID:  refund.ID,
		PayoutRef: payoutRef,
	}); err != nil {
		switch {
		case errors.Is(err, service.ErrRefundStatusInvalid):
			logger.Debugw("worker_refund_payout_skip_invalid_status", "refund_id", refund.ID)
			return nil
		default:
			logger.Warnw("worker_refund_payout_complete_failed", "refund_id", refund.ID, "error", err)
			return err
		}
	}
	return nil
}
