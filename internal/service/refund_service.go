package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/movelink-next/internal/constants"
	"github.com/movelink-next/internal/logger"
	"github.com/movelink-next/internal/models"
	"github.com/movelink-next/internal/queue"
	"github.com/movelink-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RefundService 退款台账服务
type RefundService struct {
	paymentRepo repository.PaymentRepository
	refundRepo  repository.RefundRepository
	paymentSvc  *PaymentService
	notifySvc   *NotificationService
	queueClient *queue.Client
}

// NewRefundService 创建退款服务
func NewRefundService(
	paymentRepo repository.PaymentRepository,
	refundRepo repository.RefundRepository,
	paymentSvc *PaymentService,
	notifySvc *NotificationService,
	queueClient *queue.Client,
) *RefundService {
	return &RefundService{
		paymentRepo: paymentRepo,
		refundRepo:  refundRepo,
		paymentSvc:  paymentSvc,
		notifySvc:   notifySvc,
		queueClient: queueClient,
	}
}

// paidAmount 当前已实收金额，退款额度以此为上限。
func paidAmount(payment *models.Payment) decimal.Decimal {
	switch payment.PaymentStatus {
	case constants.PaymentStatusDepositPaid:
		return payment.DepositAmount.Decimal.Round(2)
	case constants.PaymentStatusFullyPaid, constants.PaymentStatusRefunded:
		return payment.TotalAmount.Decimal.Round(2)
	default:
		return decimal.Zero
	}
}

// CreateRefundInput 退款申请输入
type CreateRefundInput struct {
	PaymentID uint
	ClientID  uint
	Amount    models.Money
	Reason    string
}

// CreateRefund 客户发起退款申请。
// 未被拒绝的历史申请都占用额度，超额申请直接拒绝。
func (s *RefundService) CreateRefund(input CreateRefundInput) (*models.RefundRequest, error) {
	amount := input.Amount.Decimal.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrRefundAmountInvalid
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, ErrRefundAmountInvalid
	}

	var result *models.RefundRequest
	err := settlementTx(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)
		payment, err := paymentRepo.GetByIDForUpdate(input.PaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}
		if payment.ClientID != input.ClientID {
			return ErrPermissionDenied
		}
		if err := s.paymentSvc.guardMutable(tx, payment); err != nil {
			return err
		}

		paid := paidAmount(payment)
		if paid.LessThanOrEqual(decimal.Zero) {
			return ErrRefundAmountInvalid
		}
		occupied, err := s.refundRepo.WithTx(tx).SumActiveByPaymentID(payment.ID)
		if err != nil {
			return err
		}
		remaining := paid.Sub(occupied.Round(2)).Round(2)
		if amount.GreaterThan(remaining) {
			return ErrRefundExceedsRefundable
		}

		request := &models.RefundRequest{
			PaymentID:   payment.ID,
			ClientID:    input.ClientID,
			Amount:      models.NewMoneyFromDecimal(amount),
			Reason:      reason,
			Status:      constants.RefundStatusPending,
			RequestedAt: time.Now(),
		}
		if err := s.refundRepo.WithTx(tx).Create(request); err != nil {
			return err
		}
		if err := s.paymentSvc.appendAudit(tx, payment.ID, input.ClientID, constants.UserRoleClient,
			constants.AuditActionRefundCreate, payment, payment); err != nil {
			return err
		}
		result = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApproveRefundInput 批准退款输入
type ApproveRefundInput struct {
	RefundID uint
	AdminID  uint
}

// ApproveRefund 批准退款申请并触发异步转账。
func (s *RefundService) ApproveRefund(input ApproveRefundInput) (*models.RefundRequest, error) {
	var result *models.RefundRequest
	err := settlementTx(func(tx *gorm.DB) error {
		repo := s.refundRepo.WithTx(tx)
		request, err := repo.GetByIDForUpdate(input.RefundID)
		if err != nil {
			return err
		}
		if request == nil {
			return ErrRefundNotFound
		}
		if request.Status != constants.RefundStatusPending {
			return ErrRefundStatusInvalid
		}

		paymentRepo := s.paymentRepo.WithTx(tx)
		payment, err := paymentRepo.GetByIDForUpdate(request.PaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}
		if err := s.paymentSvc.guardMutable(tx, payment); err != nil {
			return err
		}

		now := time.Now()
		request.Status = constants.RefundStatusApproved
		request.ProcessedBy = &input.AdminID
		request.ProcessedAt = &now
		if err := repo.Update(request); err != nil {
			return err
		}
		if err := s.paymentSvc.appendAudit(tx, payment.ID, input.AdminID, constants.UserRoleAdmin,
			constants.AuditActionRefundApprove, payment, payment); err != nil {
			return err
		}
		result = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.queueClient.EnqueueRefundPayout(queue.RefundPayoutPayload{
		RefundID: result.ID,
	}); err != nil {
		logger.Errorw("refund_payout_enqueue_failed",
			"refund_id", result.ID,
			"error", err,
		)
	}
	return result, nil
}

// RejectRefundInput 拒绝退款输入
type RejectRefundInput struct {
	RefundID uint
	AdminID  uint
	Notes    string
}

// RejectRefund 拒绝退款申请，该笔额度随之释放。
func (s *RefundService) RejectRefund(input RejectRefundInput) (*models.RefundRequest, error) {
	var result *models.RefundRequest
	err := settlementTx(func(tx *gorm.DB) error {
		repo := s.refundRepo.WithTx(tx)
		request, err := repo.GetByIDForUpdate(input.RefundID)
		if err != nil {
			return err
		}
		if request == nil {
			return ErrRefundNotFound
		}
		if request.Status != constants.RefundStatusPending {
			return ErrRefundStatusInvalid
		}

		now := time.Now()
		request.Status = constants.RefundStatusRejected
		request.ProcessedBy = &input.AdminID
		request.ProcessedAt = &now
		if notes := strings.TrimSpace(input.Notes); notes != "" {
			request.Reason = request.Reason + "\n[admin] " + notes
		}
		if err := repo.Update(request); err != nil {
			return err
		}
		if err := s.paymentSvc.appendAudit(tx, request.PaymentID, input.AdminID, constants.UserRoleAdmin,
			constants.AuditActionRefundReject, nil, nil); err != nil {
			return err
		}
		result = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifySvc.Notify(NotifyInput{
		UserID:    result.ClientID,
		Title:     "退款申请被拒绝",
		Message:   fmt.Sprintf("退款申请 #%d 未通过审核", result.ID),
		Type:      constants.NotificationTypeRefundProcessed,
		RelatedID: result.PaymentID,
	})
	return result, nil
}

// CompleteRefundInput 退款完成输入（由转账 worker 回调）
type CompleteRefundInput struct {
	RefundID  uint
	PayoutRef string
}

// CompleteRefund 标记退款转账完成。
// 已完成退款累计到实收金额时，支付记录进入 refunded 终态。
func (s *RefundService) CompleteRefund(input CompleteRefundInput) (*models.RefundRequest, error) {
	var result *models.RefundRequest
	err := settlementTx(func(tx *gorm.DB) error {
		repo := s.refundRepo.WithTx(tx)
		request, err := repo.GetByIDForUpdate(input.RefundID)
		if err != nil {
			return err
		}
		if request == nil {
			return ErrRefundNotFound
		}
		if request.Status == constants.RefundStatusCompleted {
			result = request
			return nil
		}
		if request.Status != constants.RefundStatusApproved {
			return ErrRefundStatusInvalid
		}

		paymentRepo := s.paymentRepo.WithTx(tx)
		payment, err := paymentRepo.GetByIDForUpdate(request.PaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}
		if err := s.paymentSvc.guardMutable(tx, payment); err != nil {
			return err
		}

		now := time.Now()
		request.Status = constants.RefundStatusCompleted
		request.PayoutRef = strings.TrimSpace(input.PayoutRef)
		request.ProcessedAt = &now
		if err := repo.Update(request); err != nil {
			return err
		}

		// 全额退清后进入终态
		var completedRow struct {
			Total decimal.Decimal
		}
		if err := tx.Model(&models.RefundRequest{}).
			Select("COALESCE(SUM(amount), 0) AS total").
			Where("payment_id = ? AND status = ?", payment.ID, constants.RefundStatusCompleted).
			Take(&completedRow).Error; err != nil {
			return err
		}
		before := *payment
		if completedRow.Total.Round(2).GreaterThanOrEqual(paidAmount(payment)) &&
			payment.PaymentStatus != constants.PaymentStatusRefunded {
			payment.PaymentStatus = constants.PaymentStatusRefunded
			if err := paymentRepo.Update(payment); err != nil {
				return err
			}
		}
		if err := s.paymentSvc.appendAudit(tx, payment.ID, request.ClientID, constants.UserRoleClient,
			constants.AuditActionRefundComplete, &before, payment); err != nil {
			return err
		}
		result = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifySvc.Notify(NotifyInput{
		UserID:    result.ClientID,
		Title:     "退款已完成",
		Message:   fmt.Sprintf("退款 %s 已转账，参考号 %s", result.Amount.String(), result.PayoutRef),
		Type:      constants.NotificationTypeRefundProcessed,
		RelatedID: result.PaymentID,
	})
	return result, nil
}

// GetRefund 获取退款申请
func (s *RefundService) GetRefund(id uint) (*models.RefundRequest, error) {
	request, err := s.refundRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ErrRefundNotFound
	}
	return request, nil
}

// ListRefunds 分页查询退款申请
func (s *RefundService) ListRefunds(filter repository.RefundListFilter) ([]models.RefundRequest, int64, error) {
	return s.refundRepo.List(filter)
}

// RemainingRefundable 查询剩余可退金额
func (s *RefundService) RemainingRefundable(paymentID uint) (decimal.Decimal, error) {
	payment, err := s.paymentSvc.GetPayment(paymentID)
	if err != nil {
		return decimal.Zero, err
	}
	occupied, err := s.refundRepo.SumActiveByPaymentID(paymentID)
	if err != nil {
		return decimal.Zero, err
	}
	remaining := paidAmount(payment).Sub(occupied.Round(2)).Round(2)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return remaining, nil
}
