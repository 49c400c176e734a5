package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/movelink-next/internal/constants"
	"github.com/movelink-next/internal/models"
	"github.com/movelink-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GuaranteeService 保证金结算服务
type GuaranteeService struct {
	paymentRepo  repository.PaymentRepository
	decisionRepo repository.GuaranteeDecisionRepository
	auditRepo    repository.AuditLogRepository
	paymentSvc   *PaymentService
	notifySvc    *NotificationService
}

// NewGuaranteeService 创建保证金结算服务
func NewGuaranteeService(
	paymentRepo repository.PaymentRepository,
	decisionRepo repository.GuaranteeDecisionRepository,
	auditRepo repository.AuditLogRepository,
	paymentSvc *PaymentService,
	notifySvc *NotificationService,
) *GuaranteeService {
	return &GuaranteeService{
		paymentRepo:  paymentRepo,
		decisionRepo: decisionRepo,
		auditRepo:    auditRepo,
		paymentSvc:   paymentSvc,
		notifySvc:    notifySvc,
	}
}

// GuaranteeSplit 保证金拆分结果
type GuaranteeSplit struct {
	Released decimal.Decimal // 返还搬家公司部分
	Retained decimal.Decimal // 客户留存部分
	Status   string          // 裁决后的保证金状态
}

// SplitGuarantee 按裁决类型拆分保证金。
// 不论何种裁决，Released + Retained 恒等于保证金总额。
func SplitGuarantee(decision string, guarantee decimal.Decimal, partial decimal.Decimal) (GuaranteeSplit, error) {
	guarantee = guarantee.Round(2)
	if guarantee.LessThanOrEqual(decimal.Zero) {
		return GuaranteeSplit{}, ErrGuaranteeNotHeld
	}

	switch decision {
	case constants.GuaranteeDecisionFullReturn:
		return GuaranteeSplit{
			Released: guarantee,
			Retained: decimal.Zero,
			Status:   constants.GuaranteeStatusReleasedToMover,
		}, nil
	case constants.GuaranteeDecisionNoReturn:
		return GuaranteeSplit{
			Released: decimal.Zero,
			Retained: guarantee,
			Status:   constants.GuaranteeStatusKeptForClient,
		}, nil
	case constants.GuaranteeDecisionPartialReturn:
		partial = partial.Round(2)
		if partial.IsNegative() || partial.GreaterThan(guarantee) {
			return GuaranteeSplit{}, ErrGuaranteeAmountInvalid
		}
		return GuaranteeSplit{
			Released: partial,
			Retained: guarantee.Sub(partial).Round(2),
			Status:   constants.GuaranteeStatusPartialRelease,
		}, nil
	default:
		return GuaranteeSplit{}, ErrGuaranteeAmountInvalid
	}
}

// DecideInput 保证金裁决输入
type DecideInput struct {
	PaymentID uint
	Decision  string
	Amount    models.Money // 仅 partial_return 使用
	AdminID   uint
	Notes     string
}

// Decide 执行保证金裁决。
// 裁决历史只追加，支付记录上的状态反映最近一次裁决。
func (s *GuaranteeService) Decide(input DecideInput) (*models.Payment, *models.GuaranteeDecision, error) {
	var (
		payment  *models.Payment
		decision *models.GuaranteeDecision
	)

	err := settlementTx(func(tx *gorm.DB) error {
		repo := s.paymentRepo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(input.PaymentID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrPaymentNotFound
		}
		if err := s.paymentSvc.guardMutable(tx, locked); err != nil {
			return err
		}

		split, err := SplitGuarantee(input.Decision, locked.GuaranteeAmount.Decimal, input.Amount.Decimal)
		if err != nil {
			return err
		}

		before := *locked
		now := time.Now()
		locked.GuaranteeStatus = split.Status
		locked.GuaranteeReleased = models.NewMoneyFromDecimal(split.Released)
		locked.GuaranteeDecidedAt = &now
		locked.GuaranteeDecidedBy = &input.AdminID
		locked.GuaranteeNotes = strings.TrimSpace(input.Notes)
		if err := repo.Update(locked); err != nil {
			return err
		}

		decision = &models.GuaranteeDecision{
			PaymentID:      locked.ID,
			Decision:       input.Decision,
			ReleasedAmount: models.NewMoneyFromDecimal(split.Released),
			RetainedAmount: models.NewMoneyFromDecimal(split.Retained),
			DecidedBy:      input.AdminID,
			Notes:          strings.TrimSpace(input.Notes),
		}
		if err := s.decisionRepo.WithTx(tx).Create(decision); err != nil {
			return err
		}
		if err := s.paymentSvc.appendAudit(tx, locked.ID, input.AdminID, constants.UserRoleAdmin,
			constants.AuditActionGuaranteeDecide, &before, locked); err != nil {
			return err
		}
		payment = locked
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// 通知在事务提交后发出，失败不回滚裁决
	s.notifySvc.Notify(NotifyInput{
		UserID:    payment.MoverID,
		Title:     "保证金裁决结果",
		Message:   fmt.Sprintf("报价单 #%d 的保证金裁决为 %s，返还金额 %s", payment.QuoteID, input.Decision, decision.ReleasedAmount.String()),
		Type:      constants.NotificationTypeGuaranteeDecision,
		RelatedID: payment.ID,
	})
	s.notifySvc.Notify(NotifyInput{
		UserID:    payment.ClientID,
		Title:     "保证金裁决结果",
		Message:   fmt.Sprintf("报价单 #%d 的保证金裁决为 %s，留存金额 %s", payment.QuoteID, input.Decision, decision.RetainedAmount.String()),
		Type:      constants.NotificationTypeGuaranteeDecision,
		RelatedID: payment.ID,
	})

	return payment, decision, nil
}

// ListDecisions 获取某笔支付的裁决历史
func (s *GuaranteeService) ListDecisions(paymentID uint) ([]models.GuaranteeDecision, error) {
	if paymentID == 0 {
		return nil, ErrPaymentNotFound
	}
	return s.decisionRepo.ListByPaymentID(paymentID)
}
