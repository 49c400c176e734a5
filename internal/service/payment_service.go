package service

import (
	"time"

	"github.com/movelink-next/internal/config"
	"github.com/movelink-next/internal/constants"
	"github.com/movelink-next/internal/logger"
	"github.com/movelink-next/internal/models"
	"github.com/movelink-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentService 资金托管记录服务
type PaymentService struct {
	cfg         *config.Config
	paymentRepo repository.PaymentRepository
	auditRepo   repository.AuditLogRepository
}

// NewPaymentService 创建支付记录服务
func NewPaymentService(
	cfg *config.Config,
	paymentRepo repository.PaymentRepository,
	auditRepo repository.AuditLogRepository,
) *PaymentService {
	return &PaymentService{
		cfg:         cfg,
		paymentRepo: paymentRepo,
		auditRepo:   auditRepo,
	}
}

// CreatePaymentInput 创建支付记录输入
type CreatePaymentInput struct {
	QuoteID     uint
	ClientID    uint
	MoverID     uint
	TotalAmount models.Money
	ActorID     uint
	ActorRole   string
}

// CreatePayment 为报价单创建支付记录并拆分金额。
// 同一报价单重复创建返回 ErrPaymentExists。
func (s *PaymentService) CreatePayment(input CreatePaymentInput) (*models.Payment, error) {
	if input.QuoteID == 0 || input.ClientID == 0 || input.MoverID == 0 {
		return nil, ErrPaymentNotFound
	}
	total := input.TotalAmount.Decimal.Round(2)
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, ErrPaymentAmountInvalid
	}

	commissionRate := decimal.NewFromInt(int64(s.cfg.Settlement.CommissionRatePercent)).Div(decimal.NewFromInt(100))
	guaranteeRate := decimal.NewFromInt(int64(s.cfg.Settlement.GuaranteeRatePercent)).Div(decimal.NewFromInt(100))
	depositRate := decimal.NewFromInt(int64(s.cfg.Settlement.DepositRatePercent)).Div(decimal.NewFromInt(100))

	commission := total.Mul(commissionRate).Round(2)
	payout := total.Sub(commission).Round(2)
	deposit := total.Mul(depositRate).Round(2)
	guarantee := total.Mul(guaranteeRate).Round(2)

	payment := &models.Payment{
		QuoteID:            input.QuoteID,
		ClientID:           input.ClientID,
		MoverID:            input.MoverID,
		TotalAmount:        models.NewMoneyFromDecimal(total),
		PlatformCommission: models.NewMoneyFromDecimal(commission),
		MoverPayout:        models.NewMoneyFromDecimal(payout),
		DepositAmount:      models.NewMoneyFromDecimal(deposit),
		EscrowAmount:       models.NewMoneyFromDecimal(total),
		GuaranteeAmount:    models.NewMoneyFromDecimal(guarantee),
		GuaranteeStatus:    constants.GuaranteeStatusHeld,
		GuaranteeReleased:  models.NewMoneyFromDecimal(decimal.Zero),
		PaymentStatus:      constants.PaymentStatusNoPayment,
	}

	err := settlementTx(func(tx *gorm.DB) error {
		repo := s.paymentRepo.WithTx(tx)
		existing, err := repo.GetByQuoteID(input.QuoteID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrPaymentExists
		}
		if err := repo.Create(payment); err != nil {
			return err
		}
		return s.appendAudit(tx, payment.ID, input.ActorID, input.ActorRole,
			constants.AuditActionCreatePayment, nil, payment)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// GetPayment 获取支付记录，读取时做金额一致性校验。
// 校验失败的记录会被冻结，仍可读取，但后续资金操作全部拒绝。
func (s *PaymentService) GetPayment(id uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if !payment.Frozen && !paymentAmountsConsistent(payment) {
		if err := s.freezeCorrupted(payment); err != nil {
			return nil, err
		}
	}
	return payment, nil
}

// GetPaymentByQuoteID 按报价单获取支付记录
func (s *PaymentService) GetPaymentByQuoteID(quoteID uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByQuoteID(quoteID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if !payment.Frozen && !paymentAmountsConsistent(payment) {
		if err := s.freezeCorrupted(payment); err != nil {
			return nil, err
		}
	}
	return payment, nil
}

// ListPayments 分页查询支付记录
func (s *PaymentService) ListPayments(filter repository.PaymentListFilter) ([]models.Payment, int64, error) {
	return s.paymentRepo.List(filter)
}

// MarkDepositPaidInput 定金到账输入
type MarkDepositPaidInput struct {
	PaymentID uint
	ActorID   uint
	ActorRole string
}

// MarkDepositPaid 标记定金到账（no_payment -> deposit_paid）
func (s *PaymentService) MarkDepositPaid(input MarkDepositPaidInput) (*models.Payment, error) {
	var result *models.Payment
	err := settlementTx(func(tx *gorm.DB) error {
		repo := s.paymentRepo.WithTx(tx)
		payment, err := repo.GetByIDForUpdate(input.PaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}
		if err := s.guardMutable(tx, payment); err != nil {
			return err
		}
		if payment.PaymentStatus != constants.PaymentStatusNoPayment {
			return ErrPaymentStatusInvalid
		}

		before := *payment
		now := time.Now()
		payment.PaymentStatus = constants.PaymentStatusDepositPaid
		payment.DepositPaidAt = &now
		if err := repo.Update(payment); err != nil {
			return err
		}
		if err := s.appendAudit(tx, payment.ID, input.ActorID, input.ActorRole,
			constants.AuditActionMarkDepositPaid, &before, payment); err != nil {
			return err
		}
		result = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkFullyPaidInput 全款到账输入
type MarkFullyPaidInput struct {
	PaymentID uint
	ActorID   uint
	ActorRole string
}

// MarkFullyPaid 标记全款到账（no_payment/deposit_paid -> fully_paid）
func (s *PaymentService) MarkFullyPaid(input MarkFullyPaidInput) (*models.Payment, error) {
	var result *models.Payment
	err := settlementTx(func(tx *gorm.DB) error {
		repo := s.paymentRepo.WithTx(tx)
		payment, err := repo.GetByIDForUpdate(input.PaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}
		if err := s.guardMutable(tx, payment); err != nil {
			return err
		}
		switch payment.PaymentStatus {
		case constants.PaymentStatusNoPayment, constants.PaymentStatusDepositPaid:
		default:
			return ErrPaymentStatusInvalid
		}

		before := *payment
		now := time.Now()
		payment.PaymentStatus = constants.PaymentStatusFullyPaid
		payment.FullyPaidAt = &now
		if payment.DepositPaidAt == nil {
			payment.DepositPaidAt = &now
		}
		if err := repo.Update(payment); err != nil {
			return err
		}
		if err := s.appendAudit(tx, payment.ID, input.ActorID, input.ActorRole,
			constants.AuditActionMarkFullyPaid, &before, payment); err != nil {
			return err
		}
		result = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListAuditLogs 分页查询审计日志
func (s *PaymentService) ListAuditLogs(filter repository.AuditLogListFilter) ([]models.PaymentAuditLog, int64, error) {
	return s.auditRepo.List(filter)
}

// guardMutable 资金操作前的通用防线：冻结记录与金额不一致记录都拒绝变更。
func (s *PaymentService) guardMutable(tx *gorm.DB, payment *models.Payment) error {
	if payment.Frozen {
		return ErrPaymentFrozen
	}
	if !paymentAmountsConsistent(payment) {
		payment.Frozen = true
		if err := s.paymentRepo.WithTx(tx).Update(payment); err != nil {
			return err
		}
		logger.Errorw("payment_frozen_on_integrity_check",
			"payment_id", payment.ID,
			"quote_id", payment.QuoteID,
		)
		return ErrPaymentFrozen
	}
	return nil
}

func (s *PaymentService) freezeCorrupted(payment *models.Payment) error {
	return settlementTx(func(tx *gorm.DB) error {
		repo := s.paymentRepo.WithTx(tx)
		locked, err := repo.GetByIDForUpdate(payment.ID)
		if err != nil {
			return err
		}
		if locked == nil || locked.Frozen {
			if locked != nil {
				payment.Frozen = locked.Frozen
			}
			return nil
		}
		locked.Frozen = true
		if err := repo.Update(locked); err != nil {
			return err
		}
		payment.Frozen = true
		logger.Errorw("payment_frozen_on_integrity_check",
			"payment_id", locked.ID,
			"quote_id", locked.QuoteID,
		)
		return nil
	})
}

// paymentAmountsConsistent 校验佣金拆分与保证金额度是否自洽。
func paymentAmountsConsistent(payment *models.Payment) bool {
	if payment == nil {
		return false
	}
	total := payment.TotalAmount.Decimal.Round(2)
	split := payment.PlatformCommission.Decimal.Add(payment.MoverPayout.Decimal).Round(2)
	if !split.Equal(total) {
		return false
	}
	if payment.GuaranteeReleased.Decimal.GreaterThan(payment.GuaranteeAmount.Decimal) {
		return false
	}
	if payment.GuaranteeAmount.Decimal.IsNegative() || payment.EscrowAmount.Decimal.IsNegative() {
		return false
	}
	return true
}

// appendAudit 追加审计日志，before 为空表示创建动作。
func (s *PaymentService) appendAudit(
	tx *gorm.DB,
	paymentID uint,
	actorID uint,
	actorRole string,
	action string,
	before *models.Payment,
	after *models.Payment,
) error {
	log := &models.PaymentAuditLog{
		PaymentID: paymentID,
		ActorID:   actorID,
		ActorRole: actorRole,
		Action:    action,
		Before:    paymentSnapshot(before),
		After:     paymentSnapshot(after),
	}
	return s.auditRepo.WithTx(tx).Create(log)
}

func paymentSnapshot(payment *models.Payment) models.JSON {
	if payment == nil {
		return nil
	}
	return models.JSON{
		"payment_status":     payment.PaymentStatus,
		"escrow_released":    payment.EscrowReleased,
		"guarantee_status":   payment.GuaranteeStatus,
		"guarantee_released": payment.GuaranteeReleased.String(),
		"total_amount":       payment.TotalAmount.String(),
		"frozen":             payment.Frozen,
	}
}
