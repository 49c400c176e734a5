package repository

import (
	"errors"

	"github.com/movelink-next/internal/models"

	"gorm.io/gorm"
)

// GuaranteeDecisionRepository 保证金裁决历史数据访问接口（只追加不修改）
type GuaranteeDecisionRepository interface {
	Create(decision *models.GuaranteeDecision) error
	GetLatestByPaymentID(paymentID uint) (*models.GuaranteeDecision, error)
	ListByPaymentID(paymentID uint) ([]models.GuaranteeDecision, error)
	WithTx(tx *gorm.DB) *GormGuaranteeDecisionRepository
}

// GormGuaranteeDecisionRepository GORM 实现
type GormGuaranteeDecisionRepository struct {
	db *gorm.DB
}

// NewGuaranteeDecisionRepository 创建保证金裁决仓储
func NewGuaranteeDecisionRepository(db *gorm.DB) *GormGuaranteeDecisionRepository {
	return &GormGuaranteeDecisionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormGuaranteeDecisionRepository) WithTx(tx *gorm.DB) *GormGuaranteeDecisionRepository {
	if tx == nil {
		return r
	}
	return &GormGuaranteeDecisionRepository{db: tx}
}

// Create 追加裁决记录
func (r *GormGuaranteeDecisionRepository) Create(decision *models.GuaranteeDecision) error {
	return r.db.Create(decision).Error
}

// GetLatestByPaymentID 获取某笔支付的最近一次裁决
func (r *GormGuaranteeDecisionRepository) GetLatestByPaymentID(paymentID uint) (*models.GuaranteeDecision, error) {
	if paymentID == 0 {
		return nil, nil
	}
	var decision models.GuaranteeDecision
	if err := r.db.Where("payment_id = ?", paymentID).
		Order("id desc").
		First(&decision).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &decision, nil
}

// ListByPaymentID 获取某笔支付的全部裁决历史
func (r *GormGuaranteeDecisionRepository) ListByPaymentID(paymentID uint) ([]models.GuaranteeDecision, error) {
	if paymentID == 0 {
		return []models.GuaranteeDecision{}, nil
	}
	var decisions []models.GuaranteeDecision
	if err := r.db.Where("payment_id = ?", paymentID).
		Order("id asc").
		Find(&decisions).Error; err != nil {
		return nil, err
	}
	return decisions, nil
}
