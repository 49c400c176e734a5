package repository

import (
	"github.com/movelink-next/internal/models"

	"gorm.io/gorm"
)

// AuditLogRepository 支付审计日志数据访问接口（只追加不修改）
type AuditLogRepository interface {
	Create(log *models.PaymentAuditLog) error
	List(filter AuditLogListFilter) ([]models.PaymentAuditLog, int64, error)
	ListByPaymentID(paymentID uint) ([]models.PaymentAuditLog, error)
	WithTx(tx *gorm.DB) *GormAuditLogRepository
}

// GormAuditLogRepository GORM 实现
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志仓储
func NewAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAuditLogRepository) WithTx(tx *gorm.DB) *GormAuditLogRepository {
	if tx == nil {
		return r
	}
	return &GormAuditLogRepository{db: tx}
}

// Create 追加审计日志
func (r *GormAuditLogRepository) Create(log *models.PaymentAuditLog) error {
	return r.db.Create(log).Error
}

// List 分页查询审计日志
func (r *GormAuditLogRepository) List(filter AuditLogListFilter) ([]models.PaymentAuditLog, int64, error) {
	query := r.db.Model(&models.PaymentAuditLog{})

	if filter.PaymentID != 0 {
		query = query.Where("payment_id = ?", filter.PaymentID)
	}
	if filter.ActorID != 0 {
		query = query.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var logs []models.PaymentAuditLog
	if err := query.Order("id desc").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// ListByPaymentID 获取某笔支付的全部审计日志
func (r *GormAuditLogRepository) ListByPaymentID(paymentID uint) ([]models.PaymentAuditLog, error) {
	if paymentID == 0 {
		return []models.PaymentAuditLog{}, nil
	}
	var logs []models.PaymentAuditLog
	if err := r.db.Where("payment_id = ?", paymentID).
		Order("id asc").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
