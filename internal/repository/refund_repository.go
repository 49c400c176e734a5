package repository

import (
	"errors"

	"github.com/movelink-next/internal/constants"
	"github.com/movelink-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefundRepository 退款申请数据访问接口
type RefundRepository interface {
	Create(request *models.RefundRequest) error
	GetByID(id uint) (*models.RefundRequest, error)
	GetByIDForUpdate(id uint) (*models.RefundRequest, error)
	Update(request *models.RefundRequest) error
	List(filter RefundListFilter) ([]models.RefundRequest, int64, error)
	SumActiveByPaymentID(paymentID uint) (decimal.Decimal, error)
	CountPending() (int64, error)
	WithTx(tx *gorm.DB) *GormRefundRepository
}

// GormRefundRepository GORM 实现
type GormRefundRepository struct {
	db *gorm.DB
}

// NewRefundRepository 创建退款申请仓储
func NewRefundRepository(db *gorm.DB) *GormRefundRepository {
	return &GormRefundRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRefundRepository) WithTx(tx *gorm.DB) *GormRefundRepository {
	if tx == nil {
		return r
	}
	return &GormRefundRepository{db: tx}
}

// Create 创建退款申请
func (r *GormRefundRepository) Create(request *models.RefundRequest) error {
	return r.db.Create(request).Error
}

// GetByID 根据 ID 获取退款申请
func (r *GormRefundRepository) GetByID(id uint) (*models.RefundRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var request models.RefundRequest
	if err := r.db.First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

// GetByIDForUpdate 根据 ID 加锁获取退款申请
func (r *GormRefundRepository) GetByIDForUpdate(id uint) (*models.RefundRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var request models.RefundRequest
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

// Update 保存退款申请
func (r *GormRefundRepository) Update(request *models.RefundRequest) error {
	return r.db.Save(request).Error
}

// List 分页查询退款申请
func (r *GormRefundRepository) List(filter RefundListFilter) ([]models.RefundRequest, int64, error) {
	query := r.db.Model(&models.RefundRequest{})

	if filter.PaymentID != 0 {
		query = query.Where("payment_id = ?", filter.PaymentID)
	}
	if filter.ClientID != 0 {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
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

	var requests []models.RefundRequest
	if err := query.Order("id desc").Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// SumActiveByPaymentID 汇总某笔支付未被拒绝的退款总额（占用可退额度）
func (r *GormRefundRepository) SumActiveByPaymentID(paymentID uint) (decimal.Decimal, error) {
	if paymentID == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal
	}
	if err := r.db.Model(&models.RefundRequest{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("payment_id = ? AND status <> ?", paymentID, constants.RefundStatusRejected).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return row.Total, nil
}

// CountPending 统计待处理的退款申请数量
func (r *GormRefundRepository) CountPending() (int64, error) {
	var count int64
	if err := r.db.Model(&models.RefundRequest{}).
		Where("status = ?", constants.RefundStatusPending).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
