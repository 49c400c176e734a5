package repository

import (
	"errors"

	"github.com/movelink-next/internal/constants"
	"github.com/movelink-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReleaseRequestRepository 放款申请数据访问接口
type ReleaseRequestRepository interface {
	Create(request *models.PaymentReleaseRequest) error
	GetByID(id uint) (*models.PaymentReleaseRequest, error)
	GetByIDForUpdate(id uint) (*models.PaymentReleaseRequest, error)
	GetPendingByPaymentID(paymentID uint) (*models.PaymentReleaseRequest, error)
	Update(request *models.PaymentReleaseRequest) error
	List(filter ReleaseRequestListFilter) ([]models.PaymentReleaseRequest, int64, error)
	CountPending() (int64, error)
	WithTx(tx *gorm.DB) *GormReleaseRequestRepository
}

// GormReleaseRequestRepository GORM 实现
type GormReleaseRequestRepository struct {
	db *gorm.DB
}

// NewReleaseRequestRepository 创建放款申请仓储
func NewReleaseRequestRepository(db *gorm.DB) *GormReleaseRequestRepository {
	return &GormReleaseRequestRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReleaseRequestRepository) WithTx(tx *gorm.DB) *GormReleaseRequestRepository {
	if tx == nil {
		return r
	}
	return &GormReleaseRequestRepository{db: tx}
}

// Create 创建放款申请
func (r *GormReleaseRequestRepository) Create(request *models.PaymentReleaseRequest) error {
	return r.db.Create(request).Error
}

// GetByID 根据 ID 获取放款申请
func (r *GormReleaseRequestRepository) GetByID(id uint) (*models.PaymentReleaseRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var request models.PaymentReleaseRequest
	if err := r.db.First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

// GetByIDForUpdate 根据 ID 加锁获取放款申请
func (r *GormReleaseRequestRepository) GetByIDForUpdate(id uint) (*models.PaymentReleaseRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var request models.PaymentReleaseRequest
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

// GetPendingByPaymentID 获取某笔支付的待处理放款申请
func (r *GormReleaseRequestRepository) GetPendingByPaymentID(paymentID uint) (*models.PaymentReleaseRequest, error) {
	if paymentID == 0 {
		return nil, nil
	}
	var request models.PaymentReleaseRequest
	if err := r.db.
		Where("payment_id = ? AND status = ?", paymentID, constants.ReleaseStatusPending).
		Order("id desc").
		First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

// Update 保存放款申请
func (r *GormReleaseRequestRepository) Update(request *models.PaymentReleaseRequest) error {
	return r.db.Save(request).Error
}

// List 分页查询放款申请
func (r *GormReleaseRequestRepository) List(filter ReleaseRequestListFilter) ([]models.PaymentReleaseRequest, int64, error) {
	query := r.db.Model(&models.PaymentReleaseRequest{})

	if filter.PaymentID != 0 {
		query = query.Where("payment_id = ?", filter.PaymentID)
	}
	if filter.MoverID != 0 {
		query = query.Where("mover_id = ?", filter.MoverID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var requests []models.PaymentReleaseRequest
	if err := query.Order("id desc").Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// CountPending 统计待处理的放款申请数量
func (r *GormReleaseRequestRepository) CountPending() (int64, error) {
	var count int64
	if err := r.db.Model(&models.PaymentReleaseRequest{}).
		Where("status = ?", constants.ReleaseStatusPending).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
