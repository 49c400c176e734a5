package repository

import (
	"errors"

	"github.com/movelink-next/internal/constants"
	"github.com/movelink-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DamageReportRepository 损坏报告数据访问接口
type DamageReportRepository interface {
	Create(report *models.DamageReport) error
	GetByID(id uint) (*models.DamageReport, error)
	GetByIDForUpdate(id uint) (*models.DamageReport, error)
	GetOpenByMissionID(missionID uint) (*models.DamageReport, error)
	Update(report *models.DamageReport) error
	List(filter DamageReportListFilter) ([]models.DamageReport, int64, error)
	WithTx(tx *gorm.DB) *GormDamageReportRepository
}

// GormDamageReportRepository GORM 实现
type GormDamageReportRepository struct {
	db *gorm.DB
}

// NewDamageReportRepository 创建损坏报告仓储
func NewDamageReportRepository(db *gorm.DB) *GormDamageReportRepository {
	return &GormDamageReportRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDamageReportRepository) WithTx(tx *gorm.DB) *GormDamageReportRepository {
	if tx == nil {
		return r
	}
	return &GormDamageReportRepository{db: tx}
}

// Create 创建损坏报告
func (r *GormDamageReportRepository) Create(report *models.DamageReport) error {
	return r.db.Create(report).Error
}

// GetByID 根据 ID 获取损坏报告
func (r *GormDamageReportRepository) GetByID(id uint) (*models.DamageReport, error) {
	if id == 0 {
		return nil, nil
	}
	var report models.DamageReport
	if err := r.db.First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// GetByIDForUpdate 根据 ID 加锁获取损坏报告
func (r *GormDamageReportRepository) GetByIDForUpdate(id uint) (*models.DamageReport, error) {
	if id == 0 {
		return nil, nil
	}
	var report models.DamageReport
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// GetOpenByMissionID 获取任务下未结案的损坏报告
func (r *GormDamageReportRepository) GetOpenByMissionID(missionID uint) (*models.DamageReport, error) {
	if missionID == 0 {
		return nil, nil
	}
	var report models.DamageReport
	if err := r.db.
		Where("mission_id = ? AND status NOT IN ?", missionID, []string{
			constants.DamageStatusResolved,
			constants.DamageStatusRejected,
		}).
		Order("id desc").
		First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// Update 保存损坏报告
func (r *GormDamageReportRepository) Update(report *models.DamageReport) error {
	return r.db.Save(report).Error
}

// List 分页查询损坏报告
func (r *GormDamageReportRepository) List(filter DamageReportListFilter) ([]models.DamageReport, int64, error) {
	query := r.db.Model(&models.DamageReport{})

	if filter.MissionID != 0 {
		query = query.Where("mission_id = ?", filter.MissionID)
	}
	if filter.ReportedBy != 0 {
		query = query.Where("reported_by = ?", filter.ReportedBy)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Responsibility != "" {
		query = query.Where("responsibility = ?", filter.Responsibility)
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

	var reports []models.DamageReport
	if err := query.Order("id desc").Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}
