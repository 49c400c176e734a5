package repository

import (
	"errors"

	"github.com/movelink-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MissionRepository 任务进度数据访问接口
type MissionRepository interface {
	Create(mission *models.MissionStatus) error
	GetByID(id uint) (*models.MissionStatus, error)
	GetByIDForUpdate(id uint) (*models.MissionStatus, error)
	GetByQuoteID(quoteID uint) (*models.MissionStatus, error)
	Update(mission *models.MissionStatus) error
	List(filter MissionListFilter) ([]models.MissionStatus, int64, error)
	CreateEvidence(evidence *models.MissionEvidence) error
	CountEvidence(missionID uint, phase string) (int64, error)
	ListEvidence(missionID uint) ([]models.MissionEvidence, error)
	WithTx(tx *gorm.DB) *GormMissionRepository
}

// GormMissionRepository GORM 实现
type GormMissionRepository struct {
	db *gorm.DB
}

// NewMissionRepository 创建任务进度仓储
func NewMissionRepository(db *gorm.DB) *GormMissionRepository {
	return &GormMissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormMissionRepository) WithTx(tx *gorm.DB) *GormMissionRepository {
	if tx == nil {
		return r
	}
	return &GormMissionRepository{db: tx}
}

// Create 创建任务进度
func (r *GormMissionRepository) Create(mission *models.MissionStatus) error {
	return r.db.Create(mission).Error
}

// GetByID 根据 ID 获取任务进度
func (r *GormMissionRepository) GetByID(id uint) (*models.MissionStatus, error) {
	if id == 0 {
		return nil, nil
	}
	var mission models.MissionStatus
	if err := r.db.First(&mission, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mission, nil
}

// GetByIDForUpdate 根据 ID 加锁获取任务进度
func (r *GormMissionRepository) GetByIDForUpdate(id uint) (*models.MissionStatus, error) {
	if id == 0 {
		return nil, nil
	}
	var mission models.MissionStatus
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&mission, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mission, nil
}

// GetByQuoteID 根据报价单 ID 获取任务进度
func (r *GormMissionRepository) GetByQuoteID(quoteID uint) (*models.MissionStatus, error) {
	if quoteID == 0 {
		return nil, nil
	}
	var mission models.MissionStatus
	if err := r.db.Where("quote_id = ?", quoteID).First(&mission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mission, nil
}

// Update 保存任务进度
func (r *GormMissionRepository) Update(mission *models.MissionStatus) error {
	return r.db.Save(mission).Error
}

// List 分页查询任务进度
func (r *GormMissionRepository) List(filter MissionListFilter) ([]models.MissionStatus, int64, error) {
	query := r.db.Model(&models.MissionStatus{})

	if filter.ClientID != 0 {
		query = query.Where("client_id = ?", filter.ClientID)
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

	var missions []models.MissionStatus
	if err := query.Order("id desc").Find(&missions).Error; err != nil {
		return nil, 0, err
	}
	return missions, total, nil
}

// CreateEvidence 追加取证照片引用
func (r *GormMissionRepository) CreateEvidence(evidence *models.MissionEvidence) error {
	return r.db.Create(evidence).Error
}

// CountEvidence 统计某阶段的取证照片数量
func (r *GormMissionRepository) CountEvidence(missionID uint, phase string) (int64, error) {
	if missionID == 0 {
		return 0, nil
	}
	var count int64
	query := r.db.Model(&models.MissionEvidence{}).Where("mission_id = ?", missionID)
	if phase != "" {
		query = query.Where("phase = ?", phase)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListEvidence 获取任务的全部取证照片引用
func (r *GormMissionRepository) ListEvidence(missionID uint) ([]models.MissionEvidence, error) {
	if missionID == 0 {
		return []models.MissionEvidence{}, nil
	}
	var evidences []models.MissionEvidence
	if err := r.db.Where("mission_id = ?", missionID).
		Order("id asc").
		Find(&evidences).Error; err != nil {
		return nil, err
	}
	return evidences, nil
}
