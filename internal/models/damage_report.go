package models

import (
	"time"

	"github.com/movelink-next/internal/constants"

	"gorm.io/gorm"
)

// DamageReport 损坏报告（每个任务可有多条，同一时刻最多一条未结案）
type DamageReport struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                  // 主键
	MissionID       uint           `gorm:"index;not null" json:"mission_id"`                      // 任务ID
	ReportedBy      uint           `gorm:"index;not null" json:"reported_by"`                     // 报告人ID
	BeforePhotoRef  string         `gorm:"type:text" json:"before_photo_ref"`                     // 搬运前照片引用
	AfterPhotoRef   string         `gorm:"type:text" json:"after_photo_ref"`                      // 搬运后照片引用
	Description     string         `gorm:"type:text" json:"description"`                          // 损坏描述
	Responsibility  string         `gorm:"index;not null;default:under_review" json:"responsibility"` // 责任归属
	Status          string         `gorm:"index;not null;default:pending" json:"status"`          // 处理状态（resolved/rejected 为终态）
	AIAdvisory      JSON           `gorm:"type:json" json:"ai_advisory"`                          // AI 分析附件（仅供参考，非决策依据）
	ResolutionNotes string         `gorm:"type:text" json:"resolution_notes"`                     // 结案说明
	ResolvedBy      *uint          `gorm:"index" json:"resolved_by,omitempty"`                    // 结案管理员ID
	ResolvedAt      *time.Time     `gorm:"index" json:"resolved_at,omitempty"`                    // 结案时间
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                               // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                        // 软删除时间
}

// TableName 指定表名
func (DamageReport) TableName() string {
	return "damage_reports"
}

// IsTerminal 判断报告是否已结案
func (r *DamageReport) IsTerminal() bool {
	if r == nil {
		return false
	}
	return r.Status == constants.DamageStatusResolved || r.Status == constants.DamageStatusRejected
}
