package models

import (
	"time"

	"gorm.io/gorm"
)

// MissionStatus 搬家任务进度（定金到账后按报价单惰性创建）
type MissionStatus struct {
	ID          uint           `gorm:"primarykey" json:"id"`                              // 主键
	QuoteID     uint           `gorm:"uniqueIndex;not null" json:"quote_id"`              // 报价单ID（1:1）
	ClientID    uint           `gorm:"index;not null" json:"client_id"`                   // 客户ID
	MoverID     uint           `gorm:"index;not null" json:"mover_id"`                    // 搬家公司ID
	Status      string         `gorm:"index;not null;default:confirmed" json:"status"`    // 当前状态（仅前向推进）
	StartedAt   *time.Time     `json:"started_at,omitempty"`                              // 出发时间
	LoadedAt    *time.Time     `json:"loaded_at,omitempty"`                               // 装载完成时间
	ArrivedAt   *time.Time     `json:"arrived_at,omitempty"`                              // 到达时间
	CompletedAt *time.Time     `json:"completed_at,omitempty"`                            // 完成时间
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                           // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                    // 软删除时间
}

// TableName 指定表名
func (MissionStatus) TableName() string {
	return "mission_statuses"
}

// MissionEvidence 任务取证照片引用（只存 storage 路径，不存二进制）
type MissionEvidence struct {
	ID          uint      `gorm:"primarykey" json:"id"`              // 主键
	MissionID   uint      `gorm:"index;not null" json:"mission_id"`  // 任务ID
	Phase       string    `gorm:"index;not null" json:"phase"`       // 取证阶段（before/loading/unloading）
	StoragePath string    `gorm:"type:text;not null" json:"storage_path"` // 外部存储路径（不透明引用）
	UploadedBy  uint      `gorm:"index;not null" json:"uploaded_by"` // 上传者ID
	CreatedAt   time.Time `gorm:"index" json:"created_at"`           // 上传时间
}

// TableName 指定表名
func (MissionEvidence) TableName() string {
	return "mission_evidences"
}
