package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentReleaseRequest 托管放款申请（每笔支付同一时刻最多一条 pending）
type PaymentReleaseRequest struct {
	ID           uint           `gorm:"primarykey" json:"id"`                         // 主键
	PaymentID    uint           `gorm:"index;not null;uniqueIndex:uniq_release_request_pending,where:status = 'pending'" json:"payment_id"` // 支付记录ID（同一支付最多一条 pending）
	MoverID      uint           `gorm:"index;not null" json:"mover_id"`               // 申请搬家公司ID
	Status       string         `gorm:"index;not null;default:pending" json:"status"` // 申请状态（approved/rejected 为终态）
	RiskAdvisory JSON           `gorm:"type:json" json:"risk_advisory"`               // 申请时附加的风控分析（仅供参考）
	AdminNotes   string         `gorm:"type:text" json:"admin_notes"`                 // 管理员备注（拒绝时必填）
	RequestedAt  time.Time      `gorm:"index;not null" json:"requested_at"`           // 申请时间
	ProcessedBy  *uint          `gorm:"index" json:"processed_by,omitempty"`          // 处理管理员ID
	ProcessedAt  *time.Time     `gorm:"index" json:"processed_at,omitempty"`          // 处理时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                      // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                      // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                               // 软删除时间
}

// TableName 指定表名
func (PaymentReleaseRequest) TableName() string {
	return "payment_release_requests"
}
