package models

import (
	"time"

	"gorm.io/gorm"
)

// RefundRequest 退款申请（同一支付可多条，受剩余可退额度约束）
type RefundRequest struct {
	ID          uint           `gorm:"primarykey" json:"id"`                         // 主键
	PaymentID   uint           `gorm:"index;not null" json:"payment_id"`             // 支付记录ID
	ClientID    uint           `gorm:"index;not null" json:"client_id"`              // 客户ID
	Amount      Money          `gorm:"type:decimal(20,2);not null" json:"amount"`    // 退款金额
	Reason      string         `gorm:"type:text;not null" json:"reason"`             // 退款原因
	Status      string         `gorm:"index;not null;default:pending" json:"status"` // 状态（rejected/completed 为终态）
	PayoutRef   string         `gorm:"index" json:"payout_ref"`                      // 支付通道转账参考号
	RequestedAt time.Time      `gorm:"index;not null" json:"requested_at"`           // 申请时间
	ProcessedAt *time.Time     `gorm:"index" json:"processed_at,omitempty"`          // 最近处理时间
	ProcessedBy *uint          `gorm:"index" json:"processed_by,omitempty"`          // 处理管理员ID
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                      // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                      // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                               // 软删除时间
}

// TableName 指定表名
func (RefundRequest) TableName() string {
	return "refund_requests"
}
