package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment 资金托管记录（每个搬家任务一条，1:1 对应报价单）
type Payment struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                                    // 主键
	QuoteID            uint           `gorm:"uniqueIndex;not null" json:"quote_id"`                                    // 报价单ID（1:1）
	ClientID           uint           `gorm:"index;not null" json:"client_id"`                                         // 客户ID
	MoverID            uint           `gorm:"index;not null" json:"mover_id"`                                          // 搬家公司ID
	TotalAmount        Money          `gorm:"type:decimal(20,2);not null" json:"total_amount"`                         // 总金额
	PlatformCommission Money          `gorm:"type:decimal(20,2);not null;default:0" json:"platform_commission"`        // 平台佣金
	MoverPayout        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"mover_payout"`               // 搬家公司应得（= 总金额 - 佣金）
	DepositAmount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"deposit_amount"`             // 定金金额
	EscrowAmount       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"escrow_amount"`              // 托管金额
	EscrowReleased     bool           `gorm:"not null;default:false" json:"escrow_released"`                           // 托管是否已放款（单调，不可回退）
	EscrowReleasedAt   *time.Time     `gorm:"index" json:"escrow_released_at,omitempty"`                               // 放款时间
	GuaranteeAmount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"guarantee_amount"`           // 保证金金额
	GuaranteeStatus    string         `gorm:"index;not null;default:held" json:"guarantee_status"`                     // 保证金状态
	GuaranteeReleased  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"guarantee_released_amount"`  // 已返还搬家公司的保证金
	GuaranteeDecidedAt *time.Time     `json:"guarantee_decision_at,omitempty"`                                         // 最近一次保证金裁决时间
	GuaranteeDecidedBy *uint          `gorm:"index" json:"guarantee_decided_by,omitempty"`                             // 裁决管理员ID
	GuaranteeNotes     string         `gorm:"type:text" json:"guarantee_notes"`                                        // 裁决说明
	PaymentStatus      string         `gorm:"index;not null;default:no_payment" json:"payment_status"`                 // 支付状态
	DepositPaidAt      *time.Time     `json:"deposit_paid_at,omitempty"`                                               // 定金支付时间
	FullyPaidAt        *time.Time     `json:"fully_paid_at,omitempty"`                                                 // 全款支付时间
	Frozen             bool           `gorm:"not null;default:false" json:"frozen"`                                    // 数据异常冻结标记（只读待人工审计）
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                                 // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                                                 // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                                          // 软删除时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}

// PaymentAuditLog 支付聚合审计日志（每次资金变动追加一条）
type PaymentAuditLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`             // 主键
	PaymentID uint      `gorm:"index;not null" json:"payment_id"` // 支付记录ID
	ActorID   uint      `gorm:"index;not null" json:"actor_id"`   // 操作者ID
	ActorRole string    `gorm:"not null" json:"actor_role"`       // 操作者角色
	Action    string    `gorm:"index;not null" json:"action"`     // 动作类型
	Before    JSON      `gorm:"type:json" json:"before"`          // 变更前快照
	After     JSON      `gorm:"type:json" json:"after"`           // 变更后快照
	CreatedAt time.Time `gorm:"index" json:"created_at"`          // 记录时间
}

// TableName 指定表名
func (PaymentAuditLog) TableName() string {
	return "payment_audit_logs"
}

// GuaranteeDecision 保证金裁决历史（追加式，当前状态 = 最近一条）
type GuaranteeDecision struct {
	ID             uint      `gorm:"primarykey" json:"id"`                            // 主键
	PaymentID      uint      `gorm:"index;not null" json:"payment_id"`                // 支付记录ID
	Decision       string    `gorm:"not null" json:"decision"`                        // 裁决类型（full_return/partial_return/no_return）
	ReleasedAmount Money     `gorm:"type:decimal(20,2);not null" json:"released_amount"` // 返还搬家公司金额
	RetainedAmount Money     `gorm:"type:decimal(20,2);not null" json:"retained_amount"` // 客户留存金额
	DecidedBy      uint      `gorm:"index;not null" json:"decided_by"`                // 裁决管理员ID
	Notes          string    `gorm:"type:text" json:"notes"`                          // 裁决说明
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                         // 裁决时间
}

// TableName 指定表名
func (GuaranteeDecision) TableName() string {
	return "guarantee_decisions"
}
