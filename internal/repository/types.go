package repository

import "time"

// PaymentListFilter 支付记录查询条件
type PaymentListFilter struct {
	ClientID      uint
	MoverID       uint
	QuoteID       uint
	PaymentStatus string
	Frozen        *bool
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Page          int
	PageSize      int
}

// DamageReportListFilter 损坏报告查询条件
type DamageReportListFilter struct {
	MissionID      uint
	ReportedBy     uint
	Status         string
	Responsibility string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Page           int
	PageSize       int
}

// ReleaseRequestListFilter 放款申请查询条件
type ReleaseRequestListFilter struct {
	PaymentID uint
	MoverID   uint
	Status    string
	Page      int
	PageSize  int
}

// RefundListFilter 退款申请查询条件
type RefundListFilter struct {
	PaymentID   uint
	ClientID    uint
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	PageSize    int
}

// AuditLogListFilter 审计日志查询条件
type AuditLogListFilter struct {
	PaymentID   uint
	ActorID     uint
	Action      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	PageSize    int
}

// NotificationListFilter 通知查询条件
type NotificationListFilter struct {
	UserID     uint
	Type       string
	UnreadOnly bool
	Page       int
	PageSize   int
}

// MissionListFilter 任务进度查询条件
type MissionListFilter struct {
	ClientID uint
	MoverID  uint
	Status   string
	Page     int
	PageSize int
}

// UserListFilter 用户查询条件
type UserListFilter struct {
	Role     string
	Status   string
	Keyword  string
	Page     int
	PageSize int
}
