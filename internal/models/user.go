package models

import (
	"time"

	"gorm.io/gorm"
)

// User 平台用户（客户或搬家公司）
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`                        // 主键
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`           // 邮箱
	PasswordHash string         `gorm:"not null" json:"-"`                           // 密码哈希
	Role         string         `gorm:"index;not null" json:"role"`                  // 角色（client/mover）
	Name         string         `gorm:"type:varchar(200)" json:"name"`               // 姓名/公司名
	Phone        string         `gorm:"type:varchar(50)" json:"phone"`               // 电话
	Status       string         `gorm:"index;not null;default:active" json:"status"` // 账户状态
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                     // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                     // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                              // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Notification 站内通知（尽力投递，失败只记日志）
type Notification struct {
	ID        uint      `gorm:"primarykey" json:"id"`           // 主键
	UserID    uint      `gorm:"index;not null" json:"user_id"`  // 接收用户ID
	Title     string    `gorm:"not null" json:"title"`          // 标题
	Message   string    `gorm:"type:text" json:"message"`       // 内容
	Type      string    `gorm:"index;not null" json:"type"`     // 通知类型
	RelatedID uint      `gorm:"index" json:"related_id"`        // 关联对象ID
	ReadAt    *time.Time `json:"read_at,omitempty"`             // 已读时间
	CreatedAt time.Time `gorm:"index" json:"created_at"`        // 创建时间
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}
