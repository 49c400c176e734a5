package service

import (
	"strings"

	"github.com/movelink-next/internal/logger"
	"github.com/movelink-next/internal/models"
	"github.com/movelink-next/internal/queue"
	"github.com/movelink-next/internal/repository"
)

// NotificationService 站内通知服务
// 投递是尽力而为的：失败只记日志，绝不反向影响资金事务。
type NotificationService struct {
	notificationRepo repository.NotificationRepository
	queueClient      *queue.Client
}

// NewNotificationService 创建通知服务
func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	queueClient *queue.Client,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		queueClient:      queueClient,
	}
}

// NotifyInput 通知输入
type NotifyInput struct {
	UserID    uint
	Title     string
	Message   string
	Type      string
	RelatedID uint
}

// Notify 投递站内通知。
// 队列可用时异步投递，否则同步落库；两条路径失败都只记日志。
func (s *NotificationService) Notify(input NotifyInput) {
	if input.UserID == 0 || strings.TrimSpace(input.Title) == "" {
		return
	}
	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueueNotificationDispatch(queue.NotificationDispatchPayload{
			UserID:    input.UserID,
			Title:     input.Title,
			Message:   input.Message,
			Type:      input.Type,
			RelatedID: input.RelatedID,
		})
		if err == nil {
			return
		}
		logger.Warnw("notification_enqueue_failed",
			"user_id", input.UserID,
			"type", input.Type,
			"error", err,
		)
	}
	if err := s.DispatchDirect(input); err != nil {
		logger.Warnw("notification_dispatch_failed",
			"user_id", input.UserID,
			"type", input.Type,
			"error", err,
		)
	}
}

// DispatchDirect 同步落库投递，queue worker 也复用该入口。
func (s *NotificationService) DispatchDirect(input NotifyInput) error {
	notification := &models.Notification{
		UserID:    input.UserID,
		Title:     strings.TrimSpace(input.Title),
		Message:   strings.TrimSpace(input.Message),
		Type:      input.Type,
		RelatedID: input.RelatedID,
	}
	return s.notificationRepo.Create(notification)
}

// List 分页查询通知
func (s *NotificationService) List(filter repository.NotificationListFilter) ([]models.Notification, int64, error) {
	return s.notificationRepo.List(filter)
}

// MarkRead 标记单条通知已读
func (s *NotificationService) MarkRead(id uint, userID uint) error {
	notification, err := s.notificationRepo.GetByIDAndUser(id, userID)
	if err != nil {
		return err
	}
	if notification == nil {
		return ErrNotificationNotFound
	}
	return s.notificationRepo.MarkRead(id, userID)
}

// MarkAllRead 标记全部通知已读
func (s *NotificationService) MarkAllRead(userID uint) error {
	return s.notificationRepo.MarkAllRead(userID)
}

// CountUnread 统计未读通知数量
func (s *NotificationService) CountUnread(userID uint) (int64, error) {
	return s.notificationRepo.CountUnread(userID)
}
