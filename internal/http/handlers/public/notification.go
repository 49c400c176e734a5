package public

import (
	"errors"
	"strconv"

	"github.com/movelink-next/internal/http/response"
	"github.com/movelink-next/internal/repository"
	"github.com/movelink-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetMyNotifications 查询当前用户通知列表
func (h *Handler) GetMyNotifications(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	notifications, total, err := h.NotificationService.List(repository.NotificationListFilter{
		UserID:     uid,
		Type:       c.Query("type"),
		UnreadOnly: c.Query("unread_only") == "true",
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "fetch notifications failed", err)
		return
	}
	response.SuccessWithPage(c, notifications, response.BuildPagination(page, pageSize, total))
}

// GetUnreadNotificationCount 查询未读通知数
func (h *Handler) GetUnreadNotificationCount(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	count, err := h.NotificationService.CountUnread(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch unread count failed", err)
		return
	}
	response.Success(c, gin.H{"unread": count})
}

// MarkNotificationRead 标记单条通知已读
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.NotificationService.MarkRead(id, uid); err != nil {
		switch {
		case errors.Is(err, service.ErrNotificationNotFound):
			respondError(c, response.CodeNotFound, "notification not found", nil)
		default:
			respondError(c, response.CodeInternal, "mark read failed", err)
		}
		return
	}
	response.Success(c, gin.H{"read": true})
}

// MarkAllNotificationsRead 标记全部通知已读
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	if err := h.NotificationService.MarkAllRead(uid); err != nil {
		respondError(c, response.CodeInternal, "mark all read failed", err)
		return
	}
	response.Success(c, gin.H{"read": true})
}
