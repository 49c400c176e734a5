package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/movelink-next/internal/http/response"
	"github.com/movelink-next/internal/models"
	"github.com/movelink-next/internal/repository"
	"github.com/movelink-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateRefundRequest 退款申请请求
type CreateRefundRequest struct {
	Amount string `json:"amount" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// CreateRefund 客户发起退款申请
func (h *Handler) CreateRefund(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid amount", err)
		return
	}

	refund, err := h.RefundService.CreateRefund(service.CreateRefundInput{
		PaymentID: id,
		ClientID:  uid,
		Amount:    models.NewMoneyFromDecimal(amount),
		Reason:    req.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			respondError(c, response.CodeNotFound, "payment not found", nil)
		case errors.Is(err, service.ErrPermissionDenied):
			respondError(c, response.CodeForbidden, "not the client of this payment", nil)
		case errors.Is(err, service.ErrPaymentFrozen):
			respondError(c, response.CodeConflict, "payment frozen pending audit", nil)
		case errors.Is(err, service.ErrRefundAmountInvalid):
			respondError(c, response.CodeBadRequest, "refund amount invalid", nil)
		case errors.Is(err, service.ErrRefundExceedsRefundable):
			respondError(c, response.CodeBadRequest, "refund amount exceeds refundable balance", nil)
		default:
			respondError(c, response.CodeInternal, "create refund failed", err)
		}
		return
	}
	response.Success(c, refund)
}

// ListMyRefunds 查询当前用户的退款申请
func (h *Handler) ListMyRefunds(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	refunds, total, err := h.RefundService.ListRefunds(repository.RefundListFilter{
		ClientID: uid,
		Status:   strings.TrimSpace(c.Query("status")),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "fetch refunds failed", err)
		return
	}
	response.SuccessWithPage(c, refunds, response.BuildPagination(page, pageSize, total))
}

// GetRefund 查询退款申请详情（仅申请客户可见）
func (h *Handler) GetRefund(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	refund, err := h.RefundService.GetRefund(id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRefundNotFound):
			respondError(c, response.CodeNotFound, "refund request not found", nil)
		default:
			respondError(c, response.CodeInternal, "fetch refund failed", err)
		}
		return
	}
	if refund.ClientID != uid {
		respondError(c, response.CodeForbidden, "not the owner of this refund", nil)
		return
	}
	response.Success(c, refund)
}
