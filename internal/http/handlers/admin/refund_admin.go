package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/movelink-next/internal/http/response"
	"github.com/movelink-next/internal/repository"
	"github.com/movelink-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListRefunds 分页查询退款申请
func (h *Handler) ListRefunds(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.RefundListFilter{
		Status:   strings.TrimSpace(c.Query("status")),
		Page:     page,
		PageSize: pageSize,
	}
	if paymentID, err := strconv.ParseUint(c.Query("payment_id"), 10, 64); err == nil {
		filter.PaymentID = uint(paymentID)
	}
	if clientID, err := strconv.ParseUint(c.Query("client_id"), 10, 64); err == nil {
		filter.ClientID = uint(clientID)
	}

	refunds, total, err := h.RefundService.ListRefunds(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch refunds failed", err)
		return
	}
	response.SuccessWithPage(c, refunds, response.BuildPagination(page, pageSize, total))
}

// GetRefund 查询退款申请详情
func (h *Handler) GetRefund(c *gin.Context) {
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
	response.Success(c, refund)
}

// ApproveRefund 批准退款申请并触发异步转账
func (h *Handler) ApproveRefund(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	refund, err := h.RefundService.ApproveRefund(service.ApproveRefundInput{
		RefundID: id,
		AdminID:  adminID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRefundNotFound):
			respondError(c, response.CodeNotFound, "refund request not found", nil)
		case errors.Is(err, service.ErrRefundStatusInvalid):
			respondError(c, response.CodeConflict, "refund already processed", nil)
		case errors.Is(err, service.ErrPaymentFrozen):
			respondError(c, response.CodeConflict, "payment frozen pending audit", nil)
		default:
			respondError(c, response.CodeInternal, "approve refund failed", err)
		}
		return
	}
	response.Success(c, refund)
}

// RejectRefundRequest 拒绝退款请求
type RejectRefundRequest struct {
	Notes string `json:"notes"`
}

// RejectRefund 拒绝退款申请，释放对应额度
func (h *Handler) RejectRefund(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req RejectRefundRequest
	_ = c.ShouldBindJSON(&req)

	refund, err := h.RefundService.RejectRefund(service.RejectRefundInput{
		RefundID: id,
		AdminID:  adminID,
		Notes:    req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRefundNotFound):
			respondError(c, response.CodeNotFound, "refund request not found", nil)
		case errors.Is(err, service.ErrRefundStatusInvalid):
			respondError(c, response.CodeConflict, "refund already processed", nil)
		default:
			respondError(c, response.CodeInternal, "reject refund failed", err)
		}
		return
	}
	response.Success(c, refund)
}
