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

// ListReleaseRequests 分页查询放款申请
func (h *Handler) ListReleaseRequests(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.ReleaseRequestListFilter{
		Status:   strings.TrimSpace(c.Query("status")),
		Page:     page,
		PageSize: pageSize,
	}
	if paymentID, err := strconv.ParseUint(c.Query("payment_id"), 10, 64); err == nil {
		filter.PaymentID = uint(paymentID)
	}
	if moverID, err := strconv.ParseUint(c.Query("mover_id"), 10, 64); err == nil {
		filter.MoverID = uint(moverID)
	}

	requests, total, err := h.ReleaseService.ListRequests(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch release requests failed", err)
		return
	}
	response.SuccessWithPage(c, requests, response.BuildPagination(page, pageSize, total))
}

// GetReleaseRequest 查询放款申请详情
func (h *Handler) GetReleaseRequest(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	request, err := h.ReleaseService.GetRequest(id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReleaseRequestNotFound):
			respondError(c, response.CodeNotFound, "release request not found", nil)
		default:
			respondError(c, response.CodeInternal, "fetch release request failed", err)
		}
		return
	}
	response.Success(c, request)
}

// ReleaseDecisionRequest 放款审批请求
type ReleaseDecisionRequest struct {
	Notes string `json:"notes"`
}

// ApproveReleaseRequest 批准放款申请（幂等，重复放款拒绝）
func (h *Handler) ApproveReleaseRequest(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	// 审批备注可以省略，空 body 不算错误
	var req ReleaseDecisionRequest
	_ = c.ShouldBindJSON(&req)

	request, err := h.ReleaseService.Approve(service.ApproveInput{
		RequestID: id,
		AdminID:   adminID,
		Notes:     req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReleaseRequestNotFound):
			respondError(c, response.CodeNotFound, "release request not found", nil)
		case errors.Is(err, service.ErrAlreadyReleased):
			respondError(c, response.CodeConflict, "escrow already released", nil)
		case errors.Is(err, service.ErrReleaseRequestProcessed):
			respondError(c, response.CodeConflict, "release request already processed", nil)
		case errors.Is(err, service.ErrPaymentFrozen):
			respondError(c, response.CodeConflict, "payment frozen pending audit", nil)
		case errors.Is(err, service.ErrPaymentNotFullyPaid):
			respondError(c, response.CodeBadRequest, "payment not fully paid", nil)
		default:
			respondError(c, response.CodeInternal, "approve release failed", err)
		}
		return
	}
	response.Success(c, request)
}

// RejectReleaseRequest 拒绝放款申请（备注必填）
func (h *Handler) RejectReleaseRequest(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ReleaseDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	request, err := h.ReleaseService.Reject(service.RejectInput{
		RequestID: id,
		AdminID:   adminID,
		Notes:     req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReleaseRequestNotFound):
			respondError(c, response.CodeNotFound, "release request not found", nil)
		case errors.Is(err, service.ErrReleaseRequestProcessed):
			respondError(c, response.CodeConflict, "release request already processed", nil)
		case errors.Is(err, service.ErrReleaseNotesRequired):
			respondError(c, response.CodeBadRequest, "rejection notes required", nil)
		default:
			respondError(c, response.CodeInternal, "reject release failed", err)
		}
		return
	}
	response.Success(c, request)
}
