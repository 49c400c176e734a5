package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/movelink-next/internal/constants"
	"github.com/movelink-next/internal/http/response"
	"github.com/movelink-next/internal/models"
	"github.com/movelink-next/internal/repository"
	"github.com/movelink-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreatePaymentRequest 创建支付记录请求（报价单确认时调用）
type CreatePaymentRequest struct {
	QuoteID     uint   `json:"quote_id" binding:"required"`
	ClientID    uint   `json:"client_id" binding:"required"`
	MoverID     uint   `json:"mover_id" binding:"required"`
	TotalAmount string `json:"total_amount" binding:"required"`
}

// CreatePayment 创建支付记录并拆分佣金/定金/保证金
func (h *Handler) CreatePayment(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.TotalAmount))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid total amount", err)
		return
	}

	payment, err := h.PaymentService.CreatePayment(service.CreatePaymentInput{
		QuoteID:     req.QuoteID,
		ClientID:    req.ClientID,
		MoverID:     req.MoverID,
		TotalAmount: models.NewMoneyFromDecimal(amount),
		ActorID:     adminID,
		ActorRole:   constants.UserRoleAdmin,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentAmountInvalid):
			respondError(c, response.CodeBadRequest, "payment amount invalid", nil)
		case errors.Is(err, service.ErrPaymentExists):
			respondError(c, response.CodeConflict, "payment already exists for quote", nil)
		default:
			respondError(c, response.CodeInternal, "create payment failed", err)
		}
		return
	}
	response.Success(c, payment)
}

// ListPayments 分页查询支付记录
func (h *Handler) ListPayments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.PaymentListFilter{
		PaymentStatus: strings.TrimSpace(c.Query("payment_status")),
		Page:          page,
		PageSize:      pageSize,
	}
	if clientID, err := strconv.ParseUint(c.Query("client_id"), 10, 64); err == nil {
		filter.ClientID = uint(clientID)
	}
	if moverID, err := strconv.ParseUint(c.Query("mover_id"), 10, 64); err == nil {
		filter.MoverID = uint(moverID)
	}
	if quoteID, err := strconv.ParseUint(c.Query("quote_id"), 10, 64); err == nil {
		filter.QuoteID = uint(quoteID)
	}
	if frozenRaw := strings.TrimSpace(c.Query("frozen")); frozenRaw != "" {
		frozen := frozenRaw == "true"
		filter.Frozen = &frozen
	}

	payments, total, err := h.PaymentService.ListPayments(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch payments failed", err)
		return
	}
	response.SuccessWithPage(c, payments, response.BuildPagination(page, pageSize, total))
}

// GetPayment 获取支付记录详情
func (h *Handler) GetPayment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	payment, err := h.PaymentService.GetPayment(id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			respondError(c, response.CodeNotFound, "payment not found", nil)
		default:
			respondError(c, response.CodeInternal, "fetch payment failed", err)
		}
		return
	}
	response.Success(c, payment)
}

// ListPaymentAuditLogs 查询支付聚合审计日志
func (h *Handler) ListPaymentAuditLogs(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	logs, total, err := h.PaymentService.ListAuditLogs(repository.AuditLogListFilter{
		PaymentID: id,
		Action:    strings.TrimSpace(c.Query("action")),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "fetch audit logs failed", err)
		return
	}
	response.SuccessWithPage(c, logs, response.BuildPagination(page, pageSize, total))
}

// MarkDepositPaid 标记定金到账
func (h *Handler) MarkDepositPaid(c *gin.Context) {
	h.markPaid(c, func(input service.MarkDepositPaidInput) (*models.Payment, error) {
		return h.PaymentService.MarkDepositPaid(input)
	})
}

// MarkFullyPaid 标记全款到账
func (h *Handler) MarkFullyPaid(c *gin.Context) {
	h.markPaid(c, func(input service.MarkDepositPaidInput) (*models.Payment, error) {
		return h.PaymentService.MarkFullyPaid(service.MarkFullyPaidInput{
			PaymentID: input.PaymentID,
			ActorID:   input.ActorID,
			ActorRole: input.ActorRole,
		})
	})
}

func (h *Handler) markPaid(c *gin.Context, mark func(service.MarkDepositPaidInput) (*models.Payment, error)) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	payment, err := mark(service.MarkDepositPaidInput{
		PaymentID: id,
		ActorID:   adminID,
		ActorRole: constants.UserRoleAdmin,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			respondError(c, response.CodeNotFound, "payment not found", nil)
		case errors.Is(err, service.ErrPaymentFrozen):
			respondError(c, response.CodeConflict, "payment frozen pending audit", nil)
		case errors.Is(err, service.ErrPaymentStatusInvalid):
			respondError(c, response.CodeBadRequest, "payment status does not allow this transition", nil)
		default:
			respondError(c, response.CodeInternal, "update payment failed", err)
		}
		return
	}
	response.Success(c, payment)
}
