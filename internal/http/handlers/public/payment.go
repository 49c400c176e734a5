package public

import (
	"errors"
	"strconv"

	"github.com/movelink-next/internal/http/response"
	"github.com/movelink-next/internal/models"
	"github.com/movelink-next/internal/service"

	"github.com/gin-gonic/gin"
)

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid id", nil)
		return 0, false
	}
	return uint(id), true
}

// isPaymentParty 判断当前用户是否为该笔支付的参与方
func isPaymentParty(payment *models.Payment, uid uint) bool {
	if payment == nil {
		return false
	}
	return payment.ClientID == uid || payment.MoverID == uid
}

// GetPayment 获取支付记录详情（仅参与方可见）
func (h *Handler) GetPayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	payment, err := h.PaymentService.GetPayment(id)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	if !isPaymentParty(payment, uid) {
		respondError(c, response.CodeForbidden, "not a party of this payment", nil)
		return
	}
	response.Success(c, payment)
}

// GetPaymentByQuoteID 按报价单获取支付记录（仅参与方可见）
func (h *Handler) GetPaymentByQuoteID(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	quoteID, ok := parseIDParam(c, "quote_id")
	if !ok {
		return
	}
	payment, err := h.PaymentService.GetPaymentByQuoteID(quoteID)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	if !isPaymentParty(payment, uid) {
		respondError(c, response.CodeForbidden, "not a party of this payment", nil)
		return
	}
	response.Success(c, payment)
}

// GetRemainingRefundable 查询剩余可退额度（仅参与方可见）
func (h *Handler) GetRemainingRefundable(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	payment, err := h.PaymentService.GetPayment(id)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	if !isPaymentParty(payment, uid) {
		respondError(c, response.CodeForbidden, "not a party of this payment", nil)
		return
	}
	remaining, err := h.RefundService.RemainingRefundable(id)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch refundable failed", err)
		return
	}
	response.Success(c, gin.H{
		"payment_id": id,
		"refundable": remaining.StringFixed(2),
	})
}

// CreateReleaseRequest 搬家公司发起托管放款申请
func (h *Handler) CreateReleaseRequest(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	request, err := h.ReleaseService.RequestRelease(c.Request.Context(), service.RequestReleaseInput{
		PaymentID: id,
		MoverID:   uid,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			respondError(c, response.CodeNotFound, "payment not found", nil)
		case errors.Is(err, service.ErrPermissionDenied):
			respondError(c, response.CodeForbidden, "not the mover of this payment", nil)
		case errors.Is(err, service.ErrPaymentFrozen):
			respondError(c, response.CodeConflict, "payment frozen pending audit", nil)
		case errors.Is(err, service.ErrPaymentNotFullyPaid):
			respondError(c, response.CodeBadRequest, "payment not fully paid", nil)
		case errors.Is(err, service.ErrMissionNotCompleted):
			respondError(c, response.CodeBadRequest, "mission not completed", nil)
		case errors.Is(err, service.ErrAlreadyReleased):
			respondError(c, response.CodeConflict, "escrow already released", nil)
		case errors.Is(err, service.ErrReleaseRequestExists):
			respondError(c, response.CodeConflict, "pending release request already exists", nil)
		default:
			respondError(c, response.CodeInternal, "create release request failed", err)
		}
		return
	}
	response.Success(c, request)
}

// GetReleaseRequest 查询放款申请（仅申请方可见）
func (h *Handler) GetReleaseRequest(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
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
	if request.MoverID != uid {
		respondError(c, response.CodeForbidden, "not the owner of this request", nil)
		return
	}
	response.Success(c, request)
}

func respondPaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPaymentNotFound):
		respondError(c, response.CodeNotFound, "payment not found", nil)
	default:
		respondError(c, response.CodeInternal, "fetch payment failed", err)
	}
}
