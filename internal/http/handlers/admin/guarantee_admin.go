package admin

import (
	"errors"
	"strings"

	"github.com/movelink-next/internal/http/response"
	"github.com/movelink-next/internal/models"
	"github.com/movelink-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// DecideGuaranteeRequest 保证金裁决请求
type DecideGuaranteeRequest struct {
	Decision string `json:"decision" binding:"required"`
	Amount   string `json:"amount"` // 仅 partial_return 使用
	Notes    string `json:"notes"`
}

// DecideGuarantee 执行保证金裁决
func (h *Handler) DecideGuarantee(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req DecideGuaranteeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	amount := decimal.Zero
	if raw := strings.TrimSpace(req.Amount); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "invalid amount", err)
			return
		}
		amount = parsed
	}

	payment, decision, err := h.GuaranteeService.Decide(service.DecideInput{
		PaymentID: id,
		Decision:  req.Decision,
		Amount:    models.NewMoneyFromDecimal(amount),
		AdminID:   adminID,
		Notes:     req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			respondError(c, response.CodeNotFound, "payment not found", nil)
		case errors.Is(err, service.ErrPaymentFrozen):
			respondError(c, response.CodeConflict, "payment frozen pending audit", nil)
		case errors.Is(err, service.ErrGuaranteeNotHeld):
			respondError(c, response.CodeBadRequest, "no guarantee amount held", nil)
		case errors.Is(err, service.ErrGuaranteeAmountInvalid):
			respondError(c, response.CodeBadRequest, "guarantee amount invalid", nil)
		default:
			respondError(c, response.CodeInternal, "guarantee decision failed", err)
		}
		return
	}
	response.Success(c, gin.H{
		"payment":  payment,
		"decision": decision,
	})
}

// ListGuaranteeDecisions 查询保证金裁决历史
func (h *Handler) ListGuaranteeDecisions(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	decisions, err := h.GuaranteeService.ListDecisions(id)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch decisions failed", err)
		return
	}
	response.Success(c, decisions)
}
