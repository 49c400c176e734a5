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

// ListDamageReports 分页查询损坏报告
func (h *Handler) ListDamageReports(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.DamageReportListFilter{
		Status:         strings.TrimSpace(c.Query("status")),
		Responsibility: strings.TrimSpace(c.Query("responsibility")),
		Page:           page,
		PageSize:       pageSize,
	}
	if missionID, err := strconv.ParseUint(c.Query("mission_id"), 10, 64); err == nil {
		filter.MissionID = uint(missionID)
	}

	reports, total, err := h.DamageService.ListReports(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch damage reports failed", err)
		return
	}
	response.SuccessWithPage(c, reports, response.BuildPagination(page, pageSize, total))
}

// GetDamageReport 查询损坏报告详情
func (h *Handler) GetDamageReport(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	report, err := h.DamageService.GetReport(id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDamageReportNotFound):
			respondError(c, response.CodeNotFound, "damage report not found", nil)
		default:
			respondError(c, response.CodeInternal, "fetch damage report failed", err)
		}
		return
	}
	response.Success(c, report)
}

// ReviewDamageReport 受理损坏报告（pending -> under_review）
func (h *Handler) ReviewDamageReport(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	report, err := h.DamageService.Review(service.ReviewInput{
		ReportID: id,
		AdminID:  adminID,
	})
	if err != nil {
		respondDamageAdminError(c, err)
		return
	}
	response.Success(c, report)
}

// ResolveDamageReportRequest 结案请求
type ResolveDamageReportRequest struct {
	Responsibility string `json:"responsibility" binding:"required"`
	Notes          string `json:"notes"`
}

// ResolveDamageReport 结案并落定责任归属（终态）
func (h *Handler) ResolveDamageReport(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ResolveDamageReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	report, err := h.DamageService.Resolve(service.ResolveInput{
		ReportID:       id,
		AdminID:        adminID,
		Responsibility: req.Responsibility,
		Notes:          req.Notes,
	})
	if err != nil {
		respondDamageAdminError(c, err)
		return
	}
	response.Success(c, report)
}

// RejectDamageReportRequest 驳回请求
type RejectDamageReportRequest struct {
	Notes string `json:"notes"`
}

// RejectDamageReport 驳回损坏报告（终态）
func (h *Handler) RejectDamageReport(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req RejectDamageReportRequest
	_ = c.ShouldBindJSON(&req)

	report, err := h.DamageService.RejectReport(service.RejectReportInput{
		ReportID: id,
		AdminID:  adminID,
		Notes:    req.Notes,
	})
	if err != nil {
		respondDamageAdminError(c, err)
		return
	}
	response.Success(c, report)
}

func respondDamageAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDamageReportNotFound):
		respondError(c, response.CodeNotFound, "damage report not found", nil)
	case errors.Is(err, service.ErrDamageReportTerminal):
		respondError(c, response.CodeConflict, "damage report already closed", nil)
	case errors.Is(err, service.ErrDamageResponsibilityInvalid):
		respondError(c, response.CodeBadRequest, "invalid responsibility", nil)
	case errors.Is(err, service.ErrDamageNotesRequired):
		respondError(c, response.CodeBadRequest, "resolution notes required", nil)
	default:
		respondError(c, response.CodeInternal, "process damage report failed", err)
	}
}
