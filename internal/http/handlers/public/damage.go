package public

import (
	"errors"

	"github.com/movelink-next/internal/http/response"
	"github.com/movelink-next/internal/service"

	"github.com/gin-gonic/gin"
)

// FileDamageReportRequest 提交损坏报告请求
type FileDamageReportRequest struct {
	BeforePhotoRef string `json:"before_photo_ref"`
	AfterPhotoRef  string `json:"after_photo_ref"`
	Description    string `json:"description" binding:"required"`
}

// FileDamageReport 客户提交损坏报告（到达之后才可提交）
func (h *Handler) FileDamageReport(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req FileDamageReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	report, err := h.DamageService.FileReport(c.Request.Context(), service.FileReportInput{
		MissionID:      id,
		ReportedBy:     uid,
		ReporterRole:   getUserRole(c),
		BeforePhotoRef: req.BeforePhotoRef,
		AfterPhotoRef:  req.AfterPhotoRef,
		Description:    req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissionNotFound):
			respondError(c, response.CodeNotFound, "mission not found", nil)
		case errors.Is(err, service.ErrPermissionDenied):
			respondError(c, response.CodeForbidden, "only the client can file a damage report", nil)
		case errors.Is(err, service.ErrDamageDescriptionRequired):
			respondError(c, response.CodeBadRequest, "damage description required", nil)
		case errors.Is(err, service.ErrTransitionInvalid):
			respondError(c, response.CodeBadRequest, "reports are only accepted after arrival", nil)
		case errors.Is(err, service.ErrDamageReportOpenExists):
			respondError(c, response.CodeConflict, "an open damage report already exists", nil)
		default:
			respondError(c, response.CodeInternal, "file damage report failed", err)
		}
		return
	}
	response.Success(c, report)
}

// GetDamageReport 查询损坏报告（仅任务参与方可见）
func (h *Handler) GetDamageReport(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
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
	mission, err := h.MissionService.GetMission(report.MissionID)
	if err != nil {
		respondMissionError(c, err)
		return
	}
	if !isMissionParty(mission, uid) {
		respondError(c, response.CodeForbidden, "not a party of this mission", nil)
		return
	}
	response.Success(c, report)
}
