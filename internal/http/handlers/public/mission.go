package public

import (
	"errors"

	"github.com/movelink-next/internal/http/response"
	"github.com/movelink-next/internal/models"
	"github.com/movelink-next/internal/service"

	"github.com/gin-gonic/gin"
)

func isMissionParty(mission *models.MissionStatus, uid uint) bool {
	if mission == nil {
		return false
	}
	return mission.ClientID == uid || mission.MoverID == uid
}

// EnsureMissionRequest 惰性创建任务请求
type EnsureMissionRequest struct {
	QuoteID uint `json:"quote_id" binding:"required"`
}

// EnsureMission 定金到账后按报价单惰性创建任务（幂等）
func (h *Handler) EnsureMission(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req EnsureMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	payment, err := h.PaymentService.GetPaymentByQuoteID(req.QuoteID)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	if !isPaymentParty(payment, uid) {
		respondError(c, response.CodeForbidden, "not a party of this quote", nil)
		return
	}

	mission, err := h.MissionService.EnsureMission(req.QuoteID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			respondError(c, response.CodeNotFound, "payment not found", nil)
		case errors.Is(err, service.ErrMissionNotEligible):
			respondError(c, response.CodeBadRequest, "deposit or full payment required", nil)
		default:
			respondError(c, response.CodeInternal, "ensure mission failed", err)
		}
		return
	}
	response.Success(c, mission)
}

// GetMission 获取任务进度（仅参与方可见）
func (h *Handler) GetMission(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	mission, err := h.MissionService.GetMission(id)
	if err != nil {
		respondMissionError(c, err)
		return
	}
	if !isMissionParty(mission, uid) {
		respondError(c, response.CodeForbidden, "not a party of this mission", nil)
		return
	}
	response.Success(c, mission)
}

// GetMissionByQuoteID 按报价单获取任务进度（仅参与方可见）
func (h *Handler) GetMissionByQuoteID(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	quoteID, ok := parseIDParam(c, "quote_id")
	if !ok {
		return
	}
	mission, err := h.MissionService.GetMissionByQuoteID(quoteID)
	if err != nil {
		respondMissionError(c, err)
		return
	}
	if !isMissionParty(mission, uid) {
		respondError(c, response.CodeForbidden, "not a party of this mission", nil)
		return
	}
	response.Success(c, mission)
}

// TransitionMissionRequest 状态迁移请求
type TransitionMissionRequest struct {
	Target string `json:"target" binding:"required"`
}

// TransitionMission 推进任务状态（仅迁移表声明的下一步）
func (h *Handler) TransitionMission(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req TransitionMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	mission, err := h.MissionService.Transition(service.TransitionInput{
		MissionID: id,
		Target:    req.Target,
		ActorID:   uid,
		ActorRole: getUserRole(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissionNotFound):
			respondError(c, response.CodeNotFound, "mission not found", nil)
		case errors.Is(err, service.ErrTransitionInvalid):
			respondError(c, response.CodeBadRequest, "transition not allowed from current state", nil)
		case errors.Is(err, service.ErrTransitionRoleInvalid):
			respondError(c, response.CodeForbidden, "transition not allowed for role", nil)
		case errors.Is(err, service.ErrEvidenceRequired):
			respondError(c, response.CodeBadRequest, "evidence photos required before transition", nil)
		case errors.Is(err, service.ErrDamageReportOpenExists):
			respondError(c, response.CodeConflict, "open damage report must be resolved first", nil)
		default:
			respondError(c, response.CodeInternal, "transition failed", err)
		}
		return
	}
	response.Success(c, mission)
}

// AttachMissionEvidenceRequest 取证照片上传请求
type AttachMissionEvidenceRequest struct {
	Phase       string `json:"phase" binding:"required"`
	StoragePath string `json:"storage_path" binding:"required"`
}

// AttachMissionEvidence 上传取证照片引用（仅搬家公司，阶段受当前状态约束）
func (h *Handler) AttachMissionEvidence(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req AttachMissionEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	evidence, err := h.MissionService.AttachEvidence(service.AttachEvidenceInput{
		MissionID:   id,
		Phase:       req.Phase,
		StoragePath: req.StoragePath,
		ActorID:     uid,
		ActorRole:   getUserRole(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissionNotFound):
			respondError(c, response.CodeNotFound, "mission not found", nil)
		case errors.Is(err, service.ErrPermissionDenied):
			respondError(c, response.CodeForbidden, "only the mover can upload evidence", nil)
		case errors.Is(err, service.ErrEvidencePhaseInvalid):
			respondError(c, response.CodeBadRequest, "evidence phase invalid for mission state", nil)
		default:
			respondError(c, response.CodeInternal, "upload evidence failed", err)
		}
		return
	}
	response.Success(c, evidence)
}

// ListMissionEvidence 查询任务取证照片（仅参与方可见）
func (h *Handler) ListMissionEvidence(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	mission, err := h.MissionService.GetMission(id)
	if err != nil {
		respondMissionError(c, err)
		return
	}
	if !isMissionParty(mission, uid) {
		respondError(c, response.CodeForbidden, "not a party of this mission", nil)
		return
	}
	evidences, err := h.MissionService.ListEvidence(id)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch evidence failed", err)
		return
	}
	response.Success(c, evidences)
}

func respondMissionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMissionNotFound):
		respondError(c, response.CodeNotFound, "mission not found", nil)
	default:
		respondError(c, response.CodeInternal, "fetch mission failed", err)
	}
}
