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

// ListMissions 分页查询搬家任务
func (h *Handler) ListMissions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.MissionListFilter{
		Status:   strings.TrimSpace(c.Query("status")),
		Page:     page,
		PageSize: pageSize,
	}
	if clientID, err := strconv.ParseUint(c.Query("client_id"), 10, 64); err == nil {
		filter.ClientID = uint(clientID)
	}
	if moverID, err := strconv.ParseUint(c.Query("mover_id"), 10, 64); err == nil {
		filter.MoverID = uint(moverID)
	}

	missions, total, err := h.MissionService.ListMissions(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch missions failed", err)
		return
	}
	response.SuccessWithPage(c, missions, response.BuildPagination(page, pageSize, total))
}

// GetMission 获取任务详情（含取证记录）
func (h *Handler) GetMission(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	mission, err := h.MissionService.GetMission(id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissionNotFound):
			respondError(c, response.CodeNotFound, "mission not found", nil)
		default:
			respondError(c, response.CodeInternal, "fetch mission failed", err)
		}
		return
	}
	evidences, err := h.MissionService.ListEvidence(id)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch evidence failed", err)
		return
	}
	response.Success(c, gin.H{
		"mission":  mission,
		"evidence": evidences,
	})
}
