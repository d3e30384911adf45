package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/blues/cfp/internal/logic"
	"github.com/blues/cfp/internal/model"
	"github.com/gin-gonic/gin"
)

// DashboardHandler 看板查询接口
type DashboardHandler struct {
	dashboardLogic *logic.DashboardLogic
}

// NewDashboardHandler 创建看板接口处理器
func NewDashboardHandler(dashboardLogic *logic.DashboardLogic) *DashboardHandler {
	return &DashboardHandler{dashboardLogic: dashboardLogic}
}

// GetProjectDetails 项目详情页（含回报档位与统计）
func (h *DashboardHandler) GetProjectDetails(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	details, err := h.dashboardLogic.GetProjectDetails(c.Request.Context(), id)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"details": details})
}

// GetCreatorDashboard 创建者看板
func (h *DashboardHandler) GetCreatorDashboard(c *gin.Context) {
	creatorId, err := strconv.ParseInt(c.Param("creatorId"), 10, 64)
	if err != nil || creatorId <= 0 {
		ErrorResponse(c, fmt.Errorf("%w: 无效的创建者ID", model.ErrValidation))
		return
	}

	summaries, err := h.dashboardLogic.GetCreatorDashboard(c.Request.Context(), creatorId)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": summaries})
}

// GetBackerDashboard 支持者看板
func (h *DashboardHandler) GetBackerDashboard(c *gin.Context) {
	backerId, err := strconv.ParseInt(c.Param("backerId"), 10, 64)
	if err != nil || backerId <= 0 {
		ErrorResponse(c, fmt.Errorf("%w: 无效的支持者ID", model.ErrValidation))
		return
	}

	summaries, err := h.dashboardLogic.GetBackerDashboard(c.Request.Context(), backerId)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"backings": summaries})
}
