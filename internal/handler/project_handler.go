package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/blues/cfp/internal/logic"
	"github.com/blues/cfp/internal/model"
	"github.com/gin-gonic/gin"
)

// ProjectHandler 项目相关接口
type ProjectHandler struct {
	projectLogic *logic.ProjectLogic
	rewardLogic  *logic.RewardLogic
}

// NewProjectHandler 创建项目接口处理器
func NewProjectHandler(projectLogic *logic.ProjectLogic, rewardLogic *logic.RewardLogic) *ProjectHandler {
	return &ProjectHandler{
		projectLogic: projectLogic,
		rewardLogic:  rewardLogic,
	}
}

// CreateProject 创建项目
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, fmt.Errorf("%w: %v", model.ErrValidation, err))
		return
	}

	project := &model.ProjectModel{
		CreatorId:         req.CreatorId,
		CreatorName:       req.CreatorName,
		Title:             req.Title,
		Description:       req.Description,
		ImageURL:          req.ImageURL,
		Category:          req.Category,
		TargetAmount:      req.TargetAmount,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		EstimatedDelivery: req.EstimatedDelivery,
	}

	if err := h.projectLogic.CreateProject(c.Request.Context(), project); err != nil {
		ErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "项目创建成功", project)
}

// SubmitForReview 提交审核
func (h *ProjectHandler) SubmitForReview(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	if err := h.projectLogic.SubmitForReview(c.Request.Context(), id); err != nil {
		ErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "已提交审核", nil)
}

// ApproveProject 审核通过
func (h *ProjectHandler) ApproveProject(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, fmt.Errorf("%w: %v", model.ErrValidation, err))
		return
	}

	if err := h.projectLogic.ApproveProject(c.Request.Context(), id, req.AdminId); err != nil {
		ErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "审核通过", nil)
}

// RejectProject 审核驳回
func (h *ProjectHandler) RejectProject(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, fmt.Errorf("%w: %v", model.ErrValidation, err))
		return
	}

	if err := h.projectLogic.RejectProject(c.Request.Context(), id, req.AdminId, req.Reason); err != nil {
		ErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "已驳回", nil)
}

// CancelProject 取消项目
func (h *ProjectHandler) CancelProject(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	var req CancelProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, fmt.Errorf("%w: %v", model.ErrValidation, err))
		return
	}

	if err := h.projectLogic.CancelProject(c.Request.Context(), id, req.CreatorId); err != nil {
		ErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "项目已取消", nil)
}

// GetProjects 获取项目列表
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	status := c.Query("status")
	category := c.Query("category")
	creatorId, _ := strconv.ParseInt(c.DefaultQuery("creator_id", "0"), 10, 64)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	projects, total, err := h.projectLogic.GetProjects(c.Request.Context(), status, category, creatorId, page, pageSize)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	totalPage := (total + int64(pageSize) - 1) / int64(pageSize)
	c.JSON(http.StatusOK, gin.H{
		"projects": projects,
		"pagination": Pagination{
			Page:      page,
			PageSize:  pageSize,
			Total:     total,
			TotalPage: totalPage,
		},
	})
}

// GetProject 获取单个项目
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	project, err := h.projectLogic.GetProject(c.Request.Context(), id)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": project})
}

// CreateReward 为项目创建回报档位
func (h *ProjectHandler) CreateReward(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	var req CreateRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, fmt.Errorf("%w: %v", model.ErrValidation, err))
		return
	}

	tier := &model.RewardTierModel{
		ProjectId:      id,
		Title:          req.Title,
		Description:    req.Description,
		Price:          req.Price,
		EarlyBirdPrice: req.EarlyBirdPrice,
		EarlyBirdLimit: req.EarlyBirdLimit,
		TotalQuantity:  req.TotalQuantity,
		MaxPerBacker:   req.MaxPerBacker,
	}

	if err := h.rewardLogic.CreateReward(c.Request.Context(), tier); err != nil {
		ErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "回报档位创建成功", tier)
}

// GetProjectRewards 获取项目回报档位列表
func (h *ProjectHandler) GetProjectRewards(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	rewards, err := h.rewardLogic.GetProjectRewards(c.Request.Context(), id)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

// CreateProjectUpdate 发布项目动态
func (h *ProjectHandler) CreateProjectUpdate(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	var req CreateProjectUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, fmt.Errorf("%w: %v", model.ErrValidation, err))
		return
	}

	update := &model.ProjectUpdateModel{
		ProjectId: id,
		CreatorId: req.CreatorId,
		Title:     req.Title,
		Content:   req.Content,
	}

	if err := h.projectLogic.CreateProjectUpdate(c.Request.Context(), update); err != nil {
		ErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "动态发布成功", update)
}

// GetProjectUpdates 获取项目动态
func (h *ProjectHandler) GetProjectUpdates(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	updates, err := h.projectLogic.GetProjectUpdates(c.Request.Context(), id)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updates": updates})
}

// parseId 解析路径中的ID参数
func parseId(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: 无效的ID", model.ErrValidation)
	}
	return id, nil
}
