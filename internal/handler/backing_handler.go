package handler

import (
	"fmt"
	"net/http"

	"github.com/blues/cfp/internal/logic"
	"github.com/blues/cfp/internal/model"
	"github.com/gin-gonic/gin"
)

// BackingHandler 支持（认捐）相关接口
type BackingHandler struct {
	backingLogic    *logic.BackingLogic
	settlementLogic *logic.SettlementLogic
}

// NewBackingHandler 创建支持接口处理器
func NewBackingHandler(backingLogic *logic.BackingLogic, settlementLogic *logic.SettlementLogic) *BackingHandler {
	return &BackingHandler{
		backingLogic:    backingLogic,
		settlementLogic: settlementLogic,
	}
}

// CreateBacking 支持项目（锁定库存，创建待支付记录）
func (h *BackingHandler) CreateBacking(c *gin.Context) {
	projectId, err := parseId(c)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	var req CreateBackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, fmt.Errorf("%w: %v", model.ErrValidation, err))
		return
	}

	backing, err := h.backingLogic.CreateBacking(c.Request.Context(), logic.CreateBackingInput{
		ProjectId:     projectId,
		BackerId:      req.BackerId,
		PaymentMethod: req.PaymentMethod,
		Selections:    req.Selections,
	})
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "支持成功，请完成支付", backing)
}

// ConfirmPayment 支付确认回调
func (h *BackingHandler) ConfirmPayment(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, fmt.Errorf("%w: %v", model.ErrValidation, err))
		return
	}

	if err := h.backingLogic.ConfirmPayment(c.Request.Context(), id, req.PaymentId); err != nil {
		ErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "支付确认成功", nil)
}

// CancelBacking 取消支持
func (h *BackingHandler) CancelBacking(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	var req CancelBackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, fmt.Errorf("%w: %v", model.ErrValidation, err))
		return
	}

	if err := h.backingLogic.CancelBacking(c.Request.Context(), id, req.BackerId); err != nil {
		ErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "已取消支持", nil)
}

// GetBacking 获取支持记录
func (h *BackingHandler) GetBacking(c *gin.Context) {
	id, err := parseId(c)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	backing, err := h.backingLogic.GetBacking(c.Request.Context(), id)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"backing": backing})
}

// EndFunding 手动触发项目结算（管理端）
func (h *BackingHandler) EndFunding(c *gin.Context) {
	projectId, err := parseId(c)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	project, err := h.settlementLogic.EndFunding(c.Request.Context(), projectId)
	if err != nil {
		ErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "结算完成", project)
}
