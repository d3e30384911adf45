package handler

import (
	"errors"
	"net/http"

	"github.com/blues/cfp/internal/model"
	"github.com/gin-gonic/gin"
)

// Response 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, err error) {
	c.JSON(statusFromError(err), Response{
		Success: false,
		Message: err.Error(),
		Data:    nil,
	})
}

// statusFromError 业务错误到HTTP状态码的映射
func statusFromError(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrInvalidStateTransition),
		errors.Is(err, model.ErrCampaignClosed),
		errors.Is(err, model.ErrOutOfStock),
		errors.Is(err, model.ErrLimitExceeded),
		errors.Is(err, model.ErrAlreadyConfirmed),
		errors.Is(err, model.ErrRefundFailed):
		return http.StatusConflict
	case errors.Is(err, model.ErrPaymentGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
