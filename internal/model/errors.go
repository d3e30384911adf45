package model

import "errors"

// 业务错误分类，调用方用 errors.Is 判断
var (
	ErrValidation             = errors.New("参数校验失败")
	ErrNotFound               = errors.New("记录不存在")
	ErrInvalidStateTransition = errors.New("非法的状态变更")
	ErrCampaignClosed         = errors.New("众筹不在进行中")
	ErrOutOfStock             = errors.New("回报库存不足")
	ErrLimitExceeded          = errors.New("超过单人限购数量")
	ErrAlreadyConfirmed       = errors.New("支付已确认")
	ErrPaymentGateway         = errors.New("支付网关调用失败")
	ErrRefundFailed           = errors.New("退款失败")
	ErrForbidden              = errors.New("没有操作权限")

	// ErrLedgerMismatch 项目金额与已确认支持记录之和不一致，
	// 属于数据完整性问题，只上报不自动修复
	ErrLedgerMismatch = errors.New("项目账目金额不一致")
)
