// Package apperr 定义平台统一的业务错误分类。
// 所有服务层失败都归入这里的哨兵错误，调用方用 errors.Is 判断类别。
package apperr

import "errors"

var (
	// ErrNotFound 引用的实体不存在。
	ErrNotFound = errors.New("not found")
	// ErrUnknownMedication 该药房没有对应药品的库存记录。
	ErrUnknownMedication = errors.New("unknown medication for pharmacy")
	// ErrOutOfStock 库存不足或已下架。
	ErrOutOfStock = errors.New("out of stock")
	// ErrInvalidStateTransition 非法状态流转，状态保持不变。
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrDuplicateAssignment 同一订单只允许一条配送指派。
	ErrDuplicateAssignment = errors.New("delivery already assigned")
	// ErrDuplicateResource 邮箱/手机号/执照号冲突。
	ErrDuplicateResource = errors.New("duplicate resource")
	// ErrInvalidRating 评分必须在 [1,5] 区间内。
	ErrInvalidRating = errors.New("invalid rating")
	// ErrReviewNotAllowed 订单未送达或已存在评价。
	ErrReviewNotAllowed = errors.New("review not allowed")
	// ErrUnauthorized 操作者缺少所需角色或权限。
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict 乐观并发冲突（version/CAS 未命中），可重试。
	ErrConflict = errors.New("concurrent modification conflict")
	// ErrInvalidInput 入参校验失败。
	ErrInvalidInput = errors.New("invalid input")
)
