package order

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/PharmaLink/PharmaLink/internal/apperr"
)

// AllowTransition 定义订单状态机的允许流转关系。
// 单条前进路径 + 一个取消分支：备药开始后药房资源已投入，不再允许取消。
var AllowTransition = map[Status][]Status{
	StatusPending:    {StatusPaid, StatusCancelled},
	StatusPaid:       {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusPreparing, StatusCancelled},
	StatusPreparing:  {StatusReady},
	StatusReady:      {StatusInDelivery},
	StatusInDelivery: {StatusDelivered},
	// 终态：不允许从 delivered / cancelled 再流转
	StatusDelivered: {},
	StatusCancelled: {},
}

// CanTransition 判断 from -> to 是否是一个允许的状态流转。
func CanTransition(from, to Status) bool {
	allowed, ok := AllowTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyTransition 对订单应用状态变更，并维护关键时间字段。
// 非法流转返回 ErrInvalidStateTransition，订单保持原状态。
func ApplyTransition(o *Order, to Status, now time.Time) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}
	from := o.Status
	if !CanTransition(from, to) {
		return errors.Wrapf(apperr.ErrInvalidStateTransition, "order %s -> %s", from, to)
	}

	o.Status = to

	switch to {
	case StatusPaid:
		if o.PaidAt == nil {
			t := now
			o.PaidAt = &t
		}
	case StatusConfirmed:
		if o.ConfirmedAt == nil {
			t := now
			o.ConfirmedAt = &t
		}
	case StatusPreparing:
		if o.PreparingAt == nil {
			t := now
			o.PreparingAt = &t
		}
	case StatusReady:
		if o.ReadyAt == nil {
			t := now
			o.ReadyAt = &t
		}
	case StatusInDelivery:
		if o.InDeliveryAt == nil {
			t := now
			o.InDeliveryAt = &t
		}
	case StatusDelivered:
		if o.DeliveredAt == nil {
			t := now
			o.DeliveredAt = &t
		}
	case StatusCancelled:
		if o.CancelledAt == nil {
			t := now
			o.CancelledAt = &t
		}
	}
	return nil
}
