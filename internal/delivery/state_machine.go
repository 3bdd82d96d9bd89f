package delivery

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/PharmaLink/PharmaLink/internal/apperr"
)

// AllowTransition 配送指派状态机：单向前进，无取消分支。
var AllowTransition = map[Status][]Status{
	StatusAssigned:  {StatusPickedUp},
	StatusPickedUp:  {StatusDelivered},
	StatusDelivered: {},
}

// CanTransition 判断 from -> to 是否允许。
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

// ApplyTransition 对指派应用状态变更并维护时间字段。
// 非法流转返回 ErrInvalidStateTransition，指派保持原状态。
func ApplyTransition(a *Assignment, to Status, now time.Time) error {
	if a == nil {
		return fmt.Errorf("assignment is nil")
	}
	from := a.Status
	if !CanTransition(from, to) {
		return errors.Wrapf(apperr.ErrInvalidStateTransition, "assignment %s -> %s", from, to)
	}

	a.Status = to

	switch to {
	case StatusPickedUp:
		if a.PickedUpAt == nil {
			t := now
			a.PickedUpAt = &t
		}
	case StatusDelivered:
		if a.DeliveredAt == nil {
			t := now
			a.DeliveredAt = &t
		}
	}
	return nil
}
