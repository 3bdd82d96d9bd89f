package order

import (
	"errors"
	"testing"
	"time"

	"github.com/PharmaLink/PharmaLink/internal/apperr"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusCancelled, true},
		{StatusPaid, StatusConfirmed, true},
		{StatusPaid, StatusCancelled, true},
		{StatusConfirmed, StatusPreparing, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusPreparing, StatusReady, true},
		{StatusReady, StatusInDelivery, true},
		{StatusInDelivery, StatusDelivered, true},

		// 跳步
		{StatusPending, StatusConfirmed, false},
		{StatusPaid, StatusReady, false},
		{StatusPending, StatusDelivered, false},
		// 备药开始后不可取消
		{StatusPreparing, StatusCancelled, false},
		{StatusReady, StatusCancelled, false},
		{StatusInDelivery, StatusCancelled, false},
		// 终态
		{StatusDelivered, StatusPending, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPaid, false},
		// 自环
		{StatusPaid, StatusPaid, false},
		{StatusDelivered, StatusDelivered, false},
		// 未知状态
		{Status("bogus"), StatusPaid, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestApplyTransitionSetsTimestamp(t *testing.T) {
	now := time.Now()
	o := &Order{Status: StatusPending}

	if err := ApplyTransition(o, StatusPaid, now); err != nil {
		t.Fatalf("ApplyTransition returned error: %v", err)
	}
	if o.Status != StatusPaid {
		t.Fatalf("status = %s, want %s", o.Status, StatusPaid)
	}
	if o.PaidAt == nil || !o.PaidAt.Equal(now) {
		t.Fatalf("PaidAt not set to transition time")
	}
}

func TestApplyTransitionInvalidLeavesOrderUnchanged(t *testing.T) {
	o := &Order{Status: StatusPending}

	err := ApplyTransition(o, StatusDelivered, time.Now())
	if !errors.Is(err, apperr.ErrInvalidStateTransition) {
		t.Fatalf("err = %v, want ErrInvalidStateTransition", err)
	}
	if o.Status != StatusPending {
		t.Fatalf("status mutated on invalid transition: %s", o.Status)
	}
	if o.DeliveredAt != nil {
		t.Fatalf("DeliveredAt set on invalid transition")
	}
}

func TestApplyTransitionFullPath(t *testing.T) {
	o := &Order{Status: StatusPending}
	path := []Status{StatusPaid, StatusConfirmed, StatusPreparing, StatusReady, StatusInDelivery, StatusDelivered}

	for _, next := range path {
		if err := ApplyTransition(o, next, time.Now()); err != nil {
			t.Fatalf("transition to %s failed: %v", next, err)
		}
	}
	if o.Status != StatusDelivered {
		t.Fatalf("final status = %s, want %s", o.Status, StatusDelivered)
	}
	for _, ts := range []*time.Time{o.PaidAt, o.ConfirmedAt, o.PreparingAt, o.ReadyAt, o.InDeliveryAt, o.DeliveredAt} {
		if ts == nil {
			t.Fatalf("missing timestamp on full path")
		}
	}
}
