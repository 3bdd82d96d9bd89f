package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/PharmaLink/PharmaLink/internal/account"
	"github.com/PharmaLink/PharmaLink/internal/apperr"
	"github.com/PharmaLink/PharmaLink/internal/common/database"
	"github.com/PharmaLink/PharmaLink/internal/common/logger"
	"github.com/PharmaLink/PharmaLink/internal/common/middleware"
	"github.com/PharmaLink/PharmaLink/internal/order"
)

// Repository 支付单仓储。
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	FindByID(ctx context.Context, id string) (*Payment, error)
	HasSuccess(ctx context.Context, orderID string) (bool, error)
	ListByOrder(ctx context.Context, orderID string) ([]Payment, error)
}

// OrderFlow 支付成功后推进订单到 PAID。
type OrderFlow interface {
	Get(ctx context.Context, id string) (*order.Order, error)
	MarkPaid(ctx context.Context, orderID string) (*order.Order, error)
}

// Service 支付用例：调网关扣款并落支付单。
// 网关调用经熔断器包裹，外部故障时快速失败而不是拖垮下单链路。
type Service struct {
	repo    Repository
	orders  OrderFlow
	gateway Gateway
	breaker *middleware.CircuitBreaker
	tx      database.TxManager
	log     logger.Logger
}

func NewService(repo Repository, orders OrderFlow, gateway Gateway,
	breaker *middleware.CircuitBreaker, tx database.TxManager, log logger.Logger) *Service {
	return &Service{
		repo:    repo,
		orders:  orders,
		gateway: gateway,
		breaker: breaker,
		tx:      tx,
		log:     log,
	}
}

// Charge 对 PENDING 订单发起支付。
// 成功：支付单 success + 订单 PENDING -> PAID（同一事务）。
// 网关拒付或熔断：落一条 failed 支付单，订单保持 PENDING，可重试。
func (s *Service) Charge(ctx context.Context, actor account.Actor, orderID string, method Method) (*Payment, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" || method == "" {
		return nil, apperr.ErrInvalidInput
	}

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != o.PatientID && !actor.IsAdmin() {
		return nil, apperr.ErrUnauthorized
	}
	if o.Status != order.StatusPending {
		return nil, fmt.Errorf("order %s not payable: %w", o.Status, apperr.ErrInvalidStateTransition)
	}
	if done, err := s.repo.HasSuccess(ctx, orderID); err != nil {
		return nil, err
	} else if done {
		return nil, apperr.ErrDuplicateResource
	}

	amount := o.TotalCents()
	p := &Payment{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		Method:      method,
		Status:      StatusPending,
		AmountCents: amount,
	}

	var ref string
	chargeErr := s.call(ctx, func() error {
		var err error
		ref, err = s.gateway.Charge(ctx, orderID, amount, method)
		return err
	})

	if chargeErr != nil {
		// 拒付按事实记录，订单留在 PENDING 供重试
		p.Status = StatusFailed
		if err := s.repo.Create(ctx, p); err != nil {
			return nil, err
		}
		if s.log != nil {
			s.log.Warnf("charge order=%s amount=%d failed: %v", orderID, amount, chargeErr)
		}
		return p, nil
	}

	p.Status = StatusSuccess
	p.TransactionRef = ref
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		_, err := s.orders.MarkPaid(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) call(ctx context.Context, fn func() error) error {
	if s.breaker == nil {
		return fn()
	}
	return s.breaker.Call(ctx, fn)
}

func (s *Service) Get(ctx context.Context, id string) (*Payment, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.FindByID(ctx, strings.TrimSpace(id))
}

// ListByOrder 查询订单的支付记录；仅订单所属患者或管理员可见。
func (s *Service) ListByOrder(ctx context.Context, actor account.Actor, orderID string) ([]Payment, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	o, err := s.orders.Get(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return nil, err
	}
	if actor.UserID != o.PatientID && !actor.IsAdmin() {
		return nil, apperr.ErrUnauthorized
	}
	return s.repo.ListByOrder(ctx, o.ID)
}
