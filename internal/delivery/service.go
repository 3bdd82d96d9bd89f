package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PharmaLink/PharmaLink/internal/account"
	"github.com/PharmaLink/PharmaLink/internal/apperr"
	"github.com/PharmaLink/PharmaLink/internal/common/database"
	"github.com/PharmaLink/PharmaLink/internal/common/logger"
	"github.com/PharmaLink/PharmaLink/internal/order"
	"github.com/PharmaLink/PharmaLink/internal/pharmacy"
)

// Repository 配送指派仓储。
type Repository interface {
	Create(ctx context.Context, a *Assignment) error
	FindByID(ctx context.Context, id string) (*Assignment, error)
	FindByOrderID(ctx context.Context, orderID string) (*Assignment, error)
	UpdateStatus(ctx context.Context, a *Assignment) error
	UpdateLocation(ctx context.Context, id string, lat, lng float64) error
	ListByCourier(ctx context.Context, courierID string, offset, limit int) ([]Assignment, error)
}

// OrderFlow 指派推进时联动订单状态（取货 -> 配送中，送达 -> 已完成）。
type OrderFlow interface {
	Get(ctx context.Context, id string) (*order.Order, error)
	MarkInDelivery(ctx context.Context, orderID string) (*order.Order, error)
	MarkDelivered(ctx context.Context, orderID string) (*order.Order, error)
}

// UserDirectory 校验骑手身份。
type UserDirectory interface {
	Get(ctx context.Context, id string) (*account.User, error)
}

// PermissionSource 药房员工权限查询。
type PermissionSource interface {
	EmployeePermissions(ctx context.Context, pharmacyID, userID string) (pharmacy.Permissions, error)
}

// FileStore 送达凭证照片落盘。
type FileStore interface {
	Store(data []byte, subdir string) (string, error)
}

// Service 配送指派用例。
type Service struct {
	repo   Repository
	orders OrderFlow
	users  UserDirectory
	perms  PermissionSource
	files  FileStore
	tx     database.TxManager
	log    logger.Logger
}

func NewService(repo Repository, orders OrderFlow, users UserDirectory,
	perms PermissionSource, files FileStore, tx database.TxManager, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		orders: orders,
		users:  users,
		perms:  perms,
		files:  files,
		tx:     tx,
		log:    log,
	}
}

// Assign 把 READY 订单指派给骑手。
// 只有该药房具备 canAssignDeliveries 权限的员工或管理员可操作；
// 订单不处于 READY 视为非法流转；已有指派的订单报重复指派。
func (s *Service) Assign(ctx context.Context, actor account.Actor, orderID, courierID string) (*Assignment, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	orderID = strings.TrimSpace(orderID)
	courierID = strings.TrimSpace(courierID)
	if orderID == "" || courierID == "" {
		return nil, apperr.ErrInvalidInput
	}

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAssigner(ctx, actor, o.PharmacyID); err != nil {
		return nil, err
	}
	if o.Status != order.StatusReady {
		return nil, fmt.Errorf("order %s not ready for delivery: %w", o.Status, apperr.ErrInvalidStateTransition)
	}

	courier, err := s.users.Get(ctx, courierID)
	if err != nil {
		return nil, err
	}
	if courier.Role != account.RoleCourier {
		return nil, apperr.ErrInvalidInput
	}

	if _, err := s.repo.FindByOrderID(ctx, orderID); err == nil {
		return nil, apperr.ErrDuplicateAssignment
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	a := &Assignment{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		CourierID: courierID,
		Status:    StatusAssigned,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	if s.log != nil {
		s.log.Infof("order %s assigned to courier %s", orderID, courierID)
	}
	return a, nil
}

// MarkPickedUp 骑手取货：ASSIGNED -> PICKED_UP，并在同一事务里把订单推到配送中。
func (s *Service) MarkPickedUp(ctx context.Context, actor account.Actor, assignmentID string) (*Assignment, error) {
	return s.advance(ctx, actor, assignmentID, StatusPickedUp, nil)
}

// MarkDelivered 骑手送达：PICKED_UP -> DELIVERED，可附送达凭证照片，
// 并在同一事务里把订单推到已送达。
func (s *Service) MarkDelivered(ctx context.Context, actor account.Actor, assignmentID string, photo []byte) (*Assignment, error) {
	return s.advance(ctx, actor, assignmentID, StatusDelivered, photo)
}

func (s *Service) advance(ctx context.Context, actor account.Actor, assignmentID string, to Status, photo []byte) (*Assignment, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	assignmentID = strings.TrimSpace(assignmentID)
	if assignmentID == "" {
		return nil, apperr.ErrInvalidInput
	}

	var out *Assignment
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		a, err := s.repo.FindByID(ctx, assignmentID)
		if err != nil {
			return err
		}
		o, err := s.orders.Get(ctx, a.OrderID)
		if err != nil {
			return err
		}
		if err := s.requireAdvancer(ctx, actor, a, o.PharmacyID); err != nil {
			return err
		}
		if err := ApplyTransition(a, to, time.Now()); err != nil {
			return err
		}
		if to == StatusDelivered && len(photo) > 0 && s.files != nil {
			path, err := s.files.Store(photo, "proofs")
			if err != nil {
				return err
			}
			a.PhotoProofPath = path
		}
		if err := s.repo.UpdateStatus(ctx, a); err != nil {
			return err
		}
		// 同事务联动订单状态，保证指派与订单不脱节
		switch to {
		case StatusPickedUp:
			_, err = s.orders.MarkInDelivery(ctx, a.OrderID)
		case StatusDelivered:
			_, err = s.orders.MarkDelivered(ctx, a.OrderID)
		}
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateLocation 骑手上报位置。送达后的指派不再接受位置更新。
func (s *Service) UpdateLocation(ctx context.Context, actor account.Actor, assignmentID string, lat, lng float64) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("service not initialized")
	}
	a, err := s.repo.FindByID(ctx, strings.TrimSpace(assignmentID))
	if err != nil {
		return err
	}
	if actor.UserID != a.CourierID && !actor.IsAdmin() {
		return apperr.ErrUnauthorized
	}
	if a.Status == StatusDelivered {
		return fmt.Errorf("assignment already delivered: %w", apperr.ErrInvalidStateTransition)
	}
	return s.repo.UpdateLocation(ctx, a.ID, lat, lng)
}

func (s *Service) Get(ctx context.Context, id string) (*Assignment, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.FindByID(ctx, strings.TrimSpace(id))
}

func (s *Service) GetByOrder(ctx context.Context, orderID string) (*Assignment, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.FindByOrderID(ctx, strings.TrimSpace(orderID))
}

func (s *Service) ListByCourier(ctx context.Context, courierID string, offset, limit int) ([]Assignment, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.ListByCourier(ctx, strings.TrimSpace(courierID), offset, limit)
}

// requireAssigner 指派操作门禁：管理员或持 canAssignDeliveries 的药房员工。
func (s *Service) requireAssigner(ctx context.Context, actor account.Actor, pharmacyID string) error {
	if actor.IsAdmin() {
		return nil
	}
	perms, err := s.perms.EmployeePermissions(ctx, pharmacyID, actor.UserID)
	if err != nil {
		return err
	}
	if !perms.Member || !perms.CanAssignDeliveries {
		return apperr.ErrUnauthorized
	}
	return nil
}

// requireAdvancer 推进操作门禁：被指派的骑手本人、管理员，或持指派权限的药房员工。
func (s *Service) requireAdvancer(ctx context.Context, actor account.Actor, a *Assignment, pharmacyID string) error {
	if actor.UserID == a.CourierID || actor.IsAdmin() {
		return nil
	}
	perms, err := s.perms.EmployeePermissions(ctx, pharmacyID, actor.UserID)
	if err != nil {
		return err
	}
	if !perms.Member || !perms.CanAssignDeliveries {
		return apperr.ErrUnauthorized
	}
	return nil
}
