package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PharmaLink/PharmaLink/internal/account"
	"github.com/PharmaLink/PharmaLink/internal/apperr"
	"github.com/PharmaLink/PharmaLink/internal/catalog"
	"github.com/PharmaLink/PharmaLink/internal/common/database"
	"github.com/PharmaLink/PharmaLink/internal/common/logger"
	"github.com/PharmaLink/PharmaLink/internal/pharmacy"
)

// Repository 订单仓储。
type Repository interface {
	Create(ctx context.Context, o *Order, items []OrderItem) error
	FindByID(ctx context.Context, id string) (*Order, error)
	Items(ctx context.Context, orderID string) ([]OrderItem, error)
	UpdateStatus(ctx context.Context, o *Order) error
	List(ctx context.Context, f ListFilter) ([]Order, int64, error)
}

// StockStore 库存读取与 CAS 扣减/回补。
type StockStore interface {
	FindStock(ctx context.Context, pharmacyID, medicationID string) (*catalog.PharmacyStock, error)
	DecrementStock(ctx context.Context, stockID string, version int64, qty int) error
	RestoreStock(ctx context.Context, stockID string, qty int) error
}

// PharmacyDirectory 药房资料与员工权限。
type PharmacyDirectory interface {
	Get(ctx context.Context, id string) (*pharmacy.Pharmacy, error)
	EmployeePermissions(ctx context.Context, pharmacyID, userID string) (pharmacy.Permissions, error)
}

// FeeQuoter 按距离估算配送费。
type FeeQuoter interface {
	Quote(distanceKm float64) int64
}

// Notifier 通知分发，发送失败只记日志，绝不回滚触发它的事务。
type Notifier interface {
	Notify(ctx context.Context, userID, title, message, channel string) error
}

// Service 封装订单领域的核心用例（不依赖 HTTP），便于复用和测试。
type Service struct {
	repo       Repository
	stocks     StockStore
	pharmacies PharmacyDirectory
	fees       FeeQuoter
	tx         database.TxManager
	notifier   Notifier
	log        logger.Logger
}

func NewService(repo Repository, stocks StockStore, pharmacies PharmacyDirectory,
	fees FeeQuoter, tx database.TxManager, notifier Notifier, log logger.Logger) *Service {
	return &Service{
		repo:       repo,
		stocks:     stocks,
		pharmacies: pharmacies,
		fees:       fees,
		tx:         tx,
		notifier:   notifier,
		log:        log,
	}
}

// LineInput 下单的一行 (药品, 数量)。
type LineInput struct {
	MedicationID string
	Quantity     int
}

// PlaceOrderInput 下单入参。
type PlaceOrderInput struct {
	PatientID         string
	PharmacyID        string
	Items             []LineInput
	DeliveryAddress   string
	DeliveryLatitude  float64
	DeliveryLongitude float64
}

// PlaceOrder 下单：逐行校验库存并 CAS 扣减、快照单价、创建 PENDING 订单。
// 整个流程在一个事务里，任何一行失败全部回滚，不留下可见的部分扣减。
// 并发扣减冲突在服务边界重试一次，仍冲突按缺货处理。
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Order, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	patientID := strings.TrimSpace(in.PatientID)
	pharmacyID := strings.TrimSpace(in.PharmacyID)
	address := strings.TrimSpace(in.DeliveryAddress)
	if patientID == "" || pharmacyID == "" || address == "" || len(in.Items) == 0 {
		return nil, apperr.ErrInvalidInput
	}
	for _, line := range in.Items {
		if strings.TrimSpace(line.MedicationID) == "" || line.Quantity <= 0 {
			return nil, apperr.ErrInvalidInput
		}
	}

	ph, err := s.pharmacies.Get(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	if ph.Status != pharmacy.StatusApproved {
		return nil, apperr.ErrInvalidInput
	}

	var fee int64
	if s.fees != nil {
		dist := pharmacy.DistanceKm(ph.Latitude, ph.Longitude, in.DeliveryLatitude, in.DeliveryLongitude)
		fee = s.fees.Quote(dist)
	}

	var created *Order
	for attempt := 0; attempt < 2; attempt++ {
		err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			var total int64
			items := make([]OrderItem, 0, len(in.Items))
			for _, line := range in.Items {
				stock, findErr := s.stocks.FindStock(ctx, pharmacyID, line.MedicationID)
				if findErr != nil {
					if errors.Is(findErr, apperr.ErrNotFound) {
						return apperr.ErrUnknownMedication
					}
					return findErr
				}
				if !stock.Available || stock.Quantity < line.Quantity {
					return apperr.ErrOutOfStock
				}
				if decErr := s.stocks.DecrementStock(ctx, stock.ID, stock.Version, line.Quantity); decErr != nil {
					return decErr
				}
				items = append(items, OrderItem{
					ID:             uuid.NewString(),
					MedicationID:   line.MedicationID,
					UnitPriceCents: stock.PriceCents,
					Quantity:       line.Quantity,
				})
				total += stock.PriceCents * int64(line.Quantity)
			}

			o := &Order{
				ID:                uuid.NewString(),
				PatientID:         patientID,
				PharmacyID:        pharmacyID,
				Status:            StatusPending,
				DeliveryAddress:   address,
				DeliveryLatitude:  in.DeliveryLatitude,
				DeliveryLongitude: in.DeliveryLongitude,
				ItemsTotalCents:   total,
				DeliveryFeeCents:  fee,
			}
			for i := range items {
				items[i].OrderID = o.ID
			}
			if createErr := s.repo.Create(ctx, o, items); createErr != nil {
				return createErr
			}
			created = o
			return nil
		})
		if !errors.Is(err, apperr.ErrConflict) {
			break
		}
	}
	if errors.Is(err, apperr.ErrConflict) {
		// 两次都撞上并发扣减，按缺货报给调用方
		return nil, apperr.ErrOutOfStock
	}
	if err != nil {
		return nil, err
	}

	s.notify(ctx, patientID, "Order placed", fmt.Sprintf("order %s created, total %d", created.ID, created.TotalCents()))
	return created, nil
}

// MarkPaid 支付成功回调：PENDING -> PAID。仅由支付服务调用。
func (s *Service) MarkPaid(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.transition(ctx, orderID, StatusPaid)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, o.PatientID, "Payment received", fmt.Sprintf("order %s paid", o.ID))
	return o, nil
}

// Confirm 药房确认接单：PAID -> CONFIRMED。需要 canConfirmOrders。
func (s *Service) Confirm(ctx context.Context, actor account.Actor, orderID string) (*Order, error) {
	o, err := s.authorizeStaff(ctx, actor, orderID, func(p pharmacy.Permissions) bool { return p.CanConfirmOrders })
	if err != nil {
		return nil, err
	}
	o, err = s.transition(ctx, o.ID, StatusConfirmed)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, o.PatientID, "Order confirmed", fmt.Sprintf("order %s confirmed by pharmacy", o.ID))
	return o, nil
}

// MarkPreparing 开始备药：CONFIRMED -> PREPARING。需要 canPrepareOrders。
func (s *Service) MarkPreparing(ctx context.Context, actor account.Actor, orderID string) (*Order, error) {
	o, err := s.authorizeStaff(ctx, actor, orderID, func(p pharmacy.Permissions) bool { return p.CanPrepareOrders })
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, o.ID, StatusPreparing)
}

// MarkReady 备药完成：PREPARING -> READY。需要 canPrepareOrders。
func (s *Service) MarkReady(ctx context.Context, actor account.Actor, orderID string) (*Order, error) {
	o, err := s.authorizeStaff(ctx, actor, orderID, func(p pharmacy.Permissions) bool { return p.CanPrepareOrders })
	if err != nil {
		return nil, err
	}
	o, err = s.transition(ctx, o.ID, StatusReady)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, o.PatientID, "Order ready", fmt.Sprintf("order %s is ready for delivery", o.ID))
	return o, nil
}

// MarkInDelivery 配送指派进入 PICKED_UP 时由配送服务触发：READY -> IN_DELIVERY。
func (s *Service) MarkInDelivery(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.transition(ctx, orderID, StatusInDelivery)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, o.PatientID, "Order picked up", fmt.Sprintf("order %s is on the way", o.ID))
	return o, nil
}

// MarkDelivered 配送指派进入 DELIVERED 时由配送服务触发：IN_DELIVERY -> DELIVERED。
func (s *Service) MarkDelivered(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.transition(ctx, orderID, StatusDelivered)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, o.PatientID, "Order delivered", fmt.Sprintf("order %s delivered", o.ID))
	return o, nil
}

// Cancel 取消订单：仅订单所属患者、该药房员工或管理员可操作。
// 状态机保证只有 PENDING/PAID/CONFIRMED 可达 CANCELLED；
// 取消时在同一事务内回补所有已扣减的库存。
func (s *Service) Cancel(ctx context.Context, actor account.Actor, orderID string) (*Order, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperr.ErrInvalidInput
	}

	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !s.mayCancel(ctx, actor, o) {
		return nil, apperr.ErrUnauthorized
	}

	o, err = s.transition(ctx, orderID, StatusCancelled)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, o.PatientID, "Order cancelled", fmt.Sprintf("order %s cancelled", o.ID))
	return o, nil
}

func (s *Service) mayCancel(ctx context.Context, actor account.Actor, o *Order) bool {
	if actor.IsAdmin() || actor.UserID == o.PatientID {
		return true
	}
	perms, err := s.pharmacies.EmployeePermissions(ctx, o.PharmacyID, actor.UserID)
	if err != nil {
		return false
	}
	return perms.Member
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.ErrInvalidInput
	}
	return s.repo.FindByID(ctx, id)
}

// Items 显式加载订单行。
func (s *Service) Items(ctx context.Context, orderID string) ([]OrderItem, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.Items(ctx, strings.TrimSpace(orderID))
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, int64, error) {
	if s == nil || s.repo == nil {
		return nil, 0, fmt.Errorf("service not initialized")
	}
	return s.repo.List(ctx, f)
}

// transition 在一个事务里重读订单、应用状态机、CAS 落库；
// 目标是 CANCELLED 时同事务回补库存。
func (s *Service) transition(ctx context.Context, orderID string, to Status) (*Order, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	var out *Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := ApplyTransition(o, to, time.Now()); err != nil {
			return err
		}
		if to == StatusCancelled {
			if err := s.restoreStocks(ctx, o); err != nil {
				return err
			}
		}
		if err := s.repo.UpdateStatus(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// restoreStocks 把订单行扣掉的数量原样补回。
func (s *Service) restoreStocks(ctx context.Context, o *Order) error {
	items, err := s.repo.Items(ctx, o.ID)
	if err != nil {
		return err
	}
	for _, item := range items {
		stock, err := s.stocks.FindStock(ctx, o.PharmacyID, item.MedicationID)
		if err != nil {
			return err
		}
		if err := s.stocks.RestoreStock(ctx, stock.ID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// authorizeStaff 校验操作者是该订单药房的员工且具备所需权限。
func (s *Service) authorizeStaff(ctx context.Context, actor account.Actor, orderID string,
	required func(pharmacy.Permissions) bool) (*Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperr.ErrInvalidInput
	}
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return o, nil
	}
	perms, err := s.pharmacies.EmployeePermissions(ctx, o.PharmacyID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !perms.Member || !required(perms) {
		return nil, apperr.ErrUnauthorized
	}
	return o, nil
}

func (s *Service) notify(ctx context.Context, userID, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, title, message, "order"); err != nil && s.log != nil {
		s.log.Warnf("notify user=%s failed: %v", userID, err)
	}
}
