package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/PharmaLink/PharmaLink/internal/account"
	"github.com/PharmaLink/PharmaLink/internal/apperr"
	"github.com/PharmaLink/PharmaLink/internal/common/logger"
	"github.com/PharmaLink/PharmaLink/internal/order"
)

// Repository 评价仓储。
type Repository interface {
	Create(ctx context.Context, rv *Review) error
	FindByID(ctx context.Context, id string) (*Review, error)
	ExistsByOrder(ctx context.Context, orderID string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status ModerationStatus) error
	ListByPharmacy(ctx context.Context, pharmacyID string, status ModerationStatus, offset, limit int) ([]Review, error)
	AverageRating(ctx context.Context, pharmacyID string) (float64, int64, error)
}

// OrderReader 评价资格校验需要读订单。
type OrderReader interface {
	Get(ctx context.Context, id string) (*order.Order, error)
}

// Service 评价用例。
type Service struct {
	repo   Repository
	orders OrderReader
	log    logger.Logger
}

func NewService(repo Repository, orders OrderReader, log logger.Logger) *Service {
	return &Service{repo: repo, orders: orders, log: log}
}

// Submit 提交评价。资格校验：
//   - 订单必须已送达；
//   - 只有下单患者本人可评价；
//   - 一单一评；
//   - 评分在 [1,5] 内。
//
// 新评价进入 pending，审核通过后才计入均分。
func (s *Service) Submit(ctx context.Context, actor account.Actor, orderID string, rating int, comment string) (*Review, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperr.ErrInvalidInput
	}
	if rating < 1 || rating > 5 {
		return nil, apperr.ErrInvalidRating
	}

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != o.PatientID {
		return nil, apperr.ErrReviewNotAllowed
	}
	if o.Status != order.StatusDelivered {
		return nil, apperr.ErrReviewNotAllowed
	}
	if exists, err := s.repo.ExistsByOrder(ctx, orderID); err != nil {
		return nil, err
	} else if exists {
		return nil, apperr.ErrReviewNotAllowed
	}

	rv := &Review{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		PatientID:  o.PatientID,
		PharmacyID: o.PharmacyID,
		Rating:     rating,
		Comment:    strings.TrimSpace(comment),
		Status:     StatusPending,
	}
	if err := s.repo.Create(ctx, rv); err != nil {
		return nil, err
	}
	return rv, nil
}

// Moderate 审核评价（仅管理员）。只允许 approved / rejected 两个结论。
func (s *Service) Moderate(ctx context.Context, actor account.Actor, reviewID string, status ModerationStatus) (*Review, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if !actor.IsAdmin() {
		return nil, apperr.ErrUnauthorized
	}
	if status != StatusApproved && status != StatusRejected {
		return nil, apperr.ErrInvalidInput
	}
	reviewID = strings.TrimSpace(reviewID)
	rv, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, reviewID, status); err != nil {
		return nil, err
	}
	rv.Status = status
	return rv, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Review, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.FindByID(ctx, strings.TrimSpace(id))
}

// ListByPharmacy 非管理员只能看到已通过审核的评价。
func (s *Service) ListByPharmacy(ctx context.Context, actor account.Actor, pharmacyID string, status ModerationStatus, offset, limit int) ([]Review, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if !actor.IsAdmin() {
		status = StatusApproved
	}
	return s.repo.ListByPharmacy(ctx, strings.TrimSpace(pharmacyID), status, offset, limit)
}

// PharmacyRating 药房均分（只含 approved 评价）及样本数。
func (s *Service) PharmacyRating(ctx context.Context, pharmacyID string) (float64, int64, error) {
	if s == nil || s.repo == nil {
		return 0, 0, fmt.Errorf("service not initialized")
	}
	return s.repo.AverageRating(ctx, strings.TrimSpace(pharmacyID))
}
