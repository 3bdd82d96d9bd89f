package review

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PharmaLink/PharmaLink/internal/account"
	"github.com/PharmaLink/PharmaLink/internal/apperr"
	"github.com/PharmaLink/PharmaLink/internal/order"
)

type memReviews struct {
	mu      sync.Mutex
	byID    map[string]*Review
	byOrder map[string]string
}

func newMemReviews() *memReviews {
	return &memReviews{byID: map[string]*Review{}, byOrder: map[string]string{}}
}

func (r *memReviews) Create(_ context.Context, rv *Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byOrder[rv.OrderID]; dup {
		return apperr.ErrReviewNotAllowed
	}
	cp := *rv
	r.byID[rv.ID] = &cp
	r.byOrder[rv.OrderID] = rv.ID
	return nil
}

func (r *memReviews) FindByID(_ context.Context, id string) (*Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *rv
	return &cp, nil
}

func (r *memReviews) ExistsByOrder(_ context.Context, orderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byOrder[orderID]
	return ok, nil
}

func (r *memReviews) UpdateStatus(_ context.Context, id string, status ModerationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	rv.Status = status
	return nil
}

func (r *memReviews) ListByPharmacy(_ context.Context, pharmacyID string, status ModerationStatus, _, _ int) ([]Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Review
	for _, rv := range r.byID {
		if rv.PharmacyID != pharmacyID {
			continue
		}
		if status != "" && rv.Status != status {
			continue
		}
		out = append(out, *rv)
	}
	return out, nil
}

func (r *memReviews) AverageRating(_ context.Context, pharmacyID string) (float64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum, count int64
	for _, rv := range r.byID {
		if rv.PharmacyID == pharmacyID && rv.Status == StatusApproved {
			sum += int64(rv.Rating)
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}

type stubOrders struct {
	orders map[string]*order.Order
}

func (s *stubOrders) Get(_ context.Context, id string) (*order.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

var (
	patient = account.Actor{UserID: "patient-1", Role: account.RolePatient}
	admin   = account.Actor{UserID: "admin-1", Role: account.RoleAdmin}
)

func deliveredOrder(id string) *order.Order {
	return &order.Order{
		ID:         id,
		PatientID:  "patient-1",
		PharmacyID: "ph-1",
		Status:     order.StatusDelivered,
	}
}

func newReviewService(orders ...*order.Order) (*Service, *memReviews) {
	stub := &stubOrders{orders: map[string]*order.Order{}}
	for _, o := range orders {
		stub.orders[o.ID] = o
	}
	repo := newMemReviews()
	return NewService(repo, stub, nil), repo
}

func TestSubmitReview(t *testing.T) {
	svc, _ := newReviewService(deliveredOrder("ord-1"))

	rv, err := svc.Submit(context.Background(), patient, "ord-1", 4, "rapide et fiable")
	require.NoError(t, err)
	assert.Equal(t, 4, rv.Rating)
	assert.Equal(t, StatusPending, rv.Status)
	assert.Equal(t, "ph-1", rv.PharmacyID)
}

func TestSubmitRatingBounds(t *testing.T) {
	svc, _ := newReviewService(deliveredOrder("ord-1"))

	for _, rating := range []int{0, 6, -1, 100} {
		_, err := svc.Submit(context.Background(), patient, "ord-1", rating, "")
		assert.ErrorIs(t, err, apperr.ErrInvalidRating, "rating %d", rating)
	}

	_, err := svc.Submit(context.Background(), patient, "ord-1", 1, "")
	assert.NoError(t, err)
}

func TestSubmitRequiresDeliveredOrder(t *testing.T) {
	o := deliveredOrder("ord-1")
	o.Status = order.StatusInDelivery
	svc, _ := newReviewService(o)

	_, err := svc.Submit(context.Background(), patient, "ord-1", 5, "")
	assert.ErrorIs(t, err, apperr.ErrReviewNotAllowed)
}

func TestSubmitOnlyByOrderPatient(t *testing.T) {
	svc, _ := newReviewService(deliveredOrder("ord-1"))

	other := account.Actor{UserID: "patient-2", Role: account.RolePatient}
	_, err := svc.Submit(context.Background(), other, "ord-1", 5, "")
	assert.ErrorIs(t, err, apperr.ErrReviewNotAllowed)
}

func TestSubmitDuplicateRejected(t *testing.T) {
	svc, _ := newReviewService(deliveredOrder("ord-1"))

	_, err := svc.Submit(context.Background(), patient, "ord-1", 5, "")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), patient, "ord-1", 3, "")
	assert.ErrorIs(t, err, apperr.ErrReviewNotAllowed)
}

func TestModerateRequiresAdmin(t *testing.T) {
	svc, _ := newReviewService(deliveredOrder("ord-1"))

	rv, err := svc.Submit(context.Background(), patient, "ord-1", 5, "")
	require.NoError(t, err)

	_, err = svc.Moderate(context.Background(), patient, rv.ID, StatusApproved)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	got, err := svc.Moderate(context.Background(), admin, rv.ID, StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
}

func TestAverageCountsOnlyApproved(t *testing.T) {
	svc, _ := newReviewService(deliveredOrder("ord-1"), deliveredOrder("ord-2"), deliveredOrder("ord-3"))
	ctx := context.Background()

	rv1, err := svc.Submit(ctx, patient, "ord-1", 5, "")
	require.NoError(t, err)
	rv2, err := svc.Submit(ctx, patient, "ord-2", 3, "")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, patient, "ord-3", 1, "")
	require.NoError(t, err)

	_, err = svc.Moderate(ctx, admin, rv1.ID, StatusApproved)
	require.NoError(t, err)
	_, err = svc.Moderate(ctx, admin, rv2.ID, StatusApproved)
	require.NoError(t, err)
	// 第三条留在 pending，不计入均分

	avg, count, err := svc.PharmacyRating(ctx, "ph-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.InDelta(t, 4.0, avg, 0.0001)
}

func TestNonAdminSeesOnlyApprovedReviews(t *testing.T) {
	svc, _ := newReviewService(deliveredOrder("ord-1"), deliveredOrder("ord-2"))
	ctx := context.Background()

	rv1, err := svc.Submit(ctx, patient, "ord-1", 5, "")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, patient, "ord-2", 2, "")
	require.NoError(t, err)
	_, err = svc.Moderate(ctx, admin, rv1.ID, StatusApproved)
	require.NoError(t, err)

	list, err := svc.ListByPharmacy(ctx, patient, "ph-1", "", 0, 20)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, StatusApproved, list[0].Status)

	adminList, err := svc.ListByPharmacy(ctx, admin, "ph-1", "", 0, 20)
	require.NoError(t, err)
	assert.Len(t, adminList, 2)
}
