package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PharmaLink/PharmaLink/internal/account"
	"github.com/PharmaLink/PharmaLink/internal/apperr"
	"github.com/PharmaLink/PharmaLink/internal/pharmacy"
)

type memCatalogRepo struct {
	mu          sync.Mutex
	medications map[string]*Medication
	stocks      map[string]*PharmacyStock // pharmacyID+"/"+medicationID
	searchRows  []SearchRow
}

func newMemCatalogRepo() *memCatalogRepo {
	return &memCatalogRepo{medications: map[string]*Medication{}, stocks: map[string]*PharmacyStock{}}
}

func (r *memCatalogRepo) CreateMedication(_ context.Context, m *Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.medications[m.ID] = &cp
	return nil
}

func (r *memCatalogRepo) FindMedication(_ context.Context, id string) (*Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.medications[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memCatalogRepo) ListMedications(_ context.Context, _ string, _, _ int) ([]Medication, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Medication
	for _, m := range r.medications {
		out = append(out, *m)
	}
	return out, int64(len(out)), nil
}

func (r *memCatalogRepo) UpsertStock(_ context.Context, s *PharmacyStock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.stocks[s.PharmacyID+"/"+s.MedicationID] = &cp
	return nil
}

func (r *memCatalogRepo) FindStock(_ context.Context, pharmacyID, medicationID string) (*PharmacyStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stocks[pharmacyID+"/"+medicationID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memCatalogRepo) Search(_ context.Context, _ string, _ int) ([]SearchRow, error) {
	return append([]SearchRow(nil), r.searchRows...), nil
}

type stubPerms struct {
	perms map[string]pharmacy.Permissions
}

func (s *stubPerms) EmployeePermissions(_ context.Context, _, userID string) (pharmacy.Permissions, error) {
	return s.perms[userID], nil
}

type flatFee int64

func (f flatFee) Quote(float64) int64 { return int64(f) }

var (
	admin = account.Actor{UserID: "admin-1", Role: account.RoleAdmin}
	staff = account.Actor{UserID: "staff-1", Role: account.RolePharmacist}
)

func newCatalogService(repo *memCatalogRepo) *Service {
	perms := &stubPerms{perms: map[string]pharmacy.Permissions{
		"staff-1": {Member: true, CanManageStock: true},
	}}
	return NewService(repo, perms, flatFee(500))
}

func TestCreateMedicationAdminOnly(t *testing.T) {
	svc := newCatalogService(newMemCatalogRepo())

	_, err := svc.CreateMedication(context.Background(), staff, CreateMedicationInput{Name: "Doliprane"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	m, err := svc.CreateMedication(context.Background(), admin, CreateMedicationInput{
		Name: "Doliprane", GenericName: "paracetamol", Prescription: false,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
}

func TestUpsertStockRequiresPermission(t *testing.T) {
	repo := newMemCatalogRepo()
	svc := newCatalogService(repo)

	m, err := svc.CreateMedication(context.Background(), admin, CreateMedicationInput{Name: "Doliprane"})
	require.NoError(t, err)

	outsider := account.Actor{UserID: "nobody", Role: account.RolePharmacist}
	_, err = svc.UpsertStock(context.Background(), outsider, UpsertStockInput{
		PharmacyID: "ph-1", MedicationID: m.ID, PriceCents: 250, Quantity: 10,
	})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	stock, err := svc.UpsertStock(context.Background(), staff, UpsertStockInput{
		PharmacyID: "ph-1", MedicationID: m.ID, PriceCents: 250, Quantity: 10,
	})
	require.NoError(t, err)
	assert.True(t, stock.Available)
}

func TestUpsertStockUnknownMedication(t *testing.T) {
	svc := newCatalogService(newMemCatalogRepo())

	_, err := svc.UpsertStock(context.Background(), staff, UpsertStockInput{
		PharmacyID: "ph-1", MedicationID: "med-nope", PriceCents: 100, Quantity: 1,
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpsertStockZeroQuantityUnavailable(t *testing.T) {
	repo := newMemCatalogRepo()
	svc := newCatalogService(repo)

	m, err := svc.CreateMedication(context.Background(), admin, CreateMedicationInput{Name: "Doliprane"})
	require.NoError(t, err)

	stock, err := svc.UpsertStock(context.Background(), staff, UpsertStockInput{
		PharmacyID: "ph-1", MedicationID: m.ID, PriceCents: 100, Quantity: 0,
	})
	require.NoError(t, err)
	assert.False(t, stock.Available)
}

func TestSearchFiltersAndSortsByDistance(t *testing.T) {
	repo := newMemCatalogRepo()
	// 巴黎市中心为搜索原点；一家近、一家远、一家超出半径
	repo.searchRows = []SearchRow{
		{StockID: "far", PharmacyID: "ph-far", Latitude: 48.95, Longitude: 2.45, PriceCents: 100},
		{StockID: "near", PharmacyID: "ph-near", Latitude: 48.86, Longitude: 2.36, PriceCents: 200},
		{StockID: "out", PharmacyID: "ph-out", Latitude: 45.76, Longitude: 4.83, PriceCents: 50},
	}
	svc := newCatalogService(repo)

	results, err := svc.Search(context.Background(), SearchQuery{
		Name:          "doliprane",
		Latitude:      48.8566,
		Longitude:     2.3522,
		MaxDistanceKm: 30,
	})
	require.NoError(t, err)
	require.Len(t, results, 2) // 里昂那家超出半径被过滤

	assert.Equal(t, "near", results[0].StockID)
	assert.Equal(t, "far", results[1].StockID)
	assert.LessOrEqual(t, results[0].DistanceKm, results[1].DistanceKm)
	assert.Equal(t, int64(500), results[0].DeliveryFeeCents)
}
