package boutique

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/mavi-boutique/internal/domain/order"
	"github.com/example/mavi-boutique/internal/domain/product"
	"github.com/example/mavi-boutique/internal/domain/promo"
	"github.com/example/mavi-boutique/internal/infrastructure/store"
	"github.com/example/mavi-boutique/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 8, 10, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *mocks.MockStateStore, *mocks.MockEventSink) {
	t.Helper()
	backend := mocks.NewMockStateStore()
	sink := mocks.NewMockEventSink()

	s, err := Open(context.Background(), backend, store.DefaultStateKey, sink, nil)
	require.NoError(t, err)

	s.now = func() time.Time { return fixedNow }
	ids := 0
	s.newID = func() string {
		ids++
		return fmt.Sprintf("ord-%d", ids)
	}
	return s, backend, sink
}

func testProduct(id string, qty int, price float64) product.Product {
	return product.Product{
		ID:          id,
		Name:        "Ko'ylak " + id,
		Description: "Atlas ko'ylak",
		Images:      []string{"https://cdn.example.com/" + id + ".jpg"},
		Quantity:    qty,
		Section:     product.SectionSale,
		Size:        "M",
		Price:       price,
	}
}

func testOrder(items ...order.CartItem) order.Order {
	return order.Order{
		UserName:     "Dilnoza",
		Phone:        "+998901234567",
		Location:     "Toshkent, Chilonzor",
		Items:        items,
		OrderType:    order.TypeDelivery,
		UserTelegram: "@dilnoza",
	}
}

func item(p product.Product, qty int) order.CartItem {
	return order.CartItem{Product: p, OrderQuantity: qty}
}

// =============================================================================
// Open
// =============================================================================

func TestOpen_EmptyBackendSeedsState(t *testing.T) {
	s, backend, _ := newTestStore(t)

	snap := s.Snapshot()
	assert.Empty(t, snap.Products)
	assert.NotNil(t, snap.Products)
	assert.Empty(t, snap.Orders)
	assert.Empty(t, snap.Promos)
	assert.Equal(t, RoleUser, snap.CurrentUser.Role)
	assert.Equal(t, 0, backend.SaveCount(), "opening must not write")
}

func TestOpen_LoadsSavedState(t *testing.T) {
	backend := mocks.NewMockStateStore()
	backend.SetData(store.DefaultStateKey, []byte(`{
		"products":[{"id":"001","name":"Atlas","description":"","images":["https://x/1.jpg"],"quantity":5,"section":"sotish","size":"M","price":100000}],
		"orders":[{"id":"o1","userName":"A","phone":"1","location":"L","items":[],"totalPrice":0,"status":"pending","orderType":"band_qilish","userTelegram":"@a"}],
		"promos":[{"code":"MAVI20","discountPercentage":20}],
		"currentUser":{"role":"admin"}
	}`))

	s, err := Open(context.Background(), backend, store.DefaultStateKey, nil, nil)
	require.NoError(t, err)

	snap := s.Snapshot()
	require.Len(t, snap.Products, 1)
	assert.Equal(t, product.SectionSale, snap.Products[0].Section)
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, order.TypeReservation, snap.Orders[0].OrderType)
	assert.Equal(t, []promo.PromoCode{{Code: "MAVI20", DiscountPercentage: 20}}, snap.Promos)
	assert.Equal(t, RoleAdmin, snap.CurrentUser.Role)
}

func TestOpen_LoadError(t *testing.T) {
	backend := mocks.NewMockStateStore()
	backend.LoadErr = errors.New("connection refused")

	_, err := Open(context.Background(), backend, "", nil, nil)
	assert.ErrorContains(t, err, "connection refused")
}

func TestOpen_CorruptBlob(t *testing.T) {
	backend := mocks.NewMockStateStore()
	backend.SetData(store.DefaultStateKey, []byte(`{not json`))

	_, err := Open(context.Background(), backend, "", nil, nil)
	assert.Error(t, err)
}

// =============================================================================
// Products
// =============================================================================

func TestAddProduct_AppendOrder(t *testing.T) {
	s, backend, sink := newTestStore(t)
	ctx := context.Background()

	want := []product.Product{testProduct("003", 1, 10), testProduct("001", 2, 20), testProduct("002", 3, 30)}
	for _, p := range want {
		require.NoError(t, s.AddProduct(ctx, p))
	}

	assert.Equal(t, want, s.Snapshot().Products)
	assert.Equal(t, 3, backend.SaveCount(), "one save per mutation")
	assert.Equal(t, []string{"ProductAdded", "ProductAdded", "ProductAdded"}, sink.EventTypes())
}

func TestAddProduct_RejectsDuplicateID(t *testing.T) {
	s, backend, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddProduct(ctx, testProduct("001", 1, 10)))
	err := s.AddProduct(ctx, testProduct("001", 9, 99))

	assert.ErrorIs(t, err, ErrDuplicateProduct)
	assert.Len(t, s.Snapshot().Products, 1)
	assert.Equal(t, 1, backend.SaveCount())
}

func TestAddProduct_DoesNotAliasCallerImages(t *testing.T) {
	s, _, _ := newTestStore(t)
	p := testProduct("001", 1, 10)
	require.NoError(t, s.AddProduct(context.Background(), p))

	p.Images[0] = "https://evil/x.jpg"

	got, ok := s.Product("001")
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/001.jpg", got.Images[0])
}

func TestDeleteProduct(t *testing.T) {
	s, _, sink := newTestStore(t)
	ctx := context.Background()
	a, b, c := testProduct("a", 1, 1), testProduct("b", 2, 2), testProduct("c", 3, 3)
	for _, p := range []product.Product{a, b, c} {
		require.NoError(t, s.AddProduct(ctx, p))
	}

	removed, err := s.DeleteProduct(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, 1, removed)
	assert.Equal(t, []product.Product{a, c}, s.Snapshot().Products)
	assert.Equal(t, "ProductDeleted", sink.EventTypes()[3])
}

func TestDeleteProduct_RemovesEveryDuplicate(t *testing.T) {
	backend := mocks.NewMockStateStore()
	blob, err := Encode(AppState{Products: []product.Product{
		testProduct("x", 1, 1), testProduct("dup", 2, 2), testProduct("y", 3, 3), testProduct("dup", 4, 4),
	}})
	require.NoError(t, err)
	backend.SetData(store.DefaultStateKey, blob)

	s, err := Open(context.Background(), backend, "", nil, nil)
	require.NoError(t, err)

	removed, err := s.DeleteProduct(context.Background(), "dup")
	require.NoError(t, err)

	assert.Equal(t, 2, removed)
	assert.Equal(t, []product.Product{testProduct("x", 1, 1), testProduct("y", 3, 3)}, s.Snapshot().Products)
}

func TestDeleteProduct_UnknownIsNoop(t *testing.T) {
	s, backend, sink := newTestStore(t)
	require.NoError(t, s.AddProduct(context.Background(), testProduct("a", 1, 1)))

	removed, err := s.DeleteProduct(context.Background(), "zzz")
	require.NoError(t, err)

	assert.Zero(t, removed)
	assert.Equal(t, 1, backend.SaveCount())
	assert.Len(t, sink.AppendCalls, 1)
}

func TestUpdateProduct_ReplacesOnlyMatch(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	a, b := testProduct("a", 1, 1), testProduct("b", 2, 2)
	require.NoError(t, s.AddProduct(ctx, a))
	require.NoError(t, s.AddProduct(ctx, b))

	updated := testProduct("b", 7, 70000)
	updated.Name = "Yangi nom"
	ok, err := s.UpdateProduct(ctx, updated)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []product.Product{a, updated}, s.Snapshot().Products)
}

func TestUpdateProduct_NotFoundIsNoop(t *testing.T) {
	s, backend, _ := newTestStore(t)

	ok, err := s.UpdateProduct(context.Background(), testProduct("ghost", 1, 1))
	require.NoError(t, err)

	assert.False(t, ok)
	assert.Equal(t, 0, backend.SaveCount())
}

// =============================================================================
// Promos
// =============================================================================

func TestAddPromo_AllowsDuplicatesFirstMatchWins(t *testing.T) {
	s, _, sink := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddPromo(ctx, promo.PromoCode{Code: "MAVI20", DiscountPercentage: 20}))
	require.NoError(t, s.AddPromo(ctx, promo.PromoCode{Code: "MAVI20", DiscountPercentage: 50}))

	assert.Len(t, s.Promos(), 2)
	p, ok := s.FindPromo("mavi20")
	require.True(t, ok)
	assert.Equal(t, 20, p.DiscountPercentage)
	assert.Equal(t, []string{"PromoAdded", "PromoAdded"}, sink.EventTypes())
}

// =============================================================================
// Orders
// =============================================================================

func TestPlaceOrder_DoesNotTouchStock(t *testing.T) {
	s, _, sink := newTestStore(t)
	ctx := context.Background()
	p := testProduct("001", 5, 100000)
	require.NoError(t, s.AddProduct(ctx, p))

	o := testOrder(item(p, 2))
	o.Status = order.StatusConfirmed // ignored
	placed, err := s.PlaceOrder(ctx, o)
	require.NoError(t, err)

	assert.Equal(t, "ord-1", placed.ID)
	assert.Equal(t, order.StatusPending, placed.Status)
	assert.Equal(t, fixedNow, placed.CreatedAt)
	assert.Equal(t, 5, s.Snapshot().Products[0].Quantity)
	assert.Equal(t, "OrderPlaced", sink.EventTypes()[1])
}

func TestPlaceOrder_KeepsGivenID(t *testing.T) {
	s, _, _ := newTestStore(t)
	o := testOrder()
	o.ID = "1700000000000"

	placed, err := s.PlaceOrder(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, "1700000000000", placed.ID)
}

func TestConfirmOrder_EndToEnd(t *testing.T) {
	s, _, sink := newTestStore(t)
	ctx := context.Background()

	p := product.Product{ID: "001", Quantity: 5, Price: 100000, Section: product.SectionSale}
	require.NoError(t, s.AddProduct(ctx, p))

	placed, err := s.PlaceOrder(ctx, testOrder(item(p, 2)))
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, 5, snap.Products[0].Quantity)
	assert.Equal(t, order.StatusPending, snap.Orders[0].Status)

	ok, err := s.ConfirmOrder(ctx, placed.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	snap = s.Snapshot()
	assert.Equal(t, 3, snap.Products[0].Quantity)
	assert.Equal(t, order.StatusConfirmed, snap.Orders[0].Status)
	require.NotNil(t, snap.Orders[0].ConfirmedAt)
	assert.Equal(t, fixedNow, *snap.Orders[0].ConfirmedAt)

	require.Len(t, sink.AppendCalls, 3)
	confirmed := sink.AppendCalls[2]
	assert.Equal(t, order.EventOrderConfirmed, confirmed.EventType)
	payload := confirmed.Data.(order.OrderConfirmed)
	assert.Equal(t, []order.StockChange{{ProductID: "001", Before: 5, After: 3}}, payload.Stock)
}

func TestConfirmOrder_ClampsAtZero(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	p := testProduct("001", 3, 100000)
	require.NoError(t, s.AddProduct(ctx, p))
	placed, err := s.PlaceOrder(ctx, testOrder(item(p, 10)))
	require.NoError(t, err)

	ok, err := s.ConfirmOrder(ctx, placed.ID)
	require.NoError(t, err)
	require.True(t, ok)

	snap := s.Snapshot()
	require.Len(t, snap.Products, 1, "sold out products stay in the catalog")
	assert.Equal(t, 0, snap.Products[0].Quantity)
	assert.Empty(t, s.Storefront("", ""), "but are hidden from shoppers")
}

func TestConfirmOrder_Idempotent(t *testing.T) {
	s, backend, sink := newTestStore(t)
	ctx := context.Background()

	p := testProduct("001", 5, 100000)
	require.NoError(t, s.AddProduct(ctx, p))
	placed, err := s.PlaceOrder(ctx, testOrder(item(p, 2)))
	require.NoError(t, err)

	ok, err := s.ConfirmOrder(ctx, placed.ID)
	require.NoError(t, err)
	require.True(t, ok)
	saves := backend.SaveCount()

	ok, err = s.ConfirmOrder(ctx, placed.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 3, s.Snapshot().Products[0].Quantity, "no double decrement")
	assert.Equal(t, saves, backend.SaveCount())
	assert.Len(t, sink.AppendCalls, 3)
}

func TestConfirmOrder_UnknownIDLeavesStateUnchanged(t *testing.T) {
	s, backend, _ := newTestStore(t)
	ctx := context.Background()

	p := testProduct("001", 5, 100000)
	require.NoError(t, s.AddProduct(ctx, p))
	_, err := s.PlaceOrder(ctx, testOrder(item(p, 2)))
	require.NoError(t, err)

	before := s.Snapshot()
	saves := backend.SaveCount()

	ok, err := s.ConfirmOrder(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, saves, backend.SaveCount())
}

func TestConfirmOrder_CancelledIsNoop(t *testing.T) {
	backend := mocks.NewMockStateStore()
	backend.SetData(store.DefaultStateKey, []byte(`{
		"products":[{"id":"001","name":"A","description":"","images":["https://i/1.jpg"],"quantity":4,"section":"sale","size":"M","price":10}],
		"orders":[{"id":"o1","userName":"U","phone":"P","location":"L","items":[{"id":"001","name":"A","description":"","images":["https://i/1.jpg"],"quantity":4,"section":"sale","size":"M","price":10,"orderQuantity":2}],"totalPrice":20,"status":"cancelled","orderType":"delivery","userTelegram":"@guest"}],
		"promos":[],
		"currentUser":{"role":"user"}
	}`))
	s, err := Open(context.Background(), backend, "", nil, nil)
	require.NoError(t, err)

	ok, err := s.ConfirmOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.False(t, ok)

	p, _ := s.Product("001")
	assert.Equal(t, 4, p.Quantity)
	o, _ := s.Order("o1")
	assert.Equal(t, order.StatusCancelled, o.Status)
	assert.Equal(t, 0, backend.SaveCount())
}

func TestConfirmOrder_OnlyOrderedProductsChange(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	a, b, c := testProduct("a", 4, 10), testProduct("b", 4, 20), testProduct("c", 4, 30)
	for _, p := range []product.Product{a, b, c} {
		require.NoError(t, s.AddProduct(ctx, p))
	}
	other, err := s.PlaceOrder(ctx, testOrder(item(a, 1)))
	require.NoError(t, err)
	target, err := s.PlaceOrder(ctx, testOrder(item(b, 3)))
	require.NoError(t, err)

	_, err = s.ConfirmOrder(ctx, target.ID)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, a, snap.Products[0])
	assert.Equal(t, 1, snap.Products[1].Quantity)
	assert.Equal(t, c, snap.Products[2])
	assert.Equal(t, other, snap.Orders[0])
	assert.Equal(t, order.StatusConfirmed, snap.Orders[1].Status)
}

// =============================================================================
// Persistence
// =============================================================================

func TestFailedSaveLeavesStateUnchanged(t *testing.T) {
	s, backend, sink := newTestStore(t)
	ctx := context.Background()

	p := testProduct("001", 5, 100000)
	require.NoError(t, s.AddProduct(ctx, p))
	placed, err := s.PlaceOrder(ctx, testOrder(item(p, 2)))
	require.NoError(t, err)

	before := s.Snapshot()
	events := len(sink.AppendCalls)
	backend.SetSaveErr(errors.New("disk full"))

	assert.Error(t, s.AddProduct(ctx, testProduct("002", 1, 1)))
	_, err = s.DeleteProduct(ctx, "001")
	assert.Error(t, err)
	_, err = s.ConfirmOrder(ctx, placed.ID)
	assert.Error(t, err)
	assert.Error(t, s.AddPromo(ctx, promo.PromoCode{Code: "X", DiscountPercentage: 5}))

	assert.Equal(t, before, s.Snapshot())
	assert.Len(t, sink.AppendCalls, events, "nothing is published for a failed mutation")
}

func TestEverySaveContainsWholeState(t *testing.T) {
	s, backend, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddProduct(ctx, testProduct("001", 5, 100000)))
	require.NoError(t, s.AddPromo(ctx, promo.PromoCode{Code: "MAVI20", DiscountPercentage: 20}))

	data, ok := backend.Data(store.DefaultStateKey)
	require.True(t, ok)

	saved, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot(), saved)
}

func TestPublishFailureDoesNotRollBack(t *testing.T) {
	s, _, sink := newTestStore(t)
	sink.AppendErr = errors.New("kafka down")

	require.NoError(t, s.AddProduct(context.Background(), testProduct("001", 1, 1)))
	assert.Len(t, s.Snapshot().Products, 1)
}

// =============================================================================
// Role
// =============================================================================

func TestSetRole(t *testing.T) {
	s, _, sink := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.SetRole(ctx, RoleAdmin, false), ErrForbidden)
	assert.Equal(t, RoleUser, s.Role())

	require.NoError(t, s.SetRole(ctx, RoleAdmin, true))
	assert.Equal(t, RoleAdmin, s.Role())

	require.NoError(t, s.SetRole(ctx, RoleUser, false))
	assert.Equal(t, RoleUser, s.Role())

	assert.ErrorIs(t, s.SetRole(ctx, "owner", true), ErrInvalidRole)
	assert.Equal(t, []string{EventRoleChanged, EventRoleChanged}, sink.EventTypes())
}

func TestSetRole_SameRoleDoesNotSave(t *testing.T) {
	s, backend, _ := newTestStore(t)

	require.NoError(t, s.SetRole(context.Background(), RoleUser, false))
	assert.Equal(t, 0, backend.SaveCount())
}

// =============================================================================
// Concurrency
// =============================================================================

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	backend := mocks.NewMockStateStore()
	s, err := Open(context.Background(), backend, "", nil, nil)
	require.NoError(t, err)

	p := testProduct("001", 100, 1000)
	require.NoError(t, s.AddProduct(context.Background(), p))

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			placed, err := s.PlaceOrder(context.Background(), testOrder(item(p, 1)))
			if err != nil {
				return
			}
			_, _ = s.ConfirmOrder(context.Background(), placed.ID)
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Len(t, snap.Orders, 40)
	assert.Equal(t, 60, snap.Products[0].Quantity)
}
