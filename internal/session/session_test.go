package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-foh/internal/domain"
	"restaurant-foh/internal/session"
)

type fakeAPI struct {
	createFunc  func(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error)
	addItemFunc func(ctx context.Context, orderID int64, req domain.CreateOrderItemRequest) (domain.OrderItem, error)
	getFunc     func(ctx context.Context, id int64) (domain.Order, error)
}

func (f *fakeAPI) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	return f.createFunc(ctx, req)
}

func (f *fakeAPI) AddOrderItem(ctx context.Context, orderID int64, req domain.CreateOrderItemRequest) (domain.OrderItem, error) {
	return f.addItemFunc(ctx, orderID, req)
}

func (f *fakeAPI) OrderByID(ctx context.Context, id int64) (domain.Order, error) {
	return f.getFunc(ctx, id)
}

var arroz = domain.Recipe{ID: 7, Name: "Arroz con Pollo", Price: 12.5}
var jugo = domain.Recipe{ID: 9, Name: "Jugo de Maracuyá", Price: 3}

func TestAddToCartMergesIdenticalLines(t *testing.T) {
	s := session.New(&fakeAPI{}, 4, "María")

	s.AddToCart(arroz, "", false, nil, 0)
	s.AddToCart(arroz, "", false, nil, 0)

	cart := s.Cart()
	require.Len(t, cart, 1, "identical lines must merge, not duplicate")
	assert.Equal(t, 2, cart[0].Quantity)
	assert.InDelta(t, 25.0, cart[0].Total, 1e-9)
}

func TestAddToCartKeySensitivity(t *testing.T) {
	s := session.New(&fakeAPI{}, 4, "María")

	s.AddToCart(arroz, "", false, nil, 0)
	s.AddToCart(arroz, "sin cebolla", false, nil, 0)
	s.AddToCart(arroz, "", true, nil, 0)
	s.AddToCart(jugo, "", false, nil, 0)

	assert.Len(t, s.Cart(), 4, "notes and takeaway are part of the merge key")
}

func TestAddToCartContainerPriceInUnitPrice(t *testing.T) {
	s := session.New(&fakeAPI{}, 4, "María")
	cid := int64(2)
	s.AddToCart(arroz, "", true, &cid, 0.5)

	cart := s.Cart()
	require.Len(t, cart, 1)
	assert.InDelta(t, 13.0, cart[0].UnitPrice, 1e-9)
	require.NotNil(t, cart[0].ContainerID)
	assert.Equal(t, cid, *cart[0].ContainerID)
}

func TestRemoveFromCart(t *testing.T) {
	s := session.New(&fakeAPI{}, 4, "María")
	s.AddToCart(arroz, "", false, nil, 0)
	s.AddToCart(jugo, "", false, nil, 0)
	s.AddToCart(arroz, "extra arroz", false, nil, 0)

	require.NoError(t, s.RemoveFromCart(1))

	cart := s.Cart()
	require.Len(t, cart, 2)
	assert.Equal(t, "Arroz con Pollo", cart[0].RecipeName)
	assert.Equal(t, "extra arroz", cart[1].Notes)

	assert.ErrorIs(t, s.RemoveFromCart(5), session.ErrBadCartIndex)
	assert.ErrorIs(t, s.RemoveFromCart(-1), session.ErrBadCartIndex)
}

func TestSubmitValidation(t *testing.T) {
	s := session.New(&fakeAPI{}, 4, "María")
	_, err := s.Submit(context.Background(), "", 0)
	assert.ErrorIs(t, err, session.ErrEmptyCart)

	noTable := session.New(&fakeAPI{}, 0, "María")
	noTable.AddToCart(arroz, "", false, nil, 0)
	_, err = noTable.Submit(context.Background(), "", 0)
	assert.ErrorIs(t, err, session.ErrNoTableSelected)
}

func TestSubmitCreatesOrderAndClearsCart(t *testing.T) {
	var gotReq domain.CreateOrderRequest
	api := &fakeAPI{
		createFunc: func(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
			gotReq = req
			return domain.Order{
				ID: 42, TableID: req.TableID, Status: domain.OrderCreated,
				Items: []domain.OrderItem{{ID: 1, RecipeID: 7, Quantity: 2, Status: domain.ItemCreated}},
			}, nil
		},
	}
	s := session.New(api, 4, "María")
	s.AddToCart(arroz, "", false, nil, 0)
	s.AddToCart(arroz, "", false, nil, 0)

	order, err := s.Submit(context.Background(), "Juan", 2)
	require.NoError(t, err)

	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, "Juan", gotReq.CustomerName)
	assert.Equal(t, 2, gotReq.PartySize)
	require.Len(t, gotReq.Items, 1)
	assert.Equal(t, 2, gotReq.Items[0].Quantity)

	assert.Empty(t, s.Cart(), "cart clears after a successful submit")
	held, ok := s.Order()
	require.True(t, ok)
	assert.True(t, domain.OccupiesTable(held.Status), "table reports occupied")
}

func TestSubmitAppendsToExistingOrder(t *testing.T) {
	var appended []domain.CreateOrderItemRequest
	refetched := domain.Order{
		ID: 42, Status: domain.OrderCreated,
		Items: []domain.OrderItem{
			{ID: 1, Status: domain.ItemPreparing},
			{ID: 2, Status: domain.ItemCreated},
		},
	}
	api := &fakeAPI{
		addItemFunc: func(ctx context.Context, orderID int64, req domain.CreateOrderItemRequest) (domain.OrderItem, error) {
			assert.Equal(t, int64(42), orderID)
			appended = append(appended, req)
			return domain.OrderItem{ID: 2}, nil
		},
		getFunc: func(ctx context.Context, id int64) (domain.Order, error) {
			return refetched, nil
		},
	}
	s := session.New(api, 4, "María")
	s.Replace(domain.Order{ID: 42, Status: domain.OrderCreated,
		Items: []domain.OrderItem{{ID: 1, Status: domain.ItemPreparing}}})

	s.AddToCart(jugo, "", false, nil, 0)
	order, err := s.Submit(context.Background(), "", 0)
	require.NoError(t, err)

	require.Len(t, appended, 1)
	assert.Equal(t, jugo.ID, appended[0].RecipeID)
	assert.Len(t, order.Items, 2, "held order replaced by the re-fetched one")
	assert.Empty(t, s.Cart())
}

func TestSubmitRejectsOverlappingCall(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var creates int
	api := &fakeAPI{
		createFunc: func(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
			creates++
			close(entered)
			<-release
			return domain.Order{ID: 42, TableID: req.TableID, Status: domain.OrderCreated}, nil
		},
	}
	s := session.New(api, 4, "María")
	s.AddToCart(arroz, "", false, nil, 0)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "", 0)
		done <- err
	}()

	<-entered
	_, err := s.Submit(context.Background(), "", 0)
	assert.ErrorIs(t, err, session.ErrSubmitInFlight,
		"a second submit must not create a duplicate order")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, creates)
	assert.Empty(t, s.Cart())
}

func TestSubmitFailureKeepsCart(t *testing.T) {
	api := &fakeAPI{
		createFunc: func(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
			return domain.Order{}, errors.New("boom")
		},
	}
	s := session.New(api, 4, "María")
	s.AddToCart(arroz, "", false, nil, 0)

	_, err := s.Submit(context.Background(), "", 0)
	assert.Error(t, err)
	assert.Len(t, s.Cart(), 1, "cart survives a failed submit")
	_, ok := s.Order()
	assert.False(t, ok)
}

func TestReplaceSkipsFieldIdenticalOrder(t *testing.T) {
	s := session.New(&fakeAPI{}, 4, "María")
	base := domain.Order{ID: 42, Status: domain.OrderCreated,
		Items: []domain.OrderItem{{ID: 1, Status: domain.ItemCreated}, {ID: 2, Status: domain.ItemPreparing}}}

	assert.True(t, s.Replace(base))
	v := s.Version()

	same := domain.Order{ID: 42, Status: domain.OrderCreated,
		Items: []domain.OrderItem{{ID: 2, Status: domain.ItemPreparing}, {ID: 1, Status: domain.ItemCreated}}}
	assert.False(t, s.Replace(same), "field-identical refetch is ignored")
	assert.Equal(t, v, s.Version())

	moved := same
	moved.Items = []domain.OrderItem{{ID: 2, Status: domain.ItemServed}, {ID: 1, Status: domain.ItemCreated}}
	assert.True(t, s.Replace(moved))
	assert.Equal(t, v+1, s.Version())
}

func TestClear(t *testing.T) {
	s := session.New(&fakeAPI{}, 4, "María")
	s.Replace(domain.Order{ID: 42, Status: domain.OrderCreated})
	v := s.Version()

	s.Clear()
	_, ok := s.Order()
	assert.False(t, ok)
	assert.Equal(t, v+1, s.Version())

	s.Clear() // second clear is a no-op
	assert.Equal(t, v+1, s.Version())
}
