package order

import (
	"context"
	"errors"
	"testing"

	"ecoshop-be/internal/notification"
	"ecoshop-be/internal/product"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateOrderTx(ctx context.Context, params CreateOrderParams) (*Order, []product.StockAlert, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var alerts []product.StockAlert
	if args.Get(1) != nil {
		alerts = args.Get(1).([]product.StockAlert)
	}
	return args.Get(0).(*Order), alerts, args.Error(2)
}

func (m *MockRepository) GetDetail(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Order), args.Error(1)
}

func (m *MockRepository) GetStatus(ctx context.Context, orderID uuid.UUID) (Status, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(Status), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to Status) error {
	args := m.Called(ctx, orderID, from, to)
	return args.Error(0)
}

func (m *MockRepository) MarkPaid(ctx context.Context, orderID uuid.UUID) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) GetFanout(ctx context.Context, orderID uuid.UUID) (*FanoutOrder, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FanoutOrder), args.Error(1)
}

func (m *MockRepository) CancelTx(ctx context.Context, orderID uuid.UUID) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

// MockNotifier is a mock implementation of the notification.Notifier interface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) OrderPaid(ctx context.Context, event notification.OrderPaidEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockNotifier) BrandSale(ctx context.Context, event notification.BrandSaleEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockNotifier) StockAlert(ctx context.Context, event notification.StockAlertEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockNotifier) Close() {
	m.Called()
}

func TestService_CreateOrder(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	addressID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		notifier := new(MockNotifier)
		svc := NewService(repo, notifier)

		items := []NewOrderItem{{ProductID: uuid.New(), Quantity: 2}}
		created := &Order{ID: uuid.New(), UserID: userID, Status: StatusPending, TotalCents: 1198, TotalCarbonGrams: 240}

		repo.On("CreateOrderTx", ctx, mock.MatchedBy(func(p CreateOrderParams) bool {
			return p.UserID == userID && p.AddressID == addressID && len(p.Items) == 1
		})).Return(created, nil, nil).Once()

		result, err := svc.CreateOrder(ctx, userID, addressID, items, nil)
		require.NoError(t, err)
		assert.Equal(t, created.ID, result.OrderID)
		assert.Equal(t, int64(1198), result.TotalCents)
		repo.AssertExpectations(t)
		notifier.AssertNotCalled(t, "StockAlert", mock.Anything, mock.Anything)
	})

	t.Run("EmptyOrder", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockNotifier))

		_, err := svc.CreateOrder(ctx, userID, addressID, nil, nil)
		assert.ErrorIs(t, err, ErrEmptyOrder)
		repo.AssertNotCalled(t, "CreateOrderTx", mock.Anything, mock.Anything)
	})

	t.Run("InvalidQuantity", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockNotifier))

		items := []NewOrderItem{{ProductID: uuid.New(), Quantity: 0}}
		_, err := svc.CreateOrder(ctx, userID, addressID, items, nil)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("PublishesStockAlertsAfterCommit", func(t *testing.T) {
		repo := new(MockRepository)
		notifier := new(MockNotifier)
		svc := NewService(repo, notifier)

		productID := uuid.New()
		items := []NewOrderItem{{ProductID: productID, Quantity: 1}}
		created := &Order{ID: uuid.New(), UserID: userID, Status: StatusPending}
		alerts := []product.StockAlert{{
			ProductID:   productID,
			ProductName: "Hemp Tote",
			BrandName:   "EcoBrand",
			OwnerEmail:  "owner@eco.shop",
			Remaining:   3,
		}}

		repo.On("CreateOrderTx", ctx, mock.Anything).Return(created, alerts, nil).Once()
		notifier.On("StockAlert", ctx, mock.MatchedBy(func(e notification.StockAlertEvent) bool {
			return e.ProductID == productID.String() && e.Stock == 3 && e.Email == "owner@eco.shop"
		})).Return(nil).Once()

		_, err := svc.CreateOrder(ctx, userID, addressID, items, nil)
		require.NoError(t, err)
		notifier.AssertExpectations(t)
	})

	t.Run("NotifierFailureIsNonFatal", func(t *testing.T) {
		repo := new(MockRepository)
		notifier := new(MockNotifier)
		svc := NewService(repo, notifier)

		items := []NewOrderItem{{ProductID: uuid.New(), Quantity: 1}}
		created := &Order{ID: uuid.New(), UserID: userID}
		alerts := []product.StockAlert{{ProductID: uuid.New(), Remaining: 0}}

		repo.On("CreateOrderTx", ctx, mock.Anything).Return(created, alerts, nil).Once()
		notifier.On("StockAlert", ctx, mock.Anything).Return(errors.New("broker down")).Once()

		_, err := svc.CreateOrder(ctx, userID, addressID, items, nil)
		assert.NoError(t, err)
	})

	t.Run("RepoError", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockNotifier))

		items := []NewOrderItem{{ProductID: uuid.New(), Quantity: 1}}
		repo.On("CreateOrderTx", ctx, mock.Anything).
			Return(nil, nil, product.ErrInsufficientStock).Once()

		_, err := svc.CreateOrder(ctx, userID, addressID, items, nil)
		assert.ErrorIs(t, err, product.ErrInsufficientStock)
	})
}

func TestService_GetOrderDetail(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()

	t.Run("OwnerSeesOrder", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockNotifier))

		o := &Order{ID: orderID, UserID: userID}
		repo.On("GetDetail", ctx, orderID).Return(o, nil).Once()

		got, err := svc.GetOrderDetail(ctx, userID, orderID, false)
		require.NoError(t, err)
		assert.Equal(t, orderID, got.ID)
	})

	t.Run("StrangerRejected", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockNotifier))

		o := &Order{ID: orderID, UserID: uuid.New()}
		repo.On("GetDetail", ctx, orderID).Return(o, nil).Once()

		_, err := svc.GetOrderDetail(ctx, userID, orderID, false)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("AdminSeesAnyOrder", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockNotifier))

		o := &Order{ID: orderID, UserID: uuid.New()}
		repo.On("GetDetail", ctx, orderID).Return(o, nil).Once()

		_, err := svc.GetOrderDetail(ctx, userID, orderID, true)
		assert.NoError(t, err)
	})
}

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	t.Run("LegalEdge", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockNotifier))

		repo.On("GetStatus", ctx, orderID).Return(StatusPaid, nil).Once()
		repo.On("UpdateStatus", ctx, orderID, StatusPaid, StatusShipped).Return(nil).Once()

		assert.NoError(t, svc.UpdateStatus(ctx, orderID, StatusShipped))
		repo.AssertExpectations(t)
	})

	t.Run("IllegalEdge", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockNotifier))

		repo.On("GetStatus", ctx, orderID).Return(StatusCompleted, nil).Once()

		assert.ErrorIs(t, svc.UpdateStatus(ctx, orderID, StatusShipped), ErrInvalidTransition)
		repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("SkippingAStateRejected", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockNotifier))

		repo.On("GetStatus", ctx, orderID).Return(StatusPending, nil).Once()

		assert.ErrorIs(t, svc.UpdateStatus(ctx, orderID, StatusShipped), ErrInvalidTransition)
	})

	t.Run("CancellationRoutesThroughCancelTx", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockNotifier))

		repo.On("CancelTx", ctx, orderID).Return(nil).Once()

		assert.NoError(t, svc.UpdateStatus(ctx, orderID, StatusCancelled))
		repo.AssertExpectations(t)
	})
}

func TestStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusPaid))
	assert.True(t, StatusPending.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusPaid.CanTransitionTo(StatusShipped))
	assert.True(t, StatusShipped.CanTransitionTo(StatusCompleted))

	assert.False(t, StatusPaid.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusPending.CanTransitionTo(StatusShipped))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusShipped))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusPaid))
}
