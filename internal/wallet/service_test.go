package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Wallet), args.Error(1)
}

func (m *MockRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Wallet), args.Error(1)
}

func (m *MockRepository) History(ctx context.Context, walletID uuid.UUID, limit int) ([]*Transaction, error) {
	args := m.Called(ctx, walletID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Transaction), args.Error(1)
}

func (m *MockRepository) ApplyCredit(ctx context.Context, params ApplyCreditParams) (ApplyCreditOutcome, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(ApplyCreditOutcome), args.Error(1)
}

func (m *MockRepository) LifetimeCarbonGrams(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) SumTransactions(ctx context.Context, walletID uuid.UUID) (int64, error) {
	args := m.Called(ctx, walletID)
	return args.Get(0).(int64), args.Error(1)
}

func newTestWallet(userID uuid.UUID, balance, version int64) *Wallet {
	return &Wallet{
		ID:      uuid.New(),
		UserID:  userID,
		Balance: balance,
		Level:   LevelSemilla,
		Version: version,
	}
}

func TestService_Credit(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		w := newTestWallet(userID, 100, 3)
		repo.On("GetOrCreate", ctx, userID).Return(w, nil).Once()
		repo.On("ApplyCredit", ctx, mock.MatchedBy(func(p ApplyCreditParams) bool {
			return p.WalletID == w.ID && p.ExpectedVersion == 3 && p.Amount == 50
		})).Return(ApplyCreditOutcome{Applied: true}, nil).Once()

		credited, err := svc.Credit(ctx, userID, 50, "bonus", nil, nil)
		assert.NoError(t, err)
		assert.Equal(t, int64(50), credited)
		repo.AssertExpectations(t)
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		_, err := svc.Credit(ctx, userID, 0, "bonus", nil, nil)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = svc.Credit(ctx, userID, -10, "bonus", nil, nil)
		assert.ErrorIs(t, err, ErrInvalidAmount)
		repo.AssertNotCalled(t, "ApplyCredit", mock.Anything, mock.Anything)
	})

	t.Run("DuplicateReferenceIsReplay", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		ref := uuid.New()
		w := newTestWallet(userID, 100, 1)
		repo.On("GetOrCreate", ctx, userID).Return(w, nil).Once()
		repo.On("ApplyCredit", ctx, mock.Anything).
			Return(ApplyCreditOutcome{Duplicate: true}, nil).Once()

		credited, err := svc.Credit(ctx, userID, 50, "bonus", &ref, nil)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), credited)
		repo.AssertExpectations(t)
	})

	t.Run("RetriesOnVersionConflict", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		stale := newTestWallet(userID, 100, 1)
		fresh := newTestWallet(userID, 150, 2)

		repo.On("GetOrCreate", ctx, userID).Return(stale, nil).Once()
		repo.On("ApplyCredit", ctx, mock.MatchedBy(func(p ApplyCreditParams) bool {
			return p.ExpectedVersion == 1
		})).Return(ApplyCreditOutcome{}, nil).Once()

		repo.On("GetOrCreate", ctx, userID).Return(fresh, nil).Once()
		repo.On("ApplyCredit", ctx, mock.MatchedBy(func(p ApplyCreditParams) bool {
			return p.ExpectedVersion == 2
		})).Return(ApplyCreditOutcome{Applied: true}, nil).Once()

		credited, err := svc.Credit(ctx, userID, 50, "bonus", nil, nil)
		assert.NoError(t, err)
		assert.Equal(t, int64(50), credited)
		repo.AssertExpectations(t)
	})

	t.Run("ConflictExhaustsRetries", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		w := newTestWallet(userID, 100, 1)
		repo.On("GetOrCreate", ctx, userID).Return(w, nil).Times(3)
		repo.On("ApplyCredit", ctx, mock.Anything).
			Return(ApplyCreditOutcome{}, nil).Times(3)

		_, err := svc.Credit(ctx, userID, 50, "bonus", nil, nil)
		assert.ErrorIs(t, err, ErrVersionConflict)
		repo.AssertExpectations(t)
	})

	t.Run("RepoError", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		w := newTestWallet(userID, 100, 1)
		repo.On("GetOrCreate", ctx, userID).Return(w, nil).Once()
		repo.On("ApplyCredit", ctx, mock.Anything).
			Return(ApplyCreditOutcome{}, errors.New("db error")).Once()

		_, err := svc.Credit(ctx, userID, 50, "bonus", nil, nil)
		assert.Error(t, err)
	})
}

func TestService_CreditForOrder(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		// Lifetime 60kg puts the user at Guardián: 200 * 1.25 = 250.
		repo.On("LifetimeCarbonGrams", ctx, userID).Return(int64(60_000), nil).Once()

		w := newTestWallet(userID, 0, 0)
		repo.On("GetOrCreate", ctx, userID).Return(w, nil).Once()
		repo.On("ApplyCredit", ctx, mock.MatchedBy(func(p ApplyCreditParams) bool {
			return p.Amount == 250 &&
				p.Level == LevelGuardian &&
				p.ReferenceID != nil && *p.ReferenceID == orderID &&
				p.Metadata["orderId"] == orderID.String()
		})).Return(ApplyCreditOutcome{Applied: true}, nil).Once()

		credited, err := svc.CreditForOrder(ctx, userID, orderID, 10000, 5000)
		assert.NoError(t, err)
		assert.Equal(t, int64(250), credited)
		repo.AssertExpectations(t)
	})

	t.Run("ZeroPointOrderSkipsCredit", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("LifetimeCarbonGrams", ctx, userID).Return(int64(0), nil).Once()

		credited, err := svc.CreditForOrder(ctx, userID, orderID, 50, 0)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), credited)
		repo.AssertNotCalled(t, "ApplyCredit", mock.Anything, mock.Anything)
	})

	t.Run("AggregateError", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("LifetimeCarbonGrams", ctx, userID).
			Return(int64(0), errors.New("db error")).Once()

		_, err := svc.CreditForOrder(ctx, userID, orderID, 10000, 5000)
		assert.Error(t, err)
	})
}

func TestService_GetBalanceAndHistory(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("GetBalanceCreatesLazily", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		w := newTestWallet(userID, 0, 0)
		repo.On("GetOrCreate", ctx, userID).Return(w, nil).Once()

		got, err := svc.GetBalance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, w, got)
	})

	t.Run("HistoryUsesWalletID", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		w := newTestWallet(userID, 100, 1)
		history := []*Transaction{{ID: uuid.New(), WalletID: w.ID, Amount: 100, Type: TypeEarn}}

		repo.On("GetOrCreate", ctx, userID).Return(w, nil).Once()
		repo.On("History", ctx, w.ID, historyLimit).Return(history, nil).Once()

		got, err := svc.GetHistory(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, got, 1)
		repo.AssertExpectations(t)
	})
}

func TestService_Reconcile(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("BalancedLedger", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		w := newTestWallet(userID, 250, 4)
		repo.On("GetByUserID", ctx, userID).Return(w, nil).Once()
		repo.On("SumTransactions", ctx, w.ID).Return(int64(250), nil).Once()

		rec, err := svc.Reconcile(ctx, userID)
		require.NoError(t, err)
		assert.True(t, rec.Consistent)
		assert.Equal(t, int64(0), rec.Drift)
		assert.Equal(t, w.ID, rec.WalletID)
		repo.AssertExpectations(t)
	})

	t.Run("DriftReported", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		w := newTestWallet(userID, 300, 7)
		repo.On("GetByUserID", ctx, userID).Return(w, nil).Once()
		repo.On("SumTransactions", ctx, w.ID).Return(int64(250), nil).Once()

		rec, err := svc.Reconcile(ctx, userID)
		require.NoError(t, err)
		assert.False(t, rec.Consistent)
		assert.Equal(t, int64(50), rec.Drift)
		assert.Equal(t, int64(300), rec.Balance)
		assert.Equal(t, int64(250), rec.LedgerSum)
		repo.AssertExpectations(t)
	})

	t.Run("WalletNotFound", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		repo.On("GetByUserID", ctx, userID).Return(nil, ErrWalletNotFound).Once()

		_, err := svc.Reconcile(ctx, userID)
		assert.ErrorIs(t, err, ErrWalletNotFound)
		repo.AssertNotCalled(t, "SumTransactions", mock.Anything, mock.Anything)
	})
}
