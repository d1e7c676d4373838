// internal/service/mocks_test.go
package service

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"mandir-fund/internal/domain"
	"mandir-fund/internal/repository"
	"mandir-fund/pkg/db"
)

// MockDBExecutor is a mock implementation of repository.DBExecutor.
type MockDBExecutor struct {
	mock.Mock
}

func (m *MockDBExecutor) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	argsCalled := m.Called(ctx, query, args)
	return argsCalled.Get(0).(sql.Result), argsCalled.Error(1)
}

func (m *MockDBExecutor) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	m.Called(ctx, query, args)
	return &sqlx.Row{}
}

// MockDBBeginner is a mock implementation of db.DBTxBeginner.
type MockDBBeginner struct {
	mock.Mock
}

func (m *MockDBBeginner) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	args := m.Called(ctx, opts)
	return &sqlx.Tx{}, args.Error(1)
}

// MockTxController is a mock implementation of db.TxController.
// It also implements repository.DBExecutor by embedding MockDBExecutor.
type MockTxController struct {
	mock.Mock
	MockDBExecutor
}

func (m *MockTxController) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTxController) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// MockDonationRepository is a mock implementation of repository.DonationRepository.
type MockDonationRepository struct {
	mock.Mock
}

func (m *MockDonationRepository) CreateDonation(ctx context.Context, q repository.DBExecutor, donation *domain.Donation) error {
	args := m.Called(ctx, q, donation)
	return args.Error(0)
}

func (m *MockDonationRepository) ListDonations(ctx context.Context, q repository.DBExecutor, filter repository.DonationFilter) ([]domain.Donation, error) {
	args := m.Called(ctx, q, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Donation), args.Error(1)
}

// MockPaymentIntentRepository is a mock implementation of repository.PaymentIntentRepository.
type MockPaymentIntentRepository struct {
	mock.Mock
}

func (m *MockPaymentIntentRepository) CreatePaymentIntent(ctx context.Context, q repository.DBExecutor, intent *domain.PaymentIntent) error {
	args := m.Called(ctx, q, intent)
	return args.Error(0)
}

func (m *MockPaymentIntentRepository) GetPaymentIntentByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.PaymentIntent, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentIntent), args.Error(1)
}

func (m *MockPaymentIntentRepository) GetPaymentIntentByReference(ctx context.Context, q repository.DBExecutor, reference string, forUpdate bool) (*domain.PaymentIntent, error) {
	args := m.Called(ctx, q, reference, forUpdate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentIntent), args.Error(1)
}

func (m *MockPaymentIntentRepository) UpdatePaymentIntentStatus(ctx context.Context, q repository.DBExecutor, intent *domain.PaymentIntent) error {
	args := m.Called(ctx, q, intent)
	return args.Error(0)
}

func (m *MockPaymentIntentRepository) ListPaymentIntents(ctx context.Context, q repository.DBExecutor, status domain.PaymentIntentStatus, limit, offset int) ([]domain.PaymentIntent, int64, error) {
	args := m.Called(ctx, q, status, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.PaymentIntent), args.Get(1).(int64), args.Error(2)
}

// MockLinkBuilder is a mock implementation of LinkBuilder.
type MockLinkBuilder struct {
	mock.Mock
}

func (m *MockLinkBuilder) Build(amount int64, reference string) (string, error) {
	args := m.Called(amount, reference)
	return args.String(0), args.Error(1)
}

// txFuncs returns transaction helpers that drive the given mock controller.
func txFuncs(tx *MockTxController) (db.BeginTxFunc, db.CommitTxFunc, db.RollbackTxFunc) {
	return func(ctx context.Context, dbConn db.DBTxBeginner) (db.TxController, error) {
			return tx, nil
		},
		func(db.TxController) error {
			return tx.Commit()
		},
		func(db.TxController) {
			_ = tx.Rollback()
		}
}
