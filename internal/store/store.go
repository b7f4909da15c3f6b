package store

import (
	"context"
	"errors"
	"time"

	"tillbook/backend/internal/domain"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Repository is the document store the engine works against. Implementations
// must make AdjustBalance and AdjustProductQuantity atomic: they are the only
// mutation paths for the cash drawer and stock counters, and serializing them
// inside the store is what keeps concurrent operations from losing updates.
type Repository interface {
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id string, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	CreateExpenseCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	ListExpenseCategories(ctx context.Context) ([]domain.Category, error)
	GetExpenseCategory(ctx context.Context, id string) (*domain.Category, error)
	FindExpenseCategoryByName(ctx context.Context, name string) (*domain.Category, error)
	UpdateExpenseCategory(ctx context.Context, id string, name string) (*domain.Category, error)
	DeleteExpenseCategory(ctx context.Context, id string) error

	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	// AdjustProductQuantity applies a relative stock delta. A missing product
	// is reported as ErrNotFound so callers can decide whether to skip.
	AdjustProductQuantity(ctx context.Context, id string, delta float64) error
	DeleteProduct(ctx context.Context, id string) error

	CreateSet(ctx context.Context, set domain.ProductSet) (*domain.ProductSet, error)
	ListSets(ctx context.Context) ([]domain.ProductSet, error)
	GetSet(ctx context.Context, id string) (*domain.ProductSet, error)
	DeleteSet(ctx context.Context, id string) error

	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	ListSales(ctx context.Context) ([]domain.Sale, error)
	ListSalesBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	// ListCreditSales returns sales with a nonzero outstanding balance.
	ListCreditSales(ctx context.Context) ([]domain.Sale, error)
	UpdateSalePayment(ctx context.Context, id string, amountPaid float64, balanceAmount float64) (*domain.Sale, error)

	CreateReturn(ctx context.Context, ret domain.Return) (*domain.Return, error)
	ListReturns(ctx context.Context) ([]domain.Return, error)

	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	ListExpenses(ctx context.Context) ([]domain.Expense, error)
	ListExpensesBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.Expense, error)
	GetExpense(ctx context.Context, id string) (*domain.Expense, error)
	DeleteExpense(ctx context.Context, id string) error

	CreateMoneyTransfer(ctx context.Context, transfer domain.MoneyTransfer) (*domain.MoneyTransfer, error)
	ListMoneyTransfers(ctx context.Context) ([]domain.MoneyTransfer, error)
	GetMoneyTransfer(ctx context.Context, id string) (*domain.MoneyTransfer, error)
	DeleteMoneyTransfer(ctx context.Context, id string) error

	// GetBalance lazily creates the singleton record at zero on first use.
	GetBalance(ctx context.Context) (*domain.Balance, error)
	// AdjustBalance applies relative deltas to both accumulators atomically
	// and returns the resulting balance.
	AdjustBalance(ctx context.Context, cashDelta float64, gpayDelta float64) (*domain.Balance, error)

	CreateStockTransaction(ctx context.Context, tx domain.StockTransaction) (*domain.StockTransaction, error)
	ListStockTransactions(ctx context.Context) ([]domain.StockTransaction, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
