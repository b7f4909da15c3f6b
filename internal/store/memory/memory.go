package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tillbook/backend/internal/domain"
	"tillbook/backend/internal/store"
)

type Store struct {
	mu                sync.RWMutex
	categories        map[string]domain.Category
	expenseCategories map[string]domain.Category
	products          map[string]domain.Product
	sets              map[string]domain.ProductSet
	sales             map[string]domain.Sale
	returns           map[string]domain.Return
	expenses          map[string]domain.Expense
	transfers         map[string]domain.MoneyTransfer
	stockTransactions []domain.StockTransaction
	balance           *domain.Balance
	usersByUsername   map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		categories:        make(map[string]domain.Category),
		expenseCategories: make(map[string]domain.Category),
		products:          make(map[string]domain.Product),
		sets:              make(map[string]domain.ProductSet),
		sales:             make(map[string]domain.Sale),
		returns:           make(map[string]domain.Return),
		expenses:          make(map[string]domain.Expense),
		transfers:         make(map[string]domain.MoneyTransfer),
		stockTransactions: make([]domain.StockTransaction, 0, 64),
		usersByUsername:   make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store with dev/demo user accounts loaded. Credentials
// come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; hardcoded dev
// defaults are used with a warning when unset. Production deployments use
// PostgreSQL (DATABASE_URL) and never hit this path.
func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()
	return s
}

func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ---- categories ----

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	if category.ID == "" || strings.TrimSpace(category.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.categories[category.ID] = category
	created := category
	return &created, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedCategories(s.categories), nil
}

func (s *Store) GetCategory(_ context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, exists := s.categories[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCategory := category
	return &copyCategory, nil
}

func (s *Store) UpdateCategory(_ context.Context, id string, name string) (*domain.Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	category, exists := s.categories[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	category.Name = name
	s.categories[id] = category
	updated := category
	return &updated, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categories[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

// ---- expense categories ----

func (s *Store) CreateExpenseCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	if category.ID == "" || strings.TrimSpace(category.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.expenseCategories[category.ID] = category
	created := category
	return &created, nil
}

func (s *Store) ListExpenseCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedCategories(s.expenseCategories), nil
}

func (s *Store) GetExpenseCategory(_ context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, exists := s.expenseCategories[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCategory := category
	return &copyCategory, nil
}

func (s *Store) FindExpenseCategoryByName(_ context.Context, name string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, category := range s.expenseCategories {
		if category.Name == name {
			copyCategory := category
			return &copyCategory, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateExpenseCategory(_ context.Context, id string, name string) (*domain.Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	category, exists := s.expenseCategories[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	category.Name = name
	s.expenseCategories[id] = category
	updated := category
	return &updated, nil
}

func (s *Store) DeleteExpenseCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expenseCategories[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.expenseCategories, id)
	return nil
}

// ---- products ----

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.CategoryName == b.CategoryName {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.CategoryName, b.CategoryName)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; !exists {
		return nil, store.ErrNotFound
	}
	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) AdjustProductQuantity(_ context.Context, id string, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return store.ErrNotFound
	}
	product.Quantity += delta
	product.UpdatedAt = time.Now().UTC()
	s.products[id] = product
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

// ---- sets ----

func (s *Store) CreateSet(_ context.Context, set domain.ProductSet) (*domain.ProductSet, error) {
	if set.ID == "" || strings.TrimSpace(set.Name) == "" || len(set.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sets[set.ID] = cloneSet(set)
	created := cloneSet(set)
	return &created, nil
}

func (s *Store) ListSets(_ context.Context) ([]domain.ProductSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sets := make([]domain.ProductSet, 0, len(s.sets))
	for _, set := range s.sets {
		sets = append(sets, cloneSet(set))
	}
	slices.SortFunc(sets, func(a, b domain.ProductSet) int {
		return strings.Compare(a.Name, b.Name)
	})
	return sets, nil
}

func (s *Store) GetSet(_ context.Context, id string) (*domain.ProductSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, exists := s.sets[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copySet := cloneSet(set)
	return &copySet, nil
}

func (s *Store) DeleteSet(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sets[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.sets, id)
	return nil
}

// ---- sales ----

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sales[sale.ID] = cloneSale(sale)
	created := cloneSale(sale)
	return &created, nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.salesLocked(func(domain.Sale) bool { return true }), nil
}

func (s *Store) ListSalesBetween(_ context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.salesLocked(func(sale domain.Sale) bool {
		return !sale.Date.Before(from) && sale.Date.Before(to)
	}), nil
}

func (s *Store) ListCreditSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.salesLocked(func(sale domain.Sale) bool {
		return sale.BalanceAmount > 0
	}), nil
}

func (s *Store) salesLocked(keep func(domain.Sale) bool) []domain.Sale {
	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if keep(sale) {
			sales = append(sales, cloneSale(sale))
		}
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		return b.Date.Compare(a.Date)
	})
	return sales
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.sales[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copySale := cloneSale(sale)
	return &copySale, nil
}

func (s *Store) UpdateSalePayment(_ context.Context, id string, amountPaid float64, balanceAmount float64) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, exists := s.sales[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	sale.AmountPaid = amountPaid
	sale.BalanceAmount = balanceAmount
	s.sales[id] = sale
	updated := cloneSale(sale)
	return &updated, nil
}

// ---- returns ----

func (s *Store) CreateReturn(_ context.Context, ret domain.Return) (*domain.Return, error) {
	if ret.ID == "" || ret.SaleID == "" || len(ret.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.returns[ret.ID] = cloneReturn(ret)
	created := cloneReturn(ret)
	return &created, nil
}

func (s *Store) ListReturns(_ context.Context) ([]domain.Return, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	returns := make([]domain.Return, 0, len(s.returns))
	for _, ret := range s.returns {
		returns = append(returns, cloneReturn(ret))
	}
	slices.SortFunc(returns, func(a, b domain.Return) int {
		return b.Date.Compare(a.Date)
	})
	return returns, nil
}

// ---- expenses ----

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.ID == "" || expense.CategoryID == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.expenses[expense.ID] = expense
	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(_ context.Context) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expensesLocked(func(domain.Expense) bool { return true }), nil
}

func (s *Store) ListExpensesBetween(_ context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expensesLocked(func(expense domain.Expense) bool {
		return !expense.Date.Before(from) && expense.Date.Before(to)
	}), nil
}

func (s *Store) expensesLocked(keep func(domain.Expense) bool) []domain.Expense {
	expenses := make([]domain.Expense, 0, len(s.expenses))
	for _, expense := range s.expenses {
		if keep(expense) {
			expenses = append(expenses, expense)
		}
	}
	slices.SortFunc(expenses, func(a, b domain.Expense) int {
		return b.Date.Compare(a.Date)
	})
	return expenses
}

func (s *Store) GetExpense(_ context.Context, id string) (*domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expense, exists := s.expenses[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyExpense := expense
	return &copyExpense, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expenses[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

// ---- money transfers ----

func (s *Store) CreateMoneyTransfer(_ context.Context, transfer domain.MoneyTransfer) (*domain.MoneyTransfer, error) {
	if transfer.ID == "" || transfer.TransferType == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.transfers[transfer.ID] = transfer
	created := transfer
	return &created, nil
}

func (s *Store) ListMoneyTransfers(_ context.Context) ([]domain.MoneyTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transfers := make([]domain.MoneyTransfer, 0, len(s.transfers))
	for _, transfer := range s.transfers {
		transfers = append(transfers, transfer)
	}
	slices.SortFunc(transfers, func(a, b domain.MoneyTransfer) int {
		return b.Date.Compare(a.Date)
	})
	return transfers, nil
}

func (s *Store) GetMoneyTransfer(_ context.Context, id string) (*domain.MoneyTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transfer, exists := s.transfers[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyTransfer := transfer
	return &copyTransfer, nil
}

func (s *Store) DeleteMoneyTransfer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transfers[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.transfers, id)
	return nil
}

// ---- balance ----

func (s *Store) GetBalance(_ context.Context) (*domain.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance := s.balanceLocked()
	copyBalance := *balance
	return &copyBalance, nil
}

func (s *Store) AdjustBalance(_ context.Context, cashDelta float64, gpayDelta float64) (*domain.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance := s.balanceLocked()
	balance.Cash += cashDelta
	balance.GPay += gpayDelta
	balance.UpdatedAt = time.Now().UTC()
	copyBalance := *balance
	return &copyBalance, nil
}

func (s *Store) balanceLocked() *domain.Balance {
	if s.balance == nil {
		s.balance = &domain.Balance{
			ID:        domain.BalanceID,
			UpdatedAt: time.Now().UTC(),
		}
	}
	return s.balance
}

// ---- stock transactions ----

func (s *Store) CreateStockTransaction(_ context.Context, tx domain.StockTransaction) (*domain.StockTransaction, error) {
	if tx.ID == "" || tx.ProductID == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stockTransactions = append(s.stockTransactions, tx)
	created := tx
	return &created, nil
}

func (s *Store) ListStockTransactions(_ context.Context) ([]domain.StockTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StockTransaction, len(s.stockTransactions))
	copy(result, s.stockTransactions)
	slices.SortFunc(result, func(a, b domain.StockTransaction) int {
		return b.Date.Compare(a.Date)
	})
	return result, nil
}

// ---- users ----

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	if user.Username == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidInput
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

// ---- helpers ----

func sortedCategories(byID map[string]domain.Category) []domain.Category {
	categories := make([]domain.Category, 0, len(byID))
	for _, category := range byID {
		categories = append(categories, category)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return strings.Compare(a.Name, b.Name)
	})
	return categories
}

func cloneSet(set domain.ProductSet) domain.ProductSet {
	copySet := set
	copySet.Items = make([]domain.SetItem, len(set.Items))
	copy(copySet.Items, set.Items)
	return copySet
}

func cloneSale(sale domain.Sale) domain.Sale {
	copySale := sale
	copySale.Items = make([]domain.SaleItem, len(sale.Items))
	copy(copySale.Items, sale.Items)
	return copySale
}

func cloneReturn(ret domain.Return) domain.Return {
	copyReturn := ret
	copyReturn.Items = make([]domain.SaleItem, len(ret.Items))
	copy(copyReturn.Items, ret.Items)
	return copyReturn
}
