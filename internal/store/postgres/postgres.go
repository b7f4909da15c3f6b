package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tillbook/backend/internal/domain"
	"tillbook/backend/internal/store"
)

// Store persists each collection as a (id, doc jsonb) table. Records travel
// as whole JSON documents; the few fields that need server-side arithmetic
// or filtering (quantities, balances, dates) are reached through jsonb
// operators so balance and stock adjustments stay single atomic statements.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Println("[postgres] connected")
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

var docTables = []string{
	"categories",
	"expense_categories",
	"products",
	"product_sets",
	"sales",
	"returns",
	"expenses",
	"money_transfers",
	"stock_transactions",
	"balances",
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, table := range docTables {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			doc JSONB NOT NULL
		)`, table)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS users (
		username TEXT PRIMARY KEY,
		doc JSONB NOT NULL
	)`); err != nil {
		return fmt.Errorf("create table users: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ---- generic document helpers ----

func (s *Store) insertDoc(ctx context.Context, table string, id string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2)`, table)
	if _, err := s.db.ExecContext(ctx, stmt, id, doc); err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) getDoc(ctx context.Context, table string, id string, v any) error {
	stmt := fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, table)
	var doc []byte
	if err := s.db.QueryRowContext(ctx, stmt, id).Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(doc, v)
}

func (s *Store) replaceDoc(ctx context.Context, table string, id string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf(`UPDATE %s SET doc = $2 WHERE id = $1`, table)
	res, err := s.db.ExecContext(ctx, stmt, id, doc)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) deleteDoc(ctx context.Context, table string, id string) error {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table)
	res, err := s.db.ExecContext(ctx, stmt, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func listDocs[T any](ctx context.Context, s *Store, query string, args ...any) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]T, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

// ---- categories ----

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if err := s.insertDoc(ctx, "categories", category.ID, category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return listDocs[domain.Category](ctx, s, `SELECT doc FROM categories ORDER BY doc->>'name'`)
}

func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	var category domain.Category
	if err := s.getDoc(ctx, "categories", id, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id string, name string) (*domain.Category, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Name = name
	if err := s.replaceDoc(ctx, "categories", id, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.deleteDoc(ctx, "categories", id)
}

// ---- expense categories ----

func (s *Store) CreateExpenseCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if err := s.insertDoc(ctx, "expense_categories", category.ID, category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *Store) ListExpenseCategories(ctx context.Context) ([]domain.Category, error) {
	return listDocs[domain.Category](ctx, s, `SELECT doc FROM expense_categories ORDER BY doc->>'name'`)
}

func (s *Store) GetExpenseCategory(ctx context.Context, id string) (*domain.Category, error) {
	var category domain.Category
	if err := s.getDoc(ctx, "expense_categories", id, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *Store) FindExpenseCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM expense_categories WHERE doc->>'name' = $1 LIMIT 1`, name).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var category domain.Category
	if err := json.Unmarshal(doc, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *Store) UpdateExpenseCategory(ctx context.Context, id string, name string) (*domain.Category, error) {
	category, err := s.GetExpenseCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Name = name
	if err := s.replaceDoc(ctx, "expense_categories", id, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *Store) DeleteExpenseCategory(ctx context.Context, id string) error {
	return s.deleteDoc(ctx, "expense_categories", id)
}

// ---- products ----

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := s.insertDoc(ctx, "products", product.ID, product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return listDocs[domain.Product](ctx, s,
		`SELECT doc FROM products ORDER BY doc->>'category_name', doc->>'name'`)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	if err := s.getDoc(ctx, "products", id, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	product.UpdatedAt = time.Now().UTC()
	if err := s.replaceDoc(ctx, "products", product.ID, product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Store) AdjustProductQuantity(ctx context.Context, id string, delta float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET doc = jsonb_set(
			jsonb_set(doc, '{quantity}', to_jsonb((doc->>'quantity')::numeric + $2)),
			'{updated_at}', to_jsonb($3::text))
		WHERE id = $1`,
		id, delta, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.deleteDoc(ctx, "products", id)
}

// ---- sets ----

func (s *Store) CreateSet(ctx context.Context, set domain.ProductSet) (*domain.ProductSet, error) {
	if err := s.insertDoc(ctx, "product_sets", set.ID, set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (s *Store) ListSets(ctx context.Context) ([]domain.ProductSet, error) {
	return listDocs[domain.ProductSet](ctx, s, `SELECT doc FROM product_sets ORDER BY doc->>'name'`)
}

func (s *Store) GetSet(ctx context.Context, id string) (*domain.ProductSet, error) {
	var set domain.ProductSet
	if err := s.getDoc(ctx, "product_sets", id, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (s *Store) DeleteSet(ctx context.Context, id string) error {
	return s.deleteDoc(ctx, "product_sets", id)
}

// ---- sales ----

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if err := s.insertDoc(ctx, "sales", sale.ID, sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return listDocs[domain.Sale](ctx, s, `SELECT doc FROM sales ORDER BY doc->>'date' DESC`)
}

func (s *Store) ListSalesBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	return listDocs[domain.Sale](ctx, s, `
		SELECT doc FROM sales
		WHERE (doc->>'date')::timestamptz >= $1 AND (doc->>'date')::timestamptz < $2
		ORDER BY doc->>'date' DESC`,
		from, to)
}

func (s *Store) ListCreditSales(ctx context.Context) ([]domain.Sale, error) {
	return listDocs[domain.Sale](ctx, s, `
		SELECT doc FROM sales
		WHERE (doc->>'balance_amount')::numeric > 0
		ORDER BY doc->>'date' DESC`)
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	if err := s.getDoc(ctx, "sales", id, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) UpdateSalePayment(ctx context.Context, id string, amountPaid float64, balanceAmount float64) (*domain.Sale, error) {
	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	sale.AmountPaid = amountPaid
	sale.BalanceAmount = balanceAmount
	if err := s.replaceDoc(ctx, "sales", id, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// ---- returns ----

func (s *Store) CreateReturn(ctx context.Context, ret domain.Return) (*domain.Return, error) {
	if err := s.insertDoc(ctx, "returns", ret.ID, ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (s *Store) ListReturns(ctx context.Context) ([]domain.Return, error) {
	return listDocs[domain.Return](ctx, s, `SELECT doc FROM returns ORDER BY doc->>'date' DESC`)
}

// ---- expenses ----

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if err := s.insertDoc(ctx, "expenses", expense.ID, expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

func (s *Store) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	return listDocs[domain.Expense](ctx, s, `SELECT doc FROM expenses ORDER BY doc->>'date' DESC`)
}

func (s *Store) ListExpensesBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	return listDocs[domain.Expense](ctx, s, `
		SELECT doc FROM expenses
		WHERE (doc->>'date')::timestamptz >= $1 AND (doc->>'date')::timestamptz < $2
		ORDER BY doc->>'date' DESC`,
		from, to)
}

func (s *Store) GetExpense(ctx context.Context, id string) (*domain.Expense, error) {
	var expense domain.Expense
	if err := s.getDoc(ctx, "expenses", id, &expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	return s.deleteDoc(ctx, "expenses", id)
}

// ---- money transfers ----

func (s *Store) CreateMoneyTransfer(ctx context.Context, transfer domain.MoneyTransfer) (*domain.MoneyTransfer, error) {
	if err := s.insertDoc(ctx, "money_transfers", transfer.ID, transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (s *Store) ListMoneyTransfers(ctx context.Context) ([]domain.MoneyTransfer, error) {
	return listDocs[domain.MoneyTransfer](ctx, s, `SELECT doc FROM money_transfers ORDER BY doc->>'date' DESC`)
}

func (s *Store) GetMoneyTransfer(ctx context.Context, id string) (*domain.MoneyTransfer, error) {
	var transfer domain.MoneyTransfer
	if err := s.getDoc(ctx, "money_transfers", id, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (s *Store) DeleteMoneyTransfer(ctx context.Context, id string) error {
	return s.deleteDoc(ctx, "money_transfers", id)
}

// ---- balance ----

func (s *Store) GetBalance(ctx context.Context) (*domain.Balance, error) {
	return s.AdjustBalance(ctx, 0, 0)
}

// AdjustBalance applies both deltas in one upsert so concurrent movements
// never lose updates. The singleton row is created at zero on first touch.
func (s *Store) AdjustBalance(ctx context.Context, cashDelta float64, gpayDelta float64) (*domain.Balance, error) {
	now := time.Now().UTC()
	seed, err := json.Marshal(domain.Balance{
		ID:        domain.BalanceID,
		Cash:      cashDelta,
		GPay:      gpayDelta,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	var doc []byte
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO balances (id, doc) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = jsonb_set(
			jsonb_set(
				jsonb_set(balances.doc, '{cash}', to_jsonb((balances.doc->>'cash')::numeric + $3)),
				'{gpay}', to_jsonb((balances.doc->>'gpay')::numeric + $4)),
			'{updated_at}', to_jsonb($5::text))
		RETURNING doc`,
		domain.BalanceID, seed, cashDelta, gpayDelta, now.Format(time.RFC3339Nano)).Scan(&doc)
	if err != nil {
		return nil, err
	}

	var balance domain.Balance
	if err := json.Unmarshal(doc, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

// ---- stock transactions ----

func (s *Store) CreateStockTransaction(ctx context.Context, tx domain.StockTransaction) (*domain.StockTransaction, error) {
	if err := s.insertDoc(ctx, "stock_transactions", tx.ID, tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *Store) ListStockTransactions(ctx context.Context) ([]domain.StockTransaction, error) {
	return listDocs[domain.StockTransaction](ctx, s,
		`SELECT doc FROM stock_transactions ORDER BY doc->>'date' DESC`)
}

// ---- users ----

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	doc, err := json.Marshal(userDoc{
		Username:  user.Username,
		Password:  user.Password,
		Role:      user.Role,
		Active:    user.Active,
		CreatedAt: user.CreatedAt,
	})
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (username, doc) VALUES ($1, $2)`, user.Username, doc)
	if isUniqueViolation(err) {
		return store.ErrInvalidInput
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	docs, err := listDocs[userDoc](ctx, s, `SELECT doc FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	users := make([]domain.UserAccount, 0, len(docs))
	for _, d := range docs {
		users = append(users, domain.UserAccount(d))
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET doc = jsonb_set(doc, '{password}', to_jsonb($2::text))
		WHERE username = $1`,
		username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// userDoc gives UserAccount json tags for storage without exposing the
// password hash through the API model.
type userDoc struct {
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
