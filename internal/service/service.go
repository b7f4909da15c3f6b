package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"tillbook/backend/internal/cache"
	"tillbook/backend/internal/domain"
	"tillbook/backend/internal/store"
)

const reportCacheTTL = 2 * time.Minute

// Service implements the transaction engine on top of a Repository. Every
// money movement goes through AdjustBalance with relative deltas, and every
// reversal recomputes the inverse from the stored record, never from the
// current request.
type Service struct {
	repo    store.Repository
	reports cache.ReportCache
	now     func() time.Time
}

func New(repo store.Repository, reports cache.ReportCache) *Service {
	if reports == nil {
		reports = cache.NewNoopReportCache()
	}
	return &Service{
		repo:    repo,
		reports: reports,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ---- categories ----

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreate) (*domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", store.ErrInvalidInput)
	}
	return s.repo.CreateCategory(ctx, domain.Category{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: s.now(),
	})
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) UpdateCategory(ctx context.Context, id string, req domain.CategoryCreate) (*domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", store.ErrInvalidInput)
	}
	return s.repo.UpdateCategory(ctx, id, name)
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	return s.repo.DeleteCategory(ctx, id)
}

// ---- expense categories ----

func (s *Service) CreateExpenseCategory(ctx context.Context, req domain.CategoryCreate) (*domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", store.ErrInvalidInput)
	}
	return s.repo.CreateExpenseCategory(ctx, domain.Category{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: s.now(),
	})
}

func (s *Service) ListExpenseCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListExpenseCategories(ctx)
}

func (s *Service) UpdateExpenseCategory(ctx context.Context, id string, req domain.CategoryCreate) (*domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", store.ErrInvalidInput)
	}
	return s.repo.UpdateExpenseCategory(ctx, id, name)
}

func (s *Service) DeleteExpenseCategory(ctx context.Context, id string) error {
	return s.repo.DeleteExpenseCategory(ctx, id)
}

// ---- products ----

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreate) (*domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", store.ErrInvalidInput)
	}
	if !domain.IsValidUnit(req.Unit) {
		return nil, fmt.Errorf("%w: unknown unit %q", store.ErrInvalidInput, req.Unit)
	}
	category, err := s.repo.GetCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", req.CategoryID, err)
	}

	now := s.now()
	return s.repo.CreateProduct(ctx, domain.Product{
		ID:             uuid.NewString(),
		Name:           name,
		CategoryID:     category.ID,
		CategoryName:   category.Name,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		CostPrice:      req.CostPrice,
		RetailPrice:    req.RetailPrice,
		WholesalePrice: req.WholesalePrice,
		SupplierName:   strings.TrimSpace(req.SupplierName),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdate) (*domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: product name is required", store.ErrInvalidInput)
		}
		product.Name = name
	}
	if req.CategoryID != nil && *req.CategoryID != product.CategoryID {
		category, err := s.repo.GetCategory(ctx, *req.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", *req.CategoryID, err)
		}
		product.CategoryID = category.ID
		product.CategoryName = category.Name
	}
	if req.Quantity != nil {
		product.Quantity = *req.Quantity
	}
	if req.Unit != nil {
		if !domain.IsValidUnit(*req.Unit) {
			return nil, fmt.Errorf("%w: unknown unit %q", store.ErrInvalidInput, *req.Unit)
		}
		product.Unit = *req.Unit
	}
	if req.CostPrice != nil {
		product.CostPrice = *req.CostPrice
	}
	if req.RetailPrice != nil {
		product.RetailPrice = *req.RetailPrice
	}
	if req.WholesalePrice != nil {
		product.WholesalePrice = *req.WholesalePrice
	}
	if req.SupplierName != nil {
		product.SupplierName = strings.TrimSpace(*req.SupplierName)
	}

	return s.repo.UpdateProduct(ctx, *product)
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.repo.DeleteProduct(ctx, id)
}

// ---- product sets ----

func (s *Service) CreateSet(ctx context.Context, req domain.ProductSetCreate) (*domain.ProductSet, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: set name is required", store.ErrInvalidInput)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: a set needs at least one item", store.ErrInvalidInput)
	}

	items := make([]domain.SetItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: set item quantity must be positive", store.ErrInvalidInput)
		}
		product, err := s.repo.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, err)
		}
		items = append(items, domain.SetItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
		})
	}

	return s.repo.CreateSet(ctx, domain.ProductSet{
		ID:        uuid.NewString(),
		Name:      name,
		Items:     items,
		CreatedAt: s.now(),
	})
}

func (s *Service) ListSets(ctx context.Context) ([]domain.ProductSet, error) {
	return s.repo.ListSets(ctx)
}

func (s *Service) GetSet(ctx context.Context, id string) (*domain.ProductSet, error) {
	return s.repo.GetSet(ctx, id)
}

func (s *Service) DeleteSet(ctx context.Context, id string) error {
	return s.repo.DeleteSet(ctx, id)
}

// ---- sales ----

// lineDelta is a flat per-product stock movement. Sale items are resolved
// into these once at write time; the same list, mirrored, drives returns, so
// set definitions can change between sale and return without skewing stock.
type lineDelta struct {
	productID string
	quantity  float64
}

func (s *Service) resolveLineDeltas(ctx context.Context, items []domain.SaleItem) []lineDelta {
	deltas := make([]lineDelta, 0, len(items))
	for _, item := range items {
		switch {
		case item.ProductID != "":
			deltas = append(deltas, lineDelta{productID: item.ProductID, quantity: item.Quantity})
		case item.SetID != "":
			set, err := s.repo.GetSet(ctx, item.SetID)
			if err != nil {
				log.Printf("[service] set %s not found while resolving line items, skipping stock movement", item.SetID)
				continue
			}
			for _, component := range set.Items {
				deltas = append(deltas, lineDelta{
					productID: component.ProductID,
					quantity:  component.Quantity * item.Quantity,
				})
			}
		}
	}
	return deltas
}

// applyStockDeltas adjusts product quantities by sign*delta. Products that
// have since been deleted are skipped: the sale or return record stays
// intact, only the stock movement for the missing product is dropped.
func (s *Service) applyStockDeltas(ctx context.Context, deltas []lineDelta, sign float64) error {
	for _, d := range deltas {
		err := s.repo.AdjustProductQuantity(ctx, d.productID, sign*d.quantity)
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("[service] product %s not found while adjusting stock, skipping", d.productID)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreate) (*domain.Sale, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: a sale needs at least one item", store.ErrInvalidInput)
	}
	if !domain.IsValidSaleType(req.SaleType) {
		return nil, fmt.Errorf("%w: unknown sale type %q", store.ErrInvalidInput, req.SaleType)
	}
	if !domain.IsValidPaymentMethod(req.PaymentMethod) {
		return nil, fmt.Errorf("%w: unknown payment method %q", store.ErrInvalidInput, req.PaymentMethod)
	}
	paymentType := req.PaymentType
	if paymentType == "" {
		paymentType = domain.PaymentTypeFull
	}
	if paymentType != domain.PaymentTypeFull && paymentType != domain.PaymentTypeCredit {
		return nil, fmt.Errorf("%w: unknown payment type %q", store.ErrInvalidInput, paymentType)
	}
	if req.DiscountType != "" && !domain.IsValidDiscountType(req.DiscountType) {
		return nil, fmt.Errorf("%w: unknown discount type %q", store.ErrInvalidInput, req.DiscountType)
	}

	var subtotal float64
	for _, item := range req.Items {
		subtotal += item.Total
	}

	var discountAmount float64
	switch req.DiscountType {
	case domain.DiscountTypePercentage:
		discountAmount = subtotal * req.DiscountValue / 100
	case domain.DiscountTypeAmount:
		discountAmount = req.DiscountValue
	}
	total := subtotal - discountAmount

	var amountPaid, balanceAmount float64
	if paymentType == domain.PaymentTypeCredit {
		if req.AmountPaid != nil {
			amountPaid = *req.AmountPaid
		}
		balanceAmount = total - amountPaid
	} else {
		amountPaid = total
	}

	now := s.now()
	date := now
	if req.Date != nil {
		date = req.Date.UTC()
	}

	sale := domain.Sale{
		ID:             uuid.NewString(),
		SaleType:       req.SaleType,
		PaymentType:    paymentType,
		CustomerName:   strings.TrimSpace(req.CustomerName),
		CustomerPhone:  strings.TrimSpace(req.CustomerPhone),
		Items:          req.Items,
		Subtotal:       subtotal,
		DiscountType:   req.DiscountType,
		DiscountValue:  req.DiscountValue,
		DiscountAmount: discountAmount,
		Total:          total,
		PaymentMethod:  req.PaymentMethod,
		AmountPaid:     amountPaid,
		BalanceAmount:  balanceAmount,
		CashReceived:   req.CashReceived,
		GPayReturn:     req.GPayReturn,
		Date:           date,
		CreatedAt:      now,
	}

	deltas := s.resolveLineDeltas(ctx, sale.Items)

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return nil, err
	}
	if err := s.applyStockDeltas(ctx, deltas, -1); err != nil {
		return nil, err
	}
	if amountPaid != 0 {
		if _, err := s.adjustBalanceFor(ctx, sale.PaymentMethod, amountPaid); err != nil {
			return nil, err
		}
	}
	if req.GPayReturn > 0 {
		if err := s.recordGPayReturn(ctx, created.ID, req.GPayReturn, date); err != nil {
			return nil, err
		}
	}

	s.invalidateReports(ctx, date)
	log.Printf("[service] sale %s recorded: %s %s total=%.2f paid=%.2f", created.ID, created.SaleType, created.PaymentMethod, created.Total, created.AmountPaid)
	return created, nil
}

// recordGPayReturn books electronic change handed back on a cash sale as an
// expense under the well-known category, paid from cash. The category is
// created on first use.
func (s *Service) recordGPayReturn(ctx context.Context, saleID string, amount float64, date time.Time) error {
	category, err := s.repo.FindExpenseCategoryByName(ctx, domain.GPayReturnsCategory)
	if errors.Is(err, store.ErrNotFound) {
		category, err = s.repo.CreateExpenseCategory(ctx, domain.Category{
			ID:        uuid.NewString(),
			Name:      domain.GPayReturnsCategory,
			CreatedAt: s.now(),
		})
	}
	if err != nil {
		return err
	}

	_, err = s.repo.CreateExpense(ctx, domain.Expense{
		ID:            uuid.NewString(),
		CategoryID:    category.ID,
		CategoryName:  category.Name,
		Amount:        amount,
		PaymentSource: domain.PaymentMethodCash,
		Description:   "GPay return for sale " + saleID,
		Date:          date,
		CreatedAt:     s.now(),
	})
	if err != nil {
		return err
	}
	_, err = s.repo.AdjustBalance(ctx, -amount, 0)
	return err
}

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx)
}

func (s *Service) ListCreditSales(ctx context.Context) ([]domain.Sale, error) {
	return s.repo.ListCreditSales(ctx)
}

func (s *Service) UpdateSalePayment(ctx context.Context, id string, req domain.SalePaymentUpdate) (*domain.Sale, error) {
	if !domain.IsValidPaymentMethod(req.PaymentMethod) {
		return nil, fmt.Errorf("%w: unknown payment method %q", store.ErrInvalidInput, req.PaymentMethod)
	}
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}

	// The incremental receipt is the difference between the new and the
	// stored cumulative figure. The new fields are stored as supplied; the
	// drawer only moves when money actually came in.
	receivedNow := req.AmountPaid - sale.AmountPaid
	updated, err := s.repo.UpdateSalePayment(ctx, id, req.AmountPaid, req.BalanceAmount)
	if err != nil {
		return nil, err
	}
	if receivedNow > 0 {
		if _, err := s.adjustBalanceFor(ctx, req.PaymentMethod, receivedNow); err != nil {
			return nil, err
		}
	}
	log.Printf("[service] sale %s payment updated: paid=%.2f balance=%.2f received_now=%.2f", id, req.AmountPaid, req.BalanceAmount, receivedNow)
	return updated, nil
}

// ---- returns ----

func (s *Service) CreateReturn(ctx context.Context, req domain.ReturnCreate) (*domain.Return, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: a return needs at least one item", store.ErrInvalidInput)
	}
	if !domain.IsValidPaymentMethod(req.RefundMethod) {
		return nil, fmt.Errorf("%w: unknown refund method %q", store.ErrInvalidInput, req.RefundMethod)
	}
	sale, err := s.repo.GetSale(ctx, req.SaleID)
	if err != nil {
		return nil, fmt.Errorf("sale %s: %w", req.SaleID, err)
	}

	var returnedTotal float64
	for _, item := range req.Items {
		returnedTotal += item.Total
	}

	// On a partially paid credit sale only the paid fraction of the returned
	// value is refunded; the rest silently shrinks the customer's debt.
	refund := returnedTotal
	if sale.PaymentType == domain.PaymentTypeCredit && sale.Total > 0 && sale.AmountPaid > 0 && sale.AmountPaid < sale.Total {
		refund = returnedTotal * (sale.AmountPaid / sale.Total)
	}

	now := s.now()
	date := now
	if req.Date != nil {
		date = req.Date.UTC()
	}

	ret := domain.Return{
		ID:           uuid.NewString(),
		SaleID:       sale.ID,
		Items:        req.Items,
		RefundAmount: refund,
		RefundMethod: req.RefundMethod,
		Reason:       strings.TrimSpace(req.Reason),
		Date:         date,
		CreatedAt:    now,
	}

	deltas := s.resolveLineDeltas(ctx, ret.Items)

	created, err := s.repo.CreateReturn(ctx, ret)
	if err != nil {
		return nil, err
	}
	if err := s.applyStockDeltas(ctx, deltas, +1); err != nil {
		return nil, err
	}
	if refund != 0 {
		if _, err := s.adjustBalanceFor(ctx, req.RefundMethod, -refund); err != nil {
			return nil, err
		}
	}

	s.invalidateReports(ctx, date)
	log.Printf("[service] return %s recorded for sale %s: refund=%.2f via %s", created.ID, sale.ID, refund, req.RefundMethod)
	return created, nil
}

func (s *Service) ListReturns(ctx context.Context) ([]domain.Return, error) {
	return s.repo.ListReturns(ctx)
}

// ---- expenses ----

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreate) (*domain.Expense, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: expense amount must be positive", store.ErrInvalidInput)
	}
	if !domain.IsValidPaymentMethod(req.PaymentSource) {
		return nil, fmt.Errorf("%w: unknown payment source %q", store.ErrInvalidInput, req.PaymentSource)
	}
	category, err := s.repo.GetExpenseCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("expense category %s: %w", req.CategoryID, err)
	}

	// The drawer is checked before anything is written. Expenses are the one
	// operation that refuses to overdraw a balance.
	balance, err := s.repo.GetBalance(ctx)
	if err != nil {
		return nil, err
	}
	available := balance.Cash
	if req.PaymentSource == domain.PaymentMethodGPay {
		available = balance.GPay
	}
	if available < req.Amount {
		return nil, fmt.Errorf("%w: %s has %.2f, need %.2f", store.ErrInsufficientBalance, req.PaymentSource, available, req.Amount)
	}

	now := s.now()
	date := now
	if req.Date != nil {
		date = req.Date.UTC()
	}

	created, err := s.repo.CreateExpense(ctx, domain.Expense{
		ID:            uuid.NewString(),
		CategoryID:    category.ID,
		CategoryName:  category.Name,
		Amount:        req.Amount,
		PaymentSource: req.PaymentSource,
		Description:   strings.TrimSpace(req.Description),
		Date:          date,
		CreatedAt:     now,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.adjustBalanceFor(ctx, req.PaymentSource, -req.Amount); err != nil {
		return nil, err
	}

	s.invalidateReports(ctx, date)
	log.Printf("[service] expense %s recorded: %s %.2f from %s", created.ID, category.Name, req.Amount, req.PaymentSource)
	return created, nil
}

func (s *Service) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	return s.repo.ListExpenses(ctx)
}

func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	expense, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return err
	}
	// Exact inverse of the stored record: credit the amount back to the
	// source it was paid from.
	if _, err := s.adjustBalanceFor(ctx, expense.PaymentSource, expense.Amount); err != nil {
		return err
	}
	s.invalidateReports(ctx, expense.Date)
	log.Printf("[service] expense %s deleted, %.2f credited back to %s", id, expense.Amount, expense.PaymentSource)
	return nil
}

// ---- money transfers ----

// transferDeltas returns the (cash, gpay) movement for one unit amount of a
// transfer kind. The customer-facing conversions are the drawer's mirror
// image of the shop-internal ones: when a customer hands cash and receives
// GPay, the drawer gains cash and loses GPay.
func transferDeltas(kind string, amount float64) (cashDelta float64, gpayDelta float64) {
	switch kind {
	case domain.TransferCashToGPay:
		return -amount, amount
	case domain.TransferGPayToCash:
		return amount, -amount
	case domain.TransferCustomerCashToGPay:
		return amount, -amount
	case domain.TransferCustomerGPayToCash:
		return -amount, amount
	case domain.TransferCashWithdrawal:
		return -amount, 0
	case domain.TransferGPayWithdrawal:
		return 0, -amount
	case domain.TransferCashDeposit:
		return amount, 0
	case domain.TransferGPayDeposit:
		return 0, amount
	}
	return 0, 0
}

func (s *Service) CreateMoneyTransfer(ctx context.Context, req domain.MoneyTransferCreate) (*domain.MoneyTransfer, error) {
	if !domain.IsValidTransferType(req.TransferType) {
		return nil, fmt.Errorf("%w: unknown transfer type %q", store.ErrInvalidInput, req.TransferType)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: transfer amount must be positive", store.ErrInvalidInput)
	}

	now := s.now()
	date := now
	if req.Date != nil {
		date = req.Date.UTC()
	}

	created, err := s.repo.CreateMoneyTransfer(ctx, domain.MoneyTransfer{
		ID:           uuid.NewString(),
		TransferType: req.TransferType,
		Amount:       req.Amount,
		Description:  strings.TrimSpace(req.Description),
		Date:         date,
		CreatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	cashDelta, gpayDelta := transferDeltas(req.TransferType, req.Amount)
	if _, err := s.repo.AdjustBalance(ctx, cashDelta, gpayDelta); err != nil {
		return nil, err
	}
	log.Printf("[service] transfer %s recorded: %s %.2f", created.ID, req.TransferType, req.Amount)
	return created, nil
}

func (s *Service) ListMoneyTransfers(ctx context.Context) ([]domain.MoneyTransfer, error) {
	return s.repo.ListMoneyTransfers(ctx)
}

func (s *Service) DeleteMoneyTransfer(ctx context.Context, id string) error {
	transfer, err := s.repo.GetMoneyTransfer(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteMoneyTransfer(ctx, id); err != nil {
		return err
	}
	// Negate the stored kind's deltas so create+delete round-trips to the
	// exact prior balance.
	cashDelta, gpayDelta := transferDeltas(transfer.TransferType, transfer.Amount)
	if _, err := s.repo.AdjustBalance(ctx, -cashDelta, -gpayDelta); err != nil {
		return err
	}
	log.Printf("[service] transfer %s deleted, %s %.2f reversed", id, transfer.TransferType, transfer.Amount)
	return nil
}

// ---- balance ----

func (s *Service) GetBalance(ctx context.Context) (*domain.Balance, error) {
	return s.repo.GetBalance(ctx)
}

func (s *Service) adjustBalanceFor(ctx context.Context, method string, amount float64) (*domain.Balance, error) {
	if method == domain.PaymentMethodGPay {
		return s.repo.AdjustBalance(ctx, 0, amount)
	}
	return s.repo.AdjustBalance(ctx, amount, 0)
}

// ---- restock ----

func (s *Service) RestockProduct(ctx context.Context, productID string, req domain.RestockRequest) (*domain.Product, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: restock quantity must be positive", store.ErrInvalidInput)
	}
	if req.AmountPaid < 0 {
		return nil, fmt.Errorf("%w: amount paid cannot be negative", store.ErrInvalidInput)
	}
	paymentSource := req.PaymentSource
	if paymentSource == "" {
		paymentSource = domain.PaymentMethodCash
	}
	if !domain.IsValidPaymentMethod(paymentSource) {
		return nil, fmt.Errorf("%w: unknown payment source %q", store.ErrInvalidInput, paymentSource)
	}

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	costPrice := product.CostPrice
	if req.CostPrice != nil {
		costPrice = *req.CostPrice
	}

	// Supplier debt is only tracked when the restock names a supplier; a
	// plain quantity top-up owes nobody anything.
	supplierName := strings.TrimSpace(req.SupplierName)
	var balanceOwed float64
	if supplierName != "" {
		balanceOwed = req.Quantity*costPrice - req.AmountPaid
		if balanceOwed < 0 {
			balanceOwed = 0
		}
	}

	if err := s.repo.AdjustProductQuantity(ctx, productID, req.Quantity); err != nil {
		return nil, err
	}

	product, err = s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	product.CostPrice = costPrice
	if supplierName != "" {
		product.SupplierName = supplierName
		if balanceOwed > 0 {
			product.SupplierBalance += balanceOwed
		}
	}
	updated, err := s.repo.UpdateProduct(ctx, *product)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.CreateStockTransaction(ctx, domain.StockTransaction{
		ID:            uuid.NewString(),
		ProductID:     updated.ID,
		ProductName:   updated.Name,
		Quantity:      req.Quantity,
		CostPrice:     costPrice,
		SupplierName:  supplierName,
		AmountPaid:    req.AmountPaid,
		BalanceAmount: balanceOwed,
		PaymentSource: paymentSource,
		Date:          s.now(),
	}); err != nil {
		return nil, err
	}

	// A paid amount comes straight out of the drawer. Unlike expenses this
	// is not guarded: stock arriving is recorded even if it overdraws.
	if req.AmountPaid > 0 {
		if _, err := s.adjustBalanceFor(ctx, paymentSource, -req.AmountPaid); err != nil {
			return nil, err
		}
	}

	log.Printf("[service] product %s restocked: +%.2f %s, paid %.2f via %s", updated.ID, req.Quantity, updated.Unit, req.AmountPaid, paymentSource)
	return updated, nil
}

func (s *Service) ListStockTransactions(ctx context.Context) ([]domain.StockTransaction, error) {
	return s.repo.ListStockTransactions(ctx)
}

// ---- reports ----

func (s *Service) DailyReport(ctx context.Context, dateStr string) (*domain.DailyReport, error) {
	day, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidInput)
	}

	key := dailyReportKey(day)
	if payload, ok := s.reports.Get(ctx, key); ok {
		var cached domain.DailyReport
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
	}

	from := day
	to := day.AddDate(0, 0, 1)
	sales, err := s.repo.ListSalesBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	expenses, err := s.repo.ListExpensesBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	report := &domain.DailyReport{
		Date:         dateStr,
		Sales:        summarizeSales(sales),
		Expenses:     summarizeExpenses(expenses),
		Cost:         s.costOfGoods(ctx, sales),
		SalesList:    sales,
		ExpensesList: expenses,
	}
	report.Profit = report.Sales.Total - report.Cost - report.Expenses.Total

	if payload, err := json.Marshal(report); err == nil {
		s.reports.Set(ctx, key, payload, reportCacheTTL)
	}
	return report, nil
}

func (s *Service) MonthlyReport(ctx context.Context, year int, month int) (*domain.MonthlyReport, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month must be 1-12", store.ErrInvalidInput)
	}

	key := monthlyReportKey(year, month)
	if payload, ok := s.reports.Get(ctx, key); ok {
		var cached domain.MonthlyReport
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	sales, err := s.repo.ListSalesBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	expenses, err := s.repo.ListExpensesBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	report := &domain.MonthlyReport{
		Year:     year,
		Month:    month,
		Sales:    summarizeSales(sales),
		Expenses: summarizeExpenses(expenses),
		Cost:     s.costOfGoods(ctx, sales),
	}
	report.Profit = report.Sales.Total - report.Cost - report.Expenses.Total

	if payload, err := json.Marshal(report); err == nil {
		s.reports.Set(ctx, key, payload, reportCacheTTL)
	}
	return report, nil
}

func summarizeSales(sales []domain.Sale) domain.SalesSummary {
	var summary domain.SalesSummary
	for _, sale := range sales {
		summary.Total += sale.Total
		if sale.SaleType == domain.SaleTypeWholesale {
			summary.Wholesale += sale.Total
		} else {
			summary.Retail += sale.Total
		}
		summary.Count++
	}
	return summary
}

func summarizeExpenses(expenses []domain.Expense) domain.ExpenseSummary {
	summary := domain.ExpenseSummary{ByCategory: map[string]float64{}}
	for _, expense := range expenses {
		summary.Total += expense.Amount
		summary.ByCategory[expense.CategoryName] += expense.Amount
	}
	return summary
}

// costOfGoods values sold quantities at current product cost prices. Products
// deleted since the sale contribute nothing.
func (s *Service) costOfGoods(ctx context.Context, sales []domain.Sale) float64 {
	var cost float64
	for _, sale := range sales {
		for _, d := range s.resolveLineDeltas(ctx, sale.Items) {
			product, err := s.repo.GetProduct(ctx, d.productID)
			if err != nil {
				continue
			}
			cost += product.CostPrice * d.quantity
		}
	}
	return cost
}

func (s *Service) SupplierReport(ctx context.Context) ([]domain.SupplierSummary, error) {
	transactions, err := s.repo.ListStockTransactions(ctx)
	if err != nil {
		return nil, err
	}

	byName := map[string]*domain.SupplierSummary{}
	order := make([]string, 0)
	for _, tx := range transactions {
		name := tx.SupplierName
		if name == "" {
			continue
		}
		summary, exists := byName[name]
		if !exists {
			summary = &domain.SupplierSummary{SupplierName: name}
			byName[name] = summary
			order = append(order, name)
		}
		summary.TotalPurchase += tx.Quantity * tx.CostPrice
		summary.TotalPaid += tx.AmountPaid
		summary.TotalBalance += tx.BalanceAmount
		summary.Transactions++
	}

	result := make([]domain.SupplierSummary, 0, len(order))
	for _, name := range order {
		result = append(result, *byName[name])
	}
	return result, nil
}

func (s *Service) InventoryTotalValue(ctx context.Context) (*domain.InventoryValue, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	value := &domain.InventoryValue{TotalItems: len(products)}
	for _, p := range products {
		value.TotalCostValue += p.Quantity * p.CostPrice
		value.TotalRetailValue += p.Quantity * p.RetailPrice
		value.TotalWholesaleValue += p.Quantity * p.WholesalePrice
	}
	return value, nil
}

func dailyReportKey(day time.Time) string {
	return "report:daily:" + day.Format("2006-01-02")
}

func monthlyReportKey(year int, month int) string {
	return fmt.Sprintf("report:monthly:%04d-%02d", year, month)
}

func (s *Service) invalidateReports(ctx context.Context, date time.Time) {
	s.reports.Invalidate(ctx,
		dailyReportKey(date),
		monthlyReportKey(date.Year(), int(date.Month())),
	)
}
