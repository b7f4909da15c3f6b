package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"tillbook/backend/internal/domain"
	"tillbook/backend/internal/store"
	"tillbook/backend/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.New()
	return New(repo, nil), repo
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func makeProduct(t *testing.T, svc *Service, name string, quantity, cost, retail float64) *domain.Product {
	t.Helper()
	ctx := context.Background()
	category, err := svc.CreateCategory(ctx, domain.CategoryCreate{Name: "General"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	product, err := svc.CreateProduct(ctx, domain.ProductCreate{
		Name:        name,
		CategoryID:  category.ID,
		Quantity:    quantity,
		Unit:        domain.UnitPieces,
		CostPrice:   cost,
		RetailPrice: retail,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func makeExpenseCategory(t *testing.T, svc *Service, name string) *domain.Category {
	t.Helper()
	category, err := svc.CreateExpenseCategory(context.Background(), domain.CategoryCreate{Name: name})
	if err != nil {
		t.Fatalf("create expense category: %v", err)
	}
	return category
}

func saleItem(p *domain.Product, quantity, unitPrice float64) domain.SaleItem {
	return domain.SaleItem{
		ProductID: p.ID,
		Name:      p.Name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Total:     quantity * unitPrice,
	}
}

func TestCreateSaleComputesTotalsAndMovesStockAndCash(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	product := makeProduct(t, svc, "Fan", 10, 40000, 60000)

	sale, err := svc.CreateSale(ctx, domain.SaleCreate{
		SaleType:      domain.SaleTypeRetail,
		Items:         []domain.SaleItem{saleItem(product, 1, 60000)},
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: 5,
		PaymentMethod: domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if !almostEqual(sale.Subtotal, 60000) {
		t.Fatalf("subtotal = %v, want 60000", sale.Subtotal)
	}
	if !almostEqual(sale.DiscountAmount, 3000) {
		t.Fatalf("discount = %v, want 3000", sale.DiscountAmount)
	}
	if !almostEqual(sale.Total, 57000) {
		t.Fatalf("total = %v, want 57000", sale.Total)
	}
	if !almostEqual(sale.AmountPaid, 57000) || !almostEqual(sale.BalanceAmount, 0) {
		t.Fatalf("full sale paid=%v balance=%v, want 57000/0", sale.AmountPaid, sale.BalanceAmount)
	}

	balance, err := svc.GetBalance(ctx)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if !almostEqual(balance.Cash, 57000) || !almostEqual(balance.GPay, 0) {
		t.Fatalf("balance cash=%v gpay=%v, want 57000/0", balance.Cash, balance.GPay)
	}

	got, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if !almostEqual(got.Quantity, 9) {
		t.Fatalf("stock = %v, want 9", got.Quantity)
	}
}

func TestCreditSalePaidPlusBalanceEqualsTotal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	product := makeProduct(t, svc, "Bulb", 50, 60, 100)
	paid := 600.0

	sale, err := svc.CreateSale(ctx, domain.SaleCreate{
		SaleType:      domain.SaleTypeRetail,
		PaymentType:   domain.PaymentTypeCredit,
		CustomerName:  "Ravi",
		Items:         []domain.SaleItem{saleItem(product, 10, 100)},
		PaymentMethod: domain.PaymentMethodCash,
		AmountPaid:    &paid,
	})
	if err != nil {
		t.Fatalf("create credit sale: %v", err)
	}
	if !almostEqual(sale.AmountPaid+sale.BalanceAmount, sale.Total) {
		t.Fatalf("paid %v + balance %v != total %v", sale.AmountPaid, sale.BalanceAmount, sale.Total)
	}
	if !almostEqual(sale.BalanceAmount, 400) {
		t.Fatalf("balance = %v, want 400", sale.BalanceAmount)
	}

	balance, _ := svc.GetBalance(ctx)
	if !almostEqual(balance.Cash, 600) {
		t.Fatalf("cash = %v, want 600 (only the paid portion)", balance.Cash)
	}

	credit, err := svc.ListCreditSales(ctx)
	if err != nil {
		t.Fatalf("list credit sales: %v", err)
	}
	if len(credit) != 1 || credit[0].ID != sale.ID {
		t.Fatalf("credit sales = %v, want the one open sale", credit)
	}

	// Settling the remainder credits exactly the difference.
	updated, err := svc.UpdateSalePayment(ctx, sale.ID, domain.SalePaymentUpdate{
		AmountPaid:    1000,
		BalanceAmount: 0,
		PaymentMethod: domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("update payment: %v", err)
	}
	if !almostEqual(updated.AmountPaid, 1000) || !almostEqual(updated.BalanceAmount, 0) {
		t.Fatalf("updated paid=%v balance=%v, want 1000/0", updated.AmountPaid, updated.BalanceAmount)
	}
	balance, _ = svc.GetBalance(ctx)
	if !almostEqual(balance.Cash, 1000) {
		t.Fatalf("cash = %v after settling, want 1000", balance.Cash)
	}

	credit, _ = svc.ListCreditSales(ctx)
	if len(credit) != 0 {
		t.Fatalf("credit sales after settling = %d, want 0", len(credit))
	}
}

func TestUpdateSalePaymentWithNoNewMoneyLeavesBalanceAlone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	product := makeProduct(t, svc, "Wire", 100, 10, 20)
	paid := 500.0

	sale, err := svc.CreateSale(ctx, domain.SaleCreate{
		SaleType:      domain.SaleTypeRetail,
		PaymentType:   domain.PaymentTypeCredit,
		Items:         []domain.SaleItem{saleItem(product, 50, 20)},
		PaymentMethod: domain.PaymentMethodCash,
		AmountPaid:    &paid,
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	// A correction downwards is stored as supplied but never debits.
	if _, err := svc.UpdateSalePayment(ctx, sale.ID, domain.SalePaymentUpdate{
		AmountPaid:    400,
		BalanceAmount: 600,
		PaymentMethod: domain.PaymentMethodCash,
	}); err != nil {
		t.Fatalf("update payment: %v", err)
	}
	balance, _ := svc.GetBalance(ctx)
	if !almostEqual(balance.Cash, 500) {
		t.Fatalf("cash = %v, want 500 unchanged", balance.Cash)
	}
}

func TestTransferKindsApplyExactDeltasAndDeleteReverses(t *testing.T) {
	cases := []struct {
		kind string
		cash float64
		gpay float64
	}{
		{domain.TransferCashToGPay, -100, 100},
		{domain.TransferGPayToCash, 100, -100},
		{domain.TransferCustomerCashToGPay, 100, -100},
		{domain.TransferCustomerGPayToCash, -100, 100},
		{domain.TransferCashWithdrawal, -100, 0},
		{domain.TransferGPayWithdrawal, 0, -100},
		{domain.TransferCashDeposit, 100, 0},
		{domain.TransferGPayDeposit, 0, 100},
	}

	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			svc, repo := newTestService(t)
			ctx := context.Background()
			if _, err := repo.AdjustBalance(ctx, 1000, 1000); err != nil {
				t.Fatalf("seed balance: %v", err)
			}

			transfer, err := svc.CreateMoneyTransfer(ctx, domain.MoneyTransferCreate{
				TransferType: tc.kind,
				Amount:       100,
			})
			if err != nil {
				t.Fatalf("create transfer: %v", err)
			}

			balance, _ := svc.GetBalance(ctx)
			if !almostEqual(balance.Cash, 1000+tc.cash) || !almostEqual(balance.GPay, 1000+tc.gpay) {
				t.Fatalf("after %s: cash=%v gpay=%v, want %v/%v",
					tc.kind, balance.Cash, balance.GPay, 1000+tc.cash, 1000+tc.gpay)
			}

			if err := svc.DeleteMoneyTransfer(ctx, transfer.ID); err != nil {
				t.Fatalf("delete transfer: %v", err)
			}
			balance, _ = svc.GetBalance(ctx)
			if !almostEqual(balance.Cash, 1000) || !almostEqual(balance.GPay, 1000) {
				t.Fatalf("after delete: cash=%v gpay=%v, want 1000/1000", balance.Cash, balance.GPay)
			}
		})
	}
}

func TestInvalidTransferKindRejected(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateMoneyTransfer(context.Background(), domain.MoneyTransferCreate{
		TransferType: "cash_to_bank",
		Amount:       100,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSaleWithSetThenFullReturnNetsStockToZero(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	bulb := makeProduct(t, svc, "Bulb", 100, 60, 100)
	holder := makeProduct(t, svc, "Holder", 100, 20, 40)

	set, err := svc.CreateSet(ctx, domain.ProductSetCreate{
		Name: "Light Kit",
		Items: []domain.SetItem{
			{ProductID: bulb.ID, Quantity: 2},
			{ProductID: holder.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create set: %v", err)
	}

	item := domain.SaleItem{SetID: set.ID, Name: set.Name, Quantity: 3, UnitPrice: 240, Total: 720}
	sale, err := svc.CreateSale(ctx, domain.SaleCreate{
		SaleType:      domain.SaleTypeRetail,
		Items:         []domain.SaleItem{item},
		PaymentMethod: domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	gotBulb, _ := svc.GetProduct(ctx, bulb.ID)
	gotHolder, _ := svc.GetProduct(ctx, holder.ID)
	if !almostEqual(gotBulb.Quantity, 94) || !almostEqual(gotHolder.Quantity, 97) {
		t.Fatalf("after sale: bulb=%v holder=%v, want 94/97", gotBulb.Quantity, gotHolder.Quantity)
	}

	if _, err := svc.CreateReturn(ctx, domain.ReturnCreate{
		SaleID:       sale.ID,
		Items:        []domain.SaleItem{item},
		RefundMethod: domain.PaymentMethodCash,
	}); err != nil {
		t.Fatalf("create return: %v", err)
	}

	gotBulb, _ = svc.GetProduct(ctx, bulb.ID)
	gotHolder, _ = svc.GetProduct(ctx, holder.ID)
	if !almostEqual(gotBulb.Quantity, 100) || !almostEqual(gotHolder.Quantity, 100) {
		t.Fatalf("after return: bulb=%v holder=%v, want 100/100", gotBulb.Quantity, gotHolder.Quantity)
	}

	balance, _ := svc.GetBalance(ctx)
	if !almostEqual(balance.Cash, 0) {
		t.Fatalf("cash = %v after full return, want 0", balance.Cash)
	}
}

func TestReturnOnPartiallyPaidCreditSaleProratesRefund(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	product := makeProduct(t, svc, "Switch", 100, 30, 50)
	paid := 400.0

	sale, err := svc.CreateSale(ctx, domain.SaleCreate{
		SaleType:      domain.SaleTypeRetail,
		PaymentType:   domain.PaymentTypeCredit,
		Items:         []domain.SaleItem{saleItem(product, 20, 50)}, // total 1000
		PaymentMethod: domain.PaymentMethodCash,
		AmountPaid:    &paid,
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	ret, err := svc.CreateReturn(ctx, domain.ReturnCreate{
		SaleID:       sale.ID,
		Items:        []domain.SaleItem{saleItem(product, 10, 50)}, // returned value 500
		RefundMethod: domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("create return: %v", err)
	}
	// 500 * (400/1000)
	if !almostEqual(ret.RefundAmount, 200) {
		t.Fatalf("refund = %v, want 200", ret.RefundAmount)
	}

	balance, _ := svc.GetBalance(ctx)
	if !almostEqual(balance.Cash, 200) {
		t.Fatalf("cash = %v, want 400 received - 200 refunded = 200", balance.Cash)
	}
}

func TestReturnOnFullyPaidSaleRefundsFullReturnedValue(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	product := makeProduct(t, svc, "Tape", 100, 5, 10)

	sale, err := svc.CreateSale(ctx, domain.SaleCreate{
		SaleType:      domain.SaleTypeRetail,
		Items:         []domain.SaleItem{saleItem(product, 10, 10)},
		PaymentMethod: domain.PaymentMethodGPay,
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	ret, err := svc.CreateReturn(ctx, domain.ReturnCreate{
		SaleID:       sale.ID,
		Items:        []domain.SaleItem{saleItem(product, 4, 10)},
		RefundMethod: domain.PaymentMethodGPay,
	})
	if err != nil {
		t.Fatalf("create return: %v", err)
	}
	if !almostEqual(ret.RefundAmount, 40) {
		t.Fatalf("refund = %v, want 40", ret.RefundAmount)
	}
	balance, _ := svc.GetBalance(ctx)
	if !almostEqual(balance.GPay, 60) {
		t.Fatalf("gpay = %v, want 60", balance.GPay)
	}
}

func TestExpenseRefusesToOverdraw(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	category := makeExpenseCategory(t, svc, "Rent")

	if _, err := repo.AdjustBalance(ctx, 100, 0); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	_, err := svc.CreateExpense(ctx, domain.ExpenseCreate{
		CategoryID:    category.ID,
		Amount:        500,
		PaymentSource: domain.PaymentMethodCash,
	})
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	// Nothing moved, nothing was written.
	balance, _ := svc.GetBalance(ctx)
	if !almostEqual(balance.Cash, 100) {
		t.Fatalf("cash = %v, want 100 untouched", balance.Cash)
	}
	expenses, _ := svc.ListExpenses(ctx)
	if len(expenses) != 0 {
		t.Fatalf("expenses = %d, want 0", len(expenses))
	}
}

func TestExpenseCreateThenDeleteRoundTripsBalance(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	category := makeExpenseCategory(t, svc, "Transport")

	if _, err := repo.AdjustBalance(ctx, 0, 1000); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	expense, err := svc.CreateExpense(ctx, domain.ExpenseCreate{
		CategoryID:    category.ID,
		Amount:        250,
		PaymentSource: domain.PaymentMethodGPay,
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	balance, _ := svc.GetBalance(ctx)
	if !almostEqual(balance.GPay, 750) {
		t.Fatalf("gpay = %v, want 750", balance.GPay)
	}

	if err := svc.DeleteExpense(ctx, expense.ID); err != nil {
		t.Fatalf("delete expense: %v", err)
	}
	balance, _ = svc.GetBalance(ctx)
	if !almostEqual(balance.GPay, 1000) {
		t.Fatalf("gpay = %v after delete, want 1000", balance.GPay)
	}
}

func TestExpenseRequiresExistingCategory(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	if _, err := repo.AdjustBalance(ctx, 1000, 0); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	_, err := svc.CreateExpense(ctx, domain.ExpenseCreate{
		CategoryID:    "missing",
		Amount:        100,
		PaymentSource: domain.PaymentMethodCash,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGPayReturnBooksExpenseAndDebitsCash(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	product := makeProduct(t, svc, "Plug", 50, 20, 40)

	_, err := svc.CreateSale(ctx, domain.SaleCreate{
		SaleType:      domain.SaleTypeRetail,
		Items:         []domain.SaleItem{saleItem(product, 5, 40)}, // total 200
		PaymentMethod: domain.PaymentMethodCash,
		CashReceived:  250,
		GPayReturn:    50,
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	balance, _ := svc.GetBalance(ctx)
	if !almostEqual(balance.Cash, 150) {
		t.Fatalf("cash = %v, want 200 - 50 = 150", balance.Cash)
	}

	expenses, _ := svc.ListExpenses(ctx)
	if len(expenses) != 1 {
		t.Fatalf("expenses = %d, want the auto-booked change record", len(expenses))
	}
	if expenses[0].CategoryName != domain.GPayReturnsCategory {
		t.Fatalf("expense category = %q, want %q", expenses[0].CategoryName, domain.GPayReturnsCategory)
	}
	if !almostEqual(expenses[0].Amount, 50) {
		t.Fatalf("expense amount = %v, want 50", expenses[0].Amount)
	}

	categories, _ := svc.ListExpenseCategories(ctx)
	if len(categories) != 1 || categories[0].Name != domain.GPayReturnsCategory {
		t.Fatalf("expense categories = %v, want auto-created %q", categories, domain.GPayReturnsCategory)
	}
}

func TestRestockAccumulatesSupplierBalanceAndDebitsDrawer(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	product := makeProduct(t, svc, "Cable", 10, 100, 150)

	if _, err := repo.AdjustBalance(ctx, 1000, 0); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	updated, err := svc.RestockProduct(ctx, product.ID, domain.RestockRequest{
		Quantity:      5,
		SupplierName:  "Sharma Traders",
		AmountPaid:    300,
		PaymentSource: domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if !almostEqual(updated.Quantity, 15) {
		t.Fatalf("quantity = %v, want 15", updated.Quantity)
	}
	// 5 * 100 = 500 owed, 300 paid
	if !almostEqual(updated.SupplierBalance, 200) {
		t.Fatalf("supplier balance = %v, want 200", updated.SupplierBalance)
	}

	balance, _ := svc.GetBalance(ctx)
	if !almostEqual(balance.Cash, 700) {
		t.Fatalf("cash = %v, want 700", balance.Cash)
	}

	transactions, _ := svc.ListStockTransactions(ctx)
	if len(transactions) != 1 {
		t.Fatalf("stock transactions = %d, want 1", len(transactions))
	}
	tx := transactions[0]
	if !almostEqual(tx.BalanceAmount, 200) || !almostEqual(tx.AmountPaid, 300) || tx.SupplierName != "Sharma Traders" {
		t.Fatalf("stock tx = %+v, want paid 300 / owed 200 / Sharma Traders", tx)
	}

	report, err := svc.SupplierReport(ctx)
	if err != nil {
		t.Fatalf("supplier report: %v", err)
	}
	if len(report) != 1 || !almostEqual(report[0].TotalBalance, 200) || !almostEqual(report[0].TotalPurchase, 500) {
		t.Fatalf("supplier report = %+v, want one row purchase 500 / balance 200", report)
	}
}

func TestRestockUpdatesCostPrice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	product := makeProduct(t, svc, "Pipe", 10, 100, 150)

	newCost := 120.0
	updated, err := svc.RestockProduct(ctx, product.ID, domain.RestockRequest{
		Quantity:  2,
		CostPrice: &newCost,
	})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if !almostEqual(updated.CostPrice, 120) {
		t.Fatalf("cost price = %v, want 120", updated.CostPrice)
	}
	if !almostEqual(updated.SupplierBalance, 0) {
		t.Fatalf("supplier balance = %v, want 0 without a supplier", updated.SupplierBalance)
	}
}

func TestRestockWithoutSupplierTracksNoDebt(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	product := makeProduct(t, svc, "Clip", 10, 100, 150)

	updated, err := svc.RestockProduct(ctx, product.ID, domain.RestockRequest{
		Quantity: 5,
	})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if !almostEqual(updated.Quantity, 15) {
		t.Fatalf("quantity = %v, want 15", updated.Quantity)
	}
	// No supplier named: nothing is owed, to anyone.
	if !almostEqual(updated.SupplierBalance, 0) {
		t.Fatalf("supplier balance = %v, want 0", updated.SupplierBalance)
	}

	transactions, _ := svc.ListStockTransactions(ctx)
	if len(transactions) != 1 {
		t.Fatalf("stock transactions = %d, want 1", len(transactions))
	}
	if !almostEqual(transactions[0].BalanceAmount, 0) || transactions[0].SupplierName != "" {
		t.Fatalf("stock tx = %+v, want no supplier and no debt", transactions[0])
	}

	report, err := svc.SupplierReport(ctx)
	if err != nil {
		t.Fatalf("supplier report: %v", err)
	}
	if len(report) != 0 {
		t.Fatalf("supplier report = %+v, want empty", report)
	}
}

func TestSaleAllowsNegativeStock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	product := makeProduct(t, svc, "Socket", 2, 10, 20)

	if _, err := svc.CreateSale(ctx, domain.SaleCreate{
		SaleType:      domain.SaleTypeRetail,
		Items:         []domain.SaleItem{saleItem(product, 5, 20)},
		PaymentMethod: domain.PaymentMethodCash,
	}); err != nil {
		t.Fatalf("create sale: %v", err)
	}
	got, _ := svc.GetProduct(ctx, product.ID)
	if !almostEqual(got.Quantity, -3) {
		t.Fatalf("quantity = %v, want -3 (oversell is recorded, not blocked)", got.Quantity)
	}
}

func TestSaleSkipsStockForDeletedProductButKeepsLine(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	kept := makeProduct(t, svc, "Kept", 10, 10, 20)
	gone := makeProduct(t, svc, "Gone", 10, 10, 20)
	if err := svc.DeleteProduct(ctx, gone.ID); err != nil {
		t.Fatalf("delete product: %v", err)
	}

	sale, err := svc.CreateSale(ctx, domain.SaleCreate{
		SaleType: domain.SaleTypeRetail,
		Items: []domain.SaleItem{
			saleItem(kept, 1, 20),
			saleItem(gone, 1, 20),
		},
		PaymentMethod: domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if len(sale.Items) != 2 {
		t.Fatalf("sale items = %d, want both lines kept", len(sale.Items))
	}
	got, _ := svc.GetProduct(ctx, kept.ID)
	if !almostEqual(got.Quantity, 9) {
		t.Fatalf("kept quantity = %v, want 9", got.Quantity)
	}
}

func TestDailyAndMonthlyReports(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	product := makeProduct(t, svc, "Lamp", 100, 60, 100)
	category := makeExpenseCategory(t, svc, "Tea")

	if _, err := repo.AdjustBalance(ctx, 10000, 0); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	if _, err := svc.CreateSale(ctx, domain.SaleCreate{
		SaleType:      domain.SaleTypeRetail,
		Items:         []domain.SaleItem{saleItem(product, 10, 100)},
		PaymentMethod: domain.PaymentMethodCash,
	}); err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if _, err := svc.CreateExpense(ctx, domain.ExpenseCreate{
		CategoryID:    category.ID,
		Amount:        100,
		PaymentSource: domain.PaymentMethodCash,
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	today := svc.now().Format("2006-01-02")
	daily, err := svc.DailyReport(ctx, today)
	if err != nil {
		t.Fatalf("daily report: %v", err)
	}
	if !almostEqual(daily.Sales.Total, 1000) || daily.Sales.Count != 1 {
		t.Fatalf("daily sales = %+v, want total 1000 count 1", daily.Sales)
	}
	if !almostEqual(daily.Expenses.Total, 100) || !almostEqual(daily.Expenses.ByCategory["Tea"], 100) {
		t.Fatalf("daily expenses = %+v, want 100 under Tea", daily.Expenses)
	}
	if !almostEqual(daily.Cost, 600) {
		t.Fatalf("daily cost = %v, want 10*60", daily.Cost)
	}
	if !almostEqual(daily.Profit, 300) {
		t.Fatalf("daily profit = %v, want 1000-600-100", daily.Profit)
	}

	now := svc.now()
	monthly, err := svc.MonthlyReport(ctx, now.Year(), int(now.Month()))
	if err != nil {
		t.Fatalf("monthly report: %v", err)
	}
	if !almostEqual(monthly.Sales.Total, 1000) || !almostEqual(monthly.Profit, 300) {
		t.Fatalf("monthly = %+v, want total 1000 profit 300", monthly)
	}

	if _, err := svc.DailyReport(ctx, "not-a-date"); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("bad date err = %v, want ErrInvalidInput", err)
	}
}

func TestInventoryTotalValue(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	makeProduct(t, svc, "A", 10, 5, 8)
	makeProduct(t, svc, "B", 4, 25, 40)

	value, err := svc.InventoryTotalValue(ctx)
	if err != nil {
		t.Fatalf("inventory value: %v", err)
	}
	if value.TotalItems != 2 {
		t.Fatalf("items = %d, want 2", value.TotalItems)
	}
	if !almostEqual(value.TotalCostValue, 150) {
		t.Fatalf("cost value = %v, want 10*5+4*25", value.TotalCostValue)
	}
	if !almostEqual(value.TotalRetailValue, 240) {
		t.Fatalf("retail value = %v, want 10*8+4*40", value.TotalRetailValue)
	}
}

func TestProductRequiresValidCategoryAndUnit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, domain.ProductCreate{
		Name:       "Orphan",
		CategoryID: "missing",
		Unit:       domain.UnitPieces,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing category err = %v, want ErrNotFound", err)
	}

	category, _ := svc.CreateCategory(ctx, domain.CategoryCreate{Name: "General"})
	_, err = svc.CreateProduct(ctx, domain.ProductCreate{
		Name:       "Weird",
		CategoryID: category.ID,
		Unit:       "dozen",
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("bad unit err = %v, want ErrInvalidInput", err)
	}
}

func TestSetCreateValidatesComponents(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateSet(context.Background(), domain.ProductSetCreate{
		Name:  "Ghost Kit",
		Items: []domain.SetItem{{ProductID: "missing", Quantity: 1}},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
