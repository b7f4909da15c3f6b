package domain

import "time"

// Unit kinds for product stock. Quantities are float64 so that volume and
// length goods can be sold in fractional units.
const (
	UnitPieces = "pieces"
	UnitML     = "ml"
	UnitMeter  = "meter"
)

const (
	SaleTypeRetail    = "retail"
	SaleTypeWholesale = "wholesale"
)

const (
	PaymentTypeFull   = "full"
	PaymentTypeCredit = "credit"
)

const (
	PaymentMethodCash = "cash"
	PaymentMethodGPay = "gpay"
)

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeAmount     = "amount"
)

// The eight money transfer kinds. The shop-internal pair and the
// customer-facing pair deliberately use opposite sign conventions.
const (
	TransferCashToGPay         = "cash_to_gpay"
	TransferGPayToCash         = "gpay_to_cash"
	TransferCustomerCashToGPay = "customer_cash_to_gpay"
	TransferCustomerGPayToCash = "customer_gpay_to_cash"
	TransferCashWithdrawal     = "cash_withdrawal"
	TransferGPayWithdrawal     = "gpay_withdrawal"
	TransferCashDeposit        = "cash_deposit"
	TransferGPayDeposit        = "gpay_deposit"
)

// GPayReturnsCategory is the well-known expense category used to record
// electronic change handed back on cash sales. Auto-created on first use.
const GPayReturnsCategory = "GPay Returns"

// BalanceID is the fixed identifier of the singleton Balance record.
const BalanceID = "main"

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type CategoryCreate struct {
	Name string `json:"name"`
}

type Product struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	CategoryID      string    `json:"category_id"`
	CategoryName    string    `json:"category_name"`
	Quantity        float64   `json:"quantity"`
	Unit            string    `json:"unit"`
	CostPrice       float64   `json:"cost_price"`
	RetailPrice     float64   `json:"retail_price"`
	WholesalePrice  float64   `json:"wholesale_price"`
	SupplierName    string    `json:"supplier_name,omitempty"`
	SupplierBalance float64   `json:"supplier_balance"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ProductCreate struct {
	Name           string  `json:"name"`
	CategoryID     string  `json:"category_id"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	CostPrice      float64 `json:"cost_price"`
	RetailPrice    float64 `json:"retail_price"`
	WholesalePrice float64 `json:"wholesale_price"`
	SupplierName   string  `json:"supplier_name,omitempty"`
}

type ProductUpdate struct {
	Name           *string  `json:"name,omitempty"`
	CategoryID     *string  `json:"category_id,omitempty"`
	Quantity       *float64 `json:"quantity,omitempty"`
	Unit           *string  `json:"unit,omitempty"`
	CostPrice      *float64 `json:"cost_price,omitempty"`
	RetailPrice    *float64 `json:"retail_price,omitempty"`
	WholesalePrice *float64 `json:"wholesale_price,omitempty"`
	SupplierName   *string  `json:"supplier_name,omitempty"`
}

// SetItem is one component of a product set: selling N sets consumes
// N*Quantity units of the referenced product.
type SetItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"quantity"`
}

type ProductSet struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Items     []SetItem `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

type ProductSetCreate struct {
	Name  string    `json:"name"`
	Items []SetItem `json:"items"`
}

// SaleItem references either a product or a set, never both.
type SaleItem struct {
	ProductID string  `json:"product_id,omitempty"`
	SetID     string  `json:"set_id,omitempty"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
}

type Sale struct {
	ID             string     `json:"id"`
	SaleType       string     `json:"sale_type"`
	PaymentType    string     `json:"payment_type"`
	CustomerName   string     `json:"customer_name,omitempty"`
	CustomerPhone  string     `json:"customer_phone,omitempty"`
	Items          []SaleItem `json:"items"`
	Subtotal       float64    `json:"subtotal"`
	DiscountType   string     `json:"discount_type"`
	DiscountValue  float64    `json:"discount_value"`
	DiscountAmount float64    `json:"discount_amount"`
	Total          float64    `json:"total"`
	PaymentMethod  string     `json:"payment_method"`
	AmountPaid     float64    `json:"amount_paid"`
	BalanceAmount  float64    `json:"balance_amount"`
	CashReceived   float64    `json:"cash_received,omitempty"`
	GPayReturn     float64    `json:"gpay_return,omitempty"`
	Date           time.Time  `json:"date"`
	CreatedAt      time.Time  `json:"created_at"`
}

type SaleCreate struct {
	SaleType      string     `json:"sale_type"`
	PaymentType   string     `json:"payment_type,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	Items         []SaleItem `json:"items"`
	DiscountType  string     `json:"discount_type"`
	DiscountValue float64    `json:"discount_value"`
	PaymentMethod string     `json:"payment_method"`
	AmountPaid    *float64   `json:"amount_paid,omitempty"`
	CashReceived  float64    `json:"cash_received,omitempty"`
	GPayReturn    float64    `json:"gpay_return,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
}

// SalePaymentUpdate carries the new cumulative figures for a credit sale.
// The incremental receipt is derived from the stored sale, never recomputed
// against the total.
type SalePaymentUpdate struct {
	AmountPaid    float64 `json:"amount_paid"`
	BalanceAmount float64 `json:"balance_amount"`
	PaymentMethod string  `json:"payment_method"`
}

type Return struct {
	ID           string     `json:"id"`
	SaleID       string     `json:"sale_id"`
	Items        []SaleItem `json:"items"`
	RefundAmount float64    `json:"refund_amount"`
	RefundMethod string     `json:"refund_method"`
	Reason       string     `json:"reason,omitempty"`
	Date         time.Time  `json:"date"`
	CreatedAt    time.Time  `json:"created_at"`
}

type ReturnCreate struct {
	SaleID       string     `json:"sale_id"`
	Items        []SaleItem `json:"items"`
	RefundMethod string     `json:"refund_method"`
	Reason       string     `json:"reason,omitempty"`
	Date         *time.Time `json:"date,omitempty"`
}

type Expense struct {
	ID            string    `json:"id"`
	CategoryID    string    `json:"category_id"`
	CategoryName  string    `json:"category_name"`
	Amount        float64   `json:"amount"`
	PaymentSource string    `json:"payment_source"`
	Description   string    `json:"description,omitempty"`
	Date          time.Time `json:"date"`
	CreatedAt     time.Time `json:"created_at"`
}

type ExpenseCreate struct {
	CategoryID    string     `json:"category_id"`
	Amount        float64    `json:"amount"`
	PaymentSource string     `json:"payment_source"`
	Description   string     `json:"description,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
}

type MoneyTransfer struct {
	ID           string    `json:"id"`
	TransferType string    `json:"transfer_type"`
	Amount       float64   `json:"amount"`
	Description  string    `json:"description,omitempty"`
	Date         time.Time `json:"date"`
	CreatedAt    time.Time `json:"created_at"`
}

type MoneyTransferCreate struct {
	TransferType string     `json:"transfer_type"`
	Amount       float64    `json:"amount"`
	Description  string     `json:"description,omitempty"`
	Date         *time.Time `json:"date,omitempty"`
}

// Balance is the singleton cash drawer: one record with a fixed identifier,
// lazily created at zero and mutated only through relative adjustments.
type Balance struct {
	ID        string    `json:"id"`
	Cash      float64   `json:"cash"`
	GPay      float64   `json:"gpay"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StockTransaction is the immutable audit record written on restock. It is
// only read back by the supplier report.
type StockTransaction struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	ProductName   string    `json:"product_name"`
	Quantity      float64   `json:"quantity"`
	CostPrice     float64   `json:"cost_price"`
	SupplierName  string    `json:"supplier_name,omitempty"`
	AmountPaid    float64   `json:"amount_paid"`
	BalanceAmount float64   `json:"balance_amount"`
	PaymentSource string    `json:"payment_source,omitempty"`
	Date          time.Time `json:"date"`
}

type RestockRequest struct {
	Quantity      float64  `json:"quantity"`
	CostPrice     *float64 `json:"cost_price,omitempty"`
	SupplierName  string   `json:"supplier_name,omitempty"`
	AmountPaid    float64  `json:"amount_paid,omitempty"`
	PaymentSource string   `json:"payment_source,omitempty"`
}

type SalesSummary struct {
	Total     float64 `json:"total"`
	Retail    float64 `json:"retail"`
	Wholesale float64 `json:"wholesale"`
	Count     int     `json:"count"`
}

type ExpenseSummary struct {
	Total      float64            `json:"total"`
	ByCategory map[string]float64 `json:"by_category"`
}

type DailyReport struct {
	Date         string         `json:"date"`
	Sales        SalesSummary   `json:"sales"`
	Expenses     ExpenseSummary `json:"expenses"`
	Cost         float64        `json:"cost"`
	Profit       float64        `json:"profit"`
	SalesList    []Sale         `json:"sales_list"`
	ExpensesList []Expense      `json:"expenses_list"`
}

type MonthlyReport struct {
	Year     int            `json:"year"`
	Month    int            `json:"month"`
	Sales    SalesSummary   `json:"sales"`
	Expenses ExpenseSummary `json:"expenses"`
	Cost     float64        `json:"cost"`
	Profit   float64        `json:"profit"`
}

// SupplierSummary aggregates the restock audit trail for one supplier.
type SupplierSummary struct {
	SupplierName  string  `json:"supplier_name"`
	TotalPurchase float64 `json:"total_purchase"`
	TotalPaid     float64 `json:"total_paid"`
	TotalBalance  float64 `json:"total_balance"`
	Transactions  int     `json:"transactions"`
}

type InventoryValue struct {
	TotalCostValue      float64 `json:"total_cost_value"`
	TotalRetailValue    float64 `json:"total_retail_value"`
	TotalWholesaleValue float64 `json:"total_wholesale_value"`
	TotalItems          int     `json:"total_items"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

func IsValidUnit(unit string) bool {
	switch unit {
	case UnitPieces, UnitML, UnitMeter:
		return true
	default:
		return false
	}
}

func IsValidPaymentMethod(method string) bool {
	return method == PaymentMethodCash || method == PaymentMethodGPay
}

func IsValidDiscountType(kind string) bool {
	return kind == DiscountTypePercentage || kind == DiscountTypeAmount
}

func IsValidSaleType(kind string) bool {
	return kind == SaleTypeRetail || kind == SaleTypeWholesale
}

func IsValidTransferType(kind string) bool {
	switch kind {
	case TransferCashToGPay, TransferGPayToCash,
		TransferCustomerCashToGPay, TransferCustomerGPayToCash,
		TransferCashWithdrawal, TransferGPayWithdrawal,
		TransferCashDeposit, TransferGPayDeposit:
		return true
	default:
		return false
	}
}
