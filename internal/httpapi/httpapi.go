package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"tillbook/backend/internal/domain"
	"tillbook/backend/internal/service"
	"tillbook/backend/internal/store"
)

type contextKey string

const actorKey contextKey = "actor"

type Handler struct {
	svc  *service.Service
	auth *AuthManager
}

func NewRouter(svc *service.Service, auth *AuthManager, allowedOrigin string) http.Handler {
	h := &Handler{svc: svc, auth: auth}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/api/health", h.health)
	r.Post("/api/auth/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth(RoleAdmin, RoleCashier))

		r.Get("/api/categories", h.listCategories)
		r.Post("/api/categories", h.createCategory)
		r.Get("/api/expense-categories", h.listExpenseCategories)
		r.Post("/api/expense-categories", h.createExpenseCategory)

		r.Get("/api/products", h.listProducts)
		r.Post("/api/products", h.createProduct)
		r.Get("/api/products/{id}", h.getProduct)
		r.Put("/api/products/{id}", h.updateProduct)
		r.Post("/api/products/{id}/restock", h.restockProduct)
		r.Get("/api/inventory/total-value", h.inventoryTotalValue)
		r.Get("/api/stock-transactions", h.listStockTransactions)

		r.Get("/api/sets", h.listSets)
		r.Post("/api/sets", h.createSet)
		r.Get("/api/sets/{id}", h.getSet)

		r.Get("/api/sales", h.listSales)
		r.Post("/api/sales", h.createSale)
		r.Get("/api/sales/credit", h.listCreditSales)
		r.Put("/api/sales/{id}/payment", h.updateSalePayment)

		r.Get("/api/returns", h.listReturns)
		r.Post("/api/returns", h.createReturn)

		r.Get("/api/expenses", h.listExpenses)
		r.Post("/api/expenses", h.createExpense)

		r.Get("/api/money-transfers", h.listMoneyTransfers)
		r.Post("/api/money-transfers", h.createMoneyTransfer)

		r.Get("/api/balance", h.getBalance)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth(RoleAdmin))

		r.Put("/api/categories/{id}", h.updateCategory)
		r.Delete("/api/categories/{id}", h.deleteCategory)
		r.Put("/api/expense-categories/{id}", h.updateExpenseCategory)
		r.Delete("/api/expense-categories/{id}", h.deleteExpenseCategory)
		r.Delete("/api/products/{id}", h.deleteProduct)
		r.Delete("/api/sets/{id}", h.deleteSet)
		r.Delete("/api/expenses/{id}", h.deleteExpense)
		r.Delete("/api/money-transfers/{id}", h.deleteMoneyTransfer)

		r.Get("/api/reports/daily", h.dailyReport)
		r.Get("/api/reports/monthly", h.monthlyReport)
		r.Get("/api/reports/suppliers", h.supplierReport)
	})

	return r
}

// ---- plumbing ----

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("[httpapi] encode response: %v", err)
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrInsufficientBalance):
		status = http.StatusBadRequest
	case errors.Is(err, errInvalidCredentials), errors.Is(err, errInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, errTooManyAttempts):
		status = http.StatusTooManyRequests
	}
	if status == http.StatusInternalServerError {
		log.Printf("[httpapi] internal error: %v", err)
		writeJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return store.ErrInvalidInput
	}
	return nil
}

func (h *Handler) requireAuth(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found {
				writeError(w, errInvalidToken)
				return
			}
			actor, err := h.auth.verify(token)
			if err != nil {
				writeError(w, err)
				return
			}
			allowed := false
			for _, role := range roles {
				if actor.Role == role {
					allowed = true
					break
				}
			}
			if !allowed {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
				return
			}
			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext returns the authenticated actor placed by requireAuth.
func ActorFromContext(ctx context.Context) (*domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(*domain.Actor)
	return actor, ok
}

// ---- auth ----

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---- categories ----

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CategoryCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	category, err := h.svc.CreateCategory(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CategoryCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	category, err := h.svc.UpdateCategory(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ---- expense categories ----

func (h *Handler) listExpenseCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListExpenseCategories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) createExpenseCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CategoryCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	category, err := h.svc.CreateExpenseCategory(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *Handler) updateExpenseCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CategoryCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	category, err := h.svc.UpdateExpenseCategory(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *Handler) deleteExpenseCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteExpenseCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ---- products ----

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListProducts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	product, err := h.svc.CreateProduct(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.svc.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductUpdate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	product, err := h.svc.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) restockProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.RestockRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	product, err := h.svc.RestockProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) inventoryTotalValue(w http.ResponseWriter, r *http.Request) {
	value, err := h.svc.InventoryTotalValue(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, value)
}

func (h *Handler) listStockTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.svc.ListStockTransactions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

// ---- sets ----

func (h *Handler) listSets(w http.ResponseWriter, r *http.Request) {
	sets, err := h.svc.ListSets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sets)
}

func (h *Handler) createSet(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductSetCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	set, err := h.svc.CreateSet(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, set)
}

func (h *Handler) getSet(w http.ResponseWriter, r *http.Request) {
	set, err := h.svc.GetSet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (h *Handler) deleteSet(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSet(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ---- sales ----

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.svc.ListSales(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sale, err := h.svc.CreateSale(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (h *Handler) listCreditSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.svc.ListCreditSales(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (h *Handler) updateSalePayment(w http.ResponseWriter, r *http.Request) {
	var req domain.SalePaymentUpdate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sale, err := h.svc.UpdateSalePayment(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

// ---- returns ----

func (h *Handler) listReturns(w http.ResponseWriter, r *http.Request) {
	returns, err := h.svc.ListReturns(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, returns)
}

func (h *Handler) createReturn(w http.ResponseWriter, r *http.Request) {
	var req domain.ReturnCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ret, err := h.svc.CreateReturn(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ret)
}

// ---- expenses ----

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.svc.ListExpenses(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	var req domain.ExpenseCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	expense, err := h.svc.CreateExpense(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (h *Handler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteExpense(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	if actor, ok := ActorFromContext(r.Context()); ok {
		log.Printf("[httpapi] expense %s deleted by %s", id, actor.Username)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ---- money transfers ----

func (h *Handler) listMoneyTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.svc.ListMoneyTransfers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transfers)
}

func (h *Handler) createMoneyTransfer(w http.ResponseWriter, r *http.Request) {
	var req domain.MoneyTransferCreate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	transfer, err := h.svc.CreateMoneyTransfer(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, transfer)
}

func (h *Handler) deleteMoneyTransfer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteMoneyTransfer(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	if actor, ok := ActorFromContext(r.Context()); ok {
		log.Printf("[httpapi] transfer %s deleted by %s", id, actor.Username)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ---- balance & reports ----

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.svc.GetBalance(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *Handler) dailyReport(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	report, err := h.svc.DailyReport(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) monthlyReport(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	year := queryInt(r, "year", now.Year())
	month := queryInt(r, "month", int(now.Month()))
	report, err := h.svc.MonthlyReport(r.Context(), year, month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) supplierReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.SupplierReport(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
