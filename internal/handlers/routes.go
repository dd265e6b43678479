package handlers

import "net/http"

// Mount registers every API route on mux.
func (h *Handlers) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("POST /api/v1/register", h.Register)
	mux.HandleFunc("POST /api/v1/login", h.Login)
	mux.HandleFunc("POST /api/v1/logout", h.Logout)

	protected := func(f http.HandlerFunc) http.Handler {
		return h.AuthMiddleware(f)
	}
	mux.Handle("GET /api/v1/me", protected(h.Me))

	mux.Handle("GET /api/v1/expenses", protected(h.ListExpenses))
	mux.Handle("POST /api/v1/expenses", protected(h.CreateExpense))
	mux.Handle("GET /api/v1/expenses/{id}", protected(h.GetExpense))
	mux.Handle("PUT /api/v1/expenses/{id}", protected(h.UpdateExpense))
	mux.Handle("DELETE /api/v1/expenses/{id}", protected(h.DeleteExpense))

	mux.Handle("GET /api/v1/categories", protected(h.ListCategories))
	mux.Handle("POST /api/v1/categories", protected(h.CreateCategory))
	mux.Handle("PUT /api/v1/categories/{name}", protected(h.UpdateCategory))

	mux.Handle("GET /api/v1/subscriptions", protected(h.ListSubscriptions))
	mux.Handle("POST /api/v1/subscriptions", protected(h.CreateSubscription))
	mux.Handle("DELETE /api/v1/subscriptions/{id}", protected(h.DeleteSubscription))

	mux.Handle("GET /api/v1/preferences", protected(h.GetPreferences))
	mux.Handle("PUT /api/v1/preferences", protected(h.UpdatePreferences))

	mux.Handle("GET /api/v1/totals", protected(h.Totals))
	mux.Handle("GET /api/v1/breakdown", protected(h.Breakdown))
	mux.Handle("GET /api/v1/monthly-summary", protected(h.MonthlySummary))
	mux.Handle("GET /api/v1/budgets", protected(h.Budgets))
	mux.Handle("GET /api/v1/dashboard", protected(h.Dashboard))
}
