package api

import (
	"net/http"

	"github.com/example/mavi-boutique/internal/api/middleware"
	"github.com/example/mavi-boutique/internal/auth"
	"github.com/example/mavi-boutique/internal/live"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Handlers        *Handlers
	SessionHandlers *SessionHandlers
	JWTService      *auth.JWTService
	Hub             *live.Hub
	Limiter         *middleware.RateLimiter
	Logger          *zap.Logger
	WebDir          string
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	h := cfg.Handlers
	sh := cfg.SessionHandlers

	requireAuth := middleware.AuthMiddleware(cfg.JWTService)
	optionalAuth := middleware.OptionalAuthMiddleware(cfg.JWTService)
	requireAdmin := middleware.RequireAdmin()

	admin := func(fn http.HandlerFunc) http.Handler {
		return requireAuth(requireAdmin(fn))
	}
	limited := func(next http.Handler) http.Handler {
		if cfg.Limiter == nil {
			return next
		}
		return cfg.Limiter.Middleware(next)
	}

	// Static files (mini-app bundle)
	if cfg.WebDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.WebDir)))
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Session
	mux.Handle("POST /api/session", limited(http.HandlerFunc(sh.Open)))
	mux.Handle("GET /api/session", requireAuth(http.HandlerFunc(sh.Get)))
	mux.Handle("DELETE /api/session", http.HandlerFunc(sh.Close))
	mux.Handle("PUT /api/role", requireAuth(http.HandlerFunc(sh.SetRole)))

	// Storefront
	mux.HandleFunc("GET /api/products", h.GetProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.Handle("POST /api/promos/apply", limited(http.HandlerFunc(h.ApplyPromo)))
	mux.Handle("POST /api/orders", limited(optionalAuth(http.HandlerFunc(h.PlaceOrder))))

	// Admin
	mux.Handle("GET /api/admin/state", admin(h.GetState))
	mux.Handle("GET /api/admin/stats", admin(h.GetStats))
	mux.Handle("GET /api/admin/products", admin(h.GetAllProducts))
	mux.Handle("POST /api/admin/products", admin(h.CreateProduct))
	mux.Handle("PUT /api/admin/products/{id}", admin(h.UpdateProduct))
	mux.Handle("DELETE /api/admin/products/{id}", admin(h.DeleteProduct))
	mux.Handle("GET /api/admin/orders", admin(h.GetAllOrders))
	mux.Handle("GET /api/admin/orders/{id}", admin(h.GetOrder))
	mux.Handle("POST /api/admin/orders/{id}/confirm", admin(h.ConfirmOrder))
	mux.Handle("GET /api/admin/promos", admin(h.GetPromos))
	mux.Handle("POST /api/admin/promos", admin(h.CreatePromo))

	if cfg.Hub != nil {
		mux.Handle("GET /api/admin/live", admin(func(w http.ResponseWriter, r *http.Request) {
			cfg.Hub.ServeWS(w, r, middleware.GetUserID(r.Context()))
		}))
	}

	return middleware.Logging(cfg.Logger)(mux)
}
