package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tably-pos/api/internal/config"
	"github.com/tably-pos/api/internal/database"
	"github.com/tably-pos/api/internal/handler"
	"github.com/tably-pos/api/internal/lock"
	mw "github.com/tably-pos/api/internal/middleware"
	"github.com/tably-pos/api/internal/service"
	"github.com/tably-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and branch scoping middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/branches/{bid}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// One lock registry and one event publisher shared by every service,
	// so table and order critical sections see the same locks.
	locks := lock.NewRegistry(cfg.LockWait)
	bc := ws.NewPublisher(hub)

	tableService := service.NewTableService(pool, queries, func(db database.DBTX) service.TableStore {
		return database.New(db)
	}, locks, bc)
	orderService := service.NewOrderService(pool, queries, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, locks, bc)
	kitchenService := service.NewKitchenService(pool, queries, func(db database.DBTX) service.KitchenStore {
		return database.New(db)
	}, locks, bc)

	tableHandler := handler.NewTableHandler(tableService, queries, bc)
	orderHandler := handler.NewOrderHandler(orderService)
	kitchenHandler := handler.NewKitchenHandler(kitchenService)
	menuHandler := handler.NewMenuHandler(queries, bc)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/branches/{bid}", func(r chi.Router) {
			r.Use(mw.RequireBranch)

			r.Route("/tables", tableHandler.RegisterRoutes)
			r.Route("/menu", menuHandler.RegisterRoutes)

			r.Route("/orders", func(r chi.Router) {
				orderHandler.RegisterRoutes(r)
				r.Post("/{id}/bump", kitchenHandler.Bump)
			})

			r.Patch("/order-items/{id}/status", kitchenHandler.UpdateItemStatus)
		})
	})

	return r
}
