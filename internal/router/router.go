package router

import (
	"net/http"
	"time"

	"github.com/cleaning-crm/api/internal/config"
	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/handler"
	"github.com/cleaning-crm/api/internal/logger"
	"github.com/cleaning-crm/api/internal/media"
	mw "github.com/cleaning-crm/api/internal/middleware"
	"github.com/cleaning-crm/api/internal/notify"
	"github.com/cleaning-crm/api/internal/report"
	"github.com/cleaning-crm/api/internal/service"
	"github.com/cleaning-crm/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// Every route except /health, /ws and the login endpoints requires a token;
// role checks live in each handler's RegisterRoutes.
func New(cfg *config.Config, pool *pgxpool.Pool, hub *ws.Hub, notifier notify.Notifier, loc *time.Location) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger.Log, NoColor: true}))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	queries := database.New(pool)
	images := media.NewStore(cfg.MediaRoot)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Browsers cannot send headers on the upgrade, so /ws checks ?token itself.
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret, cfg.Env != "local")
	authHandler.RegisterRoutes(r)

	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, notifier, loc)
	assignmentService := service.NewAssignmentService(pool, func(db database.DBTX) service.AssignmentStore {
		return database.New(db)
	}, notifier, loc)
	settlementService := service.NewSettlementService(pool, func(db database.DBTX) service.SettlementStore {
		return database.New(db)
	}, notifier, report.WriteManagerReports)
	crewService := service.NewCrewService(queries, images)

	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		authHandler.RegisterProtectedRoutes(r)

		r.Route("/staff", handler.NewStaffHandler(queries, images).RegisterRoutes)
		r.Route("/clients", handler.NewClientHandler(queries).RegisterRoutes)
		handler.NewCatalogHandler(queries).RegisterRoutes(r)
		handler.NewConsumableHandler(queries).RegisterRoutes(r)

		orderHandler := handler.NewOrderHandler(orderService, queries, loc)
		orderStaffHandler := handler.NewOrderStaffHandler(assignmentService, queries)
		reportHandler := handler.NewManagerReportHandler(settlementService, queries, loc)
		r.Route("/orders", func(r chi.Router) {
			orderHandler.RegisterRoutes(r)
			orderStaffHandler.RegisterRoutes(r)
			reportHandler.RegisterOrderRoutes(r)
		})
		r.Route("/manager-reports", reportHandler.RegisterRoutes)
		r.Route("/my/orders", handler.NewCrewHandler(crewService).RegisterRoutes)

		r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.MediaRoot))))
	})

	logger.Log.Info("router initialized with all handlers")
	return r
}
