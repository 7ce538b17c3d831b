package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/puntoventa-backend/api/controllers"
	"github.com/angelmondragon/puntoventa-backend/api/middleware"
	"github.com/angelmondragon/puntoventa-backend/internal/auth"
	"github.com/angelmondragon/puntoventa-backend/internal/cashregister"
	productsvc "github.com/angelmondragon/puntoventa-backend/internal/products"
	"github.com/angelmondragon/puntoventa-backend/internal/reports"
	"github.com/angelmondragon/puntoventa-backend/internal/sales"
	"github.com/angelmondragon/puntoventa-backend/internal/stockfeed"
	"github.com/angelmondragon/puntoventa-backend/internal/users"
	"github.com/angelmondragon/puntoventa-backend/pkg/auth/session"
	"github.com/angelmondragon/puntoventa-backend/pkg/config"
	"github.com/angelmondragon/puntoventa-backend/pkg/db"
	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	"github.com/angelmondragon/puntoventa-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/puntoventa-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer needs.
type RedisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

// Services groups the domain services exposed over HTTP.
type Services struct {
	Auth     auth.Service
	Users    users.Service
	Products productsvc.Service
	Sales    sales.Service
	Cash     cashregister.Service
	Reports  reports.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisStore RedisStore,
	sessionChecker session.AccessSessionChecker,
	metricsHandler http.Handler,
	svc Services,
	stockHub *stockfeed.Hub,
	loc *time.Location,
) http.Handler {
	if loc == nil {
		loc = time.UTC
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.CORS(cfg.CORS),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	deps := map[string]controllers.Pinger{}
	if dbP != nil {
		deps["database"] = dbP
	}
	if redisStore != nil {
		deps["redis"] = redisStore
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)

	var (
		idemStore pkgredis.IdempotencyStore
		rlStore   interface {
			IncrWithTTL(context.Context, string, time.Duration) (int64, error)
		}
	)
	if redisStore != nil {
		idemStore = redisStore
		rlStore = redisStore
	}

	requireSupervisor := middleware.RequireRole(enums.UserRoleSupervisor, logg)
	requireManager := middleware.RequireRole(enums.UserRoleManager, logg)
	idempotent := middleware.Idempotency(idemStore, cfg.Sales.IdempotencyTTL, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/health", func(r chi.Router) {
			r.Get("/live", controllers.HealthLive(cfg))
			r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, rlStore, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(svc.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(svc.Auth, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ProductsList(svc.Products, logg))
				r.Get("/search", controllers.ProductsSearch(svc.Products, logg))
				if stockHub != nil && cfg.FeatureFlags.StockFeed {
					r.Get("/stock/stream", stockHub.ServeWS(cfg.CORS.AllowedOrigins))
				}
				r.Get("/{productId}", controllers.ProductsGet(svc.Products, logg))
				r.Get("/{productId}/stock", controllers.ProductsStock(svc.Products, logg))

				r.Group(func(r chi.Router) {
					r.Use(requireSupervisor)
					r.Post("/", controllers.ProductsCreate(svc.Products, logg))
					r.Put("/{productId}", controllers.ProductsUpdate(svc.Products, logg))
					r.Delete("/{productId}", controllers.ProductsDelete(svc.Products, logg))
				})
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", controllers.CategoriesList(svc.Products, logg))
				r.With(requireSupervisor).Post("/", controllers.CategoriesCreate(svc.Products, logg))
			})

			r.Route("/sales", func(r chi.Router) {
				r.With(idempotent).Post("/", controllers.SalesRecord(svc.Sales, logg))
				r.Get("/", controllers.SalesList(svc.Sales, logg))

				r.Group(func(r chi.Router) {
					r.Use(requireSupervisor)
					r.Get("/export", controllers.SalesExport(svc.Reports, loc, logg))
					r.Put("/{saleId}", controllers.SalesAmend(svc.Sales, logg))
					r.Post("/{saleId}/void", controllers.SalesVoid(svc.Sales, logg))
					r.Get("/{saleId}/pdf", controllers.SalesPDF(svc.Reports, logg))
					r.Get("/{saleId}/history", controllers.SalesHistory(svc.Sales, logg))
					r.Get("/{saleId}/history/compare", controllers.SalesCompareVersions(svc.Sales, logg))
				})

				r.Get("/{saleId}", controllers.SalesGet(svc.Sales, logg))
				r.Get("/{saleId}/ticket", controllers.SalesTicket(svc.Sales, logg))
			})

			r.Route("/cash", func(r chi.Router) {
				r.Post("/open", controllers.CashOpen(svc.Cash, logg))
				r.Post("/close", controllers.CashClose(svc.Cash, logg))
				r.Get("/current", controllers.CashCurrent(svc.Cash, logg))
				r.Post("/movements", controllers.CashPostMovement(svc.Cash, logg))
				r.With(requireSupervisor).Get("/sessions", controllers.CashSessions(svc.Cash, logg))
			})

			r.Route("/reports", func(r chi.Router) {
				r.Use(requireSupervisor)
				r.Get("/sales", controllers.ReportsSales(svc.Reports, logg))
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(requireManager)
				r.Get("/", controllers.UsersList(svc.Users, logg))
				r.Get("/export", controllers.UsersExport(svc.Users, logg))
				r.Post("/", controllers.UsersCreate(svc.Users, logg))
				r.Put("/{userId}", controllers.UsersUpdate(svc.Users, logg))
				r.Post("/{userId}/deactivate", controllers.UsersDeactivate(svc.Users, logg))
				r.Post("/{userId}/reactivate", controllers.UsersReactivate(svc.Users, logg))
			})
		})
	})

	return r
}
