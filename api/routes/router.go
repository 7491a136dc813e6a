package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dcastellanos/marketbay-backend/api/controllers"
	"github.com/dcastellanos/marketbay-backend/api/middleware"
	"github.com/dcastellanos/marketbay-backend/internal/accounts"
	checkoutsvc "github.com/dcastellanos/marketbay-backend/internal/checkout"
	"github.com/dcastellanos/marketbay-backend/internal/feedback"
	"github.com/dcastellanos/marketbay-backend/internal/items"
	"github.com/dcastellanos/marketbay-backend/internal/purchases"
	"github.com/dcastellanos/marketbay-backend/internal/session"
	"github.com/dcastellanos/marketbay-backend/pkg/config"
	"github.com/dcastellanos/marketbay-backend/pkg/db"
	"github.com/dcastellanos/marketbay-backend/pkg/enums"
	"github.com/dcastellanos/marketbay-backend/pkg/logger"
	"github.com/dcastellanos/marketbay-backend/pkg/redis"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Sessions  session.Service
	Accounts  accounts.Service
	Items     items.Service
	Feedback  feedback.Service
	Purchases purchases.Service
	Checkout  checkoutsvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbClient, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// No session required: account creation, login, browse.
		r.With(middleware.LoginRateLimit(cfg.RateLimit, redisClient, logg)).
			Post("/auth/login", controllers.Login(svcs.Accounts, svcs.Sessions, logg))
		r.Post("/buyers/register", controllers.RegisterBuyer(svcs.Accounts, svcs.Sessions, logg))
		r.Post("/sellers/register", controllers.RegisterSeller(svcs.Accounts, svcs.Sessions, logg))
		r.Get("/items", controllers.ItemsSearch(svcs.Items, logg))
		r.Get("/items/{itemId}", controllers.ItemFetch(svcs.Items, logg))
		r.Get("/sellers/{sellerId}/rating", controllers.SellerRating(svcs.Accounts, logg))

		// Everything below validates the session and slides its idle window.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(svcs.Sessions, logg))

			r.Post("/auth/logout", controllers.Logout(svcs.Sessions, logg))

			// Carts belong to buyers; seller sessions have none.
			r.Route("/cart", func(r chi.Router) {
				r.Use(middleware.RequireKind(enums.PrincipalKindBuyer, logg))
				r.Get("/", controllers.CartFetch(svcs.Sessions, logg))
				r.Post("/items", controllers.CartAddItem(svcs.Sessions, logg))
				r.Delete("/items", controllers.CartRemoveItem(svcs.Sessions, logg))
				r.Post("/save", controllers.CartSave(svcs.Sessions, logg))
				r.Post("/clear", controllers.CartClear(svcs.Sessions, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireKind(enums.PrincipalKindBuyer, logg))
				r.Post("/checkout", controllers.Checkout(svcs.Checkout, logg))
				r.Get("/purchases", controllers.PurchaseHistory(svcs.Purchases, logg))
				r.Post("/items/{itemId}/feedback", controllers.FeedbackRecord(svcs.Feedback, logg))
			})

			r.Route("/seller/items", func(r chi.Router) {
				r.Use(middleware.RequireKind(enums.PrincipalKindSeller, logg))
				r.Get("/", controllers.SellerListItems(svcs.Items, logg))
				r.Post("/", controllers.SellerCreateItem(svcs.Items, logg))
				r.Patch("/{itemId}/price", controllers.SellerChangePrice(svcs.Items, logg))
				r.Patch("/{itemId}/quantity", controllers.SellerChangeQuantity(svcs.Items, logg))
			})
		})
	})

	return r
}
