package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tefamart/tefamart-backend/api/controllers"
	"github.com/tefamart/tefamart-backend/api/middleware"
	"github.com/tefamart/tefamart-backend/internal/auctions"
	"github.com/tefamart/tefamart-backend/internal/auth"
	"github.com/tefamart/tefamart-backend/internal/campuses"
	"github.com/tefamart/tefamart-backend/internal/categories"
	"github.com/tefamart/tefamart-backend/internal/comments"
	"github.com/tefamart/tefamart-backend/internal/notifications"
	"github.com/tefamart/tefamart-backend/internal/products"
	"github.com/tefamart/tefamart-backend/internal/requests"
	"github.com/tefamart/tefamart-backend/internal/tefas"
	"github.com/tefamart/tefamart-backend/pkg/auth/session"
	"github.com/tefamart/tefamart-backend/pkg/config"
	"github.com/tefamart/tefamart-backend/pkg/db"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	"github.com/tefamart/tefamart-backend/pkg/logger"
	"github.com/tefamart/tefamart-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Deps bundles everything the router needs. Grouping them beats a two-dozen
// parameter constructor.
type Deps struct {
	Config            *config.Config
	Logger            *logger.Logger
	DB                *db.Client
	Redis             *redis.Client
	SessionManager    sessionManager
	MembershipChecker middleware.MembershipChecker

	AuthService       auth.Service
	RegisterService   auth.RegisterService
	SwitchTefaService auth.SwitchTefaService

	CampusService       campuses.Service
	CategoryService     categories.Service
	TefaService         tefas.Service
	ProductService      products.Service
	RequestService      requests.Service
	AuctionService      auctions.Service
	CommentService      comments.Service
	NotificationService notifications.Service
}

// NewRouter assembles the full HTTP surface.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).
			Post("/register", controllers.AuthRegister(deps.RegisterService, deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.SessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.SessionManager, cfg.JWT, logg))
		r.Post("/switch-tefa", controllers.AuthSwitchTefa(deps.SwitchTefaService, cfg.JWT, logg))
	})

	// Public marketplace surface. No auth required for browsing.
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/campuses", controllers.CampusList(deps.CampusService, logg))
		r.Get("/campuses/{campusSlug}", controllers.CampusDetail(deps.CampusService, logg))
		r.Get("/categories", controllers.CategoryList(deps.CategoryService, logg))
		r.Get("/tefas", controllers.TefaList(deps.TefaService, logg))
		r.Get("/tefas/{tefaSlug}", controllers.TefaDetail(deps.TefaService, logg))
		r.Get("/products", controllers.ProductList(deps.ProductService, logg))
		r.Get("/products/{productSlug}", controllers.ProductDetail(deps.ProductService, logg))
		r.Get("/products/{productId}/comments", controllers.CommentList(deps.CommentService, logg))
		r.Get("/auctions/{auctionRef}", controllers.AuctionLive(deps.AuctionService, logg))
		r.Get("/auctions/{auctionId}/bids", controllers.AuctionBids(deps.AuctionService, logg))
	})

	// Authenticated buyer surface.
	r.Route("/api/v1/me", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.NotificationService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.NotificationService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.NotificationService, logg))
		})

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", controllers.RequestCreate(deps.RequestService, logg))
			r.Get("/", controllers.RequestListMine(deps.RequestService, logg))
			r.Post("/{requestId}/cancel", controllers.RequestCancel(deps.RequestService, logg))
		})

		r.Post("/auctions/{auctionRef}/bids", controllers.AuctionPlaceBid(deps.AuctionService, logg))
		r.Post("/products/{productId}/comments", controllers.CommentCreate(deps.CommentService, logg))
		r.Delete("/comments/{commentId}", controllers.CommentDelete(deps.CommentService, logg))
	})

	// TEFA staff surface, scoped to the active tefa in the token.
	r.Route("/api/v1/tefa", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.TefaContext(logg))

		r.Put("/me", controllers.TefaUpdate(deps.TefaService, logg))
		r.Get("/me/members", controllers.TefaMembers(deps.TefaService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireTefaRoles(deps.MembershipChecker, logg, enums.MemberRoleOwner))
			r.Post("/me/members/invite", controllers.TefaInvite(deps.TefaService, logg))
			r.Delete("/me/members/{userId}", controllers.TefaRemoveMember(deps.TefaService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireTefaRoles(deps.MembershipChecker, logg, enums.MemberRoleOwner, enums.MemberRoleOperator))

			r.Route("/products", func(r chi.Router) {
				r.Post("/", controllers.ProductCreate(deps.ProductService, logg))
				r.Patch("/{productId}", controllers.ProductUpdate(deps.ProductService, logg))
				r.Delete("/{productId}", controllers.ProductDelete(deps.ProductService, logg))
			})

			r.Route("/requests", func(r chi.Router) {
				r.Get("/", controllers.RequestInbox(deps.RequestService, logg))
				r.Post("/{requestId}/accept", controllers.RequestAccept(deps.RequestService, logg))
				r.Post("/{requestId}/reject", controllers.RequestReject(deps.RequestService, logg))
				r.Post("/{requestId}/complete", controllers.RequestComplete(deps.RequestService, logg))
			})

			r.Route("/auctions", func(r chi.Router) {
				r.Post("/", controllers.AuctionCreate(deps.AuctionService, logg))
				r.Get("/", controllers.AuctionListForTefa(deps.AuctionService, logg))
				r.Post("/{auctionId}/cancel", controllers.AuctionCancel(deps.AuctionService, logg))
			})
		})
	})

	// Platform administration.
	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Post("/campuses", controllers.CampusCreate(deps.CampusService, logg))
		r.Patch("/campuses/{campusId}", controllers.CampusUpdate(deps.CampusService, logg))
		r.Post("/categories", controllers.CategoryCreate(deps.CategoryService, logg))
		r.Patch("/categories/{categoryId}", controllers.CategoryRename(deps.CategoryService, logg))
		r.Delete("/categories/{categoryId}", controllers.CategoryDelete(deps.CategoryService, logg))
		r.Post("/tefas", controllers.TefaCreate(deps.TefaService, logg))
	})

	return r
}
