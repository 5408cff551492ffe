package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/handlers"
	"github.com/openshelf/openshelf/internal/middleware"
)

// Handlers bundles the HTTP handlers registered by RegisterRoutes.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Users         *handlers.UserHandler
	Plans         *handlers.PlanHandler
	PaymentConfig *handlers.PaymentConfigHandler
	Checkout      *handlers.CheckoutHandler
	Signup        *handlers.SignupHandler
	Webhooks      *handlers.WebhookHandler
	Books         *handlers.BookHandler
	AuditLogs     *handlers.AuditLogHandler
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	tokenManager *auth.TokenManager,
	users auth.UserFetcher,
	revocations auth.TokenRevocationChecker,
	revocationConfig auth.RevocationConfig,
	userService handlers.UserServiceInterface,
) {
	authRate := middleware.RateLimitByIP(middleware.DefaultAuthRateLimit())
	signupRate := middleware.RateLimitByIP(middleware.DefaultSignupRateLimit())
	checkoutRate := middleware.RateLimitByIP(middleware.DefaultCheckoutRateLimit())

	router.Handle("/metrics", promhttp.Handler())

	// Public routes - no authentication required
	router.With(authRate).Post("/auth/login", h.Auth.Login)
	router.With(authRate).Post("/auth/refresh", h.Auth.Refresh)
	router.With(authRate).Post("/auth/forgot-password", h.Auth.ForgotPassword)
	router.With(authRate).Post("/auth/reset-password", h.Auth.ResetPassword)

	router.Get("/plans", h.Plans.ListPublicPlans)

	router.With(checkoutRate).Post("/checkout", h.Checkout.CreateCheckout)
	// Each successful confirm mints a signup token, so it gets the same
	// budget as the other signup endpoints.
	router.With(signupRate).Get("/payment/confirm", h.Checkout.Confirm)
	router.Post("/webhooks/{provider}", h.Webhooks.Receive)

	router.With(signupRate).Post("/signup/validate-token", h.Signup.ValidateToken)
	router.With(signupRate).Post("/signup", h.Signup.CompleteSignup)
	router.With(signupRate).Post("/invites/accept", h.Users.AcceptInvite)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.MiddlewareWithRevocation(tokenManager, users, revocations, revocationConfig))

		// Any authenticated user
		r.Get("/me", h.Auth.Me(userService))
		r.Post("/auth/logout", h.Auth.Logout)
		r.Get("/users/{id}", h.Users.GetUser)

		r.Get("/books", h.Books.ListBooks)
		r.Get("/books/{id}", h.Books.GetBook)
		r.Get("/categories", h.Books.ListCategories)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(users, "admin"))

			r.Get("/users", h.Users.ListUsers)
			r.Post("/users/invite", h.Users.InviteUser)
			r.Post("/users/{id}/resend-invite", h.Users.ResendInvite)
			r.Put("/users/{id}", h.Users.UpdateUser)
			r.Delete("/users/{id}", h.Users.DeleteUser)

			r.Get("/admin/plans", h.Plans.ListAdminPlans)
			r.Get("/admin/plans/{id}", h.Plans.GetPlan)
			r.Post("/admin/plans", h.Plans.CreatePlan)
			r.Put("/admin/plans/{id}", h.Plans.UpdatePlan)
			r.Delete("/admin/plans/{id}", h.Plans.DeletePlan)

			r.Get("/admin/payment-configs", h.PaymentConfig.ListConfigs)
			r.Get("/admin/payment-configs/{id}", h.PaymentConfig.GetConfig)
			r.Post("/admin/payment-configs", h.PaymentConfig.CreateConfig)
			r.Put("/admin/payment-configs/{id}", h.PaymentConfig.UpdateConfig)
			r.Put("/admin/payment-configs/{id}/activate", h.PaymentConfig.SetActive)
			r.Delete("/admin/payment-configs/{id}", h.PaymentConfig.DeleteConfig)

			r.Get("/admin/payments", h.Checkout.ListPayments)
			r.Get("/admin/audit-logs", h.AuditLogs.ListAuditLogs)

			r.Get("/admin/books", h.Books.ListAllBooks)
			r.Post("/admin/books", h.Books.CreateBook)
			r.Put("/admin/books/{id}", h.Books.UpdateBook)
			r.Delete("/admin/books/{id}", h.Books.DeleteBook)
			r.Post("/admin/categories", h.Books.CreateCategory)
			r.Delete("/admin/categories/{id}", h.Books.DeleteCategory)
		})
	})
}
