// Package router registers the HTTP routes of the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/Yoseph1994/adventurehub/internal/config"
	"github.com/Yoseph1994/adventurehub/internal/handler"
	"github.com/Yoseph1994/adventurehub/internal/middleware"
	"github.com/Yoseph1994/adventurehub/internal/model"
)

// Role allow-lists.
var (
	admins    = []model.Role{model.RoleAdmin, model.RoleSuperAdmin}
	editors   = []model.Role{model.RoleAdmin, model.RoleSuperAdmin, model.RoleLeadGuide}
	staff     = []model.Role{model.RoleAdmin, model.RoleSuperAdmin, model.RoleLeadGuide, model.RoleGuide}
	reviewers = []model.Role{model.RoleUser, model.RoleGuide}
)

// Handlers bundles the handlers mounted under /api/v2.
type Handlers struct {
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Tours    *handler.TourHandler
	Reviews  *handler.ReviewHandler
	Bookings *handler.BookingHandler
}

// Limits carries the Redis-backed middleware settings.
type Limits struct {
	API   config.RateLimitConfig
	Auth  config.RateLimitConfig
	Cache config.CacheConfig
	Redis *redis.Client
}

// RegisterRoutes registers routes that do not belong to the versioned API.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI mounts every /api/v2 route.  auth resolves session cookies
// for protected routes.
func RegisterAPI(e *echo.Echo, h Handlers, auth middleware.Authenticator, l Limits) {
	api := e.Group("/api/v2", middleware.NewTokenBucket(l.API, l.Redis))
	protect := middleware.Protect(auth)
	cache := middleware.NewRedisCache(l.Cache, l.Redis)
	// only tour and review writes change what the cached tour reads return
	invalidate := middleware.InvalidateOnWrite(l.Cache, l.Redis)

	RegisterUsers(api.Group("/users"), h.Auth, h.Users, protect, middleware.NewTokenBucket(l.Auth, l.Redis))
	RegisterTours(api.Group("/tours", invalidate), h.Tours, h.Reviews, protect, cache)
	RegisterReviews(api.Group("/reviews", invalidate), h.Reviews, protect)
	RegisterBookings(api.Group("/bookings"), h.Bookings, protect)
}

// RegisterUsers registers the account routes.  Login and password reset
// pass through the stricter authLimit bucket.
func RegisterUsers(g *echo.Group, a *handler.AuthHandler, u *handler.UserHandler, protect, authLimit echo.MiddlewareFunc) {
	g.POST("/signup", a.Signup)
	g.GET("/verify-email/:token", a.VerifyEmail)
	g.POST("/login", a.Login, authLimit)
	g.POST("/logout", a.Logout)
	g.POST("/forgotPassword", a.ForgotPassword)
	g.PATCH("/resetPassword/:token", a.ResetPassword, authLimit)

	g.GET("/me", a.Me, protect)
	g.PATCH("/updateMyPassword", a.UpdatePassword, protect)
	g.PATCH("/updateMe", a.UpdateMe, protect)
	g.DELETE("/deleteMe", a.DeleteMe, protect)
	g.DELETE("/permanentDelete", a.PermanentDelete, protect)

	admin := []echo.MiddlewareFunc{protect, middleware.RequireRole(admins...)}
	g.GET("", u.List, admin...)
	g.POST("", u.Create, admin...)
	g.GET("/active-users", u.ListActive, admin...)
	g.GET("/inactive-users", u.ListInactive, admin...)
	g.GET("/:id", u.Get, admin...)
	g.PATCH("/:id", u.Update, admin...)
	g.DELETE("/:id", u.Delete, admin...)
}
