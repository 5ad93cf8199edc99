package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Yoseph1994/adventurehub/internal/handler"
	"github.com/Yoseph1994/adventurehub/internal/middleware"
)

// RegisterTours registers tour routes and the reviews nested under a
// tour.  Public reads go through the response cache.
func RegisterTours(g *echo.Group, t *handler.TourHandler, r *handler.ReviewHandler, protect, cache echo.MiddlewareFunc) {
	g.GET("", t.List, cache)
	g.GET("/top-5-cheap", t.TopFiveCheap, cache)
	g.GET("/tours-within/:distance/center/:latlng/unit/:unit", t.Within, cache)
	g.GET("/distances/:latlng/unit/:unit", t.Distances, cache)
	g.GET("/:id", t.Get, cache)

	g.GET("/tour-stats", t.Stats, protect, middleware.RequireRole(staff...))
	g.GET("/monthly-plan/:year", t.MonthlyPlan, protect, middleware.RequireRole(staff...))

	g.POST("", t.Create, protect, middleware.RequireRole(editors...))
	g.PATCH("/:id", t.Update, protect, middleware.RequireRole(editors...))
	g.DELETE("/:id", t.Delete, protect, middleware.RequireRole(admins...))
	g.DELETE("", t.DeleteAll, protect, middleware.RequireRole(admins...))

	g.GET("/:tourId/reviews", r.List)
	g.POST("/:tourId/reviews", r.Create, protect, middleware.RequireRole(reviewers...))
}

// RegisterReviews registers the top level review routes.  Authors and
// admins may change a review; the service checks which.
func RegisterReviews(g *echo.Group, r *handler.ReviewHandler, protect echo.MiddlewareFunc) {
	g.GET("", r.List)
	g.POST("", r.Create, protect, middleware.RequireRole(reviewers...))
	g.GET("/:id", r.Get)
	g.PATCH("/:id", r.Update, protect)
	g.DELETE("/:id", r.Delete, protect)
}

// RegisterBookings registers checkout and booking routes.  All of them
// need a session.
func RegisterBookings(g *echo.Group, b *handler.BookingHandler, protect echo.MiddlewareFunc) {
	g.GET("/checkout-session/:tourId", b.CheckoutSession, protect)
	g.GET("/my-bookings", b.MyBookings, protect)
	g.GET("", b.List, protect, middleware.RequireRole(editors...))
	g.PATCH("/:id/status", b.UpdateStatus, protect, middleware.RequireRole(editors...))
}
