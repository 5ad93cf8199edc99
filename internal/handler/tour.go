package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/Yoseph1994/adventurehub/internal/model"
	"github.com/Yoseph1994/adventurehub/internal/repository"
	"github.com/Yoseph1994/adventurehub/internal/service"
)

// TourHandler serves tour browsing, reports and tour management.
type TourHandler struct {
	Tours *service.TourService
}

// NewTourHandler wires the tour endpoints to tours.
func NewTourHandler(tours *service.TourService) *TourHandler { return &TourHandler{Tours: tours} }

func (h *TourHandler) list(c echo.Context, q url.Values) error {
	lq := repository.ParseListQuery(q, repository.TourColumns)
	ctx, cancel := reqCtx(c)
	defer cancel()

	tours, err := h.Tours.List(ctx, lq)
	if err != nil {
		return err
	}
	docs, err := service.Project(tours, lq.Fields)
	if err != nil {
		return err
	}
	return results(c, "tours", docs)
}

// List supports filters, sort, fields and pagination in the query string.
func (h *TourHandler) List(c echo.Context) error {
	return h.list(c, c.QueryParams())
}

// TopFiveCheap lists the five best rated tours, cheapest first on ties.
func (h *TourHandler) TopFiveCheap(c echo.Context) error {
	q := url.Values{}
	for k, v := range c.QueryParams() {
		q[k] = v
	}
	q.Set("limit", "5")
	q.Set("sort", "-ratingsAverage,price")
	q.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	return h.list(c, q)
}

// Stats reports highly rated tours per difficulty.
func (h *TourHandler) Stats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	stats, err := h.Tours.Stats(ctx)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{"stats": stats})
}

// MonthlyPlan reports tour starts per month of a year.
func (h *TourHandler) MonthlyPlan(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	plan, err := h.Tours.MonthlyPlan(ctx, c.Param("year"))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{"plan": plan})
}

// Within lists tours starting inside a radius.
func (h *TourHandler) Within(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	tours, err := h.Tours.Within(ctx, c.Param("distance"), c.Param("latlng"), c.Param("unit"))
	if err != nil {
		return err
	}
	return results(c, "tours", tours)
}

// Distances lists every tour's distance from a point.
func (h *TourHandler) Distances(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	d, err := h.Tours.Distances(ctx, c.Param("latlng"), c.Param("unit"))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{"distances": d})
}

// Get returns a tour with its reviews.
func (h *TourHandler) Get(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tours.Get(ctx, id)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{"tour": t})
}

// Create adds a tour.
func (h *TourHandler) Create(c echo.Context) error {
	var in model.TourInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tours.Create(ctx, in)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, echo.Map{"tour": t})
}

// Update changes the provided fields of a tour.
func (h *TourHandler) Update(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in model.TourInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tours.Update(ctx, id, in)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{"tour": t})
}

// Delete removes a tour with its reviews and bookings.
func (h *TourHandler) Delete(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tours.Delete(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteAll removes every tour.
func (h *TourHandler) DeleteAll(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Tours.DeleteAll(ctx); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
