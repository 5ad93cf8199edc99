package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Yoseph1994/adventurehub/internal/service"
)

// ReviewHandler serves reviews, both top level and nested under a tour.
type ReviewHandler struct {
	Reviews *service.ReviewService
}

// NewReviewHandler wires the review endpoints to reviews.
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{Reviews: reviews}
}

// List returns all reviews, or those of the tour in the path.
func (h *ReviewHandler) List(c echo.Context) error {
	var tourID *uint64
	if c.Param("tourId") != "" {
		id, err := idParam(c, "tourId")
		if err != nil {
			return err
		}
		tourID = &id
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	reviews, err := h.Reviews.List(ctx, tourID)
	if err != nil {
		return err
	}
	return results(c, "reviews", reviews)
}

// Create stores the caller's review.  The tour in the path wins over the
// body.
func (h *ReviewHandler) Create(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	var in service.ReviewInput
	if err := bind(c, &in); err != nil {
		return err
	}
	if c.Param("tourId") != "" {
		if in.Tour, err = idParam(c, "tourId"); err != nil {
			return err
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rv, err := h.Reviews.Create(ctx, u, in)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, echo.Map{"review": rv})
}

// Get returns one review.
func (h *ReviewHandler) Get(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rv, err := h.Reviews.Get(ctx, id)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{"review": rv})
}

// Update changes a review's text or rating.
func (h *ReviewHandler) Update(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in service.ReviewPatchInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rv, err := h.Reviews.Update(ctx, u, id, in)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{"review": rv})
}

// Delete removes a review.
func (h *ReviewHandler) Delete(c echo.Context) error {
	u, err := actor(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Reviews.Delete(ctx, u, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
