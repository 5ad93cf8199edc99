package service

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/Yoseph1994/adventurehub/internal/apperr"
	"github.com/Yoseph1994/adventurehub/internal/model"
	"github.com/Yoseph1994/adventurehub/internal/repository"
)

const (
	MsgNoTour          = "No tour found with that ID"
	MsgNoReview        = "No review found with that ID"
	MsgDuplicateReview = "You have already reviewed this tour"
	MsgNotAuthor       = "You can only change your own reviews"
)

// ReviewStore persists reviews.
type ReviewStore interface {
	Create(ctx context.Context, rv model.Review) (model.Review, error)
	GetByID(ctx context.Context, id uint64) (model.Review, error)
	List(ctx context.Context, tourID *uint64) ([]model.Review, error)
	Update(ctx context.Context, id uint64, p model.ReviewPatch) (model.Review, error)
	Delete(ctx context.Context, id uint64) error
}

// TourLookup resolves a tour by id.
type TourLookup interface {
	GetByID(ctx context.Context, id uint64) (model.Tour, error)
}

// ReviewService writes reviews and recomputes the reviewed tour's rating
// after every successful write.
type ReviewService struct {
	Reviews ReviewStore
	Tours   TourLookup
	Ratings *RatingAggregator
}

// NewReviewService returns a ReviewService that refreshes tour ratings
// through ratings after every write.
func NewReviewService(reviews ReviewStore, tours TourLookup, ratings *RatingAggregator) *ReviewService {
	return &ReviewService{Reviews: reviews, Tours: tours, Ratings: ratings}
}

// ReviewInput is the create payload.  Tour may come from the body or from
// the nested route.
type ReviewInput struct {
	Review string  `json:"review"`
	Rating float64 `json:"rating"`
	Tour   uint64  `json:"tour"`
}

// Validate requires the text and tour, and a rating from 1 to 5.
func (r ReviewInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Review, validation.Required.Error("Review can't be empty")),
		validation.Field(&r.Rating, validation.Required, validation.Min(1.0), validation.Max(5.0)),
		validation.Field(&r.Tour, validation.Required.Error("Review must belong to a tour")),
	)
}

// ReviewPatchInput is the update payload.
type ReviewPatchInput struct {
	Review *string  `json:"review"`
	Rating *float64 `json:"rating"`
}

// Validate checks only the fields present.
func (r ReviewPatchInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Review, validation.NilOrNotEmpty.Error("Review can't be empty")),
		validation.Field(&r.Rating, validation.Min(1.0), validation.Max(5.0)),
	)
}

// CanModifyReview allows the author and admins.
func CanModifyReview(actor model.User, rv model.Review) bool {
	return rv.UserID == actor.ID || actor.Role.IsPrivileged()
}

// Create stores the author's review of a tour.
func (s *ReviewService) Create(ctx context.Context, author model.User, in ReviewInput) (model.Review, error) {
	if err := in.Validate(); err != nil {
		return model.Review{}, invalid(err)
	}
	if _, err := s.Tours.GetByID(ctx, in.Tour); err != nil {
		if errors.Is(err, repository.ErrTourNotFound) {
			return model.Review{}, apperr.NotFound(MsgNoTour, err)
		}
		return model.Review{}, err
	}
	rv, err := s.Reviews.Create(ctx, model.Review{
		TourID: in.Tour,
		UserID: author.ID,
		Review: in.Review,
		Rating: in.Rating,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateReview) {
			return model.Review{}, apperr.Conflict(MsgDuplicateReview, err)
		}
		return model.Review{}, fmt.Errorf("create review: %w", err)
	}
	if _, err := s.Ratings.Recompute(ctx, rv.TourID); err != nil {
		return model.Review{}, err
	}
	return rv, nil
}

// Get returns one review.
func (s *ReviewService) Get(ctx context.Context, id uint64) (model.Review, error) {
	rv, err := s.Reviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return model.Review{}, apperr.NotFound(MsgNoReview, err)
		}
		return model.Review{}, err
	}
	return rv, nil
}

// List returns all reviews, or those of one tour.
func (s *ReviewService) List(ctx context.Context, tourID *uint64) ([]model.Review, error) {
	return s.Reviews.List(ctx, tourID)
}

// Update changes a review's text or rating.  The tour to recompute is the
// stored review's tour.
func (s *ReviewService) Update(ctx context.Context, actor model.User, id uint64, in ReviewPatchInput) (model.Review, error) {
	if err := in.Validate(); err != nil {
		return model.Review{}, invalid(err)
	}
	stored, err := s.Get(ctx, id)
	if err != nil {
		return model.Review{}, err
	}
	if !CanModifyReview(actor, stored) {
		return model.Review{}, apperr.Authorization(MsgNotAuthor)
	}
	rv, err := s.Reviews.Update(ctx, id, model.ReviewPatch{Review: in.Review, Rating: in.Rating})
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return model.Review{}, apperr.NotFound(MsgNoReview, err)
		}
		return model.Review{}, err
	}
	if _, err := s.Ratings.Recompute(ctx, stored.TourID); err != nil {
		return model.Review{}, err
	}
	return rv, nil
}

// Delete removes a review and recomputes its tour.
func (s *ReviewService) Delete(ctx context.Context, actor model.User, id uint64) error {
	stored, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanModifyReview(actor, stored) {
		return apperr.Authorization(MsgNotAuthor)
	}
	if err := s.Reviews.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return apperr.NotFound(MsgNoReview, err)
		}
		return err
	}
	_, err = s.Ratings.Recompute(ctx, stored.TourID)
	return err
}
