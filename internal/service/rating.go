package service

import (
	"context"
	"fmt"

	"github.com/Yoseph1994/adventurehub/internal/model"
)

// RatingSource reads per-rating review counts of one tour.
type RatingSource interface {
	RatingCounts(ctx context.Context, tourID uint64) ([]model.StarCount, error)
}

// RatingSink stores a tour's recomputed rating summary.
type RatingSink interface {
	UpdateRatings(ctx context.Context, tourID uint64, s model.RatingSummary) error
}

// RatingAggregator keeps a tour's rating summary in line with its reviews.
// It is the only writer of the rating columns.
type RatingAggregator struct {
	Reviews RatingSource
	Tours   RatingSink
}

// NewRatingAggregator reads review stats from reviews and stores them on
// tours.
func NewRatingAggregator(reviews RatingSource, tours RatingSink) *RatingAggregator {
	return &RatingAggregator{Reviews: reviews, Tours: tours}
}

// Recompute reads the tour's current reviews and rewrites its summary.
// Concurrent calls are last-writer-wins.
func (a *RatingAggregator) Recompute(ctx context.Context, tourID uint64) (model.RatingSummary, error) {
	counts, err := a.Reviews.RatingCounts(ctx, tourID)
	if err != nil {
		return model.RatingSummary{}, fmt.Errorf("rating counts of tour %d: %w", tourID, err)
	}
	sum := Summarize(counts)
	if err := a.Tours.UpdateRatings(ctx, tourID, sum); err != nil {
		return model.RatingSummary{}, fmt.Errorf("store ratings of tour %d: %w", tourID, err)
	}
	return sum, nil
}

// Summarize computes count, weighted mean and per-star breakdown.  With no
// reviews the tour falls back to quantity 0 and the default average.
func Summarize(counts []model.StarCount) model.RatingSummary {
	var (
		total    int
		weighted float64
	)
	breakdown := make([]model.StarCount, 0, len(counts))
	for _, c := range counts {
		if c.Total <= 0 {
			continue
		}
		total += c.Total
		weighted += c.Star * float64(c.Total)
		breakdown = append(breakdown, c)
	}
	if total == 0 {
		return model.RatingSummary{Average: model.DefaultRatingsAverage, Quantity: 0, Breakdown: []model.StarCount{}}
	}
	return model.RatingSummary{
		Average:   weighted / float64(total),
		Quantity:  total,
		Breakdown: breakdown,
	}
}
