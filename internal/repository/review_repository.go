package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Yoseph1994/adventurehub/internal/model"
)

// ReviewRepo persists reviews.  Reads join the author projection.
type ReviewRepo struct{ DB *sql.DB }

// NewReviewRepo returns a ReviewRepo over db.
func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db} }

const reviewSelect = `
	SELECT r.id, r.tour_id, r.user_id, r.review, r.rating, r.like_count, r.created_at,
	       u.id, u.name, u.photo, u.role, u.is_active
	FROM reviews r
	JOIN users u ON u.id = r.user_id`

func scanReview(row rowScanner) (model.Review, error) {
	var (
		rv   model.Review
		a    model.ReviewAuthor
		role string
	)
	err := row.Scan(&rv.ID, &rv.TourID, &rv.UserID, &rv.Review, &rv.Rating, &rv.LikeCount, &rv.CreatedAt,
		&a.ID, &a.Name, &a.Photo, &role, &a.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Review{}, ErrReviewNotFound
		}
		return model.Review{}, err
	}
	a.Role = model.Role(role)
	rv.Author = &a
	return rv, nil
}

// Create inserts a review.  A second review by the same user on the same
// tour yields ErrDuplicateReview.
func (r *ReviewRepo) Create(ctx context.Context, rv model.Review) (model.Review, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO reviews (tour_id, user_id, review, rating) VALUES (?,?,?,?)",
		rv.TourID, rv.UserID, strings.TrimSpace(rv.Review), rv.Rating)
	if err != nil {
		if isDuplicate(err) {
			return model.Review{}, ErrDuplicateReview
		}
		return model.Review{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Review{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches one review with its author.
func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (model.Review, error) {
	return scanReview(r.DB.QueryRowContext(ctx, reviewSelect+" WHERE r.id=? LIMIT 1", id))
}

// List returns reviews, newest first, optionally limited to one tour.
func (r *ReviewRepo) List(ctx context.Context, tourID *uint64) ([]model.Review, error) {
	q := reviewSelect
	var args []any
	if tourID != nil {
		q += " WHERE r.tour_id=?"
		args = append(args, *tourID)
	}
	q += " ORDER BY r.created_at DESC, r.id DESC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// Update applies the non-nil fields of p.
func (r *ReviewRepo) Update(ctx context.Context, id uint64, p model.ReviewPatch) (model.Review, error) {
	var (
		set  []string
		args []any
	)
	if p.Review != nil {
		set = append(set, "review=?")
		args = append(args, strings.TrimSpace(*p.Review))
	}
	if p.Rating != nil {
		set = append(set, "rating=?")
		args = append(args, *p.Rating)
	}
	if len(set) > 0 {
		args = append(args, id)
		if _, err := r.DB.ExecContext(ctx, "UPDATE reviews SET "+strings.Join(set, ",")+" WHERE id=?", args...); err != nil {
			return model.Review{}, err
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes a review.
func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM reviews WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrReviewNotFound
	}
	return nil
}

// RatingCounts returns, for one tour, how many reviews carry each rating
// value, in ascending rating order.
func (r *ReviewRepo) RatingCounts(ctx context.Context, tourID uint64) ([]model.StarCount, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT rating, COUNT(*) FROM reviews WHERE tour_id=? GROUP BY rating ORDER BY rating", tourID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.StarCount{}
	for rows.Next() {
		var sc model.StarCount
		if err := rows.Scan(&sc.Star, &sc.Total); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
