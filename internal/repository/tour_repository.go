package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Yoseph1994/adventurehub/internal/model"
)

// TourColumns maps public tour field names to SQL columns for filtering,
// sorting and projection.
var TourColumns = map[string]string{
	"id":              "t.id",
	"name":            "t.name",
	"slug":            "t.slug",
	"duration":        "t.duration",
	"maxGroupSize":    "t.max_group_size",
	"difficulty":      "t.difficulty",
	"price":           "t.price",
	"priceDiscount":   "t.price_discount",
	"summary":         "t.summary",
	"imageCover":      "t.image_cover",
	"ratingsAverage":  "t.ratings_average",
	"ratingsQuantity": "t.ratings_quantity",
	"createdAt":       "t.created_at",
}

const tourColumns = "t.id,t.name,t.slug,t.duration,t.max_group_size,t.difficulty,t.price,t.price_discount," +
	"t.summary,COALESCE(t.description,''),t.image_cover,t.images,t.start_lat,t.start_lng,t.start_address," +
	"t.start_description,t.ratings_average,t.ratings_quantity,t.ratings_breakdown,t.created_at"

// TourRepo persists tours and their start dates.
type TourRepo struct{ DB *sql.DB }

// NewTourRepo returns a TourRepo over db.
func NewTourRepo(db *sql.DB) *TourRepo { return &TourRepo{DB: db} }

func scanTour(row rowScanner) (model.Tour, error) {
	var (
		t                 model.Tour
		images, breakdown []byte
	)
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Duration, &t.MaxGroupSize, &t.Difficulty, &t.Price,
		&t.PriceDiscount, &t.Summary, &t.Description, &t.ImageCover, &images, &t.StartLocation.Lat,
		&t.StartLocation.Lng, &t.StartLocation.Address, &t.StartLocation.Description, &t.RatingsAverage,
		&t.RatingsQuantity, &breakdown, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Tour{}, ErrTourNotFound
		}
		return model.Tour{}, err
	}
	t.Images = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &t.Images); err != nil {
			return model.Tour{}, fmt.Errorf("decode images of tour %d: %w", t.ID, err)
		}
	}
	t.RatingsBreakdown = []model.StarCount{}
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &t.RatingsBreakdown); err != nil {
			return model.Tour{}, fmt.Errorf("decode ratings of tour %d: %w", t.ID, err)
		}
	}
	t.StartDates = []time.Time{}
	return t, nil
}

// List returns tours matching lq.
func (r *TourRepo) List(ctx context.Context, lq ListQuery) ([]model.Tour, error) {
	q := "SELECT " + tourColumns + " FROM tours t"
	where, args := lq.where()
	if where != "" {
		q += " WHERE " + where
	}
	limit, offset := pageBounds(lq.Page, lq.Limit)
	q += " ORDER BY " + lq.orderBy("t.created_at DESC, t.id DESC") + " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	return r.query(ctx, q, args...)
}

// Within returns tours whose start location lies within meters of the point.
func (r *TourRepo) Within(ctx context.Context, lat, lng, meters float64) ([]model.Tour, error) {
	return r.query(ctx, "SELECT "+tourColumns+" FROM tours t "+
		"WHERE ST_Distance_Sphere(POINT(t.start_lng, t.start_lat), POINT(?, ?)) <= ? ORDER BY t.id",
		lng, lat, meters)
}

func (r *TourRepo) query(ctx context.Context, q string, args ...any) ([]model.Tour, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tours := []model.Tour{}
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachStartDates(ctx, tours); err != nil {
		return nil, err
	}
	return tours, nil
}

func (r *TourRepo) attachStartDates(ctx context.Context, tours []model.Tour) error {
	if len(tours) == 0 {
		return nil
	}
	idx := make(map[uint64]int, len(tours))
	ph := make([]string, 0, len(tours))
	args := make([]any, 0, len(tours))
	for i, t := range tours {
		idx[t.ID] = i
		ph = append(ph, "?")
		args = append(args, t.ID)
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT tour_id, starts_at FROM tour_start_dates WHERE tour_id IN ("+strings.Join(ph, ",")+") ORDER BY starts_at",
		args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id uint64
			at time.Time
		)
		if err := rows.Scan(&id, &at); err != nil {
			return err
		}
		if i, ok := idx[id]; ok {
			tours[i].StartDates = append(tours[i].StartDates, at)
		}
	}
	return rows.Err()
}

// GetByID fetches one tour with its start dates.
func (r *TourRepo) GetByID(ctx context.Context, id uint64) (model.Tour, error) {
	tours, err := r.query(ctx, "SELECT "+tourColumns+" FROM tours t WHERE t.id=? LIMIT 1", id)
	if err != nil {
		return model.Tour{}, err
	}
	if len(tours) == 0 {
		return model.Tour{}, ErrTourNotFound
	}
	return tours[0], nil
}

// Create inserts a tour and its start dates in one transaction.
func (r *TourRepo) Create(ctx context.Context, in model.TourInput) (model.Tour, error) {
	cols, args, err := tourAssignments(in)
	if err != nil {
		return model.Tour{}, err
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Tour{}, err
	}
	defer func() { _ = tx.Rollback() }()

	ph := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	res, err := tx.ExecContext(ctx, "INSERT INTO tours ("+strings.Join(cols, ",")+") VALUES ("+ph+")", args...)
	if err != nil {
		if isDuplicate(err) {
			return model.Tour{}, ErrTourNameExists
		}
		return model.Tour{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Tour{}, err
	}
	if err := replaceStartDates(ctx, tx, uint64(id), in.StartDates); err != nil {
		return model.Tour{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Tour{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// Update changes the provided fields of a tour.  Start dates are replaced
// when the input carries any.
func (r *TourRepo) Update(ctx context.Context, id uint64, in model.TourInput) (model.Tour, error) {
	cols, args, err := tourAssignments(in)
	if err != nil {
		return model.Tour{}, err
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Tour{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists uint64
	if err := tx.QueryRowContext(ctx, "SELECT id FROM tours WHERE id=? FOR UPDATE", id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Tour{}, ErrTourNotFound
		}
		return model.Tour{}, err
	}
	if len(cols) > 0 {
		set := make([]string, len(cols))
		for i, c := range cols {
			set[i] = c + "=?"
		}
		args = append(args, id)
		if _, err := tx.ExecContext(ctx, "UPDATE tours SET "+strings.Join(set, ",")+" WHERE id=?", args...); err != nil {
			if isDuplicate(err) {
				return model.Tour{}, ErrTourNameExists
			}
			return model.Tour{}, err
		}
	}
	if in.StartDates != nil {
		if err := replaceStartDates(ctx, tx, id, in.StartDates); err != nil {
			return model.Tour{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Tour{}, err
	}
	return r.GetByID(ctx, id)
}

func replaceStartDates(ctx context.Context, tx *sql.Tx, id uint64, dates []time.Time) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM tour_start_dates WHERE tour_id=?", id); err != nil {
		return err
	}
	for _, d := range dates {
		if _, err := tx.ExecContext(ctx,
			"INSERT IGNORE INTO tour_start_dates (tour_id, starts_at) VALUES (?,?)", id, d.UTC()); err != nil {
			return err
		}
	}
	return nil
}

// tourAssignments lists the columns and values for the non-nil fields of
// in.  Rating columns are never part of it.
func tourAssignments(in model.TourInput) ([]string, []any, error) {
	var (
		cols []string
		args []any
	)
	add := func(c string, v any) {
		cols = append(cols, c)
		args = append(args, v)
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		add("name", name)
		add("slug", Slugify(name))
	}
	if in.Duration != nil {
		add("duration", *in.Duration)
	}
	if in.MaxGroupSize != nil {
		add("max_group_size", *in.MaxGroupSize)
	}
	if in.Difficulty != nil {
		add("difficulty", *in.Difficulty)
	}
	if in.Price != nil {
		add("price", *in.Price)
	}
	if in.PriceDiscount != nil {
		add("price_discount", *in.PriceDiscount)
	}
	if in.Summary != nil {
		add("summary", strings.TrimSpace(*in.Summary))
	}
	if in.Description != nil {
		add("description", strings.TrimSpace(*in.Description))
	}
	if in.ImageCover != nil {
		add("image_cover", *in.ImageCover)
	}
	if in.Images != nil {
		b, err := json.Marshal(in.Images)
		if err != nil {
			return nil, nil, err
		}
		add("images", b)
	}
	if loc := in.StartLocation; loc != nil {
		add("start_lat", loc.Lat)
		add("start_lng", loc.Lng)
		add("start_address", loc.Address)
		add("start_description", loc.Description)
	}
	return cols, args, nil
}

// Slugify lower-cases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

// Delete removes one tour; reviews, bookings and dates cascade.
func (r *TourRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM tours WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTourNotFound
	}
	return nil
}

// DeleteAll removes every tour and returns how many were deleted.
func (r *TourRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM tours")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateRatings stores a recomputed rating summary.  It is the only writer
// of the rating columns.
func (r *TourRepo) UpdateRatings(ctx context.Context, id uint64, s model.RatingSummary) error {
	breakdown := s.Breakdown
	if breakdown == nil {
		breakdown = []model.StarCount{}
	}
	b, err := json.Marshal(breakdown)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE tours SET ratings_average=?, ratings_quantity=?, ratings_breakdown=? WHERE id=?",
		s.Average, s.Quantity, b, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// unchanged rows also report 0
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Stats groups well-rated tours (average >= 4.5) by difficulty.
func (r *TourRepo) Stats(ctx context.Context) ([]model.TourStat, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT UPPER(difficulty) AS d, COUNT(*), COALESCE(SUM(ratings_quantity),0),
		       AVG(ratings_average), AVG(price), MIN(price), MAX(price)
		FROM tours
		WHERE ratings_average >= ?
		GROUP BY d
		ORDER BY AVG(price) ASC`, model.DefaultRatingsAverage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stats := []model.TourStat{}
	for rows.Next() {
		var s model.TourStat
		if err := rows.Scan(&s.Difficulty, &s.NumTours, &s.NumRatings, &s.AvgRating, &s.AvgPrice, &s.MinPrice, &s.MaxPrice); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// MonthlyPlan counts tour starts per month of year, busiest month first.
func (r *TourRepo) MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlan, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows, err := r.DB.QueryContext(ctx, `
		SELECT MONTH(sd.starts_at) AS m, COUNT(*) AS n, GROUP_CONCAT(t.name ORDER BY t.name SEPARATOR '\n')
		FROM tour_start_dates sd
		JOIN tours t ON t.id = sd.tour_id
		WHERE sd.starts_at >= ? AND sd.starts_at < ?
		GROUP BY m
		ORDER BY n DESC, m ASC
		LIMIT 12`, from, from.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	plan := []model.MonthlyPlan{}
	for rows.Next() {
		var (
			p     model.MonthlyPlan
			names string
		)
		if err := rows.Scan(&p.Month, &p.NumTourStarts, &names); err != nil {
			return nil, err
		}
		p.Tours = strings.Split(names, "\n")
		plan = append(plan, p)
	}
	return plan, rows.Err()
}

// Distances returns every tour's distance from the point in meters times
// multiplier, nearest first.
func (r *TourRepo) Distances(ctx context.Context, lat, lng, multiplier float64) ([]model.TourDistance, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, ST_Distance_Sphere(POINT(start_lng, start_lat), POINT(?, ?)) * ? AS distance
		FROM tours
		ORDER BY distance ASC`, lng, lat, multiplier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.TourDistance{}
	for rows.Next() {
		var d model.TourDistance
		if err := rows.Scan(&d.ID, &d.Name, &d.Distance); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
