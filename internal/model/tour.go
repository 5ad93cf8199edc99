package model

import "time"

// Difficulty levels accepted for tours.
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// DefaultRatingsAverage is the average shown for a tour without reviews.
const DefaultRatingsAverage = 4.5

// Location is a point with an optional human description.
type Location struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Address     string  `json:"address,omitempty"`
	Description string  `json:"description,omitempty"`
}

// StarCount is the number of reviews that carry a given rating value.
type StarCount struct {
	Star  float64 `json:"star"`
	Total int     `json:"total"`
}

// RatingSummary is the derived rating rollup of a tour.  Only the rating
// aggregator writes it.
type RatingSummary struct {
	Average   float64     `json:"ratingsAverage"`
	Quantity  int         `json:"ratingsQuantity"`
	Breakdown []StarCount `json:"reviewsCount"`
}

// Tour represents a row of the `tours` table with its start dates.
type Tour struct {
	ID               uint64      `json:"id"`
	Name             string      `json:"name"`
	Slug             string      `json:"slug"`
	Duration         int         `json:"duration"`
	MaxGroupSize     int         `json:"maxGroupSize"`
	Difficulty       string      `json:"difficulty"`
	Price            float64     `json:"price"`
	PriceDiscount    float64     `json:"priceDiscount,omitempty"`
	Summary          string      `json:"summary"`
	Description      string      `json:"description,omitempty"`
	ImageCover       string      `json:"imageCover"`
	Images           []string    `json:"images"`
	StartDates       []time.Time `json:"startDates"`
	StartLocation    Location    `json:"startLocation"`
	RatingsAverage   float64     `json:"ratingsAverage"`
	RatingsQuantity  int         `json:"ratingsQuantity"`
	RatingsBreakdown []StarCount `json:"reviewsCount"`
	CreatedAt        time.Time   `json:"createdAt"`
}

// TourInput carries client-writable tour fields.  Rating fields are absent
// on purpose: they are derived.
type TourInput struct {
	Name          *string     `json:"name"`
	Duration      *int        `json:"duration"`
	MaxGroupSize  *int        `json:"maxGroupSize"`
	Difficulty    *string     `json:"difficulty"`
	Price         *float64    `json:"price"`
	PriceDiscount *float64    `json:"priceDiscount"`
	Summary       *string     `json:"summary"`
	Description   *string     `json:"description"`
	ImageCover    *string     `json:"imageCover"`
	Images        []string    `json:"images"`
	StartDates    []time.Time `json:"startDates"`
	StartLocation *Location   `json:"startLocation"`
}

// TourStat is one row of the difficulty statistics report.
type TourStat struct {
	Difficulty string  `json:"_id"`
	NumTours   int     `json:"numTours"`
	NumRatings int     `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// MonthlyPlan is one row of the yearly start-date report.
type MonthlyPlan struct {
	Month         int      `json:"month"`
	NumTourStarts int      `json:"numTourStarts"`
	Tours         []string `json:"tours"`
}

// TourDistance is a tour name with its distance from a point.
type TourDistance struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}
