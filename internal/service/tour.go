package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/Yoseph1994/adventurehub/internal/apperr"
	"github.com/Yoseph1994/adventurehub/internal/model"
	"github.com/Yoseph1994/adventurehub/internal/repository"
)

const (
	MsgLatLng         = "Please provide latitude and longitude in the format lat,lng."
	MsgUnit           = "Unit must be either km or mi"
	MsgDistance       = "Distance must be a positive number"
	MsgYear           = "Year must be a number like 2021"
	MsgTourNameExists = "A tour with that name already exists"
	MsgPriceDiscount  = "Discount price should be below regular price"
)

// TourStore persists tours and runs the tour reports.
type TourStore interface {
	List(ctx context.Context, lq repository.ListQuery) ([]model.Tour, error)
	Within(ctx context.Context, lat, lng, meters float64) ([]model.Tour, error)
	GetByID(ctx context.Context, id uint64) (model.Tour, error)
	Create(ctx context.Context, in model.TourInput) (model.Tour, error)
	Update(ctx context.Context, id uint64, in model.TourInput) (model.Tour, error)
	Delete(ctx context.Context, id uint64) error
	DeleteAll(ctx context.Context) (int64, error)
	Stats(ctx context.Context) ([]model.TourStat, error)
	MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlan, error)
	Distances(ctx context.Context, lat, lng, multiplier float64) ([]model.TourDistance, error)
}

// ReviewLister lists the reviews of a tour.
type ReviewLister interface {
	List(ctx context.Context, tourID *uint64) ([]model.Review, error)
}

// TourService validates tour writes and parses the geo report parameters.
type TourService struct {
	Tours   TourStore
	Reviews ReviewLister
}

// NewTourService returns a TourService.  reviews feeds the embedded
// review list of a single tour.
func NewTourService(tours TourStore, reviews ReviewLister) *TourService {
	return &TourService{Tours: tours, Reviews: reviews}
}

// TourDetail is a tour with its reviews.
type TourDetail struct {
	model.Tour
	Reviews []model.Review `json:"reviews"`
}

var difficulties = []interface{}{"easy", "medium", "difficult"}

// validateTour checks in.  create makes the descriptive fields required;
// updates only validate what they carry.
func validateTour(in model.TourInput, create bool) error {
	required := func(rules ...validation.Rule) []validation.Rule {
		if create {
			return append([]validation.Rule{validation.Required}, rules...)
		}
		return append([]validation.Rule{validation.NilOrNotEmpty}, rules...)
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, required(validation.Length(10, 40))...),
		validation.Field(&in.Duration, required(validation.Min(1))...),
		validation.Field(&in.MaxGroupSize, required(validation.Min(1))...),
		validation.Field(&in.Difficulty, required(validation.In(difficulties...).Error("Difficulty is either: easy, medium, difficult"))...),
		validation.Field(&in.Price, required(validation.Min(0.0))...),
		validation.Field(&in.PriceDiscount, validation.Min(0.0)),
		validation.Field(&in.Summary, required()...),
		validation.Field(&in.ImageCover, required()...),
		validation.Field(&in.StartLocation, validation.By(validLocation)),
	)
}

func validLocation(value interface{}) error {
	loc, _ := value.(*model.Location)
	if loc == nil {
		return nil
	}
	return validation.ValidateStruct(loc,
		validation.Field(&loc.Lat, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&loc.Lng, validation.Min(-180.0), validation.Max(180.0)),
	)
}

// checkDiscount enforces priceDiscount < price.  A zero discount means
// none.
func checkDiscount(discount, price float64) error {
	if discount != 0 && discount >= price {
		return apperr.Validation(MsgPriceDiscount)
	}
	return nil
}

func tourErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrTourNotFound):
		return apperr.NotFound(MsgNoTour, err)
	case errors.Is(err, repository.ErrTourNameExists):
		return apperr.Conflict(MsgTourNameExists, err)
	}
	return err
}

// List runs a parsed listing query.
func (s *TourService) List(ctx context.Context, lq repository.ListQuery) ([]model.Tour, error) {
	return s.Tours.List(ctx, lq)
}

// Get returns a tour with its reviews.
func (s *TourService) Get(ctx context.Context, id uint64) (TourDetail, error) {
	t, err := s.Tours.GetByID(ctx, id)
	if err != nil {
		return TourDetail{}, tourErr(err)
	}
	reviews, err := s.Reviews.List(ctx, &id)
	if err != nil {
		return TourDetail{}, fmt.Errorf("list reviews: %w", err)
	}
	return TourDetail{Tour: t, Reviews: reviews}, nil
}

// Create validates and stores a new tour.
func (s *TourService) Create(ctx context.Context, in model.TourInput) (model.Tour, error) {
	if err := validateTour(in, true); err != nil {
		return model.Tour{}, invalid(err)
	}
	if in.PriceDiscount != nil {
		if err := checkDiscount(*in.PriceDiscount, *in.Price); err != nil {
			return model.Tour{}, err
		}
	}
	t, err := s.Tours.Create(ctx, in)
	if err != nil {
		return model.Tour{}, tourErr(err)
	}
	return t, nil
}

// Update changes the provided fields of a tour.  A discount is checked
// against the stored price when the input leaves price unchanged.
func (s *TourService) Update(ctx context.Context, id uint64, in model.TourInput) (model.Tour, error) {
	if err := validateTour(in, false); err != nil {
		return model.Tour{}, invalid(err)
	}
	if in.PriceDiscount != nil || in.Price != nil {
		current, err := s.Tours.GetByID(ctx, id)
		if err != nil {
			return model.Tour{}, tourErr(err)
		}
		discount, price := current.PriceDiscount, current.Price
		if in.PriceDiscount != nil {
			discount = *in.PriceDiscount
		}
		if in.Price != nil {
			price = *in.Price
		}
		if err := checkDiscount(discount, price); err != nil {
			return model.Tour{}, err
		}
	}
	t, err := s.Tours.Update(ctx, id, in)
	if err != nil {
		return model.Tour{}, tourErr(err)
	}
	return t, nil
}

// Delete removes one tour.
func (s *TourService) Delete(ctx context.Context, id uint64) error {
	return tourErr(s.Tours.Delete(ctx, id))
}

// DeleteAll removes every tour.
func (s *TourService) DeleteAll(ctx context.Context) (int64, error) {
	return s.Tours.DeleteAll(ctx)
}

// Stats groups highly rated tours by difficulty.
func (s *TourService) Stats(ctx context.Context) ([]model.TourStat, error) {
	return s.Tours.Stats(ctx)
}

// MonthlyPlan counts tour starts per month of year.
func (s *TourService) MonthlyPlan(ctx context.Context, year string) ([]model.MonthlyPlan, error) {
	y, err := strconv.Atoi(year)
	if err != nil || y < 1 || y > 9999 {
		return nil, apperr.Validation(MsgYear)
	}
	return s.Tours.MonthlyPlan(ctx, y)
}

// Within returns tours starting within distance (in unit) of latlng.
func (s *TourService) Within(ctx context.Context, distance, latlng, unit string) ([]model.Tour, error) {
	lat, lng, err := ParseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	perUnit, _, err := ParseUnit(unit)
	if err != nil {
		return nil, err
	}
	d, err := strconv.ParseFloat(distance, 64)
	if err != nil || d <= 0 {
		return nil, apperr.Validation(MsgDistance)
	}
	return s.Tours.Within(ctx, lat, lng, d*perUnit)
}

// Distances returns each tour's distance from latlng in unit.
func (s *TourService) Distances(ctx context.Context, latlng, unit string) ([]model.TourDistance, error) {
	lat, lng, err := ParseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	_, multiplier, err := ParseUnit(unit)
	if err != nil {
		return nil, err
	}
	return s.Tours.Distances(ctx, lat, lng, multiplier)
}

// ParseLatLng reads "lat,lng".
func ParseLatLng(s string) (lat, lng float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, apperr.Validation(MsgLatLng)
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || validation.Validate(lat, validation.Min(-90.0), validation.Max(90.0)) != nil ||
		validation.Validate(lng, validation.Min(-180.0), validation.Max(180.0)) != nil {
		return 0, 0, apperr.Validation(MsgLatLng)
	}
	return lat, lng, nil
}

// ParseUnit returns the meters in one unit and the meters-to-unit
// multiplier for "mi" or "km".
func ParseUnit(unit string) (perUnit, multiplier float64, err error) {
	switch unit {
	case "mi":
		return 1609.344, 0.000621371, nil
	case "km":
		return 1000, 0.001, nil
	}
	return 0, 0, apperr.Validation(MsgUnit)
}

// Project reduces tours to the requested public fields.  id is always
// kept.  No fields means the full documents.
func Project(tours []model.Tour, fields []string) ([]any, error) {
	out := make([]any, 0, len(tours))
	if len(fields) == 0 {
		for _, t := range tours {
			out = append(out, t)
		}
		return out, nil
	}
	for _, t := range tours {
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		var full map[string]json.RawMessage
		if err := json.Unmarshal(b, &full); err != nil {
			return nil, err
		}
		doc := map[string]json.RawMessage{"id": full["id"]}
		for _, f := range fields {
			if v, ok := full[f]; ok {
				doc[f] = v
			}
		}
		out = append(out, doc)
	}
	return out, nil
}
