package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Yoseph1994/adventurehub/internal/apperr"
	"github.com/Yoseph1994/adventurehub/internal/model"
	"github.com/Yoseph1994/adventurehub/internal/repository"
)

// geoTours records the arguments of the geo queries on top of memoryTours.
type geoTours struct {
	*memoryTours
	lat, lng, meters, multiplier float64
	year                         int
	created, updated             *model.TourInput
}

func (g *geoTours) List(ctx context.Context, lq repository.ListQuery) ([]model.Tour, error) {
	return nil, nil
}

func (g *geoTours) Within(ctx context.Context, lat, lng, meters float64) ([]model.Tour, error) {
	g.lat, g.lng, g.meters = lat, lng, meters
	return []model.Tour{}, nil
}

func (g *geoTours) Create(ctx context.Context, in model.TourInput) (model.Tour, error) {
	g.created = &in
	return model.Tour{ID: 99, Name: *in.Name}, nil
}

func (g *geoTours) Update(ctx context.Context, id uint64, in model.TourInput) (model.Tour, error) {
	if _, err := g.GetByID(ctx, id); err != nil {
		return model.Tour{}, err
	}
	g.updated = &in
	return g.GetByID(ctx, id)
}

func (g *geoTours) Delete(ctx context.Context, id uint64) error {
	if _, err := g.GetByID(ctx, id); err != nil {
		return err
	}
	return nil
}

func (g *geoTours) DeleteAll(ctx context.Context) (int64, error) { return 0, nil }

func (g *geoTours) Stats(ctx context.Context) ([]model.TourStat, error) { return nil, nil }

func (g *geoTours) MonthlyPlan(ctx context.Context, year int) ([]model.MonthlyPlan, error) {
	g.year = year
	return nil, nil
}

func (g *geoTours) Distances(ctx context.Context, lat, lng, multiplier float64) ([]model.TourDistance, error) {
	g.lat, g.lng, g.multiplier = lat, lng, multiplier
	return nil, nil
}

func newTourFixture() (*TourService, *geoTours, *memoryReviews) {
	tours := &geoTours{memoryTours: newMemoryTours(model.Tour{ID: 1, Name: "The Forest Hiker", Price: 397, PriceDiscount: 0})}
	reviews := newMemoryReviews()
	return NewTourService(tours, reviews), tours, reviews
}

func ptr[T any](v T) *T { return &v }

func validTour() model.TourInput {
	return model.TourInput{
		Name:         ptr("The Park Camper"),
		Duration:     ptr(10),
		MaxGroupSize: ptr(15),
		Difficulty:   ptr("medium"),
		Price:        ptr(1497.0),
		Summary:      ptr("Breathing in Nature in America's most spectacular National Parks"),
		ImageCover:   ptr("tour-7-cover.jpg"),
	}
}

func TestCreateTourValidation(t *testing.T) {
	svc, store, _ := newTourFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, validTour())
	require.NoError(t, err)
	require.NotNil(t, store.created)

	short := validTour()
	short.Name = ptr("Short")
	_, err = svc.Create(ctx, short)
	requireKind(t, err, apperr.KindValidation, "")

	hard := validTour()
	hard.Difficulty = ptr("extreme")
	_, err = svc.Create(ctx, hard)
	requireKind(t, err, apperr.KindValidation, "")

	missing := validTour()
	missing.ImageCover = nil
	_, err = svc.Create(ctx, missing)
	requireKind(t, err, apperr.KindValidation, "")

	discount := validTour()
	discount.PriceDiscount = ptr(1497.0)
	_, err = svc.Create(ctx, discount)
	requireKind(t, err, apperr.KindValidation, MsgPriceDiscount)
}

func TestUpdateTourChecksDiscountAgainstStoredPrice(t *testing.T) {
	svc, store, _ := newTourFixture()
	ctx := context.Background()

	_, err := svc.Update(ctx, 1, model.TourInput{PriceDiscount: ptr(500.0)})
	requireKind(t, err, apperr.KindValidation, MsgPriceDiscount)
	require.Nil(t, store.updated)

	_, err = svc.Update(ctx, 1, model.TourInput{PriceDiscount: ptr(500.0), Price: ptr(800.0)})
	require.NoError(t, err)

	// Updates validate only what they carry.
	_, err = svc.Update(ctx, 1, model.TourInput{Summary: ptr("New summary")})
	require.NoError(t, err)

	_, err = svc.Update(ctx, 7, model.TourInput{Summary: ptr("x")})
	requireKind(t, err, apperr.KindNotFound, MsgNoTour)
}

func TestGetTourIncludesReviews(t *testing.T) {
	svc, _, reviews := newTourFixture()
	ctx := context.Background()
	_, err := reviews.Create(ctx, model.Review{TourID: 1, UserID: 1, Review: "Lovely", Rating: 5})
	require.NoError(t, err)

	d, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "The Forest Hiker", d.Name)
	require.Len(t, d.Reviews, 1)

	_, err = svc.Get(ctx, 2)
	requireKind(t, err, apperr.KindNotFound, MsgNoTour)
}

func TestGeoParameters(t *testing.T) {
	svc, store, _ := newTourFixture()
	ctx := context.Background()

	_, err := svc.Within(ctx, "200", "34.11,-118.11", "mi")
	require.NoError(t, err)
	require.Equal(t, 34.11, store.lat)
	require.Equal(t, -118.11, store.lng)
	require.InDelta(t, 200*1609.344, store.meters, 1e-6)

	_, err = svc.Within(ctx, "5", "34.11,-118.11", "km")
	require.NoError(t, err)
	require.InDelta(t, 5000, store.meters, 1e-6)

	_, err = svc.Distances(ctx, "34.11,-118.11", "mi")
	require.NoError(t, err)
	require.Equal(t, 0.000621371, store.multiplier)

	_, err = svc.Distances(ctx, "34.11,-118.11", "yd")
	requireKind(t, err, apperr.KindValidation, MsgUnit)
	_, err = svc.Distances(ctx, "34.11", "km")
	requireKind(t, err, apperr.KindValidation, MsgLatLng)
	_, err = svc.Within(ctx, "-1", "34.11,-118.11", "km")
	requireKind(t, err, apperr.KindValidation, MsgDistance)
	_, _, err = ParseLatLng("95,10")
	requireKind(t, err, apperr.KindValidation, MsgLatLng)

	_, err = svc.MonthlyPlan(ctx, "2021")
	require.NoError(t, err)
	require.Equal(t, 2021, store.year)
	_, err = svc.MonthlyPlan(ctx, "next")
	requireKind(t, err, apperr.KindValidation, MsgYear)
}

func TestProjectKeepsRequestedFields(t *testing.T) {
	tours := []model.Tour{{ID: 4, Name: "The Sea Explorer", Price: 497, Summary: "Exploring the jaw-dropping US east coast"}}

	out, err := Project(tours, []string{"name", "price"})
	require.NoError(t, err)
	b, err := json.Marshal(out)
	require.NoError(t, err)
	require.JSONEq(t, `[{"id":4,"name":"The Sea Explorer","price":497}]`, string(b))

	full, err := Project(tours, nil)
	require.NoError(t, err)
	require.IsType(t, model.Tour{}, full[0])
}
