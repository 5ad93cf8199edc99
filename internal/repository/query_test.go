package repository

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

var testColumns = map[string]string{
	"price":          "t.price",
	"difficulty":     "t.difficulty",
	"ratingsAverage": "t.ratings_average",
	"name":           "t.name",
}

func TestParseListQuery(t *testing.T) {
	q, err := url.ParseQuery("price[gte]=500&price[lt]=1500&difficulty=easy&secret=1&sort=-ratingsAverage,price,bogus&fields=name,price,password&page=3&limit=10")
	require.NoError(t, err)

	lq := ParseListQuery(q, testColumns)

	require.Equal(t, []Filter{
		{Column: "t.difficulty", Op: "=", Value: "easy"},
		{Column: "t.price", Op: "<", Value: "1500"},
		{Column: "t.price", Op: ">=", Value: "500"},
	}, lq.Filters)
	require.Equal(t, []SortField{{Column: "t.ratings_average", Desc: true}, {Column: "t.price"}}, lq.Sort)
	require.Equal(t, []string{"name", "price"}, lq.Fields)
	require.Equal(t, 3, lq.Page)
	require.Equal(t, 10, lq.Limit)

	where, args := lq.where()
	require.Equal(t, "t.difficulty = ? AND t.price < ? AND t.price >= ?", where)
	require.Equal(t, []any{"easy", "1500", "500"}, args)
	require.Equal(t, "t.ratings_average DESC, t.price ASC", lq.orderBy("t.id DESC"))
}

func TestParseListQueryDefaults(t *testing.T) {
	lq := ParseListQuery(url.Values{"page": {"-1"}, "limit": {"abc"}}, testColumns)

	require.Empty(t, lq.Filters)
	require.Equal(t, 1, lq.Page)
	require.Equal(t, defaultPageLimit, lq.Limit)
	where, args := lq.where()
	require.Empty(t, where)
	require.Nil(t, args)
	require.Equal(t, "t.id DESC", lq.orderBy("t.id DESC"))
}

func TestSortFiltersIsStable(t *testing.T) {
	fs := []Filter{
		{Column: "t.price", Op: ">=", Value: "500"},
		{Column: "t.difficulty", Op: "=", Value: "hard"},
		{Column: "t.price", Op: "<", Value: "1500"},
		{Column: "t.difficulty", Op: "=", Value: "easy"},
	}
	sortFilters(fs)

	require.Equal(t, []Filter{
		{Column: "t.difficulty", Op: "=", Value: "hard"},
		{Column: "t.difficulty", Op: "=", Value: "easy"},
		{Column: "t.price", Op: "<", Value: "1500"},
		{Column: "t.price", Op: ">=", Value: "500"},
	}, fs)
}

func TestPageBounds(t *testing.T) {
	limit, offset := pageBounds(3, 10)
	require.Equal(t, 10, limit)
	require.Equal(t, 20, offset)

	limit, offset = pageBounds(0, 5000)
	require.Equal(t, maxPageLimit, limit)
	require.Equal(t, 0, offset)
}
