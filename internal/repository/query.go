package repository

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

var operators = map[string]string{"gte": ">=", "gt": ">", "lte": "<=", "lt": "<"}

var filterKey = regexp.MustCompile(`^([A-Za-z]+)\[(gte|gt|lte|lt)\]$`)

// reserved query keys never treated as filters
var reserved = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}

// Filter is one comparison on a whitelisted column.
type Filter struct {
	Column string
	Op     string
	Value  string
}

// SortField orders by a whitelisted column.
type SortField struct {
	Column string
	Desc   bool
}

// ListQuery is a parsed listing request: filters, ordering, projection and
// pagination.  Only columns from the caller's whitelist ever reach SQL.
type ListQuery struct {
	Filters []Filter
	Sort    []SortField
	Fields  []string
	Page    int
	Limit   int
}

// ParseListQuery reads filters (`price[gte]=500`, `difficulty=easy`),
// `sort=-ratingsAverage,price`, `fields=name,price`, `page` and `limit`.
// allowed maps public field names to SQL columns; unknown names are
// dropped silently.
func ParseListQuery(q url.Values, allowed map[string]string) ListQuery {
	lq := ListQuery{Page: atoiDefault(q.Get("page"), 1), Limit: atoiDefault(q.Get("limit"), defaultPageLimit)}

	for key, vals := range q {
		if reserved[key] || len(vals) == 0 {
			continue
		}
		name, op := key, "="
		if m := filterKey.FindStringSubmatch(key); m != nil {
			name, op = m[1], operators[m[2]]
		}
		col, ok := allowed[name]
		if !ok {
			continue
		}
		lq.Filters = append(lq.Filters, Filter{Column: col, Op: op, Value: vals[0]})
	}
	// map iteration order is random; keep SQL stable
	sortFilters(lq.Filters)

	for _, part := range splitList(q.Get("sort")) {
		desc := strings.HasPrefix(part, "-")
		col, ok := allowed[strings.TrimPrefix(part, "-")]
		if !ok {
			continue
		}
		lq.Sort = append(lq.Sort, SortField{Column: col, Desc: desc})
	}
	for _, f := range splitList(q.Get("fields")) {
		if _, ok := allowed[f]; ok {
			lq.Fields = append(lq.Fields, f)
		}
	}
	return lq
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sortFilters orders by column then operator.
func sortFilters(fs []Filter) {
	sort.SliceStable(fs, func(i, j int) bool {
		if fs[i].Column != fs[j].Column {
			return fs[i].Column < fs[j].Column
		}
		return fs[i].Op < fs[j].Op
	})
}

func atoiDefault(s string, d int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return d
	}
	return n
}

// where renders the filters as a SQL WHERE clause (without the keyword).
func (lq ListQuery) where() (string, []any) {
	if len(lq.Filters) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(lq.Filters))
	args := make([]any, 0, len(lq.Filters))
	for _, f := range lq.Filters {
		parts = append(parts, f.Column+" "+f.Op+" ?")
		args = append(args, f.Value)
	}
	return strings.Join(parts, " AND "), args
}

// orderBy renders the sort fields, falling back to def.
func (lq ListQuery) orderBy(def string) string {
	if len(lq.Sort) == 0 {
		return def
	}
	parts := make([]string, 0, len(lq.Sort))
	for _, s := range lq.Sort {
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		parts = append(parts, s.Column+" "+dir)
	}
	return strings.Join(parts, ", ")
}

// pageBounds converts a 1-based page and a page size to LIMIT/OFFSET.
func pageBounds(page, limit int) (int, int) {
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}
