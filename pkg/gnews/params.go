package gnews

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Params holds query parameters keyed by name. A nil value, or a nil pointer,
// marks the parameter as absent and it is not sent.
type Params map[string]any

// Category is a top-headlines category.
type Category string

const (
	CategoryGeneral       Category = "general"
	CategoryWorld         Category = "world"
	CategoryNation        Category = "nation"
	CategoryBusiness      Category = "business"
	CategoryTechnology    Category = "technology"
	CategoryEntertainment Category = "entertainment"
	CategorySports        Category = "sports"
	CategoryScience       Category = "science"
	CategoryHealth        Category = "health"
)

// Categories lists every category the API documents.
var Categories = []Category{
	CategoryGeneral, CategoryWorld, CategoryNation, CategoryBusiness, CategoryTechnology,
	CategoryEntertainment, CategorySports, CategoryScience, CategoryHealth,
}

// Valid reports whether c is a documented category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// SortBy is the ordering of search results.
type SortBy string

const (
	SortByRelevance   SortBy = "relevance"
	SortByDate        SortBy = "date"
	SortByPublishTime SortBy = "publish-time"
)

// SortOrders lists every documented search ordering.
var SortOrders = []SortBy{SortByRelevance, SortByDate, SortByPublishTime}

// Valid reports whether s is a documented ordering.
func (s SortBy) Valid() bool {
	for _, known := range SortOrders {
		if s == known {
			return true
		}
	}
	return false
}

// HeadlinesQuery names every parameter top-headlines recognizes. Zero values are omitted.
type HeadlinesQuery struct {
	Lang     string
	Country  string
	Max      int
	Category Category
	In       string
	Nullable string
	From     string
	To       string
	Page     int
	Expand   string
}

// Params converts q to the generic parameter map.
func (q HeadlinesQuery) Params() Params {
	p := Params{}
	setString(p, "lang", q.Lang)
	setString(p, "country", q.Country)
	setInt(p, "max", q.Max)
	setString(p, "category", string(q.Category))
	setString(p, "in", q.In)
	setString(p, "nullable", q.Nullable)
	setString(p, "from", q.From)
	setString(p, "to", q.To)
	setInt(p, "page", q.Page)
	setString(p, "expand", q.Expand)
	return p
}

// SearchQuery names every parameter search recognizes. Q is mandatory when the
// map is used with SearchParams.
type SearchQuery struct {
	HeadlinesQuery
	Q      string
	SortBy SortBy
}

// Params converts q to the generic parameter map.
func (q SearchQuery) Params() Params {
	p := q.HeadlinesQuery.Params()
	setString(p, "q", q.Q)
	setString(p, "sortby", string(q.SortBy))
	return p
}

func setString(p Params, key, val string) {
	if strings.TrimSpace(val) != "" {
		p[key] = val
	}
}

func setInt(p Params, key string, val int) {
	if val != 0 {
		p[key] = val
	}
}

// formatValue renders a scalar parameter. ok is false when the value is absent.
func formatValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case fmt.Stringer:
		if isNilPointer(v) {
			return "", false
		}
		return val.String(), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return "", false
		}
		return formatValue(rv.Elem().Interface())
	case reflect.String:
		return rv.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	}
	return fmt.Sprint(v), true
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
