package pagination

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Params represents pagination parameters. Order is the ORDER BY clause for Sort
// and only ever holds a value from Options.Sorts.
type Params struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Sort   string `json:"sort,omitempty"`
	Offset int    `json:"-"`
	Order  string `json:"-"`
}

// Meta represents pagination metadata
type Meta struct {
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Sort       string `json:"sort,omitempty"`
	Total      int64  `json:"total"`
	TotalPages int    `json:"total_pages"`
	HasNext    bool   `json:"has_next"`
	HasPrev    bool   `json:"has_prev"`
}

// DefaultLimit is the default number of items per page
const DefaultLimit = 20

// MaxLimit is the maximum number of items per page
const MaxLimit = 100

// Options configures paging for one listing. Sorts maps the ?sort= values the
// listing accepts to ORDER BY clauses.
type Options struct {
	DefaultLimit int
	MaxLimit     int
	Sorts        map[string]string
	DefaultSort  string
}

// Per-listing options. Catalog pages are long, history-style listings are newest first.
var (
	Assets = Options{
		DefaultLimit: DefaultLimit,
		MaxLimit:     MaxLimit,
		DefaultSort:  "newest",
		Sorts: map[string]string{
			"newest": "id DESC",
			"oldest": "id ASC",
			"tag":    "tag ASC",
			"name":   "name ASC, id ASC",
			"status": "status ASC, id DESC",
		},
	}

	Loans = Options{
		DefaultLimit: DefaultLimit,
		MaxLimit:     MaxLimit,
		DefaultSort:  "newest",
		Sorts: map[string]string{
			"newest": "id DESC",
			"oldest": "id ASC",
			"due":    "return_date ASC, id ASC",
		},
	}

	Books = Options{
		DefaultLimit: 50,
		MaxLimit:     200,
		DefaultSort:  "title",
		Sorts: map[string]string{
			"title":  "title ASC, id ASC",
			"author": "author ASC, title ASC",
			"newest": "id DESC",
		},
	}

	Users = Options{
		DefaultLimit: DefaultLimit,
		MaxLimit:     MaxLimit,
	}
)

// UnknownSortError reports a ?sort= value the listing does not accept
type UnknownSortError struct {
	Sort    string
	Allowed []string
}

func (e *UnknownSortError) Error() string {
	return fmt.Sprintf("unknown sort %q, use one of: %s", e.Sort, strings.Join(e.Allowed, ", "))
}

// GetParams extracts pagination parameters with the package defaults and no sorting
func GetParams(c *fiber.Ctx) *Params {
	params, _ := Users.Parse(c)
	return params
}

// Parse extracts page, limit and sort for this listing. Only the sort can fail;
// a bad page or limit falls back to the defaults.
func (o Options) Parse(c *fiber.Ctx) (*Params, error) {
	defaultLimit, maxLimit := o.DefaultLimit, o.MaxLimit
	if defaultLimit < 1 {
		defaultLimit = DefaultLimit
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	params := &Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if len(o.Sorts) == 0 {
		return params, nil
	}

	key := c.Query("sort", o.DefaultSort)
	order, ok := o.Sorts[key]
	if !ok {
		return nil, &UnknownSortError{Sort: key, Allowed: o.sortKeys()}
	}
	params.Sort = key
	params.Order = order
	return params, nil
}

func (o Options) sortKeys() []string {
	keys := make([]string, 0, len(o.Sorts))
	for k := range o.Sorts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetMeta calculates pagination metadata
func GetMeta(params *Params, total int64) *Meta {
	totalPages := int(total) / params.Limit
	if int(total)%params.Limit > 0 {
		totalPages++
	}

	return &Meta{
		Page:       params.Page,
		Limit:      params.Limit,
		Sort:       params.Sort,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}

// Response represents paginated response
type Response struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta"`
}

// NewResponse creates a new paginated response
func NewResponse(data interface{}, params *Params, total int64) *Response {
	return &Response{
		Data: data,
		Meta: GetMeta(params, total),
	}
}
