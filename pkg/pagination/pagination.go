package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// FromRequest reads ?page= and ?limit=. Missing or invalid values fall back to
// page 1 and DefaultLimit; limit is capped at MaxLimit.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	p := Params{Page: 1, Limit: DefaultLimit}

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		p.Limit = min(v, MaxLimit)
	}

	p.Offset = (p.Page - 1) * p.Limit
	return p
}
