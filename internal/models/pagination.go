package models

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps the request to sane bounds.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

type Page[T any] struct {
	Docs       []T   `json:"docs"`
	TotalDocs  int64 `json:"totalDocs"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func NewPage[T any](docs []T, total int64, req PageRequest) Page[T] {
	if docs == nil {
		docs = []T{}
	}
	pages := 0
	if req.Limit > 0 {
		pages = int((total + int64(req.Limit) - 1) / int64(req.Limit))
	}
	return Page[T]{
		Docs:       docs,
		TotalDocs:  total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: pages,
	}
}
