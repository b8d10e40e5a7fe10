// Package search finds properties within a radius of a point, ordered by
// great-circle distance.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/iliyamo/lodging-listings/internal/model"
	"github.com/iliyamo/lodging-listings/internal/pricing"
)

const (
	// DefaultLimit caps results when the caller does not paginate.  It is a
	// cut-off, not a completeness guarantee: Result.Matched tells how many
	// properties were inside the radius.
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrInvalidQuery wraps every query validation failure.
var ErrInvalidQuery = errors.New("invalid search query")

// Candidate is a property that may match a search.  Only properties with
// coordinates are candidates.
type Candidate struct {
	ID            uint64             `json:"id"`
	Name          string             `json:"name"`
	City          string             `json:"city"`
	Country       string             `json:"country"`
	Coordinates   model.GeoPoint     `json:"coordinates"`
	PropertyType  model.PropertyType `json:"property_type"`
	GuestCapacity int                `json:"guest_capacity"`
	StarRating    *float64           `json:"star_rating,omitempty"`
}

// Listing is the per-property detail attached to hits after ranking.
type Listing struct {
	Rooms        []model.RoomSummary
	PrimaryImage *model.Image
}

// Source supplies candidates and their listing details.  A nil or empty
// cells slice asks for every property with coordinates; otherwise only
// properties whose geohash starts with one of the cells are needed.
type Source interface {
	Candidates(ctx context.Context, cells []string) ([]Candidate, error)
	Listings(ctx context.Context, ids []uint64) (map[uint64]Listing, error)
}

// Query is one search request.  Guests and PropertyType are optional
// (zero means no filter).  Limit 0 applies DefaultLimit.
type Query struct {
	Latitude     float64
	Longitude    float64
	RadiusKm     float64
	Guests       int
	PropertyType model.PropertyType
	Limit        int
	Offset       int
}

// Hit is a matching property with its distance from the query point.
type Hit struct {
	Candidate
	Distance     float64             `json:"distance"`
	Rooms        []model.RoomSummary `json:"rooms"`
	DisplayPrice model.DisplayPrice  `json:"display_price"`
	PrimaryImage *model.Image        `json:"primary_image,omitempty"`
}

// Result is one page of hits.
type Result struct {
	Hits     []Hit   `json:"items"`
	Matched  int     `json:"matched"`
	RadiusKm float64 `json:"radius_km"`
	Widened  bool    `json:"widened"`
}

func (q Query) validate() error {
	switch {
	case math.IsNaN(q.Latitude) || q.Latitude < -90 || q.Latitude > 90:
		return fmt.Errorf("%w: latitude must be within [-90, 90]", ErrInvalidQuery)
	case math.IsNaN(q.Longitude) || q.Longitude < -180 || q.Longitude > 180:
		return fmt.Errorf("%w: longitude must be within [-180, 180]", ErrInvalidQuery)
	case math.IsNaN(q.RadiusKm) || math.IsInf(q.RadiusKm, 0) || q.RadiusKm <= 0:
		return fmt.Errorf("%w: radius must be a positive number of kilometres", ErrInvalidQuery)
	case q.Guests < 0:
		return fmt.Errorf("%w: guests must not be negative", ErrInvalidQuery)
	case q.PropertyType != "" && !q.PropertyType.Valid():
		return fmt.Errorf("%w: unknown property type %q", ErrInvalidQuery, q.PropertyType)
	case q.Limit < 0 || q.Offset < 0:
		return fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidQuery)
	}
	return nil
}

func (q Query) limit(def int) int {
	switch {
	case q.Limit <= 0:
		return def
	case q.Limit > MaxLimit:
		return MaxLimit
	}
	return q.Limit
}

// Engine runs searches against a Source.  It holds no state between calls;
// the same query against the same data gives the same result.
type Engine struct {
	src          Source
	prefilter    bool
	defaultLimit int
}

type Option func(*Engine)

// WithoutPrefilter makes the engine always request a full scan.
func WithoutPrefilter() Option { return func(e *Engine) { e.prefilter = false } }

// WithDefaultLimit replaces DefaultLimit for queries that set no Limit.
// Values outside (0, MaxLimit] are ignored.
func WithDefaultLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 && n <= MaxLimit {
			e.defaultLimit = n
		}
	}
}

func NewEngine(src Source, opts ...Option) *Engine {
	e := &Engine{src: src, prefilter: true, defaultLimit: DefaultLimit}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Search returns properties within q.RadiusKm of the query point that
// satisfy the guest and type filters, nearest first (ties by id).
func (e *Engine) Search(ctx context.Context, q Query) (Result, error) {
	if err := q.validate(); err != nil {
		return Result{}, err
	}
	origin := model.GeoPoint{Latitude: q.Latitude, Longitude: q.Longitude}

	var cells []string
	if e.prefilter {
		cells = CoverCells(origin, q.RadiusKm)
	}
	candidates, err := e.src.Candidates(ctx, cells)
	if err != nil {
		return Result{}, fmt.Errorf("load candidates: %w", err)
	}

	hits := make([]Hit, 0, len(candidates))
	for _, c := range candidates {
		if !c.Coordinates.Valid() {
			continue
		}
		if q.Guests > 0 && c.GuestCapacity < q.Guests {
			continue
		}
		if q.PropertyType != "" && c.PropertyType != q.PropertyType {
			continue
		}
		d := Distance(origin, c.Coordinates)
		if d > q.RadiusKm {
			continue
		}
		hits = append(hits, Hit{Candidate: c, Distance: d})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})

	res := Result{Matched: len(hits), RadiusKm: q.RadiusKm}
	page := paginate(hits, q.Offset, q.limit(e.defaultLimit))
	if len(page) == 0 {
		res.Hits = []Hit{}
		return res, nil
	}

	ids := make([]uint64, len(page))
	for i, h := range page {
		ids[i] = h.ID
	}
	listings, err := e.src.Listings(ctx, ids)
	if err != nil {
		return Result{}, fmt.Errorf("load listings: %w", err)
	}
	for i := range page {
		l := listings[page[i].ID]
		page[i].Rooms = l.Rooms
		if page[i].Rooms == nil {
			page[i].Rooms = []model.RoomSummary{}
		}
		page[i].PrimaryImage = l.PrimaryImage
		page[i].DisplayPrice = pricing.DisplayPriceOf(page[i].Rooms)
	}
	res.Hits = page
	return res, nil
}

func paginate(hits []Hit, offset, limit int) []Hit {
	if offset >= len(hits) {
		return nil
	}
	end := offset + limit
	if end > len(hits) {
		end = len(hits)
	}
	return hits[offset:end]
}
