package search

import (
	"context"
	"math"
)

// Searcher is anything that answers a single-radius query.
type Searcher interface {
	Search(ctx context.Context, q Query) (Result, error)
}

// WidenPolicy controls Widen.  A non-positive StepKm disables widening.
type WidenPolicy struct {
	StepKm    float64
	CeilingKm float64
}

// DefaultWidenPolicy grows the radius 25 km at a time up to 100 km.
var DefaultWidenPolicy = WidenPolicy{StepKm: 25, CeilingKm: 100}

// Widen runs q and, while nothing matched, repeats it with the radius grown
// by StepKm, never past CeilingKm.  Each attempt is an ordinary Search; the
// returned Result carries the radius that produced it.
func Widen(ctx context.Context, s Searcher, q Query, p WidenPolicy) (Result, error) {
	res, err := s.Search(ctx, q)
	if err != nil || p.StepKm <= 0 {
		return res, err
	}
	for res.Matched == 0 && q.RadiusKm < p.CeilingKm {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		q.RadiusKm = math.Min(q.RadiusKm+p.StepKm, p.CeilingKm)
		if res, err = s.Search(ctx, q); err != nil {
			return res, err
		}
		res.Widened = true
	}
	return res, nil
}
