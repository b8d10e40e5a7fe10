package search

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/mmcloughlin/geohash"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/lodging-listings/internal/model"
)

// fakeSource serves candidates from memory and honours cell prefixes the
// same way the SQL source does.
type fakeSource struct {
	candidates []Candidate
	listings   map[uint64]Listing
	lastCells  []string
	listErr    error
}

func (f *fakeSource) Candidates(_ context.Context, cells []string) ([]Candidate, error) {
	f.lastCells = cells
	if len(cells) == 0 {
		return f.candidates, nil
	}
	var out []Candidate
	for _, c := range f.candidates {
		hash := geohash.Encode(c.Coordinates.Latitude, c.Coordinates.Longitude)
		for _, cell := range cells {
			if strings.HasPrefix(hash, cell) {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeSource) Listings(_ context.Context, ids []uint64) (map[uint64]Listing, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make(map[uint64]Listing, len(ids))
	for _, id := range ids {
		if l, ok := f.listings[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

func candidate(id uint64, lat, lon float64) Candidate {
	return Candidate{
		ID:            id,
		Name:          "p",
		Coordinates:   model.GeoPoint{Latitude: lat, Longitude: lon},
		PropertyType:  model.PropertyHotel,
		GuestCapacity: 4,
	}
}

func TestDistance(t *testing.T) {
	p := model.GeoPoint{Latitude: 45, Longitude: 25}
	if d := Distance(p, p); d > 1e-9 {
		t.Fatalf("distance to self = %v", d)
	}
	paris := model.GeoPoint{Latitude: 48.8566, Longitude: 2.3522}
	london := model.GeoPoint{Latitude: 51.5074, Longitude: -0.1278}
	d := Distance(paris, london)
	if math.Abs(d-343.5) > 1.0 {
		t.Fatalf("Paris-London = %.2f km", d)
	}
	if math.Abs(d-Distance(london, paris)) > 1e-9 {
		t.Fatal("distance is not symmetric")
	}
}

func TestSearchRadiusScenario(t *testing.T) {
	src := &fakeSource{candidates: []Candidate{
		candidate(2, 45.072, 25.0), // about 8 km north
		candidate(1, 45.0, 25.0),
	}}
	e := NewEngine(src)

	res, err := e.Search(context.Background(), Query{Latitude: 45, Longitude: 25, RadiusKm: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 2 || res.Hits[0].ID != 1 || res.Hits[1].ID != 2 {
		t.Fatalf("hits = %+v", res.Hits)
	}
	if res.Hits[0].Distance >= 1e-6 {
		t.Fatalf("exact point distance = %v", res.Hits[0].Distance)
	}
	if d := res.Hits[1].Distance; d < 7.9 || d > 8.1 {
		t.Fatalf("second hit distance = %v", d)
	}

	res, err = e.Search(context.Background(), Query{Latitude: 45, Longitude: 25, RadiusKm: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 || res.Hits[0].ID != 1 {
		t.Fatalf("radius 5 hits = %+v", res.Hits)
	}
}

func TestSearchMatchesBruteForce(t *testing.T) {
	origin := model.GeoPoint{Latitude: 45, Longitude: 25}
	var cands []Candidate
	id := uint64(1)
	for i := -10; i <= 10; i++ {
		for j := -10; j <= 10; j++ {
			cands = append(cands, candidate(id, 45+float64(i)*0.05, 25+float64(j)*0.05))
			id++
		}
	}
	const radius = 20.0
	want := map[uint64]bool{}
	for _, c := range cands {
		if Distance(origin, c.Coordinates) <= radius {
			want[c.ID] = true
		}
	}

	for _, e := range []*Engine{NewEngine(&fakeSource{candidates: cands}), NewEngine(&fakeSource{candidates: cands}, WithoutPrefilter())} {
		res, err := e.Search(context.Background(), Query{Latitude: 45, Longitude: 25, RadiusKm: radius, Limit: MaxLimit})
		if err != nil {
			t.Fatal(err)
		}
		if res.Matched != len(want) || len(res.Hits) != len(want) {
			t.Fatalf("matched %d, hits %d, want %d", res.Matched, len(res.Hits), len(want))
		}
		for i, h := range res.Hits {
			if !want[h.ID] {
				t.Fatalf("unexpected hit %d at %.3f km", h.ID, h.Distance)
			}
			if i > 0 && h.Distance < res.Hits[i-1].Distance {
				t.Fatalf("hits not ascending at %d", i)
			}
		}
	}
}

func TestSearchFilters(t *testing.T) {
	small := candidate(1, 45.001, 25)
	small.GuestCapacity = 2
	villa := candidate(2, 45.002, 25)
	villa.PropertyType = model.PropertyVilla
	villa.GuestCapacity = 8
	e := NewEngine(&fakeSource{candidates: []Candidate{small, villa, candidate(3, 45.003, 25)}})

	res, err := e.Search(context.Background(), Query{Latitude: 45, Longitude: 25, RadiusKm: 5, Guests: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 2 || res.Hits[0].ID != 2 || res.Hits[1].ID != 3 {
		t.Fatalf("guest filter hits = %+v", res.Hits)
	}

	res, err = e.Search(context.Background(), Query{Latitude: 45, Longitude: 25, RadiusKm: 5, PropertyType: model.PropertyVilla})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 || res.Hits[0].ID != 2 {
		t.Fatalf("type filter hits = %+v", res.Hits)
	}
}

func TestSearchDefaultCapAndPaging(t *testing.T) {
	var cands []Candidate
	for i := 0; i < 30; i++ {
		cands = append(cands, candidate(uint64(i+1), 45+float64(i)*0.001, 25))
	}
	e := NewEngine(&fakeSource{candidates: cands})

	res, err := e.Search(context.Background(), Query{Latitude: 45, Longitude: 25, RadiusKm: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != DefaultLimit || res.Matched != 30 {
		t.Fatalf("hits %d matched %d", len(res.Hits), res.Matched)
	}

	res, err = e.Search(context.Background(), Query{Latitude: 45, Longitude: 25, RadiusKm: 10, Offset: 20, Limit: 20})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 10 || res.Hits[0].ID != 21 {
		t.Fatalf("second page = %d hits starting at %d", len(res.Hits), res.Hits[0].ID)
	}

	res, _ = e.Search(context.Background(), Query{Latitude: 45, Longitude: 25, RadiusKm: 10, Offset: 40})
	if res.Hits == nil || len(res.Hits) != 0 {
		t.Fatalf("past the end = %+v", res.Hits)
	}

	e = NewEngine(&fakeSource{candidates: cands}, WithDefaultLimit(5))
	res, _ = e.Search(context.Background(), Query{Latitude: 45, Longitude: 25, RadiusKm: 10})
	if len(res.Hits) != 5 {
		t.Fatalf("configured cap gave %d hits", len(res.Hits))
	}
}

func TestSearchAttachesListings(t *testing.T) {
	img := &model.Image{URL: "https://img.example.com/a.jpg"}
	src := &fakeSource{
		candidates: []Candidate{candidate(1, 45, 25), candidate(2, 45.01, 25)},
		listings: map[uint64]Listing{
			1: {
				Rooms: []model.RoomSummary{
					{ID: 10, TotalPrice: decimal.RequireFromString("120")},
					{ID: 11, TotalPrice: decimal.RequireFromString("95.5")},
				},
				PrimaryImage: img,
			},
		},
	}
	res, err := NewEngine(src).Search(context.Background(), Query{Latitude: 45, Longitude: 25, RadiusKm: 5})
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Hits[0].DisplayPrice.String(); got != "95.50" {
		t.Fatalf("display price = %s", got)
	}
	if res.Hits[0].PrimaryImage != img {
		t.Fatal("primary image not attached")
	}
	if res.Hits[1].DisplayPrice.Available || res.Hits[1].Rooms == nil {
		t.Fatalf("roomless hit = %+v", res.Hits[1])
	}

	src.listErr = errors.New("db down")
	if _, err := NewEngine(src).Search(context.Background(), Query{Latitude: 45, Longitude: 25, RadiusKm: 5}); err == nil {
		t.Fatal("expected listing error")
	}
}

func TestSearchRejectsInvalidQuery(t *testing.T) {
	e := NewEngine(&fakeSource{})
	bad := []Query{
		{Latitude: 91, RadiusKm: 1},
		{Longitude: -181, RadiusKm: 1},
		{RadiusKm: 0},
		{RadiusKm: math.NaN()},
		{RadiusKm: 1, Guests: -1},
		{RadiusKm: 1, PropertyType: "castle"},
		{RadiusKm: 1, Offset: -1},
	}
	for _, q := range bad {
		if _, err := e.Search(context.Background(), q); !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("query %+v: err = %v", q, err)
		}
	}
}

// destination returns the point at distanceKm from origin along bearingDeg.
func destination(origin model.GeoPoint, bearingDeg, distanceKm float64) model.GeoPoint {
	delta := distanceKm / EarthRadiusKm
	theta := radians(bearingDeg)
	lat1, lon1 := radians(origin.Latitude), radians(origin.Longitude)
	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lon2 := lon1 + math.Atan2(math.Sin(theta)*math.Sin(delta)*math.Cos(lat1), math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2))
	return model.GeoPoint{Latitude: lat2 * 180 / math.Pi, Longitude: lon2 * 180 / math.Pi}
}

func TestCoverCellsContainCircle(t *testing.T) {
	cases := []struct {
		origin model.GeoPoint
		radius float64
	}{
		{model.GeoPoint{Latitude: 45, Longitude: 25}, 10},
		{model.GeoPoint{Latitude: 0.01, Longitude: 0.01}, 50},
		{model.GeoPoint{Latitude: -33.92, Longitude: 18.42}, 3},
		{model.GeoPoint{Latitude: 60, Longitude: 10}, 100},
		{model.GeoPoint{Latitude: 45, Longitude: 25}, 0.2},
	}
	for _, tc := range cases {
		cells := CoverCells(tc.origin, tc.radius)
		if len(cells) != 9 {
			t.Fatalf("%+v r=%v: got %d cells", tc.origin, tc.radius, len(cells))
		}
		set := map[string]bool{}
		for _, c := range cells {
			set[c] = true
		}
		prec := uint(len(cells[0]))
		for bearing := 0.0; bearing < 360; bearing += 7.5 {
			for _, frac := range []float64{0.5, 0.999} {
				p := destination(tc.origin, bearing, tc.radius*frac)
				if Distance(tc.origin, p) > tc.radius {
					continue
				}
				if h := geohash.EncodeWithPrecision(p.Latitude, p.Longitude, prec); !set[h] {
					t.Fatalf("%+v r=%v: point %+v (cell %s) not covered by %v", tc.origin, tc.radius, p, h, cells)
				}
			}
		}
	}
}

func TestCoverCellsFallsBackToFullScan(t *testing.T) {
	for _, tc := range []struct {
		origin model.GeoPoint
		radius float64
	}{
		{model.GeoPoint{Latitude: 89.9, Longitude: 0}, 50},
		{model.GeoPoint{Latitude: 0, Longitude: 179.99}, 5},
		{model.GeoPoint{Latitude: 10, Longitude: 10}, 20000},
	} {
		if cells := CoverCells(tc.origin, tc.radius); cells != nil {
			t.Errorf("%+v r=%v: expected full scan, got %v", tc.origin, tc.radius, cells)
		}
	}
}

func TestWiden(t *testing.T) {
	src := &fakeSource{candidates: []Candidate{candidate(1, 45.5, 25)}} // ~55.6 km away
	e := NewEngine(src)
	q := Query{Latitude: 45, Longitude: 25, RadiusKm: 10}

	res, err := Widen(context.Background(), e, q, WidenPolicy{StepKm: 25, CeilingKm: 100})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Widened || res.RadiusKm != 60 || len(res.Hits) != 1 {
		t.Fatalf("widened result = %+v", res)
	}

	res, err = Widen(context.Background(), e, q, WidenPolicy{StepKm: 25, CeilingKm: 50})
	if err != nil {
		t.Fatal(err)
	}
	if res.RadiusKm != 50 || len(res.Hits) != 0 {
		t.Fatalf("ceiling result = %+v", res)
	}

	res, _ = Widen(context.Background(), e, Query{Latitude: 45.5, Longitude: 25, RadiusKm: 10}, DefaultWidenPolicy)
	if res.Widened || res.RadiusKm != 10 {
		t.Fatalf("should not widen when something matched: %+v", res)
	}

	res, _ = Widen(context.Background(), e, q, WidenPolicy{})
	if res.Widened {
		t.Fatal("zero step must disable widening")
	}
}
