package aggregate

import (
	"database/sql"
	"encoding/json"
	"sort"
	"strings"

	"github.com/iliyamo/lodging-listings/internal/model"
	"github.com/iliyamo/lodging-listings/internal/pricing"
)

// Hygiene reports what a lenient read had to discard.  Reads never fail on
// these; callers decide whether to log them.
type Hygiene struct {
	DroppedAmenities int      // rows whose category is not one of the six buckets
	UnparseableBeds  []uint64 // room ids whose bed JSON could not be decoded
	InvalidTimes     int      // check-in/out values that are not a time of day
}

// Clean reports whether nothing was discarded.
func (h Hygiene) Clean() bool {
	return h.DroppedAmenities == 0 && len(h.UnparseableBeds) == 0 && h.InvalidTimes == 0
}

// Build assembles the nested property document from its rows.
//
// Lenient read policy: amenity rows with an unknown category are dropped,
// bed composition that cannot be decoded becomes an empty list (and the room
// occupancy therefore 0), and time values that cannot be parsed become
// unset.  Each case is counted in the returned Hygiene.
func Build(rows Rows) (model.Property, Hygiene) {
	var h Hygiene
	pr := rows.Property

	p := model.Property{
		ID:          pr.ID,
		HostID:      pr.HostID,
		Name:        pr.Name,
		Description: pr.Description.String,
		Address: model.Address{
			Street:     pr.Street,
			City:       pr.City,
			State:      pr.State.String,
			Country:    pr.Country,
			PostalCode: pr.PostalCode.String,
		},
		PropertyType:       model.PropertyType(pr.PropertyType),
		GuestCapacity:      pr.GuestCapacity,
		BedroomCount:       pr.BedroomCount,
		BedCount:           pr.BedCount,
		BathroomCount:      pr.BathroomCount,
		CancellationPolicy: pr.CancellationPolicy.String,
		PetPolicy:          pr.PetPolicy.String,
		EventPolicy:        pr.EventPolicy.String,
		CreatedAt:          pr.CreatedAt,
		UpdatedAt:          pr.UpdatedAt,
	}
	if pr.Latitude.Valid && pr.Longitude.Valid {
		pt := model.GeoPoint{Latitude: pr.Latitude.Float64, Longitude: pr.Longitude.Float64}
		if pt.Valid() {
			p.Coordinates = &pt
		}
	}
	if pr.StarRating.Valid {
		v := pr.StarRating.Float64
		p.StarRating = &v
	}
	p.CheckInTime = readTime(pr.CheckInTime, &h)
	p.CheckOutTime = readTime(pr.CheckOutTime, &h)

	p.Rooms = make([]model.Room, 0, len(rows.Rooms))
	for _, rr := range byPosition(rows.Rooms, func(r RoomRow) int { return r.Position }) {
		room, ok := BuildRoom(rr)
		if !ok {
			h.UnparseableBeds = append(h.UnparseableBeds, rr.ID)
		}
		p.Rooms = append(p.Rooms, room)
	}

	p.Amenities = model.EmptyAmenities()
	for _, ar := range byPosition(rows.Amenities, func(a AmenityRow) int { return a.Position }) {
		bucket := p.Amenities.Bucket(model.AmenityCategory(strings.ToLower(strings.TrimSpace(ar.Category))))
		if bucket == nil {
			h.DroppedAmenities++
			continue
		}
		*bucket = append(*bucket, ar.Name)
	}

	p.Images = make([]model.Image, 0, len(rows.Images))
	for _, ir := range byPosition(rows.Images, func(i ImageRow) int { return i.Position }) {
		p.Images = append(p.Images, model.Image{URL: ir.URL, Caption: ir.Caption.String})
	}

	p.Rules = make([]string, 0, len(rows.Rules))
	for _, rr := range byPosition(rows.Rules, func(r RuleRow) int { return r.Position }) {
		p.Rules = append(p.Rules, rr.Rule)
	}
	return p, h
}

// BuildRoom converts one room row.  ok is false when the bed composition
// could not be decoded and was replaced by an empty list.
func BuildRoom(rr RoomRow) (model.Room, bool) {
	beds, ok := DecodeBeds(rr.Beds)
	return model.Room{
		ID:           rr.ID,
		Name:         rr.Name,
		RoomType:     model.RoomType(rr.RoomType),
		Beds:         beds,
		MaxOccupancy: pricing.Occupancy(beds),
		Pricing: model.Pricing{
			BasePrice:       rr.BasePrice,
			CleaningFee:     rr.CleaningFee,
			ServiceFee:      rr.ServiceFee,
			TaxRatePercent:  rr.TaxRate,
			SecurityDeposit: rr.SecurityDeposit,
		},
		Description: rr.Description.String,
	}, ok
}

// DecodeBeds parses a stored bed composition.  Besides a plain JSON array
// it accepts an array that was encoded twice (a JSON string holding the
// array), which older writers produced.  A NULL or empty value is a room
// without beds.  ok is false only when the value was present but could not
// be decoded; the returned slice is then empty.
func DecodeBeds(raw []byte) (beds []model.Bed, ok bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return []model.Bed{}, true
	}
	if err := json.Unmarshal([]byte(s), &beds); err == nil {
		return nonNil(beds), true
	}
	var inner string
	if err := json.Unmarshal([]byte(s), &inner); err == nil {
		beds = nil
		if err := json.Unmarshal([]byte(inner), &beds); err == nil {
			return nonNil(beds), true
		}
	}
	return []model.Bed{}, false
}

func nonNil(beds []model.Bed) []model.Bed {
	if beds == nil {
		return []model.Bed{}
	}
	return beds
}

func readTime(v sql.NullString, h *Hygiene) model.TimeOfDay {
	if !v.Valid || v.String == "" {
		return ""
	}
	t, err := model.ParseTimeOfDay(v.String)
	if err != nil {
		h.InvalidTimes++
		return ""
	}
	return t
}

// byPosition returns a copy of rows stably sorted by position.
func byPosition[T any](rows []T, pos func(T) int) []T {
	out := append([]T(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return pos(out[i]) < pos(out[j]) })
	return out
}
