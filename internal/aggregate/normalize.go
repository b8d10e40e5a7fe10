package aggregate

import (
	"fmt"
	"strings"

	"github.com/iliyamo/lodging-listings/internal/model"
	"github.com/iliyamo/lodging-listings/internal/pricing"
)

// FieldError names the document field that could not be normalised.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Reason) }

// Normalize puts a submitted document into canonical form before it is
// validated and written:
//   - text is trimmed and enum values lower-cased,
//   - check-in/out times are rewritten as HH:MM,
//   - every room's MaxOccupancy is derived from its beds, and a missing room
//     type becomes "standard room" with that type's stock description,
//   - a zero GuestCapacity or BedCount is derived from the rooms,
//   - duplicate amenities (per category) and duplicate rules are removed,
//     ignoring case, keeping the first spelling,
//   - nil collections become empty ones.
func Normalize(p *model.Property) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.Address = model.Address{
		Street:     strings.TrimSpace(p.Address.Street),
		City:       strings.TrimSpace(p.Address.City),
		State:      strings.TrimSpace(p.Address.State),
		Country:    strings.TrimSpace(p.Address.Country),
		PostalCode: strings.TrimSpace(p.Address.PostalCode),
	}
	p.PropertyType = model.ParsePropertyType(string(p.PropertyType))

	var err error
	if p.CheckInTime, err = model.ParseTimeOfDay(string(p.CheckInTime)); err != nil {
		return &FieldError{Field: "check_in_time", Reason: err.Error()}
	}
	if p.CheckOutTime, err = model.ParseTimeOfDay(string(p.CheckOutTime)); err != nil {
		return &FieldError{Field: "check_out_time", Reason: err.Error()}
	}

	if p.Rooms == nil {
		p.Rooms = []model.Room{}
	}
	guests, beds := 0, 0
	for i := range p.Rooms {
		r := &p.Rooms[i]
		r.Name = strings.TrimSpace(r.Name)
		r.RoomType = model.ParseRoomType(string(r.RoomType))
		r.Description = strings.TrimSpace(r.Description)
		if r.Description == "" {
			r.Description = r.RoomType.DefaultDescription()
		}
		if r.Beds == nil {
			r.Beds = []model.Bed{}
		}
		for j := range r.Beds {
			r.Beds[j].Type = model.ParseBedType(string(r.Beds[j].Type))
		}
		r.MaxOccupancy = pricing.Occupancy(r.Beds)
		guests += r.MaxOccupancy
		beds += pricing.BedCount(r.Beds)
	}
	if p.GuestCapacity == 0 {
		p.GuestCapacity = guests
	}
	if p.BedCount == 0 {
		p.BedCount = beds
	}

	for _, cat := range model.AmenityCategories {
		bucket := p.Amenities.Bucket(cat)
		*bucket = dedupe(*bucket)
	}

	if p.Images == nil {
		p.Images = []model.Image{}
	}
	for i := range p.Images {
		p.Images[i].URL = strings.TrimSpace(p.Images[i].URL)
		p.Images[i].Caption = strings.TrimSpace(p.Images[i].Caption)
	}
	p.Rules = dedupe(p.Rules)
	return nil
}

// dedupe trims values, drops blanks and case-insensitive repeats.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
