package aggregate

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/lodging-listings/internal/model"
)

func sampleProperty() model.Property {
	stars := 4.5
	p := model.Property{
		ID:          7,
		HostID:      42,
		Name:        "Carpathian Lodge",
		Description: "Quiet chalet at the edge of the forest",
		Address: model.Address{
			Street: "Strada Principala 1", City: "Brasov", State: "BV",
			Country: "Romania", PostalCode: "500001",
		},
		Coordinates:        &model.GeoPoint{Latitude: 45.0, Longitude: 25.0},
		PropertyType:       model.PropertyGuesthouse,
		BedroomCount:       2,
		BathroomCount:      1,
		CheckInTime:        "14:00",
		CheckOutTime:       "11:00",
		CancellationPolicy: "Free cancellation up to 48 hours before arrival",
		PetPolicy:          "Pets allowed on request",
		StarRating:         &stars,
		Rooms: []model.Room{
			{
				ID:       11,
				Name:     "Queen room",
				RoomType: "double room",
				Beds:     []model.Bed{{Type: model.BedQueen, Count: 1}},
				Pricing: model.Pricing{
					BasePrice:       decimal.RequireFromString("100.00"),
					CleaningFee:     decimal.RequireFromString("15.00"),
					TaxRatePercent:  decimal.RequireFromString("9"),
					SecurityDeposit: decimal.NewNullDecimal(decimal.RequireFromString("200")),
				},
			},
			{
				ID:       12,
				Name:     "Twin singles",
				RoomType: "standard room",
				Beds:     []model.Bed{{Type: model.BedSingle, Count: 2}},
				Pricing:  model.Pricing{BasePrice: decimal.RequireFromString("80.00")},
			},
		},
		Amenities: model.EmptyAmenities(),
		Images: []model.Image{
			{URL: "https://img.example.com/front.jpg", Caption: "Front"},
			{URL: "https://img.example.com/room.jpg"},
		},
		Rules:     []string{"No smoking", "Quiet hours after 22:00"},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	p.Amenities.General = []string{"WiFi", "Parking"}
	p.Amenities.Kitchen = []string{"Kettle"}
	p.Amenities.Accessibility = []string{"Step-free access"}
	return p
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestFlattenBuildRoundTrip(t *testing.T) {
	in := sampleProperty()
	if err := Normalize(&in); err != nil {
		t.Fatal(err)
	}
	rows, err := Flatten(in)
	if err != nil {
		t.Fatal(err)
	}
	out, h := Build(rows)
	if !h.Clean() {
		t.Fatalf("unexpected hygiene report %+v", h)
	}
	if got, want := mustJSON(t, out), mustJSON(t, in); got != want {
		t.Fatalf("round trip mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestFlattenStoresGeohashAndPositions(t *testing.T) {
	rows, err := Flatten(sampleProperty())
	if err != nil {
		t.Fatal(err)
	}
	if !rows.Property.Geohash.Valid || len(rows.Property.Geohash.String) != 12 {
		t.Fatalf("geohash = %+v", rows.Property.Geohash)
	}
	if got := string(rows.Rooms[0].Beds); got != `[{"type":"queen","count":1}]` {
		t.Fatalf("beds json = %s", got)
	}
	if rows.Amenities[3].Category != "accessibility" || rows.Amenities[3].Position != 3 {
		t.Fatalf("amenity row = %+v", rows.Amenities[3])
	}
	if rows.Property.CheckInTime.String != "14:00:00" {
		t.Fatalf("check-in = %+v", rows.Property.CheckInTime)
	}
}

func TestNormalizeDerivesOccupancyAndCapacity(t *testing.T) {
	p := model.Property{
		Name:         "Scenario",
		PropertyType: "Hotel",
		Coordinates:  &model.GeoPoint{Latitude: 45, Longitude: 25},
		Rooms: []model.Room{
			{Name: "A", Beds: []model.Bed{{Type: "Queen Bed", Count: 1}}, MaxOccupancy: 9},
			{Name: "B", Beds: []model.Bed{{Type: model.BedSingle, Count: 2}}},
		},
	}
	if err := Normalize(&p); err != nil {
		t.Fatal(err)
	}
	for _, r := range p.Rooms {
		if r.MaxOccupancy != 2 {
			t.Fatalf("room %s occupancy = %d, want 2", r.Name, r.MaxOccupancy)
		}
		if r.RoomType != model.DefaultRoomType || r.Description == "" {
			t.Fatalf("room %s type/description not defaulted: %+v", r.Name, r)
		}
	}
	if p.Rooms[0].Beds[0].Type != model.BedQueen {
		t.Fatalf("bed type = %q", p.Rooms[0].Beds[0].Type)
	}
	if p.GuestCapacity != 4 {
		t.Fatalf("guest capacity = %d, want 4", p.GuestCapacity)
	}
	if p.BedCount != 3 {
		t.Fatalf("bed count = %d, want 3", p.BedCount)
	}
	if p.PropertyType != model.PropertyHotel {
		t.Fatalf("property type = %q", p.PropertyType)
	}
}

func TestNormalizeKeepsExplicitCapacity(t *testing.T) {
	p := model.Property{GuestCapacity: 10, Rooms: []model.Room{{Beds: []model.Bed{{Type: model.BedKing, Count: 1}}}}}
	if err := Normalize(&p); err != nil {
		t.Fatal(err)
	}
	if p.GuestCapacity != 10 {
		t.Fatalf("guest capacity = %d", p.GuestCapacity)
	}
}

func TestNormalizeDedupesAmenitiesAndRules(t *testing.T) {
	p := model.Property{Rules: []string{"No pets", " no pets ", "", "No parties"}}
	p.Amenities.General = []string{"WiFi", "wifi", "Pool"}
	p.Amenities.Room = []string{"WiFi"}
	if err := Normalize(&p); err != nil {
		t.Fatal(err)
	}
	if len(p.Amenities.General) != 2 || p.Amenities.General[0] != "WiFi" {
		t.Fatalf("general = %v", p.Amenities.General)
	}
	// the same name in another category is a different amenity
	if len(p.Amenities.Room) != 1 {
		t.Fatalf("room = %v", p.Amenities.Room)
	}
	if len(p.Rules) != 2 {
		t.Fatalf("rules = %v", p.Rules)
	}
}

func TestNormalizeRejectsBadTime(t *testing.T) {
	p := model.Property{CheckInTime: "teatime"}
	err := Normalize(&p)
	fe, ok := err.(*FieldError)
	if !ok || fe.Field != "check_in_time" {
		t.Fatalf("err = %v", err)
	}
}

func TestBuildDropsUnknownAmenityCategory(t *testing.T) {
	rows := Rows{
		Property: PropertyRow{ID: 1, Name: "x"},
		Amenities: []AmenityRow{
			{Position: 0, Category: "general", Name: "WiFi"},
			{Position: 1, Category: "spa", Name: "Sauna"},
			{Position: 2, Category: "Outdoor", Name: "Garden"},
		},
	}
	p, h := Build(rows)
	if h.DroppedAmenities != 1 {
		t.Fatalf("dropped = %d", h.DroppedAmenities)
	}
	if p.Amenities.Len() != 2 || p.Amenities.Outdoor[0] != "Garden" {
		t.Fatalf("amenities = %+v", p.Amenities)
	}
}

func TestBuildDegradesUnparseableBeds(t *testing.T) {
	rows := Rows{
		Property: PropertyRow{ID: 1},
		Rooms: []RoomRow{
			{ID: 5, Position: 0, Beds: []byte(`{not json`), MaxOccupancy: 2},
			{ID: 6, Position: 1, Beds: []byte(`"[{\"type\":\"Double Bed\",\"count\":1}]"`)},
			{ID: 7, Position: 2, Beds: nil},
		},
	}
	p, h := Build(rows)
	if len(h.UnparseableBeds) != 1 || h.UnparseableBeds[0] != 5 {
		t.Fatalf("unparseable = %v", h.UnparseableBeds)
	}
	if len(p.Rooms[0].Beds) != 0 || p.Rooms[0].MaxOccupancy != 0 {
		t.Fatalf("room 5 = %+v", p.Rooms[0])
	}
	if p.Rooms[1].MaxOccupancy != 2 || p.Rooms[1].Beds[0].Type != model.BedDouble {
		t.Fatalf("double-encoded beds not decoded: %+v", p.Rooms[1])
	}
	if p.Rooms[2].Beds == nil {
		t.Fatal("nil beds should decode to an empty list")
	}
}

func TestBuildNormalizesTimes(t *testing.T) {
	cases := map[string]model.TimeOfDay{
		"14:00:00":             "14:00",
		"9:30":                 "09:30",
		"2026-03-01T15:45:00Z": "15:45",
		"not a time":           "",
	}
	for raw, want := range cases {
		p, _ := Build(Rows{Property: PropertyRow{CheckInTime: sql.NullString{String: raw, Valid: true}}})
		if p.CheckInTime != want {
			t.Errorf("%q -> %q, want %q", raw, p.CheckInTime, want)
		}
	}
}

func TestBuildOrdersByPosition(t *testing.T) {
	rows := Rows{
		Images: []ImageRow{{Position: 2, URL: "c"}, {Position: 0, URL: "a"}, {Position: 1, URL: "b"}},
		Rules:  []RuleRow{{Position: 1, Rule: "second"}, {Position: 0, Rule: "first"}},
	}
	p, _ := Build(rows)
	if p.Images[0].URL != "a" || p.Images[2].URL != "c" {
		t.Fatalf("images = %+v", p.Images)
	}
	if p.Rules[0] != "first" {
		t.Fatalf("rules = %v", p.Rules)
	}
	if p.Coordinates != nil {
		t.Fatal("missing coordinates should stay nil")
	}
}
