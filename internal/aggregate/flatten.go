package aggregate

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mmcloughlin/geohash"

	"github.com/iliyamo/lodging-listings/internal/model"
	"github.com/iliyamo/lodging-listings/internal/pricing"
)

// Flatten splits a property document into the rows that store it.  Owned
// rows carry their position so Build can restore list order.  Room
// occupancy is recomputed from the beds; whatever the document says is
// ignored.
func Flatten(p model.Property) (Rows, error) {
	rows := Rows{
		Property: PropertyRow{
			ID:                 p.ID,
			HostID:             p.HostID,
			Name:               p.Name,
			Description:        nullString(p.Description),
			Street:             p.Address.Street,
			City:               p.Address.City,
			State:              nullString(p.Address.State),
			Country:            p.Address.Country,
			PostalCode:         nullString(p.Address.PostalCode),
			PropertyType:       string(p.PropertyType),
			GuestCapacity:      p.GuestCapacity,
			BedroomCount:       p.BedroomCount,
			BedCount:           p.BedCount,
			BathroomCount:      p.BathroomCount,
			CheckInTime:        nullString(p.CheckInTime.SQLTime()),
			CheckOutTime:       nullString(p.CheckOutTime.SQLTime()),
			CancellationPolicy: nullString(p.CancellationPolicy),
			PetPolicy:          nullString(p.PetPolicy),
			EventPolicy:        nullString(p.EventPolicy),
			CreatedAt:          p.CreatedAt,
			UpdatedAt:          p.UpdatedAt,
		},
	}
	if c := p.Coordinates; c != nil {
		rows.Property.Latitude = sql.NullFloat64{Float64: c.Latitude, Valid: true}
		rows.Property.Longitude = sql.NullFloat64{Float64: c.Longitude, Valid: true}
		rows.Property.Geohash = nullString(geohash.Encode(c.Latitude, c.Longitude))
	}
	if p.StarRating != nil {
		rows.Property.StarRating = sql.NullFloat64{Float64: *p.StarRating, Valid: true}
	}

	rows.Rooms = make([]RoomRow, 0, len(p.Rooms))
	for i, r := range p.Rooms {
		beds := r.Beds
		if beds == nil {
			beds = []model.Bed{}
		}
		encoded, err := json.Marshal(beds)
		if err != nil {
			return Rows{}, fmt.Errorf("encode beds of room %d: %w", i, err)
		}
		rows.Rooms = append(rows.Rooms, RoomRow{
			ID:              r.ID,
			PropertyID:      p.ID,
			Position:        i,
			Name:            r.Name,
			RoomType:        string(r.RoomType),
			Beds:            encoded,
			MaxOccupancy:    pricing.Occupancy(beds),
			BasePrice:       r.Pricing.BasePrice,
			CleaningFee:     r.Pricing.CleaningFee,
			ServiceFee:      r.Pricing.ServiceFee,
			TaxRate:         r.Pricing.TaxRatePercent,
			SecurityDeposit: r.Pricing.SecurityDeposit,
			Description:     nullString(r.Description),
		})
	}

	rows.Amenities = make([]AmenityRow, 0, p.Amenities.Len())
	for _, cat := range model.AmenityCategories {
		for _, name := range *p.Amenities.Bucket(cat) {
			rows.Amenities = append(rows.Amenities, AmenityRow{
				PropertyID: p.ID,
				Position:   len(rows.Amenities),
				Category:   string(cat),
				Name:       name,
			})
		}
	}

	rows.Images = make([]ImageRow, 0, len(p.Images))
	for i, img := range p.Images {
		rows.Images = append(rows.Images, ImageRow{PropertyID: p.ID, Position: i, URL: img.URL, Caption: nullString(img.Caption)})
	}

	rows.Rules = make([]RuleRow, 0, len(p.Rules))
	for i, rule := range p.Rules {
		rows.Rules = append(rows.Rules, RuleRow{PropertyID: p.ID, Position: i, Rule: rule})
	}
	return rows, nil
}
