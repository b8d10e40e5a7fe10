// Package aggregate converts between the nested property document and the
// normalized rows it is stored as.  Everything here is pure: no storage
// access, no logging.
package aggregate

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// PropertyRow mirrors one row of the properties table.
type PropertyRow struct {
	ID                 uint64
	HostID             uint64
	Name               string
	Description        sql.NullString
	Street             string
	City               string
	State              sql.NullString
	Country            string
	PostalCode         sql.NullString
	Latitude           sql.NullFloat64
	Longitude          sql.NullFloat64
	Geohash            sql.NullString
	PropertyType       string
	GuestCapacity      int
	BedroomCount       int
	BedCount           int
	BathroomCount      int
	CheckInTime        sql.NullString
	CheckOutTime       sql.NullString
	CancellationPolicy sql.NullString
	PetPolicy          sql.NullString
	EventPolicy        sql.NullString
	StarRating         sql.NullFloat64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RoomRow mirrors one row of the rooms table.  Beds holds the JSON encoded
// bed composition exactly as stored.
type RoomRow struct {
	ID              uint64
	PropertyID      uint64
	Position        int
	Name            string
	RoomType        string
	Beds            []byte
	MaxOccupancy    int
	BasePrice       decimal.Decimal
	CleaningFee     decimal.Decimal
	ServiceFee      decimal.Decimal
	TaxRate         decimal.Decimal
	SecurityDeposit decimal.NullDecimal
	Description     sql.NullString
}

type AmenityRow struct {
	PropertyID uint64
	Position   int
	Category   string
	Name       string
}

type ImageRow struct {
	ID         uint64
	PropertyID uint64
	Position   int
	URL        string
	Caption    sql.NullString
}

type RuleRow struct {
	PropertyID uint64
	Position   int
	Rule       string
}

// Rows is the full normalized form of one property aggregate.
type Rows struct {
	Property  PropertyRow
	Rooms     []RoomRow
	Amenities []AmenityRow
	Images    []ImageRow
	Rules     []RuleRow
}

// SetPropertyID stamps id on the property row and every owned row.
func (r *Rows) SetPropertyID(id uint64) {
	r.Property.ID = id
	for i := range r.Rooms {
		r.Rooms[i].PropertyID = id
	}
	for i := range r.Amenities {
		r.Amenities[i].PropertyID = id
	}
	for i := range r.Images {
		r.Images[i].PropertyID = id
	}
	for i := range r.Rules {
		r.Rules[i].PropertyID = id
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
