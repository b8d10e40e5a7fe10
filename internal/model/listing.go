package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DisplayPrice is the headline nightly price of a property.  A property
// without rooms has no price and is shown as "unavailable", never as 0.
type DisplayPrice struct {
	Amount    decimal.Decimal
	Available bool
}

const unavailable = "unavailable"

func (p DisplayPrice) String() string {
	if !p.Available {
		return unavailable
	}
	return p.Amount.StringFixed(2)
}

func (p DisplayPrice) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *DisplayPrice) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == unavailable {
		*p = DisplayPrice{}
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	*p = DisplayPrice{Amount: d, Available: true}
	return nil
}

// PropertySummary is one row of a property listing: scalar fields plus a
// rooms summary and the primary image.
type PropertySummary struct {
	ID            uint64        `json:"id"`
	HostID        uint64        `json:"host_id"`
	Name          string        `json:"name"`
	PropertyType  PropertyType  `json:"property_type"`
	City          string        `json:"city"`
	Country       string        `json:"country"`
	Coordinates   *GeoPoint     `json:"coordinates,omitempty"`
	GuestCapacity int           `json:"guest_capacity"`
	StarRating    *float64      `json:"star_rating,omitempty"`
	Rooms         []RoomSummary `json:"rooms"`
	DisplayPrice  DisplayPrice  `json:"display_price"`
	PrimaryImage  *Image        `json:"primary_image,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
