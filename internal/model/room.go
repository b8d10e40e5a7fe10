package model

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Room is a bookable unit owned by a property.  MaxOccupancy is always
// derived from Beds on write and on read; a client supplied value is
// ignored.
type Room struct {
	ID           uint64   `json:"id"`
	Name         string   `json:"name" validate:"required,max=255"`
	RoomType     RoomType `json:"room_type" validate:"room_type"`
	Beds         []Bed    `json:"beds" validate:"dive"`
	MaxOccupancy int      `json:"max_occupancy"`
	Pricing      Pricing  `json:"pricing"`
	Description  string   `json:"description"`
}

// Bed is one entry of a room's bed composition.
type Bed struct {
	Type  BedType `json:"type" validate:"bed_type"`
	Count int     `json:"count" validate:"gte=1"`
}

// Pricing carries the nightly fee components of a room.  Zero values stand
// for absent fees.
type Pricing struct {
	BasePrice       decimal.Decimal     `json:"base_price" validate:"gte=0"`
	CleaningFee     decimal.Decimal     `json:"cleaning_fee" validate:"gte=0"`
	ServiceFee      decimal.Decimal     `json:"service_fee" validate:"gte=0"`
	TaxRatePercent  decimal.Decimal     `json:"tax_rate_percent" validate:"gte=0,lte=100"`
	SecurityDeposit decimal.NullDecimal `json:"security_deposit" validate:"omitempty,gte=0"`
}

// RoomSummary is the lightweight projection of a room used by list and
// search results.
type RoomSummary struct {
	ID           uint64          `json:"id"`
	Name         string          `json:"name"`
	RoomType     RoomType        `json:"room_type"`
	MaxOccupancy int             `json:"max_occupancy"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

// BedType enumerates bed kinds.  Unknown values survive decoding so that
// legacy rows can still be read; they never contribute to occupancy.
type BedType string

const (
	BedSingle BedType = "single"
	BedDouble BedType = "double"
	BedQueen  BedType = "queen"
	BedKing   BedType = "king"
	BedSofa   BedType = "sofa"
	BedBunk   BedType = "bunk"
)

var BedTypes = []BedType{BedSingle, BedDouble, BedQueen, BedKing, BedSofa, BedBunk}

// ParseBedType normalises labels like "Queen Bed" or " KING " to the
// enumeration spelling.
func ParseBedType(s string) BedType {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSpace(strings.TrimSuffix(s, " bed"))
	return BedType(s)
}

func (t BedType) Valid() bool {
	for _, known := range BedTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t *BedType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = ParseBedType(s)
	return nil
}

// RoomType is the marketing category of a room (suite, family room, ...).
type RoomType string

// DefaultRoomType is used when a room is submitted without a type.
const DefaultRoomType RoomType = "standard room"

var roomTypeDescriptions = map[RoomType]string{
	"single room":        "Cozy room with a single bed, perfect for solo travelers",
	"double room":        "Comfortable room with a double bed or two single beds",
	"triple room":        "Spacious room that can accommodate up to three guests",
	"quad room":          "Large room suitable for four guests",
	"suite":              "Elegant suite with separate living area",
	"deluxe room":        "Premium room with enhanced amenities and comfort",
	"executive suite":    "Upscale suite with premium furnishings and business amenities",
	"presidential suite": "The most luxurious suite with exceptional amenities",
	"family room":        "Spacious room designed for families with children",
	"connecting room":    "Two adjacent rooms with a connecting door",
	"accessible room":    "Specially designed room with accessibility features",
	"penthouse suite":    "Luxury suite located on the top floor with panoramic views",
	"studio room":        "Open-plan room with living and sleeping areas combined",
	"ocean view room":    "Room with views of the ocean",
	"garden view room":   "Room overlooking landscaped gardens",
	"honeymoon suite":    "Romantic suite for newlyweds",
	"junior suite":       "Compact suite with a small sitting area",
	"standard room":      "Comfortable room with all essential amenities",
}

// ParseRoomType lower-cases s and falls back to DefaultRoomType when empty.
func ParseRoomType(s string) RoomType {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultRoomType
	}
	return RoomType(s)
}

func (t RoomType) Valid() bool {
	_, ok := roomTypeDescriptions[t]
	return ok
}

// DefaultDescription returns the stock description for the room type, or
// "" for unknown types.
func (t RoomType) DefaultDescription() string {
	return roomTypeDescriptions[t]
}
