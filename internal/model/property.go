package model

import (
	"fmt"
	"strings"
	"time"
)

// Property is the aggregate root of a lodging listing.  The same document
// is accepted by create/update and returned by reads, so the JSON shape is
// shared by both directions.
//
// Fields:
//
//	ID            – properties.id, assigned on create.
//	HostID        – owning user, never changed by an update.
//	Coordinates   – required on write; a property without coordinates is
//	                never returned by search.
//	Rooms, Amenities, Images, Rules – owned collections, replaced wholesale
//	                on update.
type Property struct {
	ID                 uint64       `json:"id"`
	HostID             uint64       `json:"host_id"`
	Name               string       `json:"name" validate:"required,max=255"`
	Description        string       `json:"description"`
	Address            Address      `json:"address"`
	Coordinates        *GeoPoint    `json:"coordinates" validate:"required"`
	PropertyType       PropertyType `json:"property_type" validate:"required,property_type"`
	GuestCapacity      int          `json:"guest_capacity" validate:"gte=0"`
	BedroomCount       int          `json:"bedroom_count" validate:"gte=0"`
	BedCount           int          `json:"bed_count" validate:"gte=0"`
	BathroomCount      int          `json:"bathroom_count" validate:"gte=0"`
	CheckInTime        TimeOfDay    `json:"check_in_time"`
	CheckOutTime       TimeOfDay    `json:"check_out_time"`
	CancellationPolicy string       `json:"cancellation_policy"`
	PetPolicy          string       `json:"pet_policy"`
	EventPolicy        string       `json:"event_policy"`
	StarRating         *float64     `json:"star_rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Rooms              []Room       `json:"rooms" validate:"dive"`
	Amenities          Amenities    `json:"amenities"`
	Images             []Image      `json:"images" validate:"dive"`
	Rules              []string     `json:"rules" validate:"dive,required,max=255"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// Address holds the postal address.  Street, city and country are the
// minimum needed to geocode a listing.
type Address struct {
	Street     string `json:"street" validate:"required,max=255"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"max=100"`
	Country    string `json:"country" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"max=20"`
}

// String renders the address the way geocoders expect it: comma separated,
// empty parts skipped.
func (a Address) String() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Street, a.City, a.State, a.PostalCode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// GeoPoint is a WGS84 coordinate pair in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Valid reports whether the point lies inside the latitude/longitude ranges.
func (p GeoPoint) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// PropertyType enumerates the kinds of listing a host may publish.
type PropertyType string

const (
	PropertyHotel      PropertyType = "hotel"
	PropertyApartment  PropertyType = "apartment"
	PropertyVilla      PropertyType = "villa"
	PropertyResort     PropertyType = "resort"
	PropertyGuesthouse PropertyType = "guesthouse"
	PropertyHostel     PropertyType = "hostel"
)

// PropertyTypes lists every accepted property type.
var PropertyTypes = []PropertyType{
	PropertyHotel, PropertyApartment, PropertyVilla,
	PropertyResort, PropertyGuesthouse, PropertyHostel,
}

// ParsePropertyType lower-cases and trims s.  The result is not checked;
// call Valid on it.
func ParsePropertyType(s string) PropertyType {
	return PropertyType(strings.ToLower(strings.TrimSpace(s)))
}

func (t PropertyType) Valid() bool {
	for _, known := range PropertyTypes {
		if t == known {
			return true
		}
	}
	return false
}

// TimeOfDay is a wall-clock time without a date, kept in canonical HH:MM
// form.  The empty value means "not set".
type TimeOfDay string

var timeOfDayLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimeOfDay accepts H:MM, HH:MM, HH:MM:SS (the MySQL TIME rendering),
// 12-hour clock values and full timestamps, and returns the HH:MM form.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", nil
	}
	for _, layout := range timeOfDayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay(t.Format("15:04")), nil
		}
	}
	return "", fmt.Errorf("invalid time of day %q", raw)
}

// SQLTime renders t in the HH:MM:SS form used by TIME columns.
func (t TimeOfDay) SQLTime() string {
	if t == "" {
		return ""
	}
	return string(t) + ":00"
}
