package model

// AmenityCategory is one of the six fixed amenity buckets.
type AmenityCategory string

const (
	AmenityGeneral       AmenityCategory = "general"
	AmenityRoom          AmenityCategory = "room"
	AmenityBathroom      AmenityCategory = "bathroom"
	AmenityKitchen       AmenityCategory = "kitchen"
	AmenityOutdoor       AmenityCategory = "outdoor"
	AmenityAccessibility AmenityCategory = "accessibility"
)

// AmenityCategories is the bucket order used when flattening amenities.
var AmenityCategories = []AmenityCategory{
	AmenityGeneral, AmenityRoom, AmenityBathroom,
	AmenityKitchen, AmenityOutdoor, AmenityAccessibility,
}

// Amenities groups amenity names by category.  Each (category, name) pair
// appears at most once.
type Amenities struct {
	General       []string `json:"general" validate:"dive,required,max=100"`
	Room          []string `json:"room" validate:"dive,required,max=100"`
	Bathroom      []string `json:"bathroom" validate:"dive,required,max=100"`
	Kitchen       []string `json:"kitchen" validate:"dive,required,max=100"`
	Outdoor       []string `json:"outdoor" validate:"dive,required,max=100"`
	Accessibility []string `json:"accessibility" validate:"dive,required,max=100"`
}

// EmptyAmenities returns a value whose buckets are non-nil, so it encodes
// as six empty arrays rather than nulls.
func EmptyAmenities() Amenities {
	return Amenities{
		General: []string{}, Room: []string{}, Bathroom: []string{},
		Kitchen: []string{}, Outdoor: []string{}, Accessibility: []string{},
	}
}

// Bucket returns the slice backing category c, or nil if c is not one of
// the known categories.
func (a *Amenities) Bucket(c AmenityCategory) *[]string {
	switch c {
	case AmenityGeneral:
		return &a.General
	case AmenityRoom:
		return &a.Room
	case AmenityBathroom:
		return &a.Bathroom
	case AmenityKitchen:
		return &a.Kitchen
	case AmenityOutdoor:
		return &a.Outdoor
	case AmenityAccessibility:
		return &a.Accessibility
	}
	return nil
}

// Len is the total number of amenities across all buckets.
func (a Amenities) Len() int {
	return len(a.General) + len(a.Room) + len(a.Bathroom) +
		len(a.Kitchen) + len(a.Outdoor) + len(a.Accessibility)
}
