package model

// Image references an already hosted picture of the property.  Only the URL
// and caption are stored.
type Image struct {
	URL     string `json:"url" validate:"required,url,max=2048"`
	Caption string `json:"caption,omitempty" validate:"max=255"`
}
