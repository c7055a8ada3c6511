// internal/models/listing.go
package models

// Listing table column names. Numeric-looking fields that the scrapers store
// as text (price, floor) keep TEXT affinity in the store and may carry the
// literal "nan" sentinel.
const (
	ColPropURL            = "prop_url"
	ColPropAddress        = "prop_address"
	ColPropFloor          = "prop_floor"
	ColPropPrice          = "prop_price"
	ColPropM2             = "prop_m2"
	ColPropRooms          = "prop_rooms"
	ColPropBedrooms       = "prop_bedrooms"
	ColPropLocation       = "prop_location"
	ColPropDescription    = "prop_description"
	ColPropImages         = "prop_images"
	ColProjectURL         = "project_url"
	ColProjectDistrict    = "project_district"
	ColProjectAddress     = "project_address"
	ColProjectDescription = "project_description"
	ColProjectImages      = "project_images"
)

// PriceSentinel is the literal stored when a listing has no published price.
// It is surfaced in results as-is, never coerced or filtered out.
const PriceSentinel = "nan"

// Listing is one unit for sale inside a parent project. Fields map one to one
// onto the listings table columns so the write path stays type-checked instead
// of going through open-ended maps.
type Listing struct {
	PropURL         string   `json:"prop_url"`
	PropAddress     string   `json:"prop_address"`
	PropFloor       string   `json:"prop_floor"`
	PropPrice       string   `json:"prop_price"`
	PropM2          int      `json:"prop_m2"`
	PropRooms       int      `json:"prop_rooms"`
	PropBedrooms    int      `json:"prop_bedrooms"`
	PropLocation    string   `json:"prop_location"`
	PropDescription string   `json:"prop_description"`
	PropImages      []string `json:"prop_images"`
}

// Project is a development that groups one or more listings and carries the
// shared district/address/description metadata.
type Project struct {
	ProjectURL         string    `json:"project_url"`
	ProjectDistrict    string    `json:"project_district"`
	ProjectAddress     string    `json:"project_address"`
	ProjectDescription string    `json:"project_description"`
	ProjectImages      []string  `json:"project_images"`
	Properties         []Listing `json:"properties,omitempty"`
}
