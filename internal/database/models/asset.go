package models

type LocationType string

const (
	LocationTypeFixed  LocationType = "fixed"
	LocationTypeMobile LocationType = "mobile"
)

// Asset is one inspectable unit, usually a fire extinguisher, identified
// in the field by the serial number printed on its QR label.
type Asset struct {
	Base
	SerialNumber string `gorm:"uniqueIndex;size:64;not null" json:"serial_number"`
	Name         string `gorm:"size:255;not null" json:"name"`
	Description  string `json:"description,omitempty"`

	// Geofence. Mobile assets (vehicle-mounted units) carry no fixed
	// coordinates and are exempt from the location check.
	LocationType      LocationType `gorm:"not null;default:'fixed'" json:"location_type"`
	FixedLat          *float64     `json:"fixed_lat,omitempty"`
	FixedLng          *float64     `json:"fixed_lng,omitempty"`
	ValidRadiusMeters float64      `gorm:"default:50" json:"valid_radius_meters"`

	// Human-readable placement ("Building B, floor 3, east stairwell").
	Placement string `json:"placement,omitempty"`

	IsActive bool `gorm:"default:true;index" json:"is_active"`

	// Relationships
	Schedules   []InspectionSchedule `gorm:"foreignKey:AssetID" json:"-"`
	Inspections []Inspection         `gorm:"foreignKey:AssetID" json:"-"`
}

func (Asset) TableName() string {
	return "assets"
}

// HasFixedLocation reports whether the geofence check applies to this asset.
func (a *Asset) HasFixedLocation() bool {
	return a.LocationType == LocationTypeFixed
}
