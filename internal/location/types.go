package location

import "time"

// Area is a logical grouping of smart-bin devices (a site, floor or zone).
//
// It has two identities: ID is the internal key other entities reference,
// Slug is the stable human-facing key derived from the name at creation.
// Renaming an area never changes its slug.
type Area struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`

	// Devices is the ordered set of device ids owned by this area.
	// It never contains duplicates.
	Devices []string `json:"devices"`

	Meta      Meta      `json:"meta"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Meta holds free-form area metadata. Updates are shallow merges.
type Meta map[string]any

// HasDevice reports whether deviceID is in the area's device set.
func (a *Area) HasDevice(deviceID string) bool {
	for _, id := range a.Devices {
		if id == deviceID {
			return true
		}
	}
	return false
}
