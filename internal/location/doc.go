// Package location persists areas, the top of the area → device → bin
// hierarchy.
//
// An area is addressable by its internal ID or by its slug; Resolve accepts
// either. The area's device set is maintained with single-statement JSON
// updates so concurrent writers never introduce duplicates.
package location
