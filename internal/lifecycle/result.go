package lifecycle

import "errors"

// CascadeResult reports what a cascading delete removed. Errors holds the
// failures of individual steps; earlier steps are never rolled back.
type CascadeResult struct {
	DevicesDeleted int     `json:"devices_deleted"`
	BinsDeleted    int     `json:"bins_deleted"`
	Errors         []error `json:"-"`
}

// Err joins the step errors, or returns nil when every step succeeded.
func (r CascadeResult) Err() error {
	return errors.Join(r.Errors...)
}

// Complete reports whether every step succeeded.
func (r CascadeResult) Complete() bool {
	return len(r.Errors) == 0
}

// add folds the counts and errors of another result into r.
func (r *CascadeResult) add(other CascadeResult) {
	r.DevicesDeleted += other.DevicesDeleted
	r.BinsDeleted += other.BinsDeleted
	r.Errors = append(r.Errors, other.Errors...)
}
