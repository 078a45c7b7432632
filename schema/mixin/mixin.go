package mixin

import "time"

// ID adds an int64 primary key bound to the id column.
type ID struct {
	ID int64 `tether:"id,pk"`
}

// Time adds created_at and updated_at timestamp columns.
//
// Example:
//
//	type Student struct {
//	    schema.Model `table:"student"`
//	    mixin.ID
//	    mixin.Time
//	    Name string `tether:"name"`
//	}
type Time struct {
	CreatedAt time.Time `tether:"created_at,temporal=timestamp"`
	UpdatedAt time.Time `tether:"updated_at,temporal=timestamp"`
}

// Touch sets both timestamps for a new record, or only UpdatedAt for an
// existing one.
func (t *Time) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}

// CreateTime adds only the created_at timestamp column.
type CreateTime struct {
	CreatedAt time.Time `tether:"created_at,temporal=timestamp"`
}

// SoftDelete adds a nullable deleted_at timestamp column. A nil DeletedAt
// means the record is live.
type SoftDelete struct {
	DeletedAt *time.Time `tether:"deleted_at,temporal=timestamp"`
}

// Deleted reports whether the record carries a deletion time.
func (s SoftDelete) Deleted() bool {
	return s.DeletedAt != nil
}
