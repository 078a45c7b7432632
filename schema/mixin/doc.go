// Package mixin provides column sets shared by many entities.
//
// A mixin is a plain struct whose fields carry `tether` tags. Embedding it
// in an entity contributes its columns in place, as if they were declared
// on the entity itself:
//
//	type Module struct {
//	    schema.Model `table:"module"`
//	    mixin.ID
//	    Code string `tether:"code"`
//	    mixin.Time
//	}
//
// Module is described with the columns id, code, created_at and updated_at,
// in that order. The property names are those of the mixin fields (id,
// createdAt, updatedAt).
package mixin
