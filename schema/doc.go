// Package schema is the entity metadata provider.
//
// A Registry describes record types once and hands out immutable Entity
// metadata: the bound table, the ordered columns with their semantic types,
// and the relations to other entities. Column and Relation carry accessor
// closures resolved at description time, so query compilation and row
// materialization never inspect types themselves.
//
// # Struct entities
//
// A struct becomes an entity by embedding Model and binding a table:
//
//	type Student struct {
//	    schema.Model `table:"student"`
//	    ID       int64      `tether:"student_number,pk"`
//	    Name     string     `tether:"name"`
//	    Enrolled time.Time  `tether:"enrolled_on,temporal=date"`
//	    Faculty  *Faculty   `tether:"faculty_id,references=faculty_id,kind=inner"`
//	    Modules  []*Module  `tether:"student_number,bridge=student_module,from=student_number,to=module_id,references=module_id,kind=left"`
//	}
//
// Untagged exported fields of supported types are columns named after the
// field in snake case. Property names, used in property paths such as
// "student.name", are the Go field names with the leading upper-case run
// lowered, unless the tag sets name=.
//
// Describe fails with tether.ErrNotAnEntity for types without the marker and
// tether.ErrNoTableBound when no table is declared.
//
// # Dynamic entities
//
// Definitions describe entities without Go types; their records are
// *Record values. Definitions are usually read from YAML:
//
//	entities:
//	  - name: Faculty
//	    table: faculty
//	    columns:
//	      - {column: faculty_id, type: long, pk: true}
//	      - {column: name, type: string}
//
// # Joins
//
// ResolveJoin returns the Join held by a relation field, failing with a
// *tether.JoinNotDeclaredError when the field is missing or declares no
// relationship.
package schema
