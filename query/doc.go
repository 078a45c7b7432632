// Package query compiles alias graphs into SQL statements and reads their
// rows back into records.
//
// A query has one root alias and any number of aliases joined to it
// through declared relations. Conditions, grouping and ordering refer to
// columns with "alias.field" property paths, which are resolved against
// the graph after the statement text is assembled:
//
//	q := query.Fetch[fixture.Student](drv, "s")
//	q.Join("s.faculty", "f").
//		Join("s.modules", "m").
//		Where(q.P().EQ("s.id", 42))
//
//	// SELECT student.student_number AS this__student_student_number_, ...
//	// FROM student
//	// INNER JOIN faculty ON (student.faculty_id = faculty.faculty_id)
//	// LEFT OUTER JOIN student_module ON (student.student_number = student_module.student_number)
//	// LEFT OUTER JOIN module ON (student_module.module_id = module.module_id)
//	// WHERE (student.student_number = ?)
//
// Rows repeating a root key collapse into one record; joined records are
// attached to their parent once per key, so to-many fields hold each
// related record once.
//
// Aggregate queries select aggregate expressions instead of columns and
// return one Tuple per row.
package query
