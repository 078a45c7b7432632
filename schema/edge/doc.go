// Package edge describes relationships between entities: the join kind used
// when a relationship is traversed, and the column pairs that realize it.
//
// A direct relationship is a single foreign-key column pair:
//
//	edge.JoinColumn{Column: "faculty_id", References: "faculty_id"}
//
// renders, for a Student hosting a Faculty reference, as
//
//	INNER JOIN faculty ON (student.faculty_id = faculty.faculty_id)
//
// A bridge relationship chains two pairs through a linking table:
//
//	edge.JoinTable{
//	    Table:  "student_module",
//	    Host:   edge.JoinColumn{Column: "student_number", References: "student_number"},
//	    Target: edge.JoinColumn{Column: "module_id", References: "module_id"},
//	}
//
// renders as
//
//	LEFT OUTER JOIN student_module ON (student.student_number = student_module.student_number)
//	LEFT OUTER JOIN module ON (student_module.module_id = module.module_id)
package edge
