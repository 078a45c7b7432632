// Package fixture holds the university entities shared by tests.
package fixture

import (
	"time"

	"github.com/syssam/tether/schema"
)

// Faculty is hosted by students through a direct join.
type Faculty struct {
	schema.Model `table:"faculty"`
	ID           int64  `tether:"faculty_id,pk"`
	Name         string `tether:"name"`
}

// Module is related to students through the student_module bridge table.
type Module struct {
	schema.Model `table:"module"`
	ID           int64  `tether:"module_id,pk"`
	Code         string `tether:"code"`
	Credits      int32  `tether:"credits"`
}

// Student is the usual query root.
type Student struct {
	schema.Model `table:"student"`
	ID           int64     `tether:"student_number,pk"`
	Name         string    `tether:"name"`
	GPA          float64   `tether:"gpa"`
	Enrolled     time.Time `tether:"enrolled_on,temporal=date"`
	Faculty      *Faculty  `tether:"faculty_id,references=faculty_id"`
	Modules      []*Module `tether:"student_number,bridge=student_module,from=student_number,to=module_id,references=module_id,kind=left"`
}

// DDL creates the tables of the entities above.
const DDL = `
CREATE TABLE faculty (faculty_id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE module (module_id INTEGER PRIMARY KEY, code TEXT NOT NULL, credits INTEGER NOT NULL);
CREATE TABLE student (
	student_number INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	gpa REAL NOT NULL,
	enrolled_on TEXT NOT NULL,
	faculty_id INTEGER REFERENCES faculty(faculty_id)
);
CREATE TABLE student_module (
	student_number INTEGER NOT NULL REFERENCES student(student_number),
	module_id INTEGER NOT NULL REFERENCES module(module_id),
	PRIMARY KEY (student_number, module_id)
);
`

// Seed fills the tables: two faculties, three modules, and three students.
// Ada takes all modules, Alan takes one, Grace takes none and has no faculty.
const Seed = `
INSERT INTO faculty VALUES (1, 'Science'), (2, 'Arts');
INSERT INTO module VALUES (10, 'CS101', 5), (11, 'CS102', 5), (12, 'MA101', 10);
INSERT INTO student VALUES
	(42, 'Ada', 3.9, '2021-09-01', 1),
	(43, 'Alan', 3.4, '2022-09-01', 1),
	(44, 'Grace', 3.7, '2023-09-01', NULL);
INSERT INTO student_module VALUES (42, 10), (42, 11), (42, 12), (43, 12);
`

// Definitions is the dynamic counterpart of the entities above.
const Definitions = `
entities:
  - name: Faculty
    table: faculty
    columns:
      - {field: id, column: faculty_id, type: long, pk: true}
      - {column: name, type: string}
  - name: Module
    table: module
    columns:
      - {field: id, column: module_id, type: long, pk: true}
      - {column: code, type: string}
      - {column: credits, type: int}
  - name: Student
    table: student
    columns:
      - {field: id, column: student_number, type: long, pk: true}
      - {column: name, type: string}
      - {column: gpa, type: double}
      - {field: enrolled, column: enrolled_on, type: date}
    relations:
      - {field: faculty, target: Faculty, column: faculty_id, references: faculty_id}
      - field: modules
        target: Module
        many: true
        kind: left
        column: student_number
        references: module_id
        bridge: {table: student_module, from: student_number, to: module_id}
`
