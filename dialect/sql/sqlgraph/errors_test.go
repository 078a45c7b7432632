package sqlgraph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/syssam/tether"
)

func TestConstraint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ConstraintKind
	}{
		{"nil", nil, NoConstraint},
		{"plain", errors.New("connection refused"), NoConstraint},
		{"pq unique", &pq.Error{Code: "23505"}, Unique},
		{"pq foreign key", fmt.Errorf("insert: %w", &pq.Error{Code: "23503"}), ForeignKey},
		{"pq check", &pq.Error{Code: "23514"}, Check},
		{"pq other", &pq.Error{Code: "42P01"}, NoConstraint},
		{"mysql unique", &mysql.MySQLError{Number: 1062}, Unique},
		{"mysql parent", &mysql.MySQLError{Number: 1451}, ForeignKey},
		{"mysql child", &mysql.MySQLError{Number: 1452}, ForeignKey},
		{"mysql check", &mysql.MySQLError{Number: 3819}, Check},
		{"mysql other", &mysql.MySQLError{Number: 1146}, NoConstraint},
		{"sqlite text unique", errors.New("UNIQUE constraint failed: module.code"), Unique},
		{"sqlite text fk", errors.New("FOREIGN KEY constraint failed"), ForeignKey},
		{"sqlite text check", errors.New("CHECK constraint failed: credits"), Check},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Constraint(tt.err))
			assert.Equal(t, tt.want != NoConstraint, IsConstraintError(tt.err))
		})
	}
}

func TestWrapConstraint(t *testing.T) {
	cause := &pq.Error{Code: "23505", Message: "duplicate key"}
	err := wrapConstraint(cause)
	assert.True(t, tether.IsConstraintError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "unique")
	assert.Equal(t, err, wrapConstraint(err), "already wrapped")

	plain := errors.New("timeout")
	assert.Same(t, plain, wrapConstraint(plain))
	assert.True(t, IsForeignKeyConstraintError(&mysql.MySQLError{Number: 1452}))
	assert.True(t, IsCheckConstraintError(&pq.Error{Code: "23514"}))
	assert.Equal(t, "foreign key", ForeignKey.String())
}
