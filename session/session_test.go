package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tether"
	"github.com/syssam/tether/config"
	"github.com/syssam/tether/dialect"
	"github.com/syssam/tether/dialect/sql"
	"github.com/syssam/tether/internal/fixture"
)

func mockSession(t *testing.T, opts ...Option) (*Session, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s, err := New(append([]Option{Driver(sql.OpenDB(dialect.SQLite, db))}, opts...)...)
	require.NoError(t, err)
	return s, mock
}

func TestNew(t *testing.T) {
	_, err := New()
	require.Error(t, err)

	s, _ := mockSession(t)
	assert.Equal(t, dialect.SQLite, s.Dialect())
	assert.False(t, s.InTx())
	assert.Nil(t, s.Stats())
}

func TestOpenInvalid(t *testing.T) {
	cfg := config.Default()
	cfg.Dialect = "oracle"
	_, err := Open(cfg)
	require.Error(t, err)

	cfg = config.Default()
	cfg.Schema = "testdata/missing.yaml"
	_, err = Open(cfg)
	require.Error(t, err)
}

func TestBeginCommit(t *testing.T) {
	s, mock := mockSession(t)
	ctx := context.Background()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT faculty.faculty_id AS this__faculty_faculty_id_, faculty.name AS this__faculty_name_ FROM faculty").
		WillReturnRows(sqlmock.NewRows([]string{"this__faculty_faculty_id_", "this__faculty_name_"}).AddRow(1, "Science"))
	mock.ExpectCommit()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	assert.True(t, tx.InTx())
	_, err = tx.Begin(ctx)
	require.ErrorIs(t, err, tether.ErrTxStarted)

	faculties, err := Fetch[fixture.Faculty](tx, "f").All(ctx)
	require.NoError(t, err)
	require.Len(t, faculties, 1)
	assert.Equal(t, "Science", faculties[0].Name)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	require.Error(t, s.Commit())
	require.Error(t, s.Rollback())
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		s, mock := mockSession(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM student_module").WillReturnResult(sqlmock.NewResult(0, 4))
		mock.ExpectCommit()
		err := s.WithTx(ctx, func(tx *Session) error {
			assert.True(t, tx.InTx())
			return tx.Exec(ctx, "DELETE FROM student_module", []any{}, nil)
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		s, mock := mockSession(t)
		mock.ExpectBegin()
		mock.ExpectRollback()
		boom := errors.New("boom")
		err := s.WithTx(ctx, func(*Session) error { return boom })
		require.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback failure", func(t *testing.T) {
		s, mock := mockSession(t)
		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(errors.New("connection lost"))
		boom := errors.New("boom")
		err := s.WithTx(ctx, func(*Session) error { return boom })
		var rerr *tether.RollbackError
		require.ErrorAs(t, err, &rerr)
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "connection lost")
	})

	t.Run("panic", func(t *testing.T) {
		s, mock := mockSession(t)
		mock.ExpectBegin()
		mock.ExpectRollback()
		assert.PanicsWithValue(t, "boom", func() {
			_ = s.WithTx(ctx, func(*Session) error { panic("boom") })
		})
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested", func(t *testing.T) {
		s, mock := mockSession(t)
		mock.ExpectBegin()
		mock.ExpectCommit()
		err := s.WithTx(ctx, func(tx *Session) error {
			return tx.WithTx(ctx, func(inner *Session) error {
				assert.Same(t, tx, inner)
				return nil
			})
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQueryLog(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, mock := mockSession(t, Log(log))
	mock.ExpectExec("DELETE FROM module WHERE module_id = ?").
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Exec(context.Background(), "DELETE FROM module WHERE module_id = ?", []any{10}, nil))
	out := buf.String()
	assert.Contains(t, out, `"query_id":`)
	assert.Contains(t, out, `"sql":"DELETE FROM module WHERE module_id = ?"`)
	assert.Contains(t, out, `"params":1`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateOnSession(t *testing.T) {
	s, mock := mockSession(t)
	const want = "SELECT COUNT(student.student_number) AS this_count__student__student_number_ FROM student"
	mock.ExpectQuery(want).
		WillReturnRows(sqlmock.NewRows([]string{"this_count__student__student_number_"}).AddRow(3))

	c, err := s.Aggregate(fixture.Student{}, "s").Count("s.id").Compile()
	require.NoError(t, err)
	tuples, err := s.Aggregate(fixture.Student{}, "s").Count("s.id").All(context.Background())
	require.NoError(t, err)
	require.Len(t, tuples, 1)
	assert.Equal(t, int64(3), tuples[0][0].Interface())
	assert.Equal(t, want, c.SQL)
	require.NoError(t, mock.ExpectationsWereMet())
}
