package field_test

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tether/schema/field"
)

func TestParseInfo(t *testing.T) {
	tests := []struct {
		in   string
		want field.Info
	}{
		{"bool", field.Info{Type: field.TypeBool}},
		{"short", field.Info{Type: field.TypeInt16}},
		{"INT", field.Info{Type: field.TypeInt32}},
		{"long", field.Info{Type: field.TypeInt64}},
		{"double", field.Info{Type: field.TypeFloat64}},
		{"decimal", field.Info{Type: field.TypeDecimal}},
		{"string", field.Info{Type: field.TypeString}},
		{"time", field.Info{Type: field.TypeTime}},
		{"date", field.Info{Type: field.TypeTime, Subkind: field.SubkindDate}},
		{"timestamp", field.Info{Type: field.TypeTime, Subkind: field.SubkindTimestamp}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := field.ParseInfo(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	_, err := field.ParseInfo("blob")
	require.Error(t, err)
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "int64", field.TypeInt64.String())
	assert.Equal(t, "invalid", field.Type(200).String())
	assert.True(t, field.TypeDecimal.Numeric())
	assert.False(t, field.TypeString.Numeric())
	assert.False(t, field.TypeNull.Valid())
	assert.Equal(t, "date", field.Info{Type: field.TypeTime, Subkind: field.SubkindDate}.String())
}

func TestValueOf(t *testing.T) {
	now := time.Date(2024, 3, 9, 10, 30, 0, 0, time.UTC)
	name := "ada"
	var nilName *string
	tests := []struct {
		name string
		in   any
		want field.Value
	}{
		{"nil", nil, field.Null{}},
		{"bool", true, field.Bool(true)},
		{"int16", int16(4), field.Int16(4)},
		{"int32", int32(5), field.Int32(5)},
		{"int", 6, field.Int64(6)},
		{"int64", int64(7), field.Int64(7)},
		{"float64", 2.5, field.Float64(2.5)},
		{"string", "x", field.String("x")},
		{"decimal", decimal.NewFromInt(3), field.NewDecimal(decimal.NewFromInt(3))},
		{"time", now, field.NewTimestamp(now)},
		{"pointer", &name, field.String("ada")},
		{"nil pointer", nilName, field.Null{}},
		{"valuer", sql.NullInt64{Int64: 9, Valid: true}, field.Int64(9)},
		{"null valuer", sql.NullString{}, field.Null{}},
		{"value", field.Int32(1), field.Int32(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := field.ValueOf(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := field.ValueOf(struct{}{})
	require.ErrorIs(t, err, field.ErrUnsupported)
	_, err = field.ValueOf([]int{1})
	require.ErrorIs(t, err, field.ErrUnsupported)
}

func TestConvert(t *testing.T) {
	ts := time.Date(2024, 3, 9, 10, 30, 15, 0, time.UTC)
	tests := []struct {
		name string
		raw  any
		info field.Info
		want field.Value
	}{
		{"null", nil, field.Info{Type: field.TypeString}, field.Null{}},
		{"bool from int", int64(1), field.Info{Type: field.TypeBool}, field.Bool(true)},
		{"bool from text", []byte("false"), field.Info{Type: field.TypeBool}, field.Bool(false)},
		{"int16", int64(12), field.Info{Type: field.TypeInt16}, field.Int16(12)},
		{"int32 from text", "42", field.Info{Type: field.TypeInt32}, field.Int32(42)},
		{"int64 from float", float64(8), field.Info{Type: field.TypeInt64}, field.Int64(8)},
		{"float from int", int64(3), field.Info{Type: field.TypeFloat64}, field.Float64(3)},
		{"float from text", []byte("3.25"), field.Info{Type: field.TypeFloat64}, field.Float64(3.25)},
		{"decimal from text", "12.50", field.Info{Type: field.TypeDecimal}, field.NewDecimal(decimal.RequireFromString("12.50"))},
		{"decimal from int", int64(2), field.Info{Type: field.TypeDecimal}, field.NewDecimal(decimal.NewFromInt(2))},
		{"string from bytes", []byte("abc"), field.Info{Type: field.TypeString}, field.String("abc")},
		{"timestamp", ts, field.Info{Type: field.TypeTime, Subkind: field.SubkindTimestamp}, field.NewTimestamp(ts)},
		{"date", ts, field.Info{Type: field.TypeTime, Subkind: field.SubkindDate}, field.NewDate(ts)},
		{"time", ts, field.Info{Type: field.TypeTime, Subkind: field.SubkindTime}, field.NewTime(ts)},
		{"date from text", "2024-03-09", field.Info{Type: field.TypeTime, Subkind: field.SubkindDate}, field.NewDate(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := field.Convert(tt.raw, tt.info)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		info field.Info
	}{
		{"int16 overflow", int64(70000), field.Info{Type: field.TypeInt16}},
		{"int32 overflow", int64(1 << 40), field.Info{Type: field.TypeInt32}},
		{"fractional int", 2.5, field.Info{Type: field.TypeInt64}},
		{"bad int text", "x", field.Info{Type: field.TypeInt64}},
		{"string from int", int64(1), field.Info{Type: field.TypeString}},
		{"bad time text", "yesterday", field.Info{Type: field.TypeTime, Subkind: field.SubkindDate}},
		{"invalid type", "x", field.Info{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := field.Convert(tt.raw, tt.info)
			require.Error(t, err)
		})
	}

	_, err := field.Convert(time.Now(), field.Info{Type: field.TypeTime})
	assert.True(t, errors.Is(err, field.ErrNoSubkind))
	_, err = field.Convert(nil, field.Info{Type: field.TypeTime})
	assert.True(t, errors.Is(err, field.ErrNoSubkind))
}

func TestConvertAggregate(t *testing.T) {
	int32Info := field.Info{Type: field.TypeInt32}
	tests := []struct {
		name string
		raw  any
		info field.Info
		want field.Value
	}{
		{"truncated average", 20.0 / 3, int32Info, field.Int32(6)},
		{"negative average", -2.5, field.Info{Type: field.TypeInt64}, field.Int64(-2)},
		{"average from text", []byte("6.5"), field.Info{Type: field.TypeInt16}, field.Int16(6)},
		{"integral", int64(30), int32Info, field.Int32(30)},
		{"null", nil, int32Info, field.Null{}},
		{"float kept", 6.5, field.Info{Type: field.TypeFloat64}, field.Float64(6.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := field.ConvertAggregate(tt.raw, tt.info)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := field.Convert(20.0/3, int32Info)
	require.Error(t, err)
	_, err = field.ConvertAggregate("x", int32Info)
	require.Error(t, err)
}

func TestTemporalNormalization(t *testing.T) {
	ts := time.Date(2024, 3, 9, 10, 30, 15, 500, time.UTC)
	assert.Equal(t, "2024-03-09", field.NewDate(ts).String())
	assert.Equal(t, time.Date(0, 1, 1, 10, 30, 15, 500, time.UTC), field.NewTime(ts).Time)
	assert.Equal(t, "10:30:15.0000005", field.NewTime(ts).String())

	_, err := field.Temporal(ts, field.SubkindNone)
	require.ErrorIs(t, err, field.ErrNoSubkind)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "int64:42", field.Key(field.Int64(42)))
	assert.NotEqual(t, field.Key(field.Int64(42)), field.Key(field.String("42")))
	assert.Equal(t, field.Key(nil), field.Key(field.Null{}))
	assert.True(t, field.IsNull(nil))
	assert.True(t, field.IsNull(field.Null{}))
	assert.False(t, field.IsNull(field.Int32(0)))
}
