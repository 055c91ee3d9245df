package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", d.String())

	// OData timestamps are truncated to the day.
	d, err = ParseDate("2024-03-01T15:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", d.String())

	d, err = ParseDate(" 2024-03-01 ")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", d.String())
}

func TestParseDateRejectsMalformedInput(t *testing.T) {
	for _, value := range []string{"", "not-a-date", "2024-13-01", "01/03/2024"} {
		_, err := ParseDate(value)
		assert.Error(t, err, "value %q", value)
	}
}

func TestDateOrdering(t *testing.T) {
	early := NewDate(2024, time.January, 1)
	late := NewDate(2024, time.February, 1)

	assert.True(t, early.Before(late))
	assert.True(t, late.After(early))
	assert.False(t, early.Equal(late))
	assert.True(t, early.Equal(NewDate(2024, time.January, 1)))
}

func TestDateJSONRoundTrip(t *testing.T) {
	type payload struct {
		Posted Date `json:"posted"`
	}

	out, err := json.Marshal(payload{Posted: NewDate(2024, time.June, 15)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"posted":"2024-06-15"}`, string(out))

	var in payload
	require.NoError(t, json.Unmarshal([]byte(`{"posted":"2024-06-15"}`), &in))
	assert.True(t, in.Posted.Equal(NewDate(2024, time.June, 15)))

	require.NoError(t, json.Unmarshal([]byte(`{"posted":null}`), &in))
	assert.True(t, in.Posted.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"posted":"garbage"}`), &in))
}

func TestDateZeroValue(t *testing.T) {
	var d Date
	assert.True(t, d.IsZero())
	assert.Equal(t, "", d.String())
}
