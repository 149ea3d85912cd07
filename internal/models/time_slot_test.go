package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/campusflow/ums-api/pkg/errors"
)

func mustSlot(t *testing.T, day DayOfWeek, start, end string) TimeSlot {
	t.Helper()
	s, err := ParseClockTime(start)
	require.NoError(t, err)
	e, err := ParseClockTime(end)
	require.NoError(t, err)
	slot, err := NewTimeSlot(day, s, e)
	require.NoError(t, err)
	return slot
}

func TestNewTimeSlotRejectsInvertedRange(t *testing.T) {
	start, _ := ParseClockTime("10:00")
	end, _ := ParseClockTime("09:00")

	_, err := NewTimeSlot(Monday, start, end)
	assert.ErrorIs(t, err, appErrors.ErrInvalidArgs)

	_, err = NewTimeSlot(Monday, start, start)
	assert.ErrorIs(t, err, appErrors.ErrInvalidArgs)
}

func TestNewTimeSlotRejectsUnknownDay(t *testing.T) {
	start, _ := ParseClockTime("09:00")
	end, _ := ParseClockTime("10:00")
	_, err := NewTimeSlot(DayOfWeek("FUNDAY"), start, end)
	assert.ErrorIs(t, err, appErrors.ErrInvalidArgs)
}

func TestOverlapsIsSymmetric(t *testing.T) {
	a := mustSlot(t, Monday, "09:00", "10:30")
	b := mustSlot(t, Monday, "10:00", "11:00")
	c := mustSlot(t, Monday, "11:00", "12:00")

	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))
	assert.False(t, a.Overlaps(c))
	assert.False(t, c.Overlaps(a))
}

func TestOverlapsDifferentDaysNever(t *testing.T) {
	a := mustSlot(t, Monday, "09:00", "10:30")
	b := mustSlot(t, Tuesday, "09:00", "10:30")
	assert.False(t, a.Overlaps(b))
	assert.False(t, b.Overlaps(a))
}

func TestOverlapsTouchingBoundariesDoNot(t *testing.T) {
	a := mustSlot(t, Friday, "09:00", "10:00")
	b := mustSlot(t, Friday, "10:00", "11:00")
	assert.False(t, a.Overlaps(b))
	assert.False(t, b.Overlaps(a))
}

func TestOverlapsContainment(t *testing.T) {
	outer := mustSlot(t, Wednesday, "08:00", "12:00")
	inner := mustSlot(t, Wednesday, "09:00", "10:00")
	assert.True(t, outer.Overlaps(inner))
	assert.True(t, inner.Overlaps(outer))
}

func TestParseClockTime(t *testing.T) {
	v, err := ParseClockTime("09:30")
	require.NoError(t, err)
	assert.Equal(t, ClockTime(9*60+30), v)
	assert.Equal(t, "09:30", v.String())

	_, err = ParseClockTime("25:00")
	assert.ErrorIs(t, err, appErrors.ErrInvalidArgs)
	_, err = ParseClockTime("not-a-time")
	assert.ErrorIs(t, err, appErrors.ErrInvalidArgs)
}

func TestClockTimeJSONRoundTrip(t *testing.T) {
	slot := mustSlot(t, Monday, "09:00", "10:30")
	data, err := json.Marshal(slot)
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"MONDAY","start_time":"09:00","end_time":"10:30"}`, string(data))

	var decoded TimeSlot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, slot.Equal(decoded))
}

func TestClockTimeScan(t *testing.T) {
	var v ClockTime
	require.NoError(t, v.Scan("14:45:00"))
	assert.Equal(t, "14:45", v.String())

	require.NoError(t, v.Scan([]byte("08:05:00")))
	assert.Equal(t, "08:05", v.String())
}

func TestParseDayOfWeekNormalises(t *testing.T) {
	day, err := ParseDayOfWeek(" monday ")
	require.NoError(t, err)
	assert.Equal(t, Monday, day)

	_, err = ParseDayOfWeek("noday")
	assert.ErrorIs(t, err, appErrors.ErrInvalidArgs)
}
