package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysBetween(t *testing.T) {
	a := Date(2024, time.February, 28)

	assert.Equal(t, 0, DaysBetween(a, a))
	assert.Equal(t, 1, DaysBetween(a, Date(2024, time.February, 29)))
	assert.Equal(t, 2, DaysBetween(a, Date(2024, time.March, 1)))
	assert.Equal(t, -1, DaysBetween(a, Date(2024, time.February, 27)))
}

func TestDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2024, time.May, 1, 23, 59, 0, 0, time.UTC)
	early := time.Date(2024, time.May, 2, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 1, DaysBetween(late, early))
}

func TestDateIn_UsesLocationCalendar(t *testing.T) {
	almaty := time.FixedZone("Asia/Almaty", 5*60*60)
	instant := time.Date(2024, time.May, 1, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, Date(2024, time.May, 2), DateIn(instant, almaty))
	assert.Equal(t, Date(2024, time.May, 1), DateIn(instant, nil))
}

func TestParseAndFormatDate(t *testing.T) {
	d, err := ParseDate("2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, Date(2024, time.March, 10), d)
	assert.Equal(t, "2024-03-10", FormatDate(d))

	_, err = ParseDate("10/03/2024")
	assert.Error(t, err)
}
