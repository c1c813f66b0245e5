// Copyright 2026 Peter Edge
//
// All rights reserved.

package xtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCompactString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "20230105", Date{Year: 2023, Month: time.January, Day: 5}.CompactString())
	require.Equal(t, "20241231", Date{Year: 2024, Month: time.December, Day: 31}.CompactString())
	require.Equal(t, "09990301", Date{Year: 999, Month: time.March, Day: 1}.CompactString())
}

func TestParseCompactDateWithTime(t *testing.T) {
	t.Parallel()
	date, err := ParseCompactDate("20240229;000000")
	require.NoError(t, err)
	require.Equal(t, Date{Year: 2024, Month: time.February, Day: 29}, date)

	date, err = ParseCompactDate("20231201;")
	require.NoError(t, err)
	require.Equal(t, Date{Year: 2023, Month: time.December, Day: 1}, date)

	_, err = ParseCompactDate("20230229;120000")
	require.Error(t, err)
	_, err = ParseCompactDate("20231201093015")
	require.Error(t, err)
	_, err = ParseCompactDate("20231201 093015")
	require.Error(t, err)
}

func TestAddDaysAcrossBoundaries(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		start Date
		days  int
		want  Date
	}{
		{start: Date{2023, time.January, 31}, days: 1, want: Date{2023, time.February, 1}},
		{start: Date{2023, time.February, 28}, days: 1, want: Date{2023, time.March, 1}},
		{start: Date{2024, time.February, 28}, days: 1, want: Date{2024, time.February, 29}},
		{start: Date{2024, time.March, 1}, days: -1, want: Date{2024, time.February, 29}},
		{start: Date{2023, time.May, 1}, days: -1, want: Date{2023, time.April, 30}},
		{start: Date{2023, time.January, 3}, days: -9, want: Date{2022, time.December, 25}},
		{start: Date{2023, time.December, 25}, days: 9, want: Date{2024, time.January, 3}},
	} {
		require.Equal(t, test.want, test.start.AddDays(test.days), "%s%+d", test.start, test.days)
		require.Equal(t, test.days, test.want.DaysSince(test.start))
	}
}

func TestAddDaysBackwardWalk(t *testing.T) {
	t.Parallel()
	start := Date{Year: 2023, Month: time.January, Day: 3}
	want := []string{
		"2023-01-02",
		"2023-01-01",
		"2022-12-31",
		"2022-12-30",
		"2022-12-29",
		"2022-12-28",
		"2022-12-27",
		"2022-12-26",
		"2022-12-25",
	}
	var got []string
	date := start
	for range 9 {
		date = date.AddDays(-1)
		require.True(t, date.Before(start))
		got = append(got, date.String())
	}
	require.Equal(t, want, got)
	require.Equal(t, -9, date.DaysSince(start))
}
