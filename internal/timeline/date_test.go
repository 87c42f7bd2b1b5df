package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "stargate/backend/pkg/errors"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "2020-01-01", want: "2020-01-01"},
		{in: " 2021-06-01 ", want: "2021-06-01"},
		{in: "2021-06-01T23:30:00+08:00", want: "2021-06-01"},
		{in: "2021-06-01T00:00:00Z", want: "2021-06-01"},
		{in: "", wantErr: true},
		{in: "01/06/2021", wantErr: true},
		{in: "2021-02-30", wantErr: true},
		{in: "0000-12-31", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput, "输入 %q", tc.in)
			continue
		}
		require.NoError(t, err, "输入 %q", tc.in)
		assert.Equal(t, tc.want, got.Format(DateLayout))
		assert.Equal(t, time.UTC, got.Location())
	}
}

func TestParseOptionalDate(t *testing.T) {
	got, err := ParseOptionalDate(nil)
	assert.NoError(t, err)
	assert.Nil(t, got)

	blank := "  "
	got, err = ParseOptionalDate(&blank)
	assert.NoError(t, err)
	assert.Nil(t, got)

	s := "2022-01-01"
	got, err = ParseOptionalDate(&s)
	require.NoError(t, err)
	assert.Equal(t, "2022-01-01", FormatDate(got))
}

func TestDayBefore(t *testing.T) {
	got, err := DayBefore(day("2021-03-01"))
	require.NoError(t, err)
	assert.Equal(t, "2021-02-28", got.Format(DateLayout))

	got, err = DayBefore(day("2022-01-01"))
	require.NoError(t, err)
	assert.Equal(t, "2021-12-31", got.Format(DateLayout))

	_, err = DayBefore(day("0001-01-01"))
	assert.ErrorIs(t, err, ErrDateOutOfRange)
}

func TestTruncateDate_KeepsWrittenCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+14", 14*3600)
	in := time.Date(2020, 1, 1, 0, 30, 0, 0, loc)
	assert.Equal(t, day("2020-01-01"), TruncateDate(in))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "", FormatDate(nil))
	assert.Equal(t, "1999-12-31", FormatDate(dayPtr("1999-12-31")))
}
