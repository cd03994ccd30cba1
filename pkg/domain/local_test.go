package domain_test

import (
	"testing"
	"time"

	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocalDateTime(t *testing.T) {
	for _, text := range []string{"2019-03-31T02:30", "2019-03-31T02:30:15", "2019-03-31T02:30:15.5"} {
		ldt, err := domain.ParseLocalDateTime(text)
		require.NoError(t, err, text)
		assert.Equal(t, text, ldt.String())
	}

	_, err := domain.ParseLocalDateTime("2019-02-30T00:00")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestNewLocalDateTime_RejectsOverflow(t *testing.T) {
	_, err := domain.NewLocalDateTime(2019, time.February, 29, 0, 0, 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = domain.NewLocalDateTime(2020, time.February, 29, 24, 0, 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	ldt, err := domain.NewLocalDateTime(2020, time.February, 29, 23, 59, 59, 0)
	require.NoError(t, err)
	assert.Equal(t, "2020-02-29T23:59:59", ldt.String())
}

func TestLocalDateTime_EpochRoundTrip(t *testing.T) {
	plusTwo := domain.MustOffset(2, 0, 0)
	ldt := domain.MustLocalDateTime(2019, time.October, 27, 2, 30)

	epoch := ldt.EpochSecond(plusTwo)
	assert.Equal(t, time.Date(2019, time.October, 27, 0, 30, 0, 0, time.UTC).Unix(), epoch)
	assert.True(t, ldt.Equal(domain.FromEpochSecond(epoch, plusTwo)))

	instant := ldt.AtOffset(plusTwo)
	assert.True(t, ldt.Equal(domain.LocalOf(instant, plusTwo)))
	assert.Equal(t, epoch, instant.Unix())
}

func TestParseOffsetDateTime(t *testing.T) {
	odt, err := domain.ParseOffsetDateTime("2019-10-27T02:30+01:00")
	require.NoError(t, err)
	assert.Equal(t, "2019-10-27T02:30", odt.Local.String())
	assert.Equal(t, domain.MustOffset(1, 0, 0), odt.Offset)
	assert.Equal(t, "2019-10-27T02:30+01:00", odt.String())

	odt, err = domain.ParseOffsetDateTime("1999-12-31T23:59:59-05:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2000, time.January, 1, 4, 59, 59, 0, time.UTC), odt.Instant().UTC())

	_, err = domain.ParseOffsetDateTime("2019-10-27T02:30")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, domain.DaysIn(time.February, 2024))
	assert.Equal(t, 28, domain.DaysIn(time.February, 1900))
	assert.Equal(t, 29, domain.DaysIn(time.February, 2000))
	assert.Equal(t, 31, domain.DaysIn(time.December, 2023))
	assert.Equal(t, 30, domain.DaysIn(time.April, 2023))
	assert.Equal(t, 28, domain.MinDaysIn(time.February))
}
