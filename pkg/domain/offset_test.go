package domain_test

import (
	"testing"
	"time"

	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOffset(t *testing.T) {
	tests := []struct {
		text    string
		seconds int
		id      string
	}{
		{"Z", 0, "Z"},
		{"+00:00", 0, "Z"},
		{"+1", 3600, "+01:00"},
		{"-05", -5 * 3600, "-05:00"},
		{"+05:30", 5*3600 + 30*60, "+05:30"},
		{"+0545", 5*3600 + 45*60, "+05:45"},
		{"-00:30", -30 * 60, "-00:30"},
		{"+08:45:15", 8*3600 + 45*60 + 15, "+08:45:15"},
		{"-084515", -(8*3600 + 45*60 + 15), "-08:45:15"},
		{"+18:00", 18 * 3600, "+18:00"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			o, err := domain.ParseOffset(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.seconds, o.Seconds())
			assert.Equal(t, tt.id, o.ID())
		})
	}
}

func TestParseOffset_Invalid(t *testing.T) {
	for _, text := range []string{"", "+", "01:00", "+1:00", "+18:01", "+19", "+01:60", "+01:00:60", "+123", "+ab:cd", "+01:00:00:00", "++1", "+-0", "-+01", "+0-", "+01:+1", "+ 1"} {
		t.Run(text, func(t *testing.T) {
			_, err := domain.ParseOffset(text)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}
}

func TestNewOffset_Validation(t *testing.T) {
	_, err := domain.NewOffset(1, -30, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument, "mixed signs")

	_, err = domain.NewOffset(-18, 0, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument, "beyond -18h")

	_, err = domain.OffsetOfSeconds(domain.MaxOffsetSeconds + 1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	o, err := domain.NewOffset(-3, -30, 0)
	require.NoError(t, err)
	assert.Equal(t, "-03:30", o.ID())
}

func TestOffset_Arithmetic(t *testing.T) {
	one := domain.MustOffset(1, 0, 0)
	two := domain.MustOffset(2, 0, 0)

	assert.Equal(t, time.Hour, two.Sub(one))
	assert.Equal(t, -time.Hour, one.Sub(two))
	assert.Equal(t, -1, one.Compare(two))
	assert.Equal(t, 1, two.Compare(one))
	assert.Equal(t, 0, one.Compare(domain.MustOffset(1, 0, 0)))
	assert.Equal(t, domain.UTC, domain.Offset{})

	fromDuration, err := domain.OffsetOfDuration(90 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "+01:30", fromDuration.String())
}

func TestOffset_Text(t *testing.T) {
	var o domain.Offset
	require.NoError(t, o.UnmarshalText([]byte("-09:30")))
	text, err := o.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "-09:30", string(text))

	assert.Error(t, o.UnmarshalText([]byte("bogus")))
}
