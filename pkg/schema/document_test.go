package schema_test

import (
	"errors"
	"testing"
	"time"

	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/aretw0/zonerules/pkg/ports"
	"github.com/aretw0/zonerules/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const parisYAML = `
region: Europe/Paris
version: 2019c
standard_offset: "+01:00"
transitions:
  - at: "2018-03-25T02:00"
    before: "+01:00"
    after: "+02:00"
  - at: "2018-10-28T03:00"
    before: "+02:00"
    after: "+01:00"
rules:
  - month: March
    day: -1
    day_of_week: Sunday
    time: "01:00"
    definition: utc
    standard: "+01:00"
    before: "+01:00"
    after: "+02:00"
  - month: oct
    day: -1
    day_of_week: sun
    time: "01:00"
    definition: u
    standard: "+01:00"
    before: "+02:00"
    after: "+01:00"
`

func TestZoneDocument_Build(t *testing.T) {
	doc, err := schema.Unmarshal("paris.yaml", []byte(parisYAML))
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", doc.Region)
	assert.Len(t, doc.Rules, 2)

	r, err := doc.Build()
	require.NoError(t, err)
	assert.Len(t, r.Transitions(), 2)
	require.Len(t, r.TransitionRules(), 2)

	// 2030 comes from the rules: summer time starts on the last Sunday of March.
	off, err := r.OffsetAt(time.Date(2030, time.July, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, domain.MustOffset(2, 0, 0), off)
}

func TestZoneDocument_RoundTrip(t *testing.T) {
	for _, f := range ports.ContractFixtures() {
		for _, name := range []string{"zone.yaml", "zone.json"} {
			t.Run(f.Version+" "+name, func(t *testing.T) {
				doc := schema.FromRules(f.Region, f.Version, f.Rules)
				data, err := schema.Marshal(name, doc)
				require.NoError(t, err)

				decoded, err := schema.Unmarshal(name, data)
				require.NoError(t, err)
				assert.Equal(t, doc, decoded)

				r, err := decoded.Build()
				require.NoError(t, err)
				assert.True(t, f.Rules.Equal(r), "got %s, want %s", r, f.Rules)
			})
		}
	}
}

func TestZoneDocument_Map(t *testing.T) {
	f := ports.ContractFixtures()[1]
	doc := schema.FromRules(f.Region, f.Version, f.Rules)

	raw, err := doc.Map()
	require.NoError(t, err)
	assert.Equal(t, f.Region, raw["region"])

	decoded, err := schema.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, doc, decoded)
}

func TestDecode_WeakTypes(t *testing.T) {
	doc, err := schema.Decode(map[string]any{
		"region":          "Test/Zone",
		"version":         "1",
		"standard_offset": "+03:00",
		"rules": []any{
			map[string]any{"month": "4", "day": "1", "time": "00:00", "standard": "+03:00", "before": "+03:00", "after": "+04:00"},
		},
	})
	require.NoError(t, err)
	require.Len(t, doc.Rules, 1)
	assert.Equal(t, schema.DayIndicator(1), doc.Rules[0].Day)

	_, err = schema.Decode(map[string]any{"region": "Test/Zone", "colour": "blue"})
	assert.Error(t, err)
}

func TestZoneDocument_POSIX(t *testing.T) {
	doc := schema.ZoneDocument{
		Region:         "America/Testville",
		Version:        "2024a",
		StandardOffset: "-05:00",
		POSIX:          "EST5EDT,M3.2.0,M11.1.0",
	}
	r, err := doc.Build()
	require.NoError(t, err)
	require.Len(t, r.TransitionRules(), 2)

	off, err := r.OffsetAt(time.Date(2031, time.March, 9, 7, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, domain.MustOffset(-4, 0, 0), off)
}

func TestZoneDocument_Validation(t *testing.T) {
	doc := schema.ZoneDocument{
		StandardOffset: "+25:00",
		Transitions: []schema.TransitionDoc{
			{At: "yesterday", Before: "+01:00", After: "+02:00"},
			{At: "2019-03-31T02:00", Before: "+01:00", After: "+01:00"},
		},
		Rules: []schema.RuleDoc{{Month: "Smarch", Day: 1, Time: "25:00", Standard: "+01:00", Before: "+01:00", After: "+02:00"}},
		POSIX: "CET-1CEST,M3.5.0,M10.5.0/3",
	}

	_, err := doc.Config()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	var agg *schema.AggregateError
	require.True(t, errors.As(err, &agg))

	keys := make([]string, 0, len(agg.Errors))
	for _, v := range schema.ValidationErrors(err) {
		keys = append(keys, v.Key)
	}
	assert.Equal(t, []string{
		"region",
		"version",
		"standard_offset",
		"transitions[0].at",
		"transitions[1]",
		"posix",
	}, keys)

	_, err = doc.Build()
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Len(t, schema.ValidationErrors(err), 6)
}

func TestZoneDocument_RuleErrors(t *testing.T) {
	doc := schema.ZoneDocument{
		Region:         "Test/Zone",
		Version:        "1",
		StandardOffset: "+01:00",
		Rules: []schema.RuleDoc{
			{Month: "Smarch", Day: 1, DayOfWeek: "Caturday", Time: "25:00", Definition: "solar", Standard: "+01:00", Before: "+01:00", After: "+02:00"},
		},
	}
	_, err := doc.Config()
	require.Error(t, err)

	var keys []string
	for _, v := range schema.ValidationErrors(err) {
		keys = append(keys, v.Key)
	}
	assert.Equal(t, []string{"rules[0].month", "rules[0].day_of_week", "rules[0].time", "rules[0].definition"}, keys)
}

func TestUnmarshal_UnknownFields(t *testing.T) {
	_, err := schema.Unmarshal("zone.yaml", []byte("region: A/B\nzone: nope\n"))
	assert.Error(t, err)

	_, err = schema.Unmarshal("zone.json", []byte(`{"region": "A/B", "zone": "nope"}`))
	assert.Error(t, err)
}

func TestDayIndicator_QuotedNumbers(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
		want schema.DayIndicator
	}{
		{"JSON Number", "zone.json", `{"rules": [{"day": -1}]}`, -1},
		{"JSON String", "zone.json", `{"rules": [{"day": "-1"}]}`, -1},
		{"YAML Number", "zone.yaml", "rules:\n  - day: 8\n", 8},
		{"YAML String", "zone.yaml", "rules:\n  - day: \"8\"\n", 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := schema.Unmarshal(tt.file, []byte(tt.data))
			require.NoError(t, err)
			require.Len(t, doc.Rules, 1)
			assert.Equal(t, tt.want, doc.Rules[0].Day)
		})
	}

	_, err := schema.Unmarshal("zone.json", []byte(`{"rules": [{"day": "last"}]}`))
	assert.ErrorContains(t, err, "invalid number")
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in   string
		want time.Month
		ok   bool
	}{
		{"March", time.March, true},
		{"mar", time.March, true},
		{"12", time.December, true},
		{"13", 0, false},
		{"Ma", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := schema.ParseMonth(tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, domain.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWeekday(t *testing.T) {
	got, err := schema.ParseWeekday("SUN")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, got)

	got, err = schema.ParseWeekday("friday")
	require.NoError(t, err)
	assert.Equal(t, time.Friday, got)

	_, err = schema.ParseWeekday("Fri.")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"00:00", 0, true},
		{"01:30", 90 * time.Minute, true},
		{"02:00:30", 2*time.Hour + 30*time.Second, true},
		{"24:00", 24 * time.Hour, true},
		{"24:01", 0, false},
		{"1:00", 0, false},
		{"01:60", 0, false},
		{"01", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := schema.ParseTimeOfDay(tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, domain.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, schema.FormatTimeOfDay(got))
		})
	}
}

func TestDocumentID(t *testing.T) {
	id := schema.DocumentID("America/Argentina/Buenos_Aires", "2019c")
	assert.Equal(t, "America/Argentina/Buenos_Aires@2019c", id)

	region, version, ok := schema.SplitDocumentID(id)
	require.True(t, ok)
	assert.Equal(t, "America/Argentina/Buenos_Aires", region)
	assert.Equal(t, "2019c", version)

	for _, bad := range []string{"Europe/Paris", "@2019c", "Europe/Paris@"} {
		_, _, ok := schema.SplitDocumentID(bad)
		assert.False(t, ok, bad)
	}
}
