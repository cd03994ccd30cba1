package ports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/aretw0/zonerules/pkg/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ContractRegion is the region every provider under contract test must hold.
const ContractRegion = "Europe/Testland"

// Fixture is one region version a provider must be seeded with before
// RunRulesProviderContract is called.
type Fixture struct {
	Region  string
	Version string
	Rules   *rules.Rules
}

// ContractFixtures returns the data RunRulesProviderContract expects.
// Version "2018a" holds the 2018 transitions only; "2019a" adds EU-style rules.
func ContractFixtures() []Fixture {
	cet := domain.MustOffset(1, 0, 0)
	cest := domain.MustOffset(2, 0, 0)
	sunday := time.Sunday
	rule := func(month time.Month, before, after domain.Offset) domain.TransitionRule {
		return domain.MustTransitionRule(domain.RuleSpec{
			Month:          month,
			DayIndicator:   -1,
			DayOfWeek:      &sunday,
			TimeOfDay:      time.Hour,
			Definition:     domain.UTCTime,
			StandardOffset: cet,
			OffsetBefore:   before,
			OffsetAfter:    after,
		})
	}
	spring, autumn := rule(time.March, cet, cest), rule(time.October, cest, cet)
	history := []domain.Transition{spring.ForYear(2018), autumn.ForYear(2018)}

	return []Fixture{
		{
			Region:  ContractRegion,
			Version: "2018a",
			Rules:   rules.MustNew(rules.Config{BaseStandard: cet, BaseWall: cet, Transitions: history}),
		},
		{
			Region:  ContractRegion,
			Version: "2019a",
			Rules: rules.MustNew(rules.Config{
				BaseStandard: cet,
				BaseWall:     cet,
				Transitions:  history,
				LastRules:    []domain.TransitionRule{spring, autumn},
			}),
		},
	}
}

// RunRulesProviderContract runs a suite of tests to verify that a RulesProvider
// implementation adheres to the defined interface contract.
// The provider must already hold ContractFixtures.
func RunRulesProviderContract(t *testing.T, provider RulesProvider) {
	ctx := context.Background()
	fixtures := ContractFixtures()

	t.Run("Rules", func(t *testing.T) {
		for _, f := range fixtures {
			got, err := provider.Rules(ctx, f.Region, f.Version)
			require.NoError(t, err, "Rules(%s, %s)", f.Region, f.Version)
			assert.True(t, f.Rules.Equal(got), "%s#%s: got %s, want %s", f.Region, f.Version, got, f.Rules)
		}
	})

	t.Run("LatestVersion", func(t *testing.T) {
		v, err := provider.LatestVersion(ctx, ContractRegion)
		require.NoError(t, err)
		assert.Equal(t, "2019a", v)
	})

	t.Run("Versions Newest First", func(t *testing.T) {
		versions, err := provider.Versions(ctx, ContractRegion)
		require.NoError(t, err)
		assert.Equal(t, []string{"2019a", "2018a"}, versions)
	})

	t.Run("Regions", func(t *testing.T) {
		regions, err := provider.Regions(ctx)
		require.NoError(t, err)
		assert.Contains(t, regions, ContractRegion)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := provider.Rules(ctx, "Nowhere/Atlantis", "2019a")
		assert.ErrorIs(t, err, domain.ErrUnknownZone)

		_, err = provider.Rules(ctx, ContractRegion, "1999z")
		assert.ErrorIs(t, err, domain.ErrUnknownZone)

		_, err = provider.LatestVersion(ctx, "Nowhere/Atlantis")
		assert.ErrorIs(t, err, domain.ErrUnknownZone)

		_, err = provider.Versions(ctx, "Nowhere/Atlantis")
		assert.ErrorIs(t, err, domain.ErrUnknownZone)
	})

	t.Run("Concurrent Reads", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := provider.Rules(ctx, ContractRegion, "2019a"); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}
	})
}
