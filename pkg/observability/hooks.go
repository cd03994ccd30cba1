package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/zonerules/pkg/domain"
)

// Combine returns hooks that invoke each of the given hooks in order.
func Combine(all ...domain.Hooks) domain.Hooks {
	return domain.Hooks{
		OnRulesResolved: func(ctx context.Context, e *domain.ResolveEvent) {
			for _, h := range all {
				h.RulesResolved(ctx, e)
			}
		},
		OnLocalResolved: func(ctx context.Context, e *domain.LocalEvent) {
			for _, h := range all {
				h.LocalResolved(ctx, e)
			}
		},
	}
}

// Logging returns hooks that log every event at debug level, and failed
// resolutions at warn.
func Logging(logger *slog.Logger) domain.Hooks {
	return domain.Hooks{
		OnRulesResolved: func(ctx context.Context, e *domain.ResolveEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "rules_resolved",
					"zone", e.ZoneID,
					"duration", e.Duration,
					"err", e.Err,
				)
				return
			}
			logger.DebugContext(ctx, "rules_resolved",
				"zone", e.ZoneID,
				"cached", e.Cached,
				"duration", e.Duration,
			)
		},
		OnLocalResolved: func(ctx context.Context, e *domain.LocalEvent) {
			logger.DebugContext(ctx, "local_resolved",
				"zone", e.ZoneID,
				"local", e.Local.String(),
				"kind", e.Kind.String(),
			)
		},
	}
}
