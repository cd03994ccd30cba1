package rules

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/zonerules/pkg/domain"
)

// lastCachedYear bounds the per-year projection cache.
const lastCachedYear = 2100

// Config is the raw data an engine is built from.
//
// Transitions must be strictly increasing in time, and each transition's
// OffsetBefore must equal the previous OffsetAfter (or the base offset for
// the first one). LastRules describe behaviour after the last transition.
type Config struct {
	BaseStandard        domain.Offset
	BaseWall            domain.Offset
	StandardTransitions []domain.Transition
	Transitions         []domain.Transition
	LastRules           []domain.TransitionRule
}

// Rules answers offset queries for a single zone.
// A built engine is immutable and safe for concurrent use.
type Rules struct {
	built bool

	standardTransitions []domain.Transition
	standardEpochs      []int64
	standardOffsets     []domain.Offset

	transitions []domain.Transition
	epochs      []int64
	wallOffsets []domain.Offset
	// localBoundaries holds two entries per transition: [before, after] for a
	// gap and [after, before] for an overlap, so the slice is sorted.
	localBoundaries []domain.LocalDateTime

	lastRules []domain.TransitionRule
	years     sync.Map // int -> []domain.Transition
}

// New validates cfg and builds an engine.
func New(cfg Config) (*Rules, error) {
	r := &Rules{
		built:               true,
		standardTransitions: slices.Clone(cfg.StandardTransitions),
		transitions:         slices.Clone(cfg.Transitions),
		lastRules:           slices.Clone(cfg.LastRules),
	}

	var err error
	r.standardEpochs, r.standardOffsets, err = chain("standard", cfg.BaseStandard, r.standardTransitions)
	if err != nil {
		return nil, err
	}
	r.epochs, r.wallOffsets, err = chain("wall", cfg.BaseWall, r.transitions)
	if err != nil {
		return nil, err
	}

	r.localBoundaries = make([]domain.LocalDateTime, 0, 2*len(r.transitions))
	for _, t := range r.transitions {
		if t.IsGap() {
			r.localBoundaries = append(r.localBoundaries, t.LocalBefore(), t.LocalAfter())
		} else {
			r.localBoundaries = append(r.localBoundaries, t.LocalAfter(), t.LocalBefore())
		}
	}
	for i := 1; i < len(r.localBoundaries); i++ {
		if r.localBoundaries[i].Before(r.localBoundaries[i-1]) {
			return nil, fmt.Errorf("%w: transitions %s and %s overlap on the local time-line",
				domain.ErrInvalidArgument, r.transitions[(i-1)/2], r.transitions[i/2])
		}
	}

	if err := r.checkLastRules(); err != nil {
		return nil, err
	}
	return r, nil
}

// MustNew is like New but panics on error.
func MustNew(cfg Config) *Rules {
	r, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return r
}

// Fixed returns an engine that always applies offset.
func Fixed(offset domain.Offset) *Rules {
	return &Rules{
		built:           true,
		standardOffsets: []domain.Offset{offset},
		wallOffsets:     []domain.Offset{offset},
	}
}

func chain(name string, base domain.Offset, transitions []domain.Transition) ([]int64, []domain.Offset, error) {
	epochs := make([]int64, len(transitions))
	offsets := make([]domain.Offset, 0, len(transitions)+1)
	offsets = append(offsets, base)
	for i, t := range transitions {
		epochs[i] = t.EpochSecond()
		if i > 0 && epochs[i] <= epochs[i-1] {
			return nil, nil, fmt.Errorf("%w: %s transitions not strictly increasing at %s", domain.ErrInvalidArgument, name, t)
		}
		if t.OffsetBefore() != offsets[i] {
			return nil, nil, fmt.Errorf("%w: %s transition %s does not follow offset %s", domain.ErrInvalidArgument, name, t, offsets[i])
		}
		offsets = append(offsets, t.OffsetAfter())
	}
	return epochs, offsets, nil
}

// checkLastRules requires the projections of two consecutive years, taken
// after the history ends, to be strictly increasing.
func (r *Rules) checkLastRules() error {
	if len(r.lastRules) == 0 {
		return nil
	}
	year := 2000
	if n := len(r.transitions); n > 0 {
		year = r.transitions[n-1].LocalAfter().Year() + 1
	}
	projected := slices.Concat(r.project(year), r.project(year+1))
	for i := 1; i < len(projected); i++ {
		if projected[i].Compare(projected[i-1]) <= 0 {
			return fmt.Errorf("%w: rules project out of order: %s then %s", domain.ErrInvalidArgument, projected[i-1], projected[i])
		}
	}
	return nil
}

func (r *Rules) check() error {
	if r == nil || !r.built {
		return fmt.Errorf("%w: engine holds neither transitions nor rules", domain.ErrInternalConsistency)
	}
	return nil
}

// project returns the transitions the last rules generate for year.
// The returned slice is shared and must not be modified.
func (r *Rules) project(year int) []domain.Transition {
	if cached, ok := r.years.Load(year); ok {
		return cached.([]domain.Transition)
	}
	out := make([]domain.Transition, len(r.lastRules))
	for i, rule := range r.lastRules {
		out[i] = rule.ForYear(year)
	}
	if year < lastCachedYear {
		cached, _ := r.years.LoadOrStore(year, out)
		return cached.([]domain.Transition)
	}
	return out
}

// beyondHistory reports whether the rules, not the history, govern epochSecond.
func (r *Rules) beyondHistory(epochSecond int64) bool {
	if len(r.lastRules) == 0 {
		return false
	}
	return len(r.epochs) == 0 || epochSecond > r.epochs[len(r.epochs)-1]
}

func (r *Rules) lastWallOffset() domain.Offset {
	return r.wallOffsets[len(r.wallOffsets)-1]
}

// OffsetAt returns the offset in force at instant.
func (r *Rules) OffsetAt(instant time.Time) (domain.Offset, error) {
	if err := r.check(); err != nil {
		return domain.UTC, err
	}
	sec := instant.Unix()
	if r.beyondHistory(sec) {
		// A rule projected for one year may take effect in the next, so the
		// neighbouring years are scanned too.
		year := domain.FromEpochSecond(sec, r.lastWallOffset()).Year()
		var last domain.Transition
		for y := year - 1; y <= year+1; y++ {
			for _, t := range r.project(y) {
				if sec < t.EpochSecond() {
					return t.OffsetBefore(), nil
				}
				last = t
			}
		}
		return last.OffsetAfter(), nil
	}
	idx := sort.Search(len(r.epochs), func(i int) bool { return r.epochs[i] > sec })
	return r.wallOffsets[idx], nil
}

// ResolveLocal classifies local as Normal, Gap or Overlap.
//
// Gap and Overlap are half-open intervals: the first local time inside the
// discontinuity is included and the first local time after it is not.
func (r *Rules) ResolveLocal(local domain.LocalDateTime) (domain.OffsetInfo, error) {
	if err := r.check(); err != nil {
		return domain.OffsetInfo{}, err
	}
	if len(r.lastRules) > 0 && (len(r.localBoundaries) == 0 || local.After(r.localBoundaries[len(r.localBoundaries)-1])) {
		var info domain.OffsetInfo
		for y := local.Year() - 1; y <= local.Year()+1; y++ {
			for _, t := range r.project(y) {
				info = classify(local, t)
				if info.IsDiscontinuity() {
					return info, nil
				}
				if off, _ := info.Offset(); off == t.OffsetBefore() {
					return info, nil
				}
			}
		}
		return info, nil
	}

	pos := sort.Search(len(r.localBoundaries), func(i int) bool { return r.localBoundaries[i].After(local) }) - 1
	switch {
	case pos < 0:
		return domain.NewOffsetInfo(local, r.wallOffsets[0]), nil
	case pos%2 == 0:
		return domain.NewDiscontinuity(local, r.transitions[pos/2]), nil
	default:
		return domain.NewOffsetInfo(local, r.wallOffsets[pos/2+1]), nil
	}
}

// classify places local relative to a single transition.
func classify(local domain.LocalDateTime, t domain.Transition) domain.OffsetInfo {
	before, after := t.LocalBefore(), t.LocalAfter()
	if t.IsGap() {
		switch {
		case local.Before(before):
			return domain.NewOffsetInfo(local, t.OffsetBefore())
		case local.Before(after):
			return domain.NewDiscontinuity(local, t)
		}
		return domain.NewOffsetInfo(local, t.OffsetAfter())
	}
	switch {
	case !local.Before(before):
		return domain.NewOffsetInfo(local, t.OffsetAfter())
	case local.Before(after):
		return domain.NewOffsetInfo(local, t.OffsetBefore())
	}
	return domain.NewDiscontinuity(local, t)
}

// OffsetInfoAt resolves the local date-time observed at instant. The result is
// never a Gap, since that local time did occur; it is an Overlap when the same
// reading occurs twice.
func (r *Rules) OffsetInfoAt(instant time.Time) (domain.OffsetInfo, error) {
	offset, err := r.OffsetAt(instant)
	if err != nil {
		return domain.OffsetInfo{}, err
	}
	return r.ResolveLocal(domain.LocalOf(instant, offset))
}

// StandardOffsetAt returns the standard offset in force at instant.
// After the last standard transition the last standard offset applies.
func (r *Rules) StandardOffsetAt(instant time.Time) (domain.Offset, error) {
	if err := r.check(); err != nil {
		return domain.UTC, err
	}
	sec := instant.Unix()
	idx := sort.Search(len(r.standardEpochs), func(i int) bool { return r.standardEpochs[i] > sec })
	return r.standardOffsets[idx], nil
}

// DaylightSavingsAt returns the offset minus the standard offset at instant.
func (r *Rules) DaylightSavingsAt(instant time.Time) (time.Duration, error) {
	offset, err := r.OffsetAt(instant)
	if err != nil {
		return 0, err
	}
	standard, err := r.StandardOffsetAt(instant)
	if err != nil {
		return 0, err
	}
	return offset.Sub(standard), nil
}

// IsDaylightSavings reports whether a daylight adjustment is in force at instant.
func (r *Rules) IsDaylightSavings(instant time.Time) bool {
	d, err := r.DaylightSavingsAt(instant)
	return err == nil && d != 0
}

// IsValidOffset reports whether offset is valid for local: the single offset
// of a Normal resolution, or either side of an Overlap. Never true in a Gap.
func (r *Rules) IsValidOffset(local domain.LocalDateTime, offset domain.Offset) bool {
	info, err := r.ResolveLocal(local)
	if err != nil {
		return false
	}
	return info.IsValidOffset(offset)
}

// IsValidOffsetDateTime reports whether the offset of odt is valid for its local date-time.
func (r *Rules) IsValidOffsetDateTime(odt domain.OffsetDateTime) bool {
	return r.IsValidOffset(odt.Local, odt.Offset)
}

// NextTransition returns the first transition strictly after instant.
func (r *Rules) NextTransition(instant time.Time) (domain.Transition, bool) {
	if r.check() != nil {
		return domain.Transition{}, false
	}
	sec := instant.Unix()
	if !r.beyondHistory(sec) {
		idx := sort.Search(len(r.epochs), func(i int) bool { return r.epochs[i] > sec })
		if idx < len(r.epochs) {
			return r.transitions[idx], true
		}
		if len(r.lastRules) == 0 {
			return domain.Transition{}, false
		}
	}
	year := domain.FromEpochSecond(sec, domain.UTC).Year() - 1
	for y := year; y <= year+2; y++ {
		for _, t := range r.project(y) {
			if t.EpochSecond() > sec && r.afterHistory(t) {
				return t, true
			}
		}
	}
	return domain.Transition{}, false
}

// PreviousTransition returns the last transition strictly before instant.
func (r *Rules) PreviousTransition(instant time.Time) (domain.Transition, bool) {
	if r.check() != nil {
		return domain.Transition{}, false
	}
	sec := instant.Unix()
	if r.beyondHistory(sec) {
		year := domain.FromEpochSecond(sec, domain.UTC).Year() + 1
		for y := year; y >= year-2; y-- {
			projected := r.project(y)
			for i := len(projected) - 1; i >= 0; i-- {
				t := projected[i]
				if t.EpochSecond() < sec && r.afterHistory(t) {
					return t, true
				}
			}
		}
	}
	idx := sort.Search(len(r.epochs), func(i int) bool { return r.epochs[i] >= sec })
	if idx == 0 {
		return domain.Transition{}, false
	}
	return r.transitions[idx-1], true
}

func (r *Rules) afterHistory(t domain.Transition) bool {
	return len(r.epochs) == 0 || t.EpochSecond() > r.epochs[len(r.epochs)-1]
}

// TransitionsBetween lists the transitions in [from, to), history first and
// then rule projections, in ascending order.
func (r *Rules) TransitionsBetween(from, to time.Time) []domain.Transition {
	if r.check() != nil || !from.Before(to) {
		return nil
	}
	lo, hi := from.Unix(), to.Unix()

	var out []domain.Transition
	start := sort.Search(len(r.epochs), func(i int) bool { return r.epochs[i] >= lo })
	for i := start; i < len(r.epochs) && r.epochs[i] < hi; i++ {
		out = append(out, r.transitions[i])
	}
	if len(r.lastRules) == 0 {
		return out
	}

	first := domain.FromEpochSecond(lo, domain.UTC).Year() - 1
	if n := len(r.transitions); n > 0 {
		first = max(first, r.transitions[n-1].LocalAfter().Year())
	}
	last := domain.FromEpochSecond(hi, domain.UTC).Year() + 1
	for y := first; y <= last; y++ {
		for _, t := range r.project(y) {
			sec := t.EpochSecond()
			if sec >= lo && sec < hi && r.afterHistory(t) {
				out = append(out, t)
			}
		}
	}
	return out
}

// Transitions returns a copy of the historical transitions.
func (r *Rules) Transitions() []domain.Transition {
	if r == nil {
		return nil
	}
	return slices.Clone(r.transitions)
}

// StandardTransitions returns a copy of the standard-offset transitions.
func (r *Rules) StandardTransitions() []domain.Transition {
	if r == nil {
		return nil
	}
	return slices.Clone(r.standardTransitions)
}

// TransitionRules returns a copy of the rules used after the last transition.
func (r *Rules) TransitionRules() []domain.TransitionRule {
	if r == nil {
		return nil
	}
	return slices.Clone(r.lastRules)
}

// Config returns the data the engine was built from.
func (r *Rules) Config() Config {
	if r == nil || !r.built {
		return Config{}
	}
	return Config{
		BaseStandard:        r.standardOffsets[0],
		BaseWall:            r.wallOffsets[0],
		StandardTransitions: r.StandardTransitions(),
		Transitions:         r.Transitions(),
		LastRules:           r.TransitionRules(),
	}
}

// IsFixedOffset reports whether the engine has a single offset for all time.
func (r *Rules) IsFixedOffset() bool {
	return r.check() == nil && len(r.transitions) == 0 && len(r.lastRules) == 0
}

// Equal compares the transition data and rules element-wise. Engines with
// identical behaviour but different data may still compare unequal.
func (r *Rules) Equal(other *Rules) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.built != other.built {
		return false
	}
	return slices.Equal(r.standardOffsets, other.standardOffsets) &&
		slices.Equal(r.wallOffsets, other.wallOffsets) &&
		slices.EqualFunc(r.standardTransitions, other.standardTransitions, domain.Transition.Equal) &&
		slices.EqualFunc(r.transitions, other.transitions, domain.Transition.Equal) &&
		slices.EqualFunc(r.lastRules, other.lastRules, domain.TransitionRule.Equal)
}

// String renders a short summary such as "Rules[standard=+01:00, transitions=2, rules=2]".
func (r *Rules) String() string {
	if r.check() != nil {
		return "Rules[empty]"
	}
	return fmt.Sprintf("Rules[standard=%s, transitions=%d, rules=%d]",
		r.standardOffsets[len(r.standardOffsets)-1].ID(), len(r.transitions), len(r.lastRules))
}
