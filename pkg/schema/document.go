package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/aretw0/zonerules/pkg/posix"
	"github.com/aretw0/zonerules/pkg/rules"
	"gopkg.in/yaml.v3"
)

// ZoneDocument is the declarative form of one region at one version.
type ZoneDocument struct {
	Region              string          `yaml:"region" json:"region" mapstructure:"region"`
	Version             string          `yaml:"version" json:"version" mapstructure:"version"`
	StandardOffset      string          `yaml:"standard_offset" json:"standard_offset" mapstructure:"standard_offset"`
	WallOffset          string          `yaml:"wall_offset,omitempty" json:"wall_offset,omitempty" mapstructure:"wall_offset"`
	StandardTransitions []TransitionDoc `yaml:"standard_transitions,omitempty" json:"standard_transitions,omitempty" mapstructure:"standard_transitions"`
	Transitions         []TransitionDoc `yaml:"transitions,omitempty" json:"transitions,omitempty" mapstructure:"transitions"`
	Rules               []RuleDoc       `yaml:"rules,omitempty" json:"rules,omitempty" mapstructure:"rules"`
	POSIX               string          `yaml:"posix,omitempty" json:"posix,omitempty" mapstructure:"posix"`
}

// TransitionDoc is one offset change. At is read in the Before frame.
type TransitionDoc struct {
	At     string `yaml:"at" json:"at" mapstructure:"at"`
	Before string `yaml:"before" json:"before" mapstructure:"before"`
	After  string `yaml:"after" json:"after" mapstructure:"after"`
}

// RuleDoc is one annual transition rule.
type RuleDoc struct {
	Month      string       `yaml:"month" json:"month" mapstructure:"month"`
	Day        DayIndicator `yaml:"day" json:"day" mapstructure:"day"`
	DayOfWeek  string       `yaml:"day_of_week,omitempty" json:"day_of_week,omitempty" mapstructure:"day_of_week"`
	Time       string       `yaml:"time" json:"time" mapstructure:"time"`
	Definition string       `yaml:"definition,omitempty" json:"definition,omitempty" mapstructure:"definition"`
	Standard   string       `yaml:"standard" json:"standard" mapstructure:"standard"`
	Before     string       `yaml:"before" json:"before" mapstructure:"before"`
	After      string       `yaml:"after" json:"after" mapstructure:"after"`
}

// DayIndicator is the day-of-month of a rule. It reads from a number or a
// quoted number, since frontmatter round trips may quote scalars.
type DayIndicator int

// UnmarshalJSON accepts 5, "5" and json.Number.
func (d *DayIndicator) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		return nil
	}
	return d.parse(strings.Trim(text, `"`))
}

// UnmarshalYAML accepts 5 and "5".
func (d *DayIndicator) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("day: expected a number, got a %s", nodeKind(node))
	}
	return d.parse(node.Value)
}

func (d *DayIndicator) parse(text string) error {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return fmt.Errorf("day: invalid number %q", text)
	}
	*d = DayIndicator(n)
	return nil
}

func nodeKind(node *yaml.Node) string {
	switch node.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	default:
		return "node"
	}
}

var (
	errRequired  = errors.New("required")
	errExclusive = errors.New("posix and rules are mutually exclusive")
)

// collector gathers field failures so a document reports all of them at once.
type collector struct {
	errs []error
}

func (c *collector) fail(key string, value any, err error) {
	reason := strings.TrimPrefix(err.Error(), domain.ErrInvalidArgument.Error()+": ")
	c.errs = append(c.errs, &ValidationError{Key: key, Reason: reason, Value: value})
}

func (c *collector) offset(key, text string) domain.Offset {
	o, err := domain.ParseOffset(text)
	if err != nil {
		c.fail(key, text, err)
	}
	return o
}

func (c *collector) transitions(key string, docs []TransitionDoc) []domain.Transition {
	out := make([]domain.Transition, 0, len(docs))
	for i, d := range docs {
		prefix := fmt.Sprintf("%s[%d]", key, i)
		failed := len(c.errs)
		at, err := domain.ParseLocalDateTime(d.At)
		if err != nil {
			c.fail(prefix+".at", d.At, err)
		}
		before := c.offset(prefix+".before", d.Before)
		after := c.offset(prefix+".after", d.After)
		if len(c.errs) > failed {
			continue
		}
		t, err := domain.NewTransition(at, before, after)
		if err != nil {
			c.fail(prefix, nil, err)
			continue
		}
		out = append(out, t)
	}
	return out
}

func (c *collector) rule(key string, d RuleDoc) (domain.TransitionRule, bool) {
	failed := len(c.errs)
	spec := domain.RuleSpec{
		DayIndicator:   int(d.Day),
		StandardOffset: c.offset(key+".standard", d.Standard),
		OffsetBefore:   c.offset(key+".before", d.Before),
		OffsetAfter:    c.offset(key+".after", d.After),
	}
	var err error
	if spec.Month, err = ParseMonth(d.Month); err != nil {
		c.fail(key+".month", d.Month, err)
	}
	if d.DayOfWeek != "" {
		weekday, err := ParseWeekday(d.DayOfWeek)
		if err != nil {
			c.fail(key+".day_of_week", d.DayOfWeek, err)
		}
		spec.DayOfWeek = &weekday
	}
	if spec.TimeOfDay, err = ParseTimeOfDay(d.Time); err != nil {
		c.fail(key+".time", d.Time, err)
	}
	if spec.Definition, err = domain.ParseTimeDefinition(d.Definition); err != nil {
		c.fail(key+".definition", d.Definition, err)
	}
	if len(c.errs) > failed {
		return domain.TransitionRule{}, false
	}
	r, err := domain.NewTransitionRule(spec)
	if err != nil {
		c.fail(key, nil, err)
		return domain.TransitionRule{}, false
	}
	return r, true
}

// Config validates the document and returns the engine configuration.
func (d ZoneDocument) Config() (rules.Config, error) {
	var c collector
	if d.Region == "" {
		c.fail("region", nil, errRequired)
	}
	if d.Version == "" {
		c.fail("version", nil, errRequired)
	}

	cfg := rules.Config{BaseStandard: c.offset("standard_offset", d.StandardOffset)}
	cfg.BaseWall = cfg.BaseStandard
	if d.WallOffset != "" {
		cfg.BaseWall = c.offset("wall_offset", d.WallOffset)
	}
	cfg.StandardTransitions = c.transitions("standard_transitions", d.StandardTransitions)
	cfg.Transitions = c.transitions("transitions", d.Transitions)

	switch {
	case d.POSIX != "" && len(d.Rules) > 0:
		c.fail("posix", d.POSIX, errExclusive)
	case d.POSIX != "":
		spec, err := posix.Parse(d.POSIX)
		if err == nil {
			cfg.LastRules, err = spec.Rules()
		}
		if err != nil {
			c.fail("posix", d.POSIX, err)
		}
	default:
		for i, rd := range d.Rules {
			if r, ok := c.rule(fmt.Sprintf("rules[%d]", i), rd); ok {
				cfg.LastRules = append(cfg.LastRules, r)
			}
		}
	}

	if len(c.errs) > 0 {
		return rules.Config{}, &AggregateError{Errors: c.errs}
	}
	return cfg, nil
}

// Build validates the document and returns its engine.
func (d ZoneDocument) Build() (*rules.Rules, error) {
	cfg, err := d.Config()
	if err != nil {
		return nil, fmt.Errorf("zone %s#%s: %w", d.Region, d.Version, err)
	}
	r, err := rules.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("zone %s#%s: %w", d.Region, d.Version, err)
	}
	return r, nil
}

// FromRules describes r as a document. Rules are always written out
// explicitly, never as a POSIX string.
func FromRules(region, version string, r *rules.Rules) ZoneDocument {
	cfg := r.Config()
	d := ZoneDocument{
		Region:              region,
		Version:             version,
		StandardOffset:      cfg.BaseStandard.ID(),
		StandardTransitions: transitionDocs(cfg.StandardTransitions),
		Transitions:         transitionDocs(cfg.Transitions),
	}
	if cfg.BaseWall != cfg.BaseStandard {
		d.WallOffset = cfg.BaseWall.ID()
	}
	for _, rule := range cfg.LastRules {
		spec := rule.Spec()
		rd := RuleDoc{
			Month:      spec.Month.String(),
			Day:        DayIndicator(spec.DayIndicator),
			Time:       FormatTimeOfDay(spec.TimeOfDay),
			Definition: spec.Definition.String(),
			Standard:   spec.StandardOffset.ID(),
			Before:     spec.OffsetBefore.ID(),
			After:      spec.OffsetAfter.ID(),
		}
		if spec.DayOfWeek != nil {
			rd.DayOfWeek = spec.DayOfWeek.String()
		}
		d.Rules = append(d.Rules, rd)
	}
	return d
}

func transitionDocs(ts []domain.Transition) []TransitionDoc {
	if len(ts) == 0 {
		return nil
	}
	out := make([]TransitionDoc, len(ts))
	for i, t := range ts {
		out[i] = TransitionDoc{At: t.LocalBefore().String(), Before: t.OffsetBefore().ID(), After: t.OffsetAfter().ID()}
	}
	return out
}

// ParseMonth accepts an English month name, its three-letter abbreviation or 1-12.
func ParseMonth(text string) (time.Month, error) {
	if n, err := strconv.Atoi(text); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("%w: month %d", domain.ErrInvalidArgument, n)
		}
		return time.Month(n), nil
	}
	lower := strings.ToLower(text)
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if lower == name || (len(lower) == 3 && strings.HasPrefix(name, lower)) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: month %q", domain.ErrInvalidArgument, text)
}

// ParseWeekday accepts an English weekday name or its three-letter abbreviation.
func ParseWeekday(text string) (time.Weekday, error) {
	lower := strings.ToLower(text)
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if lower == name || (len(lower) == 3 && strings.HasPrefix(name, lower)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: weekday %q", domain.ErrInvalidArgument, text)
}

// ParseTimeOfDay reads "hh:mm" or "hh:mm:ss" between 00:00 and 24:00.
func ParseTimeOfDay(text string) (time.Duration, error) {
	parts := strings.Split(text, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: time %q", domain.ErrInvalidArgument, text)
	}
	var fields [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || len(p) != 2 {
			return 0, fmt.Errorf("%w: time %q", domain.ErrInvalidArgument, text)
		}
		fields[i] = n
	}
	d := time.Duration(fields[0])*time.Hour + time.Duration(fields[1])*time.Minute + time.Duration(fields[2])*time.Second
	if fields[1] > 59 || fields[2] > 59 || d > domain.EndOfDay {
		return 0, fmt.Errorf("%w: time %q", domain.ErrInvalidArgument, text)
	}
	return d, nil
}

// FormatTimeOfDay renders "hh:mm", or "hh:mm:ss" when seconds are set.
func FormatTimeOfDay(d time.Duration) string {
	secs := int(d / time.Second)
	h, m, s := secs/3600, secs/60%60, secs%60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// DocumentID names a document by region and version, e.g. "Europe/Paris@2019a".
func DocumentID(region, version string) string {
	return region + "@" + version
}

// SplitDocumentID is the inverse of DocumentID.
func SplitDocumentID(id string) (region, version string, ok bool) {
	i := strings.LastIndexByte(id, '@')
	if i <= 0 || i == len(id)-1 {
		return "", "", false
	}
	return id[:i], id[i+1:], true
}
