package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/devgoel186/tracemon/internal/model"
)

// Pattern is a compiled Rule. It is immutable once built.
type Pattern struct {
	rule Rule
	re   *regexp.Regexp
}

// Compile validates a rule and compiles its expression.
func Compile(r Rule) (*Pattern, error) {
	re, err := regexp.Compile(r.Match)
	if err != nil {
		return nil, fmt.Errorf("rule %q: invalid match pattern: %w", r.Kind, err)
	}
	if r.PathGroup == 0 {
		r.PathGroup = 1
	}
	if err := validate(r, re); err != nil {
		return nil, err
	}
	return &Pattern{rule: r, re: re}, nil
}

// Rule returns the rule the pattern was compiled from.
func (p *Pattern) Rule() Rule { return p.rule }

// Match tries the pattern against a line. ok is false when the line does not
// match or the captured flags differ from the guard.
func (p *Pattern) Match(line model.RawLine) (model.Event, bool) {
	m := p.re.FindStringSubmatch(line.Text)
	if m == nil {
		return model.Event{}, false
	}

	flags := group(m, p.rule.FlagsGroup)
	if p.rule.Flags != "" && flags != p.rule.Flags {
		return model.Event{}, false
	}

	ev := model.Event{
		Kind:   p.rule.Kind,
		Path:   group(m, p.rule.PathGroup),
		Target: group(m, p.rule.TargetGroup),
		Flags:  flags,
		Source: line.Source,
		Line:   line.Number,
		Raw:    line.Text,
	}
	ev.Message = strings.NewReplacer(
		"{path}", ev.Path,
		"{target}", ev.Target,
		"{flags}", ev.Flags,
	).Replace(p.rule.Template)
	return ev, true
}

// group returns capture i, or "" when i is zero. Groups that did not
// participate in the match are also "".
func group(m []string, i int) string {
	if i <= 0 || i >= len(m) {
		return ""
	}
	return m[i]
}

// Classifier evaluates an ordered set of patterns against trace lines.
// It holds no per-line state and is safe for concurrent use.
type Classifier struct {
	patterns []*Pattern
}

// New compiles the given rules, in order, into a Classifier.
func New(rules []Rule) (*Classifier, error) {
	c := &Classifier{patterns: make([]*Pattern, 0, len(rules))}
	for _, r := range rules {
		p, err := Compile(r)
		if err != nil {
			return nil, err
		}
		c.patterns = append(c.patterns, p)
	}
	return c, nil
}

// NewDefault returns a Classifier over the built-in rules.
func NewDefault() *Classifier {
	c, err := New(DefaultRules())
	if err != nil {
		panic(err)
	}
	return c
}

// WithRules returns the built-in rules followed by extra.
func WithRules(extra []Rule) (*Classifier, error) {
	return New(append(DefaultRules(), extra...))
}

// Classify returns one event per matching pattern, in pattern order.
// A line that matches nothing yields nil.
func (c *Classifier) Classify(line model.RawLine) []model.Event {
	var events []model.Event
	for _, p := range c.patterns {
		if ev, ok := p.Match(line); ok {
			events = append(events, ev)
		}
	}
	return events
}

// Rules returns the rules of every pattern in evaluation order.
func (c *Classifier) Rules() []Rule {
	rules := make([]Rule, len(c.patterns))
	for i, p := range c.patterns {
		rules[i] = p.rule
	}
	return rules
}
