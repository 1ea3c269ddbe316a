package parser

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/devgoel186/tracemon/internal/model"
)

// Rule is the declarative form of an event pattern.
// Group indices refer to capture groups in Match; PathGroup defaults to 1,
// TargetGroup and FlagsGroup are unused when zero.
type Rule struct {
	Kind        model.Kind `yaml:"kind"                   json:"kind"`
	Match       string     `yaml:"match"                  json:"match"`
	PathGroup   int        `yaml:"path_group,omitempty"   json:"path_group,omitempty"`
	TargetGroup int        `yaml:"target_group,omitempty" json:"target_group,omitempty"`
	FlagsGroup  int        `yaml:"flags_group,omitempty"  json:"flags_group,omitempty"`
	Flags       string     `yaml:"flags,omitempty"        json:"flags,omitempty"` // exact flags guard
	Template    string     `yaml:"template"               json:"template"`
}

// ruleFile is the on-disk YAML structure for user rules.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// The three openat rules share one shape and differ only by the guard.
const (
	openatWithMode = `.*openat.*"(.*)", (.*),`
	openatNoMode   = `.*openat.*"(.*)", (.*)\).*`
)

// DefaultRules returns the built-in syscall rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Kind: model.KindRemoveDir, Match: `.*rmdir\("(.*)"\)`, Template: "Removed directory: {path}"},
		{Kind: model.KindMakeDir, Match: `.*mkdir."(.*)".*`, Template: "Made directory: {path}"},
		{Kind: model.KindChangeDir, Match: `.*chdir\("(.*)"\)`, Template: "Travelled to directory: {path}"},
		{Kind: model.KindUnlink, Match: `.*unlinkat.*"(.*)"`, Template: "Deleted file: {path}"},
		{
			Kind:        model.KindHardlink,
			Match:       `.*.*linkat\(.*"(.*)".*"(.*)"`,
			TargetGroup: 2,
			Template:    "Created hardlink: {target} for {path}",
		},
		{
			Kind:       model.KindCreate,
			Match:      openatWithMode,
			FlagsGroup: 2,
			Flags:      "O_WRONLY|O_CREAT|O_NOCTTY|O_NONBLOCK",
			Template:   "Created file: {path}",
		},
		{
			Kind:       model.KindWrite,
			Match:      openatWithMode,
			FlagsGroup: 2,
			Flags:      "O_WRONLY|O_CREAT|O_TRUNC",
			Template:   "Written into file: {path}",
		},
		{
			Kind:       model.KindRead,
			Match:      openatNoMode,
			FlagsGroup: 2,
			Flags:      "O_RDONLY",
			Template:   "Reading file: {path}",
		},
	}
}

// LoadRules reads additional rules from a YAML file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	return ParseRules(data)
}

// ParseRules parses a YAML rules document and validates every rule in it.
func ParseRules(data []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	for i, r := range f.Rules {
		if _, err := Compile(r); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return f.Rules, nil
}

var placeholderRe = regexp.MustCompile(`\{[a-z]+\}`)

// validate checks a rule against its compiled expression.
func validate(r Rule, re *regexp.Regexp) error {
	if r.Kind == "" {
		return fmt.Errorf("kind is required")
	}
	if r.Template == "" {
		return fmt.Errorf("rule %q: template is required", r.Kind)
	}

	groups := re.NumSubexp()
	check := func(name string, idx int) error {
		if idx < 0 || idx > groups {
			return fmt.Errorf("rule %q: %s %d out of range (pattern has %d groups)", r.Kind, name, idx, groups)
		}
		return nil
	}
	if err := check("path_group", r.PathGroup); err != nil {
		return err
	}
	if err := check("target_group", r.TargetGroup); err != nil {
		return err
	}
	if err := check("flags_group", r.FlagsGroup); err != nil {
		return err
	}
	if r.Flags != "" && r.FlagsGroup == 0 {
		return fmt.Errorf("rule %q: flags guard needs flags_group", r.Kind)
	}

	for _, p := range placeholderRe.FindAllString(r.Template, -1) {
		switch p {
		case "{path}", "{target}", "{flags}":
		default:
			return fmt.Errorf("rule %q: unknown placeholder %s in template", r.Kind, p)
		}
	}
	return nil
}
