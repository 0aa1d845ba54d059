package filter

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_policy.yaml
var defaultPolicy []byte

// Policy is the editable form of the filter rules.
type Policy struct {
	Blocklist         SourceList        `yaml:"blocklist"`
	Trusted           SourceList        `yaml:"trusted"`
	Institutional     Institutional     `yaml:"institutional"`
	Relevance         Relevance         `yaml:"relevance"`
	Noise             []string          `yaml:"noise"`
	ArmedNarrative    ArmedNarrative    `yaml:"armed_narrative"`
	MovementNarrative MovementNarrative `yaml:"movement_narrative"`
}

// SourceList names outlets by host and by display name.
type SourceList struct {
	Hosts []string `yaml:"hosts"`
	Names []string `yaml:"names"`
}

// Institutional identifies official and academic sources.
type Institutional struct {
	HostPatterns    []string `yaml:"host_patterns"`
	HostFragments   []string `yaml:"host_fragments"`
	DiplomaticNames []string `yaml:"diplomatic_names"`
}

// Relevance lists the patterns that put a story on topic.
type Relevance struct {
	Subject   []string `yaml:"subject"`
	Actors    []string `yaml:"actors"`
	Movements []string `yaml:"movements"`
}

// ArmedNarrative describes triumphalist coverage of one armed actor.
type ArmedNarrative struct {
	FirstActor   []string `yaml:"first_actor"`
	SecondActor  []string `yaml:"second_actor"`
	Triumphalist []string `yaml:"triumphalist"`
	Neutral      []string `yaml:"neutral"`
}

// MovementNarrative describes glorifying coverage of the movement.
type MovementNarrative struct {
	Movement   []string `yaml:"movement"`
	Propaganda []string `yaml:"propaganda"`
	Analytic   []string `yaml:"analytic"`
}

// DefaultPolicy decodes the built-in policy document.
func DefaultPolicy() (Policy, error) {
	return ParsePolicy(defaultPolicy)
}

// ParsePolicy decodes a YAML policy document. Unknown keys are rejected.
func ParsePolicy(data []byte) (Policy, error) {
	var p Policy
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	return p, nil
}

// Load compiles the policy at path, or the built-in one when path is empty.
func Load(path string) (*Rules, error) {
	if path == "" {
		p, err := DefaultPolicy()
		if err != nil {
			return nil, err
		}
		return Compile(p)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", path, err)
	}
	p, err := ParsePolicy(data)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", path, err)
	}
	return Compile(p)
}

// Default returns the compiled built-in policy and panics if it is invalid.
func Default() *Rules {
	r, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("built-in news policy: %v", err))
	}
	return r
}

// Compile turns p into immutable Rules.
func Compile(p Policy) (*Rules, error) {
	var (
		r   Rules
		err error
	)
	compile := func(field string, patterns []string) *regexp.Regexp {
		if err != nil {
			return nil
		}
		var re *regexp.Regexp
		re, err = alternation(patterns)
		if err != nil {
			err = fmt.Errorf("%s: %w", field, err)
		}
		return re
	}

	r.blockedHosts = normalizeHosts(p.Blocklist.Hosts)
	r.trustedHosts = normalizeHosts(p.Trusted.Hosts)
	r.hostFragments = lowerAll(p.Institutional.HostFragments)

	r.institutional = compile("institutional.host_patterns", p.Institutional.HostPatterns)
	r.diplomatic = compile("institutional.diplomatic_names", p.Institutional.DiplomaticNames)
	r.subject = compile("relevance.subject", p.Relevance.Subject)
	r.actors = compile("relevance.actors", p.Relevance.Actors)
	r.movements = compile("relevance.movements", p.Relevance.Movements)
	r.noise = compile("noise", p.Noise)
	r.firstActor = compile("armed_narrative.first_actor", p.ArmedNarrative.FirstActor)
	r.secondActor = compile("armed_narrative.second_actor", p.ArmedNarrative.SecondActor)
	r.triumphalist = compile("armed_narrative.triumphalist", p.ArmedNarrative.Triumphalist)
	r.neutral = compile("armed_narrative.neutral", p.ArmedNarrative.Neutral)
	r.movement = compile("movement_narrative.movement", p.MovementNarrative.Movement)
	r.propaganda = compile("movement_narrative.propaganda", p.MovementNarrative.Propaganda)
	r.analytic = compile("movement_narrative.analytic", p.MovementNarrative.Analytic)
	if err != nil {
		return nil, err
	}

	if r.blockedNames, err = newNameMatcher(p.Blocklist.Names); err != nil {
		return nil, fmt.Errorf("blocklist.names: %w", err)
	}
	if r.trustedNames, err = newNameMatcher(p.Trusted.Names); err != nil {
		return nil, fmt.Errorf("trusted.names: %w", err)
	}
	return &r, nil
}

// alternation joins patterns into one case-insensitive expression. An
// empty list yields nil, which never matches.
func alternation(patterns []string) (*regexp.Regexp, error) {
	parts := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return regexp.Compile(`(?i)(?:` + strings.Join(parts, "|") + `)`)
}

func normalizeHosts(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range lowerAll(hosts) {
		if h = strings.TrimPrefix(strings.Trim(h, "."), "www."); h != "" {
			out = append(out, h)
		}
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// nameMatcher matches outlet names as case-insensitive substrings, except
// short names which must stand as whole words.
type nameMatcher struct {
	long  []string
	short *regexp.Regexp
}

func newNameMatcher(names []string) (nameMatcher, error) {
	var (
		m     nameMatcher
		short []string
	)
	for _, n := range lowerAll(names) {
		if len([]rune(n)) <= 3 {
			short = append(short, regexp.QuoteMeta(n))
			continue
		}
		m.long = append(m.long, n)
	}
	if len(short) > 0 {
		re, err := regexp.Compile(`(?i)(?:^|[^\p{L}\p{N}])(?:` + strings.Join(short, "|") + `)(?:$|[^\p{L}\p{N}])`)
		if err != nil {
			return nameMatcher{}, err
		}
		m.short = re
	}
	return m, nil
}

func (m nameMatcher) match(name string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, n := range m.long {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return m.short != nil && m.short.MatchString(name)
}
