package filter

import (
	"regexp"
	"strings"

	"github.com/sudandialogue/newsdesk/internal/feedparse"
	"github.com/sudandialogue/newsdesk/internal/models"
)

// Rules is a compiled Policy. It is safe for concurrent use.
type Rules struct {
	blockedHosts  []string
	blockedNames  nameMatcher
	trustedHosts  []string
	trustedNames  nameMatcher
	hostFragments []string

	institutional *regexp.Regexp
	diplomatic    *regexp.Regexp

	subject   *regexp.Regexp
	actors    *regexp.Regexp
	movements *regexp.Regexp
	noise     *regexp.Regexp

	firstActor   *regexp.Regexp
	secondActor  *regexp.Regexp
	triumphalist *regexp.Regexp
	neutral      *regexp.Regexp

	movement   *regexp.Regexp
	propaganda *regexp.Regexp
	analytic   *regexp.Regexp
}

// Candidate is the view of an item the predicates work on.
type Candidate struct {
	Host string
	Name string
	Text string
}

// CandidateOf derives a Candidate from item. The host comes from the
// publisher URL, falling back to the article URL.
func CandidateOf(item models.NewsItem) Candidate {
	host := feedparse.HostOf(item.SourceURL)
	if host == "" {
		host = feedparse.HostOf(item.URL)
	}
	return Candidate{
		Host: host,
		Name: strings.TrimSpace(item.Source),
		Text: item.Title + " " + item.Summary,
	}
}

// Blocked reports whether the host or name belongs to an excluded outlet.
func (r *Rules) Blocked(c Candidate) bool {
	return hostIn(c.Host, r.blockedHosts) || r.blockedNames.match(c.Name)
}

// HasSourceSignal reports whether the story can be attributed at all.
func (r *Rules) HasSourceSignal(c Candidate) bool {
	return c.Host != "" || c.Name != ""
}

// Relevant reports whether text is about the monitored subject: a place or
// country reference, one of the armed actors or a named movement.
func (r *Rules) Relevant(text string) bool {
	return matches(r.subject, text) || matches(r.actors, text) || matches(r.movements, text)
}

// Noise reports gambling and promotional text.
func (r *Rules) Noise(text string) bool {
	return matches(r.noise, text)
}

// TrustedHost reports whether host equals or is a subdomain of an
// allowlisted outlet host.
func (r *Rules) TrustedHost(host string) bool {
	return hostIn(host, r.trustedHosts)
}

// TrustedName reports whether name contains an allowlisted outlet name.
func (r *Rules) TrustedName(name string) bool {
	return r.trustedNames.match(name)
}

// InstitutionalHost reports government, international-organization and
// academic hosts, and hosts of foreign ministries and embassies.
func (r *Rules) InstitutionalHost(host string) bool {
	if host == "" {
		return false
	}
	if matches(r.institutional, host) {
		return true
	}
	for _, f := range r.hostFragments {
		if strings.Contains(host, f) {
			return true
		}
	}
	return false
}

// DiplomaticName reports source names of foreign ministries and embassies.
func (r *Rules) DiplomaticName(name string) bool {
	return matches(r.diplomatic, name)
}

// Trusted is true for any allowlisted or institutional source.
func (r *Rules) Trusted(c Candidate) bool {
	return r.TrustedHost(c.Host) || r.TrustedName(c.Name) ||
		r.InstitutionalHost(c.Host) || r.DiplomaticName(c.Name)
}

// OneSidedArmedNarrative flags text that celebrates one armed actor's
// battlefield results without naming the other side and without any
// humanitarian or political context.
func (r *Rules) OneSidedArmedNarrative(text string) bool {
	first, second := matches(r.firstActor, text), matches(r.secondActor, text)
	if first == second {
		return false
	}
	return matches(r.triumphalist, text) && !matches(r.neutral, text)
}

// OneSidedMovementNarrative flags text that glorifies the political-religious
// movement without analytic framing.
func (r *Rules) OneSidedMovementNarrative(text string) bool {
	return matches(r.movement, text) &&
		matches(r.propaganda, text) &&
		!matches(r.analytic, text)
}

func matches(re *regexp.Regexp, s string) bool {
	return re != nil && s != "" && re.MatchString(s)
}

func hostIn(host string, list []string) bool {
	if host == "" {
		return false
	}
	for _, h := range list {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
