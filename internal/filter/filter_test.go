package filter_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sudandialogue/newsdesk/internal/filter"
	"github.com/sudandialogue/newsdesk/internal/models"
)

func item(title, summary, source, sourceURL string) models.NewsItem {
	return models.NewsItem{
		ID:          title,
		Title:       title,
		URL:         "https://news.example/a/" + title,
		Source:      source,
		SourceURL:   sourceURL,
		PublishedAt: time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC),
		Summary:     summary,
	}
}

func TestCheckStages(t *testing.T) {
	rules := filter.Default()

	tests := []struct {
		name  string
		item  models.NewsItem
		stage filter.Stage
	}{
		{
			name:  "blocked host wins over relevance",
			item:  item("Sudan ceasefire talks resume in Jeddah", "Humanitarian aid reaches Darfur.", "World Desk", "https://www.rt.com"),
			stage: filter.StageBlocklist,
		},
		{
			name:  "blocked name",
			item:  item("Sudan ceasefire talks resume", "", "Sputnik International", "https://daily.example"),
			stage: filter.StageBlocklist,
		},
		{
			name: "no source signal",
			item: models.NewsItem{
				Title: "Sudan talks", URL: "urn:story:1", SourceURL: "urn:story:1",
				PublishedAt: time.Now(),
			},
			stage: filter.StageSourceSignal,
		},
		{
			name:  "off topic",
			item:  item("Champions League final preview", "Late kick-off in Madrid.", "Reuters", "https://www.reuters.com"),
			stage: filter.StageRelevance,
		},
		{
			name:  "promotional noise",
			item:  item("Sudan casino bonus with promo code", "Claim now.", "Deals Daily", "https://deals.example"),
			stage: filter.StageNoise,
		},
		{
			name:  "one-sided armed narrative",
			item:  item("SAF forces crush rebel positions in decisive victory", "Army statement issued on Tuesday.", "Front Line Daily", "https://frontline.example"),
			stage: filter.StageArmedNarrative,
		},
		{
			name:  "one-sided armed narrative in arabic",
			item:  item("الجيش السوداني يسحق قوات في الخرطوم", "", "صحيفة", "https://paper.example"),
			stage: filter.StageArmedNarrative,
		},
		{
			name:  "movement propaganda",
			item:  item("Islamic Movement hails heroic martyrs of Sudan", "", "Voice Daily", "https://voice.example"),
			stage: filter.StageMovementNarrative,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, ok := rules.Check(tt.item)
			require.False(t, ok)
			require.Equal(t, tt.stage, stage)
		})
	}
}

func TestCheckAccepts(t *testing.T) {
	rules := filter.Default()

	tests := []struct {
		name string
		item models.NewsItem
	}{
		{
			name: "armed narrative with neutral context",
			item: item("SAF forces crush rebel positions in decisive victory",
				"Fighting continued amid ongoing ceasefire talks and humanitarian concerns.", "Front Line Daily", "https://frontline.example"),
		},
		{
			name: "both actors named",
			item: item("SAF forces crush RSF stronghold", "", "Front Line Daily", "https://frontline.example"),
		},
		{
			name: "arabic with truce context",
			item: item("الجيش السوداني يسحق قوات في الخرطوم", "رغم الهدنة", "صحيفة", "https://paper.example"),
		},
		{
			name: "movement coverage with analysis",
			item: item("Islamic Movement hails heroic martyrs of Sudan", "A report examines its return.", "Voice Daily", "https://voice.example"),
		},
		{
			name: "noise from trusted host",
			item: item("Sudan lottery winners fund clinic", "", "Local", "https://www.bbc.co.uk/news"),
		},
		{
			name: "noise from institutional host",
			item: item("Sudan sponsored scholarship", "", "", "https://mfa.gov.sd/en"),
		},
		{
			name: "noise from diplomatic name",
			item: item("Sudan sponsored scholarship", "", "Royal Norwegian Embassy", "https://site.example"),
		},
		{
			name: "norwegian",
			item: item("Nye fredssamtaler om Sudan", "", "NRK", "https://www.nrk.no"),
		},
		{
			name: "article host when source url missing",
			item: models.NewsItem{
				Title: "Darfur aid convoy arrives", URL: "https://www.dabangasudan.org/en/1",
				PublishedAt: time.Now(),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, ok := rules.Check(tt.item)
			require.True(t, ok, "rejected at %s", stage)
		})
	}
}

func TestTrustedHost(t *testing.T) {
	rules := filter.Default()
	require.True(t, rules.TrustedHost("reuters.com"))
	require.True(t, rules.TrustedHost("news.bbc.co.uk"))
	require.False(t, rules.TrustedHost("notbbc.co.uk"))
	require.False(t, rules.TrustedHost("bbc.co.uk.evil.example"))
	require.False(t, rules.TrustedHost(""))
}

func TestTrustedName(t *testing.T) {
	rules := filter.Default()
	require.True(t, rules.TrustedName("Radio Dabanga English"))
	require.True(t, rules.TrustedName("AP News"))
	require.True(t, rules.TrustedName("reuters"))
	require.False(t, rules.TrustedName("Apple Daily"))
	require.False(t, rules.TrustedName(""))
}

func TestInstitutionalHost(t *testing.T) {
	rules := filter.Default()
	tests := []struct {
		host string
		want bool
	}{
		{host: "state.gov", want: true},
		{host: "gov.uk", want: true},
		{host: "fcdo.gov.uk", want: true},
		{host: "diplomatie.gouv.fr", want: true},
		{host: "who.int", want: true},
		{host: "ox.ac.uk", want: true},
		{host: "harvard.edu", want: true},
		{host: "regjeringen.no", want: true},
		{host: "mfa.gov.sd", want: true},
		{host: "embassy.example", want: true},
		{host: "reuters.com", want: false},
		{host: "governor.example", want: false},
		{host: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			require.Equal(t, tt.want, rules.InstitutionalHost(tt.host))
		})
	}
}

func TestApplyReport(t *testing.T) {
	rules := filter.Default()
	items := []models.NewsItem{
		item("Sudan ceasefire talks", "", "Reuters", "https://www.reuters.com"),
		item("Sudan ceasefire", "", "RT", "https://rt.com"),
		item("Weather in Oslo", "", "NRK", "https://nrk.no"),
		item("Khartoum market reopens", "", "Sudan Tribune", "https://sudantribune.com"),
	}
	kept, rep := rules.Apply(items)
	require.Len(t, kept, 2)
	require.Equal(t, "Sudan ceasefire talks", kept[0].Title)
	require.Equal(t, "Khartoum market reopens", kept[1].Title)
	require.Equal(t, 4, rep.Total)
	require.Equal(t, 2, rep.Accepted)
	require.Equal(t, 1, rep.Rejected[filter.StageBlocklist])
	require.Equal(t, 1, rep.Rejected[filter.StageRelevance])
	require.Equal(t, "accepted", rep.LogValue().Group()[1].Key)
}

func TestLoadPolicyOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	doc := `
blocklist:
  hosts: [bad.example]
relevance:
  subject: ['\bjeddah\b']
noise: ['\bpromo\b']
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	rules, err := filter.Load(path)
	require.NoError(t, err)

	_, ok := rules.Check(item("Jeddah talks resume", "", "Daily", "https://daily.example"))
	require.True(t, ok)

	stage, ok := rules.Check(item("Sudan talks resume", "", "Daily", "https://daily.example"))
	require.False(t, ok)
	require.Equal(t, filter.StageRelevance, stage)

	stage, _ = rules.Check(item("Jeddah talks", "", "Daily", "https://www.bad.example"))
	require.Equal(t, filter.StageBlocklist, stage)
}

func TestLoadPolicyErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown key", doc: "allowlist:\n  hosts: [a.example]\n"},
		{name: "bad pattern", doc: "noise: ['(unclosed']\n"},
		{name: "not yaml", doc: "noise: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0o600))
			_, err := filter.Load(path)
			require.Error(t, err)
		})
	}

	_, err := filter.Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
