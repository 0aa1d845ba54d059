// Package feeds maps a site locale to the ordered list of upstream search
// feed URLs that the news endpoint aggregates.
package feeds

import (
	"net/url"
	"strings"
)

// Locale is one of the site languages.
type Locale string

const (
	English   Locale = "en"
	Norwegian Locale = "no"
	Arabic    Locale = "ar"

	DefaultLocale = English
)

// Locales lists every supported locale in display order.
var Locales = []Locale{English, Norwegian, Arabic}

// ParseLocale normalizes raw and falls back to DefaultLocale for anything
// outside the supported set.
func ParseLocale(raw string) Locale {
	switch l := Locale(strings.ToLower(strings.TrimSpace(raw))); l {
	case English, Norwegian, Arabic:
		return l
	case "nb", "nn":
		return Norwegian
	default:
		return DefaultLocale
	}
}

// Region holds the edition parameters the upstream search expects.
type Region struct {
	Language string // hl
	Country  string // gl
	Edition  string // ceid
}

var regions = map[Locale]Region{
	English:   {Language: "en-US", Country: "US", Edition: "US:en"},
	Norwegian: {Language: "no", Country: "NO", Edition: "NO:no"},
	Arabic:    {Language: "ar", Country: "EG", Edition: "EG:ar"},
}

// Queries are ordered: the bare subject with the tightest recency first,
// then mediation, humanitarian, policy, research and named-actor angles.
// The "when:" suffix is the upstream recency qualifier.
var queries = map[Locale][]string{
	English: {
		"Sudan when:12h",
		"Sudan peace talks OR mediation OR negotiations when:3d",
		"Sudan ceasefire OR truce when:3d",
		"Sudan humanitarian aid OR famine when:3d",
		"Sudan refugees OR displaced when:3d",
		"Sudan sanctions OR \"Security Council\" when:7d",
		"Sudan economy OR research OR report when:7d",
		"\"Sudanese Armed Forces\" OR SAF Sudan when:3d",
		"\"Rapid Support Forces\" OR RSF Sudan when:3d",
		"Darfur OR \"El Fasher\" OR Kordofan when:3d",
		"SPLM-N OR \"Sudan Liberation Movement\" when:7d",
		"Khartoum OR \"Port Sudan\" when:2d",
	},
	Norwegian: {
		"Sudan when:1d",
		"Sudan fredssamtaler OR mekling OR forhandlinger when:7d",
		"Sudan våpenhvile when:7d",
		"Sudan humanitær OR nødhjelp OR sult when:7d",
		"Sudan flyktninger OR fordrevne when:7d",
		"Sudan sanksjoner OR FN when:7d",
		"Sudan Norge bistand when:7d",
		"Sudans hær OR SAF when:7d",
		"RSF Sudan OR \"Rapid Support Forces\" when:7d",
		"Darfur OR Khartoum when:7d",
	},
	Arabic: {
		"السودان when:12h",
		"السودان مفاوضات OR وساطة when:3d",
		"السودان وقف إطلاق النار when:3d",
		"السودان مساعدات إنسانية OR مجاعة when:3d",
		"السودان نازحين OR لاجئين when:3d",
		"السودان عقوبات OR مجلس الأمن when:7d",
		"السودان اقتصاد OR دراسة when:7d",
		"الجيش السوداني when:3d",
		"قوات الدعم السريع when:3d",
		"دارفور OR الفاشر OR كردفان when:3d",
		"الحركة الشعبية شمال OR حركة تحرير السودان when:7d",
	},
}

// RegionFor returns the edition parameters for l.
func RegionFor(l Locale) Region {
	if r, ok := regions[l]; ok {
		return r
	}
	return regions[DefaultLocale]
}

// Queries returns a copy of the query table for l.
func Queries(l Locale) []string {
	q, ok := queries[l]
	if !ok {
		q = queries[DefaultLocale]
	}
	return append([]string(nil), q...)
}

// Builder turns query strings into feed URLs against BaseURL.
type Builder struct {
	BaseURL string
}

// URLs returns one feed URL per configured query for l, in table order and
// without duplicates.
func (b Builder) URLs(l Locale) []string {
	region := RegionFor(l)
	seen := make(map[string]struct{})
	out := make([]string, 0, len(queries[l]))
	for _, q := range Queries(l) {
		u := b.feedURL(q, region)
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func (b Builder) feedURL(query string, region Region) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", region.Language)
	params.Set("gl", region.Country)
	params.Set("ceid", region.Edition)

	sep := "?"
	if strings.Contains(b.BaseURL, "?") {
		sep = "&"
	}
	return b.BaseURL + sep + params.Encode()
}
