// Package indicator matches suspicious strings in extracted document
// text. Categories are coarse keyword and pattern lists kept in line
// with the legacy analysis pipeline: matching legacy decisions matters
// more here than maximizing recall.
package indicator

import (
	"regexp"
	"slices"
	"sort"
	"strings"
)

// Detections maps an indicator category to the ordered set of matched
// values. Values within a category are unique; adding an existing
// value is a no-op, which keeps merges idempotent and commutative.
type Detections map[string][]string

// Add records values under category, skipping values already present.
func (d Detections) Add(category string, values ...string) {
	for _, v := range values {
		if v == "" {
			continue
		}
		if !slices.Contains(d[category], v) {
			d[category] = append(d[category], v)
		}
	}
}

// Merge unions every category of other into d.
func (d Detections) Merge(other Detections) {
	for category, values := range other {
		d.Add(category, values...)
	}
}

// Categories returns the category names in sorted order.
func (d Detections) Categories() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	urlPattern   = regexp.MustCompile(`(?i)\b(?:https?|ftp)://[^\s"'<>\)]+`)
	emailPattern = regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`)
	ipPattern    = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

	// Lines mentioning a password often carry the password itself
	// ("password: INFECTED"), so the whole line is kept as the match.
	passwordLinePattern = regexp.MustCompile(`(?im)^.*\b(?:password|passcode|passphrase)\b.*$`)
)

// Keyword lists are English-only on purpose; they mirror the terms the
// legacy pipeline flagged.
var termCategories = map[string][]string{
	"ransomware": {
		"your files have been encrypted",
		"your files are encrypted",
		"recover your files",
		"restore your files",
		"decrypt",
		"ransom",
		"bitcoin",
	},
	"macro": {
		"enable macro",
		"enable macros",
		"enable content",
		"enable editing",
	},
}

// Scan runs every category matcher over text and returns the detections.
func Scan(text string) Detections {
	d := Detections{}
	if text == "" {
		return d
	}

	for _, m := range urlPattern.FindAllString(text, -1) {
		d.Add("url", m)
	}
	for _, m := range emailPattern.FindAllString(text, -1) {
		d.Add("email", m)
	}
	for _, m := range ipPattern.FindAllString(text, -1) {
		d.Add("ip", m)
	}
	for _, m := range passwordLinePattern.FindAllString(text, -1) {
		d.Add("password", strings.TrimSpace(m))
	}

	lower := strings.ToLower(text)
	for category, terms := range termCategories {
		for _, term := range terms {
			if strings.Contains(lower, term) {
				d.Add(category, term)
			}
		}
	}

	return d
}

// NetworkIndicators extracts email addresses, URLs and IP addresses
// from text. These are reported independently of the category-based
// detections.
func NetworkIndicators(text string) (emails, urls, ips []string) {
	seen := Detections{}
	for _, m := range emailPattern.FindAllString(text, -1) {
		seen.Add("email", m)
	}
	for _, m := range urlPattern.FindAllString(text, -1) {
		seen.Add("url", m)
	}
	for _, m := range ipPattern.FindAllString(text, -1) {
		seen.Add("ip", m)
	}
	return seen["email"], seen["url"], seen["ip"]
}
