package domain

import "strings"

// DefaultZone is the barangay assigned when no keyword matches and the tables
// artifact does not name its own default.
const DefaultZone = "Almanza Uno"

// ZoneLookupEntry maps a road-name keyword to a canonical barangay.
type ZoneLookupEntry struct {
	Keyword       string `json:"keyword" yaml:"keyword"`
	CanonicalZone string `json:"canonical_zone" yaml:"zone"`
}

// PlaceMatcher resolves free-text road names to barangays using an ordered
// keyword table. Earlier entries take priority over later ones.
type PlaceMatcher struct {
	entries     []ZoneLookupEntry
	needles     []string
	defaultZone string
}

// NewPlaceMatcher copies entries so later mutation by the caller cannot affect
// matching. A blank defaultZone falls back to DefaultZone.
func NewPlaceMatcher(entries []ZoneLookupEntry, defaultZone string) *PlaceMatcher {
	if strings.TrimSpace(defaultZone) == "" {
		defaultZone = DefaultZone
	}
	m := &PlaceMatcher{
		entries:     make([]ZoneLookupEntry, len(entries)),
		needles:     make([]string, len(entries)),
		defaultZone: defaultZone,
	}
	copy(m.entries, entries)
	for i, e := range entries {
		m.needles[i] = strings.ToLower(strings.TrimSpace(e.Keyword))
	}
	return m
}

// MatchZone returns the zone of the first entry whose keyword appears in
// roadName, ignoring case. It never fails: unmatched names, including the
// empty string, resolve to the default zone.
func (m *PlaceMatcher) MatchZone(roadName string) string {
	zone, _ := m.Lookup(roadName)
	return zone
}

// Lookup is MatchZone that also reports whether a keyword matched.
func (m *PlaceMatcher) Lookup(roadName string) (string, bool) {
	haystack := strings.ToLower(roadName)
	if haystack != "" {
		for i, needle := range m.needles {
			if needle != "" && strings.Contains(haystack, needle) {
				return m.entries[i].CanonicalZone, true
			}
		}
	}
	return m.defaultZone, false
}

// DefaultZone returns the fallback barangay.
func (m *PlaceMatcher) DefaultZone() string {
	return m.defaultZone
}

// Entries returns a copy of the lookup table in priority order.
func (m *PlaceMatcher) Entries() []ZoneLookupEntry {
	out := make([]ZoneLookupEntry, len(m.entries))
	copy(out, m.entries)
	return out
}
