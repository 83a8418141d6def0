package tables

import (
	"fmt"
	"strings"
)

// Issue is a non-fatal problem found in an artifact that Build accepts.
type Issue struct {
	Section string
	Index   int
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s[%d]: %s", i.Section, i.Index, i.Message)
}

// Lint reports rows that load fine but cannot behave as the author intended:
// keywords shadowed by an earlier, shorter keyword, duplicate keywords or
// geofence names, and geofence centers outside the municipal bounds.
func Lint(t *Tables) []Issue {
	var issues []Issue

	seen := make(map[string]int, len(t.Zones))
	for i, z := range t.Zones {
		kw := strings.ToLower(strings.TrimSpace(z.Keyword))
		if j, dup := seen[kw]; dup {
			issues = append(issues, Issue{"zones", i, fmt.Sprintf("duplicate keyword %q (first at zones[%d])", z.Keyword, j)})
			continue
		}
		for j := 0; j < i; j++ {
			earlier := strings.ToLower(strings.TrimSpace(t.Zones[j].Keyword))
			if strings.Contains(kw, earlier) && t.Zones[j].CanonicalZone != z.CanonicalZone {
				issues = append(issues, Issue{"zones", i, fmt.Sprintf(
					"keyword %q can never match: it contains earlier keyword %q (zones[%d])", z.Keyword, t.Zones[j].Keyword, j)})
				break
			}
		}
		seen[kw] = i
	}

	names := make(map[string]int, len(t.Geofences))
	for i, g := range t.Geofences {
		key := strings.ToLower(g.Name)
		if j, dup := names[key]; dup {
			issues = append(issues, Issue{"geofences", i, fmt.Sprintf("duplicate name %q (first at geofences[%d])", g.Name, j)})
		} else {
			names[key] = i
		}
		if !t.Bounds.IsZero() && !t.Bounds.Contains(g.Center) {
			issues = append(issues, Issue{"geofences", i, fmt.Sprintf("%s: center %.5f,%.5f is outside bounds", g.Name, g.Center.Lat, g.Center.Lon)})
		}
		if g.Category.AlwaysStrict() && !g.IsStrict {
			issues = append(issues, Issue{"geofences", i, fmt.Sprintf("%s: %s zones are always strict; set is_strict", g.Name, g.Category)})
		}
	}

	return issues
}
