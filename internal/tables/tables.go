// Package tables loads the versioned classification artifact: the ordered
// zone lookup table, geofence seeds, municipal bounds, and scoring policy.
// It is read once at startup; the classifier never sees the file again.
package tables

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/traffic-zone-classifier/internal/domain"
)

//go:embed default_tables.yaml
var defaultTables []byte

// File mirrors the YAML layout of a tables artifact.
type File struct {
	Version     string                   `yaml:"version"`
	DefaultZone string                   `yaml:"default_zone"`
	Bounds      domain.Bounds            `yaml:"bounds"`
	Zones       []domain.ZoneLookupEntry `yaml:"zones"`
	Geofences   []GeofenceSeed           `yaml:"geofences"`
	Scoring     *ScoringSeed             `yaml:"scoring"`
}

// GeofenceSeed is one geofence row as written in YAML.
type GeofenceSeed struct {
	Name             string  `yaml:"name"`
	Lat              float64 `yaml:"lat"`
	Lon              float64 `yaml:"lon"`
	RadiusMeters     float64 `yaml:"radius_meters"`
	Category         string  `yaml:"category"`
	IsStrict         bool    `yaml:"is_strict"`
	FineAmount       float64 `yaml:"fine_amount"`
	EnforcementHours string  `yaml:"enforcement_hours"`
}

// ScoringSeed overrides the default scoring policy. Unset scalars keep their
// defaults; map entries are merged over the default maps.
type ScoringSeed struct {
	UncategorizedBase  *float64           `yaml:"uncategorized_base"`
	IncidentWeight     *float64           `yaml:"incident_weight"`
	IncidentCap        *float64           `yaml:"incident_cap"`
	PhotoEvidenceBonus *float64           `yaml:"photo_evidence_bonus"`
	CategoryWeights    map[string]float64 `yaml:"category_weights"`
	SeverityBonus      map[string]float64 `yaml:"severity_bonus"`
}

// Tables is a parsed, validated artifact ready to build a classifier from.
type Tables struct {
	Version     string
	DefaultZone string
	Bounds      domain.Bounds
	Zones       []domain.ZoneLookupEntry
	Geofences   []domain.GeofenceDefinition
	Policy      domain.ScoringPolicy
}

// Load reads the artifact at path, or the embedded default when path is empty.
func Load(path string) (*Tables, error) {
	data := defaultTables
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read tables %s: %w", path, err)
		}
	}
	return Parse(data)
}

// Decode unmarshals the artifact without semantic validation.
func Decode(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tables: %w", err)
	}
	return &f, nil
}

// Parse decodes and validates an artifact.
func Parse(data []byte) (*Tables, error) {
	f, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return f.Build()
}

// Build validates the decoded file and converts it into domain types. Rows
// that would make classification ambiguous or meaningless are rejected.
func (f *File) Build() (*Tables, error) {
	if len(f.Zones) == 0 {
		return nil, fmt.Errorf("tables: at least one zone entry is required")
	}
	for i, z := range f.Zones {
		if strings.TrimSpace(z.Keyword) == "" {
			return nil, fmt.Errorf("tables: zones[%d]: keyword is required", i)
		}
		if strings.TrimSpace(z.CanonicalZone) == "" {
			return nil, fmt.Errorf("tables: zones[%d] (%s): zone is required", i, z.Keyword)
		}
	}
	if b := f.Bounds; !b.IsZero() && (b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon) {
		return nil, fmt.Errorf("tables: bounds min must be below max")
	}

	fences := make([]domain.GeofenceDefinition, 0, len(f.Geofences))
	for i, g := range f.Geofences {
		def, err := g.definition()
		if err != nil {
			return nil, fmt.Errorf("tables: geofences[%d]: %w", i, err)
		}
		fences = append(fences, def)
	}

	policy, err := f.Scoring.policy()
	if err != nil {
		return nil, fmt.Errorf("tables: scoring: %w", err)
	}

	defaultZone := strings.TrimSpace(f.DefaultZone)
	if defaultZone == "" {
		defaultZone = domain.DefaultZone
	}

	zones := make([]domain.ZoneLookupEntry, len(f.Zones))
	copy(zones, f.Zones)

	return &Tables{
		Version:     f.Version,
		DefaultZone: defaultZone,
		Bounds:      f.Bounds,
		Zones:       zones,
		Geofences:   fences,
		Policy:      policy,
	}, nil
}

func (g GeofenceSeed) definition() (domain.GeofenceDefinition, error) {
	if strings.TrimSpace(g.Name) == "" {
		return domain.GeofenceDefinition{}, fmt.Errorf("name is required")
	}
	if !finite(g.RadiusMeters) || g.RadiusMeters <= 0 {
		return domain.GeofenceDefinition{}, fmt.Errorf("%s: radius_meters must be a positive finite number", g.Name)
	}
	if !finite(g.Lat) || g.Lat < -90 || g.Lat > 90 {
		return domain.GeofenceDefinition{}, fmt.Errorf("%s: lat must be within [-90, 90]", g.Name)
	}
	if !finite(g.Lon) || g.Lon < -180 || g.Lon > 180 {
		return domain.GeofenceDefinition{}, fmt.Errorf("%s: lon must be within [-180, 180]", g.Name)
	}
	category, err := domain.ParseCategory(g.Category)
	if err != nil {
		return domain.GeofenceDefinition{}, fmt.Errorf("%s: %w", g.Name, err)
	}
	if category == domain.CategoryNone {
		return domain.GeofenceDefinition{}, fmt.Errorf("%s: category is required", g.Name)
	}
	return domain.GeofenceDefinition{
		Name:             g.Name,
		Center:           domain.Geo{Lat: g.Lat, Lon: g.Lon},
		RadiusMeters:     g.RadiusMeters,
		Category:         category,
		IsStrict:         g.IsStrict,
		FineAmount:       g.FineAmount,
		EnforcementHours: g.EnforcementHours,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (s *ScoringSeed) policy() (domain.ScoringPolicy, error) {
	p := domain.DefaultScoringPolicy()
	if s == nil {
		return p, nil
	}
	setIf(&p.UncategorizedBase, s.UncategorizedBase)
	setIf(&p.IncidentWeight, s.IncidentWeight)
	setIf(&p.IncidentCap, s.IncidentCap)
	setIf(&p.PhotoEvidenceBonus, s.PhotoEvidenceBonus)

	for name, w := range s.CategoryWeights {
		c, err := domain.ParseCategory(name)
		if err != nil || c == domain.CategoryNone {
			return p, fmt.Errorf("category_weights: unknown category %q", name)
		}
		p.CategoryWeights[c] = w
	}
	for name, b := range s.SeverityBonus {
		sev, err := domain.ParseSeverity(name)
		if err != nil {
			return p, fmt.Errorf("severity_bonus: %w", err)
		}
		p.SeverityBonus[sev] = b
	}
	if p.IncidentCap < 0 || p.IncidentWeight < 0 {
		return p, fmt.Errorf("incident_weight and incident_cap must not be negative")
	}
	return p, nil
}

func setIf(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// Classifier builds a classifier over the loaded tables.
func (t *Tables) Classifier(strictCoordinates bool) *domain.Classifier {
	return domain.NewClassifier(
		domain.NewPlaceMatcher(t.Zones, t.DefaultZone),
		domain.NewGeofenceEvaluator(t.Geofences, t.Bounds),
		domain.NewRiskAggregator(t.Policy),
		strictCoordinates,
	)
}
