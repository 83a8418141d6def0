package domain

import (
	"math"
	"time"
)

// Severity thresholds on the 0-100 risk score. Buckets are lower-closed:
// a score equal to a threshold belongs to the higher bucket.
const (
	ModerateThreshold = 30.0
	HighThreshold     = 60.0
	CriticalThreshold = 85.0

	MinRiskScore = 0.0
	MaxRiskScore = 100.0
)

// ScoringPolicy holds the tunable constants of the risk formula:
//
//	score = base(category) + min(IncidentWeight*ln(1+count), IncidentCap)
//	      + PhotoEvidenceBonus (if photo) + SeverityBonus[reported]
//
// clamped to [MinRiskScore, MaxRiskScore].
type ScoringPolicy struct {
	CategoryWeights    map[Category]float64
	UncategorizedBase  float64
	IncidentWeight     float64
	IncidentCap        float64
	PhotoEvidenceBonus float64
	SeverityBonus      map[Severity]float64
}

// DefaultScoringPolicy returns the shipped policy.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		CategoryWeights: map[Category]float64{
			CategoryFireStation:  90,
			CategoryHospital:     88,
			CategorySchool:       85,
			CategoryBridge:       65,
			CategoryIntersection: 60,
			CategoryGovernment:   55,
			CategoryMarket:       50,
			CategoryChurch:       45,
			CategoryBusStop:      40,
		},
		UncategorizedBase:  20,
		IncidentWeight:     5,
		IncidentCap:        25,
		PhotoEvidenceBonus: 10,
		SeverityBonus: map[Severity]float64{
			SeverityLow:      0,
			SeverityModerate: 5,
			SeverityHigh:     10,
			SeverityCritical: 15,
		},
	}
}

// Subject is one report reduced to the inputs of the risk formula.
type Subject struct {
	ID                      string
	Zone                    string
	Category                Category
	HistoricalIncidentCount int
	HasPhotoEvidence        bool
	ReportedSeverity        Severity
	InStrictGeofence        bool
}

// RiskClassification is the per-report classification record handed to
// persistence, keyed by SubjectID.
type RiskClassification struct {
	SubjectID string   `json:"subject_id"`
	Zone      *string  `json:"zone"`
	Category  *string  `json:"category"`
	Severity  Severity `json:"severity"`
	RiskScore float64  `json:"risk_score"`
	IsStrict  bool     `json:"is_strict"`
	Priority  Priority `json:"priority"`

	ReportType       ReportType `json:"report_type,omitempty"`
	Geofence         *string    `json:"geofence"`
	GeofenceMatches  int        `json:"geofence_matches"`
	FineAmount       float64    `json:"fine_amount,omitempty"`
	EnforcementHours string     `json:"enforcement_hours,omitempty"`
	ClassifiedAt     time.Time  `json:"classified_at"`

	// ZoneFallback is set when no keyword matched and Zone is the default.
	ZoneFallback bool `json:"-"`
}

// RiskAggregator scores subjects under a fixed policy.
type RiskAggregator struct {
	policy ScoringPolicy
}

// NewRiskAggregator copies the policy maps so the aggregator stays immutable.
func NewRiskAggregator(policy ScoringPolicy) *RiskAggregator {
	weights := make(map[Category]float64, len(policy.CategoryWeights))
	for k, v := range policy.CategoryWeights {
		weights[k] = v
	}
	bonus := make(map[Severity]float64, len(policy.SeverityBonus))
	for k, v := range policy.SeverityBonus {
		bonus[k] = v
	}
	policy.CategoryWeights = weights
	policy.SeverityBonus = bonus
	return &RiskAggregator{policy: policy}
}

// Classify scores a subject. It fails with a *ValidationError when the
// incident count is negative or the category or reported severity is unknown.
// The result carries no timestamp; callers stamp ClassifiedAt.
func (a *RiskAggregator) Classify(s Subject) (RiskClassification, error) {
	if s.HistoricalIncidentCount < 0 {
		return RiskClassification{}, newValidationError("historical_incident_count", s.HistoricalIncidentCount, "must not be negative")
	}
	if s.Category != CategoryNone && !s.Category.Valid() {
		return RiskClassification{}, newValidationError("category", s.Category, "unknown category")
	}
	if !s.ReportedSeverity.Valid() {
		return RiskClassification{}, newValidationError("reported_severity", s.ReportedSeverity, "unknown severity")
	}

	score := a.Score(s)
	severity := SeverityForScore(score)

	return RiskClassification{
		SubjectID: s.ID,
		Zone:      optional(s.Zone),
		Category:  optional(string(s.Category)),
		Severity:  severity,
		RiskScore: score,
		IsStrict:  s.Category.AlwaysStrict() || s.InStrictGeofence,
		Priority:  PriorityFor(severity, s.HasPhotoEvidence),
	}, nil
}

// Score computes the clamped risk score without validating the subject.
func (a *RiskAggregator) Score(s Subject) float64 {
	base, ok := a.policy.CategoryWeights[s.Category]
	if !ok {
		base = a.policy.UncategorizedBase
	}

	score := base + a.incidentContribution(s.HistoricalIncidentCount)
	if s.HasPhotoEvidence {
		score += a.policy.PhotoEvidenceBonus
	}
	score += a.policy.SeverityBonus[s.ReportedSeverity]

	return clampScore(score)
}

// incidentContribution grows logarithmically with history and saturates at
// IncidentCap, so a hotspot cannot dominate the category weight.
func (a *RiskAggregator) incidentContribution(count int) float64 {
	if count <= 0 {
		return 0
	}
	inc := a.policy.IncidentWeight * math.Log1p(float64(count))
	return math.Min(inc, a.policy.IncidentCap)
}

// Policy returns a copy of the scoring policy.
func (a *RiskAggregator) Policy() ScoringPolicy {
	return NewRiskAggregator(a.policy).policy
}

// SeverityForScore buckets a score using the threshold constants.
func SeverityForScore(score float64) Severity {
	switch {
	case score >= CriticalThreshold:
		return SeverityCritical
	case score >= HighThreshold:
		return SeverityHigh
	case score >= ModerateThreshold:
		return SeverityModerate
	default:
		return SeverityLow
	}
}

func clampScore(v float64) float64 {
	return math.Max(MinRiskScore, math.Min(MaxRiskScore, v))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
