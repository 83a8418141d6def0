package domain

import "strings"

// Category is the landmark class of a geofence or report.
type Category string

const (
	CategoryNone         Category = ""
	CategoryFireStation  Category = "fire_station"
	CategoryHospital     Category = "hospital"
	CategorySchool       Category = "school"
	CategoryChurch       Category = "church"
	CategoryGovernment   Category = "government"
	CategoryMarket       Category = "market"
	CategoryBridge       Category = "bridge"
	CategoryIntersection Category = "intersection"
	CategoryBusStop      Category = "bus_stop"
)

// Categories lists every known category in declaration order.
func Categories() []Category {
	return []Category{
		CategoryFireStation, CategoryHospital, CategorySchool, CategoryChurch,
		CategoryGovernment, CategoryMarket, CategoryBridge, CategoryIntersection,
		CategoryBusStop,
	}
}

// Valid reports whether c is a known, non-empty category.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// AlwaysStrict reports whether the category is an emergency-service landmark.
// Reports tied to these landmarks are strict zones regardless of score.
func (c Category) AlwaysStrict() bool {
	return c == CategoryFireStation || c == CategoryHospital
}

// ParseCategory normalizes a free-form category label. Blank input yields
// CategoryNone without error.
func ParseCategory(s string) (Category, error) {
	s = normalizeLabel(s)
	if s == "" {
		return CategoryNone, nil
	}
	c := Category(s)
	if !c.Valid() {
		return CategoryNone, newValidationError("category", s, "unknown category")
	}
	return c, nil
}

// Severity is the four-level risk bucket.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// ParseSeverity normalizes a severity label, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(normalizeLabel(s))
	if !sev.Valid() {
		return "", newValidationError("reported_severity", s, "unknown severity")
	}
	return sev, nil
}

// ReportType is the kind of citizen submission.
type ReportType string

const (
	ReportIncident  ReportType = "incident"
	ReportViolation ReportType = "violation"
	ReportEmergency ReportType = "emergency"
)

// ParseReportType normalizes the report type. Blank input is read as an incident.
func ParseReportType(s string) (ReportType, error) {
	switch t := ReportType(normalizeLabel(s)); t {
	case "":
		return ReportIncident, nil
	case ReportIncident, ReportViolation, ReportEmergency:
		return t, nil
	default:
		return "", newValidationError("type", s, "unknown report type")
	}
}

// Priority is the moderation queue ordering hint.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var priorityLadder = []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}

// PriorityFor maps a severity to a moderation priority. Photo evidence raises
// the priority one step, capped at urgent.
func PriorityFor(sev Severity, hasPhoto bool) Priority {
	var rank int
	switch sev {
	case SeverityModerate:
		rank = 1
	case SeverityHigh:
		rank = 2
	case SeverityCritical:
		rank = 3
	}
	if hasPhoto && rank < len(priorityLadder)-1 {
		rank++
	}
	return priorityLadder[rank]
}

// normalizeLabel lowercases and trims a label and folds spaces and dashes to
// underscores, so "Fire Station" and "fire-station" both read as fire_station.
func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
