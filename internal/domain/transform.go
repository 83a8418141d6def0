package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ParseRawEvent deserializes a RawEvent's value into a Report. Enum fields are
// normalized here; a report with an unknown type, category, or severity fails
// with a *ValidationError. Incident counts are checked at classification.
func ParseRawEvent(raw RawEvent) (Report, error) {
	var rec RawReportRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Report{}, fmt.Errorf("parse raw event: %w", err)
	}

	reportType, err := ParseReportType(rec.Type)
	if err != nil {
		return Report{}, err
	}
	category, err := ParseCategory(rec.Category)
	if err != nil {
		return Report{}, err
	}
	severity := SeverityLow
	if strings.TrimSpace(rec.ReportedSeverity) != "" {
		if severity, err = ParseSeverity(rec.ReportedSeverity); err != nil {
			return Report{}, err
		}
	}

	roadName := strings.TrimSpace(rec.RoadName)
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		id = generateID(reportType, roadName, rec.Lat, rec.Lon)
	}

	return Report{
		ID:                      id,
		Type:                    reportType,
		RoadName:                roadName,
		Geo:                     Geo{Lat: rec.Lat, Lon: rec.Lon},
		Category:                category,
		HistoricalIncidentCount: rec.HistoricalIncidentCount,
		HasPhotoEvidence:        rec.HasPhotoEvidence || strings.TrimSpace(rec.PhotoURL) != "",
		ReportedSeverity:        severity,
		SubmittedAt:             raw.Timestamp,

		RawPayload: raw.Value,
	}, nil
}

// generateID produces a deterministic ID from the report's key fields.
// Reprocessing the same raw report yields the same ID, so downstream upserts
// stay idempotent.
func generateID(reportType ReportType, roadName string, lat, lon float64) string {
	input := fmt.Sprintf("%s|%s|%.5f|%.5f", reportType, strings.ToLower(roadName), lat, lon)
	hash := sha256.Sum256([]byte(input))
	return string(reportType) + "-" + hex.EncodeToString(hash[:8])
}

// SerializeClassification marshals a classification into an OutputEvent keyed
// by subject ID with severity, priority, and classified_at headers.
func SerializeClassification(c RiskClassification) (OutputEvent, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize classification: %w", err)
	}
	return OutputEvent{
		Key:   []byte(c.SubjectID),
		Value: data,
		Headers: map[string]string{
			"severity":      string(c.Severity),
			"priority":      string(c.Priority),
			"classified_at": c.ClassifiedAt.Format(time.RFC3339),
		},
	}, nil
}
