package domain

import (
	"context"
	"time"
)

// RawReportRecord is the flat JSON published by the CRUD backend when a
// citizen submits a report.
type RawReportRecord struct {
	ID                      string  `json:"id"`
	Type                    string  `json:"type"`
	RoadName                string  `json:"road_name"`
	Lat                     float64 `json:"lat"`
	Lon                     float64 `json:"lon"`
	Category                string  `json:"category"`
	HistoricalIncidentCount int     `json:"historical_incident_count"`
	HasPhotoEvidence        bool    `json:"has_photo_evidence"`
	PhotoURL                string  `json:"photo_url"`
	ReportedSeverity        string  `json:"reported_severity"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Report is the typed form of a citizen report after parsing.
type Report struct {
	ID                      string
	Type                    ReportType
	RoadName                string
	Geo                     Geo
	Category                Category
	HistoricalIncidentCount int
	HasPhotoEvidence        bool
	ReportedSeverity        Severity
	SubmittedAt             time.Time

	// Geocoding enrichment fields.
	FormattedAddress string
	GeoConfidence    float64
	GeoSource        string // "forward", "reverse", "original", "failed"

	RawPayload []byte
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
