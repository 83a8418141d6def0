// Package domain models citizen traffic reports and the spatial zone
// classification applied to them before they reach the moderation queue.
//
// # Report Source
//
// Reports originate from the municipal CRUD backend (incident, violation, and
// emergency forms). The backend publishes each submitted report as flat JSON to
// the Kafka source topic:
//
//	{"id":"rpt-17","type":"violation","road_name":"Alabang-Zapote Road",
//	 "lat":14.4504,"lon":121.0170,"category":"","historical_incident_count":4,
//	 "has_photo_evidence":true,"reported_severity":"moderate"}
//
// Coordinates are WGS-84 decimal degrees. A zero lat/lon pair means the citizen
// did not share a location. A missing reported_severity is read as "low".
//
// # Classification
//
// Each report passes through three stages:
//
//	Place Matcher:      road name   -> barangay (first keyword hit, else default zone)
//	Geofence Evaluator: lat/lon     -> every landmark circle containing the point
//	Risk Aggregator:    zone, category, incident history, evidence -> score + severity
//
// Scores are clamped to [0, 100] and bucketed with lower-closed intervals:
//
//	<30 low | [30,60) moderate | [60,85) high | >=85 critical
//
// Fire stations and hospitals are always strict zones, as is any report that
// falls inside a geofence flagged strict. Strictness does not depend on score.
//
// Moderation priority follows severity (low, normal, high, urgent) and is
// raised one level when the report carries photo evidence.
//
// # Tables
//
// The zone lookup table, geofence seeds, and scoring policy are immutable once
// constructed. All classifier types are safe for concurrent use.
//
// # ID Generation
//
// Reports without an id get a deterministic SHA-256 hash of
// type|road|lat|lon so replays upsert onto the same row. See [generateID].
package domain
