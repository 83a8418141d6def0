package domain

// Classifier composes the place matcher, geofence evaluator, and risk
// aggregator into one per-report classification.
type Classifier struct {
	places            *PlaceMatcher
	fences            *GeofenceEvaluator
	risk              *RiskAggregator
	strictCoordinates bool
}

// NewClassifier wires the three stages. With strictCoordinates set, reports
// whose coordinates fall outside the evaluator's bounds are rejected instead
// of classified without geofence matches.
func NewClassifier(places *PlaceMatcher, fences *GeofenceEvaluator, risk *RiskAggregator, strictCoordinates bool) *Classifier {
	return &Classifier{
		places:            places,
		fences:            fences,
		risk:              risk,
		strictCoordinates: strictCoordinates,
	}
}

// Places returns the place matcher stage.
func (c *Classifier) Places() *PlaceMatcher { return c.places }

// Geofences returns the geofence evaluator stage.
func (c *Classifier) Geofences() *GeofenceEvaluator { return c.fences }

// ClassifyReport resolves the report's zone, evaluates its coordinates against
// the geofences, and scores it. The report's own category wins over the
// primary geofence's category. ClassifiedAt is stamped from the package clock.
func (c *Classifier) ClassifyReport(r Report) (RiskClassification, error) {
	zone, matched := c.places.Lookup(r.RoadName)

	var matches []GeofenceMatch
	if !r.Geo.IsZero() {
		if c.strictCoordinates {
			var err error
			if matches, err = c.fences.EvaluatePointStrict(r.Geo.Lat, r.Geo.Lon); err != nil {
				return RiskClassification{}, err
			}
		} else {
			matches = c.fences.EvaluatePoint(r.Geo.Lat, r.Geo.Lon)
		}
	}
	primary, inFence := PrimaryMatch(matches)

	category := r.Category
	if category == CategoryNone && inFence {
		category = primary.Geofence.Category
	}

	result, err := c.risk.Classify(Subject{
		ID:                      r.ID,
		Zone:                    zone,
		Category:                category,
		HistoricalIncidentCount: r.HistoricalIncidentCount,
		HasPhotoEvidence:        r.HasPhotoEvidence,
		ReportedSeverity:        r.ReportedSeverity,
		InStrictGeofence:        inFence && primary.Geofence.IsStrict,
	})
	if err != nil {
		return RiskClassification{}, err
	}

	result.ReportType = r.Type
	result.GeofenceMatches = len(matches)
	result.ZoneFallback = !matched
	if inFence {
		result.Geofence = optional(primary.Geofence.Name)
		result.FineAmount = primary.Geofence.FineAmount
		result.EnforcementHours = primary.Geofence.EnforcementHours
	}
	result.ClassifiedAt = clock.Now().UTC()
	return result, nil
}
