package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding completes a report's location before classification.
// A report with a road name but no coordinates is forward geocoded so it can
// be tested against geofences; a report with coordinates but no road name is
// reverse geocoded so the place matcher has an address to search. Reports
// with both, or neither, are left as submitted. If geocoder is nil the report
// is returned untouched; failures set GeoSource to "failed" and keep the
// original fields.
func EnrichWithGeocoding(ctx context.Context, report Report, geocoder Geocoder, logger *slog.Logger) Report {
	if geocoder == nil {
		return report
	}

	hasCoords := !report.Geo.IsZero()
	hasName := report.RoadName != ""

	// Forward geocode: road name → coordinates.
	if !hasCoords && hasName {
		result, err := geocoder.ForwardGeocode(ctx, report.RoadName)
		if err != nil {
			logger.Warn("forward geocoding failed",
				"subject_id", report.ID,
				"road_name", report.RoadName,
				"error", err,
			)
			report.GeoSource = "failed"
			return report
		}
		if result.Lat != 0 || result.Lon != 0 {
			report.Geo = Geo{Lat: result.Lat, Lon: result.Lon}
			report.FormattedAddress = result.FormattedAddress
			report.GeoConfidence = result.Confidence
			report.GeoSource = "forward"
			return report
		}
		report.GeoSource = "original"
		return report
	}

	// Reverse geocode: coordinates → street address.
	if hasCoords && !hasName {
		result, err := geocoder.ReverseGeocode(ctx, report.Geo.Lat, report.Geo.Lon)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"subject_id", report.ID,
				"lat", report.Geo.Lat,
				"lon", report.Geo.Lon,
				"error", err,
			)
			report.GeoSource = "failed"
			return report
		}
		if result.FormattedAddress != "" {
			report.RoadName = result.FormattedAddress
			report.FormattedAddress = result.FormattedAddress
			report.GeoConfidence = result.Confidence
			report.GeoSource = "reverse"
			return report
		}
		report.GeoSource = "original"
		return report
	}

	report.GeoSource = "original"
	return report
}
