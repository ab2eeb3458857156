package alerts

import (
	"fmt"
	"strings"
	"time"

	"github.com/travigo/corridor/pkg/ctdf"
)

func IsActive(periods []ctdf.TimePeriod, now time.Time) bool {
	alert := ctdf.ServiceAlert{ActivePeriods: periods}
	return alert.IsValid(now)
}

// AlertsForMovement returns the active alerts affecting a movement. Alerts
// naming the movement's trip take priority; only when there are none do
// alerts sharing its route prefix apply, including alerts that name other
// trips on that route.
func AlertsForMovement(alerts []*ctdf.ServiceAlert, tripID string, routeID string) []*ctdf.ServiceAlert {
	tripMatches := []*ctdf.ServiceAlert{}
	routeMatches := []*ctdf.ServiceAlert{}

	movementPrefix := routePrefix(routeID)

	for _, alert := range alerts {
		if !alert.IsActive {
			continue
		}

		if tripID != "" && contains(alert.TripIDs, tripID) {
			tripMatches = append(tripMatches, alert)
			continue
		}

		if movementPrefix == "" {
			continue
		}

		for _, alertRoute := range alert.RouteIDs {
			if routePrefix(alertRoute) == movementPrefix {
				routeMatches = append(routeMatches, alert)
				break
			}
		}
	}

	if len(tripMatches) > 0 {
		return tripMatches
	}
	return routeMatches
}

// Render formats an alert as a disruption line.
func Render(alert *ctdf.ServiceAlert) string {
	header := strings.TrimSpace(alert.Header)
	if header == "" {
		header = strings.TrimSpace(alert.Description)
	}

	cause := strings.TrimSpace(alert.Cause)
	if cause == "" || strings.EqualFold(cause, "unknown") {
		return header
	}

	return fmt.Sprintf("%s (%s)", header, cause)
}

// Correlate attaches rendered alerts to every matching movement.
func Correlate(movements []*ctdf.Movement, alerts []*ctdf.ServiceAlert) {
	for _, movement := range movements {
		for _, alert := range AlertsForMovement(alerts, movement.TripID, movement.RouteID) {
			movement.AddDisruption(Render(alert))
		}
	}
}

func routePrefix(routeID string) string {
	prefix, _, _ := strings.Cut(routeID, "_")
	return prefix
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
