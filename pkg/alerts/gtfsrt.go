package alerts

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/util"
)

// DecodeGTFSRT converts the alert entities of a GTFS-RT feed.
func DecodeGTFSRT(feed *gtfs.FeedMessage, now time.Time) []*ctdf.ServiceAlert {
	alerts := []*ctdf.ServiceAlert{}

	for _, entity := range feed.GetEntity() {
		alert := entity.GetAlert()
		if alert == nil {
			continue
		}

		serviceAlert := &ctdf.ServiceAlert{
			PrimaryIdentifier: entity.GetId(),
			Cause:             enumName(alert.GetCause().String(), "_CAUSE"),
			Effect:            enumName(alert.GetEffect().String(), "_EFFECT"),
			Header:            translation(alert.GetHeaderText()),
			Description:       translation(alert.GetDescriptionText()),
			RouteIDs:          []string{},
			TripIDs:           []string{},
			StopIDs:           []string{},
			ActivePeriods:     []ctdf.TimePeriod{},
			Source:            "gtfs-rt",
		}

		for _, informedEntity := range alert.GetInformedEntity() {
			if routeID := informedEntity.GetRouteId(); routeID != "" {
				serviceAlert.RouteIDs = append(serviceAlert.RouteIDs, routeID)
			}
			if tripID := informedEntity.GetTrip().GetTripId(); tripID != "" {
				serviceAlert.TripIDs = append(serviceAlert.TripIDs, tripID)
			}
			if stopID := informedEntity.GetStopId(); stopID != "" {
				serviceAlert.StopIDs = append(serviceAlert.StopIDs, stopID)
			}
		}

		serviceAlert.RouteIDs = util.RemoveDuplicates(serviceAlert.RouteIDs)
		serviceAlert.TripIDs = util.RemoveDuplicates(serviceAlert.TripIDs)
		serviceAlert.StopIDs = util.RemoveDuplicates(serviceAlert.StopIDs)

		for _, activePeriod := range alert.GetActivePeriod() {
			serviceAlert.ActivePeriods = append(serviceAlert.ActivePeriods, ctdf.TimePeriod{
				Start: unixBound(activePeriod.GetStart()),
				End:   unixBound(activePeriod.GetEnd()),
			})
		}

		if serviceAlert.PrimaryIdentifier == "" {
			hash := sha256.New()
			hash.Write([]byte(serviceAlert.Cause))
			hash.Write([]byte(serviceAlert.Header))
			hash.Write([]byte(serviceAlert.Description))
			serviceAlert.PrimaryIdentifier = util.TrimString(fmt.Sprintf("gtfs-rt-%x", hash.Sum(nil)), 24)
		}

		serviceAlert.IsActive = IsActive(serviceAlert.ActivePeriods, now)

		alerts = append(alerts, serviceAlert)
	}

	return alerts
}

// translation prefers English or untagged text and otherwise takes the first.
func translation(text *gtfs.TranslatedString) string {
	translations := text.GetTranslation()
	if len(translations) == 0 {
		return ""
	}

	for _, t := range translations {
		language := strings.ToLower(t.GetLanguage())
		if language == "" || language == "en" || strings.HasPrefix(language, "en-") {
			return t.GetText()
		}
	}

	return translations[0].GetText()
}

func unixBound(value uint64) *time.Time {
	if value == 0 {
		return nil
	}

	bound := time.Unix(int64(value), 0)
	return &bound
}

// enumName turns TECHNICAL_PROBLEM style names into "technical problem".
func enumName(name string, suffix string) string {
	name = strings.TrimSuffix(name, suffix)
	return strings.ReplaceAll(strings.ToLower(name), "_", " ")
}
