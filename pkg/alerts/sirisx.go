package alerts

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"
	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/util"
	"golang.org/x/net/html/charset"
)

type situationElement struct {
	SituationNumber string
	VersionedAtTime string
	Progress        string

	ValidityPeriod []validityPeriod

	MiscellaneousReason string
	EquipmentReason     string
	PersonnelReason     string
	EnvironmentReason   string

	Summary     string
	Description string

	Consequence []consequence `xml:"Consequences>Consequence"`
}

type validityPeriod struct {
	StartTime string
	EndTime   string
}

type consequence struct {
	Condition string
	Severity  string

	AffectedLines           []affectedLine           `xml:"Affects>Networks>AffectedNetwork>AffectedLine"`
	AffectedStopPoints      []affectedStopPoint      `xml:"Affects>StopPoints>AffectedStopPoint"`
	AffectedVehicleJourneys []affectedVehicleJourney `xml:"Affects>VehicleJourneys>AffectedVehicleJourney"`
}

type affectedLine struct {
	LineRef string
}

type affectedStopPoint struct {
	StopPointRef string
}

type affectedVehicleJourney struct {
	DatedVehicleJourneyRef string
	FramedDatedRef         string `xml:"FramedVehicleJourneyRef>DatedVehicleJourneyRef"`
}

// DecodeSIRISX streams PtSituationElement records out of a SIRI-SX document.
func DecodeSIRISX(reader io.Reader, now time.Time) ([]*ctdf.ServiceAlert, error) {
	alerts := []*ctdf.ServiceAlert{}

	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel
	for {
		tok, err := d.Token()
		if tok == nil || err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("decode siri-sx token: %w", err)
		}

		switch ty := tok.(type) {
		case xml.StartElement:
			if ty.Name.Local == "PtSituationElement" {
				var element situationElement

				if err = d.DecodeElement(&element, &ty); err != nil {
					return nil, fmt.Errorf("decode siri-sx situation: %w", err)
				}

				if strings.EqualFold(element.Progress, "closed") {
					continue
				}

				alerts = append(alerts, element.serviceAlert(now))
			}
		}
	}

	return alerts, nil
}

func (s *situationElement) serviceAlert(now time.Time) *ctdf.ServiceAlert {
	alert := &ctdf.ServiceAlert{
		PrimaryIdentifier: s.SituationNumber,
		Cause:             s.cause(),
		Effect:            "unknown",
		Header:            strings.TrimSpace(s.Summary),
		Description:       strings.TrimSpace(s.Description),
		RouteIDs:          []string{},
		TripIDs:           []string{},
		StopIDs:           []string{},
		ActivePeriods:     []ctdf.TimePeriod{},
		Source:            "siri-sx",
	}

	for _, c := range s.Consequence {
		if alert.Effect == "unknown" && c.Condition != "" {
			alert.Effect = splitWords(c.Condition)
		}

		for _, line := range c.AffectedLines {
			if line.LineRef != "" {
				alert.RouteIDs = append(alert.RouteIDs, line.LineRef)
			}
		}
		for _, stop := range c.AffectedStopPoints {
			if stop.StopPointRef != "" {
				alert.StopIDs = append(alert.StopIDs, stop.StopPointRef)
			}
		}
		for _, journey := range c.AffectedVehicleJourneys {
			if journey.DatedVehicleJourneyRef != "" {
				alert.TripIDs = append(alert.TripIDs, journey.DatedVehicleJourneyRef)
			} else if journey.FramedDatedRef != "" {
				alert.TripIDs = append(alert.TripIDs, journey.FramedDatedRef)
			}
		}
	}

	alert.RouteIDs = util.RemoveDuplicates(alert.RouteIDs)
	alert.TripIDs = util.RemoveDuplicates(alert.TripIDs)
	alert.StopIDs = util.RemoveDuplicates(alert.StopIDs)

	// A period with a bound we cannot read is dropped rather than left open.
	for _, period := range s.ValidityPeriod {
		start, startErr := parseBound(period.StartTime)
		end, endErr := parseBound(period.EndTime)
		if startErr != nil || endErr != nil {
			log.Debug().Str("situation", s.SituationNumber).Str("start", period.StartTime).Str("end", period.EndTime).Msg("Dropping unparseable validity period")
			continue
		}

		alert.ActivePeriods = append(alert.ActivePeriods, ctdf.TimePeriod{Start: start, End: end})
	}

	if len(s.ValidityPeriod) > 0 && len(alert.ActivePeriods) == 0 {
		alert.IsActive = false
	} else {
		alert.IsActive = IsActive(alert.ActivePeriods, now)
	}

	return alert
}

func (s *situationElement) cause() string {
	for _, reason := range []string{s.MiscellaneousReason, s.EquipmentReason, s.PersonnelReason, s.EnvironmentReason} {
		reason = strings.TrimSpace(reason)
		if reason != "" {
			return splitWords(reason)
		}
	}
	return "unknown"
}

// parseBound reads an optional validity bound. An empty value is an open bound.
func parseBound(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	bound, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}

	return &bound, nil
}

// splitWords turns camelCase SIRI enumerations such as "signalProblem" into
// "signal problem".
func splitWords(value string) string {
	var builder strings.Builder

	for i, r := range value {
		if unicode.IsUpper(r) && i > 0 {
			builder.WriteRune(' ')
		}
		builder.WriteRune(unicode.ToLower(r))
	}

	return builder.String()
}
