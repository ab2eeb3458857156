package realtime

import (
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/rs/zerolog/log"
	"github.com/travigo/corridor/pkg/ctdf"
)

// ProcessVehiclePositions keys the feed's vehicle positions by trip id. Later
// entities for the same trip replace earlier ones.
func ProcessVehiclePositions(feed *gtfs.FeedMessage) map[string]*ctdf.VehiclePosition {
	positions := map[string]*ctdf.VehiclePosition{}
	headerTimestamp := feedTimestamp(feed)

	for _, entity := range feed.GetEntity() {
		vehicle := entity.GetVehicle()
		if vehicle == nil || vehicle.GetPosition() == nil {
			continue
		}

		tripID := vehicle.GetTrip().GetTripId()
		if tripID == "" {
			continue
		}

		position := vehicle.GetPosition()

		vehiclePosition := &ctdf.VehiclePosition{
			Location: ctdf.Location{
				Latitude:  float64(position.GetLatitude()),
				Longitude: float64(position.GetLongitude()),
			},
			Timestamp: headerTimestamp,
			Source:    ctdf.SourceVehiclePositions,
			VehicleID: vehicle.GetVehicle().GetId(),
		}

		if vehicle.Timestamp != nil {
			vehiclePosition.Timestamp = time.Unix(int64(vehicle.GetTimestamp()), 0)
		}
		if position.Bearing != nil {
			bearing := float64(position.GetBearing())
			vehiclePosition.Bearing = &bearing
		}
		if position.Speed != nil {
			speed := float64(position.GetSpeed())
			vehiclePosition.Speed = &speed
		}

		if label := vehicle.GetVehicle().GetLabel(); label != "" {
			vehiclePosition.SetConsist(label)
		}

		positions[tripID] = vehiclePosition
	}

	log.Debug().Int("trips", len(positions)).Int("total", len(feed.GetEntity())).Msg("Processed vehicle positions")

	return positions
}
