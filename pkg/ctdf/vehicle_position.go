package ctdf

import (
	"strings"
	"time"
)

type VehiclePosition struct {
	Location

	Bearing *float64 `json:"bearing,omitempty" groups:"basic"`
	Speed   *float64 `json:"speed,omitempty" groups:"basic"`

	Timestamp time.Time `json:"timestamp" groups:"basic"`
	Source    string    `json:"source" groups:"basic"`

	VehicleID     string   `json:"vehicleId,omitempty" groups:"basic"`
	Label         string   `json:"label,omitempty" groups:"basic"`
	Consist       []string `json:"consist,omitempty" groups:"basic"`
	ConsistLength int      `json:"consistLength,omitempty" groups:"basic"`
}

// SplitConsist breaks a raw vehicle descriptor such as "D6121+D6122" into the
// individual unit identifiers.
func SplitConsist(descriptor string) []string {
	units := strings.FieldsFunc(descriptor, func(r rune) bool {
		return r == '+' || r == ',' || r == '/' || r == ' ' || r == '\t'
	})

	if len(units) == 0 {
		return nil
	}
	return units
}

func (v *VehiclePosition) SetConsist(descriptor string) {
	v.Label = descriptor
	v.Consist = SplitConsist(descriptor)
	v.ConsistLength = len(v.Consist)
}
