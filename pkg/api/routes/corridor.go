package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/travigo/corridor/pkg/corridor"
	"github.com/travigo/corridor/pkg/ctdf"
)

type corridorDescription struct {
	Name     string              `json:"name" groups:"basic"`
	Timezone string              `json:"timezone" groups:"basic"`
	Stations []*corridor.Station `json:"stations" groups:"basic"`
	Path     []ctdf.Location     `json:"path" groups:"basic"`
}

func CorridorRouter(router fiber.Router, c *corridor.Corridor) {
	router.Get("/", func(ctx *fiber.Ctx) error {
		return getCorridor(ctx, c)
	})
}

func getCorridor(ctx *fiber.Ctx, c *corridor.Corridor) error {
	description := corridorDescription{
		Name:     c.Config.Name,
		Timezone: c.Config.Timezone,
		Stations: []*corridor.Station{c.Station(ctdf.StationA), c.Station(ctdf.StationB)},
		Path:     c.Path.Points(),
	}

	groups := []string{"basic"}
	if ctx.QueryBool("detailed") {
		groups = append(groups, "detailed")
	}

	descriptionReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, description)
	if err != nil {
		ctx.Status(fiber.StatusInternalServerError)
		return ctx.JSON(fiber.Map{
			"error": "Sherrif could not reduce Corridor",
		})
	}

	return ctx.JSON(descriptionReduced)
}
