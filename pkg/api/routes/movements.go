package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/rs/zerolog/log"
	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/dataaggregator"
	"github.com/travigo/corridor/pkg/dataaggregator/query"
	"github.com/travigo/corridor/pkg/position"
)

type movementPosition struct {
	Identifier string         `json:"identifier" groups:"basic"`
	InCorridor bool           `json:"inCorridor" groups:"basic"`
	Position   *float64       `json:"position" groups:"basic"`
	Location   *ctdf.Location `json:"location" groups:"basic"`
}

func MovementsRouter(router fiber.Router, aggregator *dataaggregator.Aggregator) {
	router.Get("/", func(c *fiber.Ctx) error {
		return listMovements(c, aggregator)
	})
	router.Get("/:identifier/position", func(c *fiber.Ctx) error {
		return getMovementPosition(c, aggregator)
	})
}

func listMovements(c *fiber.Ctx, aggregator *dataaggregator.Aggregator) error {
	movementsQuery, err := query.ParseMovements(func(key string) string {
		return c.Query(key)
	})
	if err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	response, err := aggregator.GetMovements(c.UserContext(), movementsQuery)
	if err != nil {
		c.Status(fiber.StatusServiceUnavailable)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	groups := []string{"basic"}
	if c.QueryBool("detailed") {
		groups = append(groups, "detailed")
	}

	responseReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, response)
	if err != nil {
		log.Error().Err(err).Msg("Failed to reduce movements response")

		c.Status(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sherrif could not reduce Movements",
		})
	}

	return c.JSON(responseReduced)
}

func getMovementPosition(c *fiber.Ctx, aggregator *dataaggregator.Aggregator) error {
	identifier := c.Params("identifier")

	movementsQuery, err := query.ParseMovements(func(key string) string {
		if key == "timeWindow" {
			return c.Query(key)
		}
		return ""
	})
	if err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	response, err := aggregator.GetMovements(c.UserContext(), movementsQuery)
	if err != nil {
		c.Status(fiber.StatusServiceUnavailable)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var movement *ctdf.Movement
	for _, candidate := range response.Movements {
		if candidate.PrimaryIdentifier == identifier {
			movement = candidate
			break
		}
	}

	if movement == nil {
		c.Status(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Movement matching Identifier",
		})
	}

	result := movementPosition{
		Identifier: identifier,
	}

	if t, ok := position.Estimate(movement, aggregator.Corridor, response.Timestamp); ok {
		result.InCorridor = true
		result.Position = &t
	}
	if location, ok := position.Locate(movement, aggregator.Corridor, response.Timestamp); ok {
		result.Location = &location
	}

	return c.JSON(result)
}
