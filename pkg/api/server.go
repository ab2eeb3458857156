package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/travigo/corridor/pkg/api/routes"
	"github.com/travigo/corridor/pkg/dataaggregator"
	"github.com/travigo/corridor/pkg/stats"
)

func NewApp(aggregator *dataaggregator.Aggregator, collector *stats.Collector) *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())

	if collector != nil {
		webApp.Get("/metrics", adaptor.HTTPHandler(collector.Handler()))
	}

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)

	routes.MovementsRouter(group.Group("/movements"), aggregator)

	routes.CorridorRouter(group.Group("/corridor"), aggregator.Corridor)

	return webApp
}

func SetupServer(listen string, aggregator *dataaggregator.Aggregator, collector *stats.Collector) error {
	return NewApp(aggregator, collector).Listen(listen)
}
