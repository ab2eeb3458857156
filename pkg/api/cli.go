package api

import (
	"github.com/travigo/corridor/pkg/config"
	"github.com/travigo/corridor/pkg/dataaggregator/global"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the corridor movements web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}

					aggregator, collector, err := global.Setup(c.Context, cfg)
					if err != nil {
						return err
					}

					return SetupServer(c.String("listen"), aggregator, collector)
				},
			},
		},
	}
}
