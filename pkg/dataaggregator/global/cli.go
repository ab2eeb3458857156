package global

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kr/pretty"
	"github.com/liip/sheriff"
	"github.com/travigo/corridor/pkg/config"
	"github.com/travigo/corridor/pkg/dataaggregator/query"
	"github.com/urfave/cli/v2"
)

// QueryFlags are the movement filters shared by every command that runs a
// cycle.
func QueryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "station",
			Value: query.StationBoth,
			Usage: "a, b or both",
		},
		&cli.StringFlag{
			Name:  "direction",
			Value: query.DirectionBoth,
			Usage: "toward-a, toward-b or both",
		},
		&cli.StringFlag{
			Name:  "service-type",
			Value: query.ServiceTypeAll,
			Usage: "passenger, freight or all",
		},
		&cli.StringFlag{
			Name:  "status",
			Value: query.StatusAll,
			Usage: "scheduled, live, delayed, cancelled, completed or all",
		},
		&cli.StringFlag{
			Name:  "time-window",
			Value: string(query.TimeWindowNow),
			Usage: "now, next or day",
		},
		&cli.StringFlag{
			Name:  "where",
			Usage: "filter expression evaluated against each movement, eg. 'delayMinutes > 2'",
		},
	}
}

func QueryFromFlags(c *cli.Context) (*query.Movements, error) {
	flagNames := map[string]string{
		"station":     "station",
		"direction":   "direction",
		"serviceType": "service-type",
		"status":      "status",
		"timeWindow":  "time-window",
		"where":       "where",
	}

	return query.ParseMovements(func(key string) string {
		return c.String(flagNames[key])
	})
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "movements",
		Usage: "Run one aggregation cycle and print the movements",
		Flags: append(QueryFlags(),
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "print the response as Go values instead of JSON",
			},
			&cli.BoolFlag{
				Name:  "detailed",
				Usage: "include stop calls and other detailed fields",
			},
		),
		Action: func(c *cli.Context) error {
			movementsQuery, err := QueryFromFlags(c)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			aggregator, _, err := Setup(c.Context, cfg)
			if err != nil {
				return err
			}

			response, err := aggregator.GetMovements(c.Context, movementsQuery)
			if err != nil {
				return err
			}

			if c.Bool("pretty") {
				pretty.Println(response)
				return nil
			}

			groups := []string{"basic"}
			if c.Bool("detailed") {
				groups = append(groups, "detailed")
			}

			responseReduced, err := sheriff.Marshal(&sheriff.Options{
				Groups: groups,
			}, response)
			if err != nil {
				return fmt.Errorf("reduce movements response: %w", err)
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")

			return encoder.Encode(responseReduced)
		},
	}
}
