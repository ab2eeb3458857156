package poller

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/corridor/pkg/config"
	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/dataaggregator"
	"github.com/travigo/corridor/pkg/dataaggregator/global"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Poll the corridor and print a board on every cycle",
		Flags: append(global.QueryFlags(),
			&cli.DurationFlag{
				Name:  "interval",
				Value: DefaultInterval,
				Usage: "time between cycles",
			},
		),
		Action: func(c *cli.Context) error {
			movementsQuery, err := global.QueryFromFlags(c)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			aggregator, _, err := global.Setup(c.Context, cfg)
			if err != nil {
				return err
			}

			p := New(aggregator.GetMovements, movementsQuery)
			p.Interval = c.Duration("interval")
			p.OnResult = func(response *dataaggregator.Response) {
				PrintBoard(os.Stdout, response, aggregator.Corridor.Location)
			}
			p.OnError = func(err error) {
				log.Error().Err(err).Msg("Aggregation cycle failed")
			}

			return p.Run(c.Context)
		},
	}
}

// PrintBoard writes a departure-board style summary of one cycle.
func PrintBoard(w io.Writer, response *dataaggregator.Response, location *time.Location) {
	fmt.Fprintf(w, "\n%s  (%s window)\n", response.Timestamp.In(location).Format("15:04:05"), response.Window.Name)
	if response.FallbackActive {
		fmt.Fprintf(w, "! %s\n", response.FallbackReason)
	}

	feeds := []string{}
	for _, feed := range response.Feeds {
		feeds = append(feeds, fmt.Sprintf("%s=%s", feed.Name, feed.Status))
	}
	fmt.Fprintf(w, "feeds: %s\n", strings.Join(feeds, " "))

	table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(table, "TIME\tTYPE\tDIRECTION\tDESTINATION\tSTATUS\tCONFIDENCE\tDISRUPTIONS")

	for _, movement := range response.Movements {
		fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			boardTime(movement, location),
			movement.ServiceType,
			movement.Direction,
			movement.Destination,
			movement.Status,
			movement.Confidence.Level,
			strings.Join(movement.Disruptions, "; "),
		)
	}

	table.Flush()
}

func boardTime(movement *ctdf.Movement, location *time.Location) string {
	scheduled := movement.PrimaryTime.In(location).Format("15:04")

	if movement.DelayMinutes != nil && *movement.DelayMinutes != 0 {
		return fmt.Sprintf("%s %+dm", scheduled, *movement.DelayMinutes)
	}
	return scheduled
}
