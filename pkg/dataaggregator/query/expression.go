package query

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"
	"github.com/travigo/corridor/pkg/ctdf"
)

// Expression is a compiled boolean filter over a movement, for example
// `serviceType == "freight" && delayMinutes > 5`.
type Expression struct {
	source  string
	program *vm.Program
}

func CompileExpression(source string) (*Expression, error) {
	program, err := expr.Compile(source, expr.Env(expressionEnv(&ctdf.Movement{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid where expression: %w", err)
	}

	return &Expression{source: source, program: program}, nil
}

func (e *Expression) String() string {
	return e.source
}

// Matches evaluates the expression. A runtime failure counts as no match.
func (e *Expression) Matches(m *ctdf.Movement) bool {
	output, err := expr.Run(e.program, expressionEnv(m))
	if err != nil {
		log.Debug().Err(err).Str("where", e.source).Str("movement", m.PrimaryIdentifier).Msg("Where expression failed")
		return false
	}

	matches, _ := output.(bool)
	return matches
}

func expressionEnv(m *ctdf.Movement) map[string]any {
	delayMinutes := 0
	if m.DelayMinutes != nil {
		delayMinutes = *m.DelayMinutes
	}

	platformA, platformB := "", ""
	if m.StationA != nil {
		platformA = m.StationA.Platform
	}
	if m.StationB != nil {
		platformB = m.StationB.Platform
	}

	disruptions := m.Disruptions
	if disruptions == nil {
		disruptions = []string{}
	}

	return map[string]any{
		"id":            m.PrimaryIdentifier,
		"tripId":        m.TripID,
		"runId":         m.RunID,
		"routeId":       m.RouteID,
		"serviceType":   string(m.ServiceType),
		"direction":     string(m.Direction),
		"origin":        m.Origin,
		"destination":   m.Destination,
		"consist":       m.Consist,
		"status":        string(m.Status),
		"passesThrough": m.PassesThrough,
		"hasPosition":   m.Position != nil,
		"confidence":    string(m.Confidence.Level),
		"delayMinutes":  delayMinutes,
		"disruptions":   disruptions,
		"platformA":     platformA,
		"platformB":     platformB,
		"primaryTime":   m.PrimaryTime,
		"sortTime":      m.SortTime(),
	}
}
