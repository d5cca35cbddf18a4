package routing

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/oraclemesh/oraclecore/types"
)

var allCategories = []types.DataCategory{
	types.CategoryPrice, types.CategorySports, types.CategoryWeather,
	types.CategoryEconomic, types.CategoryElection, types.CategoryStocks,
	types.CategoryForex, types.CategoryCommodities, types.CategoryNFT,
	types.CategoryEvents, types.CategoryCustom, types.CategoryRandom,
}

var sampleQuestions = []string{
	"Will BTC exceed $100,000 by the end of 2025?",
	"Will the Federal Reserve raise interest rates at the next FOMC meeting?",
	"Will the Lakers beat the Celtics tonight?",
	"Will it rain in Seattle tomorrow?",
	"Will Apple stock close above $200?",
	"Will the Bored Ape floor price exceed 50 ETH?",
	"Will the incumbent win the election?",
	"Will the company announce a merger this quarter?",
}

func genCategory() gopter.Gen {
	return gen.OneConstOf(
		allCategories[0], allCategories[1], allCategories[2], allCategories[3],
		allCategories[4], allCategories[5], allCategories[6], allCategories[7],
		allCategories[8], allCategories[9], allCategories[10], allCategories[11],
	)
}

func genQuestion() gopter.Gen {
	return gen.OneConstOf(
		sampleQuestions[0], sampleQuestions[1], sampleQuestions[2], sampleQuestions[3],
		sampleQuestions[4], sampleQuestions[5], sampleQuestions[6], sampleQuestions[7],
	)
}

// Property I1: ∀ RoutingResponse r, r.can_resolve ⇒ r.selected is non-empty
// and data_type is among the categories the selected provider's
// ProviderCapabilities advertises (§8).
func TestProperty_I1_CanResolveImpliesSelectedSupportsCategory(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("can_resolve implies selected supports data_type", prop.ForAll(
		func(question string, hint types.DataCategory) bool {
			resp := Route(types.RoutingRequest{Question: question, CategoryHint: hint})
			if !resp.CanResolve {
				return true
			}
			if resp.Selected == "" {
				return false
			}
			caps, ok := Capabilities[resp.Selected]
			if !ok {
				return false
			}
			return caps.Categories[resp.DataType]
		},
		genQuestion(),
		genCategory(),
	))

	properties.TestingRun(t)
}

// Property: Route is deterministic — identical input always yields an
// identical routing decision (the classifier and Capabilities table are
// both pure/static), per §8's idempotence clause.
func TestProperty_RouteIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("same request routes identically every time", prop.ForAll(
		func(question string, hint types.DataCategory) bool {
			req := types.RoutingRequest{Question: question, CategoryHint: hint}
			first := Route(req)
			second := Route(req)
			return first.CanResolve == second.CanResolve &&
				first.Selected == second.Selected &&
				first.DataType == second.DataType &&
				first.Confidence == second.Confidence
		},
		genQuestion(),
		genCategory(),
	))

	properties.TestingRun(t)
}
