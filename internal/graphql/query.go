package graphql

import (
	"github.com/graphql-go/graphql"

	"github.com/rpattn/cvetrack/internal/aggregate"
)

// GetQueryFields returns the stats queries to be mounted in the root schema
func GetQueryFields(aggregates *aggregate.Service) graphql.Fields {
	return graphql.Fields{
		"eventCounts": &graphql.Field{
			Type: EventCountsType,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return ResolveEventCounts(p.Context, aggregates)
			},
		},
		"topSources": &graphql.Field{
			Type: graphql.NewList(SourceCountType),
			Args: graphql.FieldConfigArgument{
				"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				limit := p.Args["limit"].(int)
				return ResolveTopSources(p.Context, aggregates, limit)
			},
		},
		"yearCounts": &graphql.Field{
			Type: graphql.NewList(YearCountType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return ResolveYearCounts(p.Context, aggregates)
			},
		},
		"analysisStatus": &graphql.Field{
			Type: AnalysisStatusType,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return ResolveAnalysisStatus(p.Context, aggregates)
			},
		},
		"monthlyTrends": &graphql.Field{
			Type: MonthlyTrendsType,
			Args: graphql.FieldConfigArgument{
				"year": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				year := p.Args["year"].(int)
				return ResolveMonthlyTrends(p.Context, aggregates, year)
			},
		},
	}
}

// NewSchema assembles the root query schema over the aggregation service.
func NewSchema(aggregates *aggregate.Service) (graphql.Schema, error) {
	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: GetQueryFields(aggregates),
		}),
	})
}
