// Package graphql exposes the aggregation queries over a GraphQL
// endpoint for dashboard consumers.
package graphql

import (
	"github.com/graphql-go/graphql"
)

// EventCountEntryType represents one event name with its resolved count
var EventCountEntryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "EventCountEntry",
	Fields: graphql.Fields{
		"event_name": &graphql.Field{Type: graphql.String},
		"count":      &graphql.Field{Type: graphql.Int},
	},
})

// EventCountsType represents the reconciled per-event counts
var EventCountsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "EventCounts",
	Fields: graphql.Fields{
		"timestamp":            &graphql.Field{Type: graphql.String},
		"total_events_counted": &graphql.Field{Type: graphql.Int},
		"event_counts":         &graphql.Field{Type: graphql.NewList(EventCountEntryType)},
	},
})

// SourceCountType represents one source identifier with its row count
var SourceCountType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SourceCount",
	Fields: graphql.Fields{
		"source":      &graphql.Field{Type: graphql.String},
		"total_count": &graphql.Field{Type: graphql.Int},
	},
})

// YearCountType represents the precomputed per-year totals
var YearCountType = graphql.NewObject(graphql.ObjectConfig{
	Name: "YearCount",
	Fields: graphql.Fields{
		"event_year": &graphql.Field{Type: graphql.Int},
		"count":      &graphql.Field{Type: graphql.Int},
	},
})

// AnalysisStatusEntryType represents one status bucket with its count
var AnalysisStatusEntryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "AnalysisStatusEntry",
	Fields: graphql.Fields{
		"status_label": &graphql.Field{Type: graphql.String},
		"count":        &graphql.Field{Type: graphql.Int},
	},
})

// AnalysisStatusType represents the status bucket report
var AnalysisStatusType = graphql.NewObject(graphql.ObjectConfig{
	Name: "AnalysisStatus",
	Fields: graphql.Fields{
		"timestamp":       &graphql.Field{Type: graphql.String},
		"total_statuses":  &graphql.Field{Type: graphql.Int},
		"analysis_status": &graphql.Field{Type: graphql.NewList(AnalysisStatusEntryType)},
	},
})

// EventTrendType represents one event's monthly counts within a year
var EventTrendType = graphql.NewObject(graphql.ObjectConfig{
	Name: "EventTrend",
	Fields: graphql.Fields{
		"eventName": &graphql.Field{Type: graphql.String},
		"monthly":   &graphql.Field{Type: graphql.NewList(graphql.Int)},
		"total":     &graphql.Field{Type: graphql.Int},
	},
})

// MonthlyTrendsType represents the full trend payload for one year
var MonthlyTrendsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "MonthlyTrends",
	Fields: graphql.Fields{
		"timestamp":       &graphql.Field{Type: graphql.String},
		"year":            &graphql.Field{Type: graphql.Int},
		"available_years": &graphql.Field{Type: graphql.NewList(graphql.Int)},
		"top_n":           &graphql.Field{Type: graphql.Int},
		"events":          &graphql.Field{Type: graphql.NewList(EventTrendType)},
	},
})
