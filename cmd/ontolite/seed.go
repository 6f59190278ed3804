package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ontolite/ontolite/core"
)

// seedDocument is a hand-written extraction used by the seed command.
type seedDocument struct {
	title     string
	summary   string
	concepts  []*core.Concept
	relations []*core.Relation
}

// Concept IDs here only need to be unique within the seed set; the
// pipeline stores them as given.
var seedDocuments = []seedDocument{
	{
		title:   "Loom Financial Model.pdf",
		summary: "Three-year revenue projections, runway analysis, and hiring plan for the Loom expansion.",
		concepts: []*core.Concept{
			{Id: 9001, Label: "Revenue Projection", Type: "Topic", Confidence: 0.92},
			{Id: 9002, Label: "Runway", Type: "Metric", Confidence: 0.88},
			{Id: 9003, Label: "Hiring Plan", Type: "Topic", Confidence: 0.81},
			{Id: 9004, Label: "Burn Rate", Type: "Metric", Confidence: 0.85},
			{Id: 9005, Label: "Series B", Type: "Event", Confidence: 0.74},
		},
		relations: []*core.Relation{
			{SrcId: 9001, DstId: 9002, Verb: "supports", Confidence: 0.9},
			{SrcId: 9002, DstId: 9004, Verb: "contains", Confidence: 0.85},
			{SrcId: 9001, DstId: 9003, Verb: "develops", Confidence: 0.7},
			{SrcId: 9005, DstId: 9002, Verb: "mentions", Confidence: 0.6},
		},
	},
	{
		title:   "Loom Framework.pdf",
		summary: "Architecture overview of the Loom rendering framework and its plugin system.",
		concepts: []*core.Concept{
			{Id: 9101, Label: "Rendering Pipeline", Type: "Component", Confidence: 0.9},
			{Id: 9102, Label: "Plugin System", Type: "Component", Confidence: 0.86},
			{Id: 9103, Label: "Scene Graph", Type: "Component", Confidence: 0.8},
		},
		relations: []*core.Relation{
			{SrcId: 9101, DstId: 9103, Verb: "contains", Confidence: 0.9},
			{SrcId: 9101, DstId: 9102, Verb: "defines", Confidence: 0.8},
		},
	},
	{
		title:   "Echocardiogram Results 2026-03.pdf",
		summary: "Routine cardiac imaging results with ejection fraction measurements.",
		concepts: []*core.Concept{
			{Id: 9201, Label: "Ejection Fraction", Type: "Metric", Confidence: 0.95},
			{Id: 9202, Label: "Left Ventricle", Type: "Anatomy", Confidence: 0.9},
		},
		relations: []*core.Relation{
			{SrcId: 9202, DstId: 9201, Verb: "defines", Confidence: 0.85},
		},
	},
	{
		title:   "Team Offsite Notes",
		summary: "Notes from the spring offsite: roadmap debate, ownership changes, and the mountain traverse.",
		concepts: []*core.Concept{
			{Id: 9301, Label: "Roadmap", Type: "Topic", Confidence: 0.84},
			{Id: 9302, Label: "Ownership Model", Type: "Topic", Confidence: 0.78},
			{Id: 9303, Label: "Mountain Traverse", Type: "Activity", Confidence: 0.66},
			{Id: 9304, Label: "Q3 Priorities", Type: "Topic", Confidence: 0.8},
		},
		relations: []*core.Relation{
			{SrcId: 9301, DstId: 9304, Verb: "contains", Confidence: 0.88},
			{SrcId: 9301, DstId: 9302, Verb: "develops", Confidence: 0.7},
		},
	},
	{
		title:   "Weekly Report 2026-08-28",
		summary: "Status report covering churn metrics, support backlog, and the Kubernetes migration.",
		concepts: []*core.Concept{
			{Id: 9401, Label: "Churn Rate", Type: "Metric", Confidence: 0.9},
			{Id: 9402, Label: "Support Backlog", Type: "Metric", Confidence: 0.82},
			{Id: 9403, Label: "Kubernetes Migration", Type: "Project", Confidence: 0.87},
			{Id: 9404, Label: "Incident Review", Type: "Process", Confidence: 0.7},
		},
		relations: []*core.Relation{
			{SrcId: 9403, DstId: 9404, Verb: "supports", Confidence: 0.75},
			{SrcId: 9401, DstId: 9402, Verb: "mentions", Confidence: 0.5},
		},
	},
}

func seedCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	ctx := context.Background()
	for _, seed := range seedDocuments {
		doc, err := pipeline.Ingest(ctx, &core.Document{
			Title:   seed.title,
			Summary: seed.summary,
		}, seed.concepts, seed.relations)
		if err != nil {
			return fmt.Errorf("failed to seed %q: %w", seed.title, err)
		}

		waitForPipeline(pipeline, doc.Id)
		fmt.Printf("Seeded document %d: %s\n", doc.Id, doc.Title)
	}

	fmt.Printf("Seeded %d documents\n", len(seedDocuments))
	return nil
}
