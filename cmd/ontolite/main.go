// Copyright 2025 Ontolite Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ontolite/ontolite"
	"github.com/ontolite/ontolite/ai"
	"github.com/ontolite/ontolite/core"
	"github.com/ontolite/ontolite/reembed"
	"github.com/ontolite/ontolite/search"
	"github.com/ontolite/ontolite/vector"
)

func main() {
	app := &cli.App{
		Name:  "ontolite",
		Usage: "Semantic ontology store with hybrid document retrieval",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest a document extraction from a JSON file",
				ArgsUsage: "<extraction.json>",
				Action:    ingestCommand,
				Flags:     append(dbFlags(), aiFlags()...),
			},
			{
				Name:      "search",
				Usage:     "Rank documents against a query",
				ArgsUsage: "<query terms...>",
				Action:    searchCommand,
				Flags: append(append(dbFlags(), aiFlags()...),
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum fused score for a result",
						Value: search.DefaultThreshold,
					},
					&cli.IntFlag{
						Name:  "top",
						Usage: "Maximum number of results",
						Value: search.DefaultTopResults,
					},
				),
			},
			{
				Name:   "similar",
				Usage:  "Find objects similar to a stored document or concept",
				Action: similarCommand,
				Flags: append(append(dbFlags(), aiFlags()...),
					&cli.Uint64Flag{
						Name:     "id",
						Usage:    "ID of the query object",
						Required: true,
					},
					similarKindFlag(), similarLimitFlag(), similarThresholdFlag(),
				),
			},
			{
				Name:      "similar-text",
				Usage:     "Find objects similar to free text",
				ArgsUsage: "<query terms...>",
				Action:    similarTextCommand,
				Flags: append(append(dbFlags(), aiFlags()...),
					similarKindFlag(), similarLimitFlag(), similarThresholdFlag(),
				),
			},
			{
				Name:   "reembed",
				Usage:  "Regenerate every stored vector with the configured embedding model",
				Action: reembedCommand,
				Flags: append(append(dbFlags(), aiFlags()...),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of objects to process in each batch",
						Value: reembed.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N objects",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				),
			},
			{
				Name:   "rebuild-index",
				Usage:  "Load every stored vector into the in-memory search index",
				Action: rebuildIndexCommand,
				Flags:  append(dbFlags(), aiFlags()...),
			},
			{
				Name:   "provenance",
				Usage:  "Show the event log for a document",
				Action: provenanceCommand,
				Flags: append(append(dbFlags(), aiFlags()...),
					&cli.Uint64Flag{
						Name:     "doc",
						Usage:    "Document ID",
						Required: true,
					},
				),
			},
			{
				Name:   "seed",
				Usage:  "Ingest a set of sample documents for experimentation",
				Action: seedCommand,
				Flags:  append(dbFlags(), aiFlags()...),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dbFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
	}
}

func aiFlags() []cli.Flag {
	defaults := ai.DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: defaults.EmbeddingHost,
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: defaults.EmbeddingModel,
		},
		&cli.StringFlag{
			Name:  "labeler-host",
			Usage: "Cluster labeler host URL (defaults to embedding-host)",
		},
		&cli.StringFlag{
			Name:  "labeler-model",
			Usage: "Cluster labeler model name",
			Value: defaults.LabelerModel,
		},
	}
}

func similarKindFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "kind",
		Usage: "Object kind to search: document or concept",
		Value: string(vector.KindDocument),
	}
}

func similarLimitFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "limit",
		Usage: "Maximum number of matches",
		Value: 10,
	}
}

func similarThresholdFlag() cli.Flag {
	return &cli.Float64Flag{
		Name:  "threshold",
		Usage: "Minimum cosine similarity",
		Value: 0.5,
	}
}

// openDatabase builds a Database from the shared CLI flags.
func openDatabase(c *cli.Context) (*ontolite.Database, error) {
	labelerHost := c.String("labeler-host")
	if labelerHost == "" {
		labelerHost = c.String("embedding-host")
	}

	config := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithLabelerHost(labelerHost),
		ai.WithLabelerModel(c.String("labeler-model")),
	)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	return ontolite.NewDatabase(c.String("db"), ontolite.WithAIConfig(config))
}

// extractionFile is the JSON input format for the ingest command. Relations
// reference concepts by label; labels must be unique within the file.
type extractionFile struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Concepts []struct {
		Label      string  `json:"label"`
		Type       string  `json:"type"`
		Confidence float32 `json:"confidence"`
		Summary    string  `json:"summary"`
	} `json:"concepts"`
	Relations []struct {
		Src        string  `json:"src"`
		Dst        string  `json:"dst"`
		Verb       string  `json:"verb"`
		Confidence float32 `json:"confidence"`
	} `json:"relations"`
}

// toExtraction converts the file representation into domain objects,
// assigning unique concept IDs so relations can reference them.
func (f *extractionFile) toExtraction() (*core.Document, []*core.Concept, []*core.Relation, error) {
	doc := &core.Document{Title: f.Title, Summary: f.Summary}

	byLabel := make(map[string]core.ID, len(f.Concepts))
	concepts := make([]*core.Concept, 0, len(f.Concepts))
	for _, c := range f.Concepts {
		if _, dup := byLabel[c.Label]; dup {
			return nil, nil, nil, fmt.Errorf("duplicate concept label %q", c.Label)
		}
		id := core.IDFromContent(uuid.NewString())
		byLabel[c.Label] = id
		concepts = append(concepts, &core.Concept{
			Id:         id,
			Label:      c.Label,
			Type:       c.Type,
			Confidence: c.Confidence,
			Summary:    c.Summary,
		})
	}

	relations := make([]*core.Relation, 0, len(f.Relations))
	for _, r := range f.Relations {
		src, ok := byLabel[r.Src]
		if !ok {
			return nil, nil, nil, fmt.Errorf("relation references unknown concept %q", r.Src)
		}
		dst, ok := byLabel[r.Dst]
		if !ok {
			return nil, nil, nil, fmt.Errorf("relation references unknown concept %q", r.Dst)
		}
		relations = append(relations, &core.Relation{
			SrcId:      src,
			DstId:      dst,
			Verb:       r.Verb,
			Confidence: r.Confidence,
		})
	}

	return doc, concepts, relations, nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one extraction file")
	}

	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to read extraction file: %w", err)
	}

	var file extractionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse extraction file: %w", err)
	}

	doc, concepts, relations, err := file.toExtraction()
	if err != nil {
		return err
	}

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
	ingested, err := pipeline.Ingest(ctx, doc, concepts, relations)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Ingested document %d: %s (%d concepts, %d relations)\n",
		ingested.Id, ingested.Title, len(concepts), len(relations))

	waitForPipeline(pipeline, ingested.Id)
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RebuildIndex(context.Background()); err != nil {
		return fmt.Errorf("failed to build search index: %w", err)
	}

	engine, err := db.NewEngine(search.WithTopResults(c.Int("top")))
	if err != nil {
		return err
	}

	resp, err := engine.Search(context.Background(), query, c.Float64("threshold"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("Found %d hits\n", resp.Count)
	for i, hit := range resp.Results {
		fmt.Printf("%d: '%s' (%d)[%0.3f] %s\n", i, hit.Title, hit.DocId, hit.Score, hit.MatchType)
		if len(hit.Concepts) > 0 {
			fmt.Printf("   concepts: %s\n", strings.Join(hit.Concepts, ", "))
		}
	}
	return nil
}

func similarCommand(c *cli.Context) error {
	kind, err := parseKind(c.String("kind"))
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RebuildIndex(context.Background()); err != nil {
		return fmt.Errorf("failed to build search index: %w", err)
	}

	resp, err := db.VectorStore().Similar(context.Background(),
		core.ID(c.Uint64("id")), kind, c.Int("limit"), float32(c.Float64("threshold")))
	if err != nil {
		return fmt.Errorf("similarity query failed: %w", err)
	}

	printMatches(resp)
	return nil
}

func similarTextCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("query text is required")
	}
	kind, err := parseKind(c.String("kind"))
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RebuildIndex(context.Background()); err != nil {
		return fmt.Errorf("failed to build search index: %w", err)
	}

	resp, err := db.VectorStore().SimilarByText(context.Background(),
		strings.Join(c.Args().Slice(), " "), kind, c.Int("limit"), float32(c.Float64("threshold")))
	if err != nil {
		return fmt.Errorf("similarity query failed: %w", err)
	}

	printMatches(resp)
	return nil
}

func printMatches(resp *core.SimilarResponse) {
	fmt.Printf("Found %d matches\n", resp.Count)
	for i, m := range resp.Results {
		fmt.Printf("%d: %d [%0.3f] %s\n", i, m.Id, m.Score, m.Fingerprint)
	}
}

func parseKind(s string) (vector.Kind, error) {
	switch vector.Kind(s) {
	case vector.KindDocument:
		return vector.KindDocument, nil
	case vector.KindConcept:
		return vector.KindConcept, nil
	default:
		return "", fmt.Errorf("invalid kind %q: must be document or concept", s)
	}
}

func reembedCommand(c *cli.Context) error {
	config := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := db.NewReembedder(config, os.Stderr).Run(context.Background()); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func rebuildIndexCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RebuildIndex(context.Background()); err != nil {
		return fmt.Errorf("index rebuild failed: %w", err)
	}

	index := db.VectorStore().Index()
	fmt.Printf("Index ready: %d documents, %d concepts\n",
		index.Len(vector.KindDocument), index.Len(vector.KindConcept))
	return nil
}

func provenanceCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	docID := core.ID(c.Uint64("doc"))
	events, err := db.ProvenanceRepository().GetEventsByDocument(context.Background(), docID)
	if err != nil {
		return fmt.Errorf("failed to read provenance log: %w", err)
	}

	fmt.Printf("%d events for document %d\n", len(events), docID)
	for _, e := range events {
		fmt.Printf("%s  %-20s  actor=%s  checksum=%s\n",
			e.Timestamp.Format(time.RFC3339), e.EventType, e.Actor, e.Checksum)
		for k, v := range e.Metadata {
			fmt.Printf("    %s=%s\n", k, v)
		}
	}
	return nil
}

// waitForPipeline blocks until background processing for a document
// finishes, so short-lived commands do not exit mid-build.
func waitForPipeline(pipeline interface{ Processing(core.ID) bool }, docID core.ID) {
	for pipeline.Processing(docID) {
		time.Sleep(50 * time.Millisecond)
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
