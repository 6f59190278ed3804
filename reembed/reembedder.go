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

package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ontolite/ontolite/ai"
	"github.com/ontolite/ontolite/storage"
	"github.com/ontolite/ontolite/vector"
)

// DefaultBatchSize is the default number of objects embedded per API call.
const DefaultBatchSize = 100

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of objects to embed in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of objects)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder regenerates every vector in a database with the configured
// embedder, rotating fingerprints as it goes. Documents and concepts are
// processed as two concurrent streams.
type Reembedder struct {
	documents storage.DocumentRepository
	concepts  storage.ConceptRepository
	index     *vector.Index
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
}

// NewReembedder creates a new reembedder.
// index: rebuilt after rotation so searches see the new vectors; may be nil
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(
	documents storage.DocumentRepository,
	concepts storage.ConceptRepository,
	provenance storage.ProvenanceRepository,
	embedder ai.Embedder,
	index *vector.Index,
	config *Config,
	progress io.Writer,
) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}

	processor := NewBatchProcessor(documents, concepts, provenance, embedder, config.MaxRetries, config.RetryDelay)

	return &Reembedder{
		documents: documents,
		concepts:  concepts,
		index:     index,
		config:    config,
		progress:  progress,
		processor: processor,
	}
}

// Run executes the reembedding operation. Every document and concept in the
// database is reembedded with the configured embedder. Progress is reported
// to the configured writer.
func (r *Reembedder) Run(ctx context.Context) error {
	docs, err := r.documents.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	concepts, err := r.concepts.ListConcepts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list concepts: %w", err)
	}

	total := len(docs) + len(concepts)
	if total == 0 {
		fmt.Fprintf(r.progress, "No objects found in database (0 documents, 0 concepts)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d documents and %d concepts (batch size: %d)\n",
		len(docs), len(concepts), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return forEachBatch(gctx, len(docs), r.config.BatchSize, func(lo, hi int) error {
			if err := r.processor.ProcessDocuments(gctx, docs[lo:hi]); err != nil {
				return fmt.Errorf("failed to process document batch: %w", err)
			}
			tracker.Increment(hi - lo)
			return nil
		})
	})

	g.Go(func() error {
		return forEachBatch(gctx, len(concepts), r.config.BatchSize, func(lo, hi int) error {
			if err := r.processor.ProcessConcepts(gctx, concepts[lo:hi]); err != nil {
				return fmt.Errorf("failed to process concept batch: %w", err)
			}
			tracker.Increment(hi - lo)
			return nil
		})
	})

	if err := g.Wait(); err != nil {
		return err
	}

	tracker.Finish()

	if r.index != nil {
		if err := r.index.Rebuild(ctx); err != nil {
			return fmt.Errorf("failed to rebuild vector index: %w", err)
		}
	}

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d objects in %v (%.1f objects/sec)\n",
		total, elapsed.Round(time.Second), float64(total)/elapsed.Seconds())

	return nil
}

// forEachBatch invokes fn with half-open index ranges of at most batchSize.
// Context cancellation is checked between batches.
func forEachBatch(ctx context.Context, total, batchSize int, fn func(lo, hi int) error) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	for lo := 0; lo < total; lo += batchSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		hi := lo + batchSize
		if hi > total {
			hi = total
		}
		if err := fn(lo, hi); err != nil {
			return err
		}
	}
	return nil
}
