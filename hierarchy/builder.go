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

package hierarchy

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/ontolite/ontolite/ai"
	"github.com/ontolite/ontolite/core"
)

const (
	// maxSubGroupSize bounds refinement sub-groups; oversized connected
	// sub-groups are split by insertion order.
	maxSubGroupSize = 7

	// flatClusterLimit is the member count at or below which a cluster
	// keeps its members as direct children, with no refinement layer.
	flatClusterLimit = 3

	defaultLabelTimeout = 10 * time.Second
)

// Stats summarizes one build for quality metrics.
type Stats struct {
	// Clusters is the number of level-2 synthetic nodes created.
	Clusters int

	// Refinements is the number of level-3 synthetic nodes created.
	Refinements int

	// Orphans is the number of leaf concepts attached directly to the
	// document root, with no cluster parent.
	Orphans int

	// OrphanRatio is Orphans over the total leaf concept count.
	// Densely-related extractions should keep this below 0.2.
	OrphanRatio float64
}

// Result carries the hierarchy-tagged concept set of one build.
type Result struct {
	// Concepts holds every node of the tree: synthetic clusters and
	// refinements followed by the original leaf concepts, each with
	// HierarchyLevel and ParentId assigned.
	Concepts []*core.Concept

	Stats Stats
}

// Builder constructs a concept hierarchy from a flat extraction.
// It is pure over its inputs apart from one labeling call per synthetic node.
type Builder struct {
	labeler      ai.ClusterLabeler
	labelTimeout time.Duration
	logger       *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLabelTimeout bounds each labeling call. On expiry the first member's
// label is used instead.
func WithLabelTimeout(d time.Duration) BuilderOption {
	return func(b *Builder) {
		if d > 0 {
			b.labelTimeout = d
		}
	}
}

// WithLogger sets the builder's logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder creates a hierarchy builder using the given labeler.
func NewBuilder(labeler ai.ClusterLabeler, opts ...BuilderOption) (*Builder, error) {
	if labeler == nil {
		return nil, ErrNilLabeler
	}
	b := &Builder{
		labeler:      labeler,
		labelTimeout: defaultLabelTimeout,
		logger:       slog.Default().With("component", "hierarchy-builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Build computes the hierarchy for one document's concepts and relations.
// Relations are never mutated; concepts are tagged in place and returned
// together with the new synthetic nodes. Documents with zero concepts or
// no structural relations produce flat results, not errors.
//
// Level layout: clusters sit at level 2 under the document root, refinements
// at level 3 under their cluster, leaves at level 4. ParentId 0 means the
// document root.
func (b *Builder) Build(ctx context.Context, docID core.ID, concepts []*core.Concept, relations []*core.Relation) (*Result, error) {
	if len(concepts) == 0 {
		return &Result{}, nil
	}

	byID := make(map[core.ID]*core.Concept, len(concepts))
	ids := make(map[core.ID]bool, len(concepts))
	order := make([]core.ID, 0, len(concepts))
	for _, c := range concepts {
		if c == nil || c.Id == 0 || byID[c.Id] != nil {
			continue
		}
		byID[c.Id] = c
		ids[c.Id] = true
		order = append(order, c.Id)
	}

	adj := buildAdjacency(ids, relations, structuralVerbs)
	components := connectedComponents(order, adj)

	// Largest clusters first so they get labeled first
	slices.SortStableFunc(components, func(a, b []core.ID) int {
		return len(b) - len(a)
	})

	var (
		synthetic []*core.Concept
		stats     Stats
		now       = time.Now().UTC()
		refCount  int
	)

	clusterOrdinal := 0
	for _, component := range components {
		if len(component) < 2 {
			// Singleton with no structural relation: orphan at the root
			leaf := byID[component[0]]
			leaf.HierarchyLevel = core.LevelConcept
			leaf.ParentId = 0
			stats.Orphans++
			continue
		}

		cluster := b.newSyntheticNode(ctx, docID, "cluster", clusterOrdinal, core.LevelCluster, 0, component, byID, now)
		clusterOrdinal++
		stats.Clusters++
		synthetic = append(synthetic, cluster)

		if len(component) <= flatClusterLimit {
			for _, id := range component {
				leaf := byID[id]
				leaf.HierarchyLevel = core.LevelConcept
				leaf.ParentId = cluster.Id
			}
			continue
		}

		// Partition large clusters along the tighter edge set
		memberSet := make(map[core.ID]bool, len(component))
		for _, id := range component {
			memberSet[id] = true
		}
		subAdj := buildAdjacency(memberSet, relations, refinementVerbs)
		for _, subGroup := range splitOversized(connectedComponents(component, subAdj)) {
			if len(subGroup) < 2 {
				// Orphan-within-cluster attaches to the cluster directly
				leaf := byID[subGroup[0]]
				leaf.HierarchyLevel = core.LevelConcept
				leaf.ParentId = cluster.Id
				continue
			}

			refinement := b.newSyntheticNode(ctx, docID, "refinement", refCount, core.LevelRefinement, cluster.Id, subGroup, byID, now)
			refCount++
			stats.Refinements++
			synthetic = append(synthetic, refinement)

			for _, id := range subGroup {
				leaf := byID[id]
				leaf.HierarchyLevel = core.LevelConcept
				leaf.ParentId = refinement.Id
			}
		}
	}

	leafCount := len(order)
	if leafCount > 0 {
		stats.OrphanRatio = float64(stats.Orphans) / float64(leafCount)
	}

	result := make([]*core.Concept, 0, len(synthetic)+leafCount)
	result = append(result, synthetic...)
	for _, id := range order {
		result = append(result, byID[id])
	}

	b.logger.Debug("built hierarchy",
		"doc_id", docID,
		"leaves", leafCount,
		"clusters", stats.Clusters,
		"refinements", stats.Refinements,
		"orphans", stats.Orphans)

	return &Result{Concepts: result, Stats: stats}, nil
}

// newSyntheticNode creates a cluster or refinement concept with a
// deterministic ID and a best-effort semantic label.
func (b *Builder) newSyntheticNode(ctx context.Context, docID core.ID, kind string, ordinal int, level core.HierarchyLevel, parentID core.ID, members []core.ID, byID map[core.ID]*core.Concept, now time.Time) *core.Concept {
	labels := make([]string, 0, len(members))
	var confidence float32
	for _, id := range members {
		labels = append(labels, byID[id].Label)
		confidence += byID[id].Confidence
	}
	confidence /= float32(len(members))

	return &core.Concept{
		Id:             core.SyntheticID(docID, kind, ordinal),
		DocId:          docID,
		Label:          b.labelGroup(ctx, labels),
		Type:           kind,
		HierarchyLevel: level,
		ParentId:       parentID,
		Confidence:     confidence,
		InsertedAt:     now,
		UpdatedAt:      now,
	}
}

// labelGroup calls the labeler under the configured timeout. On any failure
// the first member's label is used verbatim; the build never aborts.
func (b *Builder) labelGroup(ctx context.Context, memberLabels []string) string {
	lctx, cancel := context.WithTimeout(ctx, b.labelTimeout)
	defer cancel()

	label, err := b.labeler.LabelCluster(lctx, memberLabels)
	if err != nil || label == "" {
		b.logger.Warn("labeling failed, falling back to first member label",
			"fallback", memberLabels[0], "err", err)
		return memberLabels[0]
	}
	return label
}

// splitOversized chops sub-groups larger than maxSubGroupSize into
// insertion-order chunks.
func splitOversized(groups [][]core.ID) [][]core.ID {
	var out [][]core.ID
	for _, g := range groups {
		for len(g) > maxSubGroupSize {
			out = append(out, g[:maxSubGroupSize])
			g = g[maxSubGroupSize:]
		}
		if len(g) > 0 {
			out = append(out, g)
		}
	}
	return out
}
