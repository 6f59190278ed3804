package hierarchy

import (
	"github.com/ontolite/ontolite/core"
)

// Structural verbs denote containment/definition/support between concepts.
// Only these edges participate in clustering; associative verbs ("mentions",
// "relates to") are too weak to imply shared topic membership.
var structuralVerbs = map[string]bool{
	"defines":  true,
	"contains": true,
	"supports": true,
	"develops": true,
}

// Refinement sub-grouping uses the tighter verb set: "develops" links are
// cross-cutting enough to merge whole clusters but too loose to subdivide one.
var refinementVerbs = map[string]bool{
	"defines":  true,
	"contains": true,
	"supports": true,
}

// adjacency is an undirected edge set over concept IDs.
type adjacency map[core.ID][]core.ID

// buildAdjacency constructs the undirected graph over the given concept set
// using only relations whose verb is in the allow-list. Relations touching
// IDs outside the set are ignored.
func buildAdjacency(ids map[core.ID]bool, relations []*core.Relation, verbs map[string]bool) adjacency {
	adj := make(adjacency)
	seen := make(map[[2]core.ID]bool)

	for _, r := range relations {
		if !verbs[r.Verb] {
			continue
		}
		if !ids[r.SrcId] || !ids[r.DstId] || r.SrcId == r.DstId {
			continue
		}
		edge := [2]core.ID{r.SrcId, r.DstId}
		if edge[0] > edge[1] {
			edge[0], edge[1] = edge[1], edge[0]
		}
		if seen[edge] {
			continue
		}
		seen[edge] = true
		adj[r.SrcId] = append(adj[r.SrcId], r.DstId)
		adj[r.DstId] = append(adj[r.DstId], r.SrcId)
	}
	return adj
}

// connectedComponents partitions order into components via BFS. Seeds are
// visited in the order given, and each component preserves that order, so
// the result is deterministic for identical inputs.
func connectedComponents(order []core.ID, adj adjacency) [][]core.ID {
	position := make(map[core.ID]int, len(order))
	for i, id := range order {
		position[id] = i
	}

	visited := make(map[core.ID]bool, len(order))
	var components [][]core.ID

	for _, seed := range order {
		if visited[seed] {
			continue
		}
		visited[seed] = true

		member := map[core.ID]bool{seed: true}
		queue := []core.ID{seed}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			for _, next := range adj[id] {
				if visited[next] {
					continue
				}
				visited[next] = true
				member[next] = true
				queue = append(queue, next)
			}
		}

		// Emit members in input order, not BFS discovery order
		component := make([]core.ID, 0, len(member))
		for _, id := range order {
			if member[id] {
				component = append(component, id)
			}
		}
		components = append(components, component)
	}

	return components
}
