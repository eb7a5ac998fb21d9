package evidence

import (
	"container/list"
	"context"
	"fmt"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

// TraverseFrom performs a breadth-first expansion from seed IDs out to
// maxDepth hops, optionally restricted to edgeTypes (nil or empty means all
// edge types). Returns every discovered node ID including the seeds
// themselves, in the order first visited. Used both by retrieval (to widen
// the candidate set) and by argument queries (to walk support/conflict/
// decision chains) — see spec.md's "Graph expansion" note.
func (g *Graph) TraverseFrom(ctx context.Context, seeds []string, maxDepth int, edgeTypes []model.EdgeType) ([]string, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("evidence: maxDepth must be non-negative")
	}
	allowed := edgeTypeSet(edgeTypes)

	visited := make(map[string]bool, len(seeds))
	var order []string
	queue := list.New()

	type frontier struct {
		id    string
		depth int
	}
	for _, s := range seeds {
		if visited[s] {
			continue
		}
		visited[s] = true
		order = append(order, s)
		queue.PushBack(frontier{id: s, depth: 0})
	}

	for queue.Len() > 0 {
		select {
		case <-ctx.Done():
			return order, ctx.Err()
		default:
		}

		front := queue.Remove(queue.Front()).(frontier)
		if front.depth >= maxDepth {
			continue
		}

		neighbors, err := g.neighborsOf(ctx, front.id, allowed)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			if visited[n] {
				continue
			}
			visited[n] = true
			order = append(order, n)
			queue.PushBack(frontier{id: n, depth: front.depth + 1})
		}
	}
	return order, nil
}

// neighborsOf returns every node directly reachable from id by an outgoing
// or incoming edge whose type is in allowed (or all edges if allowed is
// empty); the graph is treated as undirected for expansion purposes, since
// a "related to" query has no natural preferred direction.
func (g *Graph) neighborsOf(ctx context.Context, id string, allowed map[model.EdgeType]bool) ([]string, error) {
	out, err := g.store.GetKnowledgeEdgesFrom(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("evidence: edges from %s: %w", id, err)
	}
	in, err := g.store.GetKnowledgeEdgesTo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("evidence: edges to %s: %w", id, err)
	}

	var neighbors []string
	for _, e := range out {
		if len(allowed) == 0 || allowed[e.Type] {
			neighbors = append(neighbors, e.TargetID)
		}
	}
	for _, e := range in {
		if len(allowed) == 0 || allowed[e.Type] {
			neighbors = append(neighbors, e.SourceID)
		}
	}
	return neighbors, nil
}

func edgeTypeSet(types []model.EdgeType) map[model.EdgeType]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[model.EdgeType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

// FindPath returns the shortest path (by edge count, undirected) between
// from and to as an ordered slice of node IDs starting at from and ending
// at to, or nil with no error if no path exists within the graph's
// connected component.
func (g *Graph) FindPath(ctx context.Context, from, to string) ([]string, error) {
	if from == to {
		return []string{from}, nil
	}

	visited := map[string]bool{from: true}
	parent := map[string]string{}
	queue := list.New()
	queue.PushBack(from)

	for queue.Len() > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		cur := queue.Remove(queue.Front()).(string)
		neighbors, err := g.neighborsOf(ctx, cur, nil)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			if visited[n] {
				continue
			}
			visited[n] = true
			parent[n] = cur
			if n == to {
				return reconstructPath(parent, from, to), nil
			}
			queue.PushBack(n)
		}
	}
	return nil, nil
}

func reconstructPath(parent map[string]string, from, to string) []string {
	path := []string{to}
	cur := to
	for cur != from {
		cur = parent[cur]
		path = append([]string{cur}, path...)
	}
	return path
}
