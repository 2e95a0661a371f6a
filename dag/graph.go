package dag

import (
	"fmt"
	"slices"
	"strings"
)

// Graph is a compiled, read-only DagInput.
type Graph struct {
	jobs  map[string]JobNode
	order []string
	index map[string]int
	gates map[string][]ConditionalRoute
	input DagInput
}

// Compile checks ids and references and builds a Graph. It does not reject
// cycles; use Validate for that.
func Compile(in DagInput) (*Graph, error) {
	if len(in.Jobs) == 0 {
		return nil, ErrEmptyGraph
	}

	g := &Graph{
		jobs:  make(map[string]JobNode, len(in.Jobs)),
		index: make(map[string]int, len(in.Jobs)),
		gates: make(map[string][]ConditionalRoute),
	}

	for i, job := range in.Jobs {
		job.ID = strings.TrimSpace(job.ID)
		if job.ID == "" {
			return nil, fmt.Errorf("%w: job at index %d has no id", ErrInvalidJob, i)
		}
		if _, dup := g.jobs[job.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateJob, job.ID)
		}
		logic, err := ParseDependencyLogic(string(job.DependencyLogic))
		if err != nil {
			return nil, fmt.Errorf("%w: job %q: %v", ErrInvalidJob, job.ID, err)
		}
		job.DependencyLogic = logic
		job.DependsOn = dedupe(job.DependsOn)

		g.index[job.ID] = len(g.order)
		g.order = append(g.order, job.ID)
		g.jobs[job.ID] = job
	}

	for _, id := range g.order {
		for _, dep := range g.jobs[id].DependsOn {
			if _, ok := g.jobs[dep]; !ok {
				return nil, fmt.Errorf("%w: job %q depends on %q", ErrUnknownJob, id, dep)
			}
		}
	}

	for i, route := range in.ConditionalRoutes {
		if _, ok := g.jobs[route.ConditionJobID]; !ok {
			return nil, fmt.Errorf("%w: route %d conditions on %q", ErrUnknownJob, i, route.ConditionJobID)
		}
		if route.ExpectedOutcome != OutcomeSuccess && route.ExpectedOutcome != OutcomeFailure {
			return nil, fmt.Errorf("%w: route %d has outcome %q", ErrInvalidJob, i, route.ExpectedOutcome)
		}
		for _, target := range dedupe(route.TargetJobIDs) {
			if _, ok := g.jobs[target]; !ok {
				return nil, fmt.Errorf("%w: route %d targets %q", ErrUnknownJob, i, target)
			}
			g.gates[target] = append(g.gates[target], route)
		}
	}

	g.input = in
	return g, nil
}

// Validate compiles in and rejects graphs whose dependencies or routes form a cycle.
func Validate(in DagInput) (*Graph, error) {
	g, err := Compile(in)
	if err != nil {
		return nil, err
	}
	if _, err := g.Levels(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) Len() int { return len(g.order) }

// IDs returns job ids in submission order.
func (g *Graph) IDs() []string { return slices.Clone(g.order) }

func (g *Graph) Job(id string) (JobNode, bool) {
	j, ok := g.jobs[id]
	return j, ok
}

// Routes returns the conditional routes gating id.
func (g *Graph) Routes(id string) []ConditionalRoute { return g.gates[id] }

// Input returns the document the graph was compiled from.
func (g *Graph) Input() DagInput { return g.input }

// Levels groups jobs by dependency depth with Kahn's algorithm. A route's
// condition job counts as a dependency of each target. Jobs in one level keep
// submission order.
func (g *Graph) Levels() ([][]string, error) {
	inDegree := make(map[string]int, len(g.order))
	dependents := make(map[string][]string)

	addEdge := func(from, to string) {
		inDegree[to]++
		dependents[from] = append(dependents[from], to)
	}
	for _, id := range g.order {
		for _, dep := range g.jobs[id].DependsOn {
			addEdge(dep, id)
		}
		for _, route := range g.gates[id] {
			addEdge(route.ConditionJobID, id)
		}
	}

	var queue []string
	for _, id := range g.order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	var levels [][]string
	visited := 0
	for len(queue) > 0 {
		levels = append(levels, queue)
		visited += len(queue)

		var next []string
		for _, id := range queue {
			for _, dep := range dependents[id] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		slices.SortFunc(next, func(a, b string) int { return g.index[a] - g.index[b] })
		queue = next
	}

	if visited != len(g.order) {
		return nil, fmt.Errorf("%w: processed %d of %d jobs", ErrCycle, visited, len(g.order))
	}
	return levels, nil
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
