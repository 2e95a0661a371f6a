package validation

import (
	"github.com/kbukum/jobflow/dag"
	"github.com/kbukum/jobflow/errors"
)

// Input validates a submitted document and returns its compiled graph.
// Field violations yield INVALID_INPUT; unknown references, duplicates and
// cycles yield INVALID_GRAPH.
func Input(in dag.DagInput) (*dag.Graph, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	g, err := dag.Validate(in)
	if err != nil {
		return nil, errors.InvalidGraph(err)
	}
	return g, nil
}
