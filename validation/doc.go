// Package validation checks submitted documents before any instance exists.
//
// Validate applies `validate` struct tags through go-playground/validator
// and reports every violation as one INVALID_INPUT AppError whose details
// list the offending fields by their JSON path:
//
//	err := validation.Validate(in)
//	// INVALID_INPUT: jobs[1].startEndpoint: must be an http(s) URL
//
// Input additionally compiles the graph, so unknown references, duplicate
// ids and cycles are rejected with INVALID_GRAPH.
//
// Validator collects programmatic checks for values that have no struct,
// such as path parameters.
package validation
