package dag

import (
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"
)

// DependencyLogic decides how a job's dependencies combine.
type DependencyLogic string

const (
	// LogicAll waits until no dependency is pending.
	LogicAll DependencyLogic = "ALL"
	// LogicAny starts as soon as one dependency completed.
	LogicAny DependencyLogic = "ANY"
)

// ParseDependencyLogic accepts ALL/ANY and the AND/OR aliases, ignoring case.
// An empty value means ALL.
func ParseDependencyLogic(s string) (DependencyLogic, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ALL", "AND":
		return LogicAll, nil
	case "ANY", "OR":
		return LogicAny, nil
	}
	return "", fmt.Errorf("dag: unknown dependency logic %q", s)
}

func (l *DependencyLogic) UnmarshalText(b []byte) error {
	v, err := ParseDependencyLogic(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

func (l *DependencyLogic) UnmarshalYAML(n *yaml.Node) error {
	return l.UnmarshalText([]byte(n.Value))
}

// Outcome is the observed result of a job that a conditional route tests for.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// ParseOutcome accepts SUCCESS/FAILURE as well as Success/Failed, ignoring case.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SUCCESS", "SUCCEEDED":
		return OutcomeSuccess, nil
	case "FAILURE", "FAILED":
		return OutcomeFailure, nil
	}
	return "", fmt.Errorf("dag: unknown outcome %q", s)
}

func (o *Outcome) UnmarshalText(b []byte) error {
	v, err := ParseOutcome(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

func (o *Outcome) UnmarshalYAML(n *yaml.Node) error {
	return o.UnmarshalText([]byte(n.Value))
}

// JobNode is one externally hosted job: a start endpoint, a progress endpoint
// and the jobs it waits for.
type JobNode struct {
	ID               string          `json:"id" yaml:"id" validate:"required"`
	Name             string          `json:"name,omitempty" yaml:"name,omitempty"`
	StartEndpoint    string          `json:"startEndpoint" yaml:"startEndpoint" validate:"required,http_url"`
	ProgressEndpoint string          `json:"progressEndpoint" yaml:"progressEndpoint" validate:"required,http_url"`
	DependsOn        []string        `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty" validate:"dive,required"`
	DependencyLogic  DependencyLogic `json:"dependencyLogic,omitempty" yaml:"dependencyLogic,omitempty" validate:"omitempty,oneof=ALL ANY"`
}

// DisplayName returns Name, falling back to ID.
func (j JobNode) DisplayName() string {
	if j.Name != "" {
		return j.Name
	}
	return j.ID
}

// ConditionalRoute gates TargetJobIDs on the outcome of ConditionJobID.
type ConditionalRoute struct {
	ConditionJobID  string   `json:"conditionJobId" yaml:"conditionJobId" validate:"required"`
	ExpectedOutcome Outcome  `json:"expectedOutcome" yaml:"expectedOutcome" validate:"required,oneof=SUCCESS FAILURE"`
	TargetJobIDs    []string `json:"targetJobIds" yaml:"targetJobIds" validate:"required,min=1,dive,required"`
}

// DagInput is the document a caller submits.
type DagInput struct {
	Jobs              []JobNode          `json:"jobs" yaml:"jobs" validate:"required,min=1,dive"`
	ConditionalRoutes []ConditionalRoute `json:"conditionalRoutes,omitempty" yaml:"conditionalRoutes,omitempty" validate:"dive"`
}
