package validation

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kbukum/jobflow/dag"
	"github.com/kbukum/jobflow/errors"
)

func validInput() dag.DagInput {
	return dag.DagInput{
		Jobs: []dag.JobNode{
			{ID: "a", StartEndpoint: "http://jobs/a/start", ProgressEndpoint: "http://jobs/a/progress"},
			{ID: "b", StartEndpoint: "https://jobs/b/start", ProgressEndpoint: "https://jobs/b/progress", DependsOn: []string{"a"}, DependencyLogic: dag.LogicAny},
		},
		ConditionalRoutes: []dag.ConditionalRoute{
			{ConditionJobID: "a", ExpectedOutcome: dag.OutcomeSuccess, TargetJobIDs: []string{"b"}},
		},
	}
}

func fieldsOf(t *testing.T, err error) []FieldError {
	t.Helper()
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	fields, _ := appErr.Details["fields"].([]FieldError)
	return fields
}

func hasField(fields []FieldError, path string) bool {
	for _, f := range fields {
		if f.Field == path {
			return true
		}
	}
	return false
}

func TestValidateAcceptsValidInput(t *testing.T) {
	if err := Validate(validInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateReportsFieldPaths(t *testing.T) {
	in := validInput()
	in.Jobs[1].StartEndpoint = "ftp://jobs/b/start"
	in.Jobs[0].ID = ""
	in.ConditionalRoutes[0].TargetJobIDs = nil

	err := Validate(in)
	if err == nil {
		t.Fatal("expected error")
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Code != errors.ErrCodeInvalidInput || appErr.HTTPStatus != 400 {
		t.Errorf("code = %s status = %d", appErr.Code, appErr.HTTPStatus)
	}

	fields := fieldsOf(t, err)
	for _, want := range []string{"jobs[0].id", "jobs[1].startEndpoint", "conditionalRoutes[0].targetJobIds"} {
		if !hasField(fields, want) {
			t.Errorf("missing field %q in %+v", want, fields)
		}
	}
	if !strings.Contains(appErr.Message, "must be an http(s) URL") {
		t.Errorf("message = %q", appErr.Message)
	}
}

func TestValidateEmptyJobs(t *testing.T) {
	fields := fieldsOf(t, Validate(dag.DagInput{}))
	if !hasField(fields, "jobs") {
		t.Errorf("fields = %+v", fields)
	}
}

func TestInputRejectsStructuralErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dag.DagInput)
		want   error
	}{
		{"unknown dependency", func(in *dag.DagInput) { in.Jobs[1].DependsOn = []string{"zzz"} }, dag.ErrUnknownJob},
		{"duplicate id", func(in *dag.DagInput) { in.Jobs[1].ID = "a"; in.Jobs[1].DependsOn = nil }, dag.ErrDuplicateJob},
		{"cycle", func(in *dag.DagInput) { in.Jobs[0].DependsOn = []string{"b"} }, dag.ErrCycle},
		{"unknown route target", func(in *dag.DagInput) { in.ConditionalRoutes[0].TargetJobIDs = []string{"c"} }, dag.ErrUnknownJob},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := Input(in)
			if !stderrors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			appErr, ok := errors.AsAppError(err)
			if !ok || appErr.Code != errors.ErrCodeInvalidGraph {
				t.Errorf("expected INVALID_GRAPH, got %v", err)
			}
		})
	}
}

func TestInputReturnsGraph(t *testing.T) {
	g, err := Input(validInput())
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	if g.Len() != 2 {
		t.Errorf("Len = %d", g.Len())
	}
}

func TestValidatorRequired(t *testing.T) {
	if New().Required("name", "x").HasErrors() {
		t.Error("expected no errors for valid input")
	}
	if !New().Required("name", "   ").HasErrors() {
		t.Error("expected error for blank value")
	}
}

func TestValidatorRequiredUUID(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{uuid.NewString(), false},
		{"", true},
		{"not-a-uuid", true},
		{uuid.Nil.String(), true},
	}
	for _, tt := range tests {
		if got := New().RequiredUUID("id", tt.value).HasErrors(); got != tt.wantErr {
			t.Errorf("RequiredUUID(%q) errors = %v, want %v", tt.value, got, tt.wantErr)
		}
	}
}

func TestValidatorValidate(t *testing.T) {
	v := New().Required("a", "").Custom(false, "b", "is wrong")
	appErr := v.Validate()
	if appErr == nil {
		t.Fatal("expected error")
	}
	if appErr.Message != "a: is required; b: is wrong" {
		t.Errorf("message = %q", appErr.Message)
	}
	if New().Validate() != nil {
		t.Error("empty validator should return nil")
	}
}

func TestInstanceID(t *testing.T) {
	if err := InstanceID(uuid.NewString()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := InstanceID("nope"); err == nil {
		t.Error("expected error")
	}
}
