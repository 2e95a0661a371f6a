package dag

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDependencyLogic(t *testing.T) {
	tests := map[string]DependencyLogic{
		"":    LogicAll,
		"all": LogicAll,
		"AND": LogicAll,
		"Any": LogicAny,
		"or":  LogicAny,
	}
	for in, want := range tests {
		got, err := ParseDependencyLogic(in)
		if err != nil || got != want {
			t.Errorf("ParseDependencyLogic(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseDependencyLogic("xor"); err == nil {
		t.Error("expected error for xor")
	}
}

func TestParseOutcome(t *testing.T) {
	tests := map[string]Outcome{
		"SUCCESS":   OutcomeSuccess,
		"success":   OutcomeSuccess,
		"Succeeded": OutcomeSuccess,
		"failure":   OutcomeFailure,
		"Failed":    OutcomeFailure,
	}
	for in, want := range tests {
		got, err := ParseOutcome(in)
		if err != nil || got != want {
			t.Errorf("ParseOutcome(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseOutcome("skipped"); err == nil {
		t.Error("expected error for skipped")
	}
}

const jsonDoc = `{
  "jobs": [
    {"id": "a", "startEndpoint": "http://x/a/start", "progressEndpoint": "http://x/a/progress"},
    {"id": "b", "name": "Build", "startEndpoint": "http://x/b/start", "progressEndpoint": "http://x/b/progress",
     "dependsOn": ["a"], "dependencyLogic": "or"}
  ],
  "conditionalRoutes": [
    {"conditionJobId": "a", "expectedOutcome": "Failed", "targetJobIds": ["b"]}
  ]
}`

const yamlDoc = `
jobs:
  - id: a
    startEndpoint: http://x/a/start
    progressEndpoint: http://x/a/progress
  - id: b
    name: Build
    startEndpoint: http://x/b/start
    progressEndpoint: http://x/b/progress
    dependsOn: [a]
    dependencyLogic: ANY
conditionalRoutes:
  - conditionJobId: a
    expectedOutcome: failure
    targetJobIds: [b]
`

func TestParseInput(t *testing.T) {
	for name, doc := range map[string]string{"json": jsonDoc, "yaml": yamlDoc} {
		t.Run(name, func(t *testing.T) {
			in, err := ParseInput([]byte(doc), "")
			if err != nil {
				t.Fatalf("ParseInput: %v", err)
			}
			if len(in.Jobs) != 2 {
				t.Fatalf("got %d jobs", len(in.Jobs))
			}
			b := in.Jobs[1]
			if b.DependencyLogic != LogicAny || b.DisplayName() != "Build" {
				t.Errorf("job b = %+v", b)
			}
			if in.Jobs[0].DisplayName() != "a" {
				t.Errorf("DisplayName fallback = %q", in.Jobs[0].DisplayName())
			}
			if len(in.ConditionalRoutes) != 1 || in.ConditionalRoutes[0].ExpectedOutcome != OutcomeFailure {
				t.Errorf("routes = %+v", in.ConditionalRoutes)
			}
		})
	}
}

func TestParseInputRejectsUnknownFields(t *testing.T) {
	if _, err := ParseInput([]byte(`{"jobs": [], "extra": 1}`), "json"); err == nil {
		t.Error("expected unknown field error for json")
	}
	if _, err := ParseInput([]byte("jobs: []\nextra: 1\n"), "yaml"); err == nil {
		t.Error("expected unknown field error for yaml")
	}
	if _, err := ParseInput([]byte("{}"), "toml"); err == nil {
		t.Error("expected unsupported format error")
	}
}

func TestLoadInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.yml")
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	in, err := LoadInput(path)
	if err != nil {
		t.Fatalf("LoadInput: %v", err)
	}
	if _, err := Validate(in); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if _, err := LoadInput(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
