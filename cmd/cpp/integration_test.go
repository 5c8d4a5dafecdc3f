package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// IntegrationTestSpec represents a single integration test case
type IntegrationTestSpec struct {
	Name    string   `yaml:"name"`
	Input   string   `yaml:"input"`
	Defines []string `yaml:"defines,omitempty"`
	Expect  string   `yaml:"expect"`
	Skip    string   `yaml:"skip,omitempty"` // Reason to skip this test
}

// IntegrationTestFile represents the integration.yaml file structure
type IntegrationTestFile struct {
	Tests []IntegrationTestSpec `yaml:"tests"`
}

func loadIntegrationTests(t *testing.T) []IntegrationTestSpec {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "integration.yaml"))
	if err != nil {
		t.Fatalf("reading integration.yaml: %v", err)
	}
	var file IntegrationTestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		t.Fatalf("parsing integration.yaml: %v", err)
	}
	return file.Tests
}

func TestIntegration(t *testing.T) {
	for _, spec := range loadIntegrationTests(t) {
		t.Run(spec.Name, func(t *testing.T) {
			if spec.Skip != "" {
				t.Skip(spec.Skip)
			}
			resetFlags()

			src := writeSource(t, "input.c", spec.Input)
			args := []string{"-E"}
			for _, d := range spec.Defines {
				args = append(args, "-D", d)
			}
			args = append(args, src)

			var out, errOut bytes.Buffer
			cmd := newRootCmd(&out, &errOut)
			cmd.SetArgs(args)
			if err := cmd.Execute(); err != nil {
				t.Fatalf("execute: %v (stderr: %s)", err, errOut.String())
			}

			got := strings.TrimRight(out.String(), "\n")
			want := strings.TrimRight(spec.Expect, "\n")
			if got != want {
				t.Errorf("output mismatch\n got: %q\nwant: %q", got, want)
			}
		})
	}
}
