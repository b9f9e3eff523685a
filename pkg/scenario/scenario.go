// Package scenario sequences deployment, topology changes, faults and checks into named runs.
package scenario

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// Step is one blocking action of a scenario.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scenario is a named sequence of steps. Steps are built per run so that they can share
// state, such as the primary found by an earlier step.
type Scenario struct {
	Name        string
	Description string
	steps       func(env Env) []Step
}

type StepResult struct {
	Name     string
	Err      error
	Duration time.Duration
	Skipped  bool
}

func (s StepResult) Passed() bool {
	return s.Err == nil && !s.Skipped
}

type Report struct {
	Scenario string
	Steps    []StepResult
	Duration time.Duration
}

func (r Report) Passed() bool {
	for _, s := range r.Steps {
		if !s.Passed() {
			return false
		}
	}
	return true
}

// Err returns the error of the failed step, if any.
func (r Report) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return errors.Wrapf(s.Err, "%s: %s", r.Scenario, s.Name)
		}
	}
	return nil
}

// Run executes the steps in order. The first failure ends the run and the remaining steps
// are reported as skipped.
func (s Scenario) Run(ctx context.Context, env Env) Report {
	report := Report{Scenario: s.Name}
	start := time.Now()
	failed := false
	for _, step := range s.steps(env) {
		if failed {
			report.Steps = append(report.Steps, StepResult{Name: step.Name, Skipped: true})
			continue
		}
		env.Log.Infof("[%s] %s", s.Name, step.Name)
		stepStart := time.Now()
		err := step.Run(ctx)
		result := StepResult{Name: step.Name, Err: err, Duration: time.Since(stepStart)}
		if err != nil {
			env.Log.Errorf("[%s] %s failed: %s", s.Name, step.Name, err)
			failed = true
		}
		report.Steps = append(report.Steps, result)
	}
	report.Duration = time.Since(start)
	return report
}

var registry = map[string]Scenario{}

func register(s Scenario) {
	if _, ok := registry[s.Name]; ok {
		panic(fmt.Sprintf("scenario %s registered twice", s.Name))
	}
	registry[s.Name] = s
}

// Default is the order "run" uses when no scenario is named.
var Default = []string{"deploy", "scale-up", "scale-down", "reelection", "consistency", "metrics", "network-cut"}

// Lookup returns the scenarios with the given names, or the default sequence when names is empty.
func Lookup(names ...string) ([]Scenario, error) {
	if len(names) == 0 {
		names = Default
	}
	scenarios := make([]Scenario, 0, len(names))
	for _, name := range names {
		s, ok := registry[name]
		if !ok {
			return nil, errors.Errorf("unknown scenario %q, known scenarios are %v", name, Names())
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunAll runs scenarios in order and stops after the first one that fails.
func RunAll(ctx context.Context, env Env, scenarios []Scenario) []Report {
	var reports []Report
	for _, s := range scenarios {
		report := s.Run(ctx, env)
		reports = append(reports, report)
		if !report.Passed() {
			break
		}
	}
	return reports
}
