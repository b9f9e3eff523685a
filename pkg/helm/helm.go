package helm

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// Runner executes helm with the given arguments and returns its combined output.
type Runner func(ctx context.Context, args ...string) ([]byte, error)

// Exec runs the helm binary found on the PATH.
func Exec(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "helm", args...).CombinedOutput()
}

type Helm struct {
	run Runner
}

func New(run Runner) Helm {
	if run == nil {
		run = Exec
	}
	return Helm{run: run}
}

// RepoAdd adds (or refreshes) a chart repository.
func (h Helm) RepoAdd(ctx context.Context, name, url string) error {
	if err := h.execute(ctx, []string{"repo", "add", "--force-update", name, url}, nil); err != nil {
		return err
	}
	return h.execute(ctx, []string{"repo", "update", name}, nil)
}

// Uninstall uninstalls the release of the given name. There is no error in the case
// of the release not existing.
func (h Helm) Uninstall(ctx context.Context, releaseName, namespace string) error {
	helmArgs := []string{"uninstall", releaseName, "--namespace", namespace, "--wait"}
	return h.execute(ctx, helmArgs, isNotFoundMessage)
}

// Install a helm chart at the given path or repo reference with the given release name and the provided set arguments.
func (h Helm) Install(ctx context.Context, chart, version, releaseName, namespace string, args map[string]string) error {
	helmArgs := []string{"upgrade", "--install", "--namespace", namespace, "--wait"}
	if version != "" {
		helmArgs = append(helmArgs, "--version", version)
	}
	helmArgs = append(helmArgs, mapToHelmArgs(args)...)
	helmArgs = append(helmArgs, releaseName, chart)
	return h.execute(ctx, helmArgs, nil)
}

func isNotFoundMessage(s string) bool {
	return strings.Contains(s, "not found")
}

// execute accepts a list of arguments that should be passed to the helm command
// and a predicate that when returning true, indicates that the error message should be ignored.
func (h Helm) execute(ctx context.Context, args []string, messagePredicate func(string) bool) error {
	output, err := h.run(ctx, args...)
	if err != nil {
		if messagePredicate != nil && messagePredicate(string(output)) {
			return nil
		}
		return fmt.Errorf("error executing command: helm %s: %s %s", strings.Join(args, " "), err, output)
	}
	return nil
}

// mapToHelmArgs accepts a map of string to string and returns a list of arguments
// that can be passed to a shell helm command, sorted by key.
func mapToHelmArgs(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var args []string
	for _, k := range keys {
		args = append(args, "--set", fmt.Sprintf("%s=%s", k, m[k]))
	}
	return args
}
