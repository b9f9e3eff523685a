package helm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls  [][]string
	output string
	err    error
}

func (r *recorder) run(_ context.Context, args ...string) ([]byte, error) {
	r.calls = append(r.calls, args)
	return []byte(r.output), r.err
}

func TestInstall(t *testing.T) {
	r := &recorder{}
	h := New(r.run)

	err := h.Install(context.Background(), "chaos-mesh/chaos-mesh", "2.6.2", "chaos-mesh", "test", map[string]string{
		"dashboard.create":    "false",
		"chaosDaemon.runtime": "containerd",
	})
	require.NoError(t, err)
	require.Len(t, r.calls, 1)
	assert.Equal(t,
		"upgrade --install --namespace test --wait --version 2.6.2 --set chaosDaemon.runtime=containerd --set dashboard.create=false chaos-mesh chaos-mesh/chaos-mesh",
		strings.Join(r.calls[0], " "))
}

func TestUninstall_IgnoresMissingRelease(t *testing.T) {
	r := &recorder{output: "Error: uninstall: Release not loaded: chaos-mesh: release: not found", err: errors.New("exit status 1")}
	assert.NoError(t, New(r.run).Uninstall(context.Background(), "chaos-mesh", "test"))

	r = &recorder{output: "Error: Kubernetes cluster unreachable", err: errors.New("exit status 1")}
	assert.Error(t, New(r.run).Uninstall(context.Background(), "chaos-mesh", "test"))
}

func TestRepoAdd(t *testing.T) {
	r := &recorder{}
	require.NoError(t, New(r.run).RepoAdd(context.Background(), "chaos-mesh", "https://charts.chaos-mesh.org"))
	require.Len(t, r.calls, 2)
	assert.Equal(t, []string{"repo", "add", "--force-update", "chaos-mesh", "https://charts.chaos-mesh.org"}, r.calls[0])
	assert.Equal(t, []string{"repo", "update", "chaos-mesh"}, r.calls[1])
}
