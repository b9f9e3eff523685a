package chaos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mongodb/mongodb-replicaset-verifier/pkg/helm"
)

const (
	chaosMeshRelease = "chaos-mesh"
	chaosMeshRepo    = "https://charts.chaos-mesh.org"
	containerdSocket = "/run/containerd/containerd.sock"
)

// ChaosMesh installs and removes the chaos-mesh controllers the NetworkChaosInjector relies on.
type ChaosMesh struct {
	Helm    helm.Helm
	Chart   string
	Version string
}

// Deploy installs chaos-mesh into namespace and waits for it to be ready.
func (c ChaosMesh) Deploy(ctx context.Context, namespace string) error {
	if err := c.Helm.RepoAdd(ctx, chaosMeshRelease, chaosMeshRepo); err != nil {
		return errors.Wrap(err, "could not add the chaos-mesh repository")
	}
	err := c.Helm.Install(ctx, c.Chart, c.Version, chaosMeshRelease, namespace, map[string]string{
		"chaosDaemon.runtime":    "containerd",
		"chaosDaemon.socketPath": containerdSocket,
		"dashboard.create":       "false",
	})
	return errors.Wrap(err, "could not install chaos-mesh")
}

// Destroy uninstalls chaos-mesh from namespace. A missing release is not an error.
func (c ChaosMesh) Destroy(ctx context.Context, namespace string) error {
	return errors.Wrap(c.Helm.Uninstall(ctx, chaosMeshRelease, namespace), "could not uninstall chaos-mesh")
}
