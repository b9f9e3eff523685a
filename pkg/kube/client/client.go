package client

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	apiErrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/wait"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	k8sClient "sigs.k8s.io/controller-runtime/pkg/client"

	mdbv1 "github.com/mongodb/mongodb-replicaset-verifier/api/v1"
	chaosv1alpha1 "github.com/mongodb/mongodb-replicaset-verifier/api/v1alpha1"
)

const updateAttempts = 3

func NewClient(c k8sClient.Client) Client {
	return client{
		Client: c,
	}
}

type Client interface {
	k8sClient.Client
	CreateOrUpdate(ctx context.Context, obj k8sClient.Object) error
	WaitForCondition(ctx context.Context, nsName types.NamespacedName, interval, timeout time.Duration, obj k8sClient.Object, condition func() bool) error
	UpdateLatest(ctx context.Context, nsName types.NamespacedName, obj k8sClient.Object, updateFunc func()) error
}

type client struct {
	k8sClient.Client
}

// Scheme returns a scheme that knows the built-in types, MongoDBCommunity and NetworkChaos.
func Scheme() (*runtime.Scheme, error) {
	scheme := runtime.NewScheme()
	for _, add := range []func(*runtime.Scheme) error{
		clientgoscheme.AddToScheme,
		mdbv1.AddToScheme,
		chaosv1alpha1.AddToScheme,
	} {
		if err := add(scheme); err != nil {
			return nil, errors.Wrap(err, "could not build scheme")
		}
	}
	return scheme, nil
}

// RestConfig loads the in-cluster configuration when inCluster is set, otherwise the
// kubeconfig at path, falling back to ~/.kube/config.
func RestConfig(path string, inCluster bool) (*rest.Config, error) {
	if inCluster {
		cfg, err := rest.InClusterConfig()
		if err != nil {
			return nil, errors.Wrap(err, "could not load in-cluster config")
		}
		return cfg, nil
	}
	if path == "" {
		if home := homedir.HomeDir(); home != "" {
			path = filepath.Join(home, ".kube", "config")
		}
	}
	cfg, err := clientcmd.BuildConfigFromFlags("", path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load kubeconfig %q", path)
	}
	return cfg, nil
}

// New builds a Client for the cluster described by cfg.
func New(cfg *rest.Config) (Client, error) {
	scheme, err := Scheme()
	if err != nil {
		return nil, err
	}
	c, err := k8sClient.New(cfg, k8sClient.Options{Scheme: scheme})
	if err != nil {
		return nil, errors.Wrap(err, "could not create kubernetes client")
	}
	return NewClient(c), nil
}

// WaitForCondition periodically fetches the object with the given namespaced name and polls until
// the condition function returns true or the timeout passes. The provided object "obj" is mutated, so it can
// be used in the condition function from an outer scope. A missing object counts as "not yet".
func (c client) WaitForCondition(ctx context.Context, nsName types.NamespacedName, interval, timeout time.Duration, obj k8sClient.Object, condition func() bool) error {
	return wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		if err := c.Get(ctx, nsName, obj); err != nil {
			return false, k8sClient.IgnoreNotFound(err)
		}
		return condition(), nil
	})
}

// CreateOrUpdate will either Create the object if it doesn't exist, or Update it
// if it does
func (c client) CreateOrUpdate(ctx context.Context, obj k8sClient.Object) error {
	existing, ok := obj.DeepCopyObject().(k8sClient.Object)
	if !ok {
		return fmt.Errorf("%T is not a client.Object", obj)
	}
	err := c.Get(ctx, k8sClient.ObjectKeyFromObject(obj), existing)
	if err != nil {
		if apiErrors.IsNotFound(err) {
			return c.Create(ctx, obj)
		}
		return err
	}
	obj.SetResourceVersion(existing.GetResourceVersion())
	return c.Update(ctx, obj)
}

// UpdateLatest fetches the resource with the given NamespacedName, and applies the given
// updateFunc to the most recent version of the resource.
// the updateFunc is intended to accept an anonymous function which captures "obj" in the outer scope.
func (c client) UpdateLatest(ctx context.Context, nsName types.NamespacedName, obj k8sClient.Object, updateFunc func()) error {
	for i := 0; i < updateAttempts; i++ {
		err := c.Get(ctx, nsName, obj)
		if err != nil {
			return err
		}

		// apply the function on the most recent version of the resource
		updateFunc()

		err = c.Update(ctx, obj)
		if err == nil {
			return nil
		}
		if apiErrors.IsConflict(err) {
			continue
		}
		return err
	}
	return fmt.Errorf("the resource is experiencing some intensive concurrent modifications")
}
