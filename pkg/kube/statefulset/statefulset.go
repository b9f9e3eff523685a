package statefulset

import (
	"context"

	appsv1 "k8s.io/api/apps/v1"
	k8sclient "sigs.k8s.io/controller-runtime/pkg/client"
)

func NewClient(client k8sclient.Reader) Client {
	return Client{
		client: client,
	}
}

type Client struct {
	client k8sclient.Reader
}

// Get provides a thin wrapper and client.Client to access appsv1.StatefulSet types
func (c Client) Get(ctx context.Context, key k8sclient.ObjectKey) (appsv1.StatefulSet, error) {
	set := appsv1.StatefulSet{}
	if err := c.client.Get(ctx, key, &set); err != nil {
		return appsv1.StatefulSet{}, err
	}
	return set, nil
}

// IsReady returns true when the StatefulSet asks for exactly expectedReplicas and has
// rolled all of them out and made them ready.
func IsReady(sts appsv1.StatefulSet, expectedReplicas int) bool {
	desired := int32(expectedReplicas)
	if sts.Spec.Replicas == nil || *sts.Spec.Replicas != desired {
		return false
	}
	allUpdated := sts.Status.UpdatedReplicas == desired
	allReady := sts.Status.ReadyReplicas == desired
	atExpectedGeneration := sts.Generation == sts.Status.ObservedGeneration
	return allUpdated && allReady && atExpectedGeneration
}
