package statefulset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
)

func newStatefulSet(replicas, ready, updated int32) appsv1.StatefulSet {
	return appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{Name: "mongodb-k8s", Namespace: "test-ns"},
		Spec:       appsv1.StatefulSetSpec{Replicas: &replicas},
		Status:     appsv1.StatefulSetStatus{ReadyReplicas: ready, UpdatedReplicas: updated},
	}
}

func TestIsReady(t *testing.T) {
	assert.True(t, IsReady(newStatefulSet(3, 3, 3), 3))
	assert.False(t, IsReady(newStatefulSet(3, 3, 3), 5), "replicas differ from the expected count")
	assert.False(t, IsReady(newStatefulSet(5, 4, 5), 5), "not every replica is ready")
	assert.False(t, IsReady(newStatefulSet(5, 5, 4), 5), "not every replica is updated")

	sts := newStatefulSet(3, 3, 3)
	sts.Generation = 2
	sts.Status.ObservedGeneration = 1
	assert.False(t, IsReady(sts, 3), "controller has not observed the latest spec")

	sts.Spec.Replicas = nil
	assert.False(t, IsReady(sts, 3))
}

func TestGet(t *testing.T) {
	sts := newStatefulSet(3, 3, 3)
	c := NewClient(fake.NewClientBuilder().WithObjects(&sts).Build())

	fetched, err := c.Get(context.Background(), types.NamespacedName{Name: "mongodb-k8s", Namespace: "test-ns"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), *fetched.Spec.Replicas)

	_, err = c.Get(context.Background(), types.NamespacedName{Name: "other", Namespace: "test-ns"})
	assert.Error(t, err)
}
