package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	mdbv1 "github.com/mongodb/mongodb-replicaset-verifier/api/v1"
)

func newTestClient(t *testing.T) Client {
	scheme, err := Scheme()
	require.NoError(t, err)
	return NewClient(fake.NewClientBuilder().WithScheme(scheme).Build())
}

func TestCreateOrUpdate_CreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	cm := corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "some-name", Namespace: "some-namespace"},
		Data:       map[string]string{},
	}
	require.NoError(t, c.CreateOrUpdate(ctx, &cm))

	cm.Data["new-field"] = "value"
	require.NoError(t, c.CreateOrUpdate(ctx, &cm))

	newCm := corev1.ConfigMap{}
	require.NoError(t, c.Get(ctx, types.NamespacedName{Name: "some-name", Namespace: "some-namespace"}, &newCm))
	assert.Equal(t, "value", newCm.Data["new-field"])
}

func TestUpdateLatest_AppliesFunctionToLatestVersion(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	mdb := mdbv1.MongoDBCommunity{
		ObjectMeta: metav1.ObjectMeta{Name: "mongodb-k8s", Namespace: "test"},
		Spec:       mdbv1.MongoDBCommunitySpec{Members: 3},
	}
	require.NoError(t, c.Create(ctx, &mdb))

	latest := mdbv1.MongoDBCommunity{}
	err := c.UpdateLatest(ctx, mdb.NamespacedName(), &latest, func() {
		latest.Spec.Members += 2
	})
	require.NoError(t, err)

	fetched := mdbv1.MongoDBCommunity{}
	require.NoError(t, c.Get(ctx, mdb.NamespacedName(), &fetched))
	assert.Equal(t, 5, fetched.Spec.Members)
}

func TestWaitForCondition(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	nsName := types.NamespacedName{Name: "cm", Namespace: "test"}

	cm := corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: nsName.Name, Namespace: nsName.Namespace}, Data: map[string]string{"ready": "true"}}
	require.NoError(t, c.Create(ctx, &cm))

	fetched := corev1.ConfigMap{}
	err := c.WaitForCondition(ctx, nsName, 10*time.Millisecond, time.Second, &fetched, func() bool {
		return fetched.Data["ready"] == "true"
	})
	assert.NoError(t, err)

	err = c.WaitForCondition(ctx, nsName, 10*time.Millisecond, 50*time.Millisecond, &fetched, func() bool {
		return fetched.Data["ready"] == "false"
	})
	assert.Error(t, err)

	missing := corev1.ConfigMap{}
	err = c.WaitForCondition(ctx, types.NamespacedName{Name: "missing", Namespace: "test"}, 10*time.Millisecond, 50*time.Millisecond, &missing, func() bool {
		return true
	})
	assert.Error(t, err)
}
