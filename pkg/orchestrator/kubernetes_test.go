package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	k8sClient "sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	mdbv1 "github.com/mongodb/mongodb-replicaset-verifier/api/v1"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/config"
	kubeclient "github.com/mongodb/mongodb-replicaset-verifier/pkg/kube/client"
)

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Namespace = "test"
	cfg.App = "mongodb-k8s"
	cfg.PollInterval = metav1.Duration{Duration: 5 * time.Millisecond}
	cfg.DeployTimeout = metav1.Duration{Duration: 100 * time.Millisecond}
	return cfg
}

func newOrchestrator(t *testing.T, objs ...k8sClient.Object) (Kubernetes, kubeclient.Client) {
	scheme, err := kubeclient.Scheme()
	require.NoError(t, err)
	c := kubeclient.NewClient(fake.NewClientBuilder().WithScheme(scheme).WithObjects(objs...).Build())
	return NewKubernetes(c, testConfig(), zap.NewNop().Sugar()), c
}

func runningResource(members int) *mdbv1.MongoDBCommunity {
	return &mdbv1.MongoDBCommunity{
		ObjectMeta: metav1.ObjectMeta{Name: "mongodb-k8s", Namespace: "test"},
		Spec:       mdbv1.MongoDBCommunitySpec{Members: members},
		Status: mdbv1.MongoDBCommunityStatus{
			Phase:                      mdbv1.Running,
			CurrentMongoDBMembers:      members,
			CurrentStatefulSetReplicas: members,
		},
	}
}

func readyStatefulSet(replicas int32) *appsv1.StatefulSet {
	return &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{Name: "mongodb-k8s", Namespace: "test"},
		Spec:       appsv1.StatefulSetSpec{Replicas: &replicas},
		Status:     appsv1.StatefulSetStatus{ReadyReplicas: replicas, UpdatedReplicas: replicas},
	}
}

func memberPod(ordinal int, ready bool) *corev1.Pod {
	status := corev1.ConditionTrue
	if !ready {
		status = corev1.ConditionFalse
	}
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      fmt.Sprintf("mongodb-k8s-%d", ordinal),
			Namespace: "test",
			Labels:    map[string]string{"app": "mongodb-k8s-svc"},
		},
		Status: corev1.PodStatus{
			Phase:      corev1.PodRunning,
			PodIP:      fmt.Sprintf("10.1.0.%d", ordinal+10),
			Conditions: []corev1.PodCondition{{Type: corev1.PodReady, Status: status}},
		},
	}
}

func TestDeploy_CreatesSecretsAndResource(t *testing.T) {
	ctx := context.Background()
	k, c := newOrchestrator(t)

	require.NoError(t, k.Deploy(ctx, 3))

	mdb := mdbv1.MongoDBCommunity{}
	require.NoError(t, c.Get(ctx, types.NamespacedName{Name: "mongodb-k8s", Namespace: "test"}, &mdb))
	assert.Equal(t, 3, mdb.Spec.Members)
	assert.Equal(t, mdbv1.ReplicaSet, mdb.Spec.Type)
	assert.Equal(t, "6.0.5", mdb.Spec.Version)
	require.Len(t, mdb.Spec.Users, 2)
	assert.Equal(t, OperatorUser, mdb.Spec.Users[0].Name)
	assert.Equal(t, MonitorUser, mdb.Spec.Users[1].Name)
	assert.Equal(t, "mongodb-k8s-monitor-password", mdb.Spec.Users[1].PasswordSecretRef.Name)
	require.NotNil(t, mdb.Spec.Prometheus)
	assert.Equal(t, 9216, mdb.Spec.Prometheus.Port)
	assert.Equal(t, "mongodb-k8s-prometheus-password", mdb.Spec.Prometheus.PasswordSecretRef.Name)

	first := map[string]string{}
	for _, user := range []string{OperatorUser, MonitorUser, PrometheusUser} {
		password, err := k.Password(ctx, user)
		require.NoError(t, err)
		assert.Len(t, password, 32)
		first[user] = password
	}

	require.NoError(t, k.Deploy(ctx, 5), "deploying again updates the resource")
	require.NoError(t, c.Get(ctx, types.NamespacedName{Name: "mongodb-k8s", Namespace: "test"}, &mdb))
	assert.Equal(t, 5, mdb.Spec.Members)

	for user, password := range first {
		again, err := k.Password(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, password, again, "passwords survive a redeploy")
	}
}

func TestDeploy_RejectsZeroUnits(t *testing.T) {
	k, _ := newOrchestrator(t)
	assert.Error(t, k.Deploy(context.Background(), 0))
}

func TestScale(t *testing.T) {
	ctx := context.Background()
	k, c := newOrchestrator(t, runningResource(3))

	target, err := k.Scale(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, target)

	target, err = k.Scale(ctx, -2)
	require.NoError(t, err)
	assert.Equal(t, 3, target)

	_, err = k.Scale(ctx, -3)
	assert.Error(t, err)

	mdb := mdbv1.MongoDBCommunity{}
	require.NoError(t, c.Get(ctx, types.NamespacedName{Name: "mongodb-k8s", Namespace: "test"}, &mdb))
	assert.Equal(t, 3, mdb.Spec.Members)
}

func TestScale_MissingResource(t *testing.T) {
	k, _ := newOrchestrator(t)
	_, err := k.Scale(context.Background(), 1)
	assert.Error(t, err)
}

func TestWaitForActive(t *testing.T) {
	ctx := context.Background()

	t.Run("everything ready", func(t *testing.T) {
		k, _ := newOrchestrator(t, runningResource(3), readyStatefulSet(3), memberPod(0, true), memberPod(1, true), memberPod(2, true))
		assert.NoError(t, k.WaitForActive(ctx, 3, 0))
	})
	t.Run("one pod not ready", func(t *testing.T) {
		k, _ := newOrchestrator(t, runningResource(3), readyStatefulSet(3), memberPod(0, true), memberPod(1, false), memberPod(2, true))
		err := k.WaitForActive(ctx, 3, 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 of 3 pods are ready")
	})
	t.Run("more pods than expected", func(t *testing.T) {
		k, _ := newOrchestrator(t, runningResource(2), readyStatefulSet(2), memberPod(0, true), memberPod(1, true), memberPod(2, true))
		assert.Error(t, k.WaitForActive(ctx, 2, 0))
	})
	t.Run("operator still reconciling", func(t *testing.T) {
		mdb := runningResource(5)
		mdb.Status.Phase = mdbv1.Pending
		k, _ := newOrchestrator(t, mdb, readyStatefulSet(5))
		err := k.WaitForActive(ctx, 5, 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Pending")
	})
	t.Run("no resource", func(t *testing.T) {
		k, _ := newOrchestrator(t)
		assert.Error(t, k.WaitForActive(ctx, 3, 0))
	})
	t.Run("explicit timeout wins over the deploy timeout", func(t *testing.T) {
		cfg := testConfig()
		cfg.DeployTimeout = metav1.Duration{Duration: time.Hour}
		scheme, err := kubeclient.Scheme()
		require.NoError(t, err)
		k := NewKubernetes(kubeclient.NewClient(fake.NewClientBuilder().WithScheme(scheme).Build()), cfg, zap.NewNop().Sugar())

		start := time.Now()
		assert.Error(t, k.WaitForActive(ctx, 3, 50*time.Millisecond))
		assert.Less(t, time.Since(start), 10*time.Second)
	})
}

func TestUnits(t *testing.T) {
	k, _ := newOrchestrator(t, memberPod(2, true), memberPod(0, true), memberPod(1, false))

	units, err := k.Units(context.Background())
	require.NoError(t, err)
	require.Len(t, units, 3)
	assert.Equal(t, Unit{
		Name:    "mongodb-k8s-0",
		Ordinal: 0,
		Address: "10.1.0.10",
		Host:    "mongodb-k8s-0.mongodb-k8s-svc.test.svc.cluster.local:27017",
		Active:  true,
		Phase:   "Running",
	}, units[0])
	assert.False(t, units[1].Active)
	assert.Len(t, ActiveUnits(units), 2)
}

func TestDeleteUnit(t *testing.T) {
	ctx := context.Background()
	k, c := newOrchestrator(t, memberPod(0, true))

	require.NoError(t, k.DeleteUnit(ctx, "mongodb-k8s-0"))
	assert.Error(t, c.Get(ctx, types.NamespacedName{Name: "mongodb-k8s-0", Namespace: "test"}, &corev1.Pod{}))
}

func TestMemberHost(t *testing.T) {
	k, _ := newOrchestrator(t)
	assert.Equal(t, "mongodb-k8s-1.mongodb-k8s-svc.test.svc.cluster.local:27017", k.MemberHost(1))
	assert.Equal(t, "mongodb-k8s", k.ReplicaSetName())

	k.cfg.HostForm = config.ShortHosts
	assert.Equal(t, "mongodb-k8s-1.mongodb-k8s-svc:27017", k.MemberHost(1))
	assert.Equal(t, []string{"mongodb-k8s-0.mongodb-k8s-svc:27017", "mongodb-k8s-1.mongodb-k8s-svc:27017"}, MemberHosts(k, 2))
}

func TestMemberHost_ConfiguredPort(t *testing.T) {
	k, _ := newOrchestrator(t)
	k.cfg.Port = 27018

	k.cfg.HostForm = config.FQDNHosts
	assert.Equal(t, "mongodb-k8s-1.mongodb-k8s-svc.test.svc.cluster.local:27018", k.MemberHost(1))

	k.cfg.HostForm = config.ShortHosts
	assert.Equal(t, "mongodb-k8s-1.mongodb-k8s-svc:27018", k.MemberHost(1))
}

func TestDestroy(t *testing.T) {
	ctx := context.Background()
	k, c := newOrchestrator(t)
	require.NoError(t, k.Deploy(ctx, 3))

	require.NoError(t, k.Destroy(ctx))
	assert.Error(t, c.Get(ctx, types.NamespacedName{Name: "mongodb-k8s", Namespace: "test"}, &mdbv1.MongoDBCommunity{}))
	_, err := k.Password(ctx, MonitorUser)
	assert.Error(t, err)

	assert.NoError(t, k.Destroy(ctx), "destroying twice is harmless")
}
