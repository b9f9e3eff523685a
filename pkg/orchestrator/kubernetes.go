package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/wait"
	k8sClient "sigs.k8s.io/controller-runtime/pkg/client"

	mdbv1 "github.com/mongodb/mongodb-replicaset-verifier/api/v1"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/config"
	kubeclient "github.com/mongodb/mongodb-replicaset-verifier/pkg/kube/client"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/kube/pod"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/kube/secret"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/kube/statefulset"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/util/generate"
)

const (
	OperatorUser   = "operator"
	MonitorUser    = "monitor"
	PrometheusUser = "prometheus"

	passwordKey = "password"
)

// Kubernetes drives a MongoDBCommunity resource that the community operator reconciles
// into a StatefulSet of mongod pods.
type Kubernetes struct {
	client kubeclient.Client
	cfg    config.Config
	log    *zap.SugaredLogger
}

func NewKubernetes(client kubeclient.Client, cfg config.Config, log *zap.SugaredLogger) Kubernetes {
	return Kubernetes{client: client, cfg: cfg, log: log}
}

// resource returns the MongoDBCommunity as the verifier wants it with the given member count.
func (k Kubernetes) resource(members int) mdbv1.MongoDBCommunity {
	return mdbv1.MongoDBCommunity{
		ObjectMeta: metav1.ObjectMeta{
			Name:      k.cfg.App,
			Namespace: k.cfg.Namespace,
		},
		Spec: mdbv1.MongoDBCommunitySpec{
			Members: members,
			Type:    mdbv1.ReplicaSet,
			Version: k.cfg.MongoDBVersion,
			Security: mdbv1.Security{
				Authentication: mdbv1.Authentication{
					Modes: []mdbv1.AuthMode{"SCRAM"},
				},
			},
			Users: []mdbv1.MongoDBUser{
				k.user(OperatorUser, []mdbv1.Role{
					{DB: "admin", Name: "root"},
				}),
				k.user(MonitorUser, []mdbv1.Role{
					{DB: "admin", Name: "clusterMonitor"},
					{DB: "local", Name: "read"},
				}),
			},
			Prometheus: &mdbv1.Prometheus{
				Port:     k.cfg.ExporterPort,
				Username: PrometheusUser,
				PasswordSecretRef: mdbv1.SecretKeyReference{
					Name: k.passwordSecretName(PrometheusUser),
					Key:  passwordKey,
				},
				MetricsPath: k.cfg.MetricsPath,
			},
		},
	}
}

func (k Kubernetes) user(name string, roles []mdbv1.Role) mdbv1.MongoDBUser {
	return mdbv1.MongoDBUser{
		Name: name,
		DB:   "admin",
		PasswordSecretRef: mdbv1.SecretKeyReference{
			Name: k.passwordSecretName(name),
			Key:  passwordKey,
		},
		Roles:                      roles,
		ScramCredentialsSecretName: fmt.Sprintf("%s-%s", k.cfg.App, name),
	}
}

func (k Kubernetes) passwordSecretName(user string) string {
	return fmt.Sprintf("%s-%s-password", k.cfg.App, user)
}

// passwordRef returns where the resource tells the operator to find the password of user.
func (k Kubernetes) passwordRef(user string) (types.NamespacedName, string) {
	if user == PrometheusUser {
		p := k.resource(0).Spec.Prometheus
		return types.NamespacedName{Name: p.PasswordSecretRef.Name, Namespace: k.cfg.Namespace}, p.GetPasswordKey()
	}
	u := k.user(user, nil)
	return types.NamespacedName{Name: u.PasswordSecretRef.Name, Namespace: k.cfg.Namespace}, u.GetPasswordSecretKey()
}

func (k Kubernetes) nsName() types.NamespacedName {
	return types.NamespacedName{Name: k.cfg.App, Namespace: k.cfg.Namespace}
}

// Deploy makes sure every user has a password Secret and creates or updates the MongoDBCommunity.
func (k Kubernetes) Deploy(ctx context.Context, units int) error {
	if units < 1 {
		return errors.Errorf("cannot deploy %d units", units)
	}
	for _, user := range []string{OperatorUser, MonitorUser, PrometheusUser} {
		password, err := generate.Password()
		if err != nil {
			return errors.Wrap(err, "could not generate password")
		}
		nsName, key := k.passwordRef(user)
		s := secret.Builder().
			SetName(nsName.Name).
			SetNamespace(nsName.Namespace).
			SetLabels(map[string]string{"app.kubernetes.io/managed-by": "rsverify"}).
			SetField(key, password).
			Build()
		if err := secret.EnsureKey(ctx, k.client, s, key); err != nil {
			return errors.Wrapf(err, "could not create password secret for %s", user)
		}
	}

	mdb := k.resource(units)
	if err := k.client.CreateOrUpdate(ctx, &mdb); err != nil {
		return errors.Wrapf(err, "could not create MongoDBCommunity %s", mdb.NamespacedName())
	}
	k.log.Infof("Requested %s with %d members", mdb.NamespacedName(), units)
	return nil
}

// Scale changes spec.members by delta and returns the new member count.
func (k Kubernetes) Scale(ctx context.Context, delta int) (int, error) {
	mdb := mdbv1.MongoDBCommunity{}
	target := 0
	var invalid error
	err := k.client.UpdateLatest(ctx, k.nsName(), &mdb, func() {
		target = mdb.Spec.Members + delta
		if target < 1 {
			invalid = errors.Errorf("cannot scale %d members by %d", mdb.Spec.Members, delta)
			target = mdb.Spec.Members
		}
		mdb.Spec.Members = target
	})
	if err != nil {
		return 0, errors.Wrapf(err, "could not scale %s", k.nsName())
	}
	if invalid != nil {
		return 0, invalid
	}
	k.log.Infof("Requested %d members for %s", target, k.nsName())
	return target, nil
}

// WaitForActive waits until the operator reports the resource Running with exactly units members,
// the StatefulSet has rolled out exactly units replicas and exactly units pods are Ready.
// A non-positive timeout means the deploy timeout.
func (k Kubernetes) WaitForActive(ctx context.Context, units int, timeout time.Duration) error {
	interval := k.cfg.PollInterval.Duration
	if timeout <= 0 {
		timeout = k.cfg.DeployTimeout.Duration
	}
	var reason string
	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		ready, why, err := k.isActive(ctx, units)
		if err != nil {
			return false, err
		}
		if !ready && why != reason {
			k.log.Infof("Waiting for %d active units: %s", units, why)
		}
		reason = why
		return ready, nil
	})
	if err != nil {
		return errors.Wrapf(err, "%s did not reach %d active units (%s)", k.nsName(), units, reason)
	}
	k.log.Infof("%s has %d active units", k.nsName(), units)
	return nil
}

func (k Kubernetes) isActive(ctx context.Context, units int) (bool, string, error) {
	mdb := mdbv1.MongoDBCommunity{}
	if err := k.client.Get(ctx, k.nsName(), &mdb); err != nil {
		if k8sClient.IgnoreNotFound(err) == nil {
			return false, "resource does not exist yet", nil
		}
		return false, "", err
	}
	if !mdb.IsRunningWith(units) {
		return false, fmt.Sprintf("resource is %q with %d members", mdb.Status.Phase, mdb.Status.CurrentMongoDBMembers), nil
	}

	sts, err := statefulset.NewClient(k.client).Get(ctx, k.nsName())
	if err != nil {
		if k8sClient.IgnoreNotFound(err) == nil {
			return false, "statefulset does not exist yet", nil
		}
		return false, "", err
	}
	if !statefulset.IsReady(sts, units) {
		return false, fmt.Sprintf("statefulset has %d/%d ready replicas", sts.Status.ReadyReplicas, units), nil
	}

	pods, err := pod.List(ctx, k.client, k.cfg.Namespace, mdb.PodLabels())
	if err != nil {
		return false, "", err
	}
	if len(pods) != units || pod.CountReady(pods) != units {
		return false, fmt.Sprintf("%d of %d pods are ready", pod.CountReady(pods), len(pods)), nil
	}
	return true, "", nil
}

func (k Kubernetes) Units(ctx context.Context) ([]Unit, error) {
	mdb := k.resource(0)
	pods, err := pod.List(ctx, k.client, k.cfg.Namespace, mdb.PodLabels())
	if err != nil {
		return nil, err
	}
	units := make([]Unit, 0, len(pods))
	for _, p := range pods {
		ordinal, err := pod.Ordinal(p)
		if err != nil {
			k.log.Warnf("Ignoring pod %s: %s", p.Name, err)
			continue
		}
		units = append(units, k.unitFromPod(p, ordinal))
	}
	return units, nil
}

func (k Kubernetes) unitFromPod(p corev1.Pod, ordinal int) Unit {
	return Unit{
		Name:    p.Name,
		Ordinal: ordinal,
		Address: p.Status.PodIP,
		Host:    k.MemberHost(ordinal),
		Active:  pod.IsReady(p),
		Phase:   string(p.Status.Phase),
	}
}

// DeleteUnit deletes the pod immediately; the StatefulSet recreates it.
func (k Kubernetes) DeleteUnit(ctx context.Context, name string) error {
	k.log.Infof("Deleting unit %s", name)
	return errors.Wrapf(pod.Delete(ctx, k.client, types.NamespacedName{Name: name, Namespace: k.cfg.Namespace}), "could not delete unit %s", name)
}

func (k Kubernetes) MemberHost(ordinal int) string {
	mdb := k.resource(0)
	if k.cfg.HostForm == config.ShortHosts {
		return mdb.ShortMemberHost(ordinal, k.cfg.Port)
	}
	return mdb.MemberHost(ordinal, k.cfg.ClusterDomain, k.cfg.Port)
}

func (k Kubernetes) ReplicaSetName() string {
	return k.cfg.App
}

// Password reads the password of user from its Secret.
func (k Kubernetes) Password(ctx context.Context, user string) (string, error) {
	nsName, key := k.passwordRef(user)
	password, err := secret.ReadKey(ctx, k.client, key, nsName)
	if err != nil {
		return "", errors.Wrapf(err, "could not read the password of %s", user)
	}
	return password, nil
}

// Destroy deletes the MongoDBCommunity and the password Secrets. Missing objects are ignored.
func (k Kubernetes) Destroy(ctx context.Context) error {
	var result *multierror.Error
	mdb := k.resource(0)
	if err := k.client.Delete(ctx, &mdb); k8sClient.IgnoreNotFound(err) != nil {
		result = multierror.Append(result, errors.Wrapf(err, "could not delete %s", mdb.NamespacedName()))
	}
	for _, user := range []string{OperatorUser, MonitorUser, PrometheusUser} {
		s := corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: k.passwordSecretName(user), Namespace: k.cfg.Namespace}}
		if err := k.client.Delete(ctx, &s); k8sClient.IgnoreNotFound(err) != nil {
			result = multierror.Append(result, errors.Wrapf(err, "could not delete secret %s", s.Name))
		}
	}
	k.log.Infof("Destroyed %s", mdb.NamespacedName())
	return result.ErrorOrNil()
}
