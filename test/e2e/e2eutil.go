package e2eutil

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"go.uber.org/zap"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	apimachinerywait "k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
	"sigs.k8s.io/e2e-framework/klient/k8s"
	"sigs.k8s.io/e2e-framework/klient/k8s/resources"
	"sigs.k8s.io/e2e-framework/klient/wait"
	"sigs.k8s.io/e2e-framework/pkg/env"
	"sigs.k8s.io/e2e-framework/pkg/envconf"
	"sigs.k8s.io/e2e-framework/pkg/envfuncs"
	"sigs.k8s.io/e2e-framework/pkg/features"

	"github.com/mongodb/mongodb-replicaset-verifier/pkg/chaos"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/config"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/helm"
	kubeclient "github.com/mongodb/mongodb-replicaset-verifier/pkg/kube/client"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/orchestrator"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/scenario"
	"github.com/mongodb/mongodb-replicaset-verifier/pkg/util/envvar"
)

const (
	// EnabledEnv must be set to true for the e2e packages to create clusters.
	EnabledEnv = "RSVERIFY_E2E"
	// ImageEnv names the locally built verifier image that is loaded into the kind cluster.
	ImageEnv     = "RSVERIFY_E2E_IMAGE"
	defaultImage = "rsverify:e2e"

	operatorRepo    = "https://mongodb.github.io/helm-charts"
	operatorChart   = "mongodb/community-operator"
	operatorRelease = "community-operator"

	verifierAccount = "rsverify"
	jobTimeout      = 30 * time.Minute
)

func Enabled() bool {
	return envvar.ReadBool(EnabledEnv)
}

func SkipUnlessEnabled(t *testing.T) {
	if !Enabled() {
		t.Skipf("set %s=true to run against a kind cluster", EnabledEnv)
	}
}

// Image is the verifier image the scenario jobs run.
func Image() string {
	return envvar.GetEnvOrDefault(ImageEnv, defaultImage)
}

// NewEnvironment returns an environment with its own kind cluster and namespace, running the
// community operator and chaos-mesh. Everything is deleted when the package's tests finish.
//
// Member host names only resolve inside the cluster, so the scenarios run there as Jobs of
// the verifier image rather than from the test process.
func NewEnvironment(prefix string) (env.Environment, string) {
	testenv := env.New()
	clusterName := envconf.RandomName(prefix+"-cluster", 16)
	namespace := envconf.RandomName(prefix, 16)

	testenv.Setup(
		envfuncs.CreateKindCluster(clusterName),
		envfuncs.LoadDockerImageToCluster(clusterName, Image()),
		envfuncs.CreateNamespace(namespace),
		CreateVerifierAccount(namespace),
		InstallOperator(namespace),
		InstallChaosMesh(namespace),
	)
	testenv.Finish(
		envfuncs.DeleteNamespace(namespace),
		envfuncs.DestroyKindCluster(clusterName),
	)
	return testenv, namespace
}

// helmFor runs helm against the cluster of cfg.
func helmFor(cfg *envconf.Config) helm.Helm {
	return helm.New(func(ctx context.Context, args ...string) ([]byte, error) {
		return helm.Exec(ctx, append(args, "--kubeconfig", cfg.KubeconfigFile())...)
	})
}

func InstallOperator(namespace string) env.Func {
	return func(ctx context.Context, cfg *envconf.Config) (context.Context, error) {
		h := helmFor(cfg)
		if err := h.RepoAdd(ctx, "mongodb", operatorRepo); err != nil {
			return ctx, err
		}
		return ctx, h.Install(ctx, operatorChart, "", operatorRelease, namespace, map[string]string{
			"operator.watchNamespace": namespace,
		})
	}
}

func InstallChaosMesh(namespace string) env.Func {
	return func(ctx context.Context, cfg *envconf.Config) (context.Context, error) {
		defaults := config.Defaults()
		mesh := chaos.ChaosMesh{Helm: helmFor(cfg), Chart: defaults.ChaosMeshChart, Version: defaults.ChaosMeshChartVersion}
		return ctx, mesh.Deploy(ctx, namespace)
	}
}

// CreateVerifierAccount creates the ServiceAccount the scenario jobs run as, allowed to do
// everything the verifier does in namespace.
func CreateVerifierAccount(namespace string) env.Func {
	return func(ctx context.Context, cfg *envconf.Config) (context.Context, error) {
		role := &rbacv1.Role{
			ObjectMeta: metav1.ObjectMeta{Name: verifierAccount, Namespace: namespace},
			Rules: []rbacv1.PolicyRule{{
				APIGroups: []string{"mongodbcommunity.mongodb.com"},
				Resources: []string{"mongodbcommunity", "mongodbcommunity/status"},
				Verbs:     []string{"get", "list", "watch", "create", "update", "patch", "delete"},
			}, {
				APIGroups: []string{""},
				Resources: []string{"secrets"},
				Verbs:     []string{"get", "create", "update", "delete"},
			}, {
				APIGroups: []string{""},
				Resources: []string{"pods"},
				Verbs:     []string{"get", "list", "watch", "delete"},
			}, {
				APIGroups: []string{"apps"},
				Resources: []string{"statefulsets"},
				Verbs:     []string{"get", "list", "watch"},
			}, {
				APIGroups: []string{"chaos-mesh.org"},
				Resources: []string{"networkchaos"},
				Verbs:     []string{"get", "list", "watch", "create", "delete"},
			}},
		}
		account := &corev1.ServiceAccount{
			ObjectMeta: metav1.ObjectMeta{Name: verifierAccount, Namespace: namespace},
		}
		binding := &rbacv1.RoleBinding{
			ObjectMeta: metav1.ObjectMeta{Name: verifierAccount, Namespace: namespace},
			Subjects: []rbacv1.Subject{{
				Kind:      rbacv1.ServiceAccountKind,
				Name:      verifierAccount,
				Namespace: namespace,
			}},
			RoleRef: rbacv1.RoleRef{
				APIGroup: rbacv1.GroupName,
				Kind:     "Role",
				Name:     verifierAccount,
			},
		}
		r := cfg.Client().Resources(namespace)
		for _, obj := range []k8s.Object{role, account, binding} {
			if err := r.Create(ctx, obj); err != nil {
				return ctx, err
			}
		}
		return ctx, nil
	}
}

// ScenarioJob is the Job that runs the named scenarios from inside the cluster.
func ScenarioJob(name, namespace string, scenarios ...string) *batchv1.Job {
	var backoffLimit int32
	podLabels := map[string]string{"app": verifierAccount, "job": name}
	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Spec: batchv1.JobSpec{
			BackoffLimit: &backoffLimit,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: podLabels},
				Spec: corev1.PodSpec{
					ServiceAccountName: verifierAccount,
					RestartPolicy:      corev1.RestartPolicyNever,
					Containers: []corev1.Container{{
						Name:            verifierAccount,
						Image:           Image(),
						ImagePullPolicy: corev1.PullNever,
						Args:            append([]string{"run"}, scenarios...),
						Env: []corev1.EnvVar{
							{Name: config.EnvPrefix + "IN_CLUSTER", Value: "true"},
							{Name: config.EnvPrefix + "NAMESPACE", Value: namespace},
						},
					}},
				},
			},
		},
	}
}

// Scenarios runs the named scenarios in order in a Job and fails the test with the job's
// logs if any step fails.
func Scenarios(namespace string, names ...string) features.Func {
	return func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
		if _, err := scenario.Lookup(names...); err != nil {
			t.Fatal(err)
		}
		r := cfg.Client().Resources(namespace)
		job := ScenarioJob(envconf.RandomName(verifierAccount, 16), namespace, names...)
		if err := r.Create(ctx, job); err != nil {
			t.Fatal(err)
		}
		defer func() {
			if err := r.Delete(ctx, job, resources.WithDeletePropagation(string(metav1.DeletePropagationBackground))); err != nil {
				t.Logf("Could not delete job %s: %s", job.Name, err)
			}
		}()

		var succeeded bool
		if err := wait.For(jobFinished(ctx, r, job, &succeeded), wait.WithTimeout(jobTimeout), wait.WithInterval(5*time.Second)); err != nil {
			t.Fatal(err)
		}
		logs, err := jobLogs(ctx, cfg, r, job)
		if err != nil {
			t.Logf("Could not read the logs of job %s: %s", job.Name, err)
		}
		if !succeeded {
			t.Fatalf("scenarios %v failed:\n%s", names, logs)
		}
		t.Log(logs)
		return ctx
	}
}

func jobFinished(ctx context.Context, r *resources.Resources, job *batchv1.Job, succeeded *bool) apimachinerywait.ConditionFunc {
	return func() (bool, error) {
		if err := r.Get(ctx, job.Name, job.Namespace, job); err != nil {
			return false, err
		}
		for _, cond := range job.Status.Conditions {
			if cond.Status != corev1.ConditionTrue {
				continue
			}
			switch cond.Type {
			case batchv1.JobComplete:
				*succeeded = true
				return true, nil
			case batchv1.JobFailed:
				*succeeded = false
				return true, nil
			}
		}
		return false, nil
	}
}

func jobLogs(ctx context.Context, cfg *envconf.Config, r *resources.Resources, job *batchv1.Job) (string, error) {
	pods := corev1.PodList{}
	selector := labels.Set(job.Spec.Template.Labels).String()
	if err := r.List(ctx, &pods, resources.WithLabelSelector(selector)); err != nil {
		return "", err
	}
	clientset, err := kubernetes.NewForConfig(cfg.Client().RESTConfig())
	if err != nil {
		return "", err
	}
	var contents bytes.Buffer
	for _, p := range pods.Items {
		stream, err := clientset.CoreV1().Pods(p.Namespace).GetLogs(p.Name, &corev1.PodLogOptions{}).Stream(ctx)
		if err != nil {
			return contents.String(), err
		}
		_, err = io.Copy(&contents, stream)
		_ = stream.Close()
		if err != nil {
			return contents.String(), err
		}
	}
	return contents.String(), nil
}

// Destroy removes the replica set deployed by the scenarios. Only the Kubernetes API is
// needed for that, so it runs from the test process.
func Destroy(namespace string) features.Func {
	return func(ctx context.Context, t *testing.T, cfg *envconf.Config) context.Context {
		verifierCfg := config.Defaults()
		verifierCfg.Namespace = namespace

		client, err := kubeclient.New(cfg.Client().RESTConfig())
		if err != nil {
			t.Fatal(err)
		}
		if err := orchestrator.NewKubernetes(client, verifierCfg, zap.NewExample().Sugar()).Destroy(ctx); err != nil {
			t.Error(err)
		}
		return ctx
	}
}
