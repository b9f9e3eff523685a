package chaos

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	k8sClient "sigs.k8s.io/controller-runtime/pkg/client"

	chaosv1alpha1 "github.com/mongodb/mongodb-replicaset-verifier/api/v1alpha1"
	kubeclient "github.com/mongodb/mongodb-replicaset-verifier/pkg/kube/client"
)

const managedByLabel = "app.kubernetes.io/managed-by"

// NetworkChaosInjector partitions a pod from every other pod of its namespace with a
// chaos-mesh NetworkChaos. Isolate returns once chaos-mesh reports the partition injected.
type NetworkChaosInjector struct {
	client    kubeclient.Client
	namespace string
	interval  time.Duration
	timeout   time.Duration
	log       *zap.SugaredLogger

	mu      sync.Mutex
	applied []types.NamespacedName
}

func NewNetworkChaosInjector(client kubeclient.Client, namespace string, interval, timeout time.Duration, log *zap.SugaredLogger) *NetworkChaosInjector {
	return &NetworkChaosInjector{client: client, namespace: namespace, interval: interval, timeout: timeout, log: log}
}

// PartitionFor builds the NetworkChaos that cuts unit off in both directions.
func PartitionFor(namespace, unit string) chaosv1alpha1.NetworkChaos {
	return chaosv1alpha1.NetworkChaos{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "network-partition-" + unit,
			Namespace: namespace,
			Labels:    map[string]string{managedByLabel: "rsverify"},
		},
		Spec: chaosv1alpha1.NetworkChaosSpec{
			Action: chaosv1alpha1.PartitionAction,
			PodSelector: chaosv1alpha1.PodSelector{
				Mode: chaosv1alpha1.OneMode,
				Selector: chaosv1alpha1.PodSelectorSpec{
					Pods: map[string][]string{namespace: {unit}},
				},
			},
			Direction: chaosv1alpha1.Both,
			Target: &chaosv1alpha1.PodSelector{
				Mode: chaosv1alpha1.AllMode,
				Selector: chaosv1alpha1.PodSelectorSpec{
					Namespaces: []string{namespace},
				},
			},
		},
	}
}

func (n *NetworkChaosInjector) Isolate(ctx context.Context, target Target) error {
	partition := PartitionFor(n.namespace, target.Unit)
	if err := n.client.Create(ctx, &partition); err != nil {
		return errors.Wrapf(err, "could not create NetworkChaos %s", partition.Name)
	}
	nsName := types.NamespacedName{Name: partition.Name, Namespace: partition.Namespace}
	n.mu.Lock()
	n.applied = append(n.applied, nsName)
	n.mu.Unlock()
	n.log.Debugf("Created NetworkChaos %s", partition.Name)

	if err := n.client.WaitForCondition(ctx, nsName, n.interval, n.timeout, &partition, func() bool {
		return partition.Status.AllInjected()
	}); err != nil {
		return errors.Wrapf(err, "NetworkChaos %s was not injected within %s", partition.Name, n.timeout)
	}
	n.log.Infof("Partitioned %s from the rest of %s", target.Unit, n.namespace)
	return nil
}

// Restore deletes every NetworkChaos this injector created. Already deleted ones are skipped.
func (n *NetworkChaosInjector) Restore(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var result *multierror.Error
	var remaining []types.NamespacedName
	for _, nsName := range n.applied {
		partition := chaosv1alpha1.NetworkChaos{ObjectMeta: metav1.ObjectMeta{Name: nsName.Name, Namespace: nsName.Namespace}}
		if err := n.client.Delete(ctx, &partition); k8sClient.IgnoreNotFound(err) != nil {
			result = multierror.Append(result, errors.Wrapf(err, "could not delete NetworkChaos %s", nsName.Name))
			remaining = append(remaining, nsName)
			continue
		}
		n.log.Debugf("Deleted NetworkChaos %s", nsName.Name)
	}
	n.applied = remaining
	return result.ErrorOrNil()
}
