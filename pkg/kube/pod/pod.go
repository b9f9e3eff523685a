package pod

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	k8sClient "sigs.k8s.io/controller-runtime/pkg/client"
)

// List returns the pods in namespace matching labels, ordered by their StatefulSet ordinal.
// Pods whose name carries no ordinal sort last.
func List(ctx context.Context, c k8sClient.Reader, namespace string, labels map[string]string) ([]corev1.Pod, error) {
	pods := corev1.PodList{}
	if err := c.List(ctx, &pods, k8sClient.InNamespace(namespace), k8sClient.MatchingLabels(labels)); err != nil {
		return nil, errors.Wrapf(err, "could not list pods in %s", namespace)
	}
	items := pods.Items
	sort.SliceStable(items, func(i, j int) bool {
		return ordinalOrMax(items[i]) < ordinalOrMax(items[j])
	})
	return items, nil
}

// Ordinal returns the StatefulSet ordinal encoded in the pod name: mongodb-k8s-2 has ordinal 2.
func Ordinal(pod corev1.Pod) (int, error) {
	idx := strings.LastIndex(pod.Name, "-")
	if idx < 0 || idx == len(pod.Name)-1 {
		return 0, fmt.Errorf("pod %s has no ordinal", pod.Name)
	}
	ordinal, err := strconv.Atoi(pod.Name[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("pod %s has no ordinal: %w", pod.Name, err)
	}
	return ordinal, nil
}

func ordinalOrMax(pod corev1.Pod) int {
	ordinal, err := Ordinal(pod)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return ordinal
}

// IsReady returns true when the pod is running, not being deleted and its Ready condition is true.
func IsReady(pod corev1.Pod) bool {
	if pod.DeletionTimestamp != nil || pod.Status.Phase != corev1.PodRunning {
		return false
	}
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

// CountReady returns the number of pods for which IsReady holds.
func CountReady(pods []corev1.Pod) int {
	ready := 0
	for _, p := range pods {
		if IsReady(p) {
			ready++
		}
	}
	return ready
}

// Delete removes the pod immediately. A pod that is already gone is not an error.
func Delete(ctx context.Context, c k8sClient.Writer, namespacedName types.NamespacedName) error {
	p := corev1.Pod{}
	p.Name = namespacedName.Name
	p.Namespace = namespacedName.Namespace
	if err := c.Delete(ctx, &p, k8sClient.GracePeriodSeconds(0)); err != nil {
		return k8sClient.IgnoreNotFound(err)
	}
	return nil
}
