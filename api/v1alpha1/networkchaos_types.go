package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

type NetworkChaosAction string

const (
	PartitionAction NetworkChaosAction = "partition"
	LossAction      NetworkChaosAction = "loss"
	DelayAction     NetworkChaosAction = "delay"
)

type SelectorMode string

const (
	OneMode SelectorMode = "one"
	AllMode SelectorMode = "all"
)

type Direction string

const (
	To   Direction = "to"
	From Direction = "from"
	Both Direction = "both"
)

// PodSelectorSpec picks pods by namespace, labels or explicit names.
type PodSelectorSpec struct {
	// +optional
	Namespaces []string `json:"namespaces,omitempty"`
	// +optional
	LabelSelectors map[string]string `json:"labelSelectors,omitempty"`
	// Pods maps a namespace to the names of pods in it.
	// +optional
	Pods map[string][]string `json:"pods,omitempty"`
}

type PodSelector struct {
	Selector PodSelectorSpec `json:"selector"`
	Mode     SelectorMode    `json:"mode"`
	// +optional
	Value string `json:"value,omitempty"`
}

// NetworkChaosSpec is the part of chaos-mesh's NetworkChaos that the verifier sets.
type NetworkChaosSpec struct {
	PodSelector `json:",inline"`

	Action NetworkChaosAction `json:"action"`

	// +optional
	Direction Direction `json:"direction,omitempty"`

	// Target is the other side of the partition.
	// +optional
	Target *PodSelector `json:"target,omitempty"`

	// Duration is left empty so that the chaos stays until deleted.
	// +optional
	Duration *string `json:"duration,omitempty"`
}

type ChaosCondition struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	// +optional
	Reason string `json:"reason,omitempty"`
}

type NetworkChaosStatus struct {
	// +optional
	Conditions []ChaosCondition `json:"conditions,omitempty"`
}

// AllInjected reports whether chaos-mesh has marked the chaos as applied to every selected pod.
func (s NetworkChaosStatus) AllInjected() bool {
	for _, c := range s.Conditions {
		if c.Type == "AllInjected" {
			return c.Status == "True"
		}
	}
	return false
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status

// NetworkChaos is the Schema for chaos-mesh's networkchaos API
type NetworkChaos struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   NetworkChaosSpec   `json:"spec"`
	Status NetworkChaosStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// NetworkChaosList contains a list of NetworkChaos
type NetworkChaosList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []NetworkChaos `json:"items"`
}

func init() {
	SchemeBuilder.Register(&NetworkChaos{}, &NetworkChaosList{})
}
