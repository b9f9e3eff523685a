package secret

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

type builder struct {
	data      map[string][]byte
	labels    map[string]string
	name      string
	namespace string
}

func (b *builder) SetName(name string) *builder {
	b.name = name
	return b
}

func (b *builder) SetNamespace(namespace string) *builder {
	b.namespace = namespace
	return b
}

func (b *builder) SetField(key, value string) *builder {
	b.data[key] = []byte(value)
	return b
}

func (b *builder) SetLabels(labels map[string]string) *builder {
	newLabels := make(map[string]string, len(labels))
	for k, v := range labels {
		newLabels[k] = v
	}
	b.labels = newLabels
	return b
}

func (b builder) Build() corev1.Secret {
	return corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      b.name,
			Namespace: b.namespace,
			Labels:    b.labels,
		},
		Data: b.data,
		Type: corev1.SecretTypeOpaque,
	}
}

func Builder() *builder {
	return &builder{
		labels: map[string]string{},
		data:   map[string][]byte{},
	}
}
