package secret

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apiErrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

func ReadKey(ctx context.Context, getter client.Reader, key string, objectKey client.ObjectKey) (string, error) {
	data, err := ReadStringData(ctx, getter, objectKey)
	if err != nil {
		return "", err
	}
	if val, ok := data[key]; ok {
		return val, nil
	}
	return "", fmt.Errorf("key \"%s\" not present in the Secret %s/%s", key, objectKey.Namespace, objectKey.Name)
}

// ReadStringData reads the Data field of the secret with the given objectKey as strings
func ReadStringData(ctx context.Context, getter client.Reader, key client.ObjectKey) (map[string]string, error) {
	secret := corev1.Secret{}
	if err := getter.Get(ctx, key, &secret); err != nil {
		return nil, err
	}

	stringData := make(map[string]string)
	for k, v := range secret.Data {
		stringData[k] = string(v)
	}
	return stringData, nil
}

// EnsureKey creates the Secret when it doesn't exist. An existing Secret that already holds the
// key is left alone so that a second deployment reuses the passwords of the first.
func EnsureKey(ctx context.Context, c client.Client, secret corev1.Secret, key string) error {
	existing := corev1.Secret{}
	err := c.Get(ctx, client.ObjectKeyFromObject(&secret), &existing)
	if err != nil {
		if apiErrors.IsNotFound(err) {
			return c.Create(ctx, &secret)
		}
		return err
	}
	if HasAllKeys(existing, key) {
		return nil
	}
	if existing.Data == nil {
		existing.Data = map[string][]byte{}
	}
	existing.Data[key] = secret.Data[key]
	return c.Update(ctx, &existing)
}

// HasAllKeys returns true if the provided secret contains an element for every
// key provided. False if a single element is absent
func HasAllKeys(secret corev1.Secret, keys ...string) bool {
	for _, key := range keys {
		if _, ok := secret.Data[key]; !ok {
			return false
		}
	}
	return true
}
