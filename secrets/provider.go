// Package secrets defines how the tool reads credentials and sensitive
// manifests. Connections manifests live entirely in the secret store,
// namespaced by environment name.
package secrets

import "context"

type Provider interface {
	// GetSecret returns the secret value for name. Unknown names surface a
	// NotFoundError.
	GetSecret(ctx context.Context, name string) (string, error)
}

// ConnectionsSecretName is the store key holding the serialized connections
// manifest for one environment.
func ConnectionsSecretName(environmentName string) string {
	return environmentName + "-connections"
}
