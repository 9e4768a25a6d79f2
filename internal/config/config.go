// Package config loads process configuration from the environment once at
// startup. The resulting struct is passed explicitly into constructors so
// tests can inject fake configuration instead of reaching for globals.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Spec is the environment configuration consumed by the service.
type Spec struct {
	Port         string `envconfig:"PORT" default:"8080"`
	DatabasePath string `envconfig:"DATABASE_PATH" default:"provisiond.db"`

	PortainerURL        string `envconfig:"PORTAINER_URL" required:"true"`
	PortainerAPIToken   string `envconfig:"PORTAINER_API_TOKEN" required:"true"`
	PortainerEndpointID string `envconfig:"PORTAINER_ENDPOINT_ID" default:"1"`
	PortainerSwarmID    string `envconfig:"PORTAINER_SWARM_ID" default:"swarm-cluster"`

	TraefikNetwork string `envconfig:"TRAEFIK_NETWORK_NAME" default:"traefik-public"`
	CertResolver   string `envconfig:"TRAEFIK_TLS_RESOLVER_NAME" default:"letsencrypt"`

	DefaultMauticVersion string `envconfig:"DEFAULT_MAUTIC_VERSION" default:"5.2.4"`
}

// Load reads the spec from the environment.
func Load() (Spec, error) {
	var spec Spec
	if err := envconfig.Process("", &spec); err != nil {
		return Spec{}, fmt.Errorf("loading configuration: %w", err)
	}
	return spec, nil
}
