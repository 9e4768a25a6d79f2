// Package compose renders the deployment descriptor for a tenant's Mautic
// stack: a MySQL service, the Mautic application service, an internal overlay
// network plus the shared ingress network, and two named volumes. Rendering
// is deterministic so repeated renders of the same configuration are
// byte-identical.
package compose

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mautichost/provisiond/internal/naming"
)

// StackConfig carries the fully-resolved parameters for one tenant stack.
type StackConfig struct {
	StackName      string
	Domain         string
	DBName         string
	DBUser         string
	DBPassword     string
	DBRootPassword string
	MauticVersion  string
	TraefikNetwork string
	CertResolver   string
}

type stackFile struct {
	Version  string             `yaml:"version"`
	Services map[string]service `yaml:"services"`
	Networks map[string]network `yaml:"networks"`
	Volumes  map[string]volume  `yaml:"volumes"`
}

type service struct {
	Image       string            `yaml:"image"`
	DependsOn   []string          `yaml:"depends_on,omitempty"`
	Environment map[string]string `yaml:"environment"`
	Volumes     []string          `yaml:"volumes"`
	Networks    []string          `yaml:"networks"`
	Deploy      deploy            `yaml:"deploy"`
}

type deploy struct {
	Labels        map[string]string `yaml:"labels,omitempty"`
	Placement     placement         `yaml:"placement"`
	RestartPolicy restartPolicy     `yaml:"restart_policy"`
}

type placement struct {
	Constraints []string `yaml:"constraints"`
}

type restartPolicy struct {
	Condition   string `yaml:"condition"`
	Delay       string `yaml:"delay"`
	MaxAttempts int    `yaml:"max_attempts"`
}

type network struct {
	Driver   string `yaml:"driver,omitempty"`
	External bool   `yaml:"external,omitempty"`
}

type volume struct{}

// Databases and the app run on worker capacity only; managers are reserved
// for the control plane.
var workerPlacement = placement{
	Constraints: []string{"node.role == worker"},
}

var onFailureRestart = restartPolicy{
	Condition:   "on-failure",
	Delay:       "5s",
	MaxAttempts: 3,
}

// Render serializes the stack descriptor for the given configuration.
// Every identifier embedded in routing labels, networks and volumes reuses
// the sanitized stack name, so descriptors for different tenants never
// collide. Map keys are emitted in sorted order by the YAML encoder, which
// keeps the output stable across renders.
func Render(cfg StackConfig) (string, error) {
	stack := naming.SanitizeStackName(cfg.StackName)

	dbDataVolume := stack + "_db_data"
	mauticDataVolume := stack + "_mautic_data"

	file := stackFile{
		Version: "3.8",
		Services: map[string]service{
			"db": {
				Image: "mysql:8",
				Environment: map[string]string{
					"MYSQL_ROOT_PASSWORD": cfg.DBRootPassword,
					"MYSQL_DATABASE":      cfg.DBName,
					"MYSQL_USER":          cfg.DBUser,
					"MYSQL_PASSWORD":      cfg.DBPassword,
				},
				Volumes:  []string{dbDataVolume + ":/var/lib/mysql"},
				Networks: []string{"internal"},
				Deploy: deploy{
					Placement:     workerPlacement,
					RestartPolicy: onFailureRestart,
				},
			},
			"mautic": {
				Image:     fmt.Sprintf("mautic/mautic:%s-apache", cfg.MauticVersion),
				DependsOn: []string{"db"},
				Environment: map[string]string{
					"MAUTIC_DB_HOST":         "db",
					"MAUTIC_DB_NAME":         cfg.DBName,
					"MAUTIC_DB_USER":         cfg.DBUser,
					"MAUTIC_DB_PASSWORD":     cfg.DBPassword,
					"MAUTIC_RUN_CRON_JOBS":   "true",
					"MAUTIC_TRUSTED_PROXIES": "0.0.0.0/0",
					"MAUTIC_URL":             "https://" + cfg.Domain,
				},
				Volumes:  []string{mauticDataVolume + ":/var/www/html"},
				Networks: []string{"internal", cfg.TraefikNetwork},
				Deploy: deploy{
					Labels:        routingLabels(stack, cfg),
					Placement:     workerPlacement,
					RestartPolicy: onFailureRestart,
				},
			},
		},
		Networks: map[string]network{
			"internal":         {Driver: "overlay"},
			cfg.TraefikNetwork: {External: true},
		},
		Volumes: map[string]volume{
			dbDataVolume:     {},
			mauticDataVolume: {},
		},
	}

	out, err := yaml.Marshal(file)
	if err != nil {
		return "", fmt.Errorf("marshalling stack descriptor: %w", err)
	}
	return string(out), nil
}

// routingLabels builds the Traefik annotations: enable ingress, bind the
// service to the shared ingress network, route the tenant's hostname over
// the TLS entry point and select the certificate resolver.
func routingLabels(stack string, cfg StackConfig) map[string]string {
	return map[string]string{
		"traefik.enable":         "true",
		"traefik.docker.network": cfg.TraefikNetwork,
		fmt.Sprintf("traefik.http.routers.%s.rule", stack):                      fmt.Sprintf("Host(`%s`)", cfg.Domain),
		fmt.Sprintf("traefik.http.routers.%s.entrypoints", stack):               "websecure",
		fmt.Sprintf("traefik.http.routers.%s.tls", stack):                       "true",
		fmt.Sprintf("traefik.http.routers.%s.tls.certresolver", stack):          cfg.CertResolver,
		fmt.Sprintf("traefik.http.services.%s.loadbalancer.server.port", stack): "80",
	}
}

// DefaultMauticVersion is the version deployed when a request does not pin one.
const DefaultMauticVersion = "5.2.4"

// AvailableMauticVersions lists the versions the panel offers, newest first.
func AvailableMauticVersions() []string {
	return []string{"5.2.4", "5.2.3", "5.2.2", "5.2.1", "5.2.0", "5.1.1", "5.1.0"}
}
