package compose_test

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/mautichost/provisiond/internal/compose"
)

func testConfig(stackName, domain string) compose.StackConfig {
	return compose.StackConfig{
		StackName:      stackName,
		Domain:         domain,
		DBName:         "mautic_acme",
		DBUser:         "mautic_acme_user",
		DBPassword:     "user-secret",
		DBRootPassword: "root-secret",
		MauticVersion:  "5.2.4",
		TraefikNetwork: "traefik-public",
		CertResolver:   "letsencrypt",
	}
}

func TestRender_Deterministic(t *testing.T) {
	cfg := testConfig("mautic-acme", "mautic-acme.example.com")

	first, err := compose.Render(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := compose.Render(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Error("two renders of identical input differ")
	}
}

func TestRender_ParsesAsYAML(t *testing.T) {
	out, err := compose.Render(testConfig("mautic-acme", "mautic-acme.example.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("rendered descriptor is not valid YAML: %v", err)
	}

	for _, key := range []string{"version", "services", "networks", "volumes"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("descriptor is missing top-level %q", key)
		}
	}
}

func TestRender_Content(t *testing.T) {
	out, err := compose.Render(testConfig("mautic-acme", "mautic-acme.example.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantFragments := []string{
		"mysql:8",
		"mautic/mautic:5.2.4-apache",
		"MYSQL_ROOT_PASSWORD: root-secret",
		"MYSQL_DATABASE: mautic_acme",
		"MAUTIC_URL: https://mautic-acme.example.com",
		"Host(`mautic-acme.example.com`)",
		"traefik.http.routers.mautic-acme.entrypoints: websecure",
		"traefik.http.routers.mautic-acme.tls.certresolver: letsencrypt",
		"mautic-acme_db_data:/var/lib/mysql",
		"mautic-acme_mautic_data:/var/www/html",
		"node.role == worker",
		"condition: on-failure",
		"external: true",
		"driver: overlay",
	}

	for _, fragment := range wantFragments {
		if !strings.Contains(out, fragment) {
			t.Errorf("descriptor is missing %q\n%s", fragment, out)
		}
	}
}

func TestRender_SanitizesStackName(t *testing.T) {
	out, err := compose.Render(testConfig("Mautic Acme!", "mautic-acme.example.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out, "mautic-acme-_db_data") {
		t.Errorf("stack name was not sanitized for volume names:\n%s", out)
	}
	if strings.Contains(out, "Mautic Acme!") {
		t.Error("unsanitized stack name leaked into the descriptor")
	}
}

func TestRender_TenantsDoNotCollide(t *testing.T) {
	a, err := compose.Render(testConfig("mautic-tenant-a", "a.example.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = compose.Render(testConfig("mautic-tenant-b", "b.example.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Every stack-scoped identifier from b must be absent from a.
	bOnly := []string{
		"mautic-tenant-b_db_data",
		"mautic-tenant-b_mautic_data",
		"traefik.http.routers.mautic-tenant-b.",
		"traefik.http.services.mautic-tenant-b.",
		"Host(`b.example.com`)",
	}
	for _, id := range bOnly {
		if strings.Contains(a, id) {
			t.Errorf("tenant a's descriptor contains tenant b's identifier %q", id)
		}
	}
}

func TestAvailableMauticVersions(t *testing.T) {
	versions := compose.AvailableMauticVersions()
	if len(versions) == 0 {
		t.Fatal("no versions available")
	}
	if versions[0] != compose.DefaultMauticVersion {
		t.Errorf("newest version = %q, want default %q", versions[0], compose.DefaultMauticVersion)
	}
}
