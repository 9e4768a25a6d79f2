package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/mautichost/provisiond/internal/adapter/fsm"
	"github.com/mautichost/provisiond/internal/adapter/portainer"
	"github.com/mautichost/provisiond/internal/app"
	"github.com/mautichost/provisiond/internal/domain"
)

// --- Mocks ---

type mockTenantRepo struct {
	byID     map[string]domain.Tenant
	bySlug   map[string]domain.Tenant
	byDomain map[string]domain.Tenant
}

func newMockTenantRepo() *mockTenantRepo {
	return &mockTenantRepo{
		byID:     make(map[string]domain.Tenant),
		bySlug:   make(map[string]domain.Tenant),
		byDomain: make(map[string]domain.Tenant),
	}
}

func (m *mockTenantRepo) Create(_ context.Context, t domain.Tenant) error {
	if _, ok := m.bySlug[t.Slug]; ok {
		return &domain.ConflictError{Field: "slug", Value: t.Slug}
	}
	if _, ok := m.byDomain[t.Domain]; ok {
		return &domain.ConflictError{Field: "domain", Value: t.Domain}
	}
	m.store(t)
	return nil
}

func (m *mockTenantRepo) store(t domain.Tenant) {
	m.byID[t.ID] = t
	m.bySlug[t.Slug] = t
	m.byDomain[t.Domain] = t
}

func (m *mockTenantRepo) GetByID(_ context.Context, id string) (domain.Tenant, error) {
	t, ok := m.byID[id]
	if !ok {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}
	return t, nil
}

func (m *mockTenantRepo) GetBySlug(_ context.Context, slug string) (domain.Tenant, error) {
	t, ok := m.bySlug[slug]
	if !ok {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}
	return t, nil
}

func (m *mockTenantRepo) GetByDomain(_ context.Context, dom string) (domain.Tenant, error) {
	t, ok := m.byDomain[dom]
	if !ok {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}
	return t, nil
}

func (m *mockTenantRepo) List(_ context.Context, _ domain.ListFilter) ([]domain.Tenant, error) {
	out := make([]domain.Tenant, 0, len(m.byID))
	for _, t := range m.byID {
		out = append(out, t)
	}
	return out, nil
}

func (m *mockTenantRepo) Update(_ context.Context, t domain.Tenant) error {
	if _, ok := m.byID[t.ID]; !ok {
		return domain.ErrTenantNotFound
	}
	m.store(t)
	return nil
}

type mockEventRepo struct {
	events []domain.TenantEvent
}

func (m *mockEventRepo) Append(_ context.Context, e domain.TenantEvent) error {
	m.events = append(m.events, e)
	return nil
}

func (m *mockEventRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.TenantEvent, error) {
	var out []domain.TenantEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].TenantID == tenantID {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

type mockPublisher struct {
	published []domain.EventType
}

func (m *mockPublisher) Publish(_ context.Context, eventType domain.EventType, _ domain.Tenant, _ string) error {
	m.published = append(m.published, eventType)
	return nil
}

// stubSubmitter succeeds unless err is set, and captures the submission.
type stubSubmitter struct {
	err        error
	name       string
	descriptor string
}

func (s *stubSubmitter) CreateStack(_ context.Context, name, descriptor string) (domain.Stack, error) {
	s.name = name
	s.descriptor = descriptor
	if s.err != nil {
		return domain.Stack{}, s.err
	}
	return domain.Stack{ID: 1, Name: name}, nil
}

func (s *stubSubmitter) GetStack(_ context.Context, _ string) (*domain.Stack, error) {
	return nil, nil
}

func (s *stubSubmitter) DeleteStack(_ context.Context, _ int64) error {
	return nil
}

type fixture struct {
	svc       *app.ProvisioningService
	repo      *mockTenantRepo
	events    *mockEventRepo
	publisher *mockPublisher
	submitter *stubSubmitter
}

func newFixture(submitErr error) *fixture {
	f := &fixture{
		repo:      newMockTenantRepo(),
		events:    &mockEventRepo{},
		publisher: &mockPublisher{},
		submitter: &stubSubmitter{err: submitErr},
	}
	f.svc = app.NewProvisioningService(f.repo, f.events, f.publisher, fsm.New(), f.submitter, app.Config{
		TraefikNetwork:       "traefik-public",
		CertResolver:         "letsencrypt",
		DefaultMauticVersion: "5.2.4",
	})
	return f
}

// --- Tests ---

func TestProvision_Success(t *testing.T) {
	f := newFixture(nil)

	tenant, err := f.svc.Provision(context.Background(), app.ProvisionRequest{
		Name:   "Acme Corp",
		Domain: "mautic-acme.example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tenant.Slug != "acme-corp" {
		t.Errorf("Slug = %q, want %q", tenant.Slug, "acme-corp")
	}
	if tenant.StackName != "mautic-acme-corp" {
		t.Errorf("StackName = %q, want %q", tenant.StackName, "mautic-acme-corp")
	}
	if tenant.DBName != "mautic_acme_corp" {
		t.Errorf("DBName = %q, want %q", tenant.DBName, "mautic_acme_corp")
	}
	if tenant.Status != domain.StatusActive {
		t.Errorf("Status = %q, want %q", tenant.Status, domain.StatusActive)
	}
	if tenant.MauticVersion != "5.2.4" {
		t.Errorf("MauticVersion = %q, want the configured default", tenant.MauticVersion)
	}
	if len(tenant.DBPassword) != 32 {
		t.Errorf("DBPassword length = %d, want 32", len(tenant.DBPassword))
	}

	// The stack was submitted under the derived name with the tenant's domain.
	if f.submitter.name != "mautic-acme-corp" {
		t.Errorf("submitted stack name = %q, want %q", f.submitter.name, "mautic-acme-corp")
	}
	if !strings.Contains(f.submitter.descriptor, "Host(`mautic-acme.example.com`)") {
		t.Errorf("descriptor is missing the tenant's routing rule:\n%s", f.submitter.descriptor)
	}

	// Exactly two audit events, in order.
	if len(f.events.events) != 2 {
		t.Fatalf("got %d events, want 2", len(f.events.events))
	}
	if f.events.events[0].Type != domain.EventTypeProvisionRequested {
		t.Errorf("first event = %q, want %q", f.events.events[0].Type, domain.EventTypeProvisionRequested)
	}
	if f.events.events[1].Type != domain.EventTypeStackCreated {
		t.Errorf("second event = %q, want %q", f.events.events[1].Type, domain.EventTypeStackCreated)
	}

	// The persisted record reached the terminal state.
	stored, err := f.repo.GetByID(context.Background(), tenant.ID)
	if err != nil {
		t.Fatalf("tenant not persisted: %v", err)
	}
	if stored.Status != domain.StatusActive {
		t.Errorf("stored Status = %q, want %q", stored.Status, domain.StatusActive)
	}
}

func TestProvision_RemoteFailure(t *testing.T) {
	f := newFixture(&portainer.APIError{StatusCode: 500, Body: "disk full"})

	tenant, err := f.svc.Provision(context.Background(), app.ProvisionRequest{
		Name:   "Acme Corp",
		Domain: "mautic-acme.example.com",
	})
	if err == nil {
		t.Fatal("expected error, got none")
	}

	var provisionErr *domain.ProvisionError
	if !errors.As(err, &provisionErr) {
		t.Fatalf("error = %v, want ProvisionError", err)
	}

	// The tenant exists in its terminal error state, carrying the cause.
	if tenant.Status != domain.StatusError {
		t.Errorf("Status = %q, want %q", tenant.Status, domain.StatusError)
	}
	if !strings.Contains(tenant.ErrorMessage, "disk full") {
		t.Errorf("ErrorMessage = %q, want it to contain %q", tenant.ErrorMessage, "disk full")
	}

	stored, getErr := f.repo.GetByID(context.Background(), tenant.ID)
	if getErr != nil {
		t.Fatalf("tenant not persisted: %v", getErr)
	}
	if stored.Status != domain.StatusError {
		t.Errorf("stored Status = %q, want %q", stored.Status, domain.StatusError)
	}

	if len(f.events.events) != 2 {
		t.Fatalf("got %d events, want 2", len(f.events.events))
	}
	if f.events.events[0].Type != domain.EventTypeProvisionRequested {
		t.Errorf("first event = %q, want %q", f.events.events[0].Type, domain.EventTypeProvisionRequested)
	}
	if f.events.events[1].Type != domain.EventTypeError {
		t.Errorf("second event = %q, want %q", f.events.events[1].Type, domain.EventTypeError)
	}
	if !strings.Contains(f.events.events[1].Message, "disk full") {
		t.Errorf("error event message = %q, want it to carry the cause", f.events.events[1].Message)
	}
}

func TestProvision_InvalidDomain(t *testing.T) {
	f := newFixture(nil)

	_, err := f.svc.Provision(context.Background(), app.ProvisionRequest{
		Name:   "Acme Corp",
		Domain: "bad domain!",
	})

	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}

	// Nothing was persisted and no events were emitted.
	if len(f.repo.byID) != 0 {
		t.Errorf("got %d tenants, want 0", len(f.repo.byID))
	}
	if len(f.events.events) != 0 {
		t.Errorf("got %d events, want 0", len(f.events.events))
	}
	if f.submitter.name != "" {
		t.Error("stack submission should not have been attempted")
	}
}

func TestProvision_MissingFields(t *testing.T) {
	f := newFixture(nil)

	if _, err := f.svc.Provision(context.Background(), app.ProvisionRequest{Domain: "a.example.com"}); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := f.svc.Provision(context.Background(), app.ProvisionRequest{Name: "Acme"}); err == nil {
		t.Error("expected error for missing domain")
	}
	if _, err := f.svc.Provision(context.Background(), app.ProvisionRequest{Name: "!!!", Domain: "a.example.com"}); err == nil {
		t.Error("expected error for a name with no usable characters")
	}
}

func TestProvision_SlugConflict(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	if _, err := f.svc.Provision(ctx, app.ProvisionRequest{Name: "Acme!", Domain: "one.example.com"}); err != nil {
		t.Fatalf("first provision: %v", err)
	}

	// "Acme?" slugifies to the same "acme".
	_, err := f.svc.Provision(ctx, app.ProvisionRequest{Name: "Acme?", Domain: "two.example.com"})

	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want ConflictError", err)
	}
	if conflict.Field != "slug" {
		t.Errorf("conflict field = %q, want slug", conflict.Field)
	}

	// No duplicate record or duplicate provisioning-requested event.
	if len(f.repo.byID) != 1 {
		t.Errorf("got %d tenants, want 1", len(f.repo.byID))
	}
	if len(f.events.events) != 2 {
		t.Errorf("got %d events, want the 2 from the first provision", len(f.events.events))
	}
}

func TestProvision_DomainConflict(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	if _, err := f.svc.Provision(ctx, app.ProvisionRequest{Name: "First", Domain: "same.example.com"}); err != nil {
		t.Fatalf("first provision: %v", err)
	}

	_, err := f.svc.Provision(ctx, app.ProvisionRequest{Name: "Second", Domain: "same.example.com"})

	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want ConflictError", err)
	}
	if conflict.Field != "domain" {
		t.Errorf("conflict field = %q, want domain", conflict.Field)
	}
}

func TestProvision_ExplicitVersion(t *testing.T) {
	f := newFixture(nil)

	tenant, err := f.svc.Provision(context.Background(), app.ProvisionRequest{
		Name:          "Acme Corp",
		Domain:        "mautic-acme.example.com",
		MauticVersion: "5.1.1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tenant.MauticVersion != "5.1.1" {
		t.Errorf("MauticVersion = %q, want 5.1.1", tenant.MauticVersion)
	}
	if !strings.Contains(f.submitter.descriptor, "mautic/mautic:5.1.1-apache") {
		t.Errorf("descriptor does not pin the requested version:\n%s", f.submitter.descriptor)
	}
}

func TestProvision_IndependentSecrets(t *testing.T) {
	f := newFixture(nil)

	tenant, err := f.svc.Provision(context.Background(), app.ProvisionRequest{
		Name:   "Acme Corp",
		Domain: "mautic-acme.example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The root password is rendered into the descriptor but never stored on
	// the tenant; the user password must appear too, and they must differ.
	var doc struct {
		Services struct {
			DB struct {
				Environment map[string]string `yaml:"environment"`
			} `yaml:"db"`
		} `yaml:"services"`
	}
	if err := yaml.Unmarshal([]byte(f.submitter.descriptor), &doc); err != nil {
		t.Fatalf("parsing descriptor: %v", err)
	}

	env := doc.Services.DB.Environment
	if env["MYSQL_PASSWORD"] != tenant.DBPassword {
		t.Error("descriptor does not carry the tenant's database password")
	}
	if env["MYSQL_ROOT_PASSWORD"] == "" {
		t.Error("descriptor is missing the root password")
	}
	if env["MYSQL_ROOT_PASSWORD"] == tenant.DBPassword {
		t.Error("root password must be independent of the user password")
	}
}

func TestGetByID_WithEvents(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	created, err := f.svc.Provision(ctx, app.ProvisionRequest{Name: "Acme", Domain: "acme.example.com"})
	if err != nil {
		t.Fatalf("provisioning: %v", err)
	}

	tenant, events, err := f.svc.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tenant.ID != created.ID {
		t.Errorf("ID = %q, want %q", tenant.ID, created.ID)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	// Newest first.
	if events[0].Type != domain.EventTypeStackCreated {
		t.Errorf("newest event = %q, want %q", events[0].Type, domain.EventTypeStackCreated)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	f := newFixture(nil)

	if _, _, err := f.svc.GetByID(context.Background(), "missing"); !errors.Is(err, domain.ErrTenantNotFound) {
		t.Errorf("error = %v, want ErrTenantNotFound", err)
	}
}
