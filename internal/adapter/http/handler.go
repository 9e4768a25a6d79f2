package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mautichost/provisiond/internal/app"
	"github.com/mautichost/provisiond/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// TenantResponse is the API representation of a tenant. Database
// credentials are never exposed.
type TenantResponse struct {
	ID            string `json:"id" doc:"Unique identifier"`
	Name          string `json:"name" doc:"Display name"`
	Slug          string `json:"slug" doc:"Canonical identifier derived from the name"`
	Domain        string `json:"domain" doc:"Ingress hostname"`
	StackName     string `json:"stack_name" doc:"Deployment stack name"`
	DBName        string `json:"db_name" doc:"Tenant database name"`
	DBUser        string `json:"db_user" doc:"Tenant database user"`
	MauticVersion string `json:"mautic_version" doc:"Deployed Mautic version"`
	Status        string `json:"status" doc:"Lifecycle state"`
	ErrorMessage  string `json:"error_message,omitempty" doc:"Failure detail when status is error"`
	CreatedAt     string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt     string `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

// EventResponse is the API representation of an audit trail entry.
type EventResponse struct {
	Type      string `json:"type" doc:"Event kind"`
	Message   string `json:"message" doc:"Human-readable detail"`
	CreatedAt string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
}

func toTenantResponse(t domain.Tenant) TenantResponse {
	return TenantResponse{
		ID:            t.ID,
		Name:          t.Name,
		Slug:          t.Slug,
		Domain:        t.Domain,
		StackName:     t.StackName,
		DBName:        t.DBName,
		DBUser:        t.DBUser,
		MauticVersion: t.MauticVersion,
		Status:        string(t.Status),
		ErrorMessage:  t.ErrorMessage,
		CreatedAt:     t.CreatedAt.Format(timeFormat),
		UpdatedAt:     t.UpdatedAt.Format(timeFormat),
	}
}

func toEventResponses(events []domain.TenantEvent) []EventResponse {
	out := make([]EventResponse, len(events))
	for i, e := range events {
		out[i] = EventResponse{
			Type:      string(e.Type),
			Message:   e.Message,
			CreatedAt: e.CreatedAt.Format(timeFormat),
		}
	}
	return out
}

// --- Provision Tenant ---

type ProvisionTenantInput struct {
	Body struct {
		Name          string `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
		Domain        string `json:"domain" minLength:"1" maxLength:"253" doc:"Ingress hostname (letters, digits, hyphens, dots)"`
		MauticVersion string `json:"mautic_version,omitempty" doc:"Mautic version to deploy (defaults to the configured version)"`
	}
}

type ProvisionTenantBody struct {
	Tenant  *TenantResponse `json:"tenant,omitempty" doc:"The provisioned tenant"`
	Error   string          `json:"error,omitempty" doc:"Failure summary"`
	Details string          `json:"details,omitempty" doc:"Failure detail from the control plane"`
}

type ProvisionTenantOutput struct {
	Status int
	Body   ProvisionTenantBody
}

// --- Get Tenant ---

type GetTenantInput struct {
	ID string `path:"id" doc:"Tenant ID"`
}

type GetTenantOutput struct {
	Body struct {
		Tenant TenantResponse  `json:"tenant"`
		Events []EventResponse `json:"events" doc:"Audit trail, newest first"`
	}
}

// --- List Tenants ---

type ListTenantsInput struct {
	Status string `query:"status" required:"false" doc:"Filter by status" enum:",pending,active,error"`
	Limit  int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListTenantsOutput struct {
	Body struct {
		Tenants []TenantResponse `json:"tenants"`
	}
}

// --- List Versions ---

type ListVersionsOutput struct {
	Body struct {
		Versions []string `json:"versions" doc:"Deployable Mautic versions, newest first"`
	}
}

// Register adds all provisioning API routes to the Huma API.
func Register(api huma.API, svc *app.ProvisioningService) {
	huma.Register(api, huma.Operation{
		OperationID:   "provision-tenant",
		Method:        http.MethodPost,
		Path:          "/api/v1/tenants",
		Summary:       "Provision a new tenant",
		Description:   "Creates the tenant record and submits its stack to the orchestration control plane.",
		Tags:          []string{"Tenants"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *ProvisionTenantInput) (*ProvisionTenantOutput, error) {
		tenant, err := svc.Provision(ctx, app.ProvisionRequest{
			Name:          input.Body.Name,
			Domain:        input.Body.Domain,
			MauticVersion: input.Body.MauticVersion,
		})
		if err != nil {
			// A provisioning failure after persistence returns the
			// error-state tenant so the caller can inspect it.
			var provisionErr *domain.ProvisionError
			if errors.As(err, &provisionErr) {
				resp := toTenantResponse(provisionErr.Tenant)
				return &ProvisionTenantOutput{
					Status: http.StatusInternalServerError,
					Body: ProvisionTenantBody{
						Tenant:  &resp,
						Error:   "Failed to provision tenant",
						Details: provisionErr.Err.Error(),
					},
				}, nil
			}
			return nil, toHumaError(err)
		}

		resp := toTenantResponse(tenant)
		return &ProvisionTenantOutput{Body: ProvisionTenantBody{Tenant: &resp}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{id}",
		Summary:     "Get a tenant with its audit trail",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *GetTenantInput) (*GetTenantOutput, error) {
		tenant, events, err := svc.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &GetTenantOutput{}
		out.Body.Tenant = toTenantResponse(tenant)
		out.Body.Events = toEventResponses(events)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tenants",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants",
		Summary:     "List tenants",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *ListTenantsInput) (*ListTenantsOutput, error) {
		filter := domain.ListFilter{
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.Status != "" {
			s := domain.Status(input.Status)
			filter.Status = &s
		}

		tenants, err := svc.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &ListTenantsOutput{}
		out.Body.Tenants = make([]TenantResponse, len(tenants))
		for i, t := range tenants {
			out.Body.Tenants[i] = toTenantResponse(t)
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-versions",
		Method:      http.MethodGet,
		Path:        "/api/v1/versions",
		Summary:     "List deployable Mautic versions",
		Tags:        []string{"Versions"},
	}, func(ctx context.Context, _ *struct{}) (*ListVersionsOutput, error) {
		out := &ListVersionsOutput{}
		out.Body.Versions = svc.Versions()
		return out, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrTenantNotFound) {
		return huma.Error404NotFound("tenant not found")
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return huma.Error400BadRequest(validationErr.Error())
	}

	var conflictErr *domain.ConflictError
	if errors.As(err, &conflictErr) {
		return huma.Error409Conflict("a tenant with this name or domain already exists")
	}

	return huma.Error500InternalServerError("internal server error")
}
