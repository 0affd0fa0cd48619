package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/idledger/internal/app"
	"github.com/neomorfeo/idledger/internal/domain"
)

// RecordResponse is the API representation of a stored identifier.
type RecordResponse struct {
	Value     string `json:"value" doc:"Generated identifier, prefix included"`
	Type      string `json:"type" doc:"Generation variant"`
	Category  string `json:"category,omitempty" doc:"Free-text classification"`
	Prefix    string `json:"prefix,omitempty" doc:"Prefix applied at generation time"`
	CreatedAt string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
}

func toRecordResponse(r domain.Record) RecordResponse {
	return RecordResponse{
		Value:     r.Value,
		Type:      string(r.Variant),
		Category:  r.Category,
		Prefix:    r.Prefix,
		CreatedAt: r.CreatedAt.Format("2006-01-02T15:04:05.000000Z"),
	}
}

// StatsResponse is the aggregate summary; the CLI prints the same shape.
type StatsResponse struct {
	ByType     map[string]int `json:"by_type" doc:"Record count per variant"`
	ByCategory map[string]int `json:"by_category" doc:"Record count per category (uncategorized excluded)"`
	Total      int            `json:"total" doc:"Total record count"`
}

// ToStatsResponse converts a domain summary into its JSON form.
func ToStatsResponse(s domain.Summary) StatsResponse {
	resp := StatsResponse{
		ByType:     make(map[string]int, len(s.ByVariant)),
		ByCategory: make(map[string]int, len(s.ByCategory)),
		Total:      s.Total,
	}
	for v, n := range s.ByVariant {
		resp.ByType[string(v)] = n
	}
	for c, n := range s.ByCategory {
		resp.ByCategory[c] = n
	}
	return resp
}

// --- Generate ---

type GenerateInput struct {
	Body struct {
		Type     string `json:"type" enum:"v1,v4,timestamp" doc:"Generation variant"`
		Category string `json:"category,omitempty" maxLength:"50" doc:"Free-text classification"`
		Prefix   string `json:"prefix,omitempty" maxLength:"5" pattern:"^[A-Za-z0-9]*$" doc:"Alphanumeric prefix (upper-cased)"`
	}
}

type GenerateOutput struct {
	Body RecordResponse
}

// --- Get ---

type GetRecordInput struct {
	Value string `path:"value" doc:"Identifier value"`
}

type GetRecordOutput struct {
	Body RecordResponse
}

// --- List ---

type ListRecordsInput struct {
	Type     string `query:"type" required:"false" doc:"Filter by variant"`
	Category string `query:"category" required:"false" doc:"Filter by category"`
	Limit    int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset   int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListRecordsOutput struct {
	Body []RecordResponse
}

// --- Stats ---

type StatsOutput struct {
	Body StatsResponse
}

// Register adds all ledger API routes to the Huma API.
func Register(api huma.API, svc *app.LedgerService) {
	huma.Register(api, huma.Operation{
		OperationID: "generate-identifier",
		Method:      http.MethodPost,
		Path:        "/api/v1/identifiers",
		Summary:     "Generate and record a new identifier",
		Tags:        []string{"Identifiers"},
	}, func(ctx context.Context, input *GenerateInput) (*GenerateOutput, error) {
		record, err := svc.Generate(ctx, app.GenerateRequest{
			Variant:  domain.Variant(input.Body.Type),
			Category: input.Body.Category,
			Prefix:   input.Body.Prefix,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GenerateOutput{Body: toRecordResponse(record)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-identifier",
		Method:      http.MethodGet,
		Path:        "/api/v1/identifiers/{value}",
		Summary:     "Get a recorded identifier",
		Tags:        []string{"Identifiers"},
	}, func(ctx context.Context, input *GetRecordInput) (*GetRecordOutput, error) {
		record, err := svc.Get(ctx, input.Value)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetRecordOutput{Body: toRecordResponse(record)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-identifiers",
		Method:      http.MethodGet,
		Path:        "/api/v1/identifiers",
		Summary:     "List recorded identifiers",
		Tags:        []string{"Identifiers"},
	}, func(ctx context.Context, input *ListRecordsInput) (*ListRecordsOutput, error) {
		filter := domain.ListFilter{
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.Type != "" {
			v, err := domain.ParseVariant(input.Type)
			if err != nil {
				return nil, toHumaError(err)
			}
			filter.Variant = &v
		}
		if input.Category != "" {
			c := input.Category
			filter.Category = &c
		}

		records, err := svc.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]RecordResponse, len(records))
		for i, r := range records {
			resp[i] = toRecordResponse(r)
		}
		return &ListRecordsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Count recorded identifiers by type and category",
		Tags:        []string{"Identifiers"},
	}, func(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
		summary, err := svc.Stats(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &StatsOutput{Body: ToStatsResponse(summary)}, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrRecordNotFound) {
		return huma.Error404NotFound("identifier not found")
	}

	var argErr *domain.InvalidArgumentError
	if errors.As(err, &argErr) {
		return huma.Error422UnprocessableEntity(argErr.Error())
	}

	var dupErr *domain.DuplicateIdentifierError
	if errors.As(err, &dupErr) {
		return huma.Error409Conflict(dupErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
