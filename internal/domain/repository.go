package domain

import "context"

// GenerationFilter narrows List queries. Zero values mean "no constraint".
type GenerationFilter struct {
	Provider string
	Status   GenerationStatus
	Offset   int
	Limit    int
}

// GenerationRepository defines persistence for generation records.
type GenerationRepository interface {
	Create(ctx context.Context, gen *Generation) error
	GetByID(ctx context.Context, id string) (*Generation, error)
	Update(ctx context.Context, gen *Generation) error
	List(ctx context.Context, filter GenerationFilter) ([]Generation, error)
	Delete(ctx context.Context, id string) error
}

// CredentialRepository defines persistence for provider credentials.
// ListByProvider and List must return rows in a deterministic order
// (created_at, then id) so that first-match credential selection is stable.
type CredentialRepository interface {
	Create(ctx context.Context, cred *Credential) error
	GetByID(ctx context.Context, id string) (*Credential, error)
	ListByProvider(ctx context.Context, provider string) ([]Credential, error)
	List(ctx context.Context) ([]Credential, error)
	Update(ctx context.Context, cred *Credential) error
	Delete(ctx context.Context, id string) error
}

// UsageRollup aggregates generations for one provider or model.
type UsageRollup struct {
	Key       string
	Count     int
	TotalCost float64
	AvgTime   float64
}

// UsageSummary is a read-only snapshot of gateway activity.
type UsageSummary struct {
	TotalGenerations int
	TotalCost        float64
	TotalSuccess     int
	TotalFailure     int
	ByProvider       []UsageRollup
	ByModel          []UsageRollup
	Recent           []Generation
}

// UsageRepository reports aggregate usage statistics.
type UsageRepository interface {
	Summary(ctx context.Context) (*UsageSummary, error)
}
