package ports

import (
	"context"

	"github.com/essencia-app/essencia-cli/internal/domain"
)

// DraftRepository persists profile drafts between CLI invocations. Get
// returns domain.ErrDraftNotFound (wrapped) when no draft exists for the
// professional.
type DraftRepository interface {
	Get(ctx context.Context, professionalID int64) (domain.ProfileDraft, error)
	Save(ctx context.Context, draft domain.ProfileDraft) error
	Delete(ctx context.Context, professionalID int64) error
}
