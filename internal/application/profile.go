package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/essencia-app/essencia-cli/internal/adapters/api"
	"github.com/essencia-app/essencia-cli/internal/domain"
	"github.com/essencia-app/essencia-cli/internal/logging"
	"github.com/essencia-app/essencia-cli/internal/ports"
)

// ProfileService orchestrates the edit flow: load a draft, accumulate local
// changes, pre-check for a remote conflict, and send a partial update with
// only the fields that changed. The server's 409/412 remains the
// authoritative race guard; the pre-check is a UX courtesy.
type ProfileService struct {
	client *api.Client
	drafts ports.DraftRepository
	center *Center
	log    logging.Logger
	debug  bool
}

func NewProfileService(client *api.Client, drafts ports.DraftRepository, center *Center, log logging.Logger, debug bool) *ProfileService {
	if log == nil {
		log = logging.Nop{}
	}
	return &ProfileService{client: client, drafts: drafts, center: center, log: log, debug: debug}
}

// LoadDraft fetches the remote profile and seeds a fresh draft with Fields
// and Original identical, replacing any previous draft for this
// professional.
func (p *ProfileService) LoadDraft(ctx context.Context, professionalID int64) (domain.ProfileDraft, error) {
	professional, err := p.client.GetProfessional(ctx, professionalID)
	if err != nil {
		p.center.ShowApp(Classify(err, p.debug))
		return domain.ProfileDraft{}, err
	}

	draft := domain.NewDraft(professional)
	if err := p.drafts.Save(ctx, draft); err != nil {
		return domain.ProfileDraft{}, fmt.Errorf("persist draft: %w", err)
	}
	return draft, nil
}

// Draft returns the stored working copy.
func (p *ProfileService) Draft(ctx context.Context, professionalID int64) (domain.ProfileDraft, error) {
	return p.drafts.Get(ctx, professionalID)
}

// UpdateDraft persists edited fields. The stored Original is preserved no
// matter what the caller passes: it only changes when a save succeeds or the
// draft is reloaded.
func (p *ProfileService) UpdateDraft(ctx context.Context, draft domain.ProfileDraft) error {
	existing, err := p.drafts.Get(ctx, draft.ProfessionalID)
	if err == nil {
		draft.Original = existing.Original
		draft.ServerUpdatedAt = existing.ServerUpdatedAt
	} else if !errors.Is(err, domain.ErrDraftNotFound) {
		return err
	}
	return p.drafts.Save(ctx, draft)
}

// CheckConflict re-fetches the remote timestamp; true means the profile
// changed on the server since the draft was loaded.
func (p *ProfileService) CheckConflict(ctx context.Context, professionalID int64, draft domain.ProfileDraft) (bool, error) {
	professional, err := p.client.GetProfessional(ctx, professionalID)
	if err != nil {
		return false, err
	}
	return professional.UpdatedAt.After(draft.ServerUpdatedAt), nil
}

// Save validates locally, pre-checks for conflicts, and sends only the
// changed fields. Local edits survive every failure path so the user can fix
// and retry.
func (p *ProfileService) Save(ctx context.Context, professionalID int64) (domain.Professional, error) {
	draft, err := p.drafts.Get(ctx, professionalID)
	if err != nil {
		return domain.Professional{}, err
	}

	if err := draft.Fields.Validate(); err != nil {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			p.center.Error("Dados inválidos", validationErr.First())
		}
		return domain.Professional{}, err
	}

	conflict, err := p.CheckConflict(ctx, professionalID, draft)
	if err != nil {
		p.center.ShowApp(Classify(err, p.debug))
		return domain.Professional{}, err
	}
	if conflict {
		p.notifyConflict()
		return domain.Professional{}, domain.ErrConflict
	}

	changes := draft.Changes()
	if len(changes) == 0 {
		p.center.Info("Nada para salvar", "Nenhum campo foi alterado.")
		return domain.Professional{}, domain.ErrNothingToSave
	}

	updated, err := p.client.UpdateProfessional(ctx, professionalID, changes)
	if err != nil {
		// The pre-check can pass and the write still lose the race; the
		// server status is the final word.
		var apiErr *api.Error
		if errors.As(err, &apiErr) &&
			(apiErr.StatusCode == http.StatusConflict || apiErr.StatusCode == http.StatusPreconditionFailed) {
			p.notifyConflict()
			return domain.Professional{}, fmt.Errorf("save rejected by server: %w", domain.ErrConflict)
		}
		p.center.ShowApp(Classify(err, p.debug))
		return domain.Professional{}, err
	}

	saved := domain.NewDraft(updated)
	saved.Photo = draft.Photo
	if err := p.drafts.Save(ctx, saved); err != nil {
		return domain.Professional{}, fmt.Errorf("persist saved draft: %w", err)
	}

	p.center.Success("Perfil atualizado", "Suas alterações foram salvas.")
	return updated, nil
}

// StagePhoto records a local file as the pending profile photo. No network
// I/O happens until UploadPhoto.
func (p *ProfileService) StagePhoto(ctx context.Context, professionalID int64, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stage photo: %w", err)
	}

	draft, err := p.drafts.Get(ctx, professionalID)
	if err != nil {
		return err
	}
	draft.Photo = &domain.StagedPhoto{Path: path}
	return p.drafts.Save(ctx, draft)
}

// UploadPhoto commits the staged photo as its own request and refreshes the
// draft's photo reference on success.
func (p *ProfileService) UploadPhoto(ctx context.Context, professionalID int64) (string, error) {
	draft, err := p.drafts.Get(ctx, professionalID)
	if err != nil {
		return "", err
	}
	if draft.Photo == nil {
		return "", domain.ErrNoPhotoStaged
	}

	photoURL, err := p.client.UploadPhoto(ctx, professionalID, draft.Photo.Path)
	if err != nil {
		p.center.ShowApp(Classify(err, p.debug))
		return "", err
	}

	draft.PhotoURL = photoURL
	draft.Photo = nil
	if err := p.drafts.Save(ctx, draft); err != nil {
		return "", fmt.Errorf("persist draft photo: %w", err)
	}

	p.center.Success("Foto atualizada", "Sua foto de perfil foi enviada.")
	return photoURL, nil
}

// Discard drops the draft and its staged photo.
func (p *ProfileService) Discard(ctx context.Context, professionalID int64) error {
	return p.drafts.Delete(ctx, professionalID)
}

func (p *ProfileService) notifyConflict() {
	p.center.Error("Conflito", "O perfil foi alterado em outra sessão. Recarregue antes de salvar.")
}
