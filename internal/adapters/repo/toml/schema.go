package toml

import (
	"fmt"
	"time"

	"github.com/essencia-app/essencia-cli/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version int           `toml:"version"`
	Drafts  []draftSchema `toml:"drafts"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported drafts schema version %d (current %d)", s.Version, currentSchemaVersion)
	}
	return nil
}

type draftSchema struct {
	ProfessionalID  int64        `toml:"professional_id"`
	Fields          fieldsSchema `toml:"fields"`
	Original        fieldsSchema `toml:"original"`
	PhotoPath       string       `toml:"photo_path,omitempty"`
	PhotoURL        string       `toml:"photo_url,omitempty"`
	ServerUpdatedAt time.Time    `toml:"server_updated_at"`
}

type fieldsSchema struct {
	Name           string   `toml:"name"`
	Email          string   `toml:"email"`
	Phone          string   `toml:"phone"`
	Bio            string   `toml:"bio"`
	City           string   `toml:"city"`
	State          string   `toml:"state"`
	AttendanceType string   `toml:"attendance_type"`
	Services       []string `toml:"services"`
}

func toSchema(draft domain.ProfileDraft) draftSchema {
	encoded := draftSchema{
		ProfessionalID:  draft.ProfessionalID,
		Fields:          toFieldsSchema(draft.Fields),
		Original:        toFieldsSchema(draft.Original),
		PhotoURL:        draft.PhotoURL,
		ServerUpdatedAt: draft.ServerUpdatedAt,
	}
	if draft.Photo != nil {
		encoded.PhotoPath = draft.Photo.Path
	}
	return encoded
}

func fromSchema(entry draftSchema) domain.ProfileDraft {
	draft := domain.ProfileDraft{
		ProfessionalID:  entry.ProfessionalID,
		Fields:          fromFieldsSchema(entry.Fields),
		Original:        fromFieldsSchema(entry.Original),
		PhotoURL:        entry.PhotoURL,
		ServerUpdatedAt: entry.ServerUpdatedAt,
	}
	if entry.PhotoPath != "" {
		draft.Photo = &domain.StagedPhoto{Path: entry.PhotoPath}
	}
	return draft
}

func toFieldsSchema(f domain.ProfileFields) fieldsSchema {
	return fieldsSchema{
		Name:           f.Name,
		Email:          f.Email,
		Phone:          f.Phone,
		Bio:            f.Bio,
		City:           f.City,
		State:          f.State,
		AttendanceType: f.AttendanceType,
		Services:       append([]string(nil), f.Services...),
	}
}

func fromFieldsSchema(f fieldsSchema) domain.ProfileFields {
	return domain.ProfileFields{
		Name:           f.Name,
		Email:          f.Email,
		Phone:          f.Phone,
		Bio:            f.Bio,
		City:           f.City,
		State:          f.State,
		AttendanceType: f.AttendanceType,
		Services:       append([]string(nil), f.Services...),
	}
}
