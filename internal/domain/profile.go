package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

type AttendanceType string

const (
	AttendanceOnline   AttendanceType = "online"
	AttendanceInPerson AttendanceType = "in_person"
	AttendanceBoth     AttendanceType = "both"
)

// Professional is the full public profile as served by the directory API.
type Professional struct {
	ID              int64     `json:"id"`
	FullName        string    `json:"full_name"`
	Email           string    `json:"email"`
	Whatsapp        string    `json:"whatsapp"`
	Instagram       string    `json:"instagram,omitempty"`
	Bio             string    `json:"bio"`
	City            string    `json:"city"`
	State           string    `json:"state"`
	Neighborhood    string    `json:"neighborhood,omitempty"`
	AttendanceType  string    `json:"attendance_type"`
	Services        []string  `json:"services"`
	PricePerSession string    `json:"price_per_session,omitempty"`
	PhotoURL        string    `json:"photo_url,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ProfessionalPage is one page of the paginated listing endpoint.
type ProfessionalPage struct {
	Count    int            `json:"count"`
	Next     string         `json:"next"`
	Previous string         `json:"previous"`
	Results  []Professional `json:"results"`
}

// ProfileFields is the editable subset of a professional profile. Services
// are order-independent; everything comparing them treats the slice as a set.
type ProfileFields struct {
	Name           string
	Email          string
	Phone          string
	Bio            string
	City           string
	State          string
	AttendanceType string
	Services       []string
}

// FieldChanges is a partial-update payload keyed by wire field name.
type FieldChanges map[string]any

// StagedPhoto is a locally selected photo that has not been uploaded yet.
type StagedPhoto struct {
	Path string
}

// ProfileDraft is the working copy of a profile mid-edit. Original never
// changes for the life of the draft; Fields diverges from it as the user
// edits. ServerUpdatedAt is the remote timestamp observed at load time and
// drives the optimistic conflict pre-check.
type ProfileDraft struct {
	ProfessionalID  int64
	Fields          ProfileFields
	Original        ProfileFields
	Photo           *StagedPhoto
	PhotoURL        string
	ServerUpdatedAt time.Time
}

// FieldsFromProfessional projects the editable fields out of a full profile.
func FieldsFromProfessional(p Professional) ProfileFields {
	return ProfileFields{
		Name:           p.FullName,
		Email:          p.Email,
		Phone:          p.Whatsapp,
		Bio:            p.Bio,
		City:           p.City,
		State:          p.State,
		AttendanceType: p.AttendanceType,
		Services:       append([]string(nil), p.Services...),
	}
}

// NewDraft seeds a draft from a freshly loaded profile, with Fields and
// Original identical.
func NewDraft(p Professional) ProfileDraft {
	return ProfileDraft{
		ProfessionalID:  p.ID,
		Fields:          FieldsFromProfessional(p),
		Original:        FieldsFromProfessional(p),
		PhotoURL:        p.PhotoURL,
		ServerUpdatedAt: p.UpdatedAt,
	}
}

// Changes compares Fields against Original and returns only the fields that
// differ, keyed by wire name. An empty map means there is nothing to send.
func (d ProfileDraft) Changes() FieldChanges {
	changes := FieldChanges{}

	if d.Fields.Name != d.Original.Name {
		changes["full_name"] = d.Fields.Name
	}
	if d.Fields.Email != d.Original.Email {
		changes["email"] = d.Fields.Email
	}
	if d.Fields.Phone != d.Original.Phone {
		changes["whatsapp"] = d.Fields.Phone
	}
	if d.Fields.Bio != d.Original.Bio {
		changes["bio"] = d.Fields.Bio
	}
	if d.Fields.City != d.Original.City {
		changes["city"] = d.Fields.City
	}
	if d.Fields.State != d.Original.State {
		changes["state"] = d.Fields.State
	}
	if d.Fields.AttendanceType != d.Original.AttendanceType {
		changes["attendance_type"] = d.Fields.AttendanceType
	}
	if !sameServiceSet(d.Fields.Services, d.Original.Services) {
		changes["services"] = sortedServices(d.Fields.Services)
	}

	return changes
}

func sameServiceSet(a, b []string) bool {
	if len(serviceSet(a)) != len(serviceSet(b)) {
		return false
	}
	set := serviceSet(b)
	for s := range serviceSet(a) {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}

func serviceSet(services []string) map[string]struct{} {
	set := make(map[string]struct{}, len(services))
	for _, s := range services {
		set[s] = struct{}{}
	}
	return set
}

func sortedServices(services []string) []string {
	out := make([]string, 0, len(serviceSet(services)))
	for s := range serviceSet(services) {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,14}$`)
)

// ValidationError carries per-field messages for client-side validation
// failures. It never reaches the network layer.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid profile fields"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "invalid profile fields: " + strings.Join(parts, "; ")
}

// First returns one field message, for compact notification display.
func (e *ValidationError) First() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return ""
	}
	return e.Fields[names[0]]
}

// Validate applies the required-field rules: name 2-100 runes, valid email,
// valid phone, bio 10-500 runes, at least one service.
func (f ProfileFields) Validate() error {
	fields := map[string]string{}

	name := strings.TrimSpace(f.Name)
	if n := len([]rune(name)); n < 2 || n > 100 {
		fields["name"] = "o nome deve ter entre 2 e 100 caracteres"
	}
	if !emailPattern.MatchString(strings.TrimSpace(f.Email)) {
		fields["email"] = "email inválido"
	}
	if !phonePattern.MatchString(normalizePhone(f.Phone)) {
		fields["phone"] = "telefone inválido"
	}
	if n := len([]rune(strings.TrimSpace(f.Bio))); n < 10 || n > 500 {
		fields["bio"] = "a bio deve ter entre 10 e 500 caracteres"
	}
	if len(serviceSet(f.Services)) == 0 {
		fields["services"] = "selecione pelo menos um serviço"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
