package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/essencia-app/essencia-cli/internal/domain"
)

// RegisterForm is the multipart registration payload for a new professional.
type RegisterForm struct {
	Email           string
	Password        string
	FullName        string
	PhotoPath       string
	Services        []string
	PricePerSession string
	AttendanceType  string
	State           string
	City            string
	Neighborhood    string
	Bio             string
	Whatsapp        string
	Instagram       string
}

// RegisterResult tolerates both token field spellings the backend has used.
type RegisterResult struct {
	UserID         int64  `json:"user_id"`
	ProfessionalID int64  `json:"professional_id"`
	AccessToken    string `json:"access_token"`
	Access         string `json:"access"`
	RefreshToken   string `json:"refresh_token"`
	Refresh        string `json:"refresh"`
}

func (r RegisterResult) AccessValue() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Access
}

func (r RegisterResult) RefreshValue() string {
	if r.RefreshToken != "" {
		return r.RefreshToken
	}
	return r.Refresh
}

func (c *Client) RegisterProfessional(ctx context.Context, form RegisterForm) (RegisterResult, error) {
	servicesJSON, err := json.Marshal(form.Services)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("encode services: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := map[string]string{
		"email":             form.Email,
		"password":          form.Password,
		"full_name":         form.FullName,
		"services":          string(servicesJSON),
		"price_per_session": form.PricePerSession,
		"attendance_type":   form.AttendanceType,
		"state":             form.State,
		"city":              form.City,
		"neighborhood":      form.Neighborhood,
		"bio":               form.Bio,
		"whatsapp":          form.Whatsapp,
	}
	if form.Instagram != "" {
		fields["instagram"] = form.Instagram
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return RegisterResult{}, fmt.Errorf("write form field %q: %w", name, err)
		}
	}

	if form.PhotoPath != "" {
		if err := attachFile(writer, "photo", form.PhotoPath); err != nil {
			return RegisterResult{}, err
		}
	}

	if err := writer.Close(); err != nil {
		return RegisterResult{}, fmt.Errorf("finalize registration form: %w", err)
	}

	var res RegisterResult
	req := request{
		method:      http.MethodPost,
		path:        "/professionals/register/",
		body:        buf.Bytes(),
		contentType: writer.FormDataContentType(),
		noAuth:      true,
	}
	if err := c.do(ctx, req, &res); err != nil {
		return RegisterResult{}, err
	}
	return res, nil
}

// ListFilters narrows the professional listing. Zero values are omitted.
type ListFilters struct {
	State          string
	City           string
	Service        string
	AttendanceType string
	Search         string
	Page           int
}

func (f ListFilters) values() url.Values {
	values := url.Values{}
	if f.State != "" {
		values.Set("state", f.State)
	}
	if f.City != "" {
		values.Set("city", f.City)
	}
	if f.Service != "" {
		values.Set("service", f.Service)
	}
	if f.AttendanceType != "" {
		values.Set("attendance_type", f.AttendanceType)
	}
	if f.Search != "" {
		values.Set("search", f.Search)
	}
	if f.Page > 1 {
		values.Set("page", strconv.Itoa(f.Page))
	}
	return values
}

func (c *Client) ListProfessionals(ctx context.Context, filters ListFilters) (domain.ProfessionalPage, error) {
	var page domain.ProfessionalPage
	req := request{method: http.MethodGet, path: "/professionals/", query: filters.values()}
	if err := c.do(ctx, req, &page); err != nil {
		return domain.ProfessionalPage{}, err
	}
	return page, nil
}

func (c *Client) GetProfessional(ctx context.Context, id int64) (domain.Professional, error) {
	var p domain.Professional
	path := fmt.Sprintf("/professionals/%d/", id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &p, false); err != nil {
		return domain.Professional{}, err
	}
	return p, nil
}

// UpdateProfessional issues a partial update carrying only changed fields. A
// 409 or 412 response is the server-side stale-write guard; callers map it to
// the conflict flow.
func (c *Client) UpdateProfessional(ctx context.Context, id int64, changes domain.FieldChanges) (domain.Professional, error) {
	var p domain.Professional
	path := fmt.Sprintf("/professionals/%d/", id)
	if err := c.doJSON(ctx, http.MethodPatch, path, changes, &p, false); err != nil {
		return domain.Professional{}, err
	}
	return p, nil
}

type photoResponse struct {
	PhotoURL string `json:"photo_url"`
}

// UploadPhoto sends the staged photo as its own request, independent of any
// field update.
func (c *Client) UploadPhoto(ctx context.Context, id int64, photoPath string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := attachFile(writer, "photo", photoPath); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize photo form: %w", err)
	}

	var res photoResponse
	req := request{
		method:      http.MethodPost,
		path:        fmt.Sprintf("/professionals/%d/photo", id),
		body:        buf.Bytes(),
		contentType: writer.FormDataContentType(),
	}
	if err := c.do(ctx, req, &res); err != nil {
		return "", err
	}
	return res.PhotoURL, nil
}

func attachFile(writer *multipart.Writer, field, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s file: %w", field, err)
	}
	defer func() { _ = file.Close() }()

	part, err := writer.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("create %s form part: %w", field, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy %s file: %w", field, err)
	}
	return nil
}
