package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"oftalmonet/valeda-app/internal/domain"
)

// ErrUnavailable reports that the API or its database could not be reached.
var ErrUnavailable = errors.New("treatment api unavailable")

// storeUnavailableCode is the error code the server attaches to database outages.
const storeUnavailableCode = "STORE_UNAVAILABLE"

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int      `json:"-"`
	Message    string   `json:"error"`
	Code       string   `json:"code,omitempty"`
	Details    []string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	return msg
}

// Unwrap lets errors.Is(err, ErrUnavailable) match database outages and
// gateway failures.
func (e *APIError) Unwrap() error {
	switch {
	case e.Code == storeUnavailableCode,
		e.StatusCode == http.StatusServiceUnavailable,
		e.StatusCode == http.StatusBadGateway,
		e.StatusCode == http.StatusGatewayTimeout:
		return ErrUnavailable
	}
	return nil
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client calls the treatment REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New returns a client for the API mounted at baseURL, e.g.
// http://localhost:8080/api.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListTreatments fetches one page of the whole collection.
func (c *Client) ListTreatments(ctx context.Context, opts domain.PaginationOptions) (*domain.SearchResult[domain.Treatment], error) {
	return c.SearchTreatments(ctx, domain.SearchFilters{}, opts)
}

// SearchTreatments fetches one page of matching treatments.
func (c *Client) SearchTreatments(ctx context.Context, filters domain.SearchFilters, opts domain.PaginationOptions) (*domain.SearchResult[domain.Treatment], error) {
	q := url.Values{}
	if filters.Name != "" {
		q.Set("name", filters.Name)
	}
	if filters.Doctor != "" {
		q.Set("doctor", filters.Doctor)
	}
	if filters.TreatmentType != "" {
		q.Set("treatmentType", string(filters.TreatmentType))
	}
	if filters.DateFrom != nil {
		q.Set("dateFrom", filters.DateFrom.UTC().Format(time.RFC3339))
	}
	if filters.DateTo != nil {
		q.Set("dateTo", filters.DateTo.UTC().Format(time.RFC3339))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.SortBy != "" {
		q.Set("sortBy", opts.SortBy)
	}
	if opts.SortOrder != "" {
		q.Set("sortOrder", string(opts.SortOrder))
	}

	var res domain.SearchResult[domain.Treatment]
	if err := c.do(ctx, http.MethodGet, "/treatments/search?"+q.Encode(), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GetTreatment(ctx context.Context, id string) (*domain.Treatment, error) {
	var t domain.Treatment
	if err := c.do(ctx, http.MethodGet, "/treatments/"+url.PathEscape(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTreatment submits t. Identity and timestamps are assigned by the server.
func (c *Client) CreateTreatment(ctx context.Context, t *domain.Treatment) (*domain.Treatment, error) {
	var created domain.Treatment
	if err := c.do(ctx, http.MethodPost, "/treatments", createPayload(t), &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTreatment sends only the fields present in patch.
func (c *Client) UpdateTreatment(ctx context.Context, id string, patch domain.TreatmentPatch) (*domain.Treatment, error) {
	var updated domain.Treatment
	if err := c.do(ctx, http.MethodPut, "/treatments/"+url.PathEscape(id), patchPayload(patch), &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteTreatment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/treatments/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Statistics(ctx context.Context) (*domain.TreatmentStatistics, error) {
	var stats domain.TreatmentStatistics
	if err := c.do(ctx, http.MethodGet, "/treatments/statistics", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Health returns nil when the server and its database are reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// --- Request payloads ---

type patientPayload struct {
	Name      string     `json:"name,omitempty"`
	Age       *int       `json:"age,omitempty"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
}

type sessionPayload struct {
	SessionNumber int        `json:"sessionNumber"`
	Date          *time.Time `json:"date,omitempty"`
	Technician    string     `json:"technician"`
	Time          string     `json:"time"`
}

type doctorPayload struct {
	Name string `json:"name"`
}

type treatmentPayload struct {
	Patient               *patientPayload  `json:"patient,omitempty"`
	Doctor                *doctorPayload   `json:"doctor,omitempty"`
	TreatmentType         string           `json:"treatmentType,omitempty"`
	Sessions              []sessionPayload `json:"sessions,omitempty"`
	AdditionalIndications string           `json:"additionalIndications,omitempty"`
}

func sessionPayloads(sessions []domain.Session) []sessionPayload {
	out := make([]sessionPayload, len(sessions))
	for i, s := range sessions {
		out[i] = sessionPayload{SessionNumber: s.SessionNumber, Date: s.Date, Technician: s.Technician, Time: s.Time}
	}
	return out
}

func createPayload(t *domain.Treatment) treatmentPayload {
	bd := t.Patient.BirthDate
	p := treatmentPayload{
		Patient:               &patientPayload{Name: t.Patient.Name},
		Doctor:                &doctorPayload{Name: t.Doctor.Name},
		TreatmentType:         string(t.TreatmentType),
		Sessions:              sessionPayloads(t.Sessions),
		AdditionalIndications: t.AdditionalIndications,
	}
	if !bd.IsZero() {
		p.Patient.BirthDate = &bd
	}
	// A zero age lets the server derive it from the birth date.
	if age := t.Patient.Age; age != 0 {
		p.Patient.Age = &age
	}
	return p
}

// patchPayload builds a body holding only the keys present in patch. An
// explicitly empty session list is still sent.
func patchPayload(patch domain.TreatmentPatch) map[string]any {
	body := map[string]any{}
	if patch.Patient != nil {
		patient := map[string]any{}
		if patch.Patient.Name != nil {
			patient["name"] = *patch.Patient.Name
		}
		if patch.Patient.Age != nil {
			patient["age"] = *patch.Patient.Age
		}
		if patch.Patient.BirthDate != nil {
			patient["birthDate"] = patch.Patient.BirthDate.UTC().Format(time.RFC3339)
		}
		body["patient"] = patient
	}
	if patch.Doctor != nil {
		body["doctor"] = doctorPayload{Name: patch.Doctor.Name}
	}
	if patch.TreatmentType != nil {
		body["treatmentType"] = string(*patch.TreatmentType)
	}
	if patch.SessionsSet {
		body["sessions"] = sessionPayloads(patch.Sessions)
	}
	if patch.AdditionalIndications != nil {
		body["additionalIndications"] = *patch.AdditionalIndications
	}
	return body
}
