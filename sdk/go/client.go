package hourglasssdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal Hourglass HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	// UserID is sent as X-User-Id when no bearer token is set; servers accept
	// it only with dev identity enabled.
	UserID     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		Timeout:  10 * time.Second,
	}
}

// Objective represents the API objective model.
type Objective struct {
	ID            string     `json:"id"`
	RelatedTask   string     `json:"related_task"`
	Owners        []string   `json:"owners"`
	ObjectiveDate time.Time  `json:"objective_date"`
	Level         string     `json:"level"`
	Progress      float64    `json:"progress"`
	CompletedTS   *time.Time `json:"completed_ts,omitempty"`
	Scratched     bool       `json:"scratched"`
	ScratchedTS   *time.Time `json:"scratched_ts,omitempty"`
}

// Rollup groups objectives by level.
type Rollup struct {
	Day   []Objective `json:"day"`
	Month []Objective `json:"month"`
	Year  []Objective `json:"year"`
}

type Tally struct {
	Completed int `json:"completed"`
	Count     int `json:"count"`
}

type Summary struct {
	User     Tally `json:"user"`
	Everyone Tally `json:"everyone"`
}

// InvoiceLine is a project ledger entry.
type InvoiceLine struct {
	ID            string    `json:"id,omitempty"`
	Description   string    `json:"description,omitempty"`
	Amount        float64   `json:"amount"`
	BilledHours   float64   `json:"billed_hours"`
	InvoicingDate time.Time `json:"invoicing_date"`
	Paid          bool      `json:"paid,omitempty"`
	Direction     string    `json:"direction,omitempty"`
}

// ProjectBilling is one billing report row.
type ProjectBilling struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	HoursSold          float64       `json:"hours_sold"`
	HoursSoldUnit      string        `json:"hours_sold_unit"`
	HourlyRate         float64       `json:"hourly_rate"`
	Active             bool          `json:"active"`
	Invoices           []InvoiceLine `json:"invoices"`
	ExecutedHoursMonth float64       `json:"executed_hours_month"`
	ExecutedHoursTotal float64       `json:"executed_hours_total"`
	BilledHoursMonth   float64       `json:"billed_hours_month"`
	BilledAmountMonth  float64       `json:"billed_amount_month"`
	BilledHoursTotal   float64       `json:"billed_hours_total"`
	BilledAmountTotal  float64       `json:"billed_amount_total"`
}

type WorkEntry struct {
	ID        string    `json:"id"`
	Objective string    `json:"objective"`
	Time      int64     `json:"time"`
	CreatedTS time.Time `json:"created_ts"`
}

// Date addresses a year, a month or a day; zero Month or Day means absent.
type Date struct {
	Year  int
	Month int
	Day   int
}

func (d Date) path() string {
	parts := []string{strconv.Itoa(d.Year)}
	if d.Month != 0 {
		parts = append(parts, strconv.Itoa(d.Month))
		if d.Day != 0 {
			parts = append(parts, strconv.Itoa(d.Day))
		}
	}
	return strings.Join(parts, "/")
}

// RollupOptions scopes a rollup. AllLevels needs a full date.
type RollupOptions struct {
	AllLevels bool
	Owner     string
	Everyone  bool
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"error"`
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Objectives returns the objectives visible around d.
func (c *Client) Objectives(ctx context.Context, d Date, opts RollupOptions) (Rollup, error) {
	endpoint := "objectives/" + d.path()
	if opts.AllLevels {
		endpoint += "/all"
	}
	q := url.Values{}
	if opts.Owner != "" {
		q.Set("owner", opts.Owner)
	}
	if opts.Everyone {
		q.Set("everyone", "true")
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp struct {
		Objectives Rollup `json:"objectives"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Objectives, err
}

// Summary counts completed day objectives for the caller and for everyone.
func (c *Client) Summary(ctx context.Context, d Date) (Summary, error) {
	var resp struct {
		Summary Summary `json:"summary"`
	}
	err := c.do(ctx, http.MethodGet, "objectives/"+d.path()+"/summary", nil, &resp)
	return resp.Summary, err
}

// Billing returns the billing report; all includes inactive projects.
func (c *Client) Billing(ctx context.Context, all bool) ([]ProjectBilling, error) {
	endpoint := "projects/billing"
	if all {
		endpoint += "?all=true"
	}
	var resp struct {
		Projects []ProjectBilling `json:"projects"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Projects, err
}

// CreateObjective creates an objective owned by the caller unless owners are given.
func (c *Client) CreateObjective(ctx context.Context, level string, date time.Time, relatedTask string, owners ...string) (Objective, error) {
	body := map[string]any{
		"level":          level,
		"objective_date": date.Format(time.DateOnly),
	}
	if relatedTask != "" {
		body["related_task"] = relatedTask
	}
	if len(owners) > 0 {
		body["owners"] = owners
	}
	var resp Objective
	err := c.do(ctx, http.MethodPost, "objectives", body, &resp)
	return resp, err
}

// SetProgress sets objective progress; 1 completes it.
func (c *Client) SetProgress(ctx context.Context, id string, progress float64) (Objective, error) {
	var resp Objective
	err := c.do(ctx, http.MethodPatch, "objectives/"+url.PathEscape(id), map[string]any{"progress": progress}, &resp)
	return resp, err
}

func (c *Client) Scratch(ctx context.Context, id string, scratched bool) (Objective, error) {
	var resp Objective
	err := c.do(ctx, http.MethodPatch, "objectives/"+url.PathEscape(id), map[string]any{"scratched": scratched}, &resp)
	return resp, err
}

// LogWork records d against an objective.
func (c *Client) LogWork(ctx context.Context, objectiveID string, d time.Duration) (WorkEntry, error) {
	var resp WorkEntry
	endpoint := fmt.Sprintf("objectives/%s/work-entries", url.PathEscape(objectiveID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"time": int64(d / time.Second)}, &resp)
	return resp, err
}

// AddInvoiceLine appends a line to a project ledger.
func (c *Client) AddInvoiceLine(ctx context.Context, projectID string, line InvoiceLine) (InvoiceLine, error) {
	var resp InvoiceLine
	endpoint := fmt.Sprintf("projects/%s/invoices", url.PathEscape(projectID))
	err := c.do(ctx, http.MethodPost, endpoint, line, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.UserID != "":
		req.Header.Set("X-User-Id", c.UserID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		_ = json.Unmarshal(b, apiErr)
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
