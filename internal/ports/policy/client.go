package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"attendance.service/internal/core/model"
)

// Directory resolves the attendance policy for an employee. It is consulted
// once per TimeEntry lifecycle, at clock-in; the result is snapshotted onto
// the entry.
type Directory interface {
	Resolve(ctx context.Context, tenantID, employeeID string) (model.Policy, error)
}

// HTTPClient talks to the external employee/policy directory over HTTP.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient new HTTPClient
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		baseURL: baseURL,
	}
}

// Resolve fetches the policy for a single employee.
func (c *HTTPClient) Resolve(ctx context.Context, tenantID, employeeID string) (model.Policy, error) {
	endpoint := fmt.Sprintf("%s/tenants/%s/employees/%s/policy",
		c.baseURL, url.PathEscape(tenantID), url.PathEscape(employeeID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Policy{}, fmt.Errorf("failed to create policy request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return model.Policy{}, fmt.Errorf("failed to call policy directory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return model.Policy{}, fmt.Errorf("policy directory returned non-successful status code: %d", resp.StatusCode)
	}

	var pol model.Policy
	if err := json.NewDecoder(resp.Body).Decode(&pol); err != nil {
		return model.Policy{}, fmt.Errorf("failed to decode policy response: %w", err)
	}

	if pol.MinimumFirstBreakMinutes <= 0 {
		pol.MinimumFirstBreakMinutes = model.DefaultMinimumFirstBreakMinutes
	}
	if pol.OvertimeThresholdHours <= 0 {
		pol.OvertimeThresholdHours = model.DefaultOvertimeThresholdHours
	}
	return pol, nil
}

var _ Directory = (*HTTPClient)(nil)
