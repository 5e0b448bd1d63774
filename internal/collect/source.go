package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meridian-erp/meridian-pnl/internal/aggregate"
	"github.com/meridian-erp/meridian-pnl/internal/period"
)

// Resource paths served by the upstream data API.
const (
	ResourcePayroll        = "/payroll"
	ResourceBusinessTrips  = "/business-trips"
	ResourceAssets         = "/assets"
	ResourceProjects       = "/projects"
	ResourceFuelLogs       = "/fuel-logs"
	ResourceMaintenance    = "/maintenance"
	ResourcePurchases      = "/purchase-requests"
	ResourceTraining       = "/hse/training"
	ResourceLegalCases     = "/admin/legal-cases"
	ResourceFacilities     = "/admin/company-facilities"
	ResourceCorrespondence = "/admin/government-correspondence"
	ResourceInventoryItems = "/inventory/items"
	ResourceQuotations     = "/quotations"
	ResourceInvoices       = "/invoices"
)

// DataSource is the injected fetch boundary. Implementations return raw
// records for a resource path; failures are surfaced as errors and handled
// per module by the collectors.
type DataSource interface {
	Get(ctx context.Context, resource string, query url.Values) ([]aggregate.Record, error)
}

// Query carries the reporting period and the resolved window for one
// collection pass. Custom marks windows built from explicit bounds, which
// are forwarded to the upstream API as startDate/endDate.
type Query struct {
	Period period.Period
	Window period.Window
	Custom bool
}

// Values renders the query as upstream request parameters.
func (q Query) Values() url.Values {
	v := url.Values{"period": []string{string(q.Period)}}
	if q.Custom {
		v.Set("startDate", q.Window.Start.Format("2006-01-02"))
		v.Set("endDate", q.Window.End.Format("2006-01-02"))
	}
	return v
}

// RESTSource fetches records from the upstream ERP data API over HTTP.
type RESTSource struct {
	baseURL string
	client  *http.Client
}

// NewRESTSource builds a DataSource for the given API base URL.
func NewRESTSource(baseURL string, timeout time.Duration) *RESTSource {
	return &RESTSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Get fetches and decodes one resource. Responses may be a bare JSON array
// or a {"data": [...]} envelope.
func (s *RESTSource) Get(ctx context.Context, resource string, query url.Values) ([]aggregate.Record, error) {
	target := s.baseURL + resource
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("collect: build request for %s: %w", resource, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("collect: fetch %s: %w", resource, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("collect: fetch %s: status %d", resource, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("collect: read %s: %w", resource, err)
	}
	return decodeRecords(resource, body)
}

func decodeRecords(resource string, body []byte) ([]aggregate.Record, error) {
	var records []aggregate.Record
	if err := json.Unmarshal(body, &records); err == nil {
		return records, nil
	}
	var envelope struct {
		Data []aggregate.Record `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("collect: decode %s: %w", resource, err)
	}
	return envelope.Data, nil
}
