// Package bigquery is a minimal BigQuery REST client covering metadata
// discovery and SQL execution. It talks to the v2 REST surface directly with
// an OAuth-authorized http.Client instead of pulling in the full cloud SDK.
package bigquery

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

	"github.com/ryokaneoka0406/wise/internal/httputil"
)

const (
	defaultBaseURL = "https://bigquery.googleapis.com/bigquery/v2"

	// defaultPageSize is the maxResults hint sent on list and query calls.
	defaultPageSize = 1000

	// pollInterval and maxPollAttempts bound the job-completion wait. Both
	// are fixed; there is no per-call override.
	pollInterval    = 1 * time.Second
	maxPollAttempts = 30
)

// Client issues requests against one project/location pair. Construct one
// per use; there is no shared package-level instance.
type Client struct {
	projectID  string
	location   string
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig

	pollEvery time.Duration
	pollMax   int
}

// Options configures a Client beyond the required project id.
type Options struct {
	// Location is the dataset location sent with queries. Defaults to "US".
	Location string
	// HTTPClient must carry OAuth credentials (see auth.HTTPClient).
	// Defaults to http.DefaultClient.
	HTTPClient *http.Client
	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

// New builds a client for the given project.
func New(projectID string, opts Options) (*Client, error) {
	if projectID == "" {
		return nil, &InvalidArgumentError{Msg: "projectID is required"}
	}
	c := &Client{
		projectID:  projectID,
		location:   opts.Location,
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		retry:      httputil.DefaultRetryConfig(),
		pollEvery:  pollInterval,
		pollMax:    maxPollAttempts,
	}
	if c.location == "" {
		c.location = "US"
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	return c, nil
}

// ProjectID returns the project this client is bound to.
func (c *Client) ProjectID() string { return c.projectID }

// Location returns the configured dataset location.
func (c *Client) Location() string { return c.location }

// QueryOptions control one Query call.
type QueryOptions struct {
	// MaxResults is the per-page row limit. Defaults to 1000.
	MaxResults int
	// DryRun validates the SQL and estimates cost without materializing rows.
	DryRun bool
	// FetchAll follows page tokens until the full result set is local. When
	// false only the first page is returned; TotalRows still reports the
	// full count.
	FetchAll bool
}

// QueryResult is a fully materialized query outcome.
type QueryResult struct {
	Schema    []Field
	Rows      []map[string]any
	TotalRows int64
	JobID     string
}

type jobReference struct {
	JobID string `json:"jobId"`
}

type queryResponse struct {
	JobReference  jobReference    `json:"jobReference"`
	Schema        *tableSchema    `json:"schema"`
	Rows          []Row           `json:"rows"`
	TotalRows     json.RawMessage `json:"totalRows"`
	JobComplete   *bool           `json:"jobComplete"`
	PageToken     string          `json:"pageToken"`
	NextPageToken string          `json:"nextPageToken"`
}

// complete treats an absent jobComplete flag as done, matching the API's
// behavior for jobs that finish within the submission window.
func (r *queryResponse) complete() bool {
	return r.JobComplete == nil || *r.JobComplete
}

// nextToken checks the primary token field first, then the fallback name;
// the first non-empty value wins.
func (r *queryResponse) nextToken() string {
	if r.PageToken != "" {
		return r.PageToken
	}
	return r.NextPageToken
}

func (r *queryResponse) schemaFields() []Field {
	if r.Schema == nil {
		return nil
	}
	return r.Schema.Fields
}

// Query executes SQL via jobs.query and returns the materialized result.
// Three asynchrony sources hide behind this one call: the job may complete
// in the submission response, it may need polling, and the finished result
// may span multiple pages.
func (c *Client) Query(ctx context.Context, sql string, opts QueryOptions) (*QueryResult, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, &InvalidArgumentError{Msg: "sql statement is empty"}
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = defaultPageSize
	}

	payload := map[string]any{
		"query":        sql,
		"useLegacySql": false,
		"location":     c.location,
		"maxResults":   maxResults,
		"dryRun":       opts.DryRun,
	}
	raw, err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/projects/%s/queries", c.projectID), nil, payload)
	if err != nil {
		return nil, err
	}
	var resp queryResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &InvalidResponseError{Msg: fmt.Sprintf("decode query response: %v", err), Payload: raw}
	}

	jobID := resp.JobReference.JobID
	if jobID == "" {
		return nil, &InvalidResponseError{Msg: "query response is missing jobReference.jobId", Payload: raw}
	}

	result := &QueryResult{
		Schema:    resp.schemaFields(),
		Rows:      []map[string]any{},
		TotalRows: coerceInt(resp.TotalRows),
		JobID:     jobID,
	}

	// Dry runs report schema and cost estimates only; the job-status
	// endpoint is never touched even though a job id exists.
	if opts.DryRun {
		return result, nil
	}

	result.Rows = FormatRows(resp.Rows, result.Schema)
	pageToken := resp.nextToken()

	if !resp.complete() {
		finished, err := c.pollForCompletion(ctx, jobID, maxResults)
		if err != nil {
			return nil, err
		}
		// Schema may arrive only once the job finishes; the first page to
		// carry it wins.
		if len(result.Schema) == 0 {
			result.Schema = finished.schemaFields()
		}
		result.Rows = append(result.Rows, FormatRows(finished.Rows, result.Schema)...)
		if len(finished.TotalRows) > 0 {
			result.TotalRows = coerceInt(finished.TotalRows)
		}
		pageToken = finished.nextToken()
	}

	if opts.FetchAll && pageToken != "" {
		if err := c.fetchRemainingPages(ctx, jobID, pageToken, maxResults, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// pollForCompletion waits on the job-status endpoint at a fixed interval.
// Exceeding the attempt ceiling is a hard failure, never silent success.
func (c *Client) pollForCompletion(ctx context.Context, jobID string, maxResults int) (*queryResponse, error) {
	params := url.Values{
		"maxResults": {strconv.Itoa(maxResults)},
		"location":   {c.location},
	}
	path := fmt.Sprintf("/projects/%s/queries/%s", c.projectID, jobID)

	for attempt := 0; attempt < c.pollMax; attempt++ {
		if err := httputil.SleepWithContext(ctx, c.pollEvery); err != nil {
			return nil, err
		}
		raw, err := c.doJSON(ctx, http.MethodGet, path, params, nil)
		if err != nil {
			return nil, err
		}
		var resp queryResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, &InvalidResponseError{Msg: fmt.Sprintf("decode job status: %v", err), Payload: raw}
		}
		if resp.complete() {
			return &resp, nil
		}
	}
	return nil, &TimeoutError{JobID: jobID, Attempts: c.pollMax}
}

// fetchRemainingPages follows page tokens until the result set is complete,
// appending formatted rows to result. Already-fetched rows are never
// re-requested; the token always names the next unseen page.
func (c *Client) fetchRemainingPages(ctx context.Context, jobID, token string, maxResults int, result *QueryResult) error {
	path := fmt.Sprintf("/projects/%s/queries/%s", c.projectID, jobID)
	for token != "" {
		params := url.Values{
			"maxResults": {strconv.Itoa(maxResults)},
			"pageToken":  {token},
			"location":   {c.location},
		}
		raw, err := c.doJSON(ctx, http.MethodGet, path, params, nil)
		if err != nil {
			return err
		}
		var resp queryResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return &InvalidResponseError{Msg: fmt.Sprintf("decode result page: %v", err), Payload: raw}
		}
		if len(result.Schema) == 0 {
			result.Schema = resp.schemaFields()
		}
		result.Rows = append(result.Rows, FormatRows(resp.Rows, result.Schema)...)
		token = resp.nextToken()
	}
	return nil
}

// doJSON performs one API call and returns the raw response body. Non-2xx
// statuses become TransportError with the payload attached; transient
// statuses were already retried by httputil.Do.
func (c *Client) doJSON(ctx context.Context, method, path string, params url.Values, body any) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	resp, err := httputil.Do(ctx, c.httpClient, func() (*http.Request, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}, c.retry)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response for %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 400 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Payload: raw}
	}
	return raw, nil
}

// coerceInt parses the API's stringly-typed counters. Anything non-numeric
// coerces to zero rather than failing the call.
func coerceInt(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
