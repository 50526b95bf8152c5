package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Snapshot captures a project's datasets, tables, schemas and sample rows at
// one point in time. It is built transiently and rendered to a file; nothing
// here is persisted relationally.
type Snapshot struct {
	ProjectID string
	Location  string
	Datasets  map[string]DatasetMetadata
}

type DatasetMetadata struct {
	Tables map[string]TableMetadata
}

type TableMetadata struct {
	Schema     []Field
	SampleRows []map[string]any
}

// Project is one entry from the project listing.
type Project struct {
	ID           string
	FriendlyName string
}

type datasetListPage struct {
	Datasets []struct {
		DatasetReference struct {
			DatasetID string `json:"datasetId"`
		} `json:"datasetReference"`
	} `json:"datasets"`
	NextPageToken string `json:"nextPageToken"`
	PageToken     string `json:"pageToken"`
}

type tableListPage struct {
	Tables []struct {
		TableReference struct {
			TableID string `json:"tableId"`
		} `json:"tableReference"`
	} `json:"tables"`
	NextPageToken string `json:"nextPageToken"`
	PageToken     string `json:"pageToken"`
}

type tableGetResponse struct {
	Schema *tableSchema `json:"schema"`
}

type tableDataPage struct {
	Schema *tableSchema `json:"schema"`
	Rows   []Row        `json:"rows"`
}

type projectListPage struct {
	Projects []struct {
		ID           string `json:"id"`
		FriendlyName string `json:"friendlyName"`
		ProjectReference struct {
			ProjectID string `json:"projectId"`
		} `json:"projectReference"`
	} `json:"projects"`
	NextPageToken string `json:"nextPageToken"`
	PageToken     string `json:"pageToken"`
}

// forEachPage drives a token-paged list endpoint: repeat with the token
// until no token remains. page returns the next token.
func (c *Client) forEachPage(ctx context.Context, path string, params url.Values, page func(raw []byte) (string, error)) error {
	token := ""
	for {
		q := url.Values{}
		for k, vs := range params {
			q[k] = vs
		}
		if token != "" {
			q.Set("pageToken", token)
		}
		raw, err := c.doJSON(ctx, http.MethodGet, path, q, nil)
		if err != nil {
			return err
		}
		token, err = page(raw)
		if err != nil {
			return err
		}
		if token == "" {
			return nil
		}
	}
}

// ListDatasets returns the dataset ids in the project. An empty project is
// an empty list, not an error.
func (c *Client) ListDatasets(ctx context.Context) ([]string, error) {
	path := fmt.Sprintf("/projects/%s/datasets", c.projectID)
	params := url.Values{"maxResults": {strconv.Itoa(defaultPageSize)}}

	ids := []string{}
	err := c.forEachPage(ctx, path, params, func(raw []byte) (string, error) {
		var page datasetListPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return "", &InvalidResponseError{Msg: fmt.Sprintf("decode dataset list: %v", err), Payload: raw}
		}
		for _, ds := range page.Datasets {
			if id := ds.DatasetReference.DatasetID; id != "" {
				ids = append(ids, id)
			}
		}
		return firstToken(page.PageToken, page.NextPageToken), nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListTables returns the table ids in a dataset.
func (c *Client) ListTables(ctx context.Context, datasetID string) ([]string, error) {
	if datasetID == "" {
		return nil, &InvalidArgumentError{Msg: "datasetID is required"}
	}
	path := fmt.Sprintf("/projects/%s/datasets/%s/tables", c.projectID, datasetID)
	params := url.Values{"maxResults": {strconv.Itoa(defaultPageSize)}}

	ids := []string{}
	err := c.forEachPage(ctx, path, params, func(raw []byte) (string, error) {
		var page tableListPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return "", &InvalidResponseError{Msg: fmt.Sprintf("decode table list: %v", err), Payload: raw}
		}
		for _, t := range page.Tables {
			if id := t.TableReference.TableID; id != "" {
				ids = append(ids, id)
			}
		}
		return firstToken(page.PageToken, page.NextPageToken), nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// TableSchema fetches a table's field definitions. A response without a
// schema key yields an empty field list rather than an error.
func (c *Client) TableSchema(ctx context.Context, datasetID, tableID string) ([]Field, error) {
	if datasetID == "" || tableID == "" {
		return nil, &InvalidArgumentError{Msg: "datasetID and tableID are required"}
	}
	path := fmt.Sprintf("/projects/%s/datasets/%s/tables/%s", c.projectID, datasetID, tableID)
	raw, err := c.doJSON(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	var resp tableGetResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &InvalidResponseError{Msg: fmt.Sprintf("decode table: %v", err), Payload: raw}
	}
	if resp.Schema == nil {
		return []Field{}, nil
	}
	return resp.Schema.Fields, nil
}

// SampleRows fetches up to maxResults rows from the table data endpoint.
// Sampling is bounded by nature, so only one page is requested. A
// non-positive maxResults short-circuits without any network call.
func (c *Client) SampleRows(ctx context.Context, datasetID, tableID string, maxResults int) ([]map[string]any, error) {
	if datasetID == "" || tableID == "" {
		return nil, &InvalidArgumentError{Msg: "datasetID and tableID are required"}
	}
	if maxResults <= 0 {
		return []map[string]any{}, nil
	}
	path := fmt.Sprintf("/projects/%s/datasets/%s/tables/%s/data", c.projectID, datasetID, tableID)
	params := url.Values{"maxResults": {strconv.Itoa(maxResults)}}
	raw, err := c.doJSON(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return nil, err
	}
	var page tableDataPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, &InvalidResponseError{Msg: fmt.Sprintf("decode table data: %v", err), Payload: raw}
	}
	var schema []Field
	if page.Schema != nil {
		schema = page.Schema.Fields
	}
	return FormatRows(page.Rows, schema), nil
}

// ListProjects returns the projects visible to the authenticated account.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	params := url.Values{"maxResults": {strconv.Itoa(defaultPageSize)}}

	projects := []Project{}
	err := c.forEachPage(ctx, "/projects", params, func(raw []byte) (string, error) {
		var page projectListPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return "", &InvalidResponseError{Msg: fmt.Sprintf("decode project list: %v", err), Payload: raw}
		}
		for _, p := range page.Projects {
			id := p.ProjectReference.ProjectID
			if id == "" {
				id = p.ID
			}
			if id != "" {
				projects = append(projects, Project{ID: id, FriendlyName: p.FriendlyName})
			}
		}
		return firstToken(page.PageToken, page.NextPageToken), nil
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// Snapshot walks datasets, tables, schemas and samples into one structure.
// A nil datasetIDs walks everything ListDatasets returns. Any per-table
// failure aborts the whole snapshot; no partial snapshot is returned.
func (c *Client) Snapshot(ctx context.Context, datasetIDs []string, sampleSize int) (*Snapshot, error) {
	if len(datasetIDs) == 0 {
		var err error
		datasetIDs, err = c.ListDatasets(ctx)
		if err != nil {
			return nil, err
		}
	}

	snap := &Snapshot{
		ProjectID: c.projectID,
		Location:  c.location,
		Datasets:  map[string]DatasetMetadata{},
	}
	for _, datasetID := range datasetIDs {
		tables, err := c.ListTables(ctx, datasetID)
		if err != nil {
			return nil, fmt.Errorf("walk dataset %s: %w", datasetID, err)
		}
		entry := DatasetMetadata{Tables: map[string]TableMetadata{}}
		for _, tableID := range tables {
			schema, err := c.TableSchema(ctx, datasetID, tableID)
			if err != nil {
				return nil, fmt.Errorf("walk table %s.%s: %w", datasetID, tableID, err)
			}
			samples, err := c.SampleRows(ctx, datasetID, tableID, sampleSize)
			if err != nil {
				return nil, fmt.Errorf("sample table %s.%s: %w", datasetID, tableID, err)
			}
			entry.Tables[tableID] = TableMetadata{Schema: schema, SampleRows: samples}
		}
		snap.Datasets[datasetID] = entry
	}
	return snap, nil
}

func firstToken(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}
