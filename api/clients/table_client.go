package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ruteri/identity-gateway/api"
	"github.com/ruteri/identity-gateway/interfaces"
)

// TableClient implements api.TableProvider over HTTP.
type TableClient struct {
	ServerAddr string
	AuthKey    string
	HTTPClient *http.Client
}

var _ api.TableProvider = (*TableClient)(nil)

func (c *TableClient) ListTables(ctx context.Context) ([]string, error) {
	var names []string
	err := c.do(ctx, http.MethodGet, api.PathTables, nil, http.StatusOK, &names)
	return names, err
}

func (c *TableClient) CreateTable(ctx context.Context, name string) error {
	body, err := json.Marshal(api.CreateTableRequest{Name: name})
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, api.PathTables, body, api.StatusTableMutated, nil)
}

func (c *TableClient) DropTable(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, tablePath(name), nil, api.StatusTableMutated, nil)
}

func (c *TableClient) ListRows(ctx context.Context, table string) ([]interfaces.Row, error) {
	var rows []interfaces.Row
	err := c.do(ctx, http.MethodGet, tablePath(table)+"/data", nil, http.StatusOK, &rows)
	return rows, err
}

func (c *TableClient) GetRow(ctx context.Context, table, key string) (json.RawMessage, error) {
	var value json.RawMessage
	err := c.do(ctx, http.MethodGet, rowPath(table, key), nil, http.StatusOK, &value)
	return value, err
}

func (c *TableClient) PutRow(ctx context.Context, table, key string, value json.RawMessage) error {
	return c.do(ctx, http.MethodPut, rowPath(table, key), value, api.StatusTableMutated, nil)
}

func (c *TableClient) DeleteRow(ctx context.Context, table, key string) error {
	return c.do(ctx, http.MethodDelete, rowPath(table, key), nil, api.StatusTableMutated, nil)
}

func (c *TableClient) do(ctx context.Context, method, path string, body []byte, expected int, out interface{}) error {
	target := fmt.Sprintf("%s%s%s?%s=%s", c.ServerAddr, api.AppDBPrefix, path, api.AuthKeyParam, url.QueryEscape(c.AuthKey))

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient(c.HTTPClient).Do(req)
	if err != nil {
		return fmt.Errorf("could not request %s endpoint: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != expected {
		return responseError(path, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse %s response: %w", path, err)
	}
	return nil
}

func tablePath(table string) string {
	return api.PathTables + "/" + url.PathEscape(table)
}

func rowPath(table, key string) string {
	return tablePath(table) + "/data/" + url.PathEscape(key)
}
