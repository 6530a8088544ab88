// Package supabase implements the remote table store over the Supabase
// PostgREST API. Each domain table is an independent collection; the client
// only ever does select-all, insert-one, update-by-id and delete-by-id.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"ricarica/internal/core"
	"ricarica/internal/tablestore"
)

// Tables as they exist in the hosted project.
const (
	TableVehicles  = "vehicles"
	TableSuppliers = "suppliers"
	TableCharges   = "charges"
	TableSettings  = "settings"
)

// settingsRowID keys the single global settings row.
const settingsRowID = 1

// undefinedTable is the Postgres error code PostgREST forwards when the
// schema has not been created yet (first run).
const undefinedTable = "42P01"

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Ensure interface conformance
var (
	_ tablestore.VehicleStore   = (*Client)(nil)
	_ tablestore.SupplierStore  = (*Client)(nil)
	_ tablestore.SessionStore   = (*Client)(nil)
	_ tablestore.SettingsStore  = (*Client)(nil)
	_ tablestore.SessionWriter  = (*Client)(nil)
	_ tablestore.SessionDeleter = (*Client)(nil)
)

func NewClient(baseURL, apiKey string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("missing supabase url")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing supabase api key")
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// NewFromEnv creates a client from SUPABASE_URL and SUPABASE_ANON_KEY.
func NewFromEnv() (*Client, error) {
	return NewClient(os.Getenv("SUPABASE_URL"), os.Getenv("SUPABASE_ANON_KEY"))
}

// postgrestError is the JSON error shape PostgREST returns on failures.
type postgrestError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// do runs one request against /rest/v1/<path> and decodes the response into
// out when non-nil. Failures come back as *core.RemoteError.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &core.RemoteError{Op: op, Err: fmt.Errorf("encode body: %w", err)}
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/rest/v1/"+path, rd)
	if err != nil {
		return &core.RemoteError{Op: op, Err: err}
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch method {
	case http.MethodPost:
		// Insert must return the stored row (server-assigned id).
		req.Header.Set("Prefer", "return=representation,resolution=merge-duplicates")
	case http.MethodPatch, http.MethodDelete:
		req.Header.Set("Prefer", "return=minimal")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &core.RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &core.RemoteError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode >= 400 {
		var pe postgrestError
		_ = json.Unmarshal(raw, &pe)
		msg := pe.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &core.RemoteError{
			Op:            op,
			Err:           fmt.Errorf("status %d: %s", resp.StatusCode, msg),
			MissingTables: pe.Code == undefinedTable,
		}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &core.RemoteError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// CheckTables probes every table and returns the names of those missing,
// for the first-run setup tool.
func (c *Client) CheckTables(ctx context.Context) ([]string, error) {
	var missing []string
	for _, table := range []string{TableVehicles, TableSuppliers, TableCharges, TableSettings} {
		err := c.do(ctx, "check "+table, http.MethodGet, table+"?select=id&limit=1", nil, nil)
		if core.IsMissingTables(err) {
			missing = append(missing, table)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return missing, nil
}

func (c *Client) ListVehicles(ctx context.Context) ([]core.Vehicle, error) {
	var rows []vehicleRow
	if err := c.do(ctx, "list vehicles", http.MethodGet, TableVehicles+"?select=*&order=id.asc", nil, &rows); err != nil {
		return nil, err
	}
	out := make([]core.Vehicle, len(rows))
	for i, r := range rows {
		out[i] = r.domain()
	}
	return out, nil
}

func (c *Client) InsertVehicle(ctx context.Context, v core.Vehicle) (core.Vehicle, error) {
	if err := v.Validate(); err != nil {
		return core.Vehicle{}, err
	}
	var rows []vehicleRow
	if err := c.do(ctx, "insert vehicle", http.MethodPost, TableVehicles, newVehicleRow(v), &rows); err != nil {
		return core.Vehicle{}, err
	}
	if len(rows) == 0 {
		return core.Vehicle{}, &core.RemoteError{Op: "insert vehicle", Err: errors.New("empty representation")}
	}
	return rows[0].domain(), nil
}

func (c *Client) DeleteVehicle(ctx context.Context, id int64) error {
	return c.do(ctx, "delete vehicle", http.MethodDelete, fmt.Sprintf("%s?id=eq.%d", TableVehicles, id), nil, nil)
}

func (c *Client) ListSuppliers(ctx context.Context) ([]core.Supplier, error) {
	var rows []supplierRow
	if err := c.do(ctx, "list suppliers", http.MethodGet, TableSuppliers+"?select=*&order=id.asc", nil, &rows); err != nil {
		return nil, err
	}
	out := make([]core.Supplier, len(rows))
	for i, r := range rows {
		out[i] = r.domain()
	}
	return out, nil
}

func (c *Client) InsertSupplier(ctx context.Context, s core.Supplier) (core.Supplier, error) {
	if err := s.Validate(); err != nil {
		return core.Supplier{}, err
	}
	var rows []supplierRow
	if err := c.do(ctx, "insert supplier", http.MethodPost, TableSuppliers, newSupplierRow(s), &rows); err != nil {
		return core.Supplier{}, err
	}
	if len(rows) == 0 {
		return core.Supplier{}, &core.RemoteError{Op: "insert supplier", Err: errors.New("empty representation")}
	}
	return rows[0].domain(), nil
}

func (c *Client) UpdateSupplier(ctx context.Context, s core.Supplier) error {
	if err := s.Validate(); err != nil {
		return err
	}
	row := newSupplierRow(s)
	return c.do(ctx, "update supplier", http.MethodPatch, fmt.Sprintf("%s?id=eq.%d", TableSuppliers, s.ID), row, nil)
}

func (c *Client) DeleteSupplier(ctx context.Context, id int64) error {
	return c.do(ctx, "delete supplier", http.MethodDelete, fmt.Sprintf("%s?id=eq.%d", TableSuppliers, id), nil, nil)
}

func (c *Client) ListSessions(ctx context.Context) ([]core.ChargeSession, error) {
	var rows []chargeRow
	if err := c.do(ctx, "list sessions", http.MethodGet, TableCharges+"?select=*&order=date.desc", nil, &rows); err != nil {
		return nil, err
	}
	out := make([]core.ChargeSession, len(rows))
	for i, r := range rows {
		out[i] = r.domain()
	}
	return out, nil
}

func (c *Client) ListVehicleSessions(ctx context.Context, vehicleID int64) ([]core.ChargeSession, error) {
	path := fmt.Sprintf("%s?select=*&vehicle_id=eq.%d&order=date.desc", TableCharges, vehicleID)
	var rows []chargeRow
	if err := c.do(ctx, "list vehicle sessions", http.MethodGet, path, nil, &rows); err != nil {
		return nil, err
	}
	out := make([]core.ChargeSession, len(rows))
	for i, r := range rows {
		out[i] = r.domain()
	}
	return out, nil
}

func (c *Client) GetSession(ctx context.Context, id int64) (core.ChargeSession, error) {
	var rows []chargeRow
	path := fmt.Sprintf("%s?select=*&id=eq.%d", TableCharges, id)
	if err := c.do(ctx, "get session", http.MethodGet, path, nil, &rows); err != nil {
		return core.ChargeSession{}, err
	}
	if len(rows) == 0 {
		return core.ChargeSession{}, core.NotFound("session", id)
	}
	return rows[0].domain(), nil
}

func (c *Client) InsertSession(ctx context.Context, s core.ChargeSession) (core.ChargeSession, error) {
	if err := s.Validate(); err != nil {
		return core.ChargeSession{}, err
	}
	var rows []chargeRow
	if err := c.do(ctx, "insert session", http.MethodPost, TableCharges, newChargeRow(s), &rows); err != nil {
		return core.ChargeSession{}, err
	}
	if len(rows) == 0 {
		return core.ChargeSession{}, &core.RemoteError{Op: "insert session", Err: errors.New("empty representation")}
	}
	return rows[0].domain(), nil
}

func (c *Client) UpdateSession(ctx context.Context, s core.ChargeSession) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return c.do(ctx, "update session", http.MethodPatch, fmt.Sprintf("%s?id=eq.%d", TableCharges, s.ID), newChargeRow(s), nil)
}

func (c *Client) DeleteSession(ctx context.Context, id int64) error {
	return c.do(ctx, "delete session", http.MethodDelete, fmt.Sprintf("%s?id=eq.%d", TableCharges, id), nil, nil)
}

func (c *Client) LoadSettings(ctx context.Context) (core.Settings, error) {
	var rows []settingsRow
	path := fmt.Sprintf("%s?select=*&id=eq.%d", TableSettings, settingsRowID)
	if err := c.do(ctx, "load settings", http.MethodGet, path, nil, &rows); err != nil {
		return core.Settings{}, err
	}
	if len(rows) == 0 {
		return core.DefaultSettings(), nil
	}
	return rows[0].domain(), nil
}

func (c *Client) SaveSettings(ctx context.Context, s core.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	// Upsert of the single row; merge-duplicates is set on every POST.
	return c.do(ctx, "save settings", http.MethodPost, TableSettings, newSettingsRow(s), nil)
}

// AppendSession implements the sync worker's remote writer port.
func (c *Client) AppendSession(ctx context.Context, s core.ChargeSession) (string, error) {
	stored, err := c.InsertSession(ctx, s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", TableCharges, stored.ID), nil
}

// RemoveSession implements the sync worker's remote deleter port.
func (c *Client) RemoveSession(ctx context.Context, id int64) error {
	return c.DeleteSession(ctx, id)
}
