package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ricarica/internal/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, "test-key")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresURLAndKey(t *testing.T) {
	if _, err := NewClient("", "key"); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewClient("https://x.supabase.co", " "); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestListSessionsSendsAuthAndOrder(t *testing.T) {
	var gotPath, gotKey, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	})

	sessions, err := c.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions, got %d", len(sessions))
	}
	if gotPath != "/rest/v1/charges?select=*&order=date.desc" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("apikey header = %q", gotKey)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
}

func TestInsertSessionReturnsStoredRow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if prefer := r.Header.Get("Prefer"); prefer != "return=representation,resolution=merge-duplicates" {
			t.Errorf("prefer header = %q", prefer)
		}
		var row chargeRow
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			t.Errorf("decode body: %v", err)
		}
		row.ID = 42
		json.NewEncoder(w).Encode([]chargeRow{row})
	})

	s := core.ChargeSession{
		VehicleID:    1,
		SupplierID:   1,
		SupplierName: "Casa",
		SupplierType: core.SupplierAC,
		Date:         time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		TotalKm:      1200,
		KWhAdded:     30,
		Cost:         7.5,
		Status:       core.StatusCompleted,
	}
	stored, err := c.InsertSession(context.Background(), s)
	if err != nil {
		t.Fatalf("InsertSession: %v", err)
	}
	if stored.ID != 42 {
		t.Fatalf("expected assigned id 42, got %d", stored.ID)
	}
	if stored.SupplierName != "Casa" {
		t.Fatalf("supplier name lost on round trip: %q", stored.SupplierName)
	}
}

func TestMissingTableIsDetected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"42P01","message":"relation \"public.charges\" does not exist"}`))
	})

	_, err := c.ListSessions(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !core.IsRemote(err) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if !core.IsMissingTables(err) {
		t.Fatalf("expected missing-tables error, got %v", err)
	}
}

func TestCheckTablesReportsMissing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("select") != "id" {
			t.Errorf("probe should select id only, got %q", r.URL.RawQuery)
		}
		switch r.URL.Path {
		case "/rest/v1/charges", "/rest/v1/settings":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"code":"42P01","message":"missing"}`))
		default:
			w.Write([]byte(`[]`))
		}
	})

	missing, err := c.CheckTables(context.Background())
	if err != nil {
		t.Fatalf("CheckTables: %v", err)
	}
	if len(missing) != 2 || missing[0] != "charges" || missing[1] != "settings" {
		t.Fatalf("missing = %v", missing)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := c.GetSession(context.Background(), 99)
	if !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLoadSettingsDefaultsOnEmptyTable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	got, err := c.LoadSettings(context.Background())
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got != core.DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestAppendSessionReturnsRowRef(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]chargeRow{{ID: 7, VehicleID: 1, SupplierID: 1, SupplierName: "Enel X", SupplierType: "DC", Date: time.Now().UTC(), TotalKm: 100, KWhAdded: 20, Cost: 12, Status: "completed"}})
	})

	ref, err := c.AppendSession(context.Background(), core.ChargeSession{
		VehicleID:    1,
		SupplierID:   1,
		SupplierName: "Enel X",
		SupplierType: core.SupplierDC,
		Date:         time.Now().UTC(),
		TotalKm:      100,
		KWhAdded:     20,
		Cost:         12,
		Status:       core.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("AppendSession: %v", err)
	}
	if ref != "charges:7" {
		t.Fatalf("row ref = %q", ref)
	}
}
