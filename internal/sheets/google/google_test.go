package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"billtrack/internal/core"
	ports "billtrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type fakeSheets struct {
	mu       sync.Mutex
	header   bool
	appended [][]any
	updates  int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		if f.header {
			_, _ = io.WriteString(w, `{"values":[["Recorded At"]]}`)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPut:
		f.updates++
		f.header = true
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.appended = append(f.appended, vr.Values...)
		_, _ = io.WriteString(w, `{"updates":{"updatedRange":"Bills!A2:L2"}}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return NewWithService(svc, "sheet-id", "Bills"), fake
}

func TestAppendEntry(t *testing.T) {
	c, fake := newTestClient(t)
	row := core.Row{ID: "r1", Date: "2024-01-02", Description: "Widget A", Quantity: 2, UnitCost: 123.45, Total: 246.9}

	ref, err := c.AppendEntry(context.Background(), ports.LedgerEntry{
		RecordedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		RowID:      "r1",
		Version:    3,
		Op:         "update",
		Row:        &row,
	})
	if err != nil {
		t.Fatalf("AppendEntry() error = %v", err)
	}
	if ref != "Bills!A2:L2" {
		t.Errorf("AppendEntry() ref = %q", ref)
	}
	if len(fake.appended) != 1 {
		t.Fatalf("appended %d rows, want 1", len(fake.appended))
	}
	got := fake.appended[0]
	if len(got) != len(ports.LedgerHeader) {
		t.Fatalf("appended %d cells, want %d", len(got), len(ports.LedgerHeader))
	}
	if got[0] != "2024-01-02T03:04:05Z" || got[1] != "r1" || got[5] != "Widget A" {
		t.Errorf("unexpected cells: %v", got)
	}
}

func TestEnsureHeaderWritesOnce(t *testing.T) {
	c, fake := newTestClient(t)
	for i := 0; i < 2; i++ {
		if err := c.EnsureHeader(context.Background()); err != nil {
			t.Fatalf("EnsureHeader() error = %v", err)
		}
	}
	if fake.updates != 1 {
		t.Errorf("header written %d times, want 1", fake.updates)
	}
}

func TestNilService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: "Bills"}
	if _, err := c.AppendEntry(context.Background(), ports.LedgerEntry{RowID: "x"}); err == nil {
		t.Error("expected error with nil service")
	}
	if err := c.EnsureHeader(context.Background()); err == nil {
		t.Error("expected error with nil service")
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(file, []byte(`{"from":"file"}`), 0600); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	tests := []struct {
		name    string
		creds   Credentials
		want    string
		wantErr bool
	}{
		{name: "inline wins", creds: Credentials{JSON: `{"from":"inline"}`, File: file}, want: `{"from":"inline"}`},
		{name: "file", creds: Credentials{File: file}, want: `{"from":"file"}`},
		{name: "application default file", creds: Credentials{ApplicationFile: file}, want: `{"from":"file"}`},
		{name: "missing file", creds: Credentials{File: filepath.Join(dir, "nope.json")}, wantErr: true},
		{name: "nothing", creds: Credentials{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loadCredentials(ctx, tt.creds)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil || string(got) != tt.want {
				t.Fatalf("loadCredentials() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestLastColumn(t *testing.T) {
	if got := lastColumn(); got != "L" {
		t.Errorf("lastColumn() = %q, want L", got)
	}
}
