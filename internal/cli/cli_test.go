package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	aflight "github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/hugr-lab/queryfilter/filter"
	"github.com/hugr-lab/queryfilter/flight"
	"github.com/hugr-lab/queryfilter/internal/config"
)

// newDatabase creates a SQLite database file with a pets table and returns
// a loaded config pointing at it.
func newDatabase(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "pets.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE pets (id INTEGER, full_name TEXT, legs INTEGER, wild INTEGER)`,
		`INSERT INTO pets VALUES (1, 'cat', 4, 0), (2, 'dog', 4, 0), (3, 'salmon', 0, 1), (4, 'monkey', 2, 1), (5, 'caterpillar', 16, 1)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to prepare database: %v", err)
		}
	}

	content := fmt.Sprintf(`
log_level = "debug"

[database]
driver = "sqlite"
dsn = %q

[[datasets]]
name = "pets"
table = "pets"
columns = [
  { name = "id", type = "int" },
  { name = "name", type = "string", column = "full_name" },
  { name = "legs", type = "int" },
  { name = "wild", type = "bool" },
]

[[tokens]]
token = "secret"
identity = "tester"
`, dbPath)
	cfgPath := filepath.Join(dir, "queryfilterd.toml")
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	cfg, err := config.LoadFrom(cfgPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	return cfg
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCheckCounts(t *testing.T) {
	cfg := newDatabase(t)
	var out bytes.Buffer
	if err := check(context.Background(), &out, cfg, "", nil); err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "pets: 5 records" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestCheckQuery(t *testing.T) {
	cfg := newDatabase(t)
	query := []byte(`{
		"filters": [
			{"filterType": "Equals", "propertyName": "wild", "comparer": {"identifier": 1}, "value": true},
		],
		"sortFilter": {"propertyName": "legs", "direction": "desc"},
		"take": 2,
	}`)

	var out bytes.Buffer
	if err := check(context.Background(), &out, cfg, "pets", query); err != nil {
		t.Fatalf("check failed: %v", err)
	}

	var page struct {
		Data []struct {
			Name string `json:"name"`
			Legs int    `json:"legs"`
		} `json:"data"`
		TotalCount int `json:"totalCount"`
	}
	if err := json.Unmarshal(out.Bytes(), &page); err != nil {
		t.Fatalf("output is not a page: %v\n%s", err, out.String())
	}
	if page.TotalCount != 3 || len(page.Data) != 2 {
		t.Fatalf("expected 2 of 3 records, got %+v", page)
	}
	if page.Data[0].Name != "caterpillar" || page.Data[1].Name != "monkey" {
		t.Errorf("unexpected order %+v", page.Data)
	}
}

func TestCheckQueryErrors(t *testing.T) {
	cfg := newDatabase(t)
	ctx := context.Background()

	var out bytes.Buffer
	if err := check(ctx, &out, cfg, "birds", []byte(`{}`)); err == nil || !strings.Contains(err.Error(), "unknown dataset") {
		t.Errorf("expected unknown dataset error, got %v", err)
	}

	err := check(ctx, &out, cfg, "pets", []byte(`{"filters": [{"filterType": "Fuzzy"}]}`))
	if !errors.Is(err, filter.ErrUnknownKind) || !strings.Contains(err.Error(), "StringContains") {
		t.Errorf("expected unknown kind error listing kinds, got %v", err)
	}

	out.Reset()
	err = check(ctx, &out, cfg, "pets", []byte(`{
		"filters": [{"filterType": "Range", "propertyName": "name", "comparer": {"identifier": 4}, "value": "a"}],
		"sortFilter": {"propertyName": "id"}
	}`))
	if !errors.Is(err, filter.ErrInvalidFilter) {
		t.Errorf("expected ErrInvalidFilter, got %v", err)
	}
	if !strings.Contains(out.String(), "(Range)") {
		t.Errorf("expected issue messages in output, got %q", out.String())
	}
}

func TestServe(t *testing.T) {
	cfg := newDatabase(t)
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg, lis, newTestLogger())
	}()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer conn.Close()
	client := aflight.NewFlightServiceClient(conn)

	ticket, err := flight.EncodeTicket("pets", &filter.Query{
		Groups: []filter.Group{{Filters: []filter.Variant{filter.NewStringContains("name", "cat")}}},
		Sort:   filter.Sort{Field: "id"},
	})
	if err != nil {
		t.Fatalf("EncodeTicket failed: %v", err)
	}

	callCtx, callCancel := context.WithTimeout(metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer secret"), 10*time.Second)
	defer callCancel()
	info, err := client.GetFlightInfo(callCtx, &aflight.FlightDescriptor{Type: aflight.DescriptorCMD, Cmd: ticket}, grpc.WaitForReady(true))
	if err != nil {
		t.Fatalf("GetFlightInfo failed: %v", err)
	}
	if info.GetTotalRecords() != 2 {
		t.Errorf("expected 2 records, got %d", info.GetTotalRecords())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestKindsCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"kinds"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("kinds failed: %v", err)
	}
	for _, want := range []string{"WithinBounds", "StringContains", "GreaterThanOrEqual"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in output:\n%s", want, out.String())
		}
	}
}
