package shell

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ValentinKolb/gStore/lib/registry"
	"github.com/google/go-cmp/cmp"
)

func runScript(t *testing.T, reg registry.IRegistry, script string) string {
	t.Helper()
	var out bytes.Buffer
	if err := newShell(reg, &out).run(strings.NewReader(script), false); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return out.String()
}

func TestShellReadWrite(t *testing.T) {
	reg := registry.NewRegistry(nil)
	out := runScript(t, reg, `
get missing
set user {"name": "ada"}
set user {"age": 36}
get user
default user {"name": "bob"}
default theme "dark"
getm theme user missing
`)

	for _, want := range []string{
		"missing = {}",
		`user = {"age":36,"name":"ada"}`,
		`theme = "dark"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}

	// getm keeps the order of the requested keys
	themeIdx := strings.LastIndex(out, `theme = "dark"`)
	userIdx := strings.LastIndex(out, `user = {"age":36,"name":"ada"}`)
	if themeIdx > userIdx {
		t.Errorf("Expected getm output in request order, got:\n%s", out)
	}
}

func TestShellSubscriptions(t *testing.T) {
	reg := registry.NewRegistry(nil)
	out := runScript(t, reg, `
sub counter
set counter 1
set counter 1
set counter 2
unsub 1
set counter 3
`)

	if got := strings.Count(out, "[sub 1] counter ="); got != 2 {
		t.Errorf("Expected 2 notifications, got %d:\n%s", got, out)
	}
	if strings.Contains(out, "[sub 1] counter = 3") {
		t.Errorf("Expected no notification after unsub, got:\n%s", out)
	}
	if !strings.Contains(out, "unsubscribed 1") {
		t.Errorf("Expected unsubscribe confirmation, got:\n%s", out)
	}

	// the shell detaches remaining subscriptions when it stops
	runScript(t, reg, "sub counter\nexit\n")
	if entry := reg.Get("counter", nil); entry.Subscribers != 0 {
		t.Errorf("Expected no subscribers after shell exit, got %d", entry.Subscribers)
	}
}

func TestShellBatchKeysDumpReset(t *testing.T) {
	reg := registry.NewRegistry(nil)
	out := runScript(t, reg, `
batch [{"key": "b", "value": 2}, {"key": "a", "value": {"x": true}}]
keys
dump
reset
keys
`)

	if !strings.Contains(out, "a\nb\n") {
		t.Errorf("Expected sorted keys, got:\n%s", out)
	}
	if !strings.Contains(out, `a = {"x":true}`+"\n"+`b = 2`) {
		t.Errorf("Expected sorted dump, got:\n%s", out)
	}
	if !strings.Contains(out, "reset successfully") {
		t.Errorf("Expected reset confirmation, got:\n%s", out)
	}
	if len(reg.Keys()) != 0 {
		t.Errorf("Expected empty registry after reset, got %v", reg.Keys())
	}
}

func TestShellErrors(t *testing.T) {
	reg := registry.NewRegistry(nil)
	out := runScript(t, reg, `
frobnicate
set key {not json
get
unsub x
unsub 42
batch nope
# comments are ignored
help
`)

	if got := strings.Count(out, "error:"); got != 6 {
		t.Errorf("Expected 6 errors, got %d:\n%s", got, out)
	}
	if !strings.Contains(out, "commands:") {
		t.Errorf("Expected help text, got:\n%s", out)
	}
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `
theme: dark
cart:
  items: 2
  owner: ada
count: 3
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	payload, err := loadSeed(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []registry.KeyValue{
		{Key: "cart", Value: registry.Object{"items": 2, "owner": "ada"}},
		{Key: "count", Value: 3},
		{Key: "theme", Value: "dark"},
	}
	if diff := cmp.Diff(want, payload); diff != "" {
		t.Errorf("Unexpected payload (-want +got):\n%s", diff)
	}

	if _, err := loadSeed(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Expected error for missing seed file")
	}
}

func TestMetricsServer(t *testing.T) {
	reg := registry.NewRegistry(nil)
	reg.UpdateByKey("key", 1)

	srv := newMetricsServer("localhost:0", reg)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "gstore_updates_total 1") {
		t.Errorf("Expected registry metrics in response, got:\n%s", body)
	}
}
