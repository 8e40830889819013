package cli

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/freshcart/basket/internal/api"
	"github.com/freshcart/basket/internal/auth"
)

func storeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var c auth.Credentials
		json.NewDecoder(r.Body).Decode(&c)
		if c.Email == "alice@example.com" && c.Password == "password123" {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"user":  map[string]string{"name": "Alice", "role": "Customer"},
				"token": "tok-alice",
			})
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
	})
	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var u auth.NewUser
		json.NewDecoder(r.Body).Decode(&u)
		if u.Email == "alice@example.com" {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "User already exists"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"user":  map[string]string{"name": u.Username, "role": u.Role},
			"token": "tok-" + u.Username,
		})
	})
	mux.HandleFunc("/api/products/barcode/", func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimPrefix(r.URL.Path, "/api/products/barcode/")
		if code != "4006381333931" {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found"})
			return
		}
		writeJSON(w, http.StatusOK, api.Product{
			ID: 7, Barcode: code, Name: "Whole Milk", Brand: "Dairyland",
			PriceCents: 189, Currency: "USD", Unit: "1 L", InStock: true,
			Description: "<p>Fresh whole milk.</p>",
		})
	})
	mux.HandleFunc("/api/users/me/location", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-alice" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeConfig points every path at a temp dir and the API at baseURL.
func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "basket.yaml")
	yaml := fmt.Sprintf(`cache:
  dir: %[1]s
  db_path: %[1]s/cache.db
log:
  path: %[1]s/debug.log
  level: debug
api:
  base_url: %[2]s
  timeout: 2s
session:
  store: file
  dir: %[1]s/session
`, dir, baseURL)
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, cfg, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestLoginWhoamiLogout(t *testing.T) {
	cfg := writeConfig(t, storeServer(t).URL)

	out, err := run(t, cfg, "", "login", "--email", "alice@example.com", "--password", "password123")
	if err != nil {
		t.Fatalf("login error = %v", err)
	}
	if out != "Signed in as Alice (Customer)\n" {
		t.Errorf("login output = %q", out)
	}

	// A separate invocation restores the saved session.
	out, err = run(t, cfg, "", "whoami")
	if err != nil || out != "Alice (Customer)\n" {
		t.Fatalf("whoami = %q, %v", out, err)
	}

	out, err = run(t, cfg, "", "location", "--lat", "52.52", "--lng", "13.405", "--address", "Alexanderplatz 1")
	if err != nil {
		t.Fatalf("location error = %v", err)
	}
	if !strings.Contains(out, "Alexanderplatz 1") {
		t.Errorf("location output = %q", out)
	}

	out, err = run(t, cfg, "", "logout")
	if err != nil || out != "Signed out\n" {
		t.Fatalf("logout = %q, %v", out, err)
	}
	out, _ = run(t, cfg, "", "whoami")
	if out != "Not signed in\n" {
		t.Errorf("whoami after logout = %q", out)
	}
	out, _ = run(t, cfg, "", "logout")
	if out != "Not signed in\n" {
		t.Errorf("second logout = %q", out)
	}
}

func TestLoginPasswordFromStdin(t *testing.T) {
	cfg := writeConfig(t, storeServer(t).URL)
	out, err := run(t, cfg, "password123\n", "login", "--email", "alice@example.com")
	if err != nil {
		t.Fatalf("login error = %v", err)
	}
	if !strings.HasPrefix(out, "Signed in as Alice") {
		t.Errorf("login output = %q", out)
	}
}

func TestLoginFailureShowsServiceMessage(t *testing.T) {
	cfg := writeConfig(t, storeServer(t).URL)
	_, err := run(t, cfg, "", "login", "--email", "alice@example.com", "--password", "wrongpass")
	if err == nil || !strings.Contains(err.Error(), "Invalid credentials") {
		t.Fatalf("login error = %v, want service message", err)
	}
	out, _ := run(t, cfg, "", "whoami")
	if out != "Not signed in\n" {
		t.Errorf("whoami after failed login = %q", out)
	}
}

func TestFailedLoginSignsOutPreviousUser(t *testing.T) {
	cfg := writeConfig(t, storeServer(t).URL)
	if _, err := run(t, cfg, "", "login", "--email", "alice@example.com", "--password", "password123"); err != nil {
		t.Fatalf("login error = %v", err)
	}
	if _, err := run(t, cfg, "", "login", "--email", "bob@example.com", "--password", "wrongpass"); err == nil {
		t.Fatal("second login should fail")
	}
	out, _ := run(t, cfg, "", "whoami")
	if out != "Not signed in\n" {
		t.Errorf("whoami after failed login = %q, want Not signed in", out)
	}
}

func TestLoginValidatesBeforeCallingService(t *testing.T) {
	cfg := writeConfig(t, "http://127.0.0.1:1")
	_, err := run(t, cfg, "", "login", "--email", "not-an-email", "--password", "x")
	if err == nil || !strings.Contains(err.Error(), "valid email") {
		t.Errorf("login error = %v", err)
	}
	if _, err := run(t, cfg, "", "login"); err == nil {
		t.Error("login without --email should fail")
	}
}

func TestRegister(t *testing.T) {
	cfg := writeConfig(t, storeServer(t).URL)

	_, err := run(t, cfg, "", "register", "--username", "alice", "--email", "alice@example.com", "--password", "password123")
	if err == nil || !strings.Contains(err.Error(), "User already exists") {
		t.Fatalf("duplicate register error = %v", err)
	}

	out, err := run(t, cfg, "", "register", "--username", "bob", "--email", "bob@example.com",
		"--password", "password123", "--role", "Staff")
	if err != nil {
		t.Fatalf("register error = %v", err)
	}
	if out != "Registered and signed in as bob (Staff)\n" {
		t.Errorf("register output = %q", out)
	}
	out, _ = run(t, cfg, "", "whoami")
	if out != "bob (Staff)\n" {
		t.Errorf("whoami after register = %q", out)
	}

	if _, err := run(t, cfg, "", "register", "--username", "eve", "--email", "eve@example.com",
		"--password", "password123", "--role", "Owner"); err == nil {
		t.Error("unknown role should be rejected")
	}
}

func TestLookup(t *testing.T) {
	cfg := writeConfig(t, storeServer(t).URL)

	out, err := run(t, cfg, "", "lookup", "4006-3813-3393-1")
	if err != nil {
		t.Fatalf("lookup error = %v", err)
	}
	for _, want := range []string{"Whole Milk", "Dairyland", "$1.89 / 1 L", "in stock", "Fresh whole milk."} {
		if !strings.Contains(out, want) {
			t.Errorf("lookup output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, cfg, "", "lookup", "--json", "4006381333931")
	if err != nil {
		t.Fatal(err)
	}
	var p api.Product
	if err := json.Unmarshal([]byte(out), &p); err != nil || p.ID != 7 {
		t.Errorf("lookup --json = %q, %v", out, err)
	}

	if _, err := run(t, cfg, "", "lookup", "5901234123457"); err == nil || !strings.Contains(err.Error(), "no product found") {
		t.Errorf("unknown barcode error = %v", err)
	}
	if _, err := run(t, cfg, "", "lookup", "4006381333932"); err == nil {
		t.Error("bad check digit should be rejected")
	}
}

func TestLookupFallsBackWhenCacheUnreadable(t *testing.T) {
	cfg := writeConfig(t, storeServer(t).URL)
	dir := filepath.Dir(cfg)

	if _, err := run(t, cfg, "", "lookup", "4006381333931"); err != nil {
		t.Fatalf("first lookup error = %v", err)
	}

	// A text price cannot be scanned back into the product.
	db, err := sql.Open("sqlite", filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`UPDATE products SET price_cents = 'not-a-number' WHERE id = 7`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	out, err := run(t, cfg, "", "lookup", "4006381333931")
	if err != nil {
		t.Fatalf("lookup error = %v", err)
	}
	if !strings.Contains(out, "$1.89") {
		t.Errorf("lookup output = %q, want the fetched price", out)
	}
	logged, err := os.ReadFile(filepath.Join(dir, "debug.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(logged), "reading product cache") {
		t.Errorf("cache read error not logged:\n%s", logged)
	}
}

func TestCommandsThatNeedASession(t *testing.T) {
	cfg := writeConfig(t, storeServer(t).URL)

	if _, err := run(t, cfg, "", "lookup", "--watch", "4006381333931"); !errors.Is(err, errNotSignedIn) {
		t.Errorf("lookup --watch error = %v, want errNotSignedIn", err)
	}
	if _, err := run(t, cfg, "", "location", "--lat", "1", "--lng", "2", "--address", "Main St"); !errors.Is(err, errNotSignedIn) {
		t.Errorf("location error = %v, want errNotSignedIn", err)
	}

	if _, err := run(t, cfg, "", "login", "--email", "alice@example.com", "--password", "password123"); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, cfg, "", "lookup", "--watch", "4006381333931")
	if err != nil {
		t.Fatalf("lookup --watch error = %v", err)
	}
	if !strings.Contains(out, "Watching for price changes") {
		t.Errorf("lookup --watch output = %q", out)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, writeConfig(t, "http://127.0.0.1:1"), "", "version")
	if err != nil || !strings.HasPrefix(out, "basket "+Version) {
		t.Errorf("version = %q, %v", out, err)
	}
}
