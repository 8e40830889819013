package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/freshcart/basket/internal/auth"
)

// fakeStore serves the credential and catalog endpoints.
func fakeStore(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var c auth.Credentials
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch {
		case c.Email == "existinguser@example.com" && c.Password == "existingpassword123":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"user":  map[string]string{"name": "Test User", "role": "Customer"},
				"token": "test-token",
			})
		case c.Email == "bare@example.com":
			w.WriteHeader(http.StatusUnauthorized)
		case c.Email == "broken@example.com":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"user":`))
		case c.Email == "tokenless@example.com":
			writeJSON(w, http.StatusOK, map[string]interface{}{"user": map[string]string{"name": "X"}})
		default:
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		}
	})

	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var u auth.NewUser
		json.NewDecoder(r.Body).Decode(&u)
		if u.Username == "existinguser" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "User already exists"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"user":  map[string]string{"name": u.Username, "role": u.Role},
			"token": "fresh-token",
		})
	})

	mux.HandleFunc("/api/products/barcode/", func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimPrefix(r.URL.Path, "/api/products/barcode/")
		if code != "4006381333931" {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found"})
			return
		}
		writeJSON(w, http.StatusOK, Product{ID: 7, Barcode: code, Name: "Whole Milk", PriceCents: 189, Currency: "USD", InStock: true})
	})

	mux.HandleFunc("/api/products/", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/api/products/"))
		if err != nil || id%5 == 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such product"})
			return
		}
		writeJSON(w, http.StatusOK, Product{ID: id, Name: fmt.Sprintf("Product %d", id), PriceCents: int64(id * 100)})
	})

	mux.HandleFunc("/api/users/me/location", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer test-token" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(url, Options{})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "  ", "ftp://store", "store.example.com"} {
		if _, err := NewClient(u, Options{}); err == nil {
			t.Errorf("NewClient(%q) error = nil", u)
		}
	}
}

func TestSessionManagerAgainstService(t *testing.T) {
	srv, _ := fakeStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		run      func(m *auth.Manager) (auth.Session, error)
		status   auth.Status
		kind     auth.Kind
		message  string
		userName string
		token    string
	}{
		{
			name: "login with existing user",
			run: func(m *auth.Manager) (auth.Session, error) {
				return m.Login(ctx, auth.Credentials{Email: "existinguser@example.com", Password: "existingpassword123"})
			},
			status: auth.StatusSucceeded, userName: "Test User", token: "test-token",
		},
		{
			name: "login with wrong password",
			run: func(m *auth.Manager) (auth.Session, error) {
				return m.Login(ctx, auth.Credentials{Email: "invalid@example.com", Password: "wrongpassword"})
			},
			status: auth.StatusFailed, kind: auth.KindInvalidCredentials, message: "Invalid credentials",
		},
		{
			name: "login rejected without message",
			run: func(m *auth.Manager) (auth.Session, error) {
				return m.Login(ctx, auth.Credentials{Email: "bare@example.com", Password: "x"})
			},
			status: auth.StatusFailed, kind: auth.KindInvalidCredentials, message: "Request failed with status code 401",
		},
		{
			name: "login with truncated body",
			run: func(m *auth.Manager) (auth.Session, error) {
				return m.Login(ctx, auth.Credentials{Email: "broken@example.com", Password: "x"})
			},
			status: auth.StatusFailed, kind: auth.KindTransportFailure, message: auth.MessageMalformed,
		},
		{
			name: "login without token",
			run: func(m *auth.Manager) (auth.Session, error) {
				return m.Login(ctx, auth.Credentials{Email: "tokenless@example.com", Password: "x"})
			},
			status: auth.StatusFailed, kind: auth.KindTransportFailure, message: auth.MessageMalformed,
		},
		{
			name: "register existing user",
			run: func(m *auth.Manager) (auth.Session, error) {
				return m.Register(ctx, auth.NewUser{Username: "existinguser", Email: "existing@example.com", Password: "password123", Role: "Customer"})
			},
			status: auth.StatusFailed, kind: auth.KindDuplicateIdentity, message: "User already exists",
		},
		{
			name: "register new user",
			run: func(m *auth.Manager) (auth.Session, error) {
				return m.Register(ctx, auth.NewUser{Username: "newbie", Email: "newbie@example.com", Password: "password123", Role: "Customer"})
			},
			status: auth.StatusSucceeded, userName: "newbie", token: "fresh-token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := auth.NewManager(newTestClient(t, srv.URL), auth.NewMemoryStore(), auth.Options{})
			s, err := tt.run(m)
			if s.Status != tt.status {
				t.Fatalf("Status = %s, want %s (err %v)", s.Status, tt.status, err)
			}
			if tt.status == auth.StatusSucceeded {
				if err != nil {
					t.Fatalf("error = %v", err)
				}
				if s.User.Name != tt.userName || s.Token != tt.token {
					t.Errorf("session = %+v", s)
				}
				return
			}
			if auth.KindOf(err) != tt.kind {
				t.Errorf("kind = %s, want %s", auth.KindOf(err), tt.kind)
			}
			if s.ErrorMessage() != tt.message {
				t.Errorf("message = %q, want %q", s.ErrorMessage(), tt.message)
			}
		})
	}
}

func TestUnreachableServiceIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	m := auth.NewManager(newTestClient(t, url), auth.NewMemoryStore(), auth.Options{})
	s, err := m.Login(context.Background(), auth.Credentials{Email: "a@example.com", Password: "x"})
	if auth.KindOf(err) != auth.KindTransportFailure {
		t.Fatalf("kind = %s, want transport failure", auth.KindOf(err))
	}
	if s.ErrorMessage() != auth.MessageNetwork {
		t.Errorf("message = %q, want generic network message", s.ErrorMessage())
	}
}

func TestTimeoutIsTransportFailure(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(srv.URL, Options{Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Login(context.Background(), auth.Credentials{Email: "a@example.com", Password: "x"})
	if err == nil {
		t.Fatal("Login() error = nil, want timeout")
	}
	var re auth.ResponseError
	if errors.As(err, &re) {
		t.Errorf("timeout surfaced as HTTP response %d", re.StatusCode())
	}
}

func TestRequestHeaders(t *testing.T) {
	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL+"/", Options{Tokens: staticToken("abc")})
	if err := c.SetLocation(context.Background(), Location{Lat: 52.37, Lng: 4.89, Address: "Dam 1, Amsterdam"}); err != nil {
		t.Fatal(err)
	}
	got := <-headers
	if got.Get("Authorization") != "Bearer abc" {
		t.Errorf("Authorization = %q", got.Get("Authorization"))
	}
	if _, err := uuid.Parse(got.Get("X-Request-ID")); err != nil {
		t.Errorf("X-Request-ID %q is not a UUID", got.Get("X-Request-ID"))
	}
	if got.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", got.Get("Content-Type"))
	}
	if got.Get("User-Agent") != userAgent {
		t.Errorf("User-Agent = %q", got.Get("User-Agent"))
	}
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestSetLocation(t *testing.T) {
	srv, _ := fakeStore(t)
	ctx := context.Background()
	loc := Location{Lat: 40.7128, Lng: -74.006, Address: "1 Centre St, New York"}

	c := newTestClient(t, srv.URL)
	if err := c.SetLocation(ctx, loc); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("without token error = %v, want ErrUnauthenticated", err)
	}

	c.SetTokenSource(staticToken("test-token"))
	if err := c.SetLocation(ctx, loc); err != nil {
		t.Errorf("SetLocation() error = %v", err)
	}

	c.SetTokenSource(staticToken("stale"))
	err := c.SetLocation(ctx, loc)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized || se.ServiceMessage() != "Unauthorized" {
		t.Errorf("stale token error = %v", err)
	}
}

func TestLocationValidate(t *testing.T) {
	tests := []struct {
		name    string
		loc     Location
		wantMsg string
	}{
		{"null island", Location{Lat: 0, Lng: 0, Address: "Null Island"}, ""},
		{"poles and antimeridian", Location{Lat: -90, Lng: 180, Address: "x"}, ""},
		{"latitude too big", Location{Lat: 91, Lng: 0, Address: "x"}, "lat must be a latitude between -90 and 90"},
		{"longitude too small", Location{Lat: 0, Lng: -181, Address: "x"}, "lng must be a longitude between -180 and 180"},
		{"NaN coordinates", Location{Lat: math.NaN(), Lng: math.NaN(), Address: "x"},
			"lat must be a latitude between -90 and 90; lng must be a longitude between -180 and 180"},
		{"infinite longitude", Location{Lat: 1, Lng: math.Inf(1), Address: "x"}, "lng must be a longitude between -180 and 180"},
		{"blank address", Location{Lat: 10, Lng: 10, Address: "  "}, "address is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.loc.Validate()
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantMsg {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantMsg)
			}
		})
	}
}

func TestSetLocationRejectsNaNBeforeSending(t *testing.T) {
	srv, hits := fakeStore(t)
	c := newTestClient(t, srv.URL)
	c.SetTokenSource(staticToken("test-token"))

	err := c.SetLocation(context.Background(), Location{Lat: math.NaN(), Lng: 4.89, Address: "Dam 1"})
	if err == nil || !strings.Contains(err.Error(), "lat must be a latitude") {
		t.Fatalf("SetLocation() error = %v, want latitude validation error", err)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("server saw %d requests, want 0", n)
	}
}

func TestGetProductByBarcode(t *testing.T) {
	srv, _ := fakeStore(t)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	p, err := c.GetProductByBarcode(ctx, " 4006381-333931 ")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Whole Milk" || p.PriceCents != 189 {
		t.Errorf("product = %+v", p)
	}

	_, err = c.GetProductByBarcode(ctx, "5901234123457")
	if !IsNotFound(err) {
		t.Errorf("unknown barcode error = %v, want not found", err)
	}

	if _, err := c.GetProductByBarcode(ctx, "4006381333932"); err == nil {
		t.Error("bad check digit accepted")
	}
}

func TestBatchGetProductsKeepsOrder(t *testing.T) {
	srv, _ := fakeStore(t)
	c := newTestClient(t, srv.URL)
	ids := []int{3, 1, 5, 12, 7, 10, 2}

	got, err := c.BatchGetProducts(context.Background(), ids)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(ids) {
		t.Fatalf("len = %d, want %d", len(got), len(ids))
	}
	for i, id := range ids {
		if id%5 == 0 {
			if got[i] != nil {
				t.Errorf("ids[%d]=%d should have failed", i, id)
			}
			continue
		}
		if got[i] == nil || got[i].ID != id {
			t.Errorf("results[%d] = %+v, want id %d", i, got[i], id)
		}
	}
}

func TestStatusErrorFallsBackToErrorField(t *testing.T) {
	srv, _ := fakeStore(t)
	c := newTestClient(t, srv.URL)
	_, err := c.GetProduct(context.Background(), 10)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if se.Message != "no such product" {
		t.Errorf("Message = %q", se.Message)
	}
}
