package lists

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cdn-blocker/lib/config"
	"cdn-blocker/lib/errdefs"
)

func TestFetch(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "plain list succeeds",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("104.16.0.0/13\n172.64.0.0/13\n"))
			},
		},
		{
			name: "non-200 status is a fetch failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusForbidden)
			},
			wantErr: errdefs.ErrFetchFailed,
		},
		{
			name: "empty body is an invalid list",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("   \n\n"))
			},
			wantErr: errdefs.ErrInvalidList,
		},
		{
			name: "html error page is an invalid list",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<!DOCTYPE html><html><body>502 Bad Gateway</body></html>"))
			},
			wantErr: errdefs.ErrInvalidList,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			body, err := Fetch(srv.URL, 5*time.Second)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Fetch() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch() unexpected error: %v", err)
			}
			if body == "" {
				t.Error("Fetch() returned empty body without error")
			}
		})
	}
}

func TestFetch_UnreachableServer(t *testing.T) {
	// Closed server: connection refused, mapped to FetchFailed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := Fetch(url, time.Second)
	if !errors.Is(err, errdefs.ErrFetchFailed) {
		t.Errorf("Fetch() error = %v, want ErrFetchFailed", err)
	}
}

func testConfig(urls ...string) *config.Config {
	cfg := config.Default()
	cfg.Sources = nil
	for i, u := range urls {
		cfg.Sources = append(cfg.Sources, &config.SourceConfig{
			SourceName: string(rune('a' + i)),
			URL:        u,
		})
	}
	return cfg
}

func TestBuildBlocklist_MergesSources(t *testing.T) {
	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("104.16.0.0/13\n192.0.2.0/24\n"))
	}))
	defer first.Close()
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("192.0.2.0/24\n172.64.0.0/13\nbogus\n"))
	}))
	defer second.Close()

	bl, err := BuildBlocklist(testConfig(first.URL, second.URL))
	if err != nil {
		t.Fatalf("BuildBlocklist() error = %v", err)
	}
	if bl.Len() != 3 {
		t.Errorf("Len() = %d, want 3 (duplicates collapse), prefixes: %v", bl.Len(), bl.Prefixes())
	}
	if bl.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1", bl.Skipped())
	}
}

func TestBuildBlocklist_AnyFailedSourceAborts(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("104.16.0.0/13\n"))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	if _, err := BuildBlocklist(testConfig(good.URL, bad.URL)); !errors.Is(err, errdefs.ErrFetchFailed) {
		t.Errorf("BuildBlocklist() error = %v, want ErrFetchFailed", err)
	}
}

func TestBuildBlocklist_NoUsableRanges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# nothing but comments\njunk-token\n"))
	}))
	defer srv.Close()

	if _, err := BuildBlocklist(testConfig(srv.URL)); !errors.Is(err, errdefs.ErrInvalidList) {
		t.Errorf("BuildBlocklist() error = %v, want ErrInvalidList", err)
	}
}
