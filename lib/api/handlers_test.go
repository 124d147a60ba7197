package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cdn-blocker/lib/errdefs"
	"cdn-blocker/lib/networking"
)

type fakeService struct {
	statusErr error
	applyErr  error
	flushErr  error
	allowErr  error

	allowedPorts []string
	applies      int
	flushes      int
}

func (f *fakeService) Status() (*StatusReport, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &StatusReport{
		IPSetName: "cdn_block",
		ChainName: "CDN_BLOCK",
		Firewall:  &networking.Status{IPSetExists: true, ChainExists: true, ChainBound: true},
	}, nil
}

func (f *fakeService) Apply() (*ApplyReport, error) {
	f.applies++
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	return &ApplyReport{RangesApplied: 1500, TokensSkipped: 3}, nil
}

func (f *fakeService) Flush() error {
	f.flushes++
	return f.flushErr
}

func (f *fakeService) AllowPort(port string) error {
	if f.allowErr != nil {
		return f.allowErr
	}
	f.allowedPorts = append(f.allowedPorts, port)
	return nil
}

func doRequest(t *testing.T, svc Service, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	server := NewServerWithService(svc, "127.0.0.1:0")

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
		if method == http.MethodPost {
			req.Header.Set("Content-Type", "application/json")
		}
	}

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleStatus(t *testing.T) {
	rec := doRequest(t, &fakeService{}, http.MethodGet, "/api/v1/status", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}

	var resp struct {
		Data StatusReport `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Data.IPSetName != "cdn_block" || !resp.Data.Firewall.ChainBound {
		t.Errorf("unexpected status report: %+v", resp.Data)
	}
}

func TestHandleApply(t *testing.T) {
	svc := &fakeService{}
	rec := doRequest(t, svc, http.MethodPost, "/api/v1/apply", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	if svc.applies != 1 {
		t.Errorf("applies = %d, want 1", svc.applies)
	}

	var resp struct {
		Data ApplyReport `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Data.RangesApplied != 1500 || resp.Data.TokensSkipped != 3 {
		t.Errorf("unexpected apply report: %+v", resp.Data)
	}
}

func TestHandleApply_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"fetch failure maps to 502", fmt.Errorf("%w: timeout", errdefs.ErrFetchFailed), http.StatusBadGateway},
		{"invalid list maps to 502", fmt.Errorf("%w: html page", errdefs.ErrInvalidList), http.StatusBadGateway},
		{"partial apply maps to 500", errdefs.PartialApply("rule-group", fmt.Errorf("denied")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, &fakeService{applyErr: tt.err}, http.MethodPost, "/api/v1/apply", "")
			if rec.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestHandleFlush(t *testing.T) {
	svc := &fakeService{}
	rec := doRequest(t, svc, http.MethodPost, "/api/v1/flush", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}
	if svc.flushes != 1 {
		t.Errorf("flushes = %d, want 1", svc.flushes)
	}
}

func TestHandleAllowPort(t *testing.T) {
	svc := &fakeService{}
	rec := doRequest(t, svc, http.MethodPost, "/api/v1/allow-port", `{"port":"8080"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	if len(svc.allowedPorts) != 1 || svc.allowedPorts[0] != "8080" {
		t.Errorf("allowedPorts = %v, want [8080]", svc.allowedPorts)
	}
}

func TestHandleAllowPort_InvalidPortMapsTo400(t *testing.T) {
	svc := &fakeService{allowErr: fmt.Errorf("%w: out of range", errdefs.ErrInvalidPort)}
	rec := doRequest(t, svc, http.MethodPost, "/api/v1/allow-port", `{"port":"99999999"}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want 400", rec.Code)
	}
}

func TestHandleAllowPort_MalformedBody(t *testing.T) {
	rec := doRequest(t, &fakeService{}, http.MethodPost, "/api/v1/allow-port", `{"port":`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want 400", rec.Code)
	}
}

func TestContentTypeEnforcedOnPost(t *testing.T) {
	server := NewServerWithService(&fakeService{}, "127.0.0.1:0")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/flush", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want 400 without Content-Type", rec.Code)
	}
}
