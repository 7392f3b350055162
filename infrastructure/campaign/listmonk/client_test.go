package listmonk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"digest-courier/core/domain"
	apperrors "digest-courier/core/errors"
	"digest-courier/pkg/retry"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields map[string]interface{}) {}
func (nopLogger) Info(msg string, fields map[string]interface{})  {}
func (nopLogger) Warn(msg string, fields map[string]interface{})  {}
func (nopLogger) Error(msg string, fields map[string]interface{}) {}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:  serverURL,
		Username: "courier",
		APIToken: "secret",
	}, fastPolicy(), nopLogger{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func fastPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	}
}

func validRequest() domain.CampaignRequest {
	return domain.CampaignRequest{
		Name:    "Weekly Digest",
		Subject: "Weekly Digest",
		Body:    "<html><body>hi</body></html>",
		AltBody: "hi",
		ListIDs: []int{1},
		Tags:    []string{"digest"},
		Archive: true,
	}
}

func TestNewClient_RequiresConfig(t *testing.T) {
	if _, err := NewClient(Config{Username: "u", APIToken: "t"}, fastPolicy(), nopLogger{}); err == nil {
		t.Error("NewClient should fail without a base URL")
	}
	if _, err := NewClient(Config{BaseURL: "http://x"}, fastPolicy(), nopLogger{}); err == nil {
		t.Error("NewClient should fail without credentials")
	}
}

func TestCreateCampaign_Success(t *testing.T) {
	var captured map[string]interface{}
	var capturedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/campaigns" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		capturedAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)

		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{"data":{"id":17,"status":"draft"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.CreateCampaign(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("CreateCampaign returned error: %v", err)
	}

	if result.ID != 17 || result.Status != "draft" {
		t.Errorf("result = %+v, want ID 17 status draft", result)
	}
	if capturedAuth != "token courier:secret" {
		t.Errorf("Authorization = %q, want token courier:secret", capturedAuth)
	}
	if captured["content_type"] != "html" {
		t.Errorf("content_type = %v, want html", captured["content_type"])
	}
	if captured["messenger"] != "email" || captured["type"] != "regular" {
		t.Errorf("messenger/type = %v/%v, want email/regular", captured["messenger"], captured["type"])
	}
	if captured["send_at"] != nil {
		t.Errorf("send_at = %v, want null for immediate send", captured["send_at"])
	}
	if captured["archive"] != true {
		t.Error("archive should be true")
	}
}

func TestCreateCampaign_FormatsSendAt(t *testing.T) {
	var captured map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		io.WriteString(w, `{"data":{"id":1,"status":"scheduled"}}`)
	}))
	defer server.Close()

	sendAt := time.Date(2025, 9, 1, 10, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	req := validRequest()
	req.SendAt = &sendAt

	client := newTestClient(t, server.URL)
	if _, err := client.CreateCampaign(context.Background(), req); err != nil {
		t.Fatalf("CreateCampaign returned error: %v", err)
	}

	if captured["send_at"] != "2025-09-01T08:30:00Z" {
		t.Errorf("send_at = %v, want UTC timestamp", captured["send_at"])
	}
}

func TestCreateCampaign_AuthErrorNotRetried(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"message":"invalid token"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.CreateCampaign(context.Background(), validRequest())

	if !apperrors.IsAuthentication(err) {
		t.Fatalf("error = %v, want AuthenticationError", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("server received %d requests, want 1 (no auth retries)", calls)
	}
}

func TestCreateCampaign_ValidationErrorNotRetried(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"message":"no lists selected"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.CreateCampaign(context.Background(), validRequest())

	if !apperrors.IsValidation(err) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	var verr *apperrors.ValidationError
	if !errors.As(err, &verr) || verr.Message != "no lists selected" {
		t.Errorf("validation message not propagated: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("server received %d requests, want 1 (no validation retries)", calls)
	}
}

func TestCreateCampaign_RetriesServerErrors(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"data":{"id":5,"status":"draft"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.CreateCampaign(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("CreateCampaign returned error: %v", err)
	}
	if result.ID != 5 {
		t.Errorf("result.ID = %d, want 5", result.ID)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("server received %d requests, want 3", calls)
	}
}

func TestCreateCampaign_ExhaustionReturnsTransientError(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.CreateCampaign(context.Background(), validRequest())

	if !apperrors.IsTransientAPI(err) {
		t.Fatalf("error = %v, want TransientAPIError", err)
	}
	var terr *apperrors.TransientAPIError
	if !errors.As(err, &terr) {
		t.Fatalf("error does not unwrap to TransientAPIError: %v", err)
	}
	if terr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", terr.StatusCode)
	}
	if terr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", terr.Attempts)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("server received %d requests, want 3", calls)
	}
}

func TestScheduleCampaign_StatusBody(t *testing.T) {
	var capturedPath string
	var captured map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		capturedPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		io.WriteString(w, `{"data":{"id":9,"status":"running"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	if err := client.ScheduleCampaign(context.Background(), 9, nil); err != nil {
		t.Fatalf("ScheduleCampaign returned error: %v", err)
	}
	if capturedPath != "/api/campaigns/9/status" {
		t.Errorf("path = %s", capturedPath)
	}
	if captured["status"] != "running" {
		t.Errorf("status = %q, want running for immediate send", captured["status"])
	}

	at := time.Now().Add(time.Hour)
	if err := client.ScheduleCampaign(context.Background(), 9, &at); err != nil {
		t.Fatalf("ScheduleCampaign returned error: %v", err)
	}
	if captured["status"] != "scheduled" {
		t.Errorf("status = %q, want scheduled for future send", captured["status"])
	}
}

func TestSendTestEmails(t *testing.T) {
	var captured map[string][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/campaigns/4/test" {
			t.Errorf("path = %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		io.WriteString(w, `{"data":true}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.SendTestEmails(context.Background(), 4, []string{"me@example.com"})
	if err != nil {
		t.Fatalf("SendTestEmails returned error: %v", err)
	}
	if len(captured["subscribers"]) != 1 || captured["subscribers"][0] != "me@example.com" {
		t.Errorf("subscribers = %v", captured["subscribers"])
	}
}

func TestAuthenticate(t *testing.T) {
	var capturedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/lists" {
			t.Errorf("path = %s, want /api/lists", r.URL.Path)
		}
		capturedAuth = r.Header.Get("Authorization")
		io.WriteString(w, `{"data":{"results":[]}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if capturedAuth != "token courier:secret" {
		t.Errorf("Authorization = %q", capturedAuth)
	}
}
