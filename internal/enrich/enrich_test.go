package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"trading-alertsv1/internal/model"
)

func testAlert() model.Alert {
	return model.Alert{
		Pattern:   model.PatternFVG,
		Direction: model.Long,
		Detail:    "Bullish FVG: gap between 10 and 15",
		Symbol:    "MNQ",
		Timeframe: "1m",
		LastCandle: model.Candle{
			Open: 15.5, High: 16, Low: 15, Close: 15.8,
		},
	}
}

func completionBody(t *testing.T, content string) []byte {
	t.Helper()
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestBuildTradePlan_Success(t *testing.T) {
	plan := `{"direction":"long","bias_reason":"FVG displacement","entry":15.6,"stop":15.0,"targets":[16,16.5,17],"risk_to_reward":"1:2","notes":"wait for retest"}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing bearer token, got %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ResponseFormat.Type != "json_object" {
			t.Errorf("expected json_object response format, got %q", req.ResponseFormat.Type)
		}
		w.Write(completionBody(t, plan))
	}))
	defer srv.Close()

	c := NewClient(Options{APIKey: "test-key", BaseURL: srv.URL})
	got, err := c.BuildTradePlan(context.Background(), testAlert())
	if err != nil {
		t.Fatal(err)
	}
	if got.Direction != "long" || got.Entry != 15.6 || got.Stop != 15.0 {
		t.Fatalf("unexpected plan: %+v", got)
	}
	if len(got.Targets) != 3 || got.Targets[2] != 17 {
		t.Fatalf("unexpected targets: %v", got.Targets)
	}
	if got.RiskToReward != "1:2" {
		t.Fatalf("unexpected risk_to_reward: %q", got.RiskToReward)
	}
}

func TestBuildTradePlan_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(completionBody(t, `{"direction":"short","entry":1,"stop":2}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: 10 * time.Second})
	got, err := c.BuildTradePlan(context.Background(), testAlert())
	if err != nil {
		t.Fatal(err)
	}
	if got.Direction != "short" {
		t.Fatalf("unexpected plan: %+v", got)
	}
	if calls.Load() < 2 {
		t.Fatalf("expected a retry, got %d calls", calls.Load())
	}
}

func TestBuildTradePlan_AuthFailureIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: 10 * time.Second})
	if _, err := c.BuildTradePlan(context.Background(), testAlert()); err == nil {
		t.Fatal("expected error for 401")
	}
	if calls.Load() != 1 {
		t.Fatalf("401 must not be retried, got %d calls", calls.Load())
	}
}

func TestBuildTradePlan_NonJSONContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(completionBody(t, "sorry, I cannot help with that"))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	if _, err := c.BuildTradePlan(context.Background(), testAlert()); err == nil {
		t.Fatal("expected parse error for non-JSON content")
	}
}

func TestBuildTradePlan_MissingFieldsZeroValued(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(completionBody(t, `{"direction":"long"}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	got, err := c.BuildTradePlan(context.Background(), testAlert())
	if err != nil {
		t.Fatal(err)
	}
	if got.Entry != 0 || got.Stop != 0 || len(got.Targets) != 0 {
		t.Fatalf("missing fields must be zero-valued: %+v", got)
	}
}

func TestBuildTradePlan_TimeoutBoundsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Timeout: 300 * time.Millisecond})
	start := time.Now()
	if _, err := c.BuildTradePlan(context.Background(), testAlert()); err == nil {
		t.Fatal("expected error when server never recovers")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("retries must stop at the timeout, took %v", elapsed)
	}
}
