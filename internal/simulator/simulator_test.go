package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/logging"
)

const knownToken = "0123456789abcdef0123456789abcdef"

// fakeServer mimics the device endpoints. Only knownToken exists.
type fakeServer struct {
	mu        sync.Mutex
	readings  []map[string]any
	alerts    []map[string]any
	activated int
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /devices/activate/{token}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("token") != knownToken {
			writeBody(w, http.StatusNotFound, map[string]string{"message": "Device not found"})
			return
		}
		f.mu.Lock()
		f.activated++
		f.mu.Unlock()
		writeBody(w, http.StatusOK, map[string]string{"message": "Device activated successfully"})
	})
	mux.HandleFunc("GET /devices/status/{token}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("token") != knownToken {
			writeBody(w, http.StatusNotFound, map[string]string{"message": "Device not found"})
			return
		}
		writeBody(w, http.StatusOK, map[string]string{"status": "Active"})
	})
	mux.HandleFunc("POST /readings", f.ingest(&f.readings))
	mux.HandleFunc("POST /alerts", f.ingest(&f.alerts))
	return mux
}

func (f *fakeServer) ingest(into *[]map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeBody(w, http.StatusBadRequest, map[string]string{"message": "Invalid JSON"})
			return
		}
		if body["device_token"] != knownToken {
			writeBody(w, http.StatusNotFound, map[string]string{"message": "Device not found"})
			return
		}
		if t, ok := body["type"]; ok && t == "Pressure" {
			writeBody(w, http.StatusUnprocessableEntity, map[string][]string{"type": {"The selected type is invalid."}})
			return
		}
		f.mu.Lock()
		*into = append(*into, body)
		f.mu.Unlock()
		writeBody(w, http.StatusCreated, map[string]string{"message": "created"})
	}
}

func writeBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // test server
}

func newTestClient(t *testing.T) (*Client, *fakeServer) {
	t.Helper()
	fake := &fakeServer{}
	ts := httptest.NewServer(fake.handler())
	t.Cleanup(ts.Close)
	return NewClient(ts.URL, 5*time.Second), fake
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

// ─── Client Tests ──────────────────────────────────────────────────

func TestClient_SendReading(t *testing.T) {
	client, fake := newTestClient(t)

	err := client.SendReading(t.Context(), knownToken, Reading{Temperature: 25.5, Humidity: 60, SmokeLevel: 10, GasLevel: 15})
	if err != nil {
		t.Fatalf("SendReading() error = %v", err)
	}
	if len(fake.readings) != 1 {
		t.Fatalf("readings = %d, want 1", len(fake.readings))
	}
	got := fake.readings[0]
	if got["temperature"] != 25.5 || got["humidity"] != float64(60) || got["gas_level"] != float64(15) {
		t.Errorf("body = %v", got)
	}
}

func TestClient_Errors(t *testing.T) {
	client, _ := newTestClient(t)

	err := client.SendReading(t.Context(), "ffffffffffffffffffffffffffffffff", Reading{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "Device not found" {
		t.Errorf("APIError = %+v", apiErr)
	}

	err = client.SendAlert(t.Context(), knownToken, Alert{Type: "Pressure", Value: 1, MaxValue: 2})
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("error = %v, want 422", err)
	}
	if apiErr.Message == "" {
		t.Error("validation body not carried in the error")
	}
}

func TestClient_ActivateAndStatus(t *testing.T) {
	client, fake := newTestClient(t)

	if err := client.Activate(t.Context(), knownToken); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if fake.activated != 1 {
		t.Errorf("activated = %d, want 1", fake.activated)
	}

	status, err := client.Status(t.Context(), knownToken)
	if err != nil || status != "Active" {
		t.Errorf("Status() = (%q, %v), want Active", status, err)
	}

	if _, err := client.Status(t.Context(), "nope"); err == nil {
		t.Error("Status() for unknown token should fail")
	}
}

func TestClient_ServerDown(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client := NewClient(url, time.Second)
	err := client.SendReading(t.Context(), knownToken, Reading{})
	var apiErr *APIError
	if err == nil || errors.As(err, &apiErr) {
		t.Errorf("error = %v, want a transport error", err)
	}
}

// ─── Generator Tests ───────────────────────────────────────────────

func TestGenerator_Bounds(t *testing.T) {
	gen := NewGenerator(42, 0.2)

	for i := range 5000 {
		r := gen.Next()
		if r.Temperature < 0 || r.Temperature > 50 {
			t.Fatalf("reading %d temperature = %v", i, r.Temperature)
		}
		for name, v := range map[string]float64{"humidity": r.Humidity, "smoke_level": r.SmokeLevel, "gas_level": r.GasLevel} {
			if v < 0 || v > 100 {
				t.Fatalf("reading %d %s = %v", i, name, v)
			}
		}
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	a := NewGenerator(7, 0.1)
	b := NewGenerator(7, 0.1)

	for i := range 100 {
		if ra, rb := a.Next(), b.Next(); ra != rb {
			t.Fatalf("reading %d differs: %+v vs %+v", i, ra, rb)
		}
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		reading Reading
		want    []string
	}{
		{"all normal", Reading{Temperature: 20, Humidity: 40, SmokeLevel: 5, GasLevel: 5}, nil},
		{"at the limit", Reading{Temperature: 45, Humidity: 90, SmokeLevel: 60, GasLevel: 60}, nil},
		{"hot", Reading{Temperature: 48.5, Humidity: 40}, []string{"Temperature"}},
		{"smoke and gas", Reading{SmokeLevel: 70, GasLevel: 61}, []string{"SmokeLevel", "GasLevel"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := Check(tt.reading, DefaultLimits)
			if len(alerts) != len(tt.want) {
				t.Fatalf("alerts = %+v, want types %v", alerts, tt.want)
			}
			for i, a := range alerts {
				if a.Type != tt.want[i] {
					t.Errorf("alert %d type = %q, want %q", i, a.Type, tt.want[i])
				}
				if a.Value <= a.MaxValue {
					t.Errorf("alert %d value %v not above max %v", i, a.Value, a.MaxValue)
				}
			}
		})
	}
}

// ─── Run Tests ─────────────────────────────────────────────────────

func TestRun_Rounds(t *testing.T) {
	client, fake := newTestClient(t)

	// Negative limits make every value an alert.
	limits := Limits{Temperature: -1, Humidity: -1, SmokeLevel: -1, GasLevel: -1}
	totals, err := Run(t.Context(), client, NewGenerator(1, 0), Config{
		Tokens:   []string{knownToken},
		Interval: time.Millisecond,
		Rounds:   3,
		Activate: true,
		Limits:   limits,
	}, testLogger())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if totals != (Totals{Readings: 3, Alerts: 12}) {
		t.Errorf("totals = %+v", totals)
	}
	if len(fake.readings) != 3 || len(fake.alerts) != 12 || fake.activated != 1 {
		t.Errorf("server saw %d readings, %d alerts, %d activations", len(fake.readings), len(fake.alerts), fake.activated)
	}
}

func TestRun_UnknownDeviceCountsFailures(t *testing.T) {
	client, _ := newTestClient(t)

	totals, err := Run(t.Context(), client, NewGenerator(1, 0), Config{
		Tokens:   []string{knownToken, "ffffffffffffffffffffffffffffffff"},
		Interval: time.Millisecond,
		Rounds:   2,
		Limits:   DefaultLimits,
	}, testLogger())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if totals.Readings != 2 || totals.Failures != 2 {
		t.Errorf("totals = %+v, want 2 readings and 2 failures", totals)
	}
}

func TestRun_ActivationFailure(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := Run(t.Context(), client, NewGenerator(1, 0), Config{
		Tokens:   []string{"ffffffffffffffffffffffffffffffff"},
		Interval: time.Millisecond,
		Rounds:   1,
		Activate: true,
	}, testLogger())
	if err == nil {
		t.Fatal("Run() should fail when a device cannot be activated")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	client, _ := newTestClient(t)
	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	totals, err := Run(ctx, client, NewGenerator(1, 0), Config{
		Tokens:   []string{knownToken},
		Interval: 10 * time.Millisecond,
		Limits:   DefaultLimits,
	}, testLogger())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if totals.Readings == 0 {
		t.Error("no readings sent before cancel")
	}
}

func TestRun_NoTokens(t *testing.T) {
	client, _ := newTestClient(t)
	if _, err := Run(t.Context(), client, NewGenerator(1, 0), Config{Interval: time.Millisecond}, testLogger()); err == nil {
		t.Error("Run() with no tokens should fail")
	}
}
