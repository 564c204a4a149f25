package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
)

// testConfig returns an MQTT configuration pointing at a local broker.
// None of the tests below need the broker to be running.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "telemetry-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// recordingLogger captures log calls from the client.
type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

// ─── Connection ─────────────────────────────────────────────────────

func TestConnect_BrokerRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19998

	_, err := Connect(cfg)
	if err == nil {
		t.Fatal("Connect() should fail for refused connection")
	}
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	client := &Client{}

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}
}

// ─── Validation ─────────────────────────────────────────────────────

func TestPublish_Validation(t *testing.T) {
	client := &Client{subscriptions: map[string]subscription{}}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", nil, 1, ErrInvalidTopic},
		{"invalid qos", "telemetry/events/readings", nil, 3, ErrInvalidQoS},
		{"oversized payload", "telemetry/events/readings", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"disconnected", "telemetry/events/readings", []byte("{}"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPublishJSON_Disconnected(t *testing.T) {
	client := &Client{cfg: testConfig()}
	err := client.PublishJSON(Topics{}.EventAlerts(), map[string]int{"id": 1})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishJSON() error = %v, want ErrNotConnected", err)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	client := &Client{subscriptions: map[string]subscription{}}
	handler := func(string, []byte) error { return nil }

	if err := client.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(empty) error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Subscribe("a/b", 5, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe(qos 5) error = %v, want ErrInvalidQoS", err)
	}
	if err := client.Subscribe("a/b", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v, want ErrSubscribeFailed", err)
	}
	if err := client.Subscribe("a/b", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe(disconnected) error = %v, want ErrNotConnected", err)
	}
	if client.SubscriptionCount() != 0 || client.HasSubscription("a/b") {
		t.Error("failed subscriptions must not be tracked")
	}
	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(empty) error = %v, want ErrInvalidTopic", err)
	}
}

// ─── Handler wrapping ───────────────────────────────────────────────

func TestWrapHandler(t *testing.T) {
	logger := &recordingLogger{}
	client := &Client{}
	client.SetLogger(logger)

	var got string
	ok := client.wrapHandler(func(topic string, payload []byte) error {
		got = topic + "=" + string(payload)
		return nil
	})
	ok(nil, fakeMessage{topic: "telemetry/devices/abc/readings", payload: []byte("{}")})
	if got != "telemetry/devices/abc/readings={}" {
		t.Errorf("handler saw %q", got)
	}

	failing := client.wrapHandler(func(string, []byte) error { return errors.New("bad payload") })
	failing(nil, fakeMessage{topic: "x"})

	panicking := client.wrapHandler(func(string, []byte) error { panic("boom") })
	panicking(nil, fakeMessage{topic: "y"})

	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want one handler error", logger.warns)
	}
	if len(logger.errors) != 1 {
		t.Errorf("errors = %v, want one recovered panic", logger.errors)
	}
}

func TestCallbacks(t *testing.T) {
	client := &Client{}
	var lost error
	client.SetOnDisconnect(func(err error) { lost = err })

	client.connected = true
	client.handleDisconnect(errors.New("link down"))

	if lost == nil || lost.Error() != "link down" {
		t.Errorf("onDisconnect got %v", lost)
	}
	if client.connected {
		t.Error("connected should be false after disconnect")
	}
}

// ─── Options ────────────────────────────────────────────────────────

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "device-gw"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "telemetry-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "device-gw" || opts.Password != "secret" {
		t.Error("credentials not applied")
	}
	if !opts.CleanSession || !opts.AutoReconnect {
		t.Error("expected clean session with auto reconnect")
	}
	if opts.TLSConfig != nil && opts.TLSConfig.MinVersion != 0 {
		t.Error("TLS should not be configured when disabled")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	if got := brokerURL(cfg); got != "ssl://127.0.0.1:8883" {
		t.Errorf("brokerURL() = %q, want ssl://127.0.0.1:8883", got)
	}
	opts := buildClientOptions(cfg)
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS config missing or below minimum version")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, "telemetry-test")

	if !opts.WillEnabled || opts.WillTopic != (Topics{}).SystemStatus() || !opts.WillRetained {
		t.Fatalf("will = enabled:%v topic:%q retained:%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}

	var status statusPayload
	if err := json.Unmarshal(opts.WillPayload, &status); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if status.Status != "offline" || status.Reason != "unexpected_disconnect" || status.ClientID != "telemetry-test" {
		t.Errorf("will payload = %+v", status)
	}
}

// ─── Topics ─────────────────────────────────────────────────────────

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		got, want string
	}{
		{topics.DeviceReadings("abc"), "telemetry/devices/abc/readings"},
		{topics.DeviceAlerts("abc"), "telemetry/devices/abc/alerts"},
		{topics.AllDeviceReadings(), "telemetry/devices/+/readings"},
		{topics.AllDeviceAlerts(), "telemetry/devices/+/alerts"},
		{topics.EventReadings(), "telemetry/events/readings"},
		{topics.EventAlerts(), "telemetry/events/alerts"},
		{topics.SystemStatus(), "telemetry/system/status"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestParseDeviceTopic(t *testing.T) {
	token := "0123456789abcdef0123456789abcdef"
	tests := []struct {
		topic     string
		wantToken string
		wantKind  string
		wantErr   bool
	}{
		{Topics{}.DeviceReadings(token), token, KindReadings, false},
		{Topics{}.DeviceAlerts(token), token, KindAlerts, false},
		{"telemetry/devices//readings", "", "", true},
		{"telemetry/devices/abc/status", "", "", true},
		{"telemetry/devices/abc/readings/extra", "", "", true},
		{"telemetry/events/readings", "", "", true},
		{"other/devices/abc/readings", "", "", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.topic), func(t *testing.T) {
			token, kind, err := ParseDeviceTopic(tt.topic)
			if tt.wantErr {
				if !errors.Is(err, ErrNotDeviceTopic) {
					t.Errorf("ParseDeviceTopic() error = %v, want ErrNotDeviceTopic", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDeviceTopic() error = %v", err)
			}
			if token != tt.wantToken || kind != tt.wantKind {
				t.Errorf("ParseDeviceTopic() = (%q, %q), want (%q, %q)", token, kind, tt.wantToken, tt.wantKind)
			}
		})
	}
}
