package simulator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// errorBody is the {"message": ...} body the server sends with failures.
// Validation failures use a field map instead and leave Message empty.
type errorBody struct {
	Message string `json:"message"`
}

// Client calls the device-facing endpoints of a Telemetry Core server.
type Client struct {
	http *resty.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

// Activate marks the device holding token as Active.
func (c *Client) Activate(ctx context.Context, token string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("token", token).
		SetError(&errorBody{}).
		Post("/devices/activate/{token}")
	return check(resp, err, "activating device")
}

// Status returns "Active" or "Inactive" for the device holding token.
func (c *Client) Status(ctx context.Context, token string) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("token", token).
		SetResult(&out).
		SetError(&errorBody{}).
		Get("/devices/status/{token}")
	if err := check(resp, err, "fetching device status"); err != nil {
		return "", err
	}
	return out.Status, nil
}

// SendReading posts one sensor reading for the device holding token.
func (c *Client) SendReading(ctx context.Context, token string, r Reading) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"device_token": token,
			"temperature":  r.Temperature,
			"humidity":     r.Humidity,
			"smoke_level":  r.SmokeLevel,
			"gas_level":    r.GasLevel,
		}).
		SetError(&errorBody{}).
		Post("/readings")
	return check(resp, err, "sending reading")
}

// SendAlert posts one alert for the device holding token.
func (c *Client) SendAlert(ctx context.Context, token string, a Alert) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"device_token": token,
			"type":         a.Type,
			"value":        a.Value,
			"max_value":    a.MaxValue,
		}).
		SetError(&errorBody{}).
		Post("/alerts")
	return check(resp, err, "sending alert")
}

func check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !resp.IsError() {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode()}
	if body, ok := resp.Error().(*errorBody); ok {
		apiErr.Message = body.Message
	}
	if apiErr.Message == "" && resp.StatusCode() == http.StatusUnprocessableEntity {
		apiErr.Message = resp.String()
	}
	return fmt.Errorf("%s: %w", op, apiErr)
}
