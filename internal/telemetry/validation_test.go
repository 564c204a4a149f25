package telemetry

import (
	"errors"
	"testing"

	"github.com/nerrad567/telemetry-core/internal/validate"
)

func fieldsOf(t *testing.T, err error) validate.Errors {
	t.Helper()
	if err == nil {
		return nil
	}
	var v validate.Errors
	if !errors.As(err, &v) {
		t.Fatalf("error %v is not validate.Errors", err)
	}
	return v
}

func TestValidateReading(t *testing.T) {
	full := validReading(unknownToken)
	zero := validate.NewNumber(0)
	zeroes := ReadingInput{DeviceToken: ptr("x"), Temperature: zero, Humidity: zero, SmokeLevel: zero, GasLevel: zero}

	if err := ValidateReadingCreate(full); err != nil {
		t.Errorf("ValidateReadingCreate(full) error = %v", err)
	}
	if err := ValidateReadingCreate(zeroes); err != nil {
		t.Errorf("explicit zeroes should be valid, got %v", err)
	}

	v := fieldsOf(t, ValidateReadingCreate(ReadingInput{}))
	for _, f := range []string{"device_token", "temperature", "humidity", "smoke_level", "gas_level"} {
		if len(v[f]) == 0 {
			t.Errorf("missing error for %q", f)
		}
	}

	update := full
	update.DeviceToken = nil
	if err := ValidateReadingUpdate(update); err != nil {
		t.Errorf("update without device_token should be valid, got %v", err)
	}
	update.Humidity = nil
	if v := fieldsOf(t, ValidateReadingUpdate(update)); len(v["humidity"]) == 0 || len(v) != 1 {
		t.Errorf("update errors = %v, want humidity only", v)
	}
}

func TestValidateAlert(t *testing.T) {
	if err := ValidateAlertCreate(validAlert(unknownToken)); err != nil {
		t.Errorf("ValidateAlertCreate(valid) error = %v", err)
	}

	for _, typ := range AllAlertTypes() {
		in := validAlert("t")
		in.Type = ptr(string(typ))
		if err := ValidateAlertCreate(in); err != nil {
			t.Errorf("type %q rejected: %v", typ, err)
		}
	}

	bad := validAlert("t")
	bad.Type = ptr("temperature")
	if v := fieldsOf(t, ValidateAlertCreate(bad)); len(v["type"]) == 0 {
		t.Errorf("lowercase type should be rejected, got %v", v)
	}

	v := fieldsOf(t, ValidateAlertCreate(AlertInput{Status: ptr("anything")}))
	for _, f := range []string{"device_token", "type", "value", "max_value"} {
		if len(v[f]) == 0 {
			t.Errorf("missing error for %q", f)
		}
	}
	if len(v["status"]) > 0 {
		t.Error("status is free-form and must not be validated")
	}

	update := validAlert("t")
	update.DeviceToken = nil
	if err := ValidateAlertUpdate(update); err != nil {
		t.Errorf("update without device_token should be valid, got %v", err)
	}
}

func TestAlertStatusDefault(t *testing.T) {
	if got := alertStatus(AlertInput{}); got != "Pending" {
		t.Errorf("alertStatus(nil) = %q", got)
	}
	if got := alertStatus(AlertInput{Status: ptr("")}); got != "Pending" {
		t.Errorf("alertStatus(empty) = %q", got)
	}
	if got := alertStatus(AlertInput{Status: ptr("Executed")}); got != "Executed" {
		t.Errorf("alertStatus(Executed) = %q", got)
	}
}
