package telemetry

import (
	"github.com/nerrad567/telemetry-core/internal/validate"
)

// ValidateReadingCreate checks an ingest request, which must name its device.
func ValidateReadingCreate(in ReadingInput) error {
	v := validate.Errors{}
	v.Required("device_token", in.DeviceToken)
	readingFields(v, in)
	return v.Err()
}

// ValidateReadingUpdate checks a full-replace update. The device reference
// cannot change, so device_token is not required and is ignored.
func ValidateReadingUpdate(in ReadingInput) error {
	v := validate.Errors{}
	readingFields(v, in)
	return v.Err()
}

func readingFields(v validate.Errors, in ReadingInput) {
	v.Number("temperature", in.Temperature)
	v.Number("humidity", in.Humidity)
	v.Number("smoke_level", in.SmokeLevel)
	v.Number("gas_level", in.GasLevel)
}

// ValidateAlertCreate checks an alert ingest request.
func ValidateAlertCreate(in AlertInput) error {
	v := validate.Errors{}
	v.Required("device_token", in.DeviceToken)
	alertFields(v, in)
	return v.Err()
}

// ValidateAlertUpdate checks a full-replace alert update.
func ValidateAlertUpdate(in AlertInput) error {
	v := validate.Errors{}
	alertFields(v, in)
	return v.Err()
}

func alertFields(v validate.Errors, in AlertInput) {
	types := make([]string, 0, len(AllAlertTypes()))
	for _, t := range AllAlertTypes() {
		types = append(types, string(t))
	}
	v.OneOf("type", in.Type, types...)
	v.Number("value", in.Value)
	v.Number("max_value", in.MaxValue)
}

// alertStatus returns the stored status for an input, defaulting to Pending.
func alertStatus(in AlertInput) string {
	if in.Status == nil || *in.Status == "" {
		return DefaultAlertStatus
	}
	return *in.Status
}
