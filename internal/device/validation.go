package device

import "github.com/nerrad567/telemetry-core/internal/validate"

// Name and location bounds, in characters.
const (
	minFieldLength = 10
	maxFieldLength = 100
)

// ValidateInput checks a create or update request. Both fields are required
// on update as well, since updates replace the whole record.
func ValidateInput(in Input) error {
	v := validate.Errors{}
	v.Length("name", in.Name, minFieldLength, maxFieldLength)
	v.Length("location", in.Location, minFieldLength, maxFieldLength)
	return v.Err()
}
