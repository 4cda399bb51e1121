package common

import (
	"encoding/json"
	"fmt"
	"time"

	"uamvh.cloud/escolar/utils"
)

type DateOnly struct {
	time.Time
}

// ParseDateOnly reads a yyyy-MM-dd query value. Empty is the zero date.
func ParseDateOnly(s string) (DateOnly, error) {
	if s == "" {
		return DateOnly{}, nil
	}
	t, err := time.ParseInLocation(utils.DateLayout, s, utils.SchoolTZ)
	if err != nil {
		return DateOnly{}, fmt.Errorf("invalid date format: %v", err)
	}
	return DateOnly{Time: t}, nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	// b is a quoted string like `"2025-10-29"`
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDateOnly(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d DateOnly) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(d.String())
}

func (d DateOnly) String() string {
	if d.Time.IsZero() {
		return ""
	}
	return d.Format(utils.DateLayout)
}
