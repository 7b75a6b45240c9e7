package photo

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is how capture times are rendered in every output.
const TimestampLayout = "2006-01-02 15:04:05"

// Columns lists the output field names in their fixed order.
var Columns = []string{"Nome do Arquivo", "Data e Hora", "Latitude", "Longitude", "Endereço"}

// Record represents the metadata collected for one image file.
// Optional values are nil when the source carried no such information.
type Record struct {
	FileName   string     `json:"Nome do Arquivo"`
	CapturedAt *Timestamp `json:"Data e Hora"`
	Latitude   *float64   `json:"Latitude"`
	Longitude  *float64   `json:"Longitude"`
	Address    *string    `json:"Endereço"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (r Record) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// WithAddress returns a copy of r carrying the given address.
func (r Record) WithAddress(address string) Record {
	r.Address = &address
	return r
}

// Values returns the record's fields in Columns order, with nil for absent ones.
func (r Record) Values() []any {
	values := []any{r.FileName, nil, nil, nil, nil}
	if r.CapturedAt != nil {
		values[1] = r.CapturedAt.String()
	}
	if r.Latitude != nil {
		values[2] = *r.Latitude
	}
	if r.Longitude != nil {
		values[3] = *r.Longitude
	}
	if r.Address != nil {
		values[4] = *r.Address
	}
	return values
}

// Timestamp is an EXIF wall-clock time. It carries no zone information.
type Timestamp struct {
	time.Time
}

// NewTimestamp drops any zone from t, keeping its wall clock.
func NewTimestamp(t time.Time) *Timestamp {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	return &Timestamp{Time: wall}
}

// ParseTimestamp parses a value written with TimestampLayout.
func ParseTimestamp(s string) (*Timestamp, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return &Timestamp{Time: t}, nil
}

func (t Timestamp) String() string {
	return t.Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}
