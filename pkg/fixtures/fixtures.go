// Package fixtures holds the customer sample data loaded by dbseed.
package fixtures

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
)

// DefaultDatabase and DefaultCollection name the target the sample data is written to
const (
	DefaultDatabase   = "testdb"
	DefaultCollection = "customers"
)

//go:embed customers.json
var sampleJSON []byte

var sample []CustomerRecord

func init() {
	records, err := parse(sampleJSON)
	if err != nil {
		panic(fmt.Sprintf("fixtures: embedded customers.json is invalid: %v", err))
	}
	sample = records
}

// CustomerRecord is a single customer document
type CustomerRecord struct {
	Name       string   `json:"name" bson:"name"`
	Email      string   `json:"email" bson:"email"`
	TotalSpent float64  `json:"totalSpent" bson:"totalSpent"`
	Tags       []string `json:"tags" bson:"tags"`
}

// Clone returns a deep copy of the record
func (c CustomerRecord) Clone() CustomerRecord {
	out := c
	if c.Tags != nil {
		out.Tags = append([]string(nil), c.Tags...)
	}
	return out
}

// Cents returns TotalSpent in integer cents
func (c CustomerRecord) Cents() int64 {
	return int64(math.Round(c.TotalSpent * 100))
}

// Equal reports whether two records hold the same values. Tags compare as a set.
func Equal(a, b CustomerRecord) bool {
	if a.Name != b.Name || a.Email != b.Email || a.Cents() != b.Cents() {
		return false
	}
	return sameTags(a.Tags, b.Tags)
}

func sameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// Customers returns a fresh copy of the embedded sample, in literal order
func Customers() []CustomerRecord {
	return cloneAll(sample)
}

// Load parses a JSON array of customer records
func Load(r io.Reader) ([]CustomerRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return parse(data)
}

// LoadFile parses the fixture file at path
func LoadFile(path string) ([]CustomerRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture file %s: %w", path, err)
	}
	defer f.Close()

	records, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("fixture file %s: %w", path, err)
	}
	return records, nil
}

func parse(data []byte) ([]CustomerRecord, error) {
	var records []CustomerRecord

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode customer records: %w", err)
	}
	if records == nil {
		return nil, fmt.Errorf("failed to decode customer records: expected an array, got null")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after customer array")
	}

	for i, rec := range records {
		if rec.TotalSpent < 0 {
			return nil, fmt.Errorf("record %d (%s): totalSpent must not be negative", i, rec.Email)
		}
		if rec.Tags == nil {
			records[i].Tags = []string{}
		}
	}
	return records, nil
}

// TotalSpentCents sums TotalSpent across records in cents
func TotalSpentCents(records []CustomerRecord) int64 {
	var total int64
	for _, rec := range records {
		total += rec.Cents()
	}
	return total
}

// FormatCents renders a cent amount as a decimal string, e.g. 705750 -> "7057.50"
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func cloneAll(records []CustomerRecord) []CustomerRecord {
	out := make([]CustomerRecord, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}
	return out
}
