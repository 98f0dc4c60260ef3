package fixtures

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomersSample(t *testing.T) {
	records := Customers()
	require.Len(t, records, 18)

	first := records[0]
	assert.Equal(t, CustomerRecord{
		Name:       "John Doe",
		Email:      "john.doe@example.com",
		TotalSpent: 1225.50,
		Tags:       []string{"premium", "tech"},
	}, first)

	last := records[17]
	assert.Equal(t, "Penelope Flores", last.Name)
	assert.Equal(t, "penelope.f@example.com", last.Email)
}

func TestCustomersTotalSpent(t *testing.T) {
	total := TotalSpentCents(Customers())
	assert.Equal(t, int64(705750), total)
	assert.Equal(t, "7057.50", FormatCents(total))
}

func TestCustomersReturnsCopy(t *testing.T) {
	a := Customers()
	a[0].Name = "changed"
	a[0].Tags[0] = "changed"

	b := Customers()
	assert.Equal(t, "John Doe", b[0].Name)
	assert.Equal(t, "premium", b[0].Tags[0])
}

func TestCustomersEmailsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, rec := range Customers() {
		assert.False(t, seen[rec.Email], "duplicate email %s", rec.Email)
		seen[rec.Email] = true
	}
}

func TestEqual(t *testing.T) {
	base := CustomerRecord{Name: "A", Email: "a@example.com", TotalSpent: 10.1, Tags: []string{"x", "y"}}

	tests := []struct {
		name  string
		other CustomerRecord
		want  bool
	}{
		{"identical", base.Clone(), true},
		{"tag order ignored", CustomerRecord{Name: "A", Email: "a@example.com", TotalSpent: 10.1, Tags: []string{"y", "x"}}, true},
		{"float noise ignored", CustomerRecord{Name: "A", Email: "a@example.com", TotalSpent: 10.1000000001, Tags: []string{"x", "y"}}, true},
		{"different amount", CustomerRecord{Name: "A", Email: "a@example.com", TotalSpent: 10.2, Tags: []string{"x", "y"}}, false},
		{"missing tag", CustomerRecord{Name: "A", Email: "a@example.com", TotalSpent: 10.1, Tags: []string{"x"}}, false},
		{"different name", CustomerRecord{Name: "B", Email: "a@example.com", TotalSpent: 10.1, Tags: []string{"x", "y"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(base, tt.other))
		})
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr string
	}{
		{
			name:    "valid",
			input:   `[{"name":"A","email":"a@example.com","totalSpent":1.5,"tags":["new"]}]`,
			wantLen: 1,
		},
		{
			name:    "empty array",
			input:   `[]`,
			wantLen: 0,
		},
		{
			name:    "malformed",
			input:   `[{"name":"A"`,
			wantErr: "failed to decode",
		},
		{
			name:    "unknown field",
			input:   `[{"name":"A","email":"a@example.com","totalSpent":1,"tags":[],"age":3}]`,
			wantErr: "unknown field",
		},
		{
			name:    "negative amount",
			input:   `[{"name":"A","email":"a@example.com","totalSpent":-1,"tags":[]}]`,
			wantErr: "must not be negative",
		},
		{
			name:    "trailing data",
			input:   `[] {}`,
			wantErr: "unexpected data",
		},
		{
			name:    "null",
			input:   `null`,
			wantErr: "got null",
		},
		{
			name:    "trailing bracket",
			input:   `[{"name":"A","email":"a@example.com","totalSpent":1,"tags":[]}] ]`,
			wantErr: "unexpected data",
		},
		{
			name:    "trailing brace",
			input:   `[{"name":"A","email":"a@example.com","totalSpent":1,"tags":[]}]}`,
			wantErr: "unexpected data",
		},
		{
			name:    "trailing whitespace",
			input:   "[]\n\t ",
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Load(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, records, tt.wantLen)
		})
	}
}

func TestLoadMissingTagsBecomesEmpty(t *testing.T) {
	records, err := Load(strings.NewReader(`[{"name":"A","email":"a@example.com","totalSpent":0}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotNil(t, records[0].Tags)
	assert.Empty(t, records[0].Tags)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "customers.json")
	require.NoError(t, os.WriteFile(path, sampleJSON, 0644))

	records, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Customers(), records)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "0.00", FormatCents(0))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "1225.50", FormatCents(122550))
	assert.Equal(t, "-3.10", FormatCents(-310))
}
