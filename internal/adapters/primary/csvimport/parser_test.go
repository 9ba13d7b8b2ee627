package csvimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/donor-display-backend/internal/core/domain"
	apperrors "github.com/lorrc/donor-display-backend/internal/core/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []domain.DonorRow
	}{
		{
			name:  "all columns",
			input: "name,amount,grade,message\nLee,1000,silver,hi\nPark,2000,gold,\n",
			expected: []domain.DonorRow{
				{Name: "Lee", Amount: "1000", Grade: "silver", Message: "hi"},
				{Name: "Park", Amount: "2000", Grade: "gold", Message: ""},
			},
		},
		{
			name:  "message column absent",
			input: "name,amount,grade\nLee,1000,silver\n",
			expected: []domain.DonorRow{
				{Name: "Lee", Amount: "1000", Grade: "silver"},
			},
		},
		{
			name:  "columns reordered with extra column and mixed-case header",
			input: "Grade, Amount ,note,NAME\nvvip,50000,ignored,Choi\n",
			expected: []domain.DonorRow{
				{Name: "Choi", Amount: "50000", Grade: "vvip"},
			},
		},
		{
			name:  "blank and repeated extra header cells are ignored",
			input: "name,amount,,grade,,note,note\nLee,1000,x,silver,y,a,b\n",
			expected: []domain.DonorRow{
				{Name: "Lee", Amount: "1000", Grade: "silver"},
			},
		},
		{
			name:  "quoted fields keep commas and newlines",
			input: "name,amount,grade,message\n\"Kim, J\",3000,gold,\"line one\nline two\"\n",
			expected: []domain.DonorRow{
				{Name: "Kim, J", Amount: "3000", Grade: "gold", Message: "line one\nline two"},
			},
		},
		{
			name:  "byte order mark and CRLF",
			input: "\xEF\xBB\xBFname,amount,grade\r\nLee,1000,silver\r\n",
			expected: []domain.DonorRow{
				{Name: "Lee", Amount: "1000", Grade: "silver"},
			},
		},
		{
			name:     "header only",
			input:    "name,amount,grade,message\n",
			expected: nil,
		},
		{
			name:  "raw values are not normalized",
			input: "name,amount,grade\n  Lee  ,abc,silver\n",
			expected: []domain.DonorRow{
				{Name: "Lee  ", Amount: "abc", Grade: "silver"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rows)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty file", input: ""},
		{name: "missing amount column", input: "name,grade\nLee,silver\n"},
		{name: "duplicate column", input: "name,amount,grade,name\nLee,1,silver,Lee\n"},
		{name: "row with wrong field count", input: "name,amount,grade\nLee,1000\n"},
		{name: "unterminated quote", input: "name,amount,grade\n\"Lee,1000,silver\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Parse(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, apperrors.ErrMalformedCSV)
			assert.Nil(t, rows)
		})
	}
}

func TestIsCSVFilename(t *testing.T) {
	assert.True(t, IsCSVFilename("donors.csv"))
	assert.True(t, IsCSVFilename("DONORS.CSV"))
	assert.False(t, IsCSVFilename("donors.xlsx"))
	assert.False(t, IsCSVFilename("donors.csv.txt"))
	assert.False(t, IsCSVFilename(""))
}
