package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/donor-display-backend/internal/core/domain"
	apperrors "github.com/lorrc/donor-display-backend/internal/core/errors"
)

func TestGrade_IsKnown(t *testing.T) {
	tests := []struct {
		name  string
		grade domain.Grade
		want  bool
	}{
		{"VVIP is known", domain.GradeVVIP, true},
		{"GOLD is known", domain.GradeGold, true},
		{"SILVER is known", domain.GradeSilver, true},
		{"case and padding are ignored", domain.Grade(" gold "), true},
		{"BRONZE is not known", domain.Grade("BRONZE"), false},
		{"empty is not known", domain.Grade(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.grade.IsKnown())
		})
	}
}

func TestNewDonor(t *testing.T) {
	t.Run("keeps values as supplied", func(t *testing.T) {
		donor, err := domain.NewDonor(domain.DonorParams{
			Name:   "Kim",
			Amount: 50000,
			Grade:  "gold",
		})

		require.NoError(t, err)
		assert.Equal(t, "Kim", donor.Name)
		assert.Equal(t, int64(50000), donor.Amount)
		assert.Equal(t, "gold", donor.Grade)
		assert.Equal(t, "", donor.Message)
		assert.False(t, donor.CreatedAt.IsZero())
	})

	t.Run("negative amount and unknown grade pass", func(t *testing.T) {
		_, err := domain.NewDonor(domain.DonorParams{Name: "Lee", Amount: -5, Grade: "PLATINUM"})
		assert.NoError(t, err)
	})

	tests := []struct {
		name    string
		params  domain.DonorParams
		wantErr error
	}{
		{"blank name", domain.DonorParams{Name: "  ", Grade: "GOLD"}, apperrors.ErrNameRequired},
		{"long name", domain.DonorParams{Name: string(make([]byte, 51)), Grade: "GOLD"}, apperrors.ErrNameTooLong},
		{"missing grade", domain.DonorParams{Name: "Kim"}, apperrors.ErrGradeRequired},
		{"long grade", domain.DonorParams{Name: "Kim", Grade: "ABCDEFGHIJKLMNOPQRSTU"}, apperrors.ErrGradeTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			donor, err := domain.NewDonor(tt.params)
			assert.Nil(t, donor)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDonorParams_LengthCountsCharacters(t *testing.T) {
	atLimit := domain.DonorParams{Name: strings.Repeat("김", domain.MaxNameLength), Grade: "GOLD"}
	assert.NoError(t, atLimit.Validate())

	overLimit := domain.DonorParams{Name: strings.Repeat("김", domain.MaxNameLength+1), Grade: "GOLD"}
	assert.ErrorIs(t, overLimit.Validate(), apperrors.ErrNameTooLong)
}

func TestDonor_Apply(t *testing.T) {
	donor := &domain.Donor{ID: 7, Name: "Kim", Amount: 10, Grade: "GOLD"}

	err := donor.Apply(domain.DonorParams{Name: "Kim Ji", Amount: 20, Grade: "VVIP", Message: "thanks"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), donor.ID)
	assert.Equal(t, "Kim Ji", donor.Name)
	assert.Equal(t, int64(20), donor.Amount)
	assert.Equal(t, "VVIP", donor.Grade)
	assert.Equal(t, "thanks", donor.Message)

	err = donor.Apply(domain.DonorParams{Name: "", Grade: "VVIP"})
	assert.ErrorIs(t, err, apperrors.ErrNameRequired)
	assert.Equal(t, "Kim Ji", donor.Name, "failed apply must not modify the donor")
}

func TestDonorRow_Normalize(t *testing.T) {
	t.Run("coerces fields", func(t *testing.T) {
		params, err := domain.DonorRow{Name: " Lee ", Amount: "1000", Grade: "silver"}.Normalize()

		require.NoError(t, err)
		assert.Equal(t, domain.DonorParams{Name: "Lee", Amount: 1000, Grade: "SILVER", Message: ""}, params)
	})

	t.Run("keeps message", func(t *testing.T) {
		params, err := domain.DonorRow{Name: "Park", Amount: "5", Grade: "vvip", Message: "hello"}.Normalize()

		require.NoError(t, err)
		assert.Equal(t, "hello", params.Message)
		assert.Equal(t, "VVIP", params.Grade)
	})

	t.Run("non-numeric amount", func(t *testing.T) {
		_, err := domain.DonorRow{Name: "Park", Amount: "abc", Grade: "gold"}.Normalize()
		assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := domain.DonorRow{Amount: "1", Grade: "gold"}.Normalize()
		assert.ErrorIs(t, err, apperrors.ErrNameRequired)
	})
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1000", 1000, false},
		{" 42 ", 42, false},
		{"-3", -3, false},
		{"1000.0", 1000, false},
		{"1e3", 1000, false},
		{"12.5", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"NaN", 0, true},
		{"1e30", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := domain.ParseAmount(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewDonorEvent(t *testing.T) {
	event := domain.NewDonorEvent(&domain.Donor{ID: 3, Name: "Kim", Amount: 50000, Grade: "gold"})

	assert.Equal(t, domain.EventNewDonor, event.Type)
	assert.Equal(t, domain.DonorEvent{Name: "Kim", Amount: 50000, Grade: "gold", Message: ""}, event.Payload)
}
