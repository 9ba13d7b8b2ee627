package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	apperrors "github.com/lorrc/donor-display-backend/internal/core/errors"
)

// Column limits mirror the donors table and count characters, not bytes.
const (
	MaxNameLength  = 50
	MaxGradeLength = 20
)

// Grade is the display tier of a donor. Any non-empty value is stored; the
// constants below are the tiers the stage display has a style for.
type Grade string

const (
	GradeVVIP   Grade = "VVIP"
	GradeGold   Grade = "GOLD"
	GradeSilver Grade = "SILVER"
)

// IsKnown reports whether g names a styled tier, ignoring case and padding.
func (g Grade) IsKnown() bool {
	switch Grade(upperGrade(string(g))) {
	case GradeVVIP, GradeGold, GradeSilver:
		return true
	default:
		return false
	}
}

// upperGrade trims and uppercases a grade. A Caser must not be shared
// between goroutines, so one is built per call.
func upperGrade(s string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(s))
}

// Donor is the persisted donation record.
type Donor struct {
	ID        int64
	Name      string
	Amount    int64
	Grade     string
	Message   string
	CreatedAt time.Time
}

// DonorParams holds the caller supplied fields of a donor.
type DonorParams struct {
	Name    string
	Amount  int64
	Grade   string
	Message string
}

// Validate checks the required fields. Amount sign and grade membership are
// not checked.
func (p DonorParams) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return apperrors.ErrNameRequired
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return apperrors.ErrNameTooLong
	}

	grade := strings.TrimSpace(p.Grade)
	if grade == "" {
		return apperrors.ErrGradeRequired
	}
	if utf8.RuneCountInString(grade) > MaxGradeLength {
		return apperrors.ErrGradeTooLong
	}
	return nil
}

// NewDonor builds an unsaved donor. Values are kept exactly as supplied.
func NewDonor(p DonorParams) (*Donor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &Donor{
		Name:      p.Name,
		Amount:    p.Amount,
		Grade:     p.Grade,
		Message:   p.Message,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Apply overwrites the editable fields of d.
func (d *Donor) Apply(p DonorParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	d.Name = p.Name
	d.Amount = p.Amount
	d.Grade = p.Grade
	d.Message = p.Message
	return nil
}

// DonorRow is one raw bulk-upload row before coercion.
type DonorRow struct {
	Name    string
	Amount  string
	Grade   string
	Message string
}

// Normalize coerces a raw row: trims every field, parses the amount as an
// integer and uppercases the grade.
func (r DonorRow) Normalize() (DonorParams, error) {
	amount, err := ParseAmount(r.Amount)
	if err != nil {
		return DonorParams{}, err
	}

	p := DonorParams{
		Name:    strings.TrimSpace(r.Name),
		Amount:  amount,
		Grade:   upperGrade(r.Grade),
		Message: strings.TrimSpace(r.Message),
	}
	if err := p.Validate(); err != nil {
		return DonorParams{}, err
	}
	return p, nil
}

// ParseAmount accepts integer text, and decimal text with no fractional part
// ("1000.0"), which is how spreadsheet exports often write whole numbers.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", apperrors.ErrInvalidAmount)
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
		f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrInvalidAmount, s)
	}
	return int64(f), nil
}
