package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	CategoryExpense CategoryType = "expense"
	CategoryIncome  CategoryType = "income"
)

type (
	CategoryType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Category struct {
		ID        int64
		Name      string
		Type      CategoryType
		Color     string
		CreatedAt time.Time
	}

	Transaction struct {
		ID          int64
		Description string
		Amount      Money
		Date        Date
		CategoryID  *int64 // nil after the referenced category is deleted
		CreatedAt   time.Time
	}

	Budget struct {
		CategoryID int64
		Year       int
		Month      int // 1-12
		Amount     Money
	}

	Goal struct {
		ID            int64
		Name          string
		TargetAmount  Money
		CurrentAmount Money
		TargetDate    Date // zero when unset
		Notes         string
		CreatedAt     time.Time
	}

	Contribution struct {
		ID                  int64
		GoalID              int64
		Amount              Money
		Date                Date
		Notes               string
		SourceTransactionID *int64 // set when spawned by a recorded transaction
		CreatedAt           time.Time
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrGoalNotFound     = errors.New("goal not found")

	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyName          = errors.New("empty name")
	ErrNameTooLong        = errors.New("name too long")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrInvalidType        = errors.New("invalid category type")
	ErrInvalidColor       = errors.New("invalid color")
	ErrMissingCategory    = errors.New("missing category")
	ErrNegativeBudget     = errors.New("budget amount cannot be negative")
	ErrDuplicateName      = errors.New("name already exists")
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ISO returns the date formatted as YYYY-MM-DD, the storage representation.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

func (d Date) Year() int  { return d.Time.Year() }
func (d Date) Month() int { return int(d.Time.Month()) }
func (d Date) Day() int   { return d.Time.Day() }

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t CategoryType) Validate() error {
	switch t {
	case CategoryExpense, CategoryIncome:
		return nil
	}
	return ErrInvalidType
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 100 {
		return ErrNameTooLong
	}
	if err := c.Type.Validate(); err != nil {
		return err
	}
	if c.Color != "" && !hexColorRe.MatchString(c.Color) {
		return ErrInvalidColor
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if t.CategoryID == nil {
		return ErrMissingCategory
	}
	return nil
}

func (b Budget) Validate() error {
	if b.Amount.Cents < 0 {
		return ErrNegativeBudget
	}
	if b.Month < 1 || b.Month > 12 {
		return ErrInvalidDate
	}
	return nil
}

func (g Goal) Validate() error {
	name := strings.TrimSpace(g.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 150 {
		return ErrNameTooLong
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return err
	}
	if g.CurrentAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	if !g.TargetDate.IsZero() {
		if err := g.TargetDate.Validate(); err != nil {
			return err
		}
	}
	return nil
}
