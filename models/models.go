package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Error taxonomy recovered at the request boundary as flash messages.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrNotFound          = errors.New("student not found")
	ErrBalanceExceeded   = errors.New("payment exceeds total fees")
)

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Student struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Class      string    `json:"class"`
	TotalFees  float64   `json:"total_fees"`
	AmountPaid float64   `json:"amount_paid"`
	CreatedAt  time.Time `json:"created_at"`
}

// Balance is the amount still owed.
func (s Student) Balance() float64 {
	return s.TotalFees - s.AmountPaid
}

// Totals are the dashboard aggregates, recomputed on every read.
type Totals struct {
	TotalFees    float64 `json:"total_fees"`
	TotalPaid    float64 `json:"total_paid"`
	TotalBalance float64 `json:"total_balance"`
}

func TotalsOf(students []Student) Totals {
	var t Totals
	for _, s := range students {
		t.TotalFees += s.TotalFees
		t.TotalPaid += s.AmountPaid
	}
	t.TotalBalance = t.TotalFees - t.TotalPaid
	return t
}

type SignupRequest struct {
	Username string `json:"username" form:"username" validate:"required,notblank"`
	Password string `json:"password" form:"password" validate:"required,notblank"`
}

type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required,notblank"`
	Password string `json:"password" form:"password" validate:"required,notblank"`
}

type AddStudentRequest struct {
	Name       string  `json:"name" form:"name" validate:"required,notblank"`
	Class      string  `json:"class" form:"class" validate:"required,notblank"`
	TotalFees  float64 `json:"total_fees" form:"total_fees" validate:"gte=0"`
	AmountPaid float64 `json:"amount_paid" form:"amount_paid" validate:"gte=0,ltefield=TotalFees"`
}

type ApplyPaymentRequest struct {
	Payment float64 `json:"payment" form:"payment" validate:"gte=0"`
}

var validate = validator.New()

func init() {
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(s) != ""
	})
}

// Validate checks a request struct against its validate tags. Failures are
// reported as ErrInvalidInput with the field errors attached.
func Validate(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}
