package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	rePaymentID = regexp.MustCompile(`^[A-Za-z0-9._:\-]{1,128}$`)
	reVideoID   = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,64}$`)
)

const (
	maxAddressRunes   = 128
	maxInvoiceRunes   = 256
	maxAmountScale    = 18
	maxAmountDigits   = 40
	maxMessageRawRune = 4000
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func validVideoID(v string) error {
	if !reVideoID.MatchString(v) {
		return invalid("videoId must be 1-64 characters of [A-Za-z0-9_-]")
	}
	return nil
}

// validToken accepts printable text without whitespace, e.g. wallet or
// lightning addresses.
func validToken(field, v string, max int) error {
	if v == "" {
		return invalid("%s is required", field)
	}
	if utf8.RuneCountInString(v) > max {
		return invalid("%s is longer than %d characters", field, max)
	}
	for _, r := range v {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return invalid("%s contains unsupported characters", field)
		}
	}
	return nil
}

// parseAmount accepts a positive decimal with at most 18 fractional digits
// whose canonical form has at most maxAmountDigits digits. The digit count is
// taken from the coefficient and exponent, so "1e2000000" is refused before
// anything renders it.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxAmountDigits {
		return decimal.Decimal{}, invalid("amount must be a positive decimal")
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, invalid("amount must be a positive decimal")
	}
	if -d.Exponent() > maxAmountScale {
		return decimal.Decimal{}, invalid("amount has more than %d fractional digits", maxAmountScale)
	}
	if amountDigits(d) > maxAmountDigits {
		return decimal.Decimal{}, invalid("amount has more than %d digits", maxAmountDigits)
	}
	return d, nil
}

// amountDigits counts the digits d.String() would print, without printing.
func amountDigits(d decimal.Decimal) int {
	n := len(d.Coefficient().String())
	if exp := int64(d.Exponent()); exp > 0 {
		return n + int(min(exp, int64(maxAmountDigits)+1))
	}
	return n
}
