// Package format holds the display helpers used when reshaping upstream
// payloads for the dashboard.
package format

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	indianEnglish = language.MustParse("en-IN")
	inrPrinter    = message.NewPrinter(indianEnglish)
	titleCaser    = cases.Title(indianEnglish)
)

// INR formats an amount in rupees the way the dashboard displays money:
// Indian digit grouping, two decimals, rupee sign.
//
//	INR(250)     -> "₹250.00"
//	INR(1234567) -> "₹12,34,567.00"
func INR(amount float64) string {
	scale, _ := currency.Standard.Rounding(currency.INR)
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + "₹" + inrPrinter.Sprint(number.Decimal(amount, number.Scale(scale)))
}

// Initials returns the avatar fallback for a display name: the first letter
// of the first two words, upper-cased. Blank names yield "NA".
func Initials(name string) string {
	var b strings.Builder
	count := 0
	for _, word := range strings.Fields(name) {
		r := firstLetter(word)
		if r == 0 {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		count++
		if count == 2 {
			break
		}
	}
	if count == 0 {
		return "NA"
	}
	return b.String()
}

// Title upper-cases the first letter of each word ("out_for_delivery" ->
// "Out For Delivery"). Used for status labels.
func Title(s string) string {
	s = strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(s))
	return titleCaser.String(strings.ToLower(s))
}

// Date renders an upstream timestamp (RFC 3339) as "19 Oct 2026". Values
// that do not parse are returned unchanged.
func Date(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.Format("02 Jan 2006")
}

func firstLetter(word string) rune {
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
	}
	return 0
}
