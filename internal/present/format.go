package present

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/errors"
)

var monthNames = [12]string{"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"}

// FormatMagnitude renders value with two decimals and a magnitude unit:
// below one thousand there is no unit, below one million the value is shown
// in thousands ("mil"), otherwise in millions ("milhões").
//
//	FormatMagnitude(500, "")       == " 500.00 "
//	FormatMagnitude(1500, "R$")    == "R$ 1.50 mil"
//	FormatMagnitude(2500000, "")   == " 2.50 milhões"
//
// Negative and non-finite values are rejected.
func FormatMagnitude(value float64, prefix string) (string, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", errors.Validation("cannot format a non-finite value")
	}
	if value < 0 {
		return "", errors.Validation(fmt.Sprintf("cannot format negative value %.2f", value))
	}

	for _, unit := range []string{"", "mil"} {
		if value < 1000 {
			return fmt.Sprintf("%s %.2f %s", prefix, value, unit), nil
		}
		value /= 1000
	}
	return fmt.Sprintf("%s %.2f milhões", prefix, value), nil
}

func formatDecimal(d decimal.Decimal, prefix string) (string, error) {
	return FormatMagnitude(d.InexactFloat64(), prefix)
}

// MillionsText renders a money value in millions with thousands separators,
// e.g. 1234567890 -> "R$ 1,234.57 MI".
func MillionsText(d decimal.Decimal) string {
	millions := d.Div(decimal.NewFromInt(1_000_000)).StringFixed(2)

	sign := ""
	if strings.HasPrefix(millions, "-") {
		sign, millions = "-", millions[1:]
	}
	intPart, frac, _ := strings.Cut(millions, ".")
	return fmt.Sprintf("R$ %s%s.%s MI", sign, groupThousands(intPart), frac)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// MonthName returns the short Portuguese name of a month number (1-12).
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}
