package bond

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const displayDateLayout = "Jan 2, 2006"

// FormatActivity produces the display row for a cached activity. It is pure
// and total: absent optional fields render as empty strings or "0.00", never
// an error.
func FormatActivity(a Activity) ViewRow {
	return ViewRow{
		ID:              a.ExternalID,
		Description:     a.Description,
		PrincipalName:   a.PrincipalName,
		ObligeeName:     a.ObligeeName,
		JobName:         a.JobName,
		Type:            a.Type,
		Status:          a.Status,
		StatusClass:     StatusClass(a.Status),
		Amount:          FormatAmount(a.Amount),
		Premium:         FormatAmount(a.Premium),
		EffectiveDate:   FormatDate(a.EffectiveDate),
		TransactionDate: FormatDate(a.TransactionDate),
	}
}

// FormatAmount renders a monetary value as a fixed two-decimal string with
// thousands separators, rounding half away from zero.
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00"
	}
	cents := int64(math.Floor(math.Abs(v)*100 + 0.5))
	whole := strconv.FormatInt(cents/100, 10)

	var groups []string
	for len(whole) > 3 {
		groups = append([]string{whole[len(whole)-3:]}, groups...)
		whole = whole[:len(whole)-3]
	}
	groups = append([]string{whole}, groups...)

	out := strings.Join(groups, ",") + fmt.Sprintf(".%02d", cents%100)
	if v < 0 && cents != 0 {
		out = "-" + out
	}
	return out
}

// FormatDate renders a date in short form, or "" for the zero value.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(displayDateLayout)
}

// StatusClass derives a CSS-style class from a status label: lowercase with
// each whitespace run collapsed to a single hyphen ("In Review" -> "in-review").
// Applying it to its own output is a no-op.
func StatusClass(status string) string {
	return strings.Join(strings.Fields(strings.ToLower(status)), "-")
}
