package audit

import (
	"io"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang = language.English

// Render writes the report as a boxed text table followed by the test summary.
func Render(w io.Writer, title string, r Report) error {
	p := message.NewPrinter(lang)
	header := []string{"Tier", "Prob", "Observed", "Expected", "(O-E)²/E", "Status"}
	rows := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		term := "-"
		if row.Status == Included {
			term = p.Sprintf("%.3f", row.Term)
		}
		rows = append(rows, []string{
			row.Tier.String(),
			p.Sprintf("%.4f%%", 100*row.Prob),
			p.Sprintf("%d", row.Observed),
			p.Sprintf("%.1f", row.Expected),
			term,
			row.Status.String(),
		})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, cells := range rows {
		for i, c := range cells {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}

	var sb strings.Builder
	divider := func() {
		sb.WriteString("+")
		for _, w := range widths {
			sb.WriteString(strings.Repeat("-", w+2))
			sb.WriteString("+")
		}
		sb.WriteString("\n")
	}
	line := func(cells []string) {
		sb.WriteString("|")
		for i, c := range cells {
			sb.WriteString(" ")
			sb.WriteString(c)
			sb.WriteString(blank(widths[i] - runewidth.StringWidth(c)))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	inner := len(widths)*3 - 1
	for _, w := range widths {
		inner += w
	}
	tw := runewidth.StringWidth(title)
	left := max((inner-tw)/2, 0)
	sb.WriteString("+" + strings.Repeat("-", inner) + "+\n")
	sb.WriteString("|" + blank(left) + title + blank(inner-tw-left) + "|\n")
	divider()
	line(header)
	divider()
	for _, cells := range rows {
		line(cells)
	}
	divider()

	sb.WriteString(p.Sprintf("draws: %d\n", r.Draws))
	if math.IsNaN(r.PValue) {
		sb.WriteString("chi2: n/a (fewer than two tiers with expected >= 5)\n")
	} else {
		verdict := "consistent"
		if !r.Consistent(r.Alpha) {
			verdict = "INCONSISTENT"
		}
		sb.WriteString(p.Sprintf("chi2: %.3f  dof: %d  p: %.4f  critical(α=%.2f): %.3f  => %s\n",
			r.Chi2, r.DOF, r.PValue, r.Alpha, r.Critical, verdict))
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
