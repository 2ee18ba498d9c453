package utils

import (
	"fmt"
	"html"
	"html/template"
	"math/big"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ethpandaops/suiscope/tableview"
)

// MistDigits is the number of decimals between MIST and SUI.
const MistDigits = 9

func FormatFloat(num float64, precision int) string {
	p := message.NewPrinter(language.English)
	f := fmt.Sprintf("%%.%vf", precision)
	s := strings.TrimRight(strings.TrimRight(p.Sprintf(f, num), "0"), ".")
	r := []rune(p.Sprintf(s, num))
	return string(r)
}

func FormatNumber(n uint64) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%d", n)
}

func FormatAddCommas(n uint64) template.HTML {
	number := FormatNumber(n)

	number = strings.ReplaceAll(number, ",", `<span class="thousands-separator"></span>`)
	return template.HTML(number)
}

// FormatSuiAmount formats a MIST amount as SUI with at most digits decimals.
func FormatSuiAmount(mist uint64, digits int) string {
	trimmedAmount, _ := trimAmount(new(big.Int).SetUint64(mist), MistDigits, 0, digits)
	return trimmedAmount + " " + tokenSymbol()
}

func FormatSuiAmountHTML(mist uint64, digits int) template.HTML {
	trimmedAmount, fullAmount := trimAmount(new(big.Int).SetUint64(mist), MistDigits, 0, digits)
	return template.HTML(fmt.Sprintf(`<span data-bs-toggle="tooltip" data-bs-placement="top" title="%s %s">%s <span class="text-muted">%s</span></span>`, fullAmount, tokenSymbol(), trimmedAmount, tokenSymbol()))
}

func tokenSymbol() string {
	if Config != nil && Config.Chain.TokenSymbol != "" {
		return Config.Chain.TokenSymbol
	}
	return "SUI"
}

func trimAmount(amount *big.Int, unitDigits int, maxPreCommaDigitsBeforeTrim int, digits int) (trimmedAmount, fullAmount string) {
	trimmedAmount = "0"
	postComma := "0"
	if amount == nil {
		return trimmedAmount, trimmedAmount
	}

	s := amount.String()
	l := len(s)

	if l > unitDigits {
		l -= unitDigits
		trimmedAmount = s[:l]
		postComma = strings.TrimRight(s[l:], "0")

		// large amounts lose decimals first
		if maxPreCommaDigitsBeforeTrim > 0 && l > maxPreCommaDigitsBeforeTrim {
			l -= maxPreCommaDigitsBeforeTrim
			if digits < l {
				digits = 0
			} else {
				digits -= l
			}
		}
	} else if l == unitDigits {
		postComma = strings.TrimRight(s, "0")
	} else if l != 0 {
		d := fmt.Sprintf("%%0%dd", unitDigits-l)
		postComma = strings.TrimRight(fmt.Sprintf(d, 0)+s, "0")
	}

	fullAmount = trimmedAmount
	if len(postComma) > 0 {
		fullAmount += "." + postComma
	}

	if len(postComma) > digits {
		postComma = postComma[:digits]
	}
	if len(postComma) > 0 {
		trimmedAmount += "." + postComma
	}
	return trimmedAmount, fullAmount
}

func FormatRecentTimeShort(ts time.Time) template.HTML {
	return template.HTML(formatRecentTime(ts, time.Now()))
}

func formatRecentTime(ts time.Time, now time.Time) string {
	duration := ts.Sub(now)
	var timeStr string
	absDuration := duration.Abs()
	if absDuration < 1*time.Second {
		return "now"
	} else if absDuration < 60*time.Second {
		timeStr = fmt.Sprintf("%v sec.", uint(absDuration.Seconds()))
	} else if absDuration < 60*time.Minute {
		timeStr = fmt.Sprintf("%v min.", uint(absDuration.Minutes()))
	} else if absDuration < 24*time.Hour {
		timeStr = fmt.Sprintf("%v hr.", uint(absDuration.Hours()))
	} else {
		timeStr = fmt.Sprintf("%v day.", uint(absDuration.Hours()/24))
	}
	if duration < 0 {
		return fmt.Sprintf("%v ago", timeStr)
	}
	return fmt.Sprintf("in %v", timeStr)
}

func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format("2006-01-02 15:04:05 UTC")
}

// FormatDuration renders durations like "5h 12m 3s".
func FormatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d <= 0 {
		return "0s"
	}
	parts := []string{}
	if days := d / (24 * time.Hour); days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
		d -= days * 24 * time.Hour
	}
	if hours := d / time.Hour; hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
		d -= hours * time.Hour
	}
	if minutes := d / time.Minute; minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
		d -= minutes * time.Minute
	}
	if d > 0 {
		parts = append(parts, fmt.Sprintf("%ds", d/time.Second))
	}
	return strings.Join(parts, " ")
}

// FormatCell renders a table cell for the web frontend.
func FormatCell(cell tableview.Cell) template.HTML {
	switch cell.Kind {
	case tableview.CellText:
		return template.HTML(html.EscapeString(cell.Text))
	case tableview.CellLink:
		return template.HTML(fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(cell.Href), html.EscapeString(cell.Text)))
	case tableview.CellTime:
		if cell.Time == nil {
			return emptyCellHTML
		}
		return template.HTML(fmt.Sprintf(`<span data-bs-toggle="tooltip" data-bs-placement="top" data-timer="%v" title="%s">%s</span>`, cell.Time.Unix(), FormatTimestamp(*cell.Time), FormatRecentTimeShort(*cell.Time)))
	case tableview.CellAmount:
		if cell.Amount == nil {
			return emptyCellHTML
		}
		return FormatSuiAmountHTML(*cell.Amount, 4)
	case tableview.CellRange:
		parts := make([]string, 0, len(cell.Parts))
		for _, part := range cell.Parts {
			parts = append(parts, string(FormatCell(part)))
		}
		return template.HTML(strings.Join(parts, " - "))
	default:
		return emptyCellHTML
	}
}

const emptyCellHTML = template.HTML(`<span class="text-muted">--</span>`)

// FormatCellText renders a table cell as plain text.
func FormatCellText(cell tableview.Cell, now time.Time) string {
	switch cell.Kind {
	case tableview.CellText:
		return cell.Text
	case tableview.CellLink:
		return cell.Text
	case tableview.CellTime:
		if cell.Time == nil {
			return "--"
		}
		return formatRecentTime(*cell.Time, now)
	case tableview.CellAmount:
		if cell.Amount == nil {
			return "--"
		}
		return FormatSuiAmount(*cell.Amount, 4)
	case tableview.CellRange:
		parts := make([]string, 0, len(cell.Parts))
		for _, part := range cell.Parts {
			parts = append(parts, FormatCellText(part, now))
		}
		return strings.Join(parts, " - ")
	default:
		return "--"
	}
}
