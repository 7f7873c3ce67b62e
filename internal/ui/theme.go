package ui

import (
	"strings"

	"github.com/idilsaglam/todosync/internal/model"
)

// Theme bundles palette + symbols + box borders.
// All UI helpers pull from `current`.
type Theme struct {
	Title, Muted, Accent, Success, Error, Pending string
	High, Medium, Low                             string
	BoxUnchecked, BoxChecked                      string
	CornerTL, CornerTR, CornerBL, CornerBR        string
	H, V                                          string
	SymDone, SymUnchecked                         string
}

var current Theme

func init() { SetTheme("classic") }

func SetTheme(name string) {
	switch strings.ToLower(name) {
	case "neon":
		disableColor = false
		current = Theme{
			Title: "\033[95m", // bright magenta
			Muted: fgGray, Accent: "\033[96m",
			Success: fgGreen, Error: fgRed, Pending: "\033[93m",
			High: "\033[91m", Medium: "\033[93m", Low: "\033[92m",
			BoxUnchecked: "◻", BoxChecked: "◼",
			CornerTL: "╭", CornerTR: "╮", CornerBL: "╰", CornerBR: "╯",
			H: "─", V: "│",
			SymDone: "✔", SymUnchecked: "•",
		}
	case "mono":
		disableColor = true
		current = Theme{
			BoxUnchecked: "[ ]", BoxChecked: "[x]",
			CornerTL: "+", CornerTR: "+", CornerBL: "+", CornerBR: "+",
			H: "-", V: "|",
			SymDone: "x", SymUnchecked: "-",
		}
	default: // classic
		disableColor = false
		current = Theme{
			Title: bold, Muted: fgGray, Accent: fgBlue,
			Success: fgGreen, Error: fgRed, Pending: fgYellow,
			High: fgRed, Medium: fgYellow, Low: fgGreen,
			BoxUnchecked: "☐", BoxChecked: "☑",
			CornerTL: "┌", CornerTR: "┐", CornerBL: "└", CornerBR: "┘",
			H: "─", V: "│",
			SymDone: "✔", SymUnchecked: "•",
		}
	}
}

// Expose what renderers need
func Current() Theme { return current }

// PriorityColor follows the usual traffic light: high red, medium amber,
// low green.
func (t Theme) PriorityColor(p model.Priority) string {
	switch p.OrDefault() {
	case model.PriorityHigh:
		return t.High
	case model.PriorityLow:
		return t.Low
	}
	return t.Medium
}

// Tag renders a category name, e.g. "#errands".
func Tag(name string) string {
	if name == "" {
		return C(current.Muted, "#-")
	}
	return C(fgCyan, "#"+name)
}

// Priority renders p upper-cased in its color.
func Priority(p model.Priority) string {
	return C(current.PriorityColor(p), strings.ToUpper(string(p.OrDefault())))
}
