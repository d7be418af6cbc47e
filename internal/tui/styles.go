package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HasTrueColor indicates if the terminal supports 24-bit color
var HasTrueColor = detectTrueColor()

func detectTrueColor() bool {
	colorTerm := os.Getenv("COLORTERM")
	return colorTerm == "truecolor" || colorTerm == "24bit"
}

// Theme colors
var (
	ColorBrand     = brandColor()
	ColorBorder    = lipgloss.Color("238")
	ColorBorderFoc = lipgloss.Color("208")

	ColorMuted  = lipgloss.Color("241") // Labels, static text
	ColorNormal = lipgloss.Color("252")
	ColorBright = lipgloss.Color("255") // Dynamic values
	ColorAccent = lipgloss.Color("208") // Action keys

	ColorSuccess = lipgloss.Color("82")
	ColorWarning = lipgloss.Color("220")
	ColorDanger  = lipgloss.Color("196")
	ColorInfo    = lipgloss.Color("75")
)

func brandColor() lipgloss.Color {
	if HasTrueColor {
		return lipgloss.Color("#FF8A3D")
	}
	return lipgloss.Color("208")
}

// Text styles
var (
	TextMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
	TextNormal  = lipgloss.NewStyle().Foreground(ColorNormal)
	TextBright  = lipgloss.NewStyle().Foreground(ColorBright)
	TextSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	TextWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	TextDanger  = lipgloss.NewStyle().Foreground(ColorDanger)
	TextInfo    = lipgloss.NewStyle().Foreground(ColorInfo)

	// TextAction for keys/buttons
	TextAction = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBrand)

	statusStyle = lipgloss.NewStyle().
			Foreground(ColorNormal).
			MarginLeft(2)

	errorStyle = TextDanger.MarginLeft(2)

	successStyle = TextSuccess.MarginLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			MarginLeft(2)

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(ColorBright).
				Bold(true)
)

// Card styles
var (
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	CardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	CardFocusedStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderFoc).
				Padding(0, 1)
)

// Header styles
var (
	CatIcon = "ᓚᘏᗢ"

	BrandTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBrand).
			PaddingRight(1)

	NetworkBadgeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("235")).
				Background(ColorBrand).
				Padding(0, 1).
				Bold(true)

	WrongNetworkBadgeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("255")).
				Background(ColorDanger).
				Padding(0, 1).
				Bold(true)

	WalletBadgeStyle = lipgloss.NewStyle().
				Foreground(ColorNormal).
				Background(lipgloss.Color("238")).
				Padding(0, 1)
)

// RenderHeader renders the top bar: brand on the left, network and wallet badges on the right.
func RenderHeader(network, wallet string, onTarget bool, width int) string {
	left := BrandTitleStyle.Render(CatIcon) + " " + TextBright.Bold(true).Render("CAT NAME SERVICE")

	badge := NetworkBadgeStyle
	if !onTarget {
		badge = WrongNetworkBadgeStyle
	}
	right := badge.Render(network) + " " + WalletBadgeStyle.Render(wallet)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return " " + left + strings.Repeat(" ", gap) + right
}

// Card creates a styled card with title and body
func Card(title, body string, width int) string {
	if width == 0 {
		width = 40
	}
	return CardStyle.Width(width).Render(CardTitleStyle.Render(title) + "\n" + body)
}

// CardFocused creates a focused card (highlighted border)
func CardFocused(title, body string, width int) string {
	if width == 0 {
		width = 40
	}
	return CardFocusedStyle.Width(width).Render(CardTitleStyle.Render(title) + "\n" + body)
}

// WarningBox creates a warning box with message
func WarningBox(title, message string, width int) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(1, 2).
		Width(width)

	content := TextWarning.Bold(true).Render("⚠ "+title) + "\n" + TextNormal.Render(message)
	return style.Render(content)
}

// KeyHint creates a keyboard hint like "[k] action"
func KeyHint(key, action string) string {
	return TextAction.Render("["+key+"]") + " " + TextMuted.Render(action)
}

// KeyHints joins multiple key hints
func KeyHints(hints ...string) string {
	return strings.Join(hints, "  ")
}

// Table renders a simple two-column table
func Table(rows [][]string, indent int) string {
	if len(rows) == 0 {
		return ""
	}

	maxWidth := 0
	for _, row := range rows {
		if len(row) > 0 && lipgloss.Width(row[0]) > maxWidth {
			maxWidth = lipgloss.Width(row[0])
		}
	}

	var b strings.Builder
	indentStr := strings.Repeat(" ", indent)
	for _, row := range rows {
		b.WriteString(indentStr)
		if len(row) >= 2 {
			b.WriteString(TextMuted.Render(row[0]))
			b.WriteString(strings.Repeat(" ", maxWidth-lipgloss.Width(row[0])+2))
			b.WriteString(TextBright.Render(row[1]))
		} else if len(row) == 1 {
			b.WriteString(row[0])
		}
		b.WriteString("\n")
	}
	return b.String()
}

// truncate shortens s to max display cells, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	if max <= 1 || lipgloss.Width(s) <= max {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r)) > max-1 {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
