package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/mdcanvas/pkg/diagram"
)

// Palette. Rich-content nodes are green everywhere; folder explorers are
// blue.
var (
	colorAccent   = lipgloss.Color("36")
	colorRich     = lipgloss.Color("35")
	colorExplorer = lipgloss.Color("75")
	colorWarn     = lipgloss.Color("220")
	colorFail     = lipgloss.Color("167")
	colorText     = lipgloss.Color("255")
	colorLabel    = lipgloss.Color("245")
	colorMuted    = lipgloss.Color("240")
)

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorAccent)
	StyleLink      = lipgloss.NewStyle().Foreground(colorExplorer).Underline(true)
	StyleDim       = lipgloss.NewStyle().Foreground(colorMuted)
	StyleValue     = lipgloss.NewStyle().Foreground(colorText)
)

var (
	styleLabel       = lipgloss.NewStyle().Foreground(colorLabel)
	styleHeader      = lipgloss.NewStyle().Foreground(colorLabel).Bold(true)
	styleRich        = lipgloss.NewStyle().Foreground(colorRich)
	styleExplorer    = lipgloss.NewStyle().Foreground(colorExplorer)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorAccent)
	styleCommand     = lipgloss.NewStyle().Foreground(colorExplorer)

	styleOK   = lipgloss.NewStyle().Foreground(colorRich)
	styleFail = lipgloss.NewStyle().Foreground(colorFail)
	styleWarn = lipgloss.NewStyle().Foreground(colorWarn)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// shapeStyle returns the style used for a node of the given shape.
func shapeStyle(shape diagram.ShapeKind) lipgloss.Style {
	if shape == diagram.ShapeRichContent {
		return styleRich
	}
	return StyleValue
}

// statusLine renders one result line, as printed by the commands and shown
// at the bottom of the browser.
func statusLine(ok bool, msg string) string {
	if ok {
		return styleOK.Render(iconSuccess) + " " + msg
	}
	return styleFail.Render(iconError) + " " + msg
}

func printSuccess(format string, args ...any) {
	fmt.Println(statusLine(true, fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Println(statusLine(false, fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleWarn.Render(iconWarning) + " " + styleWarn.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleLabel.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a path that a command read or wrote.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Println(styleLabel.Width(12).Render(key) + " " + StyleValue.Render(value))
}

// printStats prints a document summary such as "3 nodes · 2 edges · saved".
func printStats(nodeCount, edgeCount int, dirty bool) {
	var parts []string
	if nodeCount > 0 {
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d nodes", nodeCount)))
	}
	if edgeCount > 0 {
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d edges", edgeCount)))
	}
	if dirty {
		parts = append(parts, styleWarn.Render("unsaved"))
	} else {
		parts = append(parts, styleOK.Render("saved"))
	}
	fmt.Println("  " + strings.Join(parts, StyleDim.Render(" · ")))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Println()
}
