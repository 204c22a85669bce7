package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/iotracing/hue-wrapper/internal/models"
	"github.com/iotracing/hue-wrapper/internal/tui/styles"
)

// RenderLightCard renders a single light card
func RenderLightCard(light models.LightSnapshot, selected bool, maxWidth int) string {
	// Status indicator
	statusIcon := "○"
	statusStyle := styles.StyleStatusOff
	switch light.Status {
	case models.StatusOn:
		statusIcon = "●"
		statusStyle = styles.StyleStatusOn
	case models.StatusBlinking:
		statusIcon = "◉"
		statusStyle = styles.StyleStatusBlinking
	}

	// Color indicator
	colorIndicator := ""
	if c, ok := models.LookupColor(light.Color); ok && light.IsOn() {
		colorIndicator = lipgloss.NewStyle().
			Foreground(lipgloss.Color(c.HexString())).
			Render(" ◆ " + c.Name)
	}

	// Name styling based on state
	nameStyle := styles.StyleLightName
	if !light.IsOn() {
		nameStyle = styles.StyleLightNameDim
	}

	line1 := fmt.Sprintf("%s %s%s", statusStyle.Render(statusIcon), nameStyle.Render(light.Name), colorIndicator)

	details := []string{string(light.Status)}
	if !light.Reachable {
		details = append(details, styles.StyleError.Render("unreachable"))
	}
	line2 := "  " + styles.StyleTextMuted.Render(strings.Join(details, " · "))

	cardStyle := styles.StyleLightCard
	if selected {
		cardStyle = styles.StyleLightCardSelected
	}

	// Ensure minimum width for the card
	cardWidth := maxWidth / 3
	if cardWidth < 25 {
		cardWidth = 25
	}
	if cardWidth > 40 {
		cardWidth = 40
	}

	return cardStyle.Width(cardWidth).Render(line1 + "\n" + line2)
}

// RenderColorPresets renders the color choices, highlighting the current one
func RenderColorPresets(current string) string {
	presets := make([]string, 0, len(models.Colors))
	for _, c := range models.Colors {
		style := styles.StyleColorPreset
		if c.Name == current {
			style = styles.StyleColorPresetSelected
		}
		presets = append(presets, style.Foreground(lipgloss.Color(c.HexString())).Render(c.Name))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, presets...)
}
