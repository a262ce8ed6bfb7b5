package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Main View Rendering
// =============================================================================

// renderSummaryView renders the main dashboard.
func (m Model) renderSummaryView() string {
	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderProgress())

	if m.status != nil {
		sections = append(sections, m.renderFrameStats())
		sections = append(sections, m.renderPollHealth())
		if m.detailedView {
			sections = append(sections, m.renderDetails())
		}
	}

	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	header := fmt.Sprintf(
		" go-fps-collector │ %s │ Frames: %s │ Elapsed: %s ",
		GetStateLabel(m.State()),
		formatNumber(int64(m.Frames())),
		formatDuration(m.Elapsed()),
	)

	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// Progress Section
// =============================================================================

func (m Model) renderProgress() string {
	var body []string

	progress := m.Progress()
	if progress >= 0 {
		barWidth := m.width - 30
		if barWidth < 20 {
			barWidth = 20
		}
		body = append(body, RenderProgressBar(progress, barWidth))
	}

	switch m.State() {
	case "waiting_for_layer":
		body = append(body, statusWarning.Render("Waiting for the layer to composite a frame..."))
	case "sampling":
		if progress < 0 {
			body = append(body, statusInfo.Render("Sampling until Ctrl+C or app exit"))
		} else {
			body = append(body, statusInfo.Render(fmt.Sprintf("Sampling... %s of %s",
				formatDuration(m.Elapsed()), formatDuration(m.duration))))
		}
	case "stopped":
		body = append(body, statusOK.Render("✓ Sampling finished"))
	case "errored":
		msg := "✗ Sampling failed"
		if m.status != nil && m.status.Error != "" {
			msg += ": " + m.status.Error
		}
		body = append(body, statusError.Render(msg))
	default:
		body = append(body, mutedStyle.Render("Starting..."))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Run")}, body...)...,
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Frame Statistics
// =============================================================================

func (m Model) renderFrameStats() string {
	s := m.status
	targetFPS := 0.0
	if m.targetFrameTimeNs > 0 {
		targetFPS = 1e9 / float64(m.targetFrameTimeNs)
	}

	rows := []string{
		RenderKeyValue("Frames", formatNumber(int64(s.Frames))),
		renderStyledKeyValue("Live rate", GetFPSStyle(m.LiveFPS(), targetFPS).Render(formatFPS(m.LiveFPS()))),
		renderStyledKeyValue("Average rate", GetFPSStyle(m.AverageFPS(), targetFPS).Render(formatFPS(m.AverageFPS()))),
		RenderKeyValue("Refresh", formatHz(s.VsyncPeriodNs)+" ("+formatNsAsMs(s.VsyncPeriodNs)+" vsync)"),
		RenderKeyValue("Target frame", formatNsAsMs(m.targetFrameTimeNs)),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Frames")}, rows...)...,
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Poll Health
// =============================================================================

func (m Model) renderPollHealth() string {
	s := m.status
	missedRate := m.MissedOverlapRate()
	overlap := GetOverlapStyle(GetOverlapStatus(missedRate)).
		Render(fmt.Sprintf("%d (%s of polls)", s.MissedOverlaps, formatPercent(missedRate)))

	skipped := valueGoodStyle.Render("0")
	if s.SkippedRows > 0 {
		skipped = valueWarnStyle.Render(formatNumber(s.SkippedRows))
	}

	rows := []string{
		RenderKeyValue("Polls", fmt.Sprintf("%s every %s", formatNumber(s.Polls), m.interval)),
		renderStyledKeyValue("No overlap", overlap),
		renderStyledKeyValue("Skipped rows", skipped),
	}
	if GetOverlapStatus(missedRate) != OverlapOK {
		rows = append(rows, dimStyle.Render("* frames may be missing; try a shorter -interval"))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Poll Health")}, rows...)...,
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Details
// =============================================================================

func (m Model) renderDetails() string {
	s := m.status
	rows := []string{
		RenderKeyValue("Layer", truncate(m.layer, m.width-26)),
		RenderKeyValue("Source", m.sourceName),
		RenderKeyValue("Latest present", fmt.Sprintf("%d ns", s.LatestSeenNs)),
		RenderKeyValue("Since first frame", formatDuration(s.SinceFirstFrame)),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Details")}, rows...)...,
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	keys := []string{"q: stop", "d: details", "r: refresh"}
	footer := strings.Join(keys, " • ")
	if m.metricsAddr != "" {
		footer += " │ metrics: http://" + m.metricsAddr + "/metrics"
	}
	return footerStyle.Render(footer)
}

// truncate shortens s to width runes with a trailing ellipsis.
func truncate(s string, width int) string {
	if width < 4 {
		width = 4
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
