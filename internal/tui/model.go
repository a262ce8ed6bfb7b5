package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-fps-collector/internal/collector"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to update the display.
type TickMsg time.Time

// StatusMsg carries an updated collector snapshot.
type StatusMsg struct {
	Status collector.Status
}

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Model
// =============================================================================

// Model represents the TUI state.
type Model struct {
	// Configuration
	layer             string
	sourceName        string
	metricsAddr       string
	interval          time.Duration
	duration          time.Duration
	targetFrameTimeNs int64

	// Current state
	status       *collector.Status
	prevFrames   int
	prevUpdate   time.Time
	liveFPS      float64
	startTime    time.Time
	lastUpdate   time.Time
	detailedView bool

	// Display options
	width  int
	height int

	// Status source (for fetching updates)
	statusSource StatusSource

	// Quit flag
	quitting bool
}

// StatusSource provides collector snapshots. *collector.Collector
// implements it.
type StatusSource interface {
	Status() collector.Status
}

// Config holds TUI configuration.
type Config struct {
	Layer             string
	SourceName        string
	MetricsAddr       string
	Interval          time.Duration
	Duration          time.Duration // 0 = open-ended
	TargetFrameTimeNs int64
	StatusSource      StatusSource
}

// New creates a new TUI model.
func New(cfg Config) Model {
	return Model{
		layer:             cfg.Layer,
		sourceName:        cfg.SourceName,
		metricsAddr:       cfg.MetricsAddr,
		interval:          cfg.Interval,
		duration:          cfg.Duration,
		targetFrameTimeNs: cfg.TargetFrameTimeNs,
		statusSource:      cfg.StatusSource,
		startTime:         time.Now(),
		lastUpdate:        time.Now(),
		width:             80,
		height:            24,
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	// tea.WithAltScreen() is passed when creating the program.
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "d":
			m.detailedView = !m.detailedView
			return m, nil
		case "r":
			// Force refresh
			return m, tickCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		if m.statusSource != nil {
			m.applyStatus(m.statusSource.Status(), time.Time(msg))
		}
		return m, tickCmd()

	case StatusMsg:
		m.applyStatus(msg.Status, time.Now())
		return m, nil

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// applyStatus stores a snapshot and updates the live frame rate from the
// frames recorded since the previous snapshot.
func (m *Model) applyStatus(s collector.Status, now time.Time) {
	if m.status != nil && !m.prevUpdate.IsZero() {
		if dt := now.Sub(m.prevUpdate).Seconds(); dt > 0 {
			m.liveFPS = float64(s.Frames-m.prevFrames) / dt
		}
	}
	m.status = &s
	m.prevFrames = s.Frames
	m.prevUpdate = now
	m.lastUpdate = now
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderSummaryView()
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since sampling started, or since the dashboard
// opened before the first snapshot.
func (m Model) Elapsed() time.Duration {
	if m.status != nil && m.status.Elapsed > 0 {
		return m.status.Elapsed
	}
	return time.Since(m.startTime)
}

// Frames returns the number of unique frames recorded.
func (m Model) Frames() int {
	if m.status == nil {
		return 0
	}
	return m.status.Frames
}

// State returns the collector state name.
func (m Model) State() string {
	if m.status == nil {
		return "idle"
	}
	return m.status.State
}

// Progress returns run progress (0.0 to 1.0) for timed runs, or -1 when
// the run is open-ended.
func (m Model) Progress() float64 {
	if m.duration <= 0 {
		return -1
	}
	p := float64(m.Elapsed()) / float64(m.duration)
	if p > 1 {
		p = 1
	}
	return p
}

// AverageFPS returns frames per second since the first frame.
func (m Model) AverageFPS() float64 {
	if m.status == nil || m.status.SinceFirstFrame <= 0 {
		return 0
	}
	return float64(m.status.Frames) / m.status.SinceFirstFrame.Seconds()
}

// LiveFPS returns the frame rate between the last two snapshots.
func (m Model) LiveFPS() float64 {
	return m.liveFPS
}

// MissedOverlapRate returns the fraction of polls that may have lost
// frames.
func (m Model) MissedOverlapRate() float64 {
	if m.status == nil || m.status.Polls == 0 {
		return 0
	}
	return float64(m.status.MissedOverlaps) / float64(m.status.Polls)
}

// =============================================================================
// Helper for external use
// =============================================================================

// SendStatus sends a status update to the TUI.
func SendStatus(p *tea.Program, s collector.Status) {
	if p != nil {
		p.Send(StatusMsg{Status: s})
	}
}

// SendQuit sends a quit message to the TUI.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}

// =============================================================================
// Formatting Helpers (used by view.go)
// =============================================================================

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatNumber formats a number with K/M suffixes.
func formatNumber(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// formatFPS formats a frame rate.
func formatFPS(fps float64) string {
	if fps <= 0 {
		return "--"
	}
	return fmt.Sprintf("%.1f fps", fps)
}

// formatNsAsMs formats nanoseconds as milliseconds with two decimals.
func formatNsAsMs(ns int64) string {
	if ns <= 0 {
		return "--"
	}
	return fmt.Sprintf("%.2fms", float64(ns)/1e6)
}

// formatHz formats a vsync period as a refresh rate.
func formatHz(periodNs int64) string {
	if periodNs <= 0 {
		return "--"
	}
	return fmt.Sprintf("%.1f Hz", 1e9/float64(periodNs))
}

// formatPercent formats a 0..1 value as a percentage.
func formatPercent(value float64) string {
	if value < 0 {
		value = 0
	}
	return fmt.Sprintf("%.1f%%", value*100)
}
