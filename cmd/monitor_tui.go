// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/aldestat/pkg/aldes"
)

// commandSender is the part of the bridge the prompt uses
type commandSender interface {
	SendCommand(ctx context.Context, cmd aldes.Command) ([]byte, error)
	Stats() aldes.StatsSnapshot
}

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// TUI model
type monitorModel struct {
	endpoint      string
	showAll       bool
	bridge        commandSender
	stopped       error
	lastFrame     *aldes.DecodedFrame
	lastFrameAt   time.Time
	fields        table.Model
	input         textinput.Model
	eventLog      []logEntry
	maxLogEntries int
	width         int
	height        int
	quitting      bool
}

// Messages
type monitorTickMsg time.Time

type frameMsg struct {
	frame *aldes.DecodedFrame
	raw   []byte
	err   error
}

type commandMsg struct {
	cmd   aldes.Command
	frame []byte
	err   error
}

type bridgeReadyMsg struct {
	bridge commandSender
}

type bridgeStoppedMsg struct {
	err error
}

func initialMonitorModel(endpoint string, showAll bool) monitorModel {
	fields := table.New(
		table.WithColumns([]table.Column{
			{Title: "Field", Width: 14},
			{Title: "Value", Width: 14},
		}),
		table.WithHeight(14),
	)

	ti := textinput.New()
	ti.Placeholder = "boost | confort 3 | temp 21.5"
	ti.Prompt = "> "
	ti.CharLimit = 32
	ti.Width = 32
	ti.Focus()

	return monitorModel{
		endpoint:      endpoint,
		showAll:       showAll,
		fields:        fields,
		input:         ti,
		eventLog:      make([]logEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(monitorTickCmd(), textinput.Blink)
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			return m, m.submit(line)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case monitorTickMsg:
		return m, monitorTickCmd()

	case bridgeReadyMsg:
		m.bridge = msg.bridge
		m.addLogEntry(fmt.Sprintf("Connecting to %s", m.endpoint), false)

	case bridgeStoppedMsg:
		m.stopped = msg.err
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Bridge stopped: %v", msg.err), true)
		}

	case frameMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("FRAME REJECTED: %v", msg.err), true)
			return m, nil
		}
		if m.lastFrame == nil {
			m.addLogEntry("Synchronized", false)
		}
		m.lastFrame = msg.frame
		m.lastFrameAt = time.Now()
		m.fields.SetRows(fieldRows(msg.frame))
		for _, fe := range msg.frame.Errors() {
			m.addLogEntry(fe.Error(), true)
		}
		if m.showAll {
			m.addLogEntry(fmt.Sprintf("Frame %s (valid)", aldes.FormatHex(msg.frame.Raw()[:4])), false)
		}
		return m, nil

	case commandMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("COMMAND %s FAILED: %v", msg.cmd.Kind, msg.err), true)
		} else {
			m.addLogEntry(aldes.FormatCommand(msg.cmd, msg.frame), false)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit parses a prompt line and sends it in the background. The result
// arrives as a commandMsg through the bridge observer.
func (m *monitorModel) submit(line string) tea.Cmd {
	if line == "" {
		return nil
	}
	cmd, err := parseCommandLine(line)
	if err != nil {
		m.addLogEntry(err.Error(), true)
		return nil
	}
	if m.bridge == nil {
		m.addLogEntry("Not connected yet", true)
		return nil
	}
	b := m.bridge
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = b.SendCommand(ctx, cmd)
		return nil
	}
}

// parseCommandLine reads prompt syntax: a kind and an optional argument
// ("confort 3", "temp 21.5")
func parseCommandLine(line string) (aldes.Command, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return aldes.Command{}, fmt.Errorf("%w: empty command", aldes.ErrInvalidCommand)
	}
	if len(parts) > 2 {
		return aldes.Command{}, fmt.Errorf("%w: too many arguments", aldes.ErrInvalidCommand)
	}

	kind := aldes.CommandKind(strings.ToLower(parts[0]))
	if !kind.Valid() {
		return aldes.Command{}, fmt.Errorf("%w: unknown kind %q", aldes.ErrInvalidCommand, parts[0])
	}
	if len(parts) == 1 {
		if kind == aldes.KindTemp {
			return aldes.Command{}, fmt.Errorf("%w: temp needs a temperature", aldes.ErrInvalidCommand)
		}
		return aldes.Command{Kind: kind}, nil
	}

	arg := parts[1]
	switch kind {
	case aldes.KindConfort, aldes.KindVacances, aldes.KindDebug:
		n, err := strconv.Atoi(arg)
		if err != nil {
			return aldes.Command{}, fmt.Errorf("%w: %s wants an integer, got %q", aldes.ErrInvalidCommand, kind, arg)
		}
		return aldes.Command{Kind: kind, Params: map[string]interface{}{aldes.ParamDuration: n}}, nil
	case aldes.KindTemp:
		c, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return aldes.Command{}, fmt.Errorf("%w: temp wants a number, got %q", aldes.ErrInvalidCommand, arg)
		}
		return aldes.NewTempCommand(c), nil
	}
	return aldes.Command{}, fmt.Errorf("%w: %s takes no argument", aldes.ErrInvalidCommand, kind)
}

func fieldRows(frame *aldes.DecodedFrame) []table.Row {
	fields := frame.Fields()
	rows := make([]table.Row, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, table.Row{f.Name, f.Value.String()})
	}
	return rows
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// formatAge renders the time since the last frame
func formatAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds ago", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm ago", int(d.Hours()), int(d.Minutes())%60)
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("ALDESTAT - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Connection: %s | Esc to quit", m.endpoint)))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case m.stopped != nil:
		s.WriteString(errorStyle.Render("✗ Disconnected"))
	case m.lastFrame == nil:
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
	default:
		s.WriteString(valueStyle.Render("✓ Synchronized"))
		s.WriteString(headerStyle.Render(fmt.Sprintf(" (map %s, last frame %s)",
			m.lastFrame.FieldMapVersion(), formatAge(time.Since(m.lastFrameAt)))))
	}
	s.WriteString("\n\n")

	// Statistics
	var stats aldes.StatsSnapshot
	if m.bridge != nil {
		stats = m.bridge.Stats()
	}
	var validPercent float64
	if stats.TotalFrames > 0 {
		validPercent = float64(stats.ValidFrames) * 100.0 / float64(stats.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", stats.TotalFrames)),
		labelStyle.Render("Valid:"), valueStyle.Render(fmt.Sprintf("%d (%.1f%%)", stats.ValidFrames, validPercent)),
		labelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d", stats.Errors())),
	))
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		labelStyle.Render("Discarded:"), valueStyle.Render(fmt.Sprintf("%d B", stats.DiscardedBytes)),
		labelStyle.Render("Commands:"), valueStyle.Render(fmt.Sprintf("%d sent, %d rejected", stats.CommandsSent, stats.CommandsRejected)),
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.1f frames/s", stats.FrameRate)),
	))

	fieldsBox := boxStyle.Render(m.fields.View())
	statsBox := boxStyle.Render(statsContent.String())
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, fieldsBox, " ", statsBox))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 26
	if logHeight < 5 {
		logHeight = 5
	}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	logContent := strings.Builder{}
	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for _, entry := range m.eventLog[startIdx:] {
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), errorStyle.Render("✗ "+entry.message)))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), warningStyle.Render("ℹ "+entry.message)))
			}
		}
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))
	s.WriteString("\n")
	s.WriteString(m.input.View())

	return s.String()
}
