package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iotracing/hue-wrapper/internal/client"
	"github.com/iotracing/hue-wrapper/internal/events"
	"github.com/iotracing/hue-wrapper/internal/models"
	"github.com/iotracing/hue-wrapper/internal/tui/components"
	"github.com/iotracing/hue-wrapper/internal/tui/messages"
	"github.com/iotracing/hue-wrapper/internal/tui/styles"
)

const allTarget = "ALL"

// Model is the main application model
type Model struct {
	// Service connection
	client  *client.Client
	events  *client.EventSubscription
	changes chan []events.Change

	// Data
	bridge models.BridgeInfo
	lights []models.LightSnapshot

	// Selection
	selected int
	color    models.NamedColor
	all      bool

	loading  bool
	spinner  spinner.Model
	showHelp bool
	status   string

	// Window size
	width  int
	height int

	// Error state
	err error

	// Context for cancellation
	ctx    context.Context
	cancel context.CancelFunc
}

// NewModel creates a new application model talking to the given service
func NewModel(c *client.Client) Model {
	ctx, cancel := context.WithCancel(context.Background())

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.StyleSpinner

	return Model{
		client:  c,
		changes: make(chan []events.Change, 16),
		color:   models.Colors[0],
		loading: true,
		spinner: s,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("Hue Wrapper"),
		m.spinner.Tick,
		m.fetchPlatformCmd(),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case tea.KeyMsg:
		return m.handleKey(msg)

	case messages.PlatformFetchedMsg:
		m.loading = false
		m.err = nil
		m.bridge = msg.Platform.Bridge
		m.lights = msg.Platform.Lights
		if m.selected >= len(m.lights) {
			m.selected = max(len(m.lights)-1, 0)
		}

		// Start listening for changes once the first fetch succeeded
		if m.events == nil && m.client != nil {
			m.events = m.client.Subscribe(m.forwardChanges)
			if err := m.events.Start(m.ctx); err != nil {
				m.err = err
			}
			return m, m.waitForChanges()
		}

	case messages.ChangesMsg:
		for _, change := range msg.Changes {
			m.applyChange(change)
		}
		return m, m.waitForChanges()

	case messages.CommandDoneMsg:
		m.err = nil
		if msg.Message != "" {
			m.status = msg.Message
		} else {
			m.status = fmt.Sprintf("%s sent to %s", msg.Op, msg.Target)
		}

	case messages.ErrorMsg:
		m.loading = false
		m.err = msg.Err

	case messages.RefreshMsg:
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.fetchPlatformCmd())
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.cancel()
		if m.events != nil {
			m.events.Stop()
		}
		return m, tea.Quit

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.selected < len(m.lights)-1 {
			m.selected++
		}

	case "c":
		m.color = models.NextColor(m.color.Name)

	case "a":
		m.all = !m.all

	case "?":
		m.showHelp = !m.showHelp

	case "o":
		return m, m.commandCmd("ON", m.color.Name)

	case "f":
		return m, m.commandCmd("OFF", "")

	case "b":
		return m, m.commandCmd("BLINK", m.color.Name)

	case "r":
		m.status = ""
		return m, m.resetCmd()
	}

	return m, nil
}

// applyChange replaces the snapshot of the changed light
func (m *Model) applyChange(change events.Change) {
	if change.Error != "" {
		m.err = fmt.Errorf("%s: %s", change.Light.Name, change.Error)
	}
	for i := range m.lights {
		if m.lights[i].Name == change.Light.Name {
			m.lights[i] = change.Light
			return
		}
	}
	m.lights = append(m.lights, change.Light)
}

func (m Model) target() string {
	if m.all || len(m.lights) == 0 {
		return allTarget
	}
	return m.lights[m.selected].Name
}

// forwardChanges runs on the subscription goroutine
func (m Model) forwardChanges(changes []events.Change) {
	select {
	case m.changes <- changes:
	case <-m.ctx.Done():
	}
}

func (m Model) waitForChanges() tea.Cmd {
	changes, ctx := m.changes, m.ctx
	return func() tea.Msg {
		select {
		case c := <-changes:
			return messages.ChangesMsg{Changes: c}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) fetchPlatformCmd() tea.Cmd {
	c, ctx := m.client, m.ctx
	return func() tea.Msg {
		p, err := c.Platform(ctx)
		if err != nil {
			return messages.ErrorMsg{Err: err}
		}
		return messages.PlatformFetchedMsg{Platform: p}
	}
}

func (m Model) commandCmd(op, color string) tea.Cmd {
	c, ctx, target := m.client, m.ctx, m.target()
	return func() tea.Msg {
		message, err := c.Command(ctx, target, op, color)
		if err != nil {
			return messages.ErrorMsg{Err: err}
		}
		return messages.CommandDoneMsg{Target: target, Op: op, Message: message}
	}
}

func (m Model) resetCmd() tea.Cmd {
	c, ctx := m.client, m.ctx
	return func() tea.Msg {
		if err := c.Reset(ctx); err != nil {
			return messages.ErrorMsg{Err: err}
		}
		return messages.RefreshMsg{}
	}
}

// View renders the screen
func (m Model) View() string {
	var b strings.Builder

	status := ""
	if m.bridge.IP != "" {
		status = "Connected to " + m.bridge.IP
	}
	b.WriteString(components.RenderHeader(m.width, status))
	b.WriteString("\n\n")

	if m.loading {
		b.WriteString(m.spinner.View() + " Loading lights...\n")
		b.WriteString(m.renderFooter())
		return b.String()
	}

	if len(m.lights) == 0 {
		b.WriteString(styles.StyleTextMuted.Render("No lights registered. Press r to reset.") + "\n")
	}
	cards := make([]string, 0, len(m.lights))
	for i, l := range m.lights {
		cards = append(cards, components.RenderLightCard(l, m.all || i == m.selected, m.width))
	}
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left, cards...))
	b.WriteString("\n\n")

	b.WriteString(styles.StyleTextMuted.Render("Color  ") + components.RenderColorPresets(m.color.Name) + "\n")
	b.WriteString(styles.StyleTextMuted.Render("Target ") + styles.StylePrimary.Render(m.target()) + "\n")

	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderFooter() string {
	var b strings.Builder
	if m.err != nil {
		b.WriteString("\n" + styles.StyleError.Render("Error: "+m.err.Error()))
	} else if m.status != "" {
		b.WriteString("\n" + styles.StyleSuccess.Render(m.status))
	}
	b.WriteString("\n" + m.renderHelp())
	return b.String()
}

func (m Model) renderHelp() string {
	keys := []string{
		styles.StyleHelpKey.Render("↑↓") + " nav",
		styles.StyleHelpKey.Render("o") + " on",
		styles.StyleHelpKey.Render("f") + " off",
		styles.StyleHelpKey.Render("b") + " blink",
		styles.StyleHelpKey.Render("c") + " color",
		styles.StyleHelpKey.Render("a") + " all",
		styles.StyleHelpKey.Render("r") + " reset",
		styles.StyleHelpKey.Render("q") + " quit",
	}

	// For narrow terminals, show fewer keys unless help was asked for
	if m.width > 0 && m.width < 60 && !m.showHelp {
		keys = []string{
			styles.StyleHelpKey.Render("o/f/b") + " on/off/blink",
			styles.StyleHelpKey.Render("?") + " help",
			styles.StyleHelpKey.Render("q") + " quit",
		}
	}

	return styles.StyleHelp.Render(strings.Join(keys, "  "))
}
