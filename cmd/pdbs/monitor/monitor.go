// Package monitor implements the pdbs full-screen monitor.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pd-buddy/pdbuddy-go/pkg/model"
	"github.com/pd-buddy/pdbuddy-go/pkg/pdo"
	"github.com/pd-buddy/pdbuddy-go/pkg/service"
	"github.com/pd-buddy/pdbuddy-go/pkg/transport"
)

// DefaultInterval is the polling period.
const DefaultInterval = time.Second

// --- STYLES ---
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#575B7E")).
			Padding(0, 1)

	baseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	keyStyle     = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	markStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	changedStyle = lipgloss.NewStyle().Background(lipgloss.Color("202")).Foreground(lipgloss.Color("0"))
)

// --- MESSAGES ---
type tickMsg time.Time

// snapshotMsg is one poll of the device.
type snapshotMsg struct {
	Config model.Config
	Output bool
	Offers []pdo.Offer
	Err    error
	At     time.Time
}

// execMsg is the reply to a line typed at the command input.
type execMsg struct {
	Line  string
	Reply []string
	Err   error
}

// actionMsg reports the outcome of a key action.
type actionMsg struct {
	What string
	Err  error
}

// --- MODEL ---

// Model is the bubbletea model of the monitor.
type Model struct {
	ctx      context.Context
	sink     service.Sink
	interval time.Duration

	viewport  viewport.Model
	textInput textinput.Model
	ready     bool

	snap    snapshotMsg
	prev    snapshotMsg
	polled  bool
	polling bool
	history []string
	status  string
	gone    bool
}

// NewModel creates a monitor polling sink every interval.
func NewModel(ctx context.Context, sink service.Sink, interval time.Duration) Model {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ti := textinput.New()
	ti.Placeholder = "get_tmpcfg | set_v 9000 | output disable"
	ti.Prompt = transport.DefaultPrompt

	return Model{
		ctx:       ctx,
		sink:      sink,
		interval:  interval,
		textInput: ti,
		polling:   true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.poll(), m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// poll reads the flash configuration, the output state and the source
// capabilities. Offers are optional: a sink without a PD source still
// reports its configuration.
func (m Model) poll() tea.Cmd {
	sink, ctx := m.sink, m.ctx
	return func() tea.Msg {
		snap := snapshotMsg{At: time.Now()}
		snap.Config, snap.Err = sink.GetConfig(ctx)
		if snap.Err != nil {
			return snap
		}
		snap.Output, snap.Err = sink.Output(ctx)
		if snap.Err != nil {
			return snap
		}
		snap.Offers, snap.Err = sink.ListOffers(ctx)
		return snap
	}
}

func (m Model) exec(line string) tea.Cmd {
	sink, ctx := m.sink, m.ctx
	return func() tea.Msg {
		reply, err := sink.Exec(ctx, line)
		return execMsg{Line: line, Reply: reply, Err: err}
	}
}

func (m Model) action(what string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionMsg{What: what, Err: fn(ctx)}
	}
}

// --- UPDATE ---
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.textInput.Focused() {
			switch msg.Type {
			case tea.KeyEnter:
				line := strings.TrimSpace(m.textInput.Value())
				m.textInput.SetValue("")
				if line == "" || m.gone {
					return m, nil
				}
				return m, m.exec(line)
			case tea.KeyCtrlC, tea.KeyEsc:
				m.textInput.Blur()
				return m, nil
			}
		} else {
			switch msg.String() {
			case "q", "ctrl+c":
				return m, tea.Quit
			case ":", "c":
				m.textInput.Focus()
				return m, textinput.Blink
			case "o":
				if m.gone || !m.polled {
					return m, nil
				}
				enable := !m.snap.Output
				return m, m.action(fmt.Sprintf("output %s", onOff(enable)), func(ctx context.Context) error {
					return m.sink.SetOutput(ctx, enable)
				})
			case "i":
				if m.gone {
					return m, nil
				}
				return m, m.action("identify", m.sink.Identify)
			case "r":
				if m.gone || m.polling {
					return m, nil
				}
				m.polling = true
				return m, m.poll()
			}
		}

	case tea.WindowSizeMsg:
		headerHeight := 12
		footerHeight := 4
		if !m.ready {
			m.viewport = viewport.New(msg.Width, max(msg.Height-headerHeight-footerHeight, 3))
			m.viewport.Style = baseStyle
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = max(msg.Height-headerHeight-footerHeight, 3)
		}
		m.viewport.SetContent(strings.Join(m.history, "\n"))

	case tickMsg:
		if m.gone {
			return m, nil
		}
		if !m.polling {
			m.polling = true
			return m, tea.Batch(m.poll(), m.tick())
		}
		return m, m.tick()

	case snapshotMsg:
		m.polling = false
		if msg.Err != nil {
			m.status = "Poll failed: " + msg.Err.Error()
			m.gone = disconnected(msg.Err)
			return m, nil
		}
		if m.polled {
			m.prev = m.snap
		} else {
			m.prev = msg
		}
		m.snap = msg
		m.polled = true
		m.status = "Updated " + msg.At.Format("15:04:05")

	case execMsg:
		m.history = append(m.history, transport.DefaultPrompt+msg.Line)
		m.history = append(m.history, msg.Reply...)
		if msg.Err != nil {
			m.history = append(m.history, errorStyle.Render("Error: "+msg.Err.Error()))
			m.gone = disconnected(msg.Err)
		}
		if m.ready {
			m.viewport.SetContent(strings.Join(m.history, "\n"))
			m.viewport.GotoBottom()
		}
		return m, nil

	case actionMsg:
		if msg.Err != nil {
			m.status = msg.What + " failed: " + msg.Err.Error()
			m.gone = disconnected(msg.Err)
			return m, nil
		}
		m.status = msg.What + " ok"
		if !m.polling {
			m.polling = true
			return m, m.poll()
		}
		return m, nil
	}

	if m.textInput.Focused() {
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	} else if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func disconnected(err error) bool {
	return errors.Is(err, transport.ErrClosed) || errors.Is(err, service.ErrSessionClosed)
}

func onOff(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

// --- VIEW ---
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	top := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderConfigPane(),
		m.renderOffersPane(),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		top,
		m.viewport.View(),
		m.renderFooter(),
	)
}

// field renders a value, highlighted when it differs from the previous
// poll.
func field(now, before string) string {
	if now != before {
		return changedStyle.Render(now)
	}
	return now
}

func (m Model) renderConfigPane() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Sink Configuration") + "\n")

	if !m.polled {
		b.WriteString("Waiting for the first poll...")
	} else {
		cur, prev := m.snap.Config, m.prev.Config
		b.WriteString(keyStyle.Render("Status:  ") + field(cur.Status.String(), prev.Status.String()) + "\n")
		if !cur.IsEmpty() {
			b.WriteString(keyStyle.Render("Flags:   ") + field(cur.Flags.String(), prev.Flags.String()) + "\n")
			b.WriteString(keyStyle.Render("Voltage: ") + field(voltage(cur), voltage(prev)) + "\n")
			b.WriteString(keyStyle.Render("Current: ") + field(current(cur), current(prev)) + "\n")
		}
		b.WriteString(keyStyle.Render("Output:  ") + field(onOff(m.snap.Output), onOff(m.prev.Output)) + "\n")
	}

	width := m.viewport.Width / 2
	return baseStyle.Width(max(width-2, 10)).Height(8).Render(b.String())
}

func voltage(c model.Config) string {
	s := model.FormatQuantity(c.VoltageMV, "V")
	if c.HasRange() {
		s += fmt.Sprintf(" (%s-%s)", model.FormatQuantity(c.MinVoltageMV, "V"), model.FormatQuantity(c.MaxVoltageMV, "V"))
	}
	return s
}

func current(c model.Config) string {
	if c.CurrentMode == model.CurrentModePower {
		return model.FormatQuantity(c.Current, "W")
	}
	return model.FormatQuantity(c.Current, "A")
}

func (m Model) renderOffersPane() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Source Capabilities") + "\n")

	switch {
	case !m.polled:
	case len(m.snap.Offers) == 0:
		b.WriteString("No source attached.")
	default:
		selected, ok := pdo.Select(m.snap.Config, m.snap.Offers)
		for _, o := range m.snap.Offers {
			mark := "  "
			if ok && o.Index == selected.Index {
				mark = markStyle.Render("* ")
			}
			b.WriteString(fmt.Sprintf("%sPDO %d: %s\n", mark, o.Index, o.Summary()))
		}
	}

	left := m.viewport.Width / 2
	return baseStyle.Width(max(m.viewport.Width-left-2, 10)).Height(8).Render(b.String())
}

func (m Model) renderFooter() string {
	help := "(c) command | (o) toggle output | (i) identify | (r) refresh | (q) quit"
	if m.textInput.Focused() {
		help = "Enter a shell command and press Enter, Esc to cancel"
	}
	status := m.status
	if m.gone {
		status = errorStyle.Render("Sink disconnected. ") + status
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.textInput.View(),
		status,
		help,
	)
}

// Run starts the monitor on the terminal and blocks until the user quits.
func Run(ctx context.Context, sink service.Sink, interval time.Duration) error {
	p := tea.NewProgram(NewModel(ctx, sink, interval), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
