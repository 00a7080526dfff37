package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/narrative-engine/pkg/chat"
	"github.com/jwebster45206/narrative-engine/pkg/narrative"
	"github.com/jwebster45206/narrative-engine/pkg/state"
)

const (
	NarratorName    = "Narrator"
	PlaceHolderText = "Type your action here..."
)

// titleCaser renders speaker names in display casing.
var titleCaser = cases.Title(language.English)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	sseClient    *http.Client
	sessionID    uuid.UUID
	snapshot     *state.Snapshot
	lines        []narrative.SpeakerLine
	notices      []string
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// Outcome tallies from the most recent turn
	lastApplied  int
	lastRejected int
	lastDeferred int
	turnCount    int

	// Live event stream state
	sseChan   chan SSEEvent
	lastEvent string

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type turnResponseMsg struct {
	response *chat.TurnResponse
	err      error
}

type snapshotMsg struct {
	snapshot *state.Snapshot
	err      error
}

type sseEventMsg struct {
	event SSEEvent
}

type sseClosedMsg struct {
	err error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client, session *SessionResponse) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	snap := session.Snapshot
	return ConsoleUI{
		config:       cfg,
		client:       client,
		sseClient:    &http.Client{}, // no timeout; the stream stays open
		sessionID:    session.ID,
		snapshot:     &snap,
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: metaVp,
		sseChan:      make(chan SSEEvent, 8),
		ready:        false,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.startSSE(), m.waitForSSE())
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.textarea, tiCmd = m.textarea.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		chatWidth := int(float64(m.width)*0.75) - 4
		metaWidth := m.width - chatWidth - 6

		m.chatViewport.Width = chatWidth - 2
		m.chatViewport.Height = m.height - 7
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4
		m.textarea.SetWidth(chatWidth - 4)

		m.ready = true
		m.writeChatContent()
		m.metaViewport.SetContent(m.writeMetadata())

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.textarea.Reset()
			m.loading = true
			m.progressTick = 0

			m.lines = append(m.lines, narrative.SpeakerLine{
				Speaker: narrative.SpeakerParty,
				Name:    m.playerName(),
				Text:    input,
			})
			m.writeChatContent()

			return m, tea.Batch(m.sendTurnMessage(input), progressTick())
		}

	case turnResponseMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.notices = append(m.notices, errorStyle.Render("Error: "+msg.err.Error()))
		} else {
			m.turnCount++
			m.lines = append(m.lines, msg.response.Lines...)
			if msg.response.Snapshot != nil {
				m.snapshot = msg.response.Snapshot
			}
			if msg.response.Report != nil {
				m.lastApplied, m.lastRejected, m.lastDeferred = msg.response.Report.Counts()
			}
			if msg.response.DecodeError != "" {
				m.notices = append(m.notices, noticeStyle.Render("Narrator events were malformed; state unchanged this turn."))
			}
			m.metaViewport.SetContent(m.writeMetadata())
		}
		m.writeChatContent()
		m.chatViewport.GotoBottom()
		return m, nil

	case snapshotMsg:
		if msg.err == nil && msg.snapshot != nil {
			m.snapshot = msg.snapshot
			m.metaViewport.SetContent(m.writeMetadata())
		}

	case sseEventMsg:
		m.lastEvent = msg.event.Type
		m.metaViewport.SetContent(m.writeMetadata())
		return m, m.waitForSSE()

	case sseClosedMsg:
		if msg.err != nil && msg.err != context.Canceled {
			m.lastEvent = "stream closed"
			m.metaViewport.SetContent(m.writeMetadata())
		}

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) playerName() string {
	if m.snapshot != nil && m.snapshot.Player.Name != "" {
		return m.snapshot.Player.Name
	}
	return "You"
}

// formatSpeakerLine renders one attributed line for the chat panel.
func formatSpeakerLine(line narrative.SpeakerLine, width int) string {
	var label string
	var style lipgloss.Style

	switch line.Speaker {
	case narrative.SpeakerNPC:
		label = titleCaser.String(line.Name)
		style = speakerStyle
	case narrative.SpeakerParty:
		label = titleCaser.String(line.Name)
		style = userStyle
	default:
		label = NarratorName
		style = narratorStyle
	}

	wrapped := wordwrap.String(line.Text, width-len(label)-2)
	return style.Render(label+": ") + wrapped
}

// writeChatContent rebuilds the chat panel from the transcript for the
// current viewport width.
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6
	if chatWidth < 20 {
		chatWidth = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("NARRATIVE ENGINE") + "\n\n")
	content.WriteString("Type your actions below to move the story forward.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth-6)) + "\n\n")

	for _, line := range m.lines {
		content.WriteString(formatSpeakerLine(line, chatWidth) + "\n\n")
	}

	for _, notice := range m.notices {
		content.WriteString(notice + "\n\n")
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func (m *ConsoleUI) writeMetadata() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("SESSION") + "\n\n")

	content.WriteString("Session ID:\n")
	content.WriteString(m.sessionID.String()[:8] + "...\n\n")

	if m.snapshot != nil {
		p := m.snapshot.Player
		content.WriteString(fmt.Sprintf("%s  Lv %d\n", p.Name, p.Level))
		content.WriteString(fmt.Sprintf("HP %d  XP %d/%d\n\n", p.HP, p.Exp, p.ExpToNext))

		if len(m.snapshot.Stats) > 0 {
			content.WriteString("Stats:\n")
			for _, s := range m.snapshot.Stats {
				content.WriteString(fmt.Sprintf("• %s: %d\n", s.ID, s.Value))
			}
			content.WriteString("\n")
		}

		if len(m.snapshot.Party) > 0 {
			content.WriteString("Party:\n")
			for _, member := range m.snapshot.Party {
				content.WriteString("• " + titleCaser.String(member.Name) + "\n")
			}
			content.WriteString("\n")
		}

		active := 0
		for _, q := range m.snapshot.Quests {
			if q.Status == state.QuestActive {
				active++
			}
		}
		content.WriteString(fmt.Sprintf("Quests: %d active\n", active))
		content.WriteString(fmt.Sprintf("Items: %d kinds\n", len(m.snapshot.Inventory)))
		for _, c := range m.snapshot.Currencies {
			content.WriteString(fmt.Sprintf("%s: %d\n", titleCaser.String(c.Currency), c.Amount))
		}
		content.WriteString("\n")
	}

	if m.turnCount > 0 {
		content.WriteString("Last turn:\n")
		content.WriteString(fmt.Sprintf("%d applied, %d rejected,\n%d deferred\n\n",
			m.lastApplied, m.lastRejected, m.lastDeferred))
	}

	if m.lastEvent != "" {
		content.WriteString("Stream: " + m.lastEvent + "\n\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /copy: Copy last reply\n")
	content.WriteString("• /refresh: Refresh state\n")

	return content.String()
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd := strings.ToLower(strings.TrimSpace(input))
	m.textarea.Reset()

	switch cmd {
	case "/help":
		m.notices = append(m.notices, noticeStyle.Render(
			"Commands: /help /copy /refresh. Type actions and press Enter; Ctrl+C quits."))
		m.writeChatContent()

	case "/copy":
		text := m.lastNarratorText()
		if text == "" {
			m.notices = append(m.notices, noticeStyle.Render("Nothing to copy yet."))
		} else if err := clipboard.WriteAll(text); err != nil {
			m.notices = append(m.notices, errorStyle.Render("Copy failed: "+err.Error()))
		} else {
			m.notices = append(m.notices, noticeStyle.Render("Copied last reply to clipboard."))
		}
		m.writeChatContent()

	case "/refresh":
		return m, m.refreshSnapshot()

	default:
		m.notices = append(m.notices, noticeStyle.Render("Unknown command: "+cmd))
		m.writeChatContent()
	}

	return m, nil
}

// lastNarratorText returns the text of the trailing non-player lines,
// newest turn only.
func (m *ConsoleUI) lastNarratorText() string {
	var parts []string
	for i := len(m.lines) - 1; i >= 0; i-- {
		line := m.lines[i]
		if line.Speaker == narrative.SpeakerParty && line.Name == m.playerName() {
			break
		}
		parts = append([]string{line.Text}, parts...)
	}
	return strings.Join(parts, "\n")
}

func (m ConsoleUI) sendTurnMessage(message string) tea.Cmd {
	return func() tea.Msg {
		resp, err := sendTurn(m.client, m.config.APIBaseURL, m.sessionID, message)
		return turnResponseMsg{resp, err}
	}
}

func (m ConsoleUI) refreshSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, err := getSnapshot(m.client, m.config.APIBaseURL, m.sessionID)
		return snapshotMsg{snap, err}
	}
}

func (m ConsoleUI) startSSE() tea.Cmd {
	return func() tea.Msg {
		err := listenToSSE(context.Background(), m.sseClient, m.config.APIBaseURL, m.sessionID, m.sseChan)
		return sseClosedMsg{err}
	}
}

func (m ConsoleUI) waitForSSE() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.sseChan
		if !ok {
			return nil
		}
		return sseEventMsg{event}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave this session?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", chatWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
