package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	appTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).Padding(0, 1)
	subtitleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).MarginTop(1)
	menuBoxStyle    = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(1, 2).MarginTop(1)
	menuItemStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).PaddingLeft(1)
	menuHotkeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	menuHintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).MarginTop(1)
	noticeBoxStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("95")).Padding(1, 2).MarginTop(1)
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("109")).MarginTop(1)
	connectedStyle  = statusStyle.Copy().Foreground(lipgloss.Color("42")).Bold(true)
	connectingStyle = statusStyle.Copy().Foreground(lipgloss.Color("178")).Italic(true)
	errorStyle      = statusStyle.Copy().Foreground(lipgloss.Color("196")).Bold(true)
	editorBoxStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("60")).Padding(0, 1).MarginTop(1)
	inputBoxStyle   = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1).MarginTop(1)
	systemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	participantTint = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	typingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	languageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Bold(true)
	dividerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(" ┃ ")
)

func (model *SessionModel) View() string {
	switch model.mode {
	case modeMenu:
		return model.renderMenuView()
	case modeNamePrompt:
		return model.renderPromptView("Choose a display name", "Enter the name others will see, then press Enter.")
	case modeRoomPrompt:
		return model.renderPromptView("Join a room", "Enter the room key and press Enter to connect.")
	case modePasscodePrompt:
		return model.renderPromptView("Room passcode", "Enter the passcode, or just press Enter if the room has none.")
	default:
		return model.renderEditorView()
	}
}

func (model *SessionModel) renderMenuView() string {
	title := appTitleStyle.Render("GroupCode")
	subtitle := subtitleStyle.Render("Collaborative code rooms in the terminal")

	options := []string{
		renderMenuOption("1", "Join a room"),
		renderMenuOption("2", "Create a room"),
		renderMenuOption("3", "Quit"),
	}

	sections := []string{
		lipgloss.JoinVertical(lipgloss.Left, title, subtitle),
		menuBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, options...)),
	}

	if notices := model.renderNotices(); notices != "" {
		sections = append(sections, notices)
	}
	sections = append(sections, menuHintStyle.Render("Press 1, 2, or 3 to choose an option."))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (model *SessionModel) renderPromptView(title, hint string) string {
	sections := []string{
		appTitleStyle.Render(title),
		menuHintStyle.Render(hint),
	}
	if notices := model.renderNotices(); notices != "" {
		sections = append(sections, notices)
	}
	sections = append(sections, inputBoxStyle.Render(model.textInput.View()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (model *SessionModel) renderEditorView() string {
	headerSegments := []string{
		"GroupCode " + Version,
		fmt.Sprintf("Room %s", model.roomKey),
		fmt.Sprintf("User %s", model.username),
		languageStyle.Render(model.language),
	}
	header := headerStyle.Render(strings.Join(headerSegments, dividerStyle))

	var statusLine string
	switch {
	case model.connErr != nil && !model.connected:
		statusLine = errorStyle.Render("Connection error: " + model.connErr.Error())
	case model.joined:
		statusLine = connectedStyle.Render("Connected")
	default:
		statusLine = connectingStyle.Render("Joining…")
	}

	participantsLine := ""
	if len(model.participants) > 0 {
		participantsLine = participantTint.Render("In room: " + strings.Join(model.participants, ", "))
	}

	typingLine := renderTypingLine(model.typing.Active(time.Now()))

	sections := []string{header, statusLine}
	if participantsLine != "" {
		sections = append(sections, participantsLine)
	}
	sections = append(sections, editorBoxStyle.Render(model.editor.View()))
	if typingLine != "" {
		sections = append(sections, typingStyle.Render(typingLine))
	}
	if notices := model.renderNotices(); notices != "" {
		sections = append(sections, notices)
	}
	sections = append(sections, menuHintStyle.Render("ctrl+l language · ctrl+x leave room · ctrl+c quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderTypingLine(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0] + " is typing…"
	default:
		return strings.Join(names, ", ") + " are typing…"
	}
}

func renderMenuOption(hotkey string, label string) string {
	key := menuHotkeyStyle.Render(hotkey)
	return lipgloss.JoinHorizontal(lipgloss.Left, key, menuItemStyle.Render(label))
}

func (model *SessionModel) renderNotices() string {
	if len(model.notices) == 0 {
		return ""
	}
	// only the latest few notices stay visible
	start := 0
	if len(model.notices) > 3 {
		start = len(model.notices) - 3
	}
	var lines []string
	for _, notice := range model.notices[start:] {
		lines = append(lines, systemStyle.Render(notice))
	}
	return noticeBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
