package internal

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// pre styled colors, all from lipgloss
var (
	appTitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).Padding(0, 1)
	subtitleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).MarginTop(1)
	chatHeaderStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("109")).MarginTop(1)
	connectedStyle     = statusStyle.Copy().Foreground(lipgloss.Color("42")).Bold(true)
	connectingStyle    = statusStyle.Copy().Foreground(lipgloss.Color("178")).Italic(true)
	messageBodyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("253"))
	messageBoxStyle    = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("60")).Padding(1, 2).MarginTop(1)
	sidebarStyle       = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(1, 2).MarginTop(1).MarginLeft(1)
	inputBoxStyle      = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1).MarginTop(1)
	timestampStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	usernameStyle      = lipgloss.NewStyle().Bold(true)
	activeUserStyle    = usernameStyle.Copy().Foreground(lipgloss.Color("213"))
	systemMessageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	typingStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	errorStyle         = statusStyle.Copy().Foreground(lipgloss.Color("196")).Bold(true)
	noteStyle          = statusStyle.Copy().Foreground(lipgloss.Color("110"))
	dividerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(" ┃ ")
	menuHintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).MarginTop(1)
	selectedItemStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	listItemStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	userColorPalette   = []lipgloss.Color{
		lipgloss.Color("45"),
		lipgloss.Color("81"),
		lipgloss.Color("141"),
		lipgloss.Color("98"),
		lipgloss.Color("63"),
		lipgloss.Color("135"),
		lipgloss.Color("32"),
	}
)

func (model *TUIModel) View() string {
	switch model.mode {
	case modeNamePrompt:
		return model.renderNamePrompt()
	case modeFiles:
		return model.renderFilesView()
	case modeBrowse:
		return model.renderBrowseView()
	default:
		return model.renderChatView()
	}
}

func (model *TUIModel) renderNamePrompt() string {
	title := appTitleStyle.Render("LanHub")
	subtitle := subtitleStyle.Render("Chat and share files with everyone on your network")

	sections := []string{title, subtitle}
	if model.statusNote != "" {
		sections = append(sections, errorStyle.Render(model.statusNote))
	}
	sections = append(sections,
		inputBoxStyle.Render(model.textInput.View()),
		menuHintStyle.Render("Enter to join  •  Ctrl+C to quit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (model *TUIModel) renderChatView() string {
	headerSegments := []string{"LanHub", fmt.Sprintf("User %s", model.username), fmt.Sprintf("Server %s", model.serverURL)}
	header := chatHeaderStyle.Render(strings.Join(headerSegments, dividerStyle))

	var statusLine string
	switch {
	case model.connectionError != nil && !model.isConnected:
		statusLine = errorStyle.Render("Connection error: " + model.connectionError.Error())
	case model.isConnected:
		statusLine = connectedStyle.Render(fmt.Sprintf("Connected  •  %d online", len(model.users)))
	default:
		statusLine = connectingStyle.Render("Connecting…")
	}

	var messageLines []string
	for _, entry := range model.entries {
		messageLines = append(messageLines, model.renderEntry(entry))
	}
	if len(messageLines) == 0 {
		messageLines = append(messageLines, systemMessageStyle.Render("No messages yet. Say hi and start the conversation."))
	}
	messagesView := messageBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, messageLines...))

	body := lipgloss.JoinHorizontal(lipgloss.Top, messagesView, model.renderUsersSidebar())

	sections := []string{header, statusLine, body}
	if typingLine := model.renderTypingLine(); typingLine != "" {
		sections = append(sections, typingLine)
	}
	if model.statusNote != "" {
		sections = append(sections, noteStyle.Render(model.statusNote))
	}
	sections = append(sections,
		inputBoxStyle.Render(model.textInput.View()),
		menuHintStyle.Render("Tab or /files for shared files  •  /upload to share a file  •  /quit to exit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (model *TUIModel) renderUsersSidebar() string {
	lines := []string{usernameStyle.Render(fmt.Sprintf("Online (%d)", len(model.users)))}
	for _, user := range model.users {
		nameStyle := usernameStyle.Copy().Foreground(colorForUser(user.Username))
		if user.Username == model.username {
			nameStyle = activeUserStyle
		}
		line := "● " + nameStyle.Render(user.Username)
		if _, isTyping := model.typing[user.ID]; isTyping {
			line += typingStyle.Render(" ✎")
		}
		lines = append(lines, line)
	}
	return sidebarStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (model *TUIModel) renderTypingLine() string {
	if len(model.typing) == 0 {
		return ""
	}
	names := make([]string, 0, len(model.typing))
	for _, name := range model.typing {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 1 {
		return typingStyle.Render(names[0] + " is typing…")
	}
	return typingStyle.Render(strings.Join(names, ", ") + " are typing…")
}

func (model *TUIModel) renderFilesView() string {
	header := chatHeaderStyle.Render(strings.Join([]string{"LanHub", "Shared files"}, dividerStyle))

	var lines []string
	if len(model.files) == 0 {
		lines = append(lines, menuHintStyle.Render("No shared files yet. Press u to upload one."))
	} else {
		for idx, entry := range model.files {
			line := fmt.Sprintf("%s  %s  %s", entry.Name, formatFileSize(entry.Size), entry.ModifiedAt.Format("Jan 2 15:04"))
			if idx == model.selectedFile {
				lines = append(lines, selectedItemStyle.Render("➤ "+line))
			} else {
				lines = append(lines, listItemStyle.Render("  "+line))
			}
		}
	}
	listView := messageBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))

	sections := []string{header, listView}
	if model.statusNote != "" {
		sections = append(sections, noteStyle.Render(model.statusNote))
	}
	sections = append(sections, menuHintStyle.Render("↑/↓ select • d download • u upload • x delete • r refresh • i info • Esc back • q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (model *TUIModel) renderBrowseView() string {
	header := chatHeaderStyle.Render(strings.Join([]string{"LanHub", "Upload from " + model.browsePath}, dividerStyle))

	var lines []string
	if len(model.browseItems) == 0 {
		lines = append(lines, menuHintStyle.Render("Empty directory."))
	} else {
		for idx, item := range model.browseItems {
			label := item.Name
			if item.IsDir {
				label += "/"
			} else {
				label += "  " + formatFileSize(item.Size)
			}
			if idx == model.selectedBrowse {
				lines = append(lines, selectedItemStyle.Render("➤ "+label))
			} else {
				lines = append(lines, listItemStyle.Render("  "+label))
			}
		}
	}
	listView := messageBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))

	sections := []string{header, listView,
		menuHintStyle.Render("↑/↓ select • Enter open/upload • Esc back")}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderEntry renders a single log line. It stamps the timestamp, picks a
// color for the sender, and indents multi-line messages so they stay legible.
func (model *TUIModel) renderEntry(entry chatEntry) string {
	timestamp := timestampStyle.Render(fmt.Sprintf("[%s]", entry.At.Format("15:04:05")))
	if entry.System {
		body := systemMessageStyle.Render(entry.Body)
		return lipgloss.JoinHorizontal(lipgloss.Left, timestamp, " ", body)
	}

	var nameStyle lipgloss.Style
	if entry.Username == model.username {
		nameStyle = activeUserStyle
	} else {
		nameStyle = usernameStyle.Copy().Foreground(colorForUser(entry.Username))
	}

	name := nameStyle.Render(entry.Username)
	bodyText := messageBodyStyle.Render(strings.ReplaceAll(entry.Body, "\n", "\n   "))
	return lipgloss.JoinHorizontal(lipgloss.Left, timestamp, " ", name, ": ", bodyText)
}

// color for users
func colorForUser(name string) lipgloss.Color {
	if len(userColorPalette) == 0 {
		return lipgloss.Color("249")
	}
	if name == "" {
		return userColorPalette[0]
	}
	var sum int
	for _, r := range name {
		sum += int(r)
	}
	return userColorPalette[sum%len(userColorPalette)]
}
