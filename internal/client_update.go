package internal

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"lanhub/internal/storage"
)

type (
	connectedMsg     struct{}
	disconnectedMsg  struct{ err error }
	connectFailedMsg struct{ err error }
	reconnectMsg     struct{}
	errorMsg         error
	skipMsg          struct{}

	historyMsg []ChatMessage
	chatMsg    ChatMessage
	systemMsg  SystemMessage
	usersMsg   []Participant
	typingMsg  TypingNotice

	infoMsg hubInfoResponse

	fileEventMsg     struct{}
	typingExpiredMsg struct{}
	filesMsg         []storage.FileEntry
	filesFailedMsg   struct{ err error }
	uploadDoneMsg    struct {
		entry storage.FileEntry
		err   error
	}
	downloadDoneMsg struct {
		name string
		dest string
		err  error
	}
	deleteDoneMsg struct {
		name string
		err  error
	}
	browseMsg struct {
		path  string
		items []FileItem
	}
	browseFailedMsg struct{ err error }
)

func (model *TUIModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch typedMessage := message.(type) {
	case tea.KeyMsg:
		// Any mode should respect Ctrl+C so the user can bail out quickly.
		if typedMessage.Type == tea.KeyCtrlC {
			model.closeWebsocket()
			return model, tea.Quit
		}
		switch model.mode {
		case modeNamePrompt:
			return model.updateNamePrompt(typedMessage)
		case modeChat:
			return model.updateChat(typedMessage)
		case modeFiles:
			return model.updateFiles(typedMessage)
		case modeBrowse:
			return model.updateBrowse(typedMessage)
		}

	case connectedMsg:
		model.isConnected = true
		model.connectionError = nil
		return model, tea.Batch(model.joinCmd(), model.readOnceCmd(), model.refreshFilesCmd())

	case disconnectedMsg:
		model.isConnected = false
		model.websocketConn = nil
		model.connectionError = typedMessage.err
		model.users = nil
		model.typing = make(map[string]string)
		model.appendSystem("connection lost, retrying…", time.Now())
		return model, model.scheduleReconnect()

	case connectFailedMsg:
		model.connectionError = typedMessage.err
		return model, model.scheduleReconnect()

	case reconnectMsg:
		if !model.isConnected {
			return model, model.connectCmd()
		}
		return model, nil

	case errorMsg:
		model.statusNote = typedMessage.Error()
		return model, nil

	case skipMsg:
		return model, model.readOnceCmd()

	case historyMsg:
		model.entries = model.entries[:0]
		for _, chat := range typedMessage {
			model.appendChat(chat)
		}
		return model, model.readOnceCmd()

	case chatMsg:
		model.appendChat(ChatMessage(typedMessage))
		delete(model.typing, typedMessage.UserID)
		return model, model.readOnceCmd()

	case systemMsg:
		model.appendSystem(typedMessage.Message, typedMessage.Timestamp)
		return model, model.readOnceCmd()

	case usersMsg:
		model.users = typedMessage
		model.pruneTyping()
		return model, model.readOnceCmd()

	case typingMsg:
		if typedMessage.IsTyping {
			model.typing[typedMessage.UserID] = typedMessage.Username
		} else {
			delete(model.typing, typedMessage.UserID)
		}
		return model, model.readOnceCmd()

	case infoMsg:
		model.statusNote = fmt.Sprintf("hub %s • %d online • %d files • v%s",
			typedMessage.URL, typedMessage.ConnectedUsers, typedMessage.UploadedFiles, typedMessage.Version)
		return model, nil

	case fileEventMsg:
		return model, tea.Batch(model.readOnceCmd(), model.refreshFilesCmd())

	case typingExpiredMsg:
		if !model.typingActive {
			return model, nil
		}
		if time.Since(model.lastKeystrokeAt) < typingIdleTimeout {
			return model, typingExpireCmd()
		}
		model.typingActive = false
		return model, model.sendTypingCmd(false)

	case filesMsg:
		model.files = typedMessage
		if model.selectedFile >= len(model.files) {
			model.selectedFile = len(model.files) - 1
		}
		if model.selectedFile < 0 {
			model.selectedFile = 0
		}
		return model, nil

	case filesFailedMsg:
		model.statusNote = fmt.Sprintf("file listing failed: %v", typedMessage.err)
		return model, nil

	case uploadDoneMsg:
		if typedMessage.err != nil {
			model.statusNote = fmt.Sprintf("upload failed: %v", typedMessage.err)
		} else {
			model.statusNote = fmt.Sprintf("uploaded %s (%s)", typedMessage.entry.Name, formatFileSize(typedMessage.entry.Size))
		}
		return model, nil

	case downloadDoneMsg:
		if typedMessage.err != nil {
			model.statusNote = fmt.Sprintf("download failed: %v", typedMessage.err)
		} else {
			model.statusNote = fmt.Sprintf("saved %s", typedMessage.dest)
		}
		return model, nil

	case deleteDoneMsg:
		if typedMessage.err != nil {
			model.statusNote = fmt.Sprintf("delete failed: %v", typedMessage.err)
		} else {
			model.statusNote = fmt.Sprintf("deleted %s", typedMessage.name)
		}
		return model, nil

	case browseMsg:
		model.browsePath = typedMessage.path
		model.browseItems = typedMessage.items
		model.selectedBrowse = 0
		return model, nil

	case browseFailedMsg:
		model.statusNote = fmt.Sprintf("cannot open directory: %v", typedMessage.err)
		model.mode = modeFiles
		return model, nil
	}
	return model, nil
}

func (model *TUIModel) updateNamePrompt(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Type == tea.KeyEnter {
		trimmed := strings.TrimSpace(model.textInput.Value())
		if trimmed == "" {
			model.statusNote = "Display name cannot be empty."
			return model, nil
		}
		model.username = trimmed
		model.statusNote = ""
		model.textInput.SetValue("")
		model.textInput.Placeholder = "Type a message…"
		model.textInput.Prompt = "> "
		model.mode = modeChat
		return model, model.connectCmd()
	}
	var cmd tea.Cmd
	model.textInput, cmd = model.textInput.Update(key)
	return model, cmd
}

func (model *TUIModel) updateChat(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyTab:
		model.mode = modeFiles
		model.textInput.Blur()
		return model, model.refreshFilesCmd()
	case tea.KeyEnter:
		trimmed := strings.TrimSpace(model.textInput.Value())
		if strings.HasPrefix(trimmed, "/") {
			switch strings.ToLower(trimmed) {
			case "/quit", "/exit":
				model.closeWebsocket()
				return model, tea.Quit
			case "/files":
				model.textInput.SetValue("")
				model.mode = modeFiles
				model.textInput.Blur()
				return model, model.refreshFilesCmd()
			case "/upload":
				model.textInput.SetValue("")
				model.textInput.Blur()
				model.mode = modeBrowse
				path := model.browsePath
				if path == "" {
					path = getDefaultBrowsePath()
				}
				return model, model.browseCmd(path)
			}
			return model, nil
		}
		if trimmed == "" || !model.isConnected {
			return model, nil
		}
		model.textInput.SetValue("")
		commands := []tea.Cmd{model.sendChatCmd(trimmed)}
		if model.typingActive {
			model.typingActive = false
			commands = append(commands, model.sendTypingCmd(false))
		}
		return model, tea.Batch(commands...)
	}

	var inputCmd tea.Cmd
	model.textInput, inputCmd = model.textInput.Update(key)

	commands := []tea.Cmd{inputCmd}
	if model.isConnected && model.textInput.Value() != "" {
		model.lastKeystrokeAt = time.Now()
		if !model.typingActive {
			model.typingActive = true
			commands = append(commands, model.sendTypingCmd(true), typingExpireCmd())
		}
	}
	return model, tea.Batch(commands...)
}

func (model *TUIModel) updateFiles(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc, tea.KeyTab:
		model.mode = modeChat
		model.textInput.Focus()
		return model, nil
	case tea.KeyUp:
		if model.selectedFile > 0 {
			model.selectedFile--
		}
		return model, nil
	case tea.KeyDown:
		if model.selectedFile < len(model.files)-1 {
			model.selectedFile++
		}
		return model, nil
	}
	switch key.String() {
	case "r":
		return model, model.refreshFilesCmd()
	case "i":
		return model, model.infoCmd()
	case "u":
		model.mode = modeBrowse
		path := model.browsePath
		if path == "" {
			path = getDefaultBrowsePath()
		}
		return model, model.browseCmd(path)
	case "d":
		if entry, ok := model.currentFile(); ok {
			model.statusNote = fmt.Sprintf("downloading %s…", entry.Name)
			return model, model.downloadFileCmd(entry)
		}
	case "x":
		if entry, ok := model.currentFile(); ok {
			return model, model.deleteFileCmd(entry)
		}
	case "q":
		model.closeWebsocket()
		return model, tea.Quit
	}
	return model, nil
}

func (model *TUIModel) updateBrowse(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		model.mode = modeFiles
		return model, nil
	case tea.KeyUp:
		if model.selectedBrowse > 0 {
			model.selectedBrowse--
		}
		return model, nil
	case tea.KeyDown:
		if model.selectedBrowse < len(model.browseItems)-1 {
			model.selectedBrowse++
		}
		return model, nil
	case tea.KeyEnter:
		if model.selectedBrowse >= len(model.browseItems) {
			return model, nil
		}
		item := model.browseItems[model.selectedBrowse]
		if item.IsDir {
			return model, model.browseCmd(item.Path)
		}
		model.mode = modeFiles
		model.statusNote = fmt.Sprintf("uploading %s…", item.Name)
		return model, model.uploadFileCmd(item.Path)
	}
	return model, nil
}

func (model *TUIModel) currentFile() (storage.FileEntry, bool) {
	if model.selectedFile < 0 || model.selectedFile >= len(model.files) {
		return storage.FileEntry{}, false
	}
	return model.files[model.selectedFile], true
}

func (model *TUIModel) pruneTyping() {
	present := make(map[string]bool, len(model.users))
	for _, user := range model.users {
		present[user.ID] = true
	}
	for id := range model.typing {
		if !present[id] {
			delete(model.typing, id)
		}
	}
}

func (model *TUIModel) closeWebsocket() {
	if model.websocketConn == nil {
		return
	}
	model.writeMutex.Lock()
	_ = model.websocketConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	model.writeMutex.Unlock()
	_ = model.websocketConn.Close()
}
