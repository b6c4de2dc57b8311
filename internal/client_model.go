package internal

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"lanhub/internal/storage"
)

// tui model struct for all the components and modes
type TUIModel struct {
	textInput       textinput.Model
	entries         []chatEntry
	users           []Participant
	typing          map[string]string
	files           []storage.FileEntry
	serverURL       string
	apiBase         string
	username        string
	websocketConn   *websocket.Conn
	writeMutex      sync.Mutex
	isConnected     bool
	connectionError error
	mode            appMode
	statusNote      string

	selectedFile    int
	browsePath      string
	browseItems     []FileItem
	selectedBrowse  int
	typingActive    bool
	lastKeystrokeAt time.Time
}

// chatEntry is one rendered line of the log, chat or system.
type chatEntry struct {
	Username string
	Body     string
	At       time.Time
	System   bool
}

type appMode int

const (
	modeNamePrompt appMode = iota
	modeChat
	modeFiles
	modeBrowse
)

func NewTUIModel(serverURL, username string) *TUIModel {
	input := textinput.New()
	input.CharLimit = 0
	input.Focus()

	if username == "" {
		username = defaultUsername()
	}

	apiBase, _ := httpBaseFromWSURL(serverURL)

	model := &TUIModel{
		textInput: input,
		entries:   make([]chatEntry, 0, 64),
		typing:    make(map[string]string),
		serverURL: serverURL,
		apiBase:   apiBase,
		username:  username,
		mode:      modeNamePrompt,
	}
	model.textInput.SetValue(username)
	model.textInput.Placeholder = "Enter display name…"
	model.textInput.Prompt = "name> "
	return model
}

// init user
func defaultUsername() string {
	if user := os.Getenv("LANHUB_USER"); user != "" {
		return user
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return ""
}

func (model *TUIModel) Init() tea.Cmd {
	return nil
}

func (model *TUIModel) appendSystem(text string, at time.Time) {
	model.entries = append(model.entries, chatEntry{Body: text, At: at, System: true})
	model.trimEntries()
}

func (model *TUIModel) appendChat(message ChatMessage) {
	model.entries = append(model.entries, chatEntry{
		Username: message.Username,
		Body:     message.Body,
		At:       message.CreatedAt,
	})
	model.trimEntries()
}

// the client keeps a little more scrollback than the server replays.
const maxClientEntries = 250

func (model *TUIModel) trimEntries() {
	if excess := len(model.entries) - maxClientEntries; excess > 0 {
		model.entries = append(model.entries[:0], model.entries[excess:]...)
	}
}
