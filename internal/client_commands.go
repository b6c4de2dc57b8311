package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"lanhub/internal/storage"
)

func (model *TUIModel) scheduleReconnect() tea.Cmd {
	const retryDelay = 2 * time.Second
	// we schedule a future poke that nudges Update to try the connection again.
	return tea.Tick(retryDelay, func(time.Time) tea.Msg {
		return reconnectMsg{}
	})
}

// websocket dial
func (model *TUIModel) connectCmd() tea.Cmd {
	return func() tea.Msg {
		wsURL, err := buildWSURL(model.serverURL)
		if err != nil {
			return connectFailedMsg{err: err}
		}
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{})
		if err != nil {
			return connectFailedMsg{err: err}
		}
		model.websocketConn = conn
		return connectedMsg{}
	}
}

// readOnceCmd pulls one envelope off the websocket and maps it onto a tea
// message. The Update loop re-issues it after every delivery.
func (model *TUIModel) readOnceCmd() tea.Cmd {
	return func() tea.Msg {
		if model.websocketConn == nil {
			return errorMsg(fmt.Errorf("websocket not connected"))
		}
		messageType, payload, err := model.websocketConn.ReadMessage()
		if err != nil {
			return disconnectedMsg{err: err}
		}
		if messageType != websocket.TextMessage {
			return skipMsg{}
		}
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return skipMsg{}
		}
		switch env.Type {
		case SignalChatHistory:
			var history []ChatMessage
			if err := decodeData(env.Data, &history); err == nil {
				return historyMsg(history)
			}
		case SignalChatMessage:
			var message ChatMessage
			if err := decodeData(env.Data, &message); err == nil {
				return chatMsg(message)
			}
		case SignalSystemMessage:
			var notice SystemMessage
			if err := decodeData(env.Data, &notice); err == nil {
				return systemMsg(notice)
			}
		case SignalUsersUpdate:
			var users []Participant
			if err := decodeData(env.Data, &users); err == nil {
				return usersMsg(users)
			}
		case SignalUserTyping:
			var notice TypingNotice
			if err := decodeData(env.Data, &notice); err == nil {
				return typingMsg(notice)
			}
		case SignalFileUploaded, SignalFilesUploaded, SignalFileDeleted:
			return fileEventMsg{}
		}
		return skipMsg{}
	}
}

func (model *TUIModel) sendSignalCmd(signalType string, data interface{}) tea.Cmd {
	return func() tea.Msg {
		if model.websocketConn == nil {
			return errorMsg(fmt.Errorf("websocket not connected"))
		}
		encoded, err := encodeSignal(signalType, data)
		if err != nil {
			return errorMsg(err)
		}
		model.writeMutex.Lock()
		err = model.websocketConn.WriteMessage(websocket.TextMessage, encoded)
		model.writeMutex.Unlock()
		if err != nil {
			return errorMsg(err)
		}
		return nil
	}
}

func (model *TUIModel) joinCmd() tea.Cmd {
	return model.sendSignalCmd(SignalJoin, model.username)
}

func (model *TUIModel) sendChatCmd(body string) tea.Cmd {
	return model.sendSignalCmd(SignalChat, ChatPayload{Body: body})
}

func (model *TUIModel) sendTypingCmd(isTyping bool) tea.Cmd {
	return model.sendSignalCmd(SignalTyping, isTyping)
}

// typingIdleTimeout is how long after the last keystroke we tell the room we
// stopped typing.
const typingIdleTimeout = 2 * time.Second

func typingExpireCmd() tea.Cmd {
	return tea.Tick(typingIdleTimeout, func(time.Time) tea.Msg {
		return typingExpiredMsg{}
	})
}

func (model *TUIModel) infoCmd() tea.Cmd {
	return func() tea.Msg {
		info, err := apiInfo(model.apiBase)
		if err != nil {
			return errorMsg(err)
		}
		return infoMsg(info)
	}
}

func (model *TUIModel) refreshFilesCmd() tea.Cmd {
	return func() tea.Msg {
		files, err := apiListFiles(model.apiBase)
		if err != nil {
			return filesFailedMsg{err: err}
		}
		return filesMsg(files)
	}
}

func (model *TUIModel) uploadFileCmd(path string) tea.Cmd {
	return func() tea.Msg {
		entry, err := apiUploadFile(model.apiBase, path)
		if err != nil {
			return uploadDoneMsg{err: err}
		}
		return uploadDoneMsg{entry: entry}
	}
}

func (model *TUIModel) downloadFileCmd(entry storage.FileEntry) tea.Cmd {
	return func() tea.Msg {
		dest, err := apiDownloadFile(model.apiBase, entry.Name)
		return downloadDoneMsg{name: entry.Name, dest: dest, err: err}
	}
}

func (model *TUIModel) deleteFileCmd(entry storage.FileEntry) tea.Cmd {
	return func() tea.Msg {
		err := apiDeleteFile(model.apiBase, entry.Name)
		return deleteDoneMsg{name: entry.Name, err: err}
	}
}

func (model *TUIModel) browseCmd(path string) tea.Cmd {
	return func() tea.Msg {
		items, err := browseDirectory(path)
		if err != nil {
			return browseFailedMsg{err: err}
		}
		return browseMsg{path: path, items: items}
	}
}

// entry for bubbletea
func RunClient(serverURL, username string) error {
	program := tea.NewProgram(NewTUIModel(serverURL, username))
	_, err := program.Run()
	return err
}

// buildWSURL accepts either a ws:// URL or a plain http:// base and returns
// the websocket endpoint.
func buildWSURL(base string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "ws", "wss":
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid scheme for websocket: %s", parsed.Scheme)
	}
	if parsed.Path == "" || parsed.Path == "/" {
		parsed.Path = "/ws"
	}
	return parsed.String(), nil
}
