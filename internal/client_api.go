package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lanhub/internal/storage"
)

var httpTimeout = 10 * time.Second

type fileListResponse struct {
	Files []storage.FileEntry `json:"files"`
	Count int                 `json:"count"`
}

type hubInfoResponse struct {
	URL            string `json:"url"`
	QRCode         string `json:"qrCode"`
	ConnectedUsers int    `json:"connectedUsers"`
	UploadedFiles  int    `json:"uploadedFiles"`
	Version        string `json:"version"`
}

func apiInfo(baseURL string) (hubInfoResponse, error) {
	var resp hubInfoResponse
	err := doJSONRequest(http.MethodGet, baseURL+"/api/info", nil, &resp)
	return resp, err
}

func apiListFiles(baseURL string) ([]storage.FileEntry, error) {
	var resp fileListResponse
	if err := doJSONRequest(http.MethodGet, baseURL+"/api/files", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// apiUploadFile streams a local file to the hub through a pipe so large files
// never sit in memory.
func apiUploadFile(baseURL, path string) (storage.FileEntry, error) {
	src, err := os.Open(path)
	if err != nil {
		return storage.FileEntry{}, err
	}
	defer src.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, src); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(form.Close())
	}()

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/upload", pr)
	if err != nil {
		return storage.FileEntry{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	// uploads can take a while on a busy LAN; no client timeout here.
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return storage.FileEntry{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return storage.FileEntry{}, fmt.Errorf("server returned %d: %s", resp.StatusCode, readResponseError(resp.Body))
	}
	var parsed struct {
		Success bool `json:"success"`
		File    struct {
			Name      string `json:"name"`
			Size      int64  `json:"size"`
			MediaType string `json:"type"`
		} `json:"file"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return storage.FileEntry{}, err
	}
	return storage.FileEntry{
		Name:      parsed.File.Name,
		Size:      parsed.File.Size,
		MediaType: parsed.File.MediaType,
	}, nil
}

// apiDownloadFile saves a shared file into the user's Downloads directory
// (or the working directory when there is none) and returns the local path.
func apiDownloadFile(baseURL, name string) (string, error) {
	resp, err := http.Get(baseURL + "/api/download/" + url.PathEscape(name))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, readResponseError(resp.Body))
	}

	dest := filepath.Join(downloadDir(), name)
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	_, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(dest)
		return "", copyErr
	}
	if closeErr != nil {
		_ = os.Remove(dest)
		return "", closeErr
	}
	return dest, nil
}

func apiDeleteFile(baseURL, name string) error {
	req, err := http.NewRequest(http.MethodDelete, baseURL+"/api/files/"+url.PathEscape(name), nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: httpTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, readResponseError(resp.Body))
	}
	return nil
}

func doJSONRequest(method, endpoint string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(buf))
	}
	req, err := http.NewRequest(method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{Timeout: httpTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, readResponseError(resp.Body))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}

func readResponseError(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return "request failed"
	}
	var parsed map[string]string
	if err := json.Unmarshal(data, &parsed); err == nil {
		if msg, ok := parsed["error"]; ok {
			return msg
		}
	}
	return strings.TrimSpace(string(data))
}

func httpBaseFromWSURL(wsURL string) (string, error) {
	parsed, err := url.Parse(wsURL)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "ws":
		parsed.Scheme = "http"
	case "wss":
		parsed.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported scheme %s", parsed.Scheme)
	}
	parsed.Path = ""
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return strings.TrimRight(parsed.String(), "/"), nil
}

func downloadDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		downloads := filepath.Join(home, "Downloads")
		if _, err := os.Stat(downloads); err == nil {
			return downloads
		}
		return home
	}
	return "."
}
