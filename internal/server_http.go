package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lanhub/internal/storage"
)

type uploadedFile struct {
	Name         string `json:"name"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	MediaType    string `json:"type"`
}

// HandleInfo reports how to reach the hub plus a couple of live counters. The
// QR code encodes the share URL so phones can join without typing.
func (s *Server) HandleInfo(w http.ResponseWriter, r *http.Request) {
	url := s.ShareURL()
	if url == "" {
		url = "http://" + r.Host
	}
	qr, err := QRDataURL(url)
	if err != nil {
		log.Printf("qr encode: %v", err)
	}
	fileCount, err := s.registry.Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file registry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":            url,
		"qrCode":         qr,
		"connectedUsers": s.hub.ParticipantCount(),
		"uploadedFiles":  fileCount,
		"version":        Version,
	})
}

// HandleListFiles returns every stored file, newest first.
func (s *Server) HandleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.registry.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list files")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"files": files,
		"count": len(files),
	})
}

// HandleUpload stores a single multipart file and announces it to the room
// once it is on disk.
func (s *Server) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.uploadLimiter.Allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "too many uploads, slow down")
		return
	}
	// small allowance on top of the file cap for multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxFileSize+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	entry, err := s.registry.Save(header.Filename, file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
			return
		}
		log.Printf("upload %s: %v", header.Filename, err)
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	if entry.Size > s.maxFileSize {
		_ = s.registry.Delete(entry.Name)
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
		return
	}
	s.hub.NotifyFileUploaded(entry)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"file": uploadedFile{
			Name:         entry.Name,
			OriginalName: header.Filename,
			Size:         entry.Size,
			MediaType:    entry.MediaType,
		},
	})
}

// HandleUploadMultiple streams up to maxBatchFiles multipart files to the
// registry and announces the whole batch once every file is on disk. The
// per-file size cap is enforced while streaming; an oversized file aborts the
// request and already stored batch members are removed again.
func (s *Server) HandleUploadMultiple(w http.ResponseWriter, r *http.Request) {
	if !s.uploadLimiter.Allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "too many uploads, slow down")
		return
	}
	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form data")
		return
	}

	var entries []storage.FileEntry
	discard := func() {
		for _, entry := range entries {
			_ = s.registry.Delete(entry.Name)
		}
	}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			discard()
			writeError(w, http.StatusBadRequest, "malformed multipart form")
			return
		}
		if part.FormName() != "files" || part.FileName() == "" {
			_ = part.Close()
			continue
		}
		if len(entries) >= s.maxBatchFiles {
			_ = part.Close()
			discard()
			writeError(w, http.StatusBadRequest, fmt.Sprintf("too many files, limit is %d", s.maxBatchFiles))
			return
		}
		entry, err := s.savePart(part)
		_ = part.Close()
		if err != nil {
			discard()
			if errors.Is(err, errFileTooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
				return
			}
			log.Printf("upload %s: %v", part.FileName(), err)
			writeError(w, http.StatusInternalServerError, "failed to store file")
			return
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}
	s.hub.NotifyFilesUploaded(entries)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(entries),
		"files":   entries,
	})
}

var errFileTooLarge = errors.New("file too large")

func (s *Server) savePart(part *multipart.Part) (storage.FileEntry, error) {
	limited := io.LimitReader(part, s.maxFileSize+1)
	entry, err := s.registry.Save(part.FileName(), limited)
	if err != nil {
		return storage.FileEntry{}, err
	}
	if entry.Size > s.maxFileSize {
		_ = s.registry.Delete(entry.Name)
		return storage.FileEntry{}, errFileTooLarge
	}
	return entry, nil
}

// HandleDownload streams one stored file as an attachment.
func (s *Server) HandleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	entry, err := s.registry.Stat(name)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	f, err := s.registry.Open(name)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", entry.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", entry.Name))
	http.ServeContent(w, r, entry.Name, entry.ModifiedAt, f)
}

// HandleDownloadAll streams a zip of everything in the registry.
func (s *Server) HandleDownloadAll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "lanhub-files-"+time.Now().Format("2006-01-02")+".zip"))
	if _, err := s.registry.WriteArchive(w); err != nil {
		if errors.Is(err, storage.ErrEmpty) {
			w.Header().Del("Content-Type")
			w.Header().Del("Content-Disposition")
			writeError(w, http.StatusNotFound, "no files to download")
			return
		}
		// headers are already out; all we can do is log and cut the stream.
		log.Printf("archive: %v", err)
	}
}

// HandleDeleteFile unlinks a file and announces the removal.
func (s *Server) HandleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if !s.uploadLimiter.Allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "too many requests, slow down")
		return
	}
	name := chi.URLParam(r, "name")
	if err := s.registry.Delete(name); err != nil {
		writeRegistryError(w, err)
		return
	}
	s.hub.NotifyFileDeleted(name)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"name":    name,
	})
}

// HandleChatHistory exposes the bounded chat log to plain HTTP clients.
func (s *Server) HandleChatHistory(w http.ResponseWriter, r *http.Request) {
	messages := s.hub.History()
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"count":    len(messages),
	})
}

func writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "file not found")
	case errors.Is(err, storage.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "invalid file name")
	default:
		writeError(w, http.StatusInternalServerError, "storage error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
