// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/ytaudio/internal/jobs"
	"github.com/ManuGH/ytaudio/internal/log"
	"github.com/ManuGH/ytaudio/internal/tasks"
)

const maxRequestBody = 4 << 10

type downloadRequest struct {
	URL    string `json:"url"`
	Format string `json:"format,omitempty"`
}

type downloadResponse struct {
	TaskID string `json:"taskId"`
}

type statusResponse struct {
	Status      tasks.Status `json:"status"`
	Error       string       `json:"error,omitempty"`
	ErrorKind   string       `json:"errorKind,omitempty"`
	Title       string       `json:"title,omitempty"`
	Format      string       `json:"format,omitempty"`
	SizeBytes   int64        `json:"sizeBytes,omitempty"`
	DownloadURL string       `json:"downloadUrl,omitempty"`
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body.", ErrorKind: string(jobs.KindValidation)})
		return
	}

	if s.deps.Limiter != nil && !s.deps.Limiter.Allow("ip:"+clientIP(r), "web") {
		writeJobError(w, jobs.RateLimited())
		return
	}

	task, err := s.deps.Tasks.Submit(r.Context(), req.URL, req.Format)
	if err != nil {
		var jerr *jobs.Error
		if errors.As(err, &jerr) {
			writeJobError(w, jerr)
			return
		}
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("submit failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Could not start the download.", ErrorKind: string(jobs.KindInternal)})
		return
	}
	writeJSON(w, http.StatusAccepted, downloadResponse{TaskID: task.ID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, err := s.deps.Tasks.Get(r.Context(), id)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	resp := statusResponse{
		Status:    task.Status,
		Error:     task.Error,
		ErrorKind: task.ErrorKind,
		Title:     task.Title,
		Format:    task.Format,
		SizeBytes: task.SizeBytes,
	}
	if task.Status == tasks.StatusDone {
		resp.DownloadURL = "/api/files/" + task.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	path, task, err := s.deps.Tasks.ResultPath(r.Context(), id)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}

	// #nosec G304 -- path is derived from a stored task, not from the request
	f, err := os.Open(path)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}

	ext := filepath.Ext(path)
	w.Header().Set("Content-Type", contentType(ext))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": downloadName(task.Title, ext),
	}))
	http.ServeContent(w, r, "", info.ModTime(), f)
}

func (s *Server) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, tasks.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Task not found."})
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Error().Err(err).Msg("task lookup failed")
	writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Task store unavailable."})
}

func contentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".opus", ".ogg":
		return "audio/ogg"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".webm":
		return "audio/webm"
	case ".mp3":
		return "audio/mpeg"
	}
	return "application/octet-stream"
}

// downloadName builds a safe attachment name from the video title.
func downloadName(title, ext string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = "audio"
	}
	if r := []rune(name); len(r) > 120 {
		name = string(r[:120])
	}
	return name + ext
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
