package runtime

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/loqalabs/loqa-podcast/internal/audio"
	"github.com/loqalabs/loqa-podcast/internal/podcast"
)

const maxBodyBytes = 1 << 20

type stageView struct {
	Stage     string          `json:"stage"`
	Language  string          `json:"language,omitempty"`
	Status    string          `json:"status"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type generationView struct {
	RequestID string      `json:"request_id"`
	Name      string      `json:"name"`
	Selector  string      `json:"language"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	Stages    []stageView `json:"stages"`
}

func (r *Runtime) routes(metrics http.Handler) http.Handler {
	prefix := strings.TrimRight(r.cfg.HTTP.APIPrefix, "/")
	public := strings.TrimRight(r.cfg.Storage.PublicPrefix, "/")

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	mux.HandleFunc("POST "+prefix+"/generate", r.handleGenerate)
	mux.HandleFunc("POST "+prefix+"/podcast", r.handlePodcast)
	mux.HandleFunc("GET "+prefix+"/generations/{id}", r.handleGeneration)
	if public != "" {
		mux.Handle("GET "+public+"/", http.StripPrefix(public, serveAudio(r.cfg.Storage.AudioDir)))
	}
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	return mux
}

func (r *Runtime) handleGenerate(w http.ResponseWriter, req *http.Request) {
	var body podcast.Request
	if err := decodeBody(req, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, podcast.RejectedResult(err, time.Now()))
		return
	}
	r.logger.Info("received generate request", slog.String("name", body.Name), slog.String("language", body.Language))

	res := r.orchestrator.Generate(req.Context(), body)
	status := http.StatusOK
	if !res.OK() {
		status = statusFor(res.Kind())
	}
	writeJSON(w, status, res)
}

func (r *Runtime) handlePodcast(w http.ResponseWriter, req *http.Request) {
	var body podcast.ScriptRequest
	if err := decodeBody(req, &body); err != nil {
		msg := err.Error()
		writeJSON(w, http.StatusBadRequest, podcast.ScriptResult{Error: &msg, Timestamp: time.Now().Format(time.RFC3339)})
		return
	}
	res, err := r.scripts.Generate(req.Context(), body)
	status := http.StatusOK
	if err != nil {
		status = statusFor(podcast.KindOf(err))
	}
	writeJSON(w, status, res)
}

func (r *Runtime) handleGeneration(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	gen, err := r.events.GetGeneration(req.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "generation not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	events, err := r.events.ListStages(req.Context(), id, 0)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	view := generationView{
		RequestID: gen.RequestID,
		Name:      gen.Name,
		Selector:  gen.Selector,
		Status:    gen.Status,
		CreatedAt: gen.CreatedAt,
		Stages:    make([]stageView, 0, len(events)),
	}
	for _, e := range events {
		view.Stages = append(view.Stages, stageView{
			Stage:     e.Stage,
			Language:  e.Language,
			Status:    e.Status,
			Payload:   json.RawMessage(e.Payload),
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, view)
}

// serveAudio serves the audio root with the content type of the stored
// format rather than the platform's MIME table.
func serveAudio(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ext := strings.TrimPrefix(path.Ext(req.URL.Path), ".")
		if format, err := audio.ParseFormat(ext); err == nil {
			w.Header().Set("Content-Type", format.ContentType())
		}
		files.ServeHTTP(w, req)
	})
}

// statusFor maps a failure kind to the HTTP status of the error payload.
func statusFor(kind podcast.Kind) int {
	switch kind {
	case podcast.KindInput:
		return http.StatusUnprocessableEntity
	case podcast.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(req *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
