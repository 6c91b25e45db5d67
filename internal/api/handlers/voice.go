package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/voicebackend/internal/voice"
)

// Response bodies of the voice endpoint. They are part of the public contract.
const (
	msgInvalidRequest = "Invalid request"
	msgInvalidAudio   = "Invalid audio"
	msgTTSFailed      = "TTS request failed"
)

// Responder is the voice exchange capability the handler drives.
type Responder interface {
	Respond(ctx context.Context, ex voice.Exchange) (*voice.Reply, error)
}

type VoiceHandler struct {
	svc           Responder
	maxFormMemory int64
}

func NewVoiceHandler(svc Responder, maxFormMemory int64) *VoiceHandler {
	if maxFormMemory <= 0 {
		maxFormMemory = 32 << 20
	}
	return &VoiceHandler{svc: svc, maxFormMemory: maxFormMemory}
}

// Exchange accepts a text or audio input and replies with synthesized speech.
func (h *VoiceHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	form, err := parseVoiceForm(r, h.maxFormMemory)
	if err != nil {
		slog.Debug("rejecting voice request", "error", err, "request_id", chimiddleware.GetReqID(r.Context()))
		writeText(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	reply, err := h.svc.Respond(r.Context(), voice.Exchange{
		RequestID: chimiddleware.GetReqID(r.Context()),
		Input:     form.Input,
		Messages:  form.Messages,
	})
	switch {
	case errors.Is(err, voice.ErrInvalidAudio):
		writeText(w, http.StatusBadRequest, msgInvalidAudio)
		return
	case err != nil:
		writeText(w, http.StatusInternalServerError, msgTTSFailed)
		return
	}

	w.Header().Set("Content-Type", reply.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(reply.Audio)))
	w.WriteHeader(http.StatusOK)
	w.Write(reply.Audio)
}
