package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/voicebackend/internal/multimodal/stt"
	"github.com/nikhilbhutani/voicebackend/internal/multimodal/tts"
	"github.com/nikhilbhutani/voicebackend/internal/voice"
)

type formPart struct {
	name     string
	value    string
	filename string // non-empty makes the part a file
}

func multipartRequest(t *testing.T, parts ...formPart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		if p.filename != "" {
			fw, err := mw.CreateFormFile(p.name, p.filename)
			require.NoError(t, err)
			_, err = fw.Write([]byte(p.value))
			require.NoError(t, err)
			continue
		}
		require.NoError(t, mw.WriteField(p.name, p.value))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/voice", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type stubResponder struct {
	reply *voice.Reply
	err   error
	got   *voice.Exchange
}

func (s *stubResponder) Respond(_ context.Context, ex voice.Exchange) (*voice.Reply, error) {
	s.got = &ex
	return s.reply, s.err
}

func okResponder() *stubResponder {
	return &stubResponder{reply: &voice.Reply{Transcript: "t", Audio: []byte{1, 2}, ContentType: voice.AudioContentType}}
}

func serve(h *VoiceHandler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Exchange(rec, req)
	return rec
}

func TestExchangeRejectsInvalidForms(t *testing.T) {
	cases := map[string]*http.Request{
		"missing input": multipartRequest(t, formPart{name: "message", value: `{"role":"user","content":"hi"}`}),
		"empty text":    multipartRequest(t, formPart{name: "input", value: ""}),
		"empty file":    multipartRequest(t, formPart{name: "input", filename: "a.wav"}),
		"two inputs": multipartRequest(t,
			formPart{name: "input", value: "hello"},
			formPart{name: "input", value: "again", filename: "a.wav"},
		),
		"bad role":        multipartRequest(t, formPart{name: "input", value: "hello"}, formPart{name: "message", value: `{"role":"system","content":"x"}`}),
		"missing content": multipartRequest(t, formPart{name: "input", value: "hello"}, formPart{name: "message", value: `{"role":"user"}`}),
		"numeric content": multipartRequest(t, formPart{name: "input", value: "hello"}, formPart{name: "message", value: `{"role":"user","content":5}`}),
		"not json":        multipartRequest(t, formPart{name: "input", value: "hello"}, formPart{name: "message", value: `role=user`}),
		"json body": func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/api/voice", strings.NewReader(`{"input":"hello"}`))
			r.Header.Set("Content-Type", "application/json")
			return r
		}(),
		"no content type": httptest.NewRequest(http.MethodPost, "/api/voice", strings.NewReader("input=hello")),
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			svc := okResponder()
			rec := serve(NewVoiceHandler(svc, 0), req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid request", rec.Body.String())
			assert.Nil(t, svc.got, "service must not be called for invalid forms")
		})
	}
}

func TestExchangeAcceptsTextAndMessages(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		t.Run(fmt.Sprintf("%d messages", n), func(t *testing.T) {
			parts := []formPart{{name: "input", value: "hello"}}
			for i := 0; i < n; i++ {
				role := "user"
				if i%2 == 1 {
					role = "assistant"
				}
				raw, _ := json.Marshal(map[string]string{"role": role, "content": fmt.Sprintf("turn %d", i)})
				parts = append(parts, formPart{name: "message", value: string(raw)})
			}

			svc := okResponder()
			rec := serve(NewVoiceHandler(svc, 0), multipartRequest(t, parts...))

			require.Equal(t, http.StatusOK, rec.Code)
			require.NotNil(t, svc.got)
			assert.Equal(t, stt.TextInput("hello"), svc.got.Input)
			assert.Len(t, svc.got.Messages, n)
		})
	}
}

func TestExchangeAcceptsAudioFile(t *testing.T) {
	svc := okResponder()
	rec := serve(NewVoiceHandler(svc, 0), multipartRequest(t, formPart{name: "input", value: "RIFF....", filename: "clip.wav"}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, svc.got.Input.IsAudio())
	assert.Equal(t, "clip.wav", svc.got.Input.Audio.Filename)
	assert.Equal(t, []byte("RIFF...."), svc.got.Input.Audio.Data)
}

func TestExchangeAcceptsURLEncodedText(t *testing.T) {
	form := url.Values{"input": {"hello"}, "message": {`{"role":"assistant","content":"hey"}`}}
	req := httptest.NewRequest(http.MethodPost, "/api/voice", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	svc := okResponder()
	rec := serve(NewVoiceHandler(svc, 0), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []voice.Message{{Role: voice.RoleAssistant, Content: "hey"}}, svc.got.Messages)
}

func TestExchangeMapsServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{fmt.Errorf("%w: empty transcript", voice.ErrInvalidAudio), http.StatusBadRequest, "Invalid audio"},
		{fmt.Errorf("%w: %w", voice.ErrSynthesisFailed, tts.ErrUpstream), http.StatusInternalServerError, "TTS request failed"},
	}
	for _, tc := range cases {
		svc := &stubResponder{err: tc.err}
		rec := serve(NewVoiceHandler(svc, 0), multipartRequest(t, formPart{name: "input", value: "hello"}))

		assert.Equal(t, tc.status, rec.Code)
		assert.Equal(t, tc.body, rec.Body.String())
		assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	}
}

func TestExchangeRoundTrip(t *testing.T) {
	audio := []byte{0x00, 0x00, 0x80, 0x3f, 0x00, 0x00, 0x00, 0xbf}
	var upstream map[string]any
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&upstream)
		w.Write(audio)
	}))
	defer provider.Close()

	svc := voice.NewService(
		stt.NewPlaceholder(),
		tts.NewCartesia(tts.CartesiaConfig{APIKey: "k", BaseURL: provider.URL, ModelID: "sonic", VoiceID: "v1"}),
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	rec := serve(NewVoiceHandler(svc, 0), multipartRequest(t, formPart{name: "input", value: "hello"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.Equal(t, audio, rec.Body.Bytes())
	assert.Equal(t, "Sample transcript", upstream["transcript"])
	assert.Equal(t, "sonic", upstream["model_id"])
}

func TestExchangeProviderFailure(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer provider.Close()

	svc := voice.NewService(
		stt.NewPlaceholder(),
		tts.NewCartesia(tts.CartesiaConfig{APIKey: "k", BaseURL: provider.URL}),
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	rec := serve(NewVoiceHandler(svc, 0), multipartRequest(t, formPart{name: "input", value: "hello"}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "TTS request failed", rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "bad key")
}
