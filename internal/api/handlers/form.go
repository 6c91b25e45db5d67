package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/nikhilbhutani/voicebackend/internal/multimodal/stt"
	"github.com/nikhilbhutani/voicebackend/internal/voice"
)

const (
	fieldInput   = "input"
	fieldMessage = "message"
)

var errInvalidForm = errors.New("invalid form payload")

// voiceForm is the validated form payload of a voice exchange.
type voiceForm struct {
	Input    stt.Input
	Messages []voice.Message
}

// parseVoiceForm validates a multipart (or urlencoded, text-only) body:
// input is exactly one text value or one file, message is zero or more JSON
// objects of the shape {role: "user"|"assistant", content: string}.
func parseVoiceForm(r *http.Request, maxMemory int64) (*voiceForm, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: content type: %v", errInvalidForm, err)
	}

	var (
		values map[string][]string
		files  map[string][]*multipart.FileHeader
	)
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidForm, err)
		}
		values = r.MultipartForm.Value
		files = r.MultipartForm.File
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidForm, err)
		}
		values = r.PostForm
	default:
		return nil, fmt.Errorf("%w: unsupported content type %q", errInvalidForm, mediaType)
	}

	input, err := parseInput(values[fieldInput], files[fieldInput])
	if err != nil {
		return nil, err
	}

	messages := make([]voice.Message, 0, len(values[fieldMessage]))
	for i, raw := range values[fieldMessage] {
		msg, err := parseMessage(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: message[%d]: %v", errInvalidForm, i, err)
		}
		messages = append(messages, msg)
	}
	if len(files[fieldMessage]) > 0 {
		return nil, fmt.Errorf("%w: message must not be a file", errInvalidForm)
	}

	return &voiceForm{Input: input, Messages: messages}, nil
}

func parseInput(texts []string, files []*multipart.FileHeader) (stt.Input, error) {
	switch {
	case len(texts)+len(files) == 0:
		return stt.Input{}, fmt.Errorf("%w: input is required", errInvalidForm)
	case len(texts)+len(files) > 1:
		return stt.Input{}, fmt.Errorf("%w: input must be a single value", errInvalidForm)
	case len(texts) == 1:
		if texts[0] == "" {
			return stt.Input{}, fmt.Errorf("%w: input is empty", errInvalidForm)
		}
		return stt.TextInput(texts[0]), nil
	}

	fh := files[0]
	if fh.Size == 0 {
		return stt.Input{}, fmt.Errorf("%w: input file is empty", errInvalidForm)
	}
	src, err := fh.Open()
	if err != nil {
		return stt.Input{}, fmt.Errorf("%w: open input file: %v", errInvalidForm, err)
	}
	defer src.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, src); err != nil {
		return stt.Input{}, fmt.Errorf("%w: read input file: %v", errInvalidForm, err)
	}

	return stt.AudioFileInput(stt.AudioInput{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        buf.Bytes(),
	}), nil
}

func parseMessage(raw string) (voice.Message, error) {
	var m struct {
		Role    *string `json:"role"`
		Content *string `json:"content"`
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return voice.Message{}, err
	}
	if m.Role == nil || m.Content == nil {
		return voice.Message{}, errors.New("role and content are required")
	}
	role := voice.Role(*m.Role)
	if !role.Valid() {
		return voice.Message{}, fmt.Errorf("unknown role %q", *m.Role)
	}
	return voice.Message{Role: role, Content: *m.Content}, nil
}
