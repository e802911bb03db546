package translate_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alkime/saywhat/internal/translate"
	"github.com/alkime/saywhat/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPIs serves the few Anthropic and OpenAI endpoints the Remote uses,
// plus a plain article page.
func fakeAPIs(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("GET /article", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html><body><p>The quick brown fox.</p></body></html>")
	})

	mux.HandleFunc("POST /v1/messages", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		var content []map[string]any
		if strings.Contains(string(body), "save_translation") {
			assert.Contains(t, string(body), "quick brown fox")
			content = []map[string]any{{
				"type":  "tool_use",
				"id":    "toolu_1",
				"name":  "save_translation",
				"input": map[string]any{"source_language": "English", "translation": "El rápido zorro marrón.", "summary": "Un zorro."},
			}}
		} else {
			content = []map[string]any{{"type": "text", "text": "Es un zorro."}}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_1",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-sonnet-4-5-20250929",
			"content":       content,
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]any{"input_tokens": 1, "output_tokens": 1},
		})
	})

	mux.HandleFunc("POST /v1/audio/transcriptions", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"task":"transcribe","language":"english","duration":7.5,`+
			`"text":"The quick brown fox.","segments":[{"id":0,"start":0,"end":3,"text":" The quick"},`+
			`{"id":1,"start":3.2,"end":7.5,"text":" brown fox."}]}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func newRemote(t *testing.T, srv *httptest.Server) *translate.Remote {
	t.Helper()

	r, err := translate.NewRemote(translate.RemoteConfig{
		OpenAIKey:        "sk-test",
		AnthropicKey:     "sk-ant-test",
		OpenAIBaseURL:    srv.URL + "/v1/",
		AnthropicBaseURL: srv.URL + "/",
	})
	require.NoError(t, err)

	return r
}

func TestNewRemote_RequiresKeys(t *testing.T) {
	_, err := translate.NewRemote(translate.RemoteConfig{OpenAIKey: "x"})
	require.ErrorContains(t, err, "ANTHROPIC_API_KEY")

	_, err = translate.NewRemote(translate.RemoteConfig{AnthropicKey: "x"})
	require.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestRemote_URLPayload(t *testing.T) {
	srv := fakeAPIs(t)
	remote := newRemote(t, srv)

	state := wizard.DefaultState()
	state.InputMethod = wizard.MethodURL
	state.Payload = wizard.URLPayload{URL: "  " + srv.URL + "/article "}
	state.TargetLanguage = "es"
	state.Features.Summarize = true

	req, err := translate.NewRequest(wizard.FlowText, state)
	require.NoError(t, err)

	var percents []int
	res, err := remote.Process(context.Background(), req, func(p translate.Progress) {
		percents = append(percents, p.Percent)
	})
	require.NoError(t, err)

	assert.Equal(t, "El rápido zorro marrón.", res.Translation)
	assert.Equal(t, "Un zorro.", res.Summary)
	assert.Equal(t, "English", res.SourceLanguage)
	assert.IsIncreasing(t, percents)
	assert.Equal(t, 100, percents[len(percents)-1])
}

func TestRemote_ClipPayloadIsTranscribed(t *testing.T) {
	remote := newRemote(t, fakeAPIs(t))

	state := wizard.DefaultState()
	state.InputMethod = wizard.MethodRecord
	state.Payload = wizard.ClipPayload{Data: []byte{0xff, 0xfb}, MIMEType: "audio/mpeg"}
	state.TargetLanguage = "es"

	req, err := translate.NewRequest(wizard.FlowAudio, state)
	require.NoError(t, err)

	res, err := remote.Process(context.Background(), req, nil)
	require.NoError(t, err)

	require.Len(t, res.Transcript, 2)
	assert.Equal(t, "brown fox.", res.Transcript[1].Text)
	assert.Equal(t, "[00:03] brown fox.", res.Transcript[1].String())
	assert.Empty(t, res.Summary, "summary not requested")
}

func TestRemote_Answer(t *testing.T) {
	remote := newRemote(t, fakeAPIs(t))

	answer, err := remote.Answer(context.Background(), "¿Qué animal?", "El rápido zorro marrón.")
	require.NoError(t, err)
	assert.Equal(t, "Es un zorro.", answer)
}
