//go:build !integration

package ai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestWhisperAdapter_Transcribe(t *testing.T) {
	var (
		mu     sync.Mutex
		fields = map[string]string{}
		audio  []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/assets/audio.wav":
			_, _ = w.Write([]byte("RIFF-fake-wav"))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/audio/transcriptions"):
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("multipart: %v", err)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			mu.Lock()
			for k, v := range r.MultipartForm.Value {
				fields[k] = v[0]
			}
			if f, _, err := r.FormFile("file"); err == nil {
				audio, _ = io.ReadAll(f)
				_ = f.Close()
			}
			mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"text":"  hello there ","language":"english","duration":1.5}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	w, err := NewWhisperAdapter("sk-test", srv.URL, "whisper-1", 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	got, err := w.Transcribe(context.Background(), srv.URL+"/assets/audio.wav", "zh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("detected language wins over the hint", func(t *testing.T) {
		if got.Language != "en" {
			t.Errorf("wanted en, got %q", got.Language)
		}
		if got.Text != "hello there" {
			t.Errorf("wanted trimmed text, got %q", got.Text)
		}
	})

	t.Run("request form", func(t *testing.T) {
		mu.Lock()
		defer mu.Unlock()
		if _, ok := fields["language"]; ok {
			t.Errorf("language must not be sent, got %q", fields["language"])
		}
		if fields["model"] != "whisper-1" {
			t.Errorf("wanted model whisper-1, got %q", fields["model"])
		}
		if fields["response_format"] != "verbose_json" {
			t.Errorf("wanted verbose_json, got %q", fields["response_format"])
		}
		if fields["prompt"] != hintPrompts["zh"] {
			t.Errorf("wanted the zh priming prompt, got %q", fields["prompt"])
		}
		if string(audio) != "RIFF-fake-wav" {
			t.Errorf("wanted the fetched audio uploaded, got %q", audio)
		}
	})
}

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{"Chinese": "zh", " english ": "en", "zh": "zh", "": "", "swahili": "swahili"}
	for in, want := range cases {
		if got := normalizeLanguage(in); got != want {
			t.Errorf("normalizeLanguage(%q): wanted %q, got %q", in, want, got)
		}
	}
	if hintPrompt("xx") != "" {
		t.Error("unknown hints should not prime the decoder")
	}
}
