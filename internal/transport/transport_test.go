package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseFingerprint(t *testing.T) {
	tests := []struct {
		in      string
		want    Fingerprint
		wantErr bool
	}{
		{"", FingerprintChrome, false},
		{"chrome", FingerprintChrome, false},
		{" Firefox ", FingerprintFirefox, false},
		{"SAFARI", FingerprintSafari, false},
		{"none", FingerprintNone, false},
		{"netscape", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFingerprint(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFingerprint(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFingerprint(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_NoneIsPlainTransport(t *testing.T) {
	rt := New(Options{Fingerprint: FingerprintNone})
	if _, ok := rt.(*http.Transport); !ok {
		t.Errorf("New(none) = %T, want *http.Transport", rt)
	}
}

// Plain http:// must bypass the h2 attempt so local stores work with any fingerprint.
func TestFingerprintTransport_PlainHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Write([]byte("echo:" + string(body)))
	}))
	defer server.Close()

	client := &http.Client{Transport: New(Options{Timeout: 5 * time.Second})}

	resp, err := client.Post(server.URL, "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Post() error: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "echo:hello" {
		t.Errorf("body = %q, want %q", body, "echo:hello")
	}
}
