package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wing-analyzer/internal/model"
	"wing-analyzer/internal/server/handlers"
)

type recorded struct {
	path  string
	token string
	msg   model.Message
}

func newRelayStub(t *testing.T, got *recorded) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.token = r.Header.Get(handlers.TokenHeader)
		if r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&got.msg)
		}
		if got.msg.Type == "FAIL" {
			w.WriteHeader(http.StatusBadRequest)
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
}

func newTestCLI(t *testing.T, token string) (*CommandRegistry, *recorded, *bytes.Buffer) {
	t.Helper()
	got := &recorded{}
	srv := newRelayStub(t, got)
	t.Cleanup(srv.Close)

	out := &bytes.Buffer{}
	client := NewClient(srv.URL, token)
	client.SetOutput(out)

	registry := NewCommandRegistry()
	if err := RegisterDefaults(registry, client); err != nil {
		t.Fatalf("RegisterDefaults() error = %v", err)
	}
	return registry, got, out
}

func TestCommands_SendMessages(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantPath string
		wantMsg  model.Message
		wantTok  string
	}{
		{name: "ping", line: "ping", wantPath: externalPath, wantMsg: model.Message{Type: model.TypePing}},
		{
			name:     "analyze with server",
			line:     "ANALYZE https://www.coupang.com/vp/products/1 http://collector.local/in",
			wantPath: externalPath,
			wantMsg:  model.Message{Type: model.TypeAnalyzeURL, URL: "https://www.coupang.com/vp/products/1", ServerURL: "http://collector.local/in"},
		},
		{name: "sales alias", line: "s 42", wantPath: internalPath, wantMsg: model.Message{Type: model.TypeGetSales, ProductID: "42"}, wantTok: "tok"},
		{
			name:     "badge",
			line:     "badge 42 7",
			wantPath: internalPath,
			wantMsg:  model.Message{Type: model.TypeFetchDeliveryBadge, ProductID: "42", VendorItemID: "7"},
			wantTok:  "tok",
		},
		{name: "status", line: "status", wantPath: statusPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry, got, out := newTestCLI(t, "tok")

			name, args := ParseCommand(tt.line)
			cmd, ok := registry.Get(name)
			if !ok {
				t.Fatalf("command %q not registered", name)
			}
			if err := cmd.Execute(context.Background(), args); err != nil {
				t.Fatalf("Execute() error = %v", err)
			}

			if got.path != tt.wantPath {
				t.Errorf("path = %q, want %q", got.path, tt.wantPath)
			}
			if got.msg != tt.wantMsg {
				t.Errorf("message = %+v, want %+v", got.msg, tt.wantMsg)
			}
			if got.token != tt.wantTok {
				t.Errorf("token = %q, want %q", got.token, tt.wantTok)
			}
			if !strings.Contains(out.String(), `"success": true`) {
				t.Errorf("output = %q", out.String())
			}
		})
	}
}

func TestCommands_ArgumentErrors(t *testing.T) {
	registry, got, _ := newTestCLI(t, "")

	for _, line := range []string{"analyze", "sales", "badge 1", "sales 1 2"} {
		name, args := ParseCommand(line)
		cmd, _ := registry.Get(name)
		if err := cmd.Execute(context.Background(), args); err == nil {
			t.Errorf("%q should fail", line)
		}
	}
	if got.path != "" {
		t.Error("invalid arguments must not reach the relay")
	}
}

func TestClient_HTTPErrorStillPrints(t *testing.T) {
	client := NewClient("", "")
	if client.ServerURL() != DefaultServerURL {
		t.Errorf("ServerURL() = %q", client.ServerURL())
	}

	got := &recorded{}
	srv := newRelayStub(t, got)
	defer srv.Close()
	out := &bytes.Buffer{}
	client = NewClient(srv.URL, "")
	client.SetOutput(out)

	err := client.SendExternal(context.Background(), model.Message{Type: "FAIL"})
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("SendExternal() error = %v", err)
	}
	if !strings.Contains(out.String(), "success") {
		t.Error("error responses are still printed")
	}
}

func TestCommandRegistry(t *testing.T) {
	registry, _, out := newTestCLI(t, "")

	if err := registry.Register(NewExitCommand()); err == nil {
		t.Error("duplicate registration should fail")
	}

	names := make([]string, 0)
	for _, cmd := range registry.List() {
		names = append(names, cmd.Name())
	}
	want := "analyze,badge,exit,help,ping,sales,status"
	if strings.Join(names, ",") != want {
		t.Errorf("List() = %v, want %s", names, want)
	}

	help := registry.Help()
	for _, n := range names {
		if !strings.Contains(help, n) {
			t.Errorf("Help() missing %q", n)
		}
	}
	if !strings.Contains(registry.HelpForCommand("q"), "命令: exit") {
		t.Error("HelpForCommand should resolve aliases")
	}
	if !strings.Contains(registry.HelpForCommand("nope"), "未知命令") {
		t.Error("HelpForCommand should report unknown commands")
	}

	cmd, _ := registry.Get("?")
	if err := cmd.Execute(context.Background(), []string{"analyze"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "命令: analyze") {
		t.Errorf("help output = %q", out.String())
	}

	exit, _ := registry.Get("quit")
	if err := exit.Execute(context.Background(), nil); !errors.Is(err, ErrExit) {
		t.Errorf("exit error = %v", err)
	}
}

func TestParseCommand(t *testing.T) {
	name, args := ParseCommand("  Analyze  url   server ")
	if name != "analyze" || len(args) != 2 || args[0] != "url" {
		t.Errorf("ParseCommand() = %q, %v", name, args)
	}
	if name, _ := ParseCommand("   "); name != "" {
		t.Errorf("blank line parsed as %q", name)
	}
}
