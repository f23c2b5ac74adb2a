package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wing-analyzer/internal/model"
	"wing-analyzer/internal/relay"

	"github.com/gin-gonic/gin"
)

type fakeRelay struct {
	lastInternal model.Message
	lastExternal model.Message
	err          error
}

func (f *fakeRelay) DispatchInternal(ctx context.Context, msg model.Message) (<-chan any, error) {
	f.lastInternal = msg
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan any, 1)
	ch <- model.SalesReply{Success: true}
	return ch, nil
}

func (f *fakeRelay) DispatchExternal(ctx context.Context, msg model.Message) (<-chan any, error) {
	f.lastExternal = msg
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan any, 1)
	ch <- model.PingReply{Success: true, Message: "Extension connected"}
	return ch, nil
}

func (f *fakeRelay) Status() model.StatusReply {
	return model.StatusReply{Success: true, Login: model.LoginStatus{State: "idle"}}
}

func newTestEngine(r Relay, token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewMessageHandler(r, nil)
	engine.GET("/status", h.Status)
	engine.POST("/internal", InternalGuard(token), h.HandleInternal)
	engine.POST("/external", ExternalCORS([]string{"*"}), h.HandleExternal)
	return engine
}

func TestMessageHandler_External(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "ping", body: `{"type":"PING"}`, wantStatus: http.StatusOK},
		{name: "malformed json", body: `{"type":`, wantStatus: http.StatusBadRequest, wantCode: model.CodeInvalidMessage},
		{
			name:       "unsupported type",
			body:       `{"type":"GET_SALES","productId":"1"}`,
			err:        fmt.Errorf("%w: GET_SALES", relay.ErrUnsupportedType),
			wantStatus: http.StatusBadRequest,
			wantCode:   model.CodeUnsupportedType,
		},
		{
			name:       "invalid message",
			body:       `{"type":"ANALYZE_URL","serverUrl":"nope"}`,
			err:        fmt.Errorf("%w: serverUrl", relay.ErrInvalidMessage),
			wantStatus: http.StatusBadRequest,
			wantCode:   model.CodeInvalidMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := &fakeRelay{err: tt.err}
			engine := newTestEngine(fr, "")

			req := httptest.NewRequest(http.MethodPost, "/external", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tt.wantStatus, w.Body.String())
			}
			var got map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if tt.wantCode != "" && got["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", got["code"], tt.wantCode)
			}
			if tt.wantCode == "" && got["message"] != "Extension connected" {
				t.Errorf("body = %s", w.Body.String())
			}
		})
	}
}

func TestMessageHandler_ExternalCORS(t *testing.T) {
	engine := newTestEngine(&fakeRelay{}, "")

	req := httptest.NewRequest(http.MethodPost, "/external", strings.NewReader(`{"type":"PING"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://dashboard.example.com")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestInternalGuard(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		header     string
		remoteAddr string
		wantStatus int
	}{
		{name: "loopback without token", remoteAddr: "127.0.0.1:50000", wantStatus: http.StatusOK},
		{name: "ipv6 loopback", remoteAddr: "[::1]:50000", wantStatus: http.StatusOK},
		{name: "remote without token", remoteAddr: "192.0.2.10:50000", wantStatus: http.StatusForbidden},
		{name: "valid token from remote", token: "s3cret", header: "s3cret", remoteAddr: "192.0.2.10:50000", wantStatus: http.StatusOK},
		{name: "wrong token", token: "s3cret", header: "nope", remoteAddr: "127.0.0.1:50000", wantStatus: http.StatusForbidden},
		{name: "missing token", token: "s3cret", remoteAddr: "127.0.0.1:50000", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := &fakeRelay{}
			engine := newTestEngine(fr, tt.token)

			req := httptest.NewRequest(http.MethodPost, "/internal", strings.NewReader(`{"type":"GET_SALES","productId":"1"}`))
			req.Header.Set("Content-Type", "application/json")
			req.RemoteAddr = tt.remoteAddr
			if tt.header != "" {
				req.Header.Set(TokenHeader, tt.header)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && fr.lastInternal.ProductID != "1" {
				t.Errorf("message not forwarded: %+v", fr.lastInternal)
			}
			if tt.wantStatus != http.StatusOK && fr.lastInternal.Type != "" {
				t.Error("rejected callers must not reach the relay")
			}
		})
	}
}

func TestMessageHandler_Status(t *testing.T) {
	engine := newTestEngine(&fakeRelay{}, "")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got model.StatusReply
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if !got.Success || got.Login.State != "idle" {
		t.Errorf("status body = %+v", got)
	}
}
