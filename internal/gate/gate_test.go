package gate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Novip1906/todo-api/internal/identity"
	"github.com/Novip1906/todo-api/internal/models"
	"github.com/Novip1906/todo-api/internal/respond"
)

type fakeVerifier struct {
	calls  atomic.Int32
	verify func(ctx context.Context, token string) (models.Caller, error)
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) (models.Caller, error) {
	f.calls.Add(1)
	return f.verify(ctx, token)
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{verify: func(_ context.Context, token string) (models.Caller, error) {
		switch token {
		case "alice-token":
			return models.Caller{Id: "alice"}, nil
		case "expired":
			return models.Caller{}, identity.ErrExpiredToken
		case "unreachable":
			return models.Caller{}, errors.New("dial tcp: connection refused")
		default:
			return models.Caller{}, identity.ErrInvalidToken
		}
	}}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"BEARER  abc ", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		if token != tt.token || ok != tt.ok {
			t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, token, ok, tt.token, tt.ok)
		}
	}
}

func TestRequire(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
		wantCalls  int32
	}{
		{"no header", "", http.StatusForbidden, MsgAccessDenied, 0},
		{"not bearer", "Token alice-token", http.StatusForbidden, MsgAccessDenied, 0},
		{"expired", "Bearer expired", http.StatusForbidden, MsgInvalidToken, 1},
		{"garbage", "Bearer garbage", http.StatusForbidden, MsgInvalidToken, 1},
		{"provider down", "Bearer unreachable", http.StatusForbidden, MsgInvalidToken, 1},
		{"valid", "Bearer alice-token", http.StatusOK, "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newFakeVerifier()
			g := New(v, 0)

			var got *models.Caller
			h := g.Require(func(w http.ResponseWriter, r *http.Request, caller models.Caller) {
				got = &caller
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/todo", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if v.calls.Load() != tt.wantCalls {
				t.Errorf("verifier calls = %d, want %d", v.calls.Load(), tt.wantCalls)
			}

			if tt.wantStatus != http.StatusOK {
				if got != nil {
					t.Fatal("handler ran for rejected request")
				}
				var body respond.ErrorBody
				json.NewDecoder(rec.Body).Decode(&body)
				if body.Error != tt.wantMsg {
					t.Errorf("error = %q, want %q", body.Error, tt.wantMsg)
				}
				return
			}
			if got == nil || got.Id != "alice" {
				t.Fatalf("caller = %+v", got)
			}
		})
	}
}

func TestRequireVerifiesEveryRequest(t *testing.T) {
	v := newFakeVerifier()
	h := New(v, 0).Require(func(w http.ResponseWriter, r *http.Request, caller models.Caller) {})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/todo", nil)
		req.Header.Set("Authorization", "Bearer alice-token")
		h(httptest.NewRecorder(), req)
	}
	if v.calls.Load() != 3 {
		t.Fatalf("verifier calls = %d, want 3", v.calls.Load())
	}
}

func TestAuthorizeAppliesTimeout(t *testing.T) {
	v := &fakeVerifier{verify: func(ctx context.Context, _ string) (models.Caller, error) {
		if _, ok := ctx.Deadline(); !ok {
			return models.Caller{}, errors.New("no deadline")
		}
		return models.Caller{Id: "alice"}, nil
	}}

	req := httptest.NewRequest(http.MethodGet, "/todo", nil)
	req.Header.Set("Authorization", "Bearer x")

	if _, err := New(v, time.Second).Authorize(req); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
}
