package hooks_test

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/adamwoolhether/restbuilder/builder"
	"github.com/adamwoolhether/restbuilder/hooks"
	"github.com/adamwoolhether/restbuilder/spec"
)

var ping = spec.MustNew("Ping", http.MethodGet, "/ping",
	spec.WithField("trace", spec.HeaderName("X-Request-Id"), spec.Optional()),
)

func build(t *testing.T, hook builder.Hook, set map[string]any) (builder.Request, error) {
	t.Helper()

	b := builder.New(ping, builder.WithBaseURL("https://api.test"), builder.WithHook(hook))
	for k, v := range set {
		b.Set(k, v)
	}

	return b.Build()
}

func TestChain(t *testing.T) {
	var order []string
	step := func(name string) builder.Hook {
		return func(r builder.Request) (builder.Request, error) {
			order = append(order, name)
			return r.WithHeader("X-Step", name), nil
		}
	}

	req, err := build(t, hooks.Chain(step("a"), nil, step("b")), nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if diff := cmp.Diff([]string{"a", "b"}, order); diff != "" {
		t.Errorf("order mismatch (-exp +got):\n%s", diff)
	}
	if v, _ := req.Header("X-Step"); v != "b" {
		t.Errorf("exp the last hook to win, got %q", v)
	}

	errStop := errors.New("stop")
	order = nil
	_, err = build(t, hooks.Chain(step("a"), func(builder.Request) (builder.Request, error) { return builder.Request{}, errStop }, step("c")), nil)
	if !errors.Is(err, errStop) {
		t.Errorf("exp %v, got %v", errStop, err)
	}
	if diff := cmp.Diff([]string{"a"}, order); diff != "" {
		t.Errorf("exp the chain to stop at the failing hook (-exp +got):\n%s", diff)
	}
}

func TestHeaders(t *testing.T) {
	h := hooks.Chain(
		hooks.DefaultHeaders(map[string]string{"Accept": "application/json", "x-request-id": "default"}),
		hooks.StaticHeaders(map[string]string{"X-Tenant": "acme"}),
	)

	req, err := build(t, h, map[string]any{"trace": "abc"})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	exp := map[string]string{
		"Accept":       "application/json",
		"X-Request-Id": "abc",
		"X-Tenant":     "acme",
	}
	if diff := cmp.Diff(exp, req.Headers()); diff != "" {
		t.Errorf("headers mismatch (-exp +got):\n%s", diff)
	}
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if _, err := build(t, hooks.Log(logger), nil); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	for _, exp := range []string{"endpoint=Ping", "method=GET", "url=https://api.test/ping"} {
		if !strings.Contains(buf.String(), exp) {
			t.Errorf("exp log line to contain %q, got %q", exp, buf.String())
		}
	}
}

func TestRequestID(t *testing.T) {
	req, err := build(t, hooks.RequestID(""), nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	id, ok := req.Header("X-Request-Id")
	if !ok {
		t.Fatal("exp a request id header")
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("exp a uuid, got %q: %v", id, err)
	}

	req, err = build(t, hooks.RequestID("X-Request-Id"), map[string]any{"trace": "given"})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if id, _ := req.Header("X-Request-Id"); id != "given" {
		t.Errorf("exp an existing id to be kept, got %q", id)
	}
}

type tokenFunc func() (*oauth2.Token, error)

func (f tokenFunc) Token() (*oauth2.Token, error) { return f() }

func TestOAuth2(t *testing.T) {
	errIssuer := errors.New("issuer down")

	tests := map[string]struct {
		ts      oauth2.TokenSource
		exp     string
		expErr  error
		anyFail bool
	}{
		"static":  {ts: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc"}), exp: "Bearer abc"},
		"typed":   {ts: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc", TokenType: "mac"}), exp: "MAC abc"},
		"expired": {ts: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc", Expiry: time.Now().Add(-time.Hour)}), expErr: hooks.ErrInvalidToken},
		"failing": {ts: tokenFunc(func() (*oauth2.Token, error) { return nil, errIssuer }), expErr: errIssuer},
		"nil":     {ts: nil, anyFail: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req, err := build(t, hooks.OAuth2(tc.ts), nil)
			switch {
			case tc.anyFail:
				if err == nil {
					t.Fatal("exp an error")
				}
				return
			case tc.expErr != nil:
				if !errors.Is(err, tc.expErr) {
					t.Fatalf("exp %v, got %v", tc.expErr, err)
				}
				return
			case err != nil:
				t.Fatalf("expected no error, got: %v", err)
			}

			if v, _ := req.Header("Authorization"); v != tc.exp {
				t.Errorf("exp Authorization %q, got %q", tc.exp, v)
			}
		})
	}
}

func TestJWT(t *testing.T) {
	key := []byte("test-signing-key")
	now := time.Now().Truncate(time.Second)

	hook, err := hooks.JWT(key, hooks.JWTConfig{
		Issuer:   "restbuilder",
		Subject:  "svc-a",
		Audience: []string{"api"},
		TTL:      time.Minute,
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	req, err := build(t, hook, nil)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	auth, _ := req.Header("Authorization")
	raw, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		t.Fatalf("exp a bearer token, got %q", auth)
	}

	var claims jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			t.Errorf("exp HS256, got %v", tok.Method.Alg())
		}
		return key, nil
	})
	if err != nil {
		t.Fatalf("parsing token: %v", err)
	}

	if claims.Issuer != "restbuilder" || claims.Subject != "svc-a" {
		t.Errorf("exp issuer/subject restbuilder/svc-a, got %s/%s", claims.Issuer, claims.Subject)
	}
	if !claims.VerifyAudience("api", true) {
		t.Errorf("exp audience api, got %v", claims.Audience)
	}
	if exp := now.Add(time.Minute); !claims.ExpiresAt.Time.Equal(exp) {
		t.Errorf("exp expiry %v, got %v", exp, claims.ExpiresAt.Time)
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		t.Errorf("exp a uuid jti, got %q", claims.ID)
	}

	if _, err := hooks.JWT(nil, hooks.JWTConfig{}); !errors.Is(err, hooks.ErrEmptyKey) {
		t.Errorf("exp ErrEmptyKey, got %v", err)
	}
}
