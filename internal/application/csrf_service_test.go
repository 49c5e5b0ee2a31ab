package application

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
)

func newTestCSRFService(store domain.CSRFTokenStore) *CSRFService {
	return NewCSRFService(nopLogger{}, &staticConfigProvider{cfg: testConfig()}, store)
}

func TestCSRFIssueAndVerify(t *testing.T) {
	ctx := context.Background()
	svc := newTestCSRFService(newMemCSRFStore())

	token, sessionID, cookie, err := svc.Issue(ctx, "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if token == "" || sessionID == "" {
		t.Fatal("Issue returned empty token or session id")
	}
	if cookie.Name != SessionCookieName || cookie.Value != sessionID {
		t.Errorf("cookie does not persist the session id: %+v", cookie)
	}
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteStrictMode {
		t.Errorf("session cookie not hardened: %+v", cookie)
	}

	ok, err := svc.Verify(ctx, sessionID, token)
	if err != nil {
		t.Fatalf("Verify errored: %v", err)
	}
	if !ok {
		t.Error("freshly issued token did not verify")
	}
}

func TestCSRFIssueReusesSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestCSRFService(newMemCSRFStore())

	_, first, _, err := svc.Issue(ctx, "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	token2, second, _, err := svc.Issue(ctx, first)
	if err != nil {
		t.Fatalf("re-Issue failed: %v", err)
	}
	if second != first {
		t.Errorf("session id changed on reissue: %q vs %q", second, first)
	}

	// Reissue replaces the stored token for the session.
	if ok, _ := svc.Verify(ctx, first, token2); !ok {
		t.Error("reissued token did not verify")
	}
}

func TestCSRFVerifyRejections(t *testing.T) {
	ctx := context.Background()
	store := newMemCSRFStore()
	svc := newTestCSRFService(store)

	tokenA, sessionA, _, err := svc.Issue(ctx, "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	tokenB, sessionB, _, err := svc.Issue(ctx, "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	cases := []struct {
		name      string
		sessionID string
		token     string
	}{
		{"empty session", "", tokenA},
		{"empty token", sessionA, ""},
		{"unknown session", "no-such-session", tokenA},
		{"wrong token", sessionA, "forged-value"},
		{"cross-session token", sessionA, tokenB},
		{"cross-session reversed", sessionB, tokenA},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := svc.Verify(ctx, tc.sessionID, tc.token)
			if err != nil {
				t.Fatalf("Verify errored: %v", err)
			}
			if ok {
				t.Error("verification unexpectedly succeeded")
			}
		})
	}
}

func TestCSRFVerifyExpiredToken(t *testing.T) {
	ctx := context.Background()
	store := newMemCSRFStore()
	svc := newTestCSRFService(store)

	token, sessionID, _, err := svc.Issue(ctx, "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(3 * time.Hour) }
	ok, err := svc.Verify(ctx, sessionID, token)
	if err != nil {
		t.Fatalf("Verify errored: %v", err)
	}
	if ok {
		t.Error("expired token verified")
	}
}

type failingCSRFStore struct{ memCSRFStore }

func (f *failingCSRFStore) Get(ctx context.Context, sessionID string) (*domain.CSRFToken, error) {
	return nil, errors.New("redis connection refused")
}

func TestCSRFVerifyStoreErrorSurfaces(t *testing.T) {
	ctx := context.Background()
	svc := newTestCSRFService(&failingCSRFStore{memCSRFStore{tokens: map[string]*domain.CSRFToken{}}})

	ok, err := svc.Verify(ctx, "some-session", "some-token")
	if err == nil {
		t.Fatal("transport failure must surface as an error, not a clean rejection")
	}
	if ok {
		t.Error("verification succeeded despite store failure")
	}
}
