package configsource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestHTTPSourceSignsBearerToken(t *testing.T) {
	const secret = "shared-signing-secret"
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"flags":{}}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, "deployment-1", secret, time.Second)
	doc, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if string(doc) != `{"flags":{}}` {
		t.Errorf("unexpected document: %s", doc)
	}

	if len(gotAuth) < 8 || gotAuth[:7] != "Bearer " {
		t.Fatalf("expected a bearer token, got %q", gotAuth)
	}

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(gotAuth[7:], claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("token did not verify against the signing secret: %v", err)
	}
	if claims.Subject != "deployment-1" {
		t.Errorf("expected subject deployment-1, got %q", claims.Subject)
	}
}

func TestHTTPSourceRejectsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, "deployment-1", "secret", time.Second)
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}
