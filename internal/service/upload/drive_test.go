package upload

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

func newTestDrive(t *testing.T, handler http.HandlerFunc) *drive.Service {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	service, err := drive.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("Failed to create drive service: %v", err)
	}
	return service
}

func TestDriveUploader_Upload(t *testing.T) {
	var body string
	service := newTestDrive(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"remote-123"}`))
	})

	path := filepath.Join(t.TempDir(), "face_2025-01-01_00-00-00.000.jpg")
	os.WriteFile(path, []byte("jpeg-payload"), 0644)

	id, err := NewDriveUploader(service, "folder-9").Upload(context.Background(), path)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if id != "remote-123" {
		t.Errorf("Expected remote-123, got %s", id)
	}
	for _, want := range []string{"jpeg-payload", "folder-9", "face_2025-01-01_00-00-00.000.jpg"} {
		if !strings.Contains(body, want) {
			t.Errorf("Request body missing %q", want)
		}
	}
}

func TestDriveUploader_ServerError(t *testing.T) {
	service := newTestDrive(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
	})

	path := filepath.Join(t.TempDir(), "face.jpg")
	os.WriteFile(path, []byte("x"), 0644)

	if _, err := NewDriveUploader(service, "").Upload(context.Background(), path); err == nil {
		t.Error("Expected error from server")
	}
}

func TestDriveUploader_MissingFile(t *testing.T) {
	service := newTestDrive(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("No request expected for a missing file")
	})

	if _, err := NewDriveUploader(service, "").Upload(context.Background(), "/nonexistent/face.jpg"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestTokenCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth", "token.json")
	tok := &oauth2.Token{AccessToken: "abc", RefreshToken: "def", Expiry: time.Now().Add(time.Hour).Round(time.Second)}

	if err := saveToken(path, tok); err != nil {
		t.Fatalf("saveToken failed: %v", err)
	}
	got, err := loadToken(path)
	if err != nil {
		t.Fatalf("loadToken failed: %v", err)
	}
	if got.AccessToken != "abc" || got.RefreshToken != "def" || !got.Expiry.Equal(tok.Expiry) {
		t.Errorf("Unexpected token %+v", got)
	}

	if _, err := loadToken(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing token file")
	}
}

type staticSource struct{ tok *oauth2.Token }

func (s staticSource) Token() (*oauth2.Token, error) { return s.tok, nil }

func TestCachingTokenSource_PersistsRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	cts := &cachingTokenSource{src: staticSource{&oauth2.Token{AccessToken: "fresh"}}, path: path, last: "stale"}

	if _, err := cts.Token(); err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	got, err := loadToken(path)
	if err != nil || got.AccessToken != "fresh" {
		t.Errorf("Expected refreshed token on disk, got %+v, %v", got, err)
	}

	os.Remove(path)
	cts.Token()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Unchanged token should not be rewritten")
	}
}

func TestRefreshingTokenSource_OutlivesCancelledContext(t *testing.T) {
	var hits atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"renewed","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenServer.Close()

	cfg := &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenServer.URL, AuthStyle: oauth2.AuthStyleInParams},
	}
	expired := &oauth2.Token{AccessToken: "old", RefreshToken: "refresh", Expiry: time.Now().Add(-time.Hour)}
	path := filepath.Join(t.TempDir(), "token.json")

	ctx, cancel := context.WithCancel(context.Background())
	ts := newRefreshingTokenSource(ctx, cfg, expired, path)
	cancel()

	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Refresh after shutdown failed: %v", err)
	}
	if tok.AccessToken != "renewed" || hits.Load() != 1 {
		t.Errorf("Expected one refresh to renewed, got %q after %d hits", tok.AccessToken, hits.Load())
	}
	if cached, err := loadToken(path); err != nil || cached.AccessToken != "renewed" {
		t.Errorf("Expected refreshed token on disk, got %+v, %v", cached, err)
	}
}

func TestNewDriveService_MissingTokenWithoutPrompt(t *testing.T) {
	creds := filepath.Join(t.TempDir(), "credentials.json")
	os.WriteFile(creds, []byte(`{"installed":{"client_id":"id","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`), 0600)

	_, err := NewDriveService(context.Background(), DriveAuth{
		CredentialsPath: creds,
		TokenPath:       filepath.Join(t.TempDir(), "token.json"),
	})
	if err == nil {
		t.Error("Expected error when no token is cached and no prompt is available")
	}

	if _, err := NewDriveService(context.Background(), DriveAuth{CredentialsPath: "/nonexistent.json"}); err == nil {
		t.Error("Expected error for missing credentials")
	}
}
