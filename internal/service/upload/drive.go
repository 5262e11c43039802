package upload

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const captureMimeType = "image/jpeg"

// DriveUploader puts files into a fixed Google Drive folder.
type DriveUploader struct {
	service  *drive.Service
	folderID string
}

// NewDriveUploader uploads into folderID; an empty folderID means the drive root.
func NewDriveUploader(service *drive.Service, folderID string) *DriveUploader {
	return &DriveUploader{service: service, folderID: folderID}
}

// Upload streams the file at path to Drive and returns the new file ID.
func (u *DriveUploader) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	meta := &drive.File{
		Name:     filepath.Base(path),
		MimeType: captureMimeType,
	}
	if u.folderID != "" {
		meta.Parents = []string{u.folderID}
	}

	created, err := u.service.Files.Create(meta).
		Media(f, googleapi.ContentType(captureMimeType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive create: %w", err)
	}
	return created.Id, nil
}

// DriveAuth describes the installed-app OAuth2 flow with a local token cache.
type DriveAuth struct {
	CredentialsPath string
	TokenPath       string
	// Prompt and Out are used for the one-time consent step when no cached
	// token exists. A nil Prompt makes a missing token an error.
	Prompt io.Reader
	Out    io.Writer
}

// NewDriveService builds an authorized Drive client.
func NewDriveService(ctx context.Context, auth DriveAuth) (*drive.Service, error) {
	b, err := os.ReadFile(auth.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read drive credentials: %w", err)
	}

	cfg, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse drive credentials: %w", err)
	}

	tok, err := loadToken(auth.TokenPath)
	if err != nil {
		if auth.Prompt == nil {
			return nil, fmt.Errorf("no cached drive token at %s: %w", auth.TokenPath, err)
		}
		tok, err = tokenFromConsent(ctx, cfg, auth.Prompt, auth.Out)
		if err != nil {
			return nil, err
		}
		if err := saveToken(auth.TokenPath, tok); err != nil {
			return nil, err
		}
	}

	ts := newRefreshingTokenSource(ctx, cfg, tok, auth.TokenPath)

	service, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return service, nil
}

// tokenFromConsent prints the consent URL and reads the authorization code.
func tokenFromConsent(ctx context.Context, cfg *oauth2.Config, prompt io.Reader, out io.Writer) (*oauth2.Token, error) {
	if out == nil {
		out = io.Discard
	}
	authURL := cfg.AuthCodeURL("facewatch", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Open the following link in your browser, then paste the authorization code:\n%v\n> ", authURL)

	code, err := bufio.NewReader(prompt).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("empty authorization code")
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth exchange: %w", err)
	}
	return tok, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to cache oauth token: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("failed to write oauth token: %w", err)
	}
	return nil
}

// newRefreshingTokenSource refreshes tok through cfg and writes every new
// token back to path. Refreshes ignore the cancellation of ctx: queued
// uploads still drain after the run context ends.
func newRefreshingTokenSource(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token, path string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(tok, &cachingTokenSource{
		src:  cfg.TokenSource(context.WithoutCancel(ctx), tok),
		path: path,
		last: tok.AccessToken,
	})
}

// cachingTokenSource writes refreshed tokens back to the cache file.
type cachingTokenSource struct {
	src  oauth2.TokenSource
	path string
	last string
	mu   sync.Mutex
}

func (c *cachingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := c.src.Token()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if tok.AccessToken != c.last {
		if err := saveToken(c.path, tok); err != nil {
			return nil, err
		}
		c.last = tok.AccessToken
	}
	return tok, nil
}
