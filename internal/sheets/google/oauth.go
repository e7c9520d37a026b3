package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// OAuthCredentials authenticates as a user instead of a service account.
// The token file is produced once by billtrack-sheets-auth.
type OAuthCredentials struct {
	ClientJSON string
	ClientFile string
	TokenFile  string
}

func (o OAuthCredentials) configured() bool {
	return strings.TrimSpace(o.TokenFile) != ""
}

// OAuthConfig parses an OAuth client secret for the spreadsheets scope.
func OAuthConfig(clientJSON []byte, redirectURL string) (*oauth2.Config, error) {
	cfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}
	return cfg, nil
}

// ReadOAuthClient returns the inline client secret, or the file's content.
func ReadOAuthClient(o OAuthCredentials) ([]byte, error) {
	if inline := strings.TrimSpace(o.ClientJSON); inline != "" {
		return []byte(inline), nil
	}
	if file := strings.TrimSpace(o.ClientFile); file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
}

// SaveToken writes tok to path, readable by the owner only.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	return f.Close()
}

// LoadToken reads a token written by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("oauth token has neither access nor refresh token")
	}
	return &tok, nil
}

func oauthClientOption(ctx context.Context, o OAuthCredentials) (goption.ClientOption, error) {
	secret, err := ReadOAuthClient(o)
	if err != nil {
		return nil, err
	}
	cfg, err := OAuthConfig(secret, "")
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(o.TokenFile)
	if err != nil {
		return nil, err
	}
	return goption.WithTokenSource(cfg.TokenSource(ctx, tok)), nil
}
