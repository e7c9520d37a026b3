// Command billtrack-sheets-auth obtains a Google user token for the ledger
// worker when a service account cannot be shared on the spreadsheet.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"billtrack/internal/cli"
	"billtrack/internal/config"
	applog "billtrack/internal/log"
	gsheet "billtrack/internal/sheets/google"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const authTimeout = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stderr, applog.ComponentSheets)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateSheetsAuth)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Authorization failed", applog.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	secret, err := gsheet.ReadOAuthClient(gsheet.OAuthCredentials{
		ClientJSON: cfg.GoogleOAuthClientJSON,
		ClientFile: cfg.GoogleOAuthClientFile,
	})
	if err != nil {
		return err
	}
	// The redirect URI must be listed on the OAuth client.
	oauthCfg, err := gsheet.OAuthConfig(secret, "http://localhost:"+cfg.OAuthRedirectPort+"/callback")
	if err != nil {
		return err
	}

	state := uuid.NewString()
	codes := make(chan string, 1)
	failures := make(chan error, 1)

	r := chi.NewRouter()
	r.Get("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			select {
			case failures <- fmt.Errorf("consent refused: %s", q.Get("error")):
			default:
			}
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			select {
			case codes <- q.Get("code"):
			default:
			}
		}
	})
	srv := &http.Server{Addr: ":" + cfg.OAuthRedirectPort, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failures <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Open this URL to authorize:\n%s\n", oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	var code string
	select {
	case code = <-codes:
	case err := <-failures:
		return err
	case <-time.After(authTimeout):
		return errors.New("authorization timed out")
	case <-ctx.Done():
		return ctx.Err()
	}

	tok, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}
	out := cfg.GoogleOAuthTokenFile
	if out == "" {
		out = "token.json"
	}
	if err := gsheet.SaveToken(out, tok); err != nil {
		return err
	}
	logger.Info("Saved OAuth token", applog.FieldFileName, out)
	fmt.Printf("Saved token to %s; set GOOGLE_OAUTH_TOKEN_FILE=%s for billtrack-worker\n", out, out)
	return nil
}
