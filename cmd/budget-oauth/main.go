// Command budget-oauth runs the one-time OAuth consent flow and saves the
// refresh token the worker needs for the Google Sheets mirror.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"

	"budget/internal/config"
)

func main() {
	port := flag.Int("port", 8085, "local port for the OAuth redirect")
	timeout := flag.Duration("timeout", 5*time.Minute, "how long to wait for the consent redirect")
	flag.Parse()

	if err := run(*port, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, "budget-oauth:", err)
		os.Exit(1)
	}
}

func run(port int, timeout time.Duration) error {
	_ = godotenv.Load()
	cfg := config.Load()

	secret, err := clientSecret(cfg)
	if err != nil {
		return err
	}
	oauthCfg, err := google.ConfigFromJSON(secret, sheets.SpreadsheetsScope)
	if err != nil {
		return fmt.Errorf("parse oauth client: %w", err)
	}
	// The OAuth client must list this URI among its authorized redirects.
	oauthCfg.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	state, err := randomState()
	if err != nil {
		return err
	}
	fmt.Printf("Open this URL to authorize:\n%s\n", oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	code, err := waitForCode(ctx, port, state)
	if err != nil {
		return err
	}
	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	outFile := cfg.GoogleOAuthTokenFile
	if outFile == "" {
		outFile = "token.json"
	}
	if err := saveToken(outFile, token); err != nil {
		return err
	}
	fmt.Printf("Saved token to %s\n", outFile)
	return nil
}

func clientSecret(cfg *config.Config) ([]byte, error) {
	if cfg.GoogleOAuthClientJSON != "" {
		return []byte(cfg.GoogleOAuthClientJSON), nil
	}
	if cfg.GoogleOAuthClientFile != "" {
		b, err := os.ReadFile(cfg.GoogleOAuthClientFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
}

// waitForCode serves the redirect endpoint until the consent flow delivers an
// authorization code, the context expires, or the process is interrupted.
func waitForCode(ctx context.Context, port int, state string) (string, error) {
	type result struct {
		code string
		err  error
	}
	resultCh := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			resultCh <- result{err: fmt.Errorf("consent denied: %s", q.Get("error"))}
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			resultCh <- result{err: errors.New("state mismatch on redirect")}
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			resultCh <- result{code: q.Get("code")}
		}
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case res := <-resultCh:
		return res.code, res.err
	case err := <-serveErr:
		return "", fmt.Errorf("redirect server: %w", err)
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization: %w", ctx.Err())
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
