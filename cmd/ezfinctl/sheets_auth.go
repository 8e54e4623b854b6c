package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"

	"ezfin/internal/log"
)

func sheetsAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets-auth",
		Short: "Obtain a Google Sheets OAuth token for the export worker",
		Long: `Run the OAuth consent flow for the ledger export worker and save the
resulting token as JSON.

The OAuth client must list http://localhost:<port>/callback among its
authorized redirect URIs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			port, _ := cmd.Flags().GetInt("port")
			out, _ := cmd.Flags().GetString("out")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			cfg := buildConfig(a.v)
			if out == "" {
				out = cfg.GoogleOAuthTokenFile
			}
			if out == "" {
				out = "token.json"
			}

			clientJSON, err := readClientJSON(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile)
			if err != nil {
				return err
			}
			oc, err := google.ConfigFromJSON(clientJSON, sheets.SpreadsheetsScope)
			if err != nil {
				return fmt.Errorf("oauth config: %w", err)
			}
			oc.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			state := uuid.NewString()
			fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to authorize:\n%s\n",
				oc.AuthCodeURL(state, oauth2.AccessTypeOffline))

			code, err := awaitCode(ctx, fmt.Sprintf("localhost:%d", port), state)
			if err != nil {
				return err
			}
			tok, err := oc.Exchange(ctx, code)
			if err != nil {
				return fmt.Errorf("token exchange: %w", err)
			}
			if err := writeToken(out, tok); err != nil {
				return err
			}

			a.logger.WithComponent(log.ComponentSheets).Info("Saved OAuth token", "path", out)
			return nil
		},
	}
	cmd.Flags().Int("port", 8085, "local port for the OAuth redirect")
	cmd.Flags().String("client-file", "", "OAuth client JSON file (or GOOGLE_OAUTH_CLIENT_FILE)")
	cmd.Flags().String("out", "", "token output file (default: GOOGLE_OAUTH_TOKEN_FILE or token.json)")
	cmd.Flags().Duration("timeout", 5*time.Minute, "how long to wait for the browser redirect")
	_ = a.v.BindPFlag("google.oauth_client_file", cmd.Flags().Lookup("client-file"))
	return cmd
}

func readClientJSON(inline, file string) ([]byte, error) {
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read client file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("set --client-file, GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON")
	}
}

// awaitCode serves /callback on addr until one redirect carrying the
// expected state arrives or ctx ends.
func awaitCode(ctx context.Context, addr, state string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen for redirect: %w", err)
	}

	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)
	deliver := func(r result) {
		select {
		case results <- r:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			deliver(result{err: fmt.Errorf("authorization denied: %s", q.Get("error"))})
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
		case q.Get("code") == "":
			http.Error(w, "missing code", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			deliver(result{code: q.Get("code")})
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case r := <-results:
		return r.code, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", errors.New("authorization timed out")
		}
		return "", ctx.Err()
	}
}

func writeToken(path string, tok *oauth2.Token) error {
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
