package app

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const authorizationTimeout = 5 * time.Minute

// autoSaveTokenSource writes every refreshed token back to the store.
type autoSaveTokenSource struct {
	ctx    context.Context
	source oauth2.TokenSource
	store  TokenStore
	logger *zap.Logger

	mu   sync.Mutex
	last *oauth2.Token
}

func (a *autoSaveTokenSource) Token() (*oauth2.Token, error) {
	tok, err := a.source.Token()
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last != nil && a.last.AccessToken == tok.AccessToken {
		return tok, nil
	}
	if err := a.store.SaveToken(a.ctx, tok); err != nil {
		return nil, fmt.Errorf("save refreshed token: %w", err)
	}
	a.logger.Debug("saved refreshed token", zap.Time("expiry", tok.Expiry))
	a.last = tok
	return tok, nil
}

type callbackResult struct {
	code string
	err  error
}

// startCallbackServer listens on 127.0.0.1:port, or on a random port when that
// one is taken, and delivers the first authorization callback carrying state.
func startCallbackServer(port int, state string) (string, <-chan callbackResult, func(), error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		listener, err = net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return "", nil, nil, fmt.Errorf("listen for oauth callback: %w", err)
		}
	}
	redirectURL := fmt.Sprintf("http://127.0.0.1:%d", listener.Addr().(*net.TCPAddr).Port)

	results := make(chan callbackResult, 1)
	var once sync.Once
	deliver := func(r callbackResult) {
		once.Do(func() { results <- r })
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if msg := q.Get("error"); msg != "" {
			fmt.Fprintf(w, "<html><body><h1>Authorization failed</h1><p>%s</p></body></html>", html.EscapeString(msg))
			deliver(callbackResult{err: fmt.Errorf("authorization error: %s", msg)})
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "no authorization code received", http.StatusBadRequest)
			deliver(callbackResult{err: errors.New("no authorization code received")})
			return
		}
		fmt.Fprint(w, "<html><body><h1>Authorization successful!</h1><p>You can close this window.</p></body></html>")
		deliver(callbackResult{code: code})
	})
	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			deliver(callbackResult{err: fmt.Errorf("oauth callback server: %w", err)})
		}
	}()
	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
	return redirectURL, results, shutdown, nil
}

// authorize runs the installed-app consent flow and exchanges the code.
func authorize(ctx context.Context, oauthConfig *oauth2.Config, port int, logger *zap.Logger) (*oauth2.Token, error) {
	state := uuid.NewString()
	redirectURL, results, shutdown, err := startCallbackServer(port, state)
	if err != nil {
		return nil, err
	}
	defer shutdown()
	oauthConfig.RedirectURL = redirectURL
	authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	logger.Info(fmt.Sprintf("Go to the following link in your browser to authorize access:\n%v\n", authURL),
		zap.String("auth_url", authURL), zap.String("redirect_url", redirectURL))

	ctx, cancel := context.WithTimeout(ctx, authorizationTimeout)
	defer cancel()
	var result callbackResult
	select {
	case result = <-results:
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for authorization: %w", ctx.Err())
	}
	if result.err != nil {
		return nil, result.err
	}
	tok, err := oauthConfig.Exchange(ctx, result.code)
	if err != nil {
		return nil, fmt.Errorf("convert auth code to access token: %w", err)
	}
	return tok, nil
}

// authenticatedClient loads the stored token, running the consent flow when
// there is none, and returns a client that persists refreshed tokens.
func authenticatedClient(
	ctx context.Context,
	oauthConfig *oauth2.Config,
	store TokenStore,
	port int,
	logger *zap.Logger,
) (*http.Client, error) {
	tok, err := store.LoadToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if tok == nil {
		logger.Info("no stored token, starting authorization")
		if tok, err = authorize(ctx, oauthConfig, port, logger); err != nil {
			return nil, fmt.Errorf("get oauth2 token: %w", err)
		}
		if err := store.SaveToken(ctx, tok); err != nil {
			return nil, fmt.Errorf("save oauth2 token: %w", err)
		}
	}
	source := &autoSaveTokenSource{
		ctx:    ctx,
		source: oauth2.ReuseTokenSource(tok, oauthConfig.TokenSource(ctx, tok)),
		store:  store,
		logger: logger,
		last:   tok,
	}
	return oauth2.NewClient(ctx, source), nil
}
