package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// BrowserLogin opens authorizeURL in Chrome and waits until the provider
// redirects to redirectURL with an authorization code, which it returns.
// The user completes the upstream consent screen in the browser window.
func BrowserLogin(ctx context.Context, authorizeURL, redirectURL string, headless bool, timeout time.Duration) (string, error) {
	browserCtx, cancel, err := createChromeContext(ctx, headless)
	if err != nil {
		return "", err
	}
	defer cancel()

	log.Info().Msg("Waiting for the sign-in to complete in the browser.")
	finalURL, err := waitForRedirect(browserCtx, authorizeURL, redirectURL, timeout)
	if err != nil {
		return "", fmt.Errorf("browser sign-in failed: %w", err)
	}
	return extractAuthCode(finalURL)
}

func createChromeContext(parent context.Context, headless bool) (context.Context, context.CancelFunc, error) {
	var execPath string
	if p, err := exec.LookPath("google-chrome"); err == nil {
		execPath = p
	} else if p, err := exec.LookPath("chromium"); err == nil {
		execPath = p
	} else if p, err := exec.LookPath("chrome"); err == nil {
		execPath = p
	} else {
		return nil, nil, fmt.Errorf("no Chrome or Chromium executable found in PATH")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.ExecPath(execPath))
	if !headless {
		opts = append(opts, chromedp.Flag("headless", false), chromedp.Flag("disable-gpu", false))
	}
	allocatorCtx, cancelAllocator := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancelContext := chromedp.NewContext(allocatorCtx, chromedp.WithLogf(log.Debug().Msgf))
	return ctx, func() {
		cancelContext()
		cancelAllocator()
	}, nil
}

func waitForRedirect(ctx context.Context, authorizeURL, redirectURL string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 4 * time.Minute
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var finalURL string
	err := chromedp.Run(timeoutCtx,
		chromedp.Navigate(authorizeURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			for {
				var currentURL string
				if err := chromedp.Location(&currentURL).Do(ctx); err != nil {
					return err
				}
				if isRedirectWithCode(currentURL, redirectURL) {
					finalURL = currentURL
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(500 * time.Millisecond):
				}
			}
		}),
	)
	return finalURL, err
}

func isRedirectWithCode(currentURL, redirectURL string) bool {
	return strings.HasPrefix(currentURL, redirectURL) &&
		(strings.Contains(currentURL, "code=") || strings.Contains(currentURL, "error="))
}

// extractAuthCode pulls the authorization code out of a redirect URL. An
// error redirect from the provider is reported with its description.
func extractAuthCode(redirectURL string) (string, error) {
	parsedURL, err := url.Parse(redirectURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	q := parsedURL.Query()
	if e := q.Get("error"); e != "" {
		if d := q.Get("error_description"); d != "" {
			return "", fmt.Errorf("provider denied sign-in: %s", d)
		}
		return "", fmt.Errorf("provider denied sign-in: %s", e)
	}
	code := q.Get("code")
	if code == "" {
		return "", errors.New("authorization code not found in the URL")
	}
	return code, nil
}
