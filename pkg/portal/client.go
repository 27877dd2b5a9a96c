// Package portal talks to the eForsyning consumer portal.
//
// Every cycle authenticates from scratch: Authenticate returns a Session that
// is passed explicitly to every later call and is never reused across
// cycles.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/levenlabs/go-lflag"
	"golang.org/x/time/rate"

	"github.com/kpoppel/go-eforsyning/pkg/common"
	"github.com/kpoppel/go-eforsyning/pkg/log"
	"github.com/kpoppel/go-eforsyning/pkg/types"
)

// DefaultBaseURL is where the supplier settings are looked up.
const DefaultBaseURL = "https://eforsyning.dk/"

// DefaultTimeout bounds each individual portal call.
const DefaultTimeout = 10 * time.Second

// A cycle with history sends a burst of getforbrug calls. They are spaced
// out after the first few.
const (
	requestInterval = 500 * time.Millisecond
	requestBurst    = 4
)

// Client fetches metering data for one account.
type Client struct {
	client  *http.Client
	pace    *rate.Limiter
	baseURL string
	cfg     types.Config

	newID func() string
	now   func() time.Time
}

// NewClient returns a client for cfg. An empty baseURL uses DefaultBaseURL.
func NewClient(cfg types.Config, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		client:  common.HTTPClient(timeout),
		pace:    rate.NewLimiter(rate.Every(requestInterval), requestBurst),
		baseURL: baseURL,
		cfg:     cfg,
		newID:   common.RequestID,
		now:     time.Now,
	}
}

// Configured sets up the client from flags.
func Configured() *Client {
	username := lflag.String("eforsyning-username", "", "Consumer number used to log in to eforsyning")
	password := lflag.String("eforsyning-password", "", "Password for eforsyning")
	supplierID := lflag.String("eforsyning-supplier-id", "", "Supplier id (forsyningid) of the utility")
	skew := lflag.Bool("eforsyning-billing-period-skew", false, "The supplier's billing year runs July to June")
	water := lflag.Bool("eforsyning-water-supply", false, "The installation is a water-only installation")
	historyYears := lflag.Int("eforsyning-history-years", 0, "Number of previous billing years to fetch totals for (heating only)")
	baseURL := lflag.String("eforsyning-base-url", DefaultBaseURL, "Base URL used to look up the supplier's API server")
	timeout := lflag.Duration("portal-timeout", DefaultTimeout, "Timeout for each portal request")

	c := &Client{}
	lflag.Do(func() {
		cfg := types.Config{
			Credentials: types.Credentials{
				Username:   *username,
				Password:   *password,
				SupplierID: *supplierID,
			},
			BillingPeriodSkew: *skew,
			Kind:              types.KindHeating,
			HistoryYears:      *historyYears,
		}
		if *water {
			cfg.Kind = types.KindWater
		}
		if err := cfg.Validate(); err != nil {
			panic(fmt.Sprintf("invalid eforsyning config: %v", err))
		}
		*c = *NewClient(cfg, *baseURL, *timeout)
	})
	return c
}

// Config returns the account config the client was created with.
func (c *Client) Config() types.Config {
	return c.cfg
}

// Session is the state of one authenticated cycle.
type Session struct {
	APIServer   string
	AccessToken string
	SessionID   string
}

func (s Session) authenticated() error {
	if s.APIServer == "" || s.AccessToken == "" {
		return ErrNotAuthenticated
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method string, sess Session, base, endpoint string, params url.Values, body io.Reader) (*http.Request, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	u = u.JoinPath(endpoint)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Session-ID", sess.SessionID)
	req.Header.Set("X-Correlation-ID", c.newID())
	return req, nil
}

func (c *Client) newGetRequest(ctx context.Context, sess Session, base, endpoint string, params url.Values) (*http.Request, error) {
	return c.newRequest(ctx, "GET", sess, base, endpoint, params, nil)
}

func (c *Client) newPostJSONRequest(ctx context.Context, sess Session, endpoint string, params url.Values, data interface{}) (*http.Request, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, "POST", sess, sess.APIServer, endpoint, params, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// sessionParams are the query parameters scoping a data call to one
// installation.
func (c *Client) sessionParams(sess Session, inst types.InstallationRef) url.Values {
	params := url.Values{}
	params.Set("id", sess.AccessToken)
	params.Set("unr", c.cfg.Credentials.Username)
	params.Set("anr", inst.AssetID)
	params.Set("inr", inst.InstallationID)
	return params
}

type statusError struct {
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("status %d", e.code)
}

// do sends req and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	if err := c.pace.Wait(req.Context()); err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Ctx(req.Context()).DebugContext(req.Context(), "eforsyning unexpected status",
			slog.Int("status", resp.StatusCode),
			slog.String("path", req.URL.Path),
			slog.String("body", string(body)),
		)
		return nil, statusError{code: resp.StatusCode}
	}
	return body, nil
}

func (c *Client) doJSON(req *http.Request, dest interface{}) error {
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		log.Ctx(req.Context()).ErrorContext(req.Context(), "failed to decode eforsyning response",
			slog.Any("error", err),
			slog.String("path", req.URL.Path),
			slog.String("body", string(body)),
		)
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
