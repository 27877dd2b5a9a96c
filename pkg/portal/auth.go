package portal

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/kpoppel/go-eforsyning/pkg/log"
)

type vaerkSettings struct {
	AppServerURI string `json:"AppServerUri"`
}

type tokenResult struct {
	Token string `json:"Token"`
}

type loginResult struct {
	Result int `json:"Result"`
}

// Authenticate looks up the supplier's API server, fetches a security token
// and logs in with the derived access token.
func (c *Client) Authenticate(ctx context.Context) (Session, error) {
	sess := Session{SessionID: c.newID()}

	server, err := c.resolveServer(ctx, sess)
	if err != nil {
		return Session{}, err
	}
	sess.APIServer = server

	token, err := c.acquireToken(ctx, sess)
	if err != nil {
		return Session{}, err
	}
	sess.AccessToken = DeriveAccessToken(c.cfg.Credentials.Password, token)

	if err := c.login(ctx, sess); err != nil {
		return Session{}, err
	}
	log.Ctx(ctx).DebugContext(ctx, "eforsyning login success", slog.String("sessionID", sess.SessionID))
	return sess, nil
}

// AuthenticateLenient is Authenticate for background use: failures are
// logged and reported as false.
func (c *Client) AuthenticateLenient(ctx context.Context) (Session, bool) {
	sess, err := c.Authenticate(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "eforsyning authentication failed", slog.Any("error", err))
		return Session{}, false
	}
	return sess, true
}

// DeriveAccessToken chains the password and the security token the way the
// portal expects: md5hex(md5hex(password) + token).
func DeriveAccessToken(password, token string) string {
	hash := md5.Sum([]byte(password))
	hash = md5.Sum([]byte(hex.EncodeToString(hash[:]) + token))
	return hex.EncodeToString(hash[:])
}

func (c *Client) resolveServer(ctx context.Context, sess Session) (string, error) {
	params := url.Values{}
	params.Set("forsyningid", c.cfg.Credentials.SupplierID)
	req, err := c.newGetRequest(ctx, sess, c.baseURL, "umbraco/dff/dffapi/GetVaerkSettings", params)
	if err != nil {
		return "", err
	}

	var res vaerkSettings
	if err := c.doJSON(req, &res); err != nil {
		return "", fmt.Errorf("%w: GetVaerkSettings: %w", ErrHTTPFailed, err)
	}
	if res.AppServerURI == "" {
		return "", fmt.Errorf("%w: no api server for supplier %s", ErrHTTPFailed, c.cfg.Credentials.SupplierID)
	}
	log.Ctx(ctx).DebugContext(ctx, "resolved eforsyning api server", slog.String("server", res.AppServerURI))
	return res.AppServerURI, nil
}

func (c *Client) acquireToken(ctx context.Context, sess Session) (string, error) {
	req, err := c.newGetRequest(ctx, sess, sess.APIServer, "system/getsecuritytoken/project/app/consumer/"+c.cfg.Credentials.Username, nil)
	if err != nil {
		return "", err
	}

	var res tokenResult
	if err := c.doJSON(req, &res); err != nil {
		var se statusError
		if errors.As(err, &se) {
			return "", fmt.Errorf("%w: security token status %d, probably a wrong username", ErrLoginFailed, se.code)
		}
		return "", fmt.Errorf("%w: security token: %w", ErrLoginFailed, err)
	}
	if res.Token == "" {
		return "", fmt.Errorf("%w: %w, probably a wrong username", ErrLoginFailed, ErrTokenEmpty)
	}
	return res.Token, nil
}

func (c *Client) login(ctx context.Context, sess Session) error {
	if err := sess.authenticated(); err != nil {
		return err
	}
	endpoint := "system/login/project/app/consumer/" + c.cfg.Credentials.Username + "/installation/1/id/" + sess.AccessToken
	req, err := c.newGetRequest(ctx, sess, sess.APIServer, endpoint, nil)
	if err != nil {
		return err
	}

	var res loginResult
	if err := c.doJSON(req, &res); err != nil {
		return fmt.Errorf("%w: login: %w", ErrHTTPFailed, err)
	}
	if res.Result != 1 {
		return fmt.Errorf("%w: result %d", ErrLoginFailed, res.Result)
	}
	return nil
}
