package portal

import "errors"

var (
	// ErrLoginFailed means the portal rejected the credentials. It is
	// user-correctable: check the username, password and supplier id.
	ErrLoginFailed = errors.New("login failed")
	// ErrTokenEmpty is wrapped with ErrLoginFailed when the token endpoint
	// returns an empty token, which usually means a wrong username.
	ErrTokenEmpty = errors.New("security token was empty")
	// ErrHTTPFailed is a transport failure or unexpected status.
	ErrHTTPFailed = errors.New("portal request failed")
	// ErrNotAuthenticated is returned when a session-scoped call is made
	// without an access token.
	ErrNotAuthenticated = errors.New("session not authenticated")
	// ErrNoInstallation means the account has no installations.
	ErrNoInstallation = errors.New("no installation found")
	// ErrNoData means the portal returned no periods this cycle. Callers
	// should keep their previous data.
	ErrNoData = errors.New("no data")
)
