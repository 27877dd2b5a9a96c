package portal

import (
	"context"
	"fmt"

	"github.com/kpoppel/go-eforsyning/pkg/types"
)

type billingRequest struct {
	AssetNr     int    `json:"aktivnr"`
	Computation string `json:"beregnetVarmeRegnskab"`
}

// FetchBilling returns the raw billing computation for the current billing
// year.
func (c *Client) FetchBilling(ctx context.Context, sess Session, inst types.InstallationRef) ([]byte, error) {
	if err := sess.authenticated(); err != nil {
		return nil, err
	}
	body := billingRequest{AssetNr: 0, Computation: "faktisk"}
	req, err := c.newPostJSONRequest(ctx, sess, "api/getberegnregnskab", c.sessionParams(sess, inst), body)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: getberegnregnskab: %w", ErrHTTPFailed, err)
	}
	return raw, nil
}
