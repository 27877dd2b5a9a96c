package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/kpoppel/go-eforsyning/pkg/log"
	"github.com/kpoppel/go-eforsyning/pkg/parse"
	"github.com/kpoppel/go-eforsyning/pkg/types"
)

type userInfoResult struct {
	ID      parse.FlexString `json:"id"`
	MovedIn string           `json:"Indflytningsdato"`
}

type installationsResult struct {
	Installations []struct {
		InstallationNr parse.FlexString `json:"InstallationNr"`
		AktivNr        parse.FlexString `json:"AktivNr"`
		Address        string           `json:"Adresse"`
		MeterNr        string           `json:"MålerNr"`
	} `json:"Installationer"`
}

type yearMarkerResult struct {
	Year      parse.FlexString `json:"AarsMaerke"`
	YearStart string           `json:"AarStart"`
	YearEnd   string           `json:"AarSlut"`
}

// GetUserInfo returns the portal's internal user for the session. The id
// differs from the username and scopes the installation search.
func (c *Client) GetUserInfo(ctx context.Context, sess Session) (types.UserInfo, error) {
	if err := sess.authenticated(); err != nil {
		return types.UserInfo{}, err
	}
	params := url.Values{}
	params.Set("id", sess.AccessToken)
	req, err := c.newGetRequest(ctx, sess, sess.APIServer, "api/getebrugerinfo", params)
	if err != nil {
		return types.UserInfo{}, err
	}

	var res userInfoResult
	if err := c.doJSON(req, &res); err != nil {
		return types.UserInfo{}, fmt.Errorf("%w: getebrugerinfo: %w", ErrHTTPFailed, err)
	}
	if res.ID == "" {
		return types.UserInfo{}, fmt.Errorf("%w: getebrugerinfo returned no id", ErrHTTPFailed)
	}

	info := types.UserInfo{ID: res.ID.String()}
	if res.MovedIn != "" {
		movedIn, err := parse.PortalDate(res.MovedIn)
		if err != nil {
			// only bounds the history queries
			log.Ctx(ctx).WarnContext(ctx, "ignoring unparsable moved-in date", slog.String("movedIn", res.MovedIn))
		} else {
			info.MovedIn = movedIn
		}
	}
	return info, nil
}

// ResolveInstallation returns the first installation of the user. Accounts
// with more than one installation only ever see the first.
func (c *Client) ResolveInstallation(ctx context.Context, sess Session) (types.InstallationRef, types.UserInfo, error) {
	user, err := c.GetUserInfo(ctx, sess)
	if err != nil {
		return types.InstallationRef{}, types.UserInfo{}, err
	}

	params := url.Values{}
	params.Set("id", sess.AccessToken)
	body := map[string]interface{}{
		"Soegetekst":        "",
		"Skip":              "0",
		"Take":              "10000",
		"EBrugerId":         userIDValue(user.ID),
		"Huskeliste":        "null",
		"MedtagTilknyttede": "true",
	}
	req, err := c.newPostJSONRequest(ctx, sess, "api/FindInstallationer", params, body)
	if err != nil {
		return types.InstallationRef{}, types.UserInfo{}, err
	}

	var res installationsResult
	if err := c.doJSON(req, &res); err != nil {
		return types.InstallationRef{}, types.UserInfo{}, fmt.Errorf("%w: FindInstallationer: %w", ErrHTTPFailed, err)
	}
	if len(res.Installations) == 0 {
		return types.InstallationRef{}, types.UserInfo{}, ErrNoInstallation
	}
	if len(res.Installations) > 1 {
		log.Ctx(ctx).WarnContext(ctx, "account has several installations, using the first", slog.Int("installations", len(res.Installations)))
	}

	first := res.Installations[0]
	inst := types.InstallationRef{
		InstallationID: first.InstallationNr.String(),
		AssetID:        first.AktivNr.String(),
	}
	log.Ctx(ctx).DebugContext(ctx, "resolved eforsyning installation",
		slog.String("installationID", inst.InstallationID),
		slog.String("assetID", inst.AssetID),
	)
	return inst, user, nil
}

// userIDValue sends numeric ids back as JSON numbers, the way the portal
// returned them.
func userIDValue(id string) interface{} {
	if _, err := strconv.ParseInt(id, 10, 64); err == nil {
		return json.Number(id)
	}
	return id
}

// GetLatestYearMarker returns the supplier's currently active billing year.
func (c *Client) GetLatestYearMarker(ctx context.Context, sess Session, inst types.InstallationRef) (types.YearMarker, error) {
	if err := sess.authenticated(); err != nil {
		return types.YearMarker{}, err
	}
	req, err := c.newGetRequest(ctx, sess, sess.APIServer, "api/getaktueltaarsmaerke", c.sessionParams(sess, inst))
	if err != nil {
		return types.YearMarker{}, err
	}

	var res yearMarkerResult
	if err := c.doJSON(req, &res); err != nil {
		return types.YearMarker{}, fmt.Errorf("%w: getaktueltaarsmaerke: %w", ErrHTTPFailed, err)
	}
	year, err := strconv.Atoi(strings.TrimSpace(res.Year.String()))
	if err != nil {
		return types.YearMarker{}, fmt.Errorf("%w: year marker %q: %w", ErrHTTPFailed, res.Year, err)
	}

	marker := types.YearMarker{Year: year}
	if res.YearStart != "" {
		if marker.PeriodStart, err = parse.PortalDate(res.YearStart); err != nil {
			return types.YearMarker{}, err
		}
	}
	if res.YearEnd != "" {
		if marker.PeriodEnd, err = parse.PortalDate(res.YearEnd); err != nil {
			return types.YearMarker{}, err
		}
	}
	return marker, nil
}
