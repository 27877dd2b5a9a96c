package types

import "time"

// InstallationRef scopes every data query in a session.
type InstallationRef struct {
	InstallationID string `json:"installationID"`
	AssetID        string `json:"assetID"`
}

// UserInfo is the portal's internal user, which differs from the username.
type UserInfo struct {
	ID string `json:"id"`
	// MovedIn is when the consumer moved in. Zero if the portal didn't say.
	MovedIn time.Time `json:"movedIn"`
}

// YearMarker is the supplier's active billing year. Around new year it can
// lag the calendar year.
type YearMarker struct {
	Year        int       `json:"year"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
}
