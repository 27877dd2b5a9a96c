package types

import "fmt"

// InstallationKind selects which parser handles a portal response. It is set
// once when the client is constructed and never inferred from the payload.
type InstallationKind int

const (
	// KindHeating is a district heating installation: energy, water and
	// temperature counters plus billing.
	KindHeating InstallationKind = iota
	// KindWater is a pure water-metering installation.
	KindWater
)

// String implements fmt.Stringer.
func (k InstallationKind) String() string {
	switch k {
	case KindHeating:
		return "heating"
	case KindWater:
		return "water"
	default:
		return fmt.Sprintf("InstallationKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k InstallationKind) MarshalText() ([]byte, error) {
	switch k {
	case KindHeating, KindWater:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("unknown installation kind: %d", int(k))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *InstallationKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "heating":
		*k = KindHeating
	case "water":
		*k = KindWater
	default:
		return fmt.Errorf("unknown installation kind: %q", string(b))
	}
	return nil
}

// Credentials are the portal login for one consumer. The username is the
// consumer number printed on the bill and the supplier id identifies the
// utility (the "forsyningid" on eforsyning.dk).
type Credentials struct {
	Username   string `json:"username"`
	Password   string `json:"-"`
	SupplierID string `json:"supplierID"`
}

// Config is everything a portal client needs for one account.
//
// Only the first installation returned by the portal is ever used. Accounts
// with several installations need one Config (and one client) per
// installation once the portal offers a way to select it.
type Config struct {
	Credentials Credentials `json:"credentials"`

	// BillingPeriodSkew is true when the supplier's billing year runs
	// July-June instead of January-December.
	BillingPeriodSkew bool `json:"billingPeriodSkew"`

	Kind InstallationKind `json:"kind"`

	// HistoryYears enables year-scoped history queries for heating
	// installations. 0 disables them.
	HistoryYears int `json:"historyYears"`
}

// Validate checks that the config can be used to log in.
func (c Config) Validate() error {
	if c.Credentials.Username == "" {
		return fmt.Errorf("missing username")
	}
	if c.Credentials.Password == "" {
		return fmt.Errorf("missing password")
	}
	if c.Credentials.SupplierID == "" {
		return fmt.Errorf("missing supplier id")
	}
	if c.Kind != KindHeating && c.Kind != KindWater {
		return fmt.Errorf("unknown installation kind: %d", int(c.Kind))
	}
	if c.HistoryYears < 0 {
		return fmt.Errorf("history years cannot be negative")
	}
	return nil
}

// Key identifies the account in storage. It never contains the password.
func (c Config) Key() string {
	return c.Credentials.SupplierID + "-" + c.Credentials.Username
}
