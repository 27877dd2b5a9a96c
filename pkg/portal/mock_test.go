package portal

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/kpoppel/go-eforsyning/pkg/types"
)

const (
	testUsername = "12345"
	testPassword = "secret"
	testSupplier = "kongerslev"
	testToken    = "A1B2C3"
)

// fakePortal emulates the eforsyning endpoints the client uses.
type fakePortal struct {
	t   *testing.T
	srv *httptest.Server

	mu          sync.Mutex
	token       string
	tokenStatus int
	loginResult int
	userInfo    string
	installs    string
	marker      string
	billing     string
	// series answers api/getforbrug for the requested year marker
	series func(req timeSeriesRequest) (int, string)

	calls    map[string]int
	requests []*http.Request
	bodies   map[string][]string
}

func newFakePortal(t *testing.T) *fakePortal {
	f := &fakePortal{
		t:           t,
		token:       testToken,
		tokenStatus: http.StatusOK,
		loginResult: 1,
		userInfo:    `{"id": 4711, "Indflytningsdato": "15-08-2019"}`,
		installs:    `{"Installationer": [{"EjendomNr": 99, "InstallationNr": 1, "AktivNr": 2, "Adresse": "Vej 1"}]}`,
		marker:      `{"AarsMaerke": 2024, "AarStart": "01-01-2024", "AarSlut": "31-12-2024"}`,
		billing:     testBilling,
		series: func(req timeSeriesRequest) (int, string) {
			return http.StatusOK, seriesFor(req.YearMarker)
		},
		calls:  map[string]int{},
		bodies: map[string][]string{},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePortal) client(cfg types.Config) *Client {
	c := NewClient(cfg, f.srv.URL+"/", time.Second)
	c.now = func() time.Time { return time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC) }
	c.pace = rate.NewLimiter(rate.Inf, 1)
	return c
}

func testConfig() types.Config {
	return types.Config{
		Credentials: types.Credentials{Username: testUsername, Password: testPassword, SupplierID: testSupplier},
		Kind:        types.KindHeating,
	}
}

func (f *fakePortal) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakePortal) lastBody(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.bodies[name]
	if len(b) == 0 {
		return ""
	}
	return b[len(b)-1]
}

func (f *fakePortal) seriesYears() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var years []int
	for _, b := range f.bodies["getforbrug"] {
		var req timeSeriesRequest
		require.NoError(f.t, json.Unmarshal([]byte(b), &req))
		years = append(years, req.YearMarker)
	}
	return years
}

func (f *fakePortal) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, r)
	name := endpointName(r.URL.Path)
	f.calls[name]++
	f.bodies[name] = append(f.bodies[name], string(body))
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	write := func(status int, s string) {
		w.WriteHeader(status)
		_, err := w.Write([]byte(s))
		if err != nil {
			panic(http.ErrAbortHandler)
		}
	}

	switch name {
	case "GetVaerkSettings":
		if r.URL.Query().Get("forsyningid") != testSupplier {
			write(http.StatusOK, `{"AppServerUri": ""}`)
			return
		}
		write(http.StatusOK, fmt.Sprintf(`{"AppServerUri": %q}`, f.srv.URL+"/"+testSupplier+"/"))
	case "getsecuritytoken":
		write(f.tokenStatus, fmt.Sprintf(`{"Token": %q}`, f.token))
	case "login":
		result := f.loginResult
		if !strings.HasSuffix(r.URL.Path, "/id/"+DeriveAccessToken(testPassword, f.token)) {
			result = 0
		}
		write(http.StatusOK, fmt.Sprintf(`{"Result": %d}`, result))
	case "getebrugerinfo":
		write(http.StatusOK, f.userInfo)
	case "FindInstallationer":
		write(http.StatusOK, f.installs)
	case "getaktueltaarsmaerke":
		write(http.StatusOK, f.marker)
	case "getforbrug":
		var req timeSeriesRequest
		if err := json.Unmarshal(body, &req); err != nil {
			write(http.StatusBadRequest, `{}`)
			return
		}
		write(f.series(req))
	case "getberegnregnskab":
		write(http.StatusOK, f.billing)
	default:
		write(http.StatusNotFound, `{}`)
	}
}

func endpointName(path string) string {
	switch {
	case strings.Contains(path, "/system/getsecuritytoken/"):
		return "getsecuritytoken"
	case strings.Contains(path, "/system/login/"):
		return "login"
	}
	return path[strings.LastIndex(path, "/")+1:]
}

func seriesFor(year int) string {
	return fmt.Sprintf(`{
		"AarStart": "01-01-%[1]d", "AarSlut": "31-12-%[1]d",
		"ForbrugsLinjer": {"TForbrugsLinje": [
			{
				"FraDatoStr": "14-03-%[1]d", "TilDatoStr": "15-03-%[1]d",
				"Tempfrem": "60,5", "TempRetur": "31,5", "Forv_Retur": "35,0", "Afkoling": "29,0",
				"ForventetForbrugM3": "0,30", "ForventetAflaesningM3": "530,00",
				"ForventetForbrugENG1": "0,030", "ForventetAflaesningENG1": "17,000",
				"TForbrugsTaellevaerk": [
					{"IndexNavn": "ENG1", "Enhed_Txt": "MWh", "Start": "16,900", "Slut": "16,932", "Forbrug": "0,032"},
					{"IndexNavn": "M3", "Enhed_Txt": "M3", "Start": "529,10", "Slut": "529,42", "Forbrug": "0,32"}
				]
			}
		]},
		"IaltLinje": {
			"FraDatoStr": "01-01-%[1]d", "TilDatoStr": "31-12-%[1]d",
			"Tempfrem": "61,0", "TempRetur": "32,0", "Afkoling": "29,0",
			"TForbrugsTaellevaerk": [
				{"IndexNavn": "ENG1", "Enhed_Txt": "MWh", "Forbrug": "%[2]d,000"},
				{"IndexNavn": "M3", "Enhed_Txt": "M3", "Forbrug": "100,00"}
			]
		}
	}`, year, year-2000)
}

const emptySeries = `{"AarStart": "01-01-2025", "AarSlut": "31-12-2025", "ForbrugsLinjer": {"TForbrugsLinje": []}}`

const lookupFailed = `{"Message": "An error has occurred.", "ExceptionMessage": "Opslag fejlede"}`

const testBilling = `{"faktlini": [
	{"linieType": "3", "antalEnheder": "2", "enhed": "MWh", "tekst": "MWh", "ialt": "1.000,00"},
	{"linieType": "3", "antalEnheder": "1", "enhed": "MWh", "tekst": "MWh", "ialt": "500,00"},
	{"linieType": "3", "antalEnheder": "1,5", "enhed": "MWh", "tekst": "Prognose", "ialt": "750,00"},
	{"linieType": "3", "antalEnheder": "108,66", "enhed": "M3", "tekst": ""},
	{"linieType": "1", "antalEnheder": "170,25", "enhed": "m3", "tekst": "Fastbidrag", "ialt": "2.237,09"},
	{"linieType": "12", "tekst": "Til udbetaling", "ialt": "250,00"},
	{"linieType": "42", "tekst": "Ny linje", "ialt": "1,00"}
]}`
