package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kpoppel/go-eforsyning/pkg/storage"
	"github.com/kpoppel/go-eforsyning/pkg/types"
)

func fakeVerifier(tokens map[string]string) tokenVerifier {
	return func(ctx context.Context, rawIDToken string) (string, error) {
		email, ok := tokens[rawIDToken]
		if !ok {
			return "", errors.New("invalid token")
		}
		return email, nil
	}
}

func TestHandleUpdate(t *testing.T) {
	tests := []struct {
		name     string
		outcome  types.Outcome
		snap     types.Snapshot
		err      error
		wantCode int
		wantSnap bool
	}{
		{name: "ok", outcome: types.OutcomeOK, snap: testSnapshot(), wantCode: http.StatusOK, wantSnap: true},
		{name: "throttled keeps previous", outcome: types.OutcomeThrottled, snap: testSnapshot(), wantCode: http.StatusOK, wantSnap: true},
		{name: "empty without previous", outcome: types.OutcomeEmpty, wantCode: http.StatusOK},
		{name: "auth failed", outcome: types.OutcomeAuthFailed, snap: testSnapshot(), wantCode: http.StatusBadGateway, wantSnap: true},
		{name: "failed", outcome: types.OutcomeFailed, wantCode: http.StatusBadGateway},
		{name: "save error", outcome: types.OutcomeOK, snap: testSnapshot(), err: errors.New("boom"), wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockPoller{}
			p.On("Poll", mock.Anything).Return(tt.snap, tt.outcome, tt.err).Once()
			srv := newTestServer(p, storage.NewMemory())

			req := httptest.NewRequest(http.MethodPost, "/api/update", nil)
			w := httptest.NewRecorder()
			srv.setupHandler().ServeHTTP(w, req)

			require.Equal(t, tt.wantCode, w.Code)
			p.AssertExpectations(t)
			if tt.err != nil {
				return
			}

			var resp updateResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.outcome.String(), resp.Outcome)
			if tt.wantSnap {
				require.NotNil(t, resp.Snapshot)
				assert.Equal(t, tt.snap, *resp.Snapshot)
			} else {
				assert.Nil(t, resp.Snapshot)
			}
		})
	}
}

func TestUpdateAuth(t *testing.T) {
	verifier := fakeVerifier(map[string]string{
		"good":  "scheduler@example.iam.gserviceaccount.com",
		"other": "someone@example.com",
	})

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantPoll bool
	}{
		{name: "valid token", header: "Bearer good", wantCode: http.StatusOK, wantPoll: true},
		{name: "missing header", header: "", wantCode: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", wantCode: http.StatusBadRequest},
		{name: "invalid token", header: "Bearer bad", wantCode: http.StatusUnauthorized},
		{name: "wrong email", header: "Bearer other", wantCode: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockPoller{}
			if tt.wantPoll {
				p.On("Poll", mock.Anything).Return(testSnapshot(), types.OutcomeOK, nil).Once()
			}
			srv := newTestServer(p, storage.NewMemory())
			srv.verifier = verifier
			srv.updateSpecificEmail = "scheduler@example.iam.gserviceaccount.com"

			req := httptest.NewRequest(http.MethodPost, "/api/update", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			srv.setupHandler().ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			p.AssertExpectations(t)
			if !tt.wantPoll {
				p.AssertNotCalled(t, "Poll", mock.Anything)
			}
		})
	}
}
