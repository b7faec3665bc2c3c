package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	v1 "github.com/lia-lab/lia-sync/internal/api/v1"
	"github.com/lia-lab/lia-sync/internal/auth"
	coreagg "github.com/lia-lab/lia-sync/internal/core/aggregation"
	httperr "github.com/lia-lab/lia-sync/internal/core/errors"
	"github.com/lia-lab/lia-sync/internal/dedup"
	sourcemocks "github.com/lia-lab/lia-sync/internal/mocks/source"
	"github.com/lia-lab/lia-sync/internal/uploader"
)

type stubAuthenticator struct {
	resp v1.LoginResponse
	err  error
}

func (s stubAuthenticator) Login(context.Context, string, string) (v1.LoginResponse, error) {
	return s.resp, s.err
}

func newRouter(f *fixture, authn Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewService(f.pipeline, f.guard, authn).RegisterRoutes(r)
	return r
}

func serve(r *gin.Engine, method, url, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestService_UploadRecent_StatusMapping(t *testing.T) {
	tests := []struct {
		name           string
		waitErr        error
		expectedStatus int
		expectedType   string
	}{
		{name: "delivered returns 200", expectedStatus: http.StatusOK},
		{name: "transport failure returns 502", waitErr: uploader.ErrTransport, expectedStatus: http.StatusBadGateway, expectedType: httperr.HttpUpstreamError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			f.sender.waitErr = tc.waitErr

			resp := serve(newRouter(f, nil), http.MethodPost, "/v1/uploads/recent", "")
			if resp.Code != tc.expectedStatus {
				t.Logf("unexpected response body: %s", resp.Body.String())
			}
			require.Equal(t, tc.expectedStatus, resp.Code)

			if tc.expectedType != "" {
				var body httperr.ErrorResponse
				require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
				assert.Equal(t, tc.expectedType, body.ErrorType)
				return
			}
			var report Report
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &report))
			assert.Equal(t, OutcomeUploaded, report.Outcome)
			assert.Equal(t, "req-1", report.RequestID)
		})
	}
}

func TestService_UploadRecent_NoAccess(t *testing.T) {
	reader := sourcemocks.NewReader(t)
	reader.EXPECT().HasRequiredAccess(mock.Anything).Return(false, nil).Once()

	f := newFixture(t, Config{})
	f.pipeline = New(coreagg.NewClock(time.UTC), reader, f.guard, f.cipher, f.sender, Config{})

	resp := serve(newRouter(f, nil), http.MethodPost, "/v1/uploads/recent", "")
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestService_Status(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.guard.MarkSuccess(context.Background(), "100-3700", f.now))

	resp := serve(newRouter(f, nil), http.MethodGet, "/v1/uploads/status", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var st dedup.State
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &st))
	assert.Equal(t, "100-3700", st.LastUploadWindow)
	assert.Equal(t, "2026-02-08 10:05", st.LastUploadTime)
}

func TestService_Preview(t *testing.T) {
	f := newFixture(t, Config{})
	f.addSteps(t, "a", time.Date(2026, 2, 8, 9, 15, 0, 0, time.UTC), 7)

	resp := serve(newRouter(f, nil), http.MethodGet, "/v1/health/preview", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"stepData":[{"date":"2026-02-08","time":"09:00","value":7}]`)
	assert.Contains(t, resp.Body.String(), `"heartRateData":[]`)
}

func TestService_Login(t *testing.T) {
	okResp := v1.LoginResponse{Status: 200, Data: v1.LoginData{Token: "t", User: v1.LoginUser{ID: "u1"}}}

	tests := []struct {
		name           string
		body           string
		authn          stubAuthenticator
		expectedStatus int
	}{
		{"missing credential returns 400", `{"email":"a@b.c"}`, stubAuthenticator{resp: okResp}, http.StatusBadRequest},
		{"malformed body returns 400", `{`, stubAuthenticator{resp: okResp}, http.StatusBadRequest},
		{"success returns 200", `{"email":"a@b.c","credential":"x"}`, stubAuthenticator{resp: okResp}, http.StatusOK},
		{"rejected returns 401", `{"email":"a@b.c","credential":"x"}`, stubAuthenticator{err: auth.ErrLoginRejected}, http.StatusUnauthorized},
		{"upstream down returns 502", `{"email":"a@b.c","credential":"x"}`, stubAuthenticator{err: context.DeadlineExceeded}, http.StatusBadGateway},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			resp := serve(newRouter(f, tc.authn), http.MethodPost, "/v1/login", tc.body)
			require.Equal(t, tc.expectedStatus, resp.Code)
		})
	}
}

func TestService_LoginRouteAbsentWithoutAuthenticator(t *testing.T) {
	f := newFixture(t, Config{})
	resp := serve(newRouter(f, nil), http.MethodPost, "/v1/login", `{"email":"a@b.c","credential":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
