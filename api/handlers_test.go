package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atlasbank/instrument-engine/api"
	"github.com/atlasbank/instrument-engine/bank"
	"github.com/atlasbank/instrument-engine/bank/store"
	"github.com/atlasbank/instrument-engine/engine"
)

var t0 = time.Date(2026, time.July, 1, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *bank.Service) {
	t.Helper()
	svc := bank.NewService(store.NewTxMemory(), zap.NewNop())
	svc.Clock = engine.NewFixedClock(t0)
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(svc)))
	t.Cleanup(srv.Close)
	return srv, svc
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAPI_OpenAccount_And_IssueCheque(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/accounts", api.OpenAccountRequest{
		HolderID:       "holder-1",
		OpeningBalance: "50000.00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	acc := decode[api.AccountDTO](t, resp)
	assert.Equal(t, "50000.00", acc.Balance)
	assert.NotEmpty(t, acc.Number)

	resp = postJSON(t, srv.URL+"/api/cheques", api.IssueChequeRequest{
		AccountNumber: acc.Number,
		Amount:        "2500.00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	chq := decode[api.ChequeDTO](t, resp)
	assert.Equal(t, "ACTIVE", chq.Status)
	assert.Equal(t, "NONE", chq.RequestStatus)

	// the issued cheque is readable back
	getResp, err := http.Get(srv.URL + "/api/cheques/" + chq.Number)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	fetched := decode[api.ChequeDTO](t, getResp)
	assert.Equal(t, chq.Number, fetched.Number)
}

func TestAPI_ErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)

	// unknown resources map to 404
	resp, err := http.Get(srv.URL + "/api/accounts/acc-missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// malformed amounts map to 400
	resp = postJSON(t, srv.URL+"/api/accounts", api.OpenAccountRequest{
		HolderID:       "holder-1",
		OpeningBalance: "not-a-number",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// illegal transitions map to 409
	acc := decode[api.AccountDTO](t, postJSON(t, srv.URL+"/api/accounts", api.OpenAccountRequest{
		HolderID:       "holder-1",
		OpeningBalance: "1000.00",
	}))
	chq := decode[api.ChequeDTO](t, postJSON(t, srv.URL+"/api/cheques", api.IssueChequeRequest{
		AccountNumber: acc.Number,
		Amount:        "100.00",
	}))
	resp = postJSON(t, srv.URL+"/api/cheques/"+chq.Number+"/draw", api.ActorRequest{Actor: "payee"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "drawing without approval is a conflict")
	resp.Body.Close()
}

func TestAPI_RequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-Id", "req-42")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "req-42", resp2.Header.Get("X-Request-Id"), "caller-supplied ids are echoed")
}
