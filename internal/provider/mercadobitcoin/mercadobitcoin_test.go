package mercadobitcoin_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coingateway/internal/httpx"
	"coingateway/internal/provider"
	"coingateway/internal/provider/mercadobitcoin"
)

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/marketplace/product/unlogged", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "btc", q.Get("symbol"))
		assert.Equal(t, "20", q.Get("limit"))
		assert.Equal(t, "0", q.Get("offset"))
		assert.Equal(t, "desc", q.Get("order"))
		assert.Equal(t, "release_date", q.Get("sort"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchBySymbol(t *testing.T) {
	t.Parallel()

	// Arrange
	srv := newServer(t, http.StatusOK, `{"response_data":{"products":[
		{"name":"Bitcoin","market_price":"350000.00"},
		{"name":"Bitcoin Cash","market_price":"1500"}]}}`)
	p := mercadobitcoin.New(mercadobitcoin.Config{BaseURL: srv.URL + "/api/v1"}, httpx.New(0))

	// Act
	q, err := p.FetchBySymbol(t.Context(), "BTC")

	// Assert
	require.NoError(t, err)
	require.Equal(t, "MercadoBitcoin", p.Name())
	require.Equal(t, "Bitcoin", q.CoinName)
	require.Equal(t, "btc", q.Symbol)
	require.Equal(t, 350000.0, q.CoinPrice)
	require.True(t, q.NeedsConversion())
	require.False(t, q.ConsultedAt.IsZero())
}

func TestFetchBySymbol_NumericPrice(t *testing.T) {
	t.Parallel()

	srv := newServer(t, http.StatusOK, `{"response_data":{"products":[{"name":"Bitcoin","market_price":350000.5}]}}`)
	p := mercadobitcoin.New(mercadobitcoin.Config{BaseURL: srv.URL + "/api/v1/"}, nil)

	q, err := p.FetchBySymbol(t.Context(), "btc")
	require.NoError(t, err)
	require.Equal(t, 350000.5, q.CoinPrice)
}

func TestFetchBySymbol_NoProducts(t *testing.T) {
	t.Parallel()

	srv := newServer(t, http.StatusOK, `{"response_data":{"products":[]}}`)
	p := mercadobitcoin.New(mercadobitcoin.Config{BaseURL: srv.URL + "/api/v1/"}, nil)

	_, err := p.FetchBySymbol(t.Context(), "btc")

	var perr *provider.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "MercadoBitcoin", perr.Provider)
	require.ErrorIs(t, err, provider.ErrUnknownSymbol)
}

func TestFetchBySymbol_BadStatus(t *testing.T) {
	t.Parallel()

	srv := newServer(t, http.StatusForbidden, `blocked`)
	p := mercadobitcoin.New(mercadobitcoin.Config{BaseURL: srv.URL + "/api/v1/"}, nil)

	_, err := p.FetchBySymbol(t.Context(), "btc")
	require.ErrorContains(t, err, "403")
	require.NotErrorIs(t, err, provider.ErrUnknownSymbol)
}

func TestFetchBySymbol_BadPrice(t *testing.T) {
	t.Parallel()

	srv := newServer(t, http.StatusOK, `{"response_data":{"products":[{"name":"Bitcoin","market_price":"n/a"}]}}`)
	p := mercadobitcoin.New(mercadobitcoin.Config{BaseURL: srv.URL + "/api/v1/"}, nil)

	_, err := p.FetchBySymbol(t.Context(), "btc")
	require.ErrorContains(t, err, "decode")
}
