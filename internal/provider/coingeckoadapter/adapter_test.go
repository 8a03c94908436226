package coingeckoadapter_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"coingateway/internal/provider"
	"coingateway/internal/provider/coingecko"
	"coingateway/internal/provider/coingeckoadapter"
)

type fakeAPI struct {
	listCalls atomic.Int32
	coinCalls atomic.Int32

	list    []coingecko.CoinListEntry
	listErr error
	// block GetCoinsList until released, when set
	gate chan struct{}

	coins   map[string]*coingecko.Coin
	coinErr error
}

func (f *fakeAPI) GetCoinsList(ctx context.Context, _ ...coingecko.CoinGeckoAPIClientOption) ([]coingecko.CoinListEntry, error) {
	f.listCalls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.list, f.listErr
}

func (f *fakeAPI) GetCoin(ctx context.Context, id string, _ ...coingecko.CoinGeckoAPIClientOption) (*coingecko.Coin, error) {
	f.coinCalls.Add(1)
	if f.coinErr != nil {
		return nil, f.coinErr
	}
	c, ok := f.coins[id]
	if !ok {
		return nil, coingecko.ErrNotFound
	}
	return c, nil
}

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func btcAPI() *fakeAPI {
	return &fakeAPI{
		list: []coingecko.CoinListEntry{
			{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin"},
			{ID: "ethereum", Symbol: "eth", Name: "Ethereum"},
		},
		coins: map[string]*coingecko.Coin{
			"bitcoin": {
				ID: "bitcoin", Symbol: "btc", Name: "Bitcoin",
				MarketData: coingecko.MarketData{CurrentPrice: map[string]float64{"usd": 61000, "brl": 350000}},
			},
		},
	}
}

func TestNewCatalog_LastDuplicateWins(t *testing.T) {
	t.Parallel()

	c := coingeckoadapter.NewCatalog([]coingecko.CoinListEntry{
		{ID: "first-usdt", Symbol: "usdt"},
		{ID: "tether", Symbol: "USDT"},
		{ID: "", Symbol: "skip"},
	}, nil, time.Unix(0, 0))

	id, ok := c.ID("usdt")
	require.True(t, ok)
	require.Equal(t, "tether", id)
	_, ok = c.ID("skip")
	require.False(t, ok)
	require.Equal(t, 1, c.Len())
}

func TestNewCatalog_OverridesWin(t *testing.T) {
	t.Parallel()

	c := coingeckoadapter.NewCatalog([]coingecko.CoinListEntry{
		{ID: "batcoin", Symbol: "btc"},
	}, map[string]string{"BTC": "bitcoin"}, time.Now())

	id, _ := c.ID("btc")
	require.Equal(t, "bitcoin", id)
}

func TestNew_FailsWhenCatalogUnavailable(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{listErr: errors.New("boom")}
	a, err := coingeckoadapter.New(t.Context(), coingeckoadapter.Config{}, api, quietLogger())
	require.ErrorContains(t, err, "boom")
	require.Nil(t, a)
}

func TestFetchBySymbol(t *testing.T) {
	t.Parallel()

	// Arrange
	api := btcAPI()
	a, err := coingeckoadapter.New(t.Context(), coingeckoadapter.Config{VsCurrency: "BRL"}, api, quietLogger())
	require.NoError(t, err)
	require.Equal(t, "CoinGecko", a.Name())

	// Act
	q, err := a.FetchBySymbol(t.Context(), "BTC")

	// Assert
	require.NoError(t, err)
	require.Equal(t, "Bitcoin", q.CoinName)
	require.Equal(t, "btc", q.Symbol)
	require.Equal(t, 350000.0, q.CoinPrice)
	require.Equal(t, 61000.0, q.CoinPriceReference)
	require.False(t, q.NeedsConversion())
	require.False(t, q.ConsultedAt.IsZero())
	require.EqualValues(t, 1, api.listCalls.Load())
}

func TestFetchBySymbol_UnknownSymbol(t *testing.T) {
	t.Parallel()

	api := btcAPI()
	a, err := coingeckoadapter.New(t.Context(), coingeckoadapter.Config{}, api, quietLogger())
	require.NoError(t, err)

	_, err = a.FetchBySymbol(t.Context(), "xyz")

	var perr *provider.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "CoinGecko", perr.Provider)
	require.ErrorIs(t, err, provider.ErrUnknownSymbol)
	// no detail call for symbols outside the catalog
	require.Zero(t, api.coinCalls.Load())
}

func TestFetchBySymbol_DetailNotFound(t *testing.T) {
	t.Parallel()

	api := btcAPI()
	a, err := coingeckoadapter.New(t.Context(), coingeckoadapter.Config{}, api, quietLogger())
	require.NoError(t, err)

	_, err = a.FetchBySymbol(t.Context(), "eth")
	require.ErrorIs(t, err, provider.ErrUnknownSymbol)
}

func TestFetchBySymbol_MissingCurrency(t *testing.T) {
	t.Parallel()

	api := btcAPI()
	a, err := coingeckoadapter.New(t.Context(), coingeckoadapter.Config{VsCurrency: "eur"}, api, quietLogger())
	require.NoError(t, err)

	_, err = a.FetchBySymbol(t.Context(), "btc")
	require.ErrorContains(t, err, "no eur price")
}

func TestRefresh_KeepsSnapshotOnFailure(t *testing.T) {
	t.Parallel()

	api := btcAPI()
	a, err := coingeckoadapter.New(t.Context(), coingeckoadapter.Config{}, api, quietLogger())
	require.NoError(t, err)
	before := a.Catalog()

	api.listErr = errors.New("unavailable")
	require.Error(t, a.Refresh(t.Context()))
	require.Same(t, before, a.Catalog())
}

func TestRefresh_CoalescesConcurrentCalls(t *testing.T) {
	t.Parallel()

	api := btcAPI()
	a, err := coingeckoadapter.New(t.Context(), coingeckoadapter.Config{}, api, quietLogger())
	require.NoError(t, err)

	api.gate = make(chan struct{})
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.Refresh(context.Background())
		}()
	}
	// let the goroutines pile up on the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(api.gate)
	wg.Wait()

	// one from New, at most a couple for the coalesced refreshes
	require.Less(t, api.listCalls.Load(), int32(9))
	require.Equal(t, 2, a.Catalog().Len())
}
