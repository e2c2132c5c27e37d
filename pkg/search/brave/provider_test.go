package brave

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBraveProvider_Search(t *testing.T) {
	var gotQuery, gotToken, gotCount string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotCount = r.URL.Query().Get("count")
		gotToken = r.Header.Get("X-Subscription-Token")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"web":{"results":[
			{"url":"https://lex.uz/acts/111","title":"Закон о пенсиях","description":"минимальная пенсия"},
			{"url":"https://lex.uz/acts/111?action=compare","title":"Сравнение","description":""},
			{"url":"https://lex.uz/ru/about","title":"О сайте","description":""}
		]}}`))
	}))
	defer srv.Close()

	p := NewBraveProvider("secret", 10, 0)
	p.BaseURL = srv.URL

	docs, err := p.Search(context.Background(), "  минимальная пенсия ")
	require.NoError(t, err)

	assert.Equal(t, "минимальная пенсия site:lex.uz", gotQuery)
	assert.Equal(t, "10", gotCount)
	assert.Equal(t, "secret", gotToken)
	require.Len(t, docs, 1)
	assert.Equal(t, "111", docs[0].ID)
	assert.InDelta(t, 0.8, docs[0].Score, 1e-9)
}

func TestBraveProvider_Errors(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		p := NewBraveProvider("", 10, 0)
		_, err := p.Search(context.Background(), "q")
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("non 200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		p := NewBraveProvider("secret", 10, 0)
		p.BaseURL = srv.URL
		_, err := p.Search(context.Background(), "q")
		assert.ErrorContains(t, err, "status 429")
	})

	t.Run("invalid json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer srv.Close()

		p := NewBraveProvider("secret", 10, 0)
		p.BaseURL = srv.URL
		_, err := p.Search(context.Background(), "q")
		assert.ErrorContains(t, err, "failed to parse brave search json")
	})

	t.Run("cancelled context while rate limited", func(t *testing.T) {
		p := NewBraveProvider("secret", 10, 0.001)
		// drain the single burst token
		require.True(t, p.limiter.Allow())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Search(ctx, "q")
		assert.ErrorContains(t, err, "rate limit wait")
	})
}
