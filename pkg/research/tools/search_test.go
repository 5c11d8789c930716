package tools

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ddgResults = `<html><body>
<div class="result results_links result--ad">
  <a class="result__a" href="https://ads.example.com/acme">Sponsored Acme</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fen.wikipedia.org%2Fwiki%2FAcme_Corporation&amp;rut=abc">Acme Corporation - Wikipedia</a></h2>
  <a class="result__snippet">Acme Corporation is a fictional company.</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="https://acme.com/">Acme | Official Site</a></h2>
  <a class="result__snippet">Rockets and anvils.</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="https://news.example.com/acme">Acme in the news</a></h2>
</div>
</body></html>`

func TestDuckDuckGoSearch(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(ddgResults))
	}))
	defer srv.Close()

	d := NewDuckDuckGoSearch("scout-test/1.0", 0)
	d.Endpoint = srv.URL

	results, err := d.Search(t.Context(), "Acme Corp", 2)
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", gotQuery)
	assert.Equal(t, "scout-test/1.0", gotUA)
	require.Len(t, results, 2)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Acme_Corporation", results[0].URL)
	assert.Equal(t, "Acme Corporation - Wikipedia", results[0].Title)
	assert.Equal(t, "Acme Corporation is a fictional company.", results[0].Snippet)
	assert.Equal(t, "https://acme.com/", results[1].URL)
	assert.Equal(t, "duckduckgo", d.Name())
}

func TestDuckDuckGoSearchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewDuckDuckGoSearch("", 0)
	d.Endpoint = srv.URL

	results, err := d.Search(t.Context(), "Acme", 10)
	assert.Error(t, err)
	assert.Empty(t, results)
}

func TestUnwrapRedirect(t *testing.T) {
	assert.Equal(t, "https://acme.com/about", unwrapRedirect("//duckduckgo.com/l/?uddg=https%3A%2F%2Facme.com%2Fabout"))
	assert.Equal(t, "https://acme.com/", unwrapRedirect("https://acme.com/"))
	assert.Empty(t, unwrapRedirect("javascript:void(0)"))
}
