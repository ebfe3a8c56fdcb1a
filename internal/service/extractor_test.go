package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/codevault-labs/postgen/internal/config"
	"github.com/codevault-labs/postgen/internal/models"
)

func newTestExtractor() *ContentExtractor {
	cfg := &config.ExtractorConfig{Timeout: "5s", UserAgent: "postgen-test/1.0"}
	return NewContentExtractor(cfg, zap.NewNop())
}

func TestContentExtractor_TextPassthrough(t *testing.T) {
	extractor := newTestExtractor()

	source := models.DataSource{SourceType: models.DataSourceTypeText, Content: "raw input text"}
	assert.Equal(t, "raw input text", extractor.Extract(context.Background(), source))
}

func TestContentExtractor_Link(t *testing.T) {
	page := `<html>
	<head><title>Launch</title><style>body { color: red; }</style></head>
	<body>
	  <nav>Home | About</nav>
	  <script>console.log("tracking");</script>
	  <article>
	    <h1>Product Launch</h1>
	    <p>We are announcing something new.</p>
	  </article>
	  <footer>Copyright</footer>
	</body>
	</html>`

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(page))
	}))
	defer srv.Close()

	extractor := newTestExtractor()
	source := models.DataSource{SourceType: models.DataSourceTypeLink, Content: srv.URL}
	text := extractor.Extract(context.Background(), source)

	assert.Equal(t, "postgen-test/1.0", gotUA)
	assert.Contains(t, text, "Product Launch")
	assert.Contains(t, text, "We are announcing something new.")
	assert.NotContains(t, text, "console.log")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "Home | About")
	assert.NotContains(t, text, "Copyright")
}

func TestContentExtractor_LinkErrorsYieldEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	extractor := newTestExtractor()

	notFound := models.DataSource{SourceType: models.DataSourceTypeLink, Content: srv.URL}
	assert.Empty(t, extractor.Extract(context.Background(), notFound))

	unreachable := models.DataSource{SourceType: models.DataSourceTypeLink, Content: "http://127.0.0.1:1/nope"}
	assert.Empty(t, extractor.Extract(context.Background(), unreachable))
}

func TestCollapseLines(t *testing.T) {
	in := "  First line  \n\n\n   Second line\n   \n"
	assert.Equal(t, "First line\nSecond line", collapseLines(in))
}
