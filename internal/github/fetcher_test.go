package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v81/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSource(t *testing.T) {
	src, err := ParseSource("acme/handbook/docs/hiring@v2")
	require.NoError(t, err)
	assert.Equal(t, Source{Owner: "acme", Repo: "handbook", Path: "docs/hiring", Ref: "v2"}, src)
	assert.Equal(t, "acme/handbook/docs/hiring@v2", src.String())

	src, err = ParseSource("acme/handbook")
	require.NoError(t, err)
	assert.Empty(t, src.Path)
	assert.Empty(t, src.Ref)

	_, err = ParseSource("acme")
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestIsDoc(t *testing.T) {
	assert.True(t, IsDoc("README.md"))
	assert.True(t, IsDoc("notes.TXT"))
	assert.False(t, IsDoc("logo.png"))
	assert.False(t, IsDoc("Makefile"))
}

func newTestFetcher(t *testing.T, mux *http.ServeMux, src Source) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	gh := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	gh.BaseURL = base
	return NewFetcher(&Client{Client: gh}, src, nil)
}

func fileJSON(name, content string) string {
	return fmt.Sprintf(`{"type":"file","name":%q,"encoding":"base64","content":%q,"sha":"sha-%s"}`,
		name, base64.StdEncoding.EncodeToString([]byte(content)), name)
}

func TestFetchAll(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/handbook/contents/docs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		fmt.Fprint(w, `[
			{"type":"file","name":"intro.md"},
			{"type":"file","name":"logo.png"},
			{"type":"dir","name":"team"}
		]`)
	})
	mux.HandleFunc("/repos/acme/handbook/contents/docs/team", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"type":"file","name":"roles.txt"},{"type":"file","name":"broken.md"}]`)
	})
	mux.HandleFunc("/repos/acme/handbook/contents/docs/intro.md", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fileJSON("intro.md", "# Intro\n\nWelcome."))
	})
	mux.HandleFunc("/repos/acme/handbook/contents/docs/team/roles.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fileJSON("roles.txt", "Engineers write Go."))
	})
	mux.HandleFunc("/repos/acme/handbook/contents/docs/team/broken.md", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	})

	f := newTestFetcher(t, mux, Source{Owner: "acme", Repo: "handbook", Path: "docs", Ref: "main"})

	paths, err := f.ListDocs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"intro.md", "team/roles.txt", "team/broken.md"}, paths)

	docs, err := f.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2, "a failing download is skipped")
	assert.Equal(t, "intro.md", docs[0].Path)
	assert.Equal(t, "# Intro\n\nWelcome.", docs[0].Content)
	assert.Equal(t, "sha-intro.md", docs[0].SHA)
	assert.Equal(t, "team/roles.txt", docs[1].Path)
}

func TestListDocs_MissingDirectory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/handbook/contents/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})

	f := newTestFetcher(t, mux, Source{Owner: "acme", Repo: "handbook", Path: "missing"})
	_, err := f.FetchAll(context.Background())
	assert.ErrorContains(t, err, "failed to get contents of missing")
}
