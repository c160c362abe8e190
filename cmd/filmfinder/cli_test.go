package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/filmfinder/internal/types"
)

const listingPage = `<html><body><ul>
<li class="list__item"><a class="list__link" href="/sv/item/?type=film&amp;itemid=86571"><h3 class="list__heading">Aftermath (2017)</h3></a></li>
<li class="list__item"><a class="list__link" href="/sv/item/?type=film&amp;itemid=4711"><h3 class="list__heading">Aftermath (1994)</h3></a></li>
</ul></body></html>`

const filmPage = `<html><body>
<h1 class="page-header__heading">Aftermath <span class="page-header__heading--release">(2017)</span></h1>
<h2 id="companies">Bolag</h2>
<div class="accordion__foldout"><table class="information-table">
<tr><th>Distribution</th><td>DCP</td></tr>
</table></div>
</body></html>`

// catalogServer serves a search listing and one detail page.
func catalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/sv/" && r.URL.Query().Get("s") != "":
			_, _ = w.Write([]byte(listingPage))
		case r.URL.Path == "/sv/item/" && r.URL.Query().Get("itemid") == "86571":
			_, _ = w.Write([]byte(filmPage))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

// execute runs the root command in-process with a config pointing at
// catalogURL and returns stdout.
func execute(t *testing.T, catalogURL string, args ...string) (string, error) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "filmfinder.yaml")
	content := fmt.Sprintf("catalog:\n  base_url: %s\nartwork:\n  enabled: false\nhttp:\n  timeout: 5s\n", catalogURL)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))

	// flags are package state; reset between runs
	cfgFile, debug = "", false
	searchTitle, searchYear = "", ""
	searchJSON, searchNoArtwork, searchProgress = false, false, false
	detailsToken, detailsJSON = "", false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestSearchCommand_JSON(t *testing.T) {
	server := catalogServer(t)

	out, err := execute(t, server.URL, "search", "--title", "Aftermath", "--year", "2017", "--json")
	require.NoError(t, err)

	var resp types.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, types.Query{Title: "Aftermath", Year: 2017}, resp.Query)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "86571", resp.Results[0].ItemID)
	assert.Equal(t, "4711", resp.Results[1].ItemID)
	assert.Empty(t, resp.Results[0].PosterURL)
}

func TestSearchCommand_Table(t *testing.T) {
	server := catalogServer(t)

	out, err := execute(t, server.URL, "search", "--title", "Aftermath")
	require.NoError(t, err)
	assert.Contains(t, out, `RESULTS FOR "Aftermath"`)
	assert.Contains(t, out, "#1  Aftermath (2017)")
}

func TestSearchCommand_NoMatches(t *testing.T) {
	server := catalogServer(t)

	out, err := execute(t, server.URL, "search", "--title", "Completely Different", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"count": 0`)
	assert.Contains(t, out, `"results": []`)
}

func TestDetailsCommand(t *testing.T) {
	server := catalogServer(t)

	out, err := execute(t, server.URL, "details", "86571", "--json")
	require.NoError(t, err)

	var details types.FilmDetails
	require.NoError(t, json.Unmarshal([]byte(out), &details))
	assert.Equal(t, "86571", details.ItemID)
	assert.Equal(t, "Aftermath", details.Title)
	assert.Equal(t, "DCP", details.Token)
	assert.True(t, details.DCPAvailable)
}

func TestDetailsCommand_InvalidID(t *testing.T) {
	server := catalogServer(t)

	_, err := execute(t, server.URL, "details", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid item id")
}

func TestCLI_Help(t *testing.T) {
	binaryPath := getBinaryPath(t)

	output, err := exec.Command(binaryPath, "--help").CombinedOutput()
	require.NoError(t, err)
	assert.Contains(t, string(output), "search")
	assert.Contains(t, string(output), "details")
	assert.Contains(t, string(output), "serve")
}

func TestCLI_SearchMissingTitle(t *testing.T) {
	binaryPath := getBinaryPath(t)

	output, err := exec.Command(binaryPath, "search").CombinedOutput()
	assert.Error(t, err)
	assert.Contains(t, string(output), `required flag(s) "title" not set`)
}

func TestCLI_MissingConfigFile(t *testing.T) {
	binaryPath := getBinaryPath(t)

	output, err := exec.Command(binaryPath, "details", "1", "--config", filepath.Join(t.TempDir(), "missing.yaml")).CombinedOutput()
	assert.Error(t, err)
	assert.Contains(t, string(output), "failed to read config")
}
