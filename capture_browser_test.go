package worksnap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeApp walks through the same screens as the mobile estimate UI. Each
// click on a [data-next] element renders the named template into #app.
const fakeApp = `<!DOCTYPE html>
<html>
<head><meta name="viewport" content="width=device-width"></head>
<body>
<div id="app"></div>
<template id="v-login">
  <form><input type="email"><input type="password"><button type="submit">Войти</button></form>
</template>
<template id="v-projects"><div class="project-card" data-next="estimates">Project</div></template>
<template id="v-estimates"><div class="estimate-card" data-next="estimate">Estimate</div></template>
<template id="v-estimate"><button data-next="categories">Редактировать работы</button></template>
<template id="v-categories"><div class="category-card" data-next="works">Category</div></template>
<template id="v-works">%s</template>
<script>
function render(name) {
  var app = document.getElementById('app');
  app.innerHTML = '';
  app.appendChild(document.getElementById('v-' + name).content.cloneNode(true));
}
document.addEventListener('click', function(e) {
  var el = e.target.closest('[data-next]');
  if (el) render(el.dataset.next);
});
document.addEventListener('submit', function(e) {
  e.preventDefault();
  render('projects');
});
render('login');
</script>
</body>
</html>`

const workCards = `
<div class="work-card selected"><span class="checkbox checked"></span>Work 1</div>
<div class="work-card selected"><span class="checkbox checked"></span>Work 2</div>
<div class="work-card"><span class="checkbox"></span>Work 3</div>
<div class="work-card"><span class="checkbox"></span>Work 4</div>
<div class="work-card"><span class="checkbox"></span>Work 5</div>`

func newBrowserRunner(t *testing.T, works string) *Runner {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if _, found := launcher.LookPath(); !found {
		t.Skip("no browser found")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, fakeApp, works)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	options := DefaultOptions()
	options.URL = srv.URL
	options.FullPagePath = filepath.Join(dir, "full.png")
	options.ViewportPath = filepath.Join(dir, "viewport.png")
	options.Timeout = time.Minute
	options.WorkCardTimeout = 2 * time.Second

	return NewRunnerWithOptions(*options)
}

func TestRunInBrowser(t *testing.T) {
	runner := newBrowserRunner(t, workCards)

	result := runner.Run(context.Background())

	require.NoError(t, result.Error)
	assert.True(t, result.Completed())
	assert.Equal(t, Counts{WorkCards: 5, SelectedWorks: 2, Checkboxes: 2}, result.Counts)
	assert.FileExists(t, runner.Options.FullPagePath)
	assert.FileExists(t, runner.Options.ViewportPath)
}

func TestRunInBrowserWithoutWorkCards(t *testing.T) {
	runner := newBrowserRunner(t, `<p>No works</p>`)

	result := runner.Run(context.Background())

	require.Error(t, result.Error)
	assert.Empty(t, result.Files)
	assert.NoFileExists(t, runner.Options.FullPagePath)
}
