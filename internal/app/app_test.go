package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/config"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/pipeline"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/store"
	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/pkg/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

const detailTemplate = `<html><body>
<header class="ActivityInformationHeader__StyledWrapper-sc-1"><h1>%s</h1></header>
<ul class="CategoryChipList__StyledWrapper-sc-3"><li><p>%s</p></li></ul>
</body></html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/list/contest", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `<html><body><div class="list-body"></div></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body><div class="list-body">
			<a href="/activity/1">one</a><a href="/activity/2">two</a>
		</div></body></html>`)
	})
	mux.HandleFunc("/activity/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, detailTemplate, "Design contest", "디자인")
	})
	mux.HandleFunc("/activity/2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, detailTemplate, "Essay contest", "문학/수기")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.LogLevel = "error"
	cfg.Engine = config.EngineStatic
	cfg.BaseURL = baseURL
	cfg.Throttle = 0
	cfg.WaitTimeout = 500 * time.Millisecond
	cfg.PollInterval = 10 * time.Millisecond
	cfg.RateLimitRPS = 1000
	cfg.RateLimitBurst = 100
	return cfg
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	var buf bytes.Buffer
	cfg := config.Default()
	cfg.LogLevel = "debug"
	cfg.JSONLog = true

	logger := setupLogger(cfg, &buf)
	logger.Debug().Str("k", "v").Msg("hello")

	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "v", entry["k"])
}

func TestNewThrottleFollowsConfig(t *testing.T) {
	cfg := testConfig("http://example.invalid")
	cfg.Throttle = 100 * time.Millisecond
	cfg.AdaptiveThrottle = true
	cfg.MaxThrottle = time.Second

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)

	th := a.NewThrottle()
	th.Observe(true)
	assert.Equal(t, 200*time.Millisecond, th.Delay())

	cfg.AdaptiveThrottle = false
	th = a.NewThrottle()
	th.Observe(true)
	assert.Equal(t, 100*time.Millisecond, th.Delay())
}

func TestCrawlWithStaticEngine(t *testing.T) {
	keyring.MockInit()
	server := newSite(t)

	a, err := New(context.Background(), testConfig(server.URL))
	require.NoError(t, err)
	defer a.Close(context.Background())

	out := filepath.Join(t.TempDir(), "out", "contests.json")
	sink, err := a.OpenSink(context.Background(), out, "")
	require.NoError(t, err)

	stats, err := pipeline.Run(context.Background(), pipeline.Options{Pages: 2, Workers: 2, Ordered: true}, a.NewWorker, sink)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.Equal(t, 2, stats.Pages)
	assert.Equal(t, 2, stats.Records)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var records []models.ActivityRecord
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, server.URL+"/activity/1", records[0].DetailURL)
	assert.Equal(t, "Design contest", models.Deref(records[0].Title))
	assert.Equal(t, []string{"문학", "수기"}, records[1].Categories)
}

func TestOpenSinkWithFilter(t *testing.T) {
	keyring.MockInit()
	server := newSite(t)

	a, err := New(context.Background(), testConfig(server.URL))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "contests.jsonl")
	sink, err := a.OpenSink(context.Background(), out, `record.activity_category.indexOf("디자인") >= 0`)
	require.NoError(t, err)

	stats, err := pipeline.Run(context.Background(), pipeline.Options{Pages: 1}, a.NewWorker, sink)
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	assert.Equal(t, 2, stats.Records)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 1)
	assert.Contains(t, string(lines[0]), "Design contest")
}

func TestOpenSinkTalliesDatabaseBehindFilter(t *testing.T) {
	keyring.MockInit()
	server := newSite(t)

	a, err := New(context.Background(), testConfig(server.URL))
	require.NoError(t, err)

	ctx := context.Background()
	sink, err := a.OpenSink(ctx, filepath.Join(t.TempDir(), "contests.db"), `record.activity_title.indexOf("Essay") >= 0`)
	require.NoError(t, err)
	defer sink.Close()

	_, err = pipeline.Run(ctx, pipeline.Options{Pages: 1}, a.NewWorker, sink)
	require.NoError(t, err)

	tallies, err := store.Tallies(ctx, sink)
	require.NoError(t, err)
	require.Len(t, tallies, 1)
	assert.Equal(t, "sqlite", tallies[0].Backend)
	assert.Equal(t, 1, tallies[0].Total)
	assert.Equal(t, 1, tallies[0].Run)
}

func TestOpenSinkRejectsBadFilter(t *testing.T) {
	a, err := New(context.Background(), testConfig("http://example.invalid"))
	require.NoError(t, err)

	_, err = a.OpenSink(context.Background(), filepath.Join(t.TempDir(), "x.json"), "record.(")
	assert.Error(t, err)
}
