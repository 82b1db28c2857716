//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/cloo-solutions/finsight/internal/api/handlers"
	"github.com/cloo-solutions/finsight/internal/corpus"
	"github.com/cloo-solutions/finsight/internal/repository"
	"github.com/cloo-solutions/finsight/internal/server"
	"github.com/cloo-solutions/finsight/internal/service"
	"github.com/cloo-solutions/finsight/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const corpusPrefix = "articles/"

// articles is the corpus pushed to object storage for every run
var articles = fstest.MapFS{
	"budgeting.txt":    {Data: []byte("Tracking car expenses and other monthly costs helps budgeting.")},
	"mutual_funds.txt": {Data: []byte("Mutual funds pool money from many investors to buy a diversified portfolio.")},
	"sip.txt":          {Data: []byte("A SIP invests a fixed amount in a mutual fund every month.")},
}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	Service    *service.RetrievalService
	APIKey     string
	BinaryDir  string
	HTTPClient *http.Client
}

// vocabularyEmbedder maps text to term counts over a fixed vocabulary so
// nearest-neighbour results are predictable without a real provider.
type vocabularyEmbedder struct{}

var vocabulary = []string{"mutual", "fund", "sip", "car", "expenses", "budget"}

func (vocabularyEmbedder) embed(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(vocabulary))
	for i, term := range vocabulary {
		v[i] = float32(strings.Count(lower, term))
	}
	return v
}

func (e vocabularyEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e vocabularyEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

func (vocabularyEmbedder) Model() string { return "vocabulary" }

// SetupE2EEnv starts Postgres and RustFS, publishes the corpus and serves the
// retrieval API in front of them.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client := testutil.NewS3Client(ctx, t, s3C, "finsight-corpus")
	if _, err := corpus.Push(ctx, corpus.NewFSSource(articles, "fixtures"), s3Client, corpusPrefix); err != nil {
		t.Fatalf("failed to push corpus: %v", err)
	}

	loader := corpus.NewLoader(corpus.NewS3Source(s3Client, "finsight-corpus", corpusPrefix))
	store := repository.NewChunkIndexRepository(pool, "e2e")
	svc, err := service.NewRetrievalService(ctx, loader, vocabularyEmbedder{}, store, service.DefaultRetrievalConfig())
	if err != nil {
		t.Fatalf("failed to create retrieval service: %v", err)
	}

	apiKey, err := service.GenerateAPIToken()
	if err != nil {
		t.Fatalf("failed to generate API key: %v", err)
	}

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:    service.NewAuthService([]string{apiKey}),
		RetrievalHandler: handlers.NewRetrievalHandler(svc, repository.NewQueryLogRepository(pool)),
	})

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		Server:     httptest.NewServer(router),
		Service:    svc,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildClient builds the finsight CLI binary
func (e *E2ETestEnv) BuildClient() {
	tmpDir, err := os.MkdirTemp("", "finsight-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "finsight"), "./cmd/finsight")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build finsight: %v\n%s", err, out)
	}
}

// RunFinsight runs the finsight CLI against the test server
func (e *E2ETestEnv) RunFinsight(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "finsight"), args...)
	cmd.Dir = e.T.TempDir()
	cmd.Env = append(os.Environ(),
		"FINSIGHT_API_KEY="+e.APIKey,
		"FINSIGHT_API_URL="+e.Server.URL,
		"HOME="+cmd.Dir,
		"XDG_CONFIG_HOME="+cmd.Dir,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	StatusCode int
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error,omitempty"`
}

func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, authToken)
}

func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, authToken)
}

// doRequest returns the decoded envelope for every status code; only
// transport and decoding failures are errors.
func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.Server.URL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := APIResponse{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return &apiResp, nil
}
