package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/gtminspect/internal/inspector"
	"github.com/ajitpratap0/gtminspect/internal/server"
	"github.com/ajitpratap0/gtminspect/pkg/compression"
	"github.com/ajitpratap0/gtminspect/pkg/config"
	"github.com/ajitpratap0/gtminspect/pkg/flatten"
	"github.com/ajitpratap0/gtminspect/pkg/metrics"
	"github.com/ajitpratap0/gtminspect/pkg/report"
	"github.com/ajitpratap0/gtminspect/pkg/testutil"
)

type EndToEndSuite struct {
	testutil.IntegrationTestSuite
	api *httptest.Server
}

func TestEndToEnd(t *testing.T) {
	suite.Run(t, new(EndToEndSuite))
}

func (s *EndToEndSuite) SetupSuite() {
	s.IntegrationTestSuite.SetupSuite()

	cfg := config.Default()
	reg := prometheus.NewRegistry()
	log := testutil.TestLogger(s.T())
	svc := inspector.NewService(log, metrics.New(reg), storageOptions(cfg, io.Discard))
	s.api = httptest.NewServer(server.NewHTTPServer(svc, server.Options{
		Parse:    cfg.ParseOptions(),
		Gatherer: reg,
	}, log).Handler())
}

func (s *EndToEndSuite) TearDownSuite() {
	s.api.Close()
	s.IntegrationTestSuite.TearDownSuite()
}

// The CLI and the API must produce the same rows for the same export.
func (s *EndToEndSuite) TestCLIAndAPIAgree() {
	input := s.CreateTempFile("in/container.json", []byte(testutil.SampleExport))
	output := s.Path("out/report.csv.gz")

	_, stderr, err := execute(s.T(), "", "inspect", "--log-level", "error",
		"--compression", "gzip", "--output", s.Path("out/report.csv"), input)
	s.Require().NoError(err)
	s.Contains(stderr, "2 rows produced")

	f, err := os.Open(output)
	s.Require().NoError(err)
	defer f.Close()
	zr, err := compression.NewReader(f, compression.Gzip)
	s.Require().NoError(err)
	cliRows, err := report.ReadCSV(zr)
	s.Require().NoError(err)

	req, err := http.NewRequestWithContext(s.Context(), http.MethodPost, s.api.URL+"/api/inspect",
		strings.NewReader(testutil.SampleExport))
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var body struct {
		Rows []flatten.FlatRow `json:"rows"`
	}
	s.Require().NoError(gojson.NewDecoder(resp.Body).Decode(&body))
	s.Equal(cliRows, body.Rows)
	s.Equal(testutil.SampleTriggers, body.Rows[0].Triggers)
}

func (s *EndToEndSuite) TestHealth() {
	resp, err := http.Get(s.api.URL + "/api/health")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}
