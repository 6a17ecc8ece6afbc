package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ragcon/safety-assistant/internal/ragcon"
)

const testDataset = `{"id": "c1", "chunk_content": "비계 해체 중 추락", "metadata": {"case_no": 1}}
{"id": "c2", "chunk_content": "용접 불티로 화재", "metadata": {"case_no": 2}}
{"id": "c3", "chunk_content": "굴착면 붕괴", "metadata": {"case_no": 3}}
{"id": "c4", "chunk_content": "지게차 협착", "metadata": {"case_no": 4}}
`

// serviceBodies answers every endpoint of the generation service.
var serviceBodies = map[string]string{
	ragcon.PathRiskAssessment: `{"answer": [{"hazard_category": "화재", "hazard_cause": "불티", "hazard_detail": "용접 불티 비산", "safety_measures": ["불티받이포 설치"]}]}`,
	ragcon.PathAccidentCases:  `{"accident_case_ids": [4, 2]}`,
	ragcon.PathPrecautions:    `{"precautions": ["소화기 비치"]}`,
	ragcon.PathChecklist:      `{"checklist": ["보호구 착용 확인"]}`,
	ragcon.PathManagement:     `{"management": ["화기작업 허가서 발급"]}`,
	ragcon.PathChat:           `{"answer": "안전대를 착용하세요."}`,
}

// newFakeService serves bodies per path. Paths listed in failing answer 502.
func newFakeService(t *testing.T, bodies map[string]string, failing ...string) *httptest.Server {
	t.Helper()
	fail := make(map[string]bool, len(failing))
	for _, p := range failing {
		fail[p] = true
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail[r.URL.Path] {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		body, ok := bodies[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accident_cases.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(testDataset), 0o600))
	return path
}

// runCLI executes the root command in-process.
func runCLI(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}
