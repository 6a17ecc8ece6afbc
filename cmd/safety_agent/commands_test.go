package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragcon/safety-assistant/internal/chat"
	"github.com/ragcon/safety-assistant/internal/parsing"
	"github.com/ragcon/safety-assistant/internal/ragcon"
	"github.com/ragcon/safety-assistant/internal/safety"
	"github.com/ragcon/safety-assistant/internal/types"
)

func TestRiskCommand_JSON(t *testing.T) {
	server := newFakeService(t, serviceBodies)

	stdout, _, err := runCLI(t, "", "--base-url", server.URL, "risk", "--json", "용접작업")
	require.NoError(t, err)

	var hazards []types.HazardRecord
	require.NoError(t, json.Unmarshal([]byte(stdout), &hazards))
	require.Len(t, hazards, 1)
	assert.Equal(t, "용접 불티 비산", hazards[0].Detail)
	assert.Equal(t, []string{"불티받이포 설치"}, hazards[0].SafetyMeasures)
}

func TestRiskCommand_Text(t *testing.T) {
	server := newFakeService(t, serviceBodies)

	stdout, _, err := runCLI(t, "", "--base-url", server.URL, "risk", "--work", "welding")
	require.NoError(t, err)
	assert.Contains(t, stdout, "위험성 평가")
	assert.Contains(t, stdout, "용접 불티 비산")
}

func TestRiskCommand_ServiceFailure(t *testing.T) {
	server := newFakeService(t, serviceBodies, ragcon.PathRiskAssessment)

	_, _, err := runCLI(t, "", "--base-url", server.URL, "risk", "용접작업")
	require.Error(t, err)
	assert.Contains(t, err.Error(), safety.UserMessage)

	var genErr *safety.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, safety.KindRemoteFailure, genErr.Kind)
	assert.Equal(t, 502, genErr.StatusCode)
}

func TestAccidentsCommand_FiltersDataset(t *testing.T) {
	server := newFakeService(t, serviceBodies)
	dataset := writeDataset(t)

	stdout, _, err := runCLI(t, "", "--base-url", server.URL, "--dataset", dataset, "accidents", "--json", "굴착작업")
	require.NoError(t, err)

	var cases []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &cases))
	require.Len(t, cases, 2)
	assert.Equal(t, "c2", cases[0].ID)
	assert.Equal(t, "c4", cases[1].ID)
}

func TestAccidentsCommand_MissingDataset(t *testing.T) {
	server := newFakeService(t, serviceBodies)

	_, _, err := runCLI(t, "", "--base-url", server.URL, "--dataset", "/nonexistent/cases.jsonl", "accidents", "굴착작업")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset file not found")
}

func TestTbmCommand_MergesSections(t *testing.T) {
	server := newFakeService(t, serviceBodies)

	stdout, _, err := runCLI(t, "", "--base-url", server.URL, "tbm", "--json", "용접작업")
	require.NoError(t, err)

	var tbm types.TbmRecord
	require.NoError(t, json.Unmarshal([]byte(stdout), &tbm))
	assert.Equal(t, []string{"소화기 비치"}, tbm.Precautions)
	assert.Equal(t, []string{"보호구 착용 확인"}, tbm.Checklist)
	assert.Equal(t, []string{"화기작업 허가서 발급"}, tbm.Management)
}

func TestTbmCommand_PartialFailure(t *testing.T) {
	server := newFakeService(t, serviceBodies, ragcon.PathManagement)

	stdout, _, err := runCLI(t, "", "--base-url", server.URL, "tbm", "용접작업")
	require.Error(t, err)
	assert.Contains(t, err.Error(), safety.UserMessage)
	assert.Empty(t, stdout)
}

func TestCheckCommand_CompletesWithYes(t *testing.T) {
	server := newFakeService(t, serviceBodies)
	dataset := writeDataset(t)

	stdout, stderr, err := runCLI(t, "",
		"--base-url", server.URL, "--dataset", dataset,
		"check", "--yes", "--json", "--equipment", "crane", "용접작업")
	require.NoError(t, err)

	var report struct {
		ID        string            `json:"id"`
		Process   string            `json:"process"`
		Equipment string            `json:"equipment"`
		Hazards   []json.RawMessage `json:"hazards"`
		Accidents []json.RawMessage `json:"accidents"`
		Tbm       struct {
			Precautions []string `json:"precautions"`
		} `json:"tbm"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "용접작업", report.Process)
	assert.Equal(t, "크레인", report.Equipment)
	assert.Len(t, report.Hazards, 1)
	assert.Len(t, report.Accidents, 2)
	assert.Equal(t, []string{"소화기 비치"}, report.Tbm.Precautions)

	assert.Contains(t, stderr, "안전점검활동 시작: 용접작업")
	for _, w := range safety.Workflows {
		assert.Contains(t, stderr, "✓ "+w.String())
	}
}

func TestCheckCommand_InteractiveReview(t *testing.T) {
	server := newFakeService(t, serviceBodies)
	dataset := writeDataset(t)

	stdout, stderr, err := runCLI(t, "y\n예\n",
		"--base-url", server.URL, "--dataset", dataset, "check", "용접작업")
	require.NoError(t, err)
	assert.Contains(t, stderr, "위험성 평가를 확인했습니까?")
	assert.Contains(t, stderr, "관련 사고 사례를 확인했습니까?")
	assert.Contains(t, stdout, "안전점검 완료")
}

func TestCheckCommand_DeclinedReview(t *testing.T) {
	server := newFakeService(t, serviceBodies)
	dataset := writeDataset(t)

	_, _, err := runCLI(t, "y\nn\n",
		"--base-url", server.URL, "--dataset", dataset, "check", "용접작업")
	assert.ErrorIs(t, err, errCheckIncomplete)
}

func TestCheckCommand_FailedWorkflow(t *testing.T) {
	server := newFakeService(t, serviceBodies, ragcon.PathRiskAssessment)
	dataset := writeDataset(t)

	stdout, stderr, err := runCLI(t, "",
		"--base-url", server.URL, "--dataset", dataset, "check", "--yes", "용접작업")
	assert.ErrorIs(t, err, errCheckIncomplete)
	assert.Contains(t, stderr, "✗ hazard")
	assert.Contains(t, stdout, safety.UserMessage)
}

func TestChatCommand_Question(t *testing.T) {
	server := newFakeService(t, serviceBodies)

	stdout, _, err := runCLI(t, "", "--base-url", server.URL, "chat", "--question", "고소작업 주의사항은?")
	require.NoError(t, err)
	assert.Equal(t, "안전대를 착용하세요.\n", stdout)
}

func TestChatCommand_QuestionFailure(t *testing.T) {
	server := newFakeService(t, serviceBodies, ragcon.PathChat)

	_, _, err := runCLI(t, "", "--base-url", server.URL, "chat", "-q", "고소작업 주의사항은?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), chat.ErrorMessage)
}

func TestChatCommand_Loop(t *testing.T) {
	server := newFakeService(t, serviceBodies)

	stdout, _, err := runCLI(t, "고소작업 주의사항은?\n\n/clear\n/exit\n이 줄은 보내지 않는다\n",
		"--base-url", server.URL, "chat")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stdout, "안전대를 착용하세요."))
	assert.Equal(t, 4, strings.Count(stdout, "> "))
}

func TestChatCommand_LoopKeepsGoingAfterFailure(t *testing.T) {
	server := newFakeService(t, serviceBodies, ragcon.PathChat)

	stdout, _, err := runCLI(t, "첫 질문\n둘째 질문\n", "--base-url", server.URL, "chat")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(stdout, chat.ErrorMessage))
}

func TestCatalogCommand(t *testing.T) {
	stdout, _, err := runCLI(t, "", "catalog")
	require.NoError(t, err)
	assert.Contains(t, stdout, "welding")
	assert.Contains(t, stdout, "용접작업")
	assert.Contains(t, stdout, "덤프트럭")

	stdout, _, err = runCLI(t, "", "catalog", "--json")
	require.NoError(t, err)
	var catalog struct {
		WorkItems []types.WorkItem  `json:"work_items"`
		Equipment []types.Equipment `json:"equipment"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &catalog))
	assert.Len(t, catalog.WorkItems, len(types.WorkItems))
	assert.Len(t, catalog.Equipment, len(types.EquipmentItems))
}

func TestRootCommand_ConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "non-http base URL",
			args:    []string{"--base-url", "ftp://example.com", "catalog"},
			wantErr: "base_url",
		},
		{
			name:    "negative timeout",
			args:    []string{"--timeout", "-1", "catalog"},
			wantErr: "timeout",
		},
		{
			name:    "unknown log format",
			args:    []string{"--log-format", "xml", "catalog"},
			wantErr: "log_format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRootCommand_FlagsOverrideEnvironment(t *testing.T) {
	server := newFakeService(t, serviceBodies)
	t.Setenv("RAGCON_BASE_URL", "ftp://not-used")

	_, _, err := runCLI(t, "", "--base-url", server.URL, "chat", "-q", "질문")
	assert.NoError(t, err)

	_, _, err = runCLI(t, "", "chat", "-q", "질문")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestRootCommand_BadTimeoutEnvironment(t *testing.T) {
	t.Setenv("RAGCON_TIMEOUT", "soon")

	_, _, err := runCLI(t, "", "catalog")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RAGCON_TIMEOUT")
}

func TestResolveProcess(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		work    string
		want    string
		wantErr bool
	}{
		{name: "free text", args: []string{"강관", "용접접합"}, want: "강관 용접접합"},
		{name: "catalog value", work: "welding", want: "용접작업"},
		{name: "catalog label", work: "굴착작업", want: "굴착작업"},
		{name: "default", want: ""},
		{name: "unknown work item", work: "juggling", wantErr: true},
		{name: "both sources", args: []string{"용접작업"}, work: "welding", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveProcess(tt.args, tt.work)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" 네 \n", true},
		{"예", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var out strings.Builder
			got := confirm(bufio.NewReader(strings.NewReader(tt.input)), &out, "확인?")
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "확인? [y/N]")
		})
	}
}

// blockingGenerator never answers until its context ends.
type blockingGenerator struct{}

func (blockingGenerator) RiskAssessment(ctx context.Context, _ string) (*parsing.HazardPayload, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingGenerator) AccidentCaseIDs(ctx context.Context, _ string) ([]types.CaseNumber, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingGenerator) TbmSection(ctx context.Context, _ types.TbmKey, _ string) (map[string]any, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type noCases struct{}

func (noCases) Lookup(context.Context, []types.CaseNumber) ([]types.AccidentCase, error) {
	return nil, nil
}

func TestAwait_InterruptCancelsGenerations(t *testing.T) {
	logger := zerolog.Nop()
	orch := safety.New(blockingGenerator{}, noCases{}, &safety.Options{Logger: &logger})
	task, err := orch.StartAll("용접작업")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = await(ctx, orch, task)
	assert.True(t, errors.Is(err, errInterrupted))
	assert.Equal(t, safety.OutcomeDiscarded, task.Outcome())
	assert.False(t, orch.Snapshot().Loading())
}
