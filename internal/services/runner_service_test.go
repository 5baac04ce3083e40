package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testforge/exam-service/internal/judge"
	"github.com/testforge/exam-service/internal/models"
	"github.com/testforge/exam-service/internal/utils"
)

type fakeJudge struct {
	result *judge.ExecutionResult
	err    error
	last   judge.ExecutionRequest
}

func (f *fakeJudge) Execute(_ context.Context, req judge.ExecutionRequest) (*judge.ExecutionResult, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestRun(t *testing.T) {
	client := &fakeJudge{result: &judge.ExecutionResult{Stdout: "4\n", Status: "success"}}
	svc := NewRunnerService(client, quietLogger(), utils.NewValidator())

	resp, err := svc.Run(context.Background(), &RunCodeRequest{
		SourceCode: "print(2+2)",
		Language:   models.LangPython,
		Stdin:      "",
	})
	require.NoError(t, err)
	assert.Equal(t, "4\n", resp.Stdout)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, models.LangPython, client.last.Language)
}

func TestRun_RejectsUnknownLanguage(t *testing.T) {
	svc := NewRunnerService(&fakeJudge{}, quietLogger(), utils.NewValidator())

	_, err := svc.Run(context.Background(), &RunCodeRequest{
		SourceCode: "IDENTIFICATION DIVISION.",
		Language:   "cobol",
	})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestRun_UpstreamFailure(t *testing.T) {
	client := &fakeJudge{err: errors.New("connection refused")}
	svc := NewRunnerService(client, quietLogger(), utils.NewValidator())

	_, err := svc.Run(context.Background(), &RunCodeRequest{
		SourceCode: "print(1)",
		Language:   models.LangPython,
	})
	require.Error(t, err)
	assert.True(t, IsUpstream(err))
}
