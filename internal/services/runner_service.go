package services

import (
	"context"
	"log/slog"

	"github.com/testforge/exam-service/internal/judge"
	"github.com/testforge/exam-service/internal/utils"
)

type runnerService struct {
	judge     judge.Client
	logger    *slog.Logger
	validator *utils.Validator
}

func NewRunnerService(client judge.Client, logger *slog.Logger, validator *utils.Validator) RunnerService {
	return &runnerService{
		judge:     client,
		logger:    logger,
		validator: validator,
	}
}

func (s *runnerService) Run(ctx context.Context, req *RunCodeRequest) (*RunCodeResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if s.judge == nil {
		return nil, &UpstreamError{Service: "judge", Err: ErrExecutionFailed}
	}

	result, err := s.judge.Execute(ctx, judge.ExecutionRequest{
		SourceCode: req.SourceCode,
		Language:   req.Language,
		Stdin:      req.Stdin,
	})
	if err != nil {
		s.logger.Error("Code execution failed", "language", req.Language, "error", err)
		return nil, &UpstreamError{Service: "judge", Err: err}
	}

	return &RunCodeResponse{
		Stdout:        result.Stdout,
		Stderr:        result.Stderr,
		Status:        result.Status,
		ExecutionTime: result.ExecutionTime,
	}, nil
}
