package parser

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/logflow/eventlog/internal/model"
	perrors "github.com/logflow/eventlog/pkg/errors"
)

// ParseFiles parses independent files of one format concurrently, at most
// cfg.Concurrency at a time. Results are in input order. Every failure is
// collected; if any file fails, no logs are returned.
func ParseFiles(ctx context.Context, format Format, cfg Config, paths []string, opts ...Option) ([]*model.EventLog, error) {
	reader, err := NewReader(format, cfg, opts...)
	if err != nil {
		return nil, err
	}
	logger := buildOptions(opts).logger

	logs := make([]*model.EventLog, len(paths))
	errs := make([]error, len(paths))

	limit := cfg.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			log, err := reader.Parse(path)
			if err != nil {
				logger.Warn("parse failed", zap.String("path", path), zap.Error(err))
				errs[i] = err
				return nil
			}
			logs[i] = log
			return nil
		})
	}
	_ = g.Wait()

	var multi perrors.MultiError
	for _, err := range errs {
		multi.Add(err)
	}
	if err := multi.Combined(); err != nil {
		return nil, err
	}
	return logs, nil
}
