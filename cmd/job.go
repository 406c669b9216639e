package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/ezpbars/internal/services"
	"github.com/desertthunder/ezpbars/internal/shared"
	"github.com/desertthunder/ezpbars/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Job creates example jobs, waits for each through its trace, and prints the job results.
//
// The job status endpoint serves as the poll fallback. With --count above one the jobs run on a worker pool and
// progress is logged instead of drawn.
func (r *Runner) Job(ctx context.Context, cmd *cli.Command) error {
	count := cmd.Int("count")
	if count < 1 {
		return fmt.Errorf("%w: --count must be at least 1", shared.ErrInvalidFlag)
	}
	if count == 1 {
		result, err := r.runJob(ctx, cmd, cmd.Bool("tui"))
		if err != nil {
			return err
		}
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	results := make([]*services.JobResult, count)
	batch := tasks.RunBatch(ctx, count, tasks.BatchOpts{NumWorkers: cmd.Int("workers")}, func(ctx context.Context, i int) error {
		result, err := r.runJob(ctx, cmd, false)
		results[i] = result
		return err
	})

	var errs []error
	for _, b := range batch {
		if b.Err != nil {
			errs = append(errs, fmt.Errorf("job %d: %w", b.Index+1, b.Err))
			r.writePlain("job %d: failed after %s: %v\n", b.Index+1, shared.FormatETA(b.Elapsed.Seconds()), b.Err)
			continue
		}
		r.writePlain("job %d: %s in %s\n", b.Index+1, results[b.Index].Status, shared.FormatETA(b.Elapsed.Seconds()))
	}
	return errors.Join(errs...)
}

// runJob creates one job and follows it to completion.
func (r *Runner) runJob(ctx context.Context, cmd *cli.Command, useTUI bool) (*services.JobResult, error) {
	duration := cmd.Float("duration")
	stdev := cmd.Float("stdev")

	r.logger.Info("creating example job", "duration", duration, "stdev", stdev)
	job, err := r.api.CreateJob(ctx, duration, stdev)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	r.logger.Info("job created", "uid", job.UID, "pbar", job.PbarName)

	req := r.traceRequest(cmd, job.PbarName, job.UID, job.Sub)
	req.PollResult = services.PollFunc(r.api, job.UID)

	if err := r.follow(ctx, req, useTUI); err != nil {
		return nil, err
	}

	result, err := r.api.GetJob(ctx, job.UID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job result: %w", err)
	}
	return result, nil
}
