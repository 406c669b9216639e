package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ezpbars/internal/models"
	"github.com/desertthunder/ezpbars/internal/progress"
	"github.com/desertthunder/ezpbars/internal/services"
	"github.com/desertthunder/ezpbars/internal/shared"
	"github.com/desertthunder/ezpbars/internal/trace"
	"github.com/desertthunder/ezpbars/internal/ui"
	"github.com/urfave/cli/v3"
)

const viewBuffer = 64

// Wait follows an existing trace until it completes.
func (r *Runner) Wait(ctx context.Context, cmd *cli.Command) error {
	req := r.traceRequest(cmd, cmd.String("pbar"), cmd.String("uid"), cmd.String("sub"))

	if pollURL := cmd.String("poll-url"); pollURL != "" {
		req.PollResult = services.HTTPPoller(pollURL, r.httpClient, r.config.API.PollRate)
	} else {
		r.logger.Debug("no poll URL given; the stream is the only completion signal")
		req.PollResult = func(context.Context) (bool, error) { return false, nil }
	}

	return r.follow(ctx, req, cmd.Bool("tui"))
}

// traceRequest fills the connection settings of a request from flags, falling back to the config.
func (r *Runner) traceRequest(cmd *cli.Command, pbarName, uid, sub string) trace.Request {
	domain := cmd.String("domain")
	if domain == "" {
		domain = r.config.Server.Domain
	}

	ssl := r.config.Server.SSLEnabled()
	if cmd.Bool("insecure") {
		ssl = false
	}

	return trace.Request{
		PbarName: pbarName,
		UID:      uid,
		Sub:      sub,
		Domain:   domain,
		SSL:      trace.Bool(ssl),
	}
}

func (r *Runner) subscribeOptions() []trace.Option {
	opts := []trace.Option{trace.WithLogger(r.logger)}
	if d := r.config.Server.HandshakeTimeout.Duration; d > 0 {
		opts = append(opts, trace.WithHandshakeTimeout(d))
	}
	return append(opts, r.traceOpts...)
}

// follow renders the trace described by req until it settles and records the outcome in the history database.
func (r *Runner) follow(ctx context.Context, req trace.Request, useTUI bool) error {
	repo, release, err := r.openHistory()
	if err != nil {
		r.logger.Warn("history disabled", "error", err)
	} else {
		defer release()
	}

	record := models.NewSubscription(0, req.PbarName, req.UID, req.Sub, req.Domain)
	if repo != nil {
		if err := repo.Create(record); err != nil {
			r.logger.Warn("failed to record subscription", "error", err)
			repo = nil
		}
	}

	var res outcome
	if useTUI {
		if res, err = r.followTUI(ctx, req); err != nil {
			return err
		}
	} else {
		if res, err = r.followLog(ctx, req); err != nil {
			return err
		}
	}

	if repo != nil {
		msg := ""
		if res.err != nil {
			msg = res.err.Error()
		}
		record.SetCounters(res.stats.Attempts, res.stats.Failures, res.stats.Polls)
		record.Finish(outcomeStatus(res.err), msg, time.Now().UTC())
		if err := repo.Update(record); err != nil {
			r.logger.Warn("failed to update subscription record", "error", err)
		}
	}

	if res.err != nil {
		return fmt.Errorf("trace %s: %w", req.UID, res.err)
	}
	r.logger.Info("trace complete", "pbar", req.PbarName, "uid", req.UID,
		"attempts", res.stats.Attempts, "failures", res.stats.Failures)
	return nil
}

// outcome is how a followed trace settled, with the counters of its subscription.
type outcome struct {
	err   error
	stats trace.Stats
}

func (r *Runner) followLog(ctx context.Context, req trace.Request) (outcome, error) {
	req.View = progress.NewLogView(r.logger)
	sub, err := trace.Subscribe(ctx, req, r.subscribeOptions()...)
	if err != nil {
		return outcome{}, err
	}

	settled := sub.Wait(ctx)
	sub.Close()
	return outcome{err: settled, stats: sub.Stats()}, nil
}

// followTUI runs the subscription inside a bubbletea program. Logs go to the configured file while it owns the
// terminal.
func (r *Runner) followTUI(ctx context.Context, req trace.Request) (outcome, error) {
	if r.config.Log.File != "" {
		fileLogger, err := shared.NewFileLogger(r.config.Log.File)
		if err != nil {
			return outcome{}, fmt.Errorf("failed to create file logger: %w", err)
		}
		previous := r.logger
		shared.SetLogLevel(fileLogger, previous.GetLevel())
		r.SetLogger(fileLogger)
		defer r.SetLogger(previous)
	}

	view := ui.NewChannelView(viewBuffer)
	req.View = view
	sub, err := trace.Subscribe(ctx, req, r.subscribeOptions()...)
	if err != nil {
		return outcome{}, err
	}
	defer sub.Close()

	model := ui.NewModel(fmt.Sprintf("%s · %s", req.PbarName, req.UID), sub, view)
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(r.output))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		view.Stop()
		return outcome{}, fmt.Errorf("error running TUI: %w", err)
	}
	view.Stop()
	sub.Close()

	settled := model.Err()
	if !model.Completed() && settled == nil {
		settled = sub.Err()
	}
	return outcome{err: settled, stats: sub.Stats()}, nil
}

func outcomeStatus(err error) models.SubscriptionStatus {
	switch {
	case err == nil:
		return models.StatusComplete
	case errors.Is(err, trace.ErrClosed), errors.Is(err, context.Canceled):
		return models.StatusClosed
	default:
		return models.StatusFailed
	}
}
