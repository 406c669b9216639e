package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ezpbars/internal/formatter"
	"github.com/desertthunder/ezpbars/internal/models"
	"github.com/desertthunder/ezpbars/internal/shared"
	"github.com/urfave/cli/v3"
)

// History lists recorded subscriptions, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if status := cmd.String("status"); status != "" {
		st := models.SubscriptionStatus(status)
		if !st.Valid() {
			return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidFlag, status)
		}
		criteria["status"] = st
	}
	if pbar := cmd.String("pbar"); pbar != "" {
		criteria["pbar_name"] = pbar
	}

	repo, release, err := r.openHistory()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer release()

	subs, err := repo.List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}
	r.logger.Debug("loaded history", "count", len(subs))

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(format, subs, path); err != nil {
			return err
		}
		r.logger.Info("history exported", "path", path, "format", format, "count", len(subs))
		return nil
	}

	data, err := formatter.Export(format, subs)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
