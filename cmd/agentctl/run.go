package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/smallstep/agentctl/pkg/authority"
	"github.com/smallstep/agentctl/pkg/journal"
	"github.com/smallstep/agentctl/pkg/log"
	"github.com/smallstep/agentctl/pkg/manifest"
	"github.com/smallstep/agentctl/pkg/reconciler"
	"github.com/smallstep/agentctl/pkg/report"
	"github.com/smallstep/agentctl/pkg/types"
)

// runner reconciles manifest entries one after another and writes one
// result document per entry. The first failure stops the run.
type runner struct {
	api       authority.API
	store     journal.Store // nil disables the run history
	out       *report.Writer
	diffOut   io.Writer // nil disables diff output
	checkMode bool

	runID  string
	logger zerolog.Logger

	info         *authority.AgentInfo
	infoResolved bool
}

func newRunner(api authority.API, store journal.Store, out *report.Writer) *runner {
	runID := uuid.New().String()
	return &runner{
		api:    api,
		store:  store,
		out:    out,
		runID:  runID,
		logger: log.WithRunID(runID),
	}
}

func (r *runner) run(ctx context.Context, entries []manifest.Entry) error {
	rec := reconciler.NewReconciler(r.api, reconciler.WithCheckMode(r.checkMode))
	r.logger.Debug().Int("resources", len(entries)).Bool("check_mode", r.checkMode).Msg("Starting run")

	changed := 0
	for _, entry := range entries {
		started := time.Now()
		outcome, err := rec.Reconcile(ctx, entry.Resource, entry.State)
		r.record(entry, outcome, started, err)

		if err != nil {
			if werr := r.out.Write(report.BuildFailure(err)); werr != nil {
				r.logger.Error().Err(werr).Msg("Failed to write failure report")
			}
			return err
		}
		if outcome.Changed {
			changed++
		}

		if r.diffOut != nil && outcome.Diff != "" {
			fmt.Fprintf(r.diffOut, "%s %s (%s: %s):\n%s\n", entry.Resource.Kind(), entry.Resource.Identity(),
				outcome.Action, strings.Join(outcome.Attributes, ", "), outcome.Diff)
		}

		var info *authority.AgentInfo
		if outcome.Final.Present {
			info = r.agentInfo(ctx)
		}
		if err := r.out.Write(report.Build(entry.Resource, outcome, info)); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}

	r.logger.Info().Int("resources", len(entries)).Int("changed", changed).Msg("Run complete")
	return nil
}

// agentInfo resolves team and fingerprint once per run. A lookup failure
// leaves them out of the result rather than failing the run.
func (r *runner) agentInfo(ctx context.Context) *authority.AgentInfo {
	if r.infoResolved {
		return r.info
	}
	r.infoResolved = true

	info, err := authority.LookupAgentInfo(ctx, r.api)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Could not resolve agents authority")
		return nil
	}
	r.info = &info
	return r.info
}

func (r *runner) record(entry manifest.Entry, outcome types.Outcome, started time.Time, err error) {
	if r.store == nil {
		return
	}
	e := &journal.Entry{
		RunID:      r.runID,
		Kind:       entry.Resource.Kind(),
		Identity:   entry.Resource.Identity().String(),
		State:      entry.State,
		Action:     outcome.Action,
		Changed:    outcome.Changed,
		Attributes: outcome.Attributes,
		CheckMode:  r.checkMode,
		StartedAt:  started,
		Duration:   time.Since(started),
	}
	if err != nil {
		e.Error = err.Error()
	}
	if err := r.store.Append(e); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to record run history")
	}
}
