package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/MurderWizard/pokemon-pricing/internal/domain"
	"github.com/MurderWizard/pokemon-pricing/internal/store"
)

// StaleLister reports card/condition pairs whose newest observation is
// older than minAge.
type StaleLister interface {
	StaleEntries(minAge time.Duration) ([]store.StaleEntry, error)
}

// Verifier resolves a price, pulling fresh marketplace data as a side
// effect.
type Verifier interface {
	Resolve(ctx context.Context, card domain.CardKey, cond domain.ConditionSpec) (*domain.PriceEstimate, error)
}

// VerifyJob re-resolves prices whose records have gone stale so the
// ledger keeps fresh marketplace observations for hot cards.
type VerifyJob struct {
	lister   StaleLister
	verifier Verifier
	minAge   time.Duration
	budget   time.Duration
	log      zerolog.Logger
}

// NewVerifyJob creates the re-verification job. budget bounds one full
// pass.
func NewVerifyJob(lister StaleLister, verifier Verifier, minAge, budget time.Duration, log zerolog.Logger) *VerifyJob {
	if budget <= 0 {
		budget = 10 * time.Minute
	}
	return &VerifyJob{
		lister:   lister,
		verifier: verifier,
		minAge:   minAge,
		budget:   budget,
		log:      log.With().Str("job", "verify_stale").Logger(),
	}
}

// Name returns the job name.
func (j *VerifyJob) Name() string {
	return "verify_stale"
}

// Run re-resolves every stale entry. Individual failures are logged and
// skipped.
func (j *VerifyJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.budget)
	defer cancel()

	entries, err := j.lister.StaleEntries(j.minAge)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		j.log.Debug().Msg("No stale prices to verify")
		return nil
	}

	j.log.Info().Int("count", len(entries)).Msg("Re-verifying stale prices")

	verified := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			j.log.Warn().
				Int("verified", verified).
				Int("remaining", len(entries)-verified).
				Msg("Verification budget exhausted")
			break
		}

		est, err := j.verifier.Resolve(ctx, e.Card, e.Condition)
		if err != nil {
			j.log.Warn().
				Str("card", e.Card.String()).
				Str("condition", e.Condition.String()).
				Err(err).
				Msg("Re-verification failed")
			continue
		}

		verified++
		j.log.Debug().
			Str("card", e.Card.String()).
			Float64("price", est.Price).
			Float64("confidence", est.Confidence).
			Msg("Price re-verified")
	}

	j.log.Info().Int("verified", verified).Msg("Stale price verification completed")
	return nil
}
