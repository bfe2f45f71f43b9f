package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MurderWizard/pokemon-pricing/internal/domain"
	"github.com/MurderWizard/pokemon-pricing/internal/store"
)

type fakeLister struct {
	entries []store.StaleEntry
	err     error
}

func (l *fakeLister) StaleEntries(time.Duration) ([]store.StaleEntry, error) {
	return l.entries, l.err
}

type fakeVerifier struct {
	calls  []domain.CardKey
	failOn string
}

func (v *fakeVerifier) Resolve(_ context.Context, card domain.CardKey, cond domain.ConditionSpec) (*domain.PriceEstimate, error) {
	v.calls = append(v.calls, card)
	if card.Name == v.failOn {
		return nil, domain.ErrNoData
	}
	return &domain.PriceEstimate{Card: card, Condition: cond, Price: 100, Confidence: 0.8}, nil
}

func staleEntry(name string) store.StaleEntry {
	return store.StaleEntry{
		Card:      domain.NewCardKey(name, "Champions Path"),
		Condition: domain.Raw(domain.RawNearMint),
		LastSeen:  time.Now().Add(-30 * 24 * time.Hour),
	}
}

func TestVerifyJobResolvesStaleEntries(t *testing.T) {
	lister := &fakeLister{entries: []store.StaleEntry{
		staleEntry("Charizard VMAX"),
		staleEntry("Pikachu V"),
	}}
	verifier := &fakeVerifier{}

	job := NewVerifyJob(lister, verifier, 7*24*time.Hour, time.Minute, zerolog.Nop())
	assert.Equal(t, "verify_stale", job.Name())

	require.NoError(t, job.Run())
	assert.Len(t, verifier.calls, 2)
}

func TestVerifyJobContinuesPastFailures(t *testing.T) {
	lister := &fakeLister{entries: []store.StaleEntry{
		staleEntry("Charizard VMAX"),
		staleEntry("Pikachu V"),
	}}
	verifier := &fakeVerifier{failOn: "Charizard VMAX"}

	job := NewVerifyJob(lister, verifier, 7*24*time.Hour, time.Minute, zerolog.Nop())
	require.NoError(t, job.Run())
	assert.Len(t, verifier.calls, 2)
}

func TestVerifyJobListerError(t *testing.T) {
	job := NewVerifyJob(&fakeLister{err: errors.New("db locked")}, &fakeVerifier{}, time.Hour, time.Minute, zerolog.Nop())
	assert.Error(t, job.Run())
}

func TestVerifyJobNothingStale(t *testing.T) {
	verifier := &fakeVerifier{}
	job := NewVerifyJob(&fakeLister{}, verifier, time.Hour, time.Minute, zerolog.Nop())
	require.NoError(t, job.Run())
	assert.Empty(t, verifier.calls)
}
