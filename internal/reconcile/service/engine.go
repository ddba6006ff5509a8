package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/ondasul/airtrack/internal/catalog/domain"
	"github.com/ondasul/airtrack/internal/clock"
	contractdomain "github.com/ondasul/airtrack/internal/contract/domain"
	"github.com/ondasul/airtrack/internal/locker"
	"github.com/ondasul/airtrack/internal/observability/metrics"
	playbackdomain "github.com/ondasul/airtrack/internal/playback/domain"
	quotadomain "github.com/ondasul/airtrack/internal/quota/domain"
	reconciledomain "github.com/ondasul/airtrack/internal/reconcile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	lockTTL         = 30 * time.Second
	lockMaxAttempts = 5
	lockRetryDelay  = 50 * time.Millisecond
)

type ServiceParam struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	Locker      locker.Locker
	PlaybackSvc playbackdomain.Service
	CatalogSvc  catalogdomain.Service
	ContractSvc contractdomain.Service
	QuotaSvc    quotadomain.Service
	Metrics     *metrics.ReconcileMetrics
}

type Service struct {
	log     *zap.Logger
	clock   clock.Clock
	locker  locker.Locker
	metrics *metrics.ReconcileMetrics

	playbackSvc playbackdomain.Service
	catalogSvc  catalogdomain.Service
	contractSvc contractdomain.Service
	quotaSvc    quotadomain.Service
}

func NewService(p ServiceParam) reconciledomain.Service {
	return &Service{
		log:     p.Log.Named("reconcile.engine"),
		clock:   p.Clock,
		locker:  p.Locker,
		metrics: p.Metrics,

		playbackSvc: p.PlaybackSvc,
		catalogSvc:  p.CatalogSvc,
		contractSvc: p.ContractSvc,
		quotaSvc:    p.QuotaSvc,
	}
}

func (s *Service) Reconcile(ctx context.Context, req reconciledomain.ReconcileRequest) (*reconciledomain.Result, error) {
	if req.From.IsZero() || req.To.IsZero() || req.To.Before(req.From) {
		return nil, reconciledomain.ErrInvalidWindow
	}

	start := s.clock.Now()
	defer func() {
		s.metrics.ObserveRun(s.clock.Now().Sub(start).Seconds())
	}()

	events, err := s.playbackSvc.ListPending(ctx, req.From, req.To, req.Force)
	if err != nil {
		return nil, err
	}

	result := &reconciledomain.Result{
		Unaccounted: map[playbackdomain.ReasonCode]int{},
	}
	for _, event := range events {
		// Aborting between events is safe: each settle is one row update.
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Scanned++
		s.processEvent(ctx, event, req.Force, result)
	}

	s.log.Info("reconcile pass finished",
		zap.Time("from", req.From),
		zap.Time("to", req.To),
		zap.Bool("force", req.Force),
		zap.Int("scanned", result.Scanned),
		zap.Int("counted", result.Counted),
		zap.Int("skipped", result.Skipped),
		zap.Int("lock_conflicts", result.LockConflicts),
		zap.Int("errors", result.Errors),
	)
	return result, nil
}

// processEvent drives one event to a terminal state. Classification
// failures settle the event with a reason; infrastructure failures leave it
// untouched for the next pass.
func (s *Service) processEvent(ctx context.Context, event *playbackdomain.PlaybackEvent, force bool, result *reconciledomain.Result) {
	if event.Processed && !force {
		result.Skipped++
		s.metrics.RecordEvent(metrics.ReconcileOutcomeSkipped)
		return
	}

	if force && event.Processed && event.Counted {
		if err := s.rollbackPrior(ctx, event); err != nil {
			s.recordFailure(result, event, err)
			return
		}
	}

	file, err := s.catalogSvc.ResolveFile(ctx, 0, event.RawFileName)
	if err != nil {
		switch {
		case errors.Is(err, catalogdomain.ErrFileNotRegistered), errors.Is(err, catalogdomain.ErrInvalidFileName):
			s.settleUnaccounted(ctx, event, playbackdomain.ReasonUnregisteredFile, nil, result, metrics.ReconcileOutcomeUnregistered)
		case errors.Is(err, catalogdomain.ErrFileAmbiguous):
			// Two clients own the name, so no single contract can take the
			// airing.
			s.settleUnaccounted(ctx, event, playbackdomain.ReasonAmbiguousContract, nil, result, metrics.ReconcileOutcomeAmbiguous)
		default:
			s.recordFailure(result, event, err)
		}
		return
	}

	contract, err := s.contractSvc.ResolveActive(ctx, file.ClientID, event.AiredAt, event.Frequency)
	if err != nil {
		switch {
		case errors.Is(err, contractdomain.ErrNoActiveContract):
			s.settleUnaccounted(ctx, event, playbackdomain.ReasonNoActiveContract, &file.ID, result, metrics.ReconcileOutcomeNoContract)
		case errors.Is(err, contractdomain.ErrAmbiguousContract):
			s.settleUnaccounted(ctx, event, playbackdomain.ReasonAmbiguousContract, &file.ID, result, metrics.ReconcileOutcomeAmbiguous)
		default:
			s.recordFailure(result, event, err)
		}
		return
	}

	token, err := s.acquireContractLock(ctx, contract.ID)
	if err != nil {
		result.LockConflicts++
		s.metrics.RecordEvent(metrics.ReconcileOutcomeLockContention)
		s.log.Warn("contract lock contention, leaving event for next pass",
			zap.Int64("event_id", int64(event.ID)),
			zap.Int64("contract_id", int64(contract.ID)),
		)
		return
	}
	defer func() {
		if err := s.locker.Release(ctx, contractLockKey(contract.ID), token); err != nil {
			s.log.Warn("lock release failed", zap.Error(err))
		}
	}()

	alloc, err := s.quotaSvc.Allocate(ctx, contract.ID, file.ID, event.ProgramType, 1)
	if err != nil {
		if errors.Is(err, quotadomain.ErrNoQuotaLine) {
			s.settleUnaccounted(ctx, event, playbackdomain.ReasonNoQuotaLine, &file.ID, result, metrics.ReconcileOutcomeNoQuotaLine)
			return
		}
		s.recordFailure(result, event, err)
		return
	}

	err = s.playbackSvc.MarkProcessed(ctx, event.ID, playbackdomain.Outcome{
		Counted:              true,
		AttributedContractID: &contract.ID,
		AudioFileID:          &file.ID,
	})
	if err != nil {
		// The counter moved but the event did not settle; undo the counter
		// so the retry on the next pass cannot double count.
		if rbErr := s.quotaSvc.Rollback(ctx, *alloc); rbErr != nil {
			s.log.Error("rollback after settle failure also failed",
				zap.Int64("event_id", int64(event.ID)),
				zap.Error(rbErr),
			)
		}
		s.recordFailure(result, event, err)
		return
	}

	result.Counted++
	s.metrics.RecordEvent(metrics.ReconcileOutcomeCounted)
	if alloc.GoalSaturated {
		s.log.Info("fixed goal past target, still counting",
			zap.Int64("contract_id", int64(contract.ID)),
			zap.Int64("audio_file_id", int64(file.ID)),
		)
	}
}

// rollbackPrior reverses the allocation a counted event received on an
// earlier pass, under the prior contract's lock.
func (s *Service) rollbackPrior(ctx context.Context, event *playbackdomain.PlaybackEvent) error {
	if event.AttributedContractID == nil {
		return nil
	}
	contractID := *event.AttributedContractID

	token, err := s.acquireContractLock(ctx, contractID)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.locker.Release(ctx, contractLockKey(contractID), token); err != nil {
			s.log.Warn("lock release failed", zap.Error(err))
		}
	}()

	var fileID snowflake.ID
	if event.AudioFileID != nil {
		fileID = *event.AudioFileID
	}
	if err := s.quotaSvc.Reverse(ctx, contractID, fileID, event.ProgramType, 1); err != nil {
		return err
	}

	// Persist the cleared state before re-attribution: if the rest of the
	// pass fails, the next force pass must not reverse this counter again.
	if err := s.playbackSvc.MarkProcessed(ctx, event.ID, playbackdomain.Outcome{}); err != nil {
		return err
	}
	event.Counted = false
	event.AttributedContractID = nil
	event.AudioFileID = nil
	event.ReasonCode = nil
	return nil
}

func (s *Service) acquireContractLock(ctx context.Context, contractID snowflake.ID) (string, error) {
	key := contractLockKey(contractID)
	for attempt := 1; attempt <= lockMaxAttempts; attempt++ {
		token, ok, err := s.locker.TryLock(ctx, key, lockTTL)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		if attempt == lockMaxAttempts {
			break
		}
		s.metrics.RecordLockRetry()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(lockRetryDelay * time.Duration(attempt)):
		}
	}
	return "", reconciledomain.ErrLockContention
}

func (s *Service) settleUnaccounted(ctx context.Context, event *playbackdomain.PlaybackEvent, reason playbackdomain.ReasonCode, fileID *snowflake.ID, result *reconciledomain.Result, outcome string) {
	err := s.playbackSvc.MarkProcessed(ctx, event.ID, playbackdomain.Outcome{
		Counted:     false,
		AudioFileID: fileID,
		ReasonCode:  &reason,
	})
	if err != nil {
		s.recordFailure(result, event, err)
		return
	}
	result.Unaccounted[reason]++
	s.metrics.RecordEvent(outcome)
}

func (s *Service) recordFailure(result *reconciledomain.Result, event *playbackdomain.PlaybackEvent, err error) {
	result.Errors++
	s.metrics.RecordEvent(metrics.ReconcileOutcomeTransientError)
	s.log.Error("event processing failed, will retry next pass",
		zap.Int64("event_id", int64(event.ID)),
		zap.String("raw_file_name", event.RawFileName),
		zap.Error(err),
	)
}

func contractLockKey(contractID snowflake.ID) string {
	return fmt.Sprintf("reconcile:contract:%d", contractID)
}
