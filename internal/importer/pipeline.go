// Package importer bulk-imports raw trade records: validate, dedupe, persist in chunks,
// verify, then invalidate the user's cached statistics and refresh them.
package importer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LurkingFox/Tradeworth-sub000/internal/cache"
	"github.com/LurkingFox/Tradeworth-sub000/internal/logger"
	"github.com/LurkingFox/Tradeworth-sub000/internal/normalize"
	"github.com/LurkingFox/Tradeworth-sub000/internal/persistence"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/LurkingFox/Tradeworth-sub000/pkg/errors"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// ValidationBatchSize is how many raw records are normalized between cancellation checks.
	ValidationBatchSize = 1000
	MinChunkSize        = 100
	MaxChunkSize        = 5000
	// DefaultTargetChunkBytes is the memory budget of one persisted chunk.
	DefaultTargetChunkBytes = 1 << 20
	DefaultWorkers          = 4
)

// ProgressCallback receives the job counters after every persisted chunk.
type ProgressCallback func(progress types.ImportProgress)

// Refresher reloads a user's persisted trades into the live store once an import
// has written to the backend.
type Refresher interface {
	Refresh(ctx context.Context, userID string) error
}

// Options configure one import.
type Options struct {
	UserID string
	// Provenance stamped on every trade, imported when empty.
	Provenance types.Provenance
	// ChunkSize overrides the computed chunk size when positive.
	ChunkSize int
	// Deduplicate skips records seen earlier in the same import or already persisted.
	Deduplicate bool
	OnProgress  optional.Option[ProgressCallback]
}

type Config struct {
	TargetChunkBytes int
	Workers          int
}

func DefaultConfig() Config {
	return Config{
		TargetChunkBytes: DefaultTargetChunkBytes,
		Workers:          DefaultWorkers,
	}
}

type Pipeline struct {
	repo             persistence.Repository
	cache            *cache.Cache
	refresher        Refresher
	normalizer       *normalize.Normalizer
	logger           *logger.Logger
	targetChunkBytes int
	workers          int
	now              func() time.Time
	newID            func() string
}

// NewPipeline wires an import pipeline. The cache and the refresher may be nil.
func NewPipeline(
	repo persistence.Repository,
	c *cache.Cache,
	refresher Refresher,
	normalizer *normalize.Normalizer,
	cfg Config,
	log *logger.Logger,
) *Pipeline {
	if normalizer == nil {
		normalizer = normalize.New(nil)
	}

	if cfg.TargetChunkBytes <= 0 {
		cfg.TargetChunkBytes = DefaultTargetChunkBytes
	}

	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	return &Pipeline{
		repo:             repo,
		cache:            c,
		refresher:        refresher,
		normalizer:       normalizer,
		logger:           log.Named("importer"),
		targetChunkBytes: cfg.TargetChunkBytes,
		workers:          cfg.Workers,
		now:              time.Now,
		newID:            func() string { return uuid.New().String() },
	}
}

// job is the shared state of one execution. The pipeline goroutine writes it, pollers
// read clones of it.
type job struct {
	mu              sync.RWMutex
	state           *types.ImportJob
	cancelRequested atomic.Bool
}

func (j *job) update(fn func(state *types.ImportJob)) {
	j.mu.Lock()
	defer j.mu.Unlock()

	fn(j.state)
}

func (j *job) snapshot() *types.ImportJob {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return j.state.Clone()
}

func (j *job) requestCancel() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.state.Status.IsCancelable() {
		return errors.Newf(errors.ErrCodeImportNotCancelable, "import %s is %s and can no longer be cancelled", j.state.ID, j.state.Status)
	}

	j.cancelRequested.Store(true)

	return nil
}

// advance moves the job to the next state unless a cancellation is pending, in which
// case it reports false.
func (j *job) advance(to types.ImportStatus, now time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cancelRequested.Load() {
		return false
	}

	j.state.Status = to
	j.state.LastUpdatedAt = now

	return true
}

func (p *Pipeline) newJob(opts Options) *job {
	now := p.now()

	return &job{
		state: &types.ImportJob{
			ID:            p.newID(),
			UserID:        opts.UserID,
			Status:        types.ImportStatusInitializing,
			Totals:        types.ImportTotals{},
			SkipBreakdown: map[types.SkipReason]int{},
			ChunkSize:     0,
			Chunks:        []types.ChunkResult{},
			Verification:  nil,
			StartedAt:     now,
			LastUpdatedAt: now,
			CompletedAt:   time.Time{},
			Error:         "",
		},
	}
}

// Run imports raws synchronously and returns the final job. The error is non-nil when
// the job failed or was cancelled; partial chunk failures are not errors.
func (p *Pipeline) Run(ctx context.Context, raws []types.RawTrade, opts Options) (*types.ImportJob, error) {
	j := p.newJob(opts)
	err := p.execute(ctx, j, raws, opts)

	return j.snapshot(), err
}

// EstimateRecordBytes samples the input to estimate the in-flight footprint of one record.
func EstimateRecordBytes(raws []types.RawTrade) int {
	const (
		sampleSize    = 100
		fixedOverhead = 256
	)

	n := min(len(raws), sampleSize)
	if n == 0 {
		return fixedOverhead
	}

	total := 0

	for _, raw := range raws[:n] {
		total += len(raw.Date) + len(raw.Pair) + len(raw.Type) + len(raw.Entry) + len(raw.Exit) +
			len(raw.StopLoss) + len(raw.TakeProfit) + len(raw.LotSize) + len(raw.PnL) +
			len(raw.Notes) + len(raw.Setup)
	}

	return fixedOverhead + total/n
}

// OptimalChunkSize fits as many records of recordBytes into targetBytes as possible,
// clamped to [MinChunkSize, MaxChunkSize].
func OptimalChunkSize(targetBytes, recordBytes int) int {
	if recordBytes <= 0 {
		return MaxChunkSize
	}

	return min(max(targetBytes/recordBytes, MinChunkSize), MaxChunkSize)
}

//nolint:funcorder // helper method used by Run and Registry
func (p *Pipeline) execute(ctx context.Context, j *job, raws []types.RawTrade, opts Options) error {
	snap := j.snapshot()
	log := p.logger.With(zap.String("job_id", snap.ID), zap.String("user_id", opts.UserID))

	log.Info("Import started", zap.Int("records", len(raws)))

	if opts.UserID == "" {
		return p.fail(j, log, errors.New(errors.ErrCodeImportNoUser, "user id is required"))
	}

	if len(raws) == 0 {
		return p.fail(j, log, errors.New(errors.ErrCodeImportEmptyInput, "no records to import"))
	}

	if opts.Provenance == "" {
		opts.Provenance = types.ProvenanceImported
	}

	j.update(func(state *types.ImportJob) {
		state.Totals.Total = len(raws)
	})

	if err := p.repo.Ping(ctx); err != nil {
		return p.fail(j, log, errors.Wrap(errors.ErrCodeBackendUnavailable, "persistence backend is unreachable", err))
	}

	countBefore, countErr := p.repo.CountTrades(ctx, opts.UserID)

	if !j.advance(types.ImportStatusValidating, p.now()) {
		return p.cancelled(ctx, j, log, opts.UserID)
	}

	trades, ok := p.validate(ctx, j, raws, opts)
	if !ok || !j.advance(types.ImportStatusProcessing, p.now()) {
		return p.cancelled(ctx, j, log, opts.UserID)
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = OptimalChunkSize(p.targetChunkBytes, EstimateRecordBytes(raws))
	}

	j.update(func(state *types.ImportJob) {
		state.ChunkSize = chunkSize
	})

	chunks, err := p.transform(ctx, trades, chunkSize, opts.UserID)
	if err != nil {
		return p.cancelled(ctx, j, log, opts.UserID)
	}

	log.Debug("Records validated and transformed",
		zap.Int("valid", len(trades)),
		zap.Int("chunks", len(chunks)),
		zap.Int("chunk_size", chunkSize),
	)

	for i, records := range chunks {
		if j.cancelRequested.Load() || ctx.Err() != nil {
			return p.cancelled(ctx, j, log, opts.UserID)
		}

		result := p.persistChunk(ctx, opts.UserID, i, records, opts.Deduplicate)
		if result.Error != "" {
			log.Warn("Chunk failed, continuing with the next chunk",
				zap.Int("chunk", i),
				zap.Int("records", result.Records),
				zap.Int("error_code", result.ErrorCode),
				zap.String("error", result.Error),
			)
		} else {
			log.Debug("Chunk persisted",
				zap.Int("chunk", i),
				zap.Int("succeeded", result.Succeeded),
				zap.Int("duplicate", result.Duplicate),
			)
		}

		var progress types.ImportProgress

		j.update(func(state *types.ImportJob) {
			state.Chunks = append(state.Chunks, result)
			state.Totals.Processed += result.Records
			state.Totals.Succeeded += result.Succeeded
			state.Totals.Failed += result.Failed
			state.Totals.Duplicate += result.Duplicate
			state.SkipBreakdown[types.SkipDuplicate] += result.Duplicate
			state.LastUpdatedAt = p.now()

			progress = types.ImportProgress{
				JobID:     state.ID,
				Processed: state.Totals.Processed,
				Total:     state.Totals.Total,
				Succeeded: state.Totals.Succeeded,
				Failed:    state.Totals.Failed,
				Duplicate: state.Totals.Duplicate,
				Percent:   state.Progress(),
			}
		})

		if opts.OnProgress.IsSome() {
			opts.OnProgress.Unwrap()(progress)
		}
	}

	if !j.advance(types.ImportStatusFinalizing, p.now()) {
		return p.cancelled(ctx, j, log, opts.UserID)
	}

	p.verify(ctx, j, opts.UserID, countBefore, countErr)
	p.finalize(ctx, j, log, opts.UserID)

	j.update(func(state *types.ImportJob) {
		now := p.now()
		state.Status = types.ImportStatusCompleted
		state.LastUpdatedAt = now
		state.CompletedAt = now
	})

	final := j.snapshot()
	log.Info("Import completed",
		zap.Int("succeeded", final.Totals.Succeeded),
		zap.Int("failed", final.Totals.Failed),
		zap.Int("duplicate", final.Totals.Duplicate),
	)

	return nil
}

// validate normalizes raws batch by batch and drops invalid records and in-import
// duplicates. It reports false when the job was cancelled between batches.
//
//nolint:funcorder // helper method used by execute
func (p *Pipeline) validate(ctx context.Context, j *job, raws []types.RawTrade, opts Options) ([]types.Trade, bool) {
	trades := make([]types.Trade, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))

	for start := 0; start < len(raws); start += ValidationBatchSize {
		if j.cancelRequested.Load() || ctx.Err() != nil {
			return nil, false
		}

		end := min(start+ValidationBatchSize, len(raws))
		skipped := map[types.SkipReason]int{}

		for _, raw := range raws[start:end] {
			trade, err := p.normalizer.Normalize(raw, opts.Provenance)
			if err != nil {
				skipped[normalize.SkipReasonFor(err)]++

				continue
			}

			if opts.Deduplicate {
				if _, dup := seen[trade.DedupHash]; dup {
					skipped[types.SkipDuplicate]++

					continue
				}

				seen[trade.DedupHash] = struct{}{}
			}

			trades = append(trades, trade)
		}

		j.update(func(state *types.ImportJob) {
			for reason, n := range skipped {
				state.SkipBreakdown[reason] += n
				state.Totals.Processed += n

				if reason == types.SkipDuplicate {
					state.Totals.Duplicate += n
				} else {
					state.Totals.Failed += n
				}
			}

			state.LastUpdatedAt = p.now()
		})
	}

	return trades, true
}

// transform converts the trades into persistence records, one chunk per worker task.
//
//nolint:funcorder // helper method used by execute
func (p *Pipeline) transform(ctx context.Context, trades []types.Trade, chunkSize int, userID string) ([][]types.TradeRecord, error) {
	count := (len(trades) + chunkSize - 1) / chunkSize
	chunks := make([][]types.TradeRecord, count)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := range count {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			start := i * chunkSize
			end := min(start+chunkSize, len(trades))
			records := make([]types.TradeRecord, 0, end-start)

			for _, trade := range trades[start:end] {
				records = append(records, normalize.ToRecord(trade, userID))
			}

			chunks[i] = records

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return chunks, nil
}

//nolint:funcorder // helper method used by execute
func (p *Pipeline) persistChunk(ctx context.Context, userID string, index int, records []types.TradeRecord, dedup bool) types.ChunkResult {
	result := types.ChunkResult{
		Index:     index,
		Records:   len(records),
		Succeeded: 0,
		Failed:    0,
		Duplicate: 0,
		ErrorCode: 0,
		Error:     "",
	}

	fresh := records

	if dedup {
		hashes := make([]string, len(records))
		for i, rec := range records {
			hashes[i] = rec.DedupHash
		}

		existing, err := p.repo.ExistingHashes(ctx, userID, hashes)
		if err != nil {
			return chunkFailed(result, len(records), err)
		}

		if len(existing) > 0 {
			fresh = make([]types.TradeRecord, 0, len(records))

			for _, rec := range records {
				if _, ok := existing[rec.DedupHash]; !ok {
					fresh = append(fresh, rec)
				}
			}
		}

		result.Duplicate = len(records) - len(fresh)
	}

	if len(fresh) == 0 {
		return result
	}

	written, err := p.repo.InsertTrades(ctx, fresh)
	if err != nil {
		return chunkFailed(result, len(fresh), err)
	}

	written = min(written, len(fresh))
	result.Succeeded = written
	result.Failed = len(fresh) - written

	return result
}

func chunkFailed(result types.ChunkResult, failed int, err error) types.ChunkResult {
	code := errors.GetCode(err)
	if code == errors.ErrCodeUnknown {
		code = errors.ErrCodeImportChunkFailed
	}

	result.Failed = failed
	result.ErrorCode = int(code)
	result.Error = err.Error()

	return result
}

//nolint:funcorder // helper method used by execute
func (p *Pipeline) verify(ctx context.Context, j *job, userID string, countBefore int, countErr error) {
	snap := j.snapshot()
	verification := &types.Verification{
		CountBefore: countBefore,
		CountAfter:  0,
		Expected:    snap.Totals.Succeeded,
		Matched:     false,
		Error:       "",
	}

	countAfter, err := p.repo.CountTrades(ctx, userID)

	switch {
	case countErr != nil:
		verification.Error = "failed to count trades before import: " + countErr.Error()
	case err != nil:
		verification.Error = "failed to count trades after import: " + err.Error()
	default:
		verification.CountAfter = countAfter
		verification.Matched = countAfter-countBefore == verification.Expected
	}

	if !verification.Matched {
		p.logger.Warn("Import verification mismatch",
			zap.String("job_id", snap.ID),
			zap.Int("count_before", verification.CountBefore),
			zap.Int("count_after", verification.CountAfter),
			zap.Int("expected", verification.Expected),
			zap.String("error", verification.Error),
		)
	}

	j.update(func(state *types.ImportJob) {
		state.Verification = verification
	})
}

// finalize drops the user's cached views and reloads their trades. Both run detached
// from ctx cancellation since chunks may already be persisted.
//
//nolint:funcorder // helper method used by execute
func (p *Pipeline) finalize(ctx context.Context, j *job, log *zap.Logger, userID string) {
	if p.cache != nil {
		removed := p.cache.Invalidate(userID)
		log.Debug("Invalidated cached views", zap.Int("removed", removed))
	}

	if p.refresher == nil {
		return
	}

	if err := p.refresher.Refresh(context.WithoutCancel(ctx), userID); err != nil {
		log.Warn("Failed to refresh statistics after import", zap.Error(err))

		j.update(func(state *types.ImportJob) {
			state.Error = "statistics refresh failed: " + err.Error()
		})
	}
}

//nolint:funcorder // helper method used by execute
func (p *Pipeline) fail(j *job, log *zap.Logger, err error) error {
	log.Error("Import failed", zap.Error(err))

	j.update(func(state *types.ImportJob) {
		now := p.now()
		state.Status = types.ImportStatusFailed
		state.Error = err.Error()
		state.LastUpdatedAt = now
		state.CompletedAt = now
	})

	return err
}

//nolint:funcorder // helper method used by execute
func (p *Pipeline) cancelled(ctx context.Context, j *job, log *zap.Logger, userID string) error {
	snap := j.snapshot()
	log.Info("Import cancelled",
		zap.Int("processed", snap.Totals.Processed),
		zap.Int("succeeded", snap.Totals.Succeeded),
	)

	if snap.Totals.Succeeded > 0 {
		p.finalize(ctx, j, log, userID)
	}

	j.update(func(state *types.ImportJob) {
		now := p.now()
		state.Status = types.ImportStatusCancelled
		state.LastUpdatedAt = now
		state.CompletedAt = now
	})

	return errors.Newf(errors.ErrCodeCanceled, "import %s was cancelled", snap.ID)
}
