package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"lab-trend-thumbnails/internal/alerting"
	"lab-trend-thumbnails/internal/config"
	"lab-trend-thumbnails/internal/rowsource"
	"lab-trend-thumbnails/internal/storage"
	"lab-trend-thumbnails/internal/thumbnail"
)

// Deriver orchestrates derivation, persistence, and defect alerting.
type Deriver struct {
	thumbs   storage.ThumbnailStore
	results  storage.ResultSetStore
	notifier alerting.Notifier
	logger   zerolog.Logger

	derive   func(thumbnail.Input) (*thumbnail.Result, error)
	channels []string
	alertsOn bool
	cooldown time.Duration
	capture  bool
	maxAge   time.Duration
	locker   storage.AdvisoryLocker
	lockKey  int64

	mu           sync.Mutex
	lastNotified time.Time
}

// New constructs the derivation service.
func New(cfg *config.Config, thumbs storage.ThumbnailStore, results storage.ResultSetStore, notifier alerting.Notifier, logger zerolog.Logger) *Deriver {
	var locker storage.AdvisoryLocker
	if l, ok := thumbs.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Deriver{
		thumbs:   thumbs,
		results:  results,
		notifier: notifier,
		logger:   logger.With().Str("component", "deriver").Logger(),
		derive:   thumbnail.Derive,
		channels: cfg.Alerting.Channels,
		alertsOn: cfg.Alerting.Enabled,
		cooldown: cfg.Alerting.Cooldown,
		capture:  cfg.Server.CaptureResultSets,
		maxAge:   cfg.Retention.MaxAge,
		locker:   locker,
		lockKey:  cfg.Retention.AdvisoryLockKey,
	}
}

// Derive runs the pipeline for one inbound payload and persists the outcome.
func (d *Deriver) Derive(ctx context.Context, payload rowsource.Payload) (*thumbnail.Result, error) {
	return d.run(ctx, payload, nil, d.capture)
}

// DeriveStored 对已入库的结果集重新派生，并把新缩略图挂回原始捕获。
func (d *Deriver) DeriveStored(ctx context.Context, rec storage.ResultSetRecord) (*thumbnail.Result, error) {
	payload, err := decodePayload(rec)
	if err != nil {
		return nil, err
	}
	return d.run(ctx, payload, &rec.ID, false)
}

func (d *Deriver) run(ctx context.Context, payload rowsource.Payload, resultSetID *int64, capture bool) (*thumbnail.Result, error) {
	res, err := d.derive(thumbnail.Input{
		PlotTitle: payload.PlotTitle,
		Rows:      payload.Rows,
		Hint:      payload.Hint,
	})
	if err != nil {
		d.logger.Error().Err(err).
			Str("plot_title", payload.PlotTitle).
			Int("raw_rows", len(payload.Rows)).
			Msg("derived thumbnail failed validation")
		if capture && d.results != nil {
			if _, capErr := d.captureResultSet(ctx, payload); capErr != nil {
				d.logger.Error().Err(capErr).Str("plot_title", payload.PlotTitle).Msg("failed to capture defective result set")
			}
		}
		d.notifyDefect(ctx, payload, err)
		return nil, err
	}
	if res == nil {
		d.logger.Debug().Str("plot_title", payload.PlotTitle).Msg("thumbnail opted out")
		return nil, nil
	}

	d.persist(ctx, payload, res, resultSetID, capture)

	d.logger.Info().
		Str("thumbnail_id", res.ID).
		Str("plot_title", payload.PlotTitle).
		Str("status", string(res.Thumbnail.Status)).
		Int("points", res.Thumbnail.PointCount).
		Msg("thumbnail derived")

	return res, nil
}

// persist 持久化失败只记录日志，不影响调用方拿到结果。
func (d *Deriver) persist(ctx context.Context, payload rowsource.Payload, res *thumbnail.Result, resultSetID *int64, capture bool) {
	if d.thumbs == nil {
		return
	}

	if resultSetID == nil && capture && d.results != nil {
		if rec, err := d.captureResultSet(ctx, payload); err != nil {
			d.logger.Error().Err(err).Str("plot_title", payload.PlotTitle).Msg("failed to capture result set")
		} else {
			resultSetID = &rec.ID
		}
	}

	rec, err := thumbnailRecord(res, resultSetID)
	if err != nil {
		d.logger.Error().Err(err).Str("thumbnail_id", res.ID).Msg("failed to encode thumbnail record")
		return
	}
	if err := d.thumbs.InsertThumbnail(ctx, rec); err != nil {
		d.logger.Error().Err(err).Str("thumbnail_id", res.ID).Msg("failed to persist thumbnail")
	}
}

func (d *Deriver) captureResultSet(ctx context.Context, payload rowsource.Payload) (storage.ResultSetRecord, error) {
	rows, err := json.Marshal(payload.Rows)
	if err != nil {
		return storage.ResultSetRecord{}, fmt.Errorf("encode rows: %w", err)
	}

	rec := storage.ResultSetRecord{PlotTitle: payload.PlotTitle, Rows: rows}
	if payload.Hint != nil {
		hint, err := json.Marshal(payload.Hint)
		if err != nil {
			return storage.ResultSetRecord{}, fmt.Errorf("encode hint: %w", err)
		}
		rec.Hint = hint
	}
	return d.results.InsertResultSet(ctx, rec)
}

func (d *Deriver) notifyDefect(ctx context.Context, payload rowsource.Payload, cause error) {
	if !d.alertsOn || d.notifier == nil {
		return
	}

	now := time.Now()
	d.mu.Lock()
	if d.cooldown > 0 && !d.lastNotified.IsZero() && now.Sub(d.lastNotified) < d.cooldown {
		d.mu.Unlock()
		d.logger.Debug().Str("plot_title", payload.PlotTitle).Msg("defect notification suppressed by cooldown")
		return
	}
	d.lastNotified = now
	d.mu.Unlock()

	note := alerting.Notification{
		OccurredAt: now,
		PlotTitle:  payload.PlotTitle,
		Reason:     cause.Error(),
		RawRows:    len(payload.Rows),
		Channels:   d.channels,
	}
	if err := d.notifier.Notify(ctx, note); err != nil {
		d.logger.Error().Err(err).Str("plot_title", payload.PlotTitle).Msg("failed to dispatch defect alert")
	}
}

// RetentionSweep 删除超过保留窗口的缩略图。
func (d *Deriver) RetentionSweep(ctx context.Context, tick time.Time) error {
	if d.thumbs == nil {
		return fmt.Errorf("storage not configured")
	}
	if d.maxAge <= 0 {
		return nil
	}

	unlock, proceed, err := d.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		d.logger.Debug().Time("tick", tick).Msg("skip sweep because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	cutoff := tick.Add(-d.maxAge)
	deleted, err := d.thumbs.DeleteThumbnailsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete thumbnails before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if deleted > 0 {
		d.logger.Info().Time("cutoff", cutoff).Int64("deleted", deleted).Msg("retention sweep removed thumbnails")
	}
	return nil
}

func (d *Deriver) acquireLock(ctx context.Context) (func(), bool, error) {
	if d.lockKey == 0 || d.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := d.locker.TryAdvisoryLock(ctx, d.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

func thumbnailRecord(res *thumbnail.Result, resultSetID *int64) (storage.ThumbnailRecord, error) {
	payload, err := json.Marshal(res.Thumbnail)
	if err != nil {
		return storage.ThumbnailRecord{}, fmt.Errorf("encode thumbnail payload: %w", err)
	}

	rec := storage.ThumbnailRecord{
		ID:          res.ID,
		ResultSetID: resultSetID,
		PlotTitle:   res.Thumbnail.PlotTitle,
		Status:      string(res.Thumbnail.Status),
		PointCount:  res.Thumbnail.PointCount,
		SeriesCount: res.Thumbnail.SeriesCount,
		Payload:     payload,
	}
	if res.Thumbnail.FocusSeriesName != "" {
		name := res.Thumbnail.FocusSeriesName
		rec.FocusSeries = &name
	}
	if res.Thumbnail.LatestValue != nil {
		latest := decimal.NewFromFloat(*res.Thumbnail.LatestValue)
		rec.LatestValue = &latest
	}
	return rec, nil
}

func decodePayload(rec storage.ResultSetRecord) (rowsource.Payload, error) {
	payload := rowsource.Payload{PlotTitle: rec.PlotTitle}
	if len(rec.Rows) > 0 {
		if err := json.Unmarshal(rec.Rows, &payload.Rows); err != nil {
			return rowsource.Payload{}, fmt.Errorf("decode stored rows: %w", err)
		}
	}
	if len(rec.Hint) > 0 {
		var hint thumbnail.HintConfig
		if err := json.Unmarshal(rec.Hint, &hint); err != nil {
			return rowsource.Payload{}, fmt.Errorf("decode stored hint: %w", err)
		}
		payload.Hint = &hint
	}
	return payload, nil
}
