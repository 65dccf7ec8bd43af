package app

import (
	"context"
	"errors"
)

// Rederive replays derivation over result sets captured inside the window.
// Useful after a pipeline fix: defective captures get a fresh attempt.
func (a *App) Rederive(ctx context.Context, opts RederiveOptions) error {
	from := opts.From.UTC()
	to := opts.To.UTC()
	if !from.Before(to) {
		return errors.New("重派生范围为空，请检查 --from/--to")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn 未配置，无法重派生")
	}
	if closeStore != nil {
		defer closeStore()
	}

	records, err := store.ListResultSetsBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.Logger.Info().Time("from", from).Time("to", to).Msg("窗口内没有捕获的结果集")
		return nil
	}

	deriver := a.newDeriver(store)
	if opts.DryRun {
		a.Logger.Warn().Msg("重派生 dry-run：不会写入数据库")
		deriver = a.newDeriver(nil)
	}

	processed := 0
	skipped := 0
	failed := 0
	for _, rec := range records {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		res, err := deriver.DeriveStored(ctx, rec)
		if err != nil {
			failed++
			a.Logger.Error().Err(err).Int64("result_set_id", rec.ID).Str("plot_title", rec.PlotTitle).Msg("重派生失败")
			continue
		}
		if res == nil {
			skipped++
			continue
		}
		processed++
	}

	a.Logger.Info().Int("processed", processed).Int("skipped", skipped).Int("failed", failed).Msg("重派生完成")
	if failed > 0 {
		return errors.New("部分结果集重派生失败，请检查日志")
	}
	return nil
}
