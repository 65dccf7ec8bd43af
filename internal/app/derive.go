package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"lab-trend-thumbnails/internal/rowsource"
	"lab-trend-thumbnails/internal/storage"
	"lab-trend-thumbnails/internal/thumbnail"
)

// Derive runs one derivation from a file or URL and prints the result.
func (a *App) Derive(ctx context.Context, opts DeriveOptions) error {
	source, err := a.newSource(opts.RowsPath, opts.URL)
	if err != nil {
		return err
	}

	payload, err := source.Fetch(ctx)
	if err != nil {
		return err
	}
	applyHintOverrides(&payload, opts.HintStatus, opts.HintFocus)

	var store *storage.Store
	if opts.Persist {
		var closeStore func()
		store, closeStore, err = a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("database.dsn 未配置，无法持久化")
		}
		defer closeStore()
	}

	deriver := a.newDeriver(store)
	res, err := deriver.Derive(ctx, payload)
	if err != nil {
		return err
	}
	if res == nil {
		a.Logger.Info().Str("plot_title", payload.PlotTitle).Msg("no thumbnail produced")
		return nil
	}

	return writeResult(res, opts.OutPath)
}

func (a *App) newSource(rowsPath, url string) (rowsource.Source, error) {
	if rowsPath != "" {
		return rowsource.NewFileSource(rowsPath), nil
	}
	if url == "" {
		url = a.Config.Source.URL
	}
	if url == "" {
		return nil, errors.New("需要 --rows 或 --url，或在配置中设置 source.url")
	}
	return rowsource.NewHTTPSource(rowsource.HTTPOptions{
		URL:       url,
		Timeout:   a.Config.Source.RequestTimeout,
		UserAgent: a.Config.Source.UserAgent,
	}, a.Logger), nil
}

// applyHintOverrides 允许命令行直接注入 hint，便于本地试验。
func applyHintOverrides(payload *rowsource.Payload, status, focus string) {
	if status == "" && focus == "" {
		return
	}
	if payload.Hint == nil {
		payload.Hint = &thumbnail.HintConfig{}
	}
	if status != "" {
		payload.Hint.Status = thumbnail.NewText(status)
	}
	if focus != "" {
		payload.Hint.FocusSeriesName = thumbnail.NewText(focus)
	}
}

func writeResult(res *thumbnail.Result, outPath string) error {
	encoded, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	encoded = append(encoded, '\n')

	if outPath == "" {
		_, err = os.Stdout.Write(encoded)
		return err
	}
	if err := ensureDir(outPath); err != nil {
		return err
	}
	return os.WriteFile(outPath, encoded, 0o644)
}
