package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"lab-trend-thumbnails/internal/alerting"
	"lab-trend-thumbnails/internal/config"
	"lab-trend-thumbnails/internal/rowsource"
	"lab-trend-thumbnails/internal/storage"
	"lab-trend-thumbnails/internal/thumbnail"
)

type fakeThumbStore struct {
	inserted []storage.ThumbnailRecord
	cutoffs  []time.Time
	deleted  int64
}

func (f *fakeThumbStore) InsertThumbnail(ctx context.Context, rec storage.ThumbnailRecord) error {
	f.inserted = append(f.inserted, rec)
	return nil
}

func (f *fakeThumbStore) GetThumbnail(ctx context.Context, id string) (storage.ThumbnailRecord, error) {
	for _, rec := range f.inserted {
		if rec.ID == id {
			return rec, nil
		}
	}
	return storage.ThumbnailRecord{}, storage.ErrNotFound
}

func (f *fakeThumbStore) ListRecentThumbnails(ctx context.Context, limit int) ([]storage.ThumbnailRecord, error) {
	return f.inserted, nil
}

func (f *fakeThumbStore) DeleteThumbnailsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, olderThan)
	return f.deleted, nil
}

func (f *fakeThumbStore) CountThumbnails(ctx context.Context) (int64, error) {
	return int64(len(f.inserted)), nil
}

type fakeResultStore struct {
	records []storage.ResultSetRecord
}

func (f *fakeResultStore) InsertResultSet(ctx context.Context, rec storage.ResultSetRecord) (storage.ResultSetRecord, error) {
	rec.ID = int64(len(f.records) + 1)
	rec.CreatedAt = time.Now()
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeResultStore) ListResultSetsBetween(ctx context.Context, from, to time.Time) ([]storage.ResultSetRecord, error) {
	return f.records, nil
}

type fakeNotifier struct {
	notes []alerting.Notification
}

func (f *fakeNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	f.notes = append(f.notes, note)
	return nil
}

var (
	_ storage.ThumbnailStore = (*fakeThumbStore)(nil)
	_ storage.ResultSetStore = (*fakeResultStore)(nil)
	_ alerting.Notifier      = (*fakeNotifier)(nil)
)

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{CaptureResultSets: true},
		Retention: config.RetentionConfig{MaxAge: 24 * time.Hour},
		Alerting:  config.AlertingConfig{Enabled: true, Channels: []string{"telegram"}},
	}
}

func testPayload() rowsource.Payload {
	return rowsource.Payload{
		PlotTitle: "Serum Potassium",
		Rows: []thumbnail.RawRow{
			{T: thumbnail.NewNumber(1709640000000), Y: thumbnail.NewNumber(4.1), ParameterName: thumbnail.NewText("Potassium"), Unit: thumbnail.NewText("mmol/L")},
			{T: thumbnail.NewNumber(1709726400000), Y: thumbnail.NewNumber(4.4), ParameterName: thumbnail.NewText("Potassium"), Unit: thumbnail.NewText("mmol/L")},
		},
		Hint: &thumbnail.HintConfig{Status: thumbnail.NewText("normal")},
	}
}

func TestDeriverDeriveSuccessPersists(t *testing.T) {
	thumbs := &fakeThumbStore{}
	results := &fakeResultStore{}
	notifier := &fakeNotifier{}
	d := New(testConfig(), thumbs, results, notifier, zerolog.Nop())

	res, err := d.Derive(context.Background(), testPayload())
	if err != nil {
		t.Fatalf("Derive 不应报错: %v", err)
	}
	if res == nil {
		t.Fatal("应返回缩略图结果")
	}
	if res.Thumbnail.Status != thumbnail.StatusNormal {
		t.Fatalf("状态应为 normal, 实际 %s", res.Thumbnail.Status)
	}

	if len(results.records) != 1 {
		t.Fatalf("应捕获 1 个结果集, 实际 %d", len(results.records))
	}
	if len(thumbs.inserted) != 1 {
		t.Fatalf("应持久化 1 个缩略图, 实际 %d", len(thumbs.inserted))
	}
	rec := thumbs.inserted[0]
	if rec.ID != res.ID {
		t.Fatalf("记录 ID 应与结果一致: %s vs %s", rec.ID, res.ID)
	}
	if rec.ResultSetID == nil || *rec.ResultSetID != results.records[0].ID {
		t.Fatalf("缩略图应关联捕获的结果集: %#v", rec.ResultSetID)
	}
	if rec.LatestValue == nil || !rec.LatestValue.Equal(decimal.NewFromFloat(4.4)) {
		t.Fatalf("latest_value 不正确: %v", rec.LatestValue)
	}
	if len(notifier.notes) != 0 {
		t.Fatalf("正常派生不应发送告警, 实际 %d 条", len(notifier.notes))
	}
}

func TestDeriverOptOut(t *testing.T) {
	thumbs := &fakeThumbStore{}
	d := New(testConfig(), thumbs, &fakeResultStore{}, &fakeNotifier{}, zerolog.Nop())

	payload := testPayload()
	payload.Hint = nil
	res, err := d.Derive(context.Background(), payload)
	if err != nil {
		t.Fatalf("缺省 hint 应静默跳过: %v", err)
	}
	if res != nil {
		t.Fatal("缺省 hint 不应产出缩略图")
	}
	if len(thumbs.inserted) != 0 {
		t.Fatal("跳过时不应持久化")
	}
}

func TestDeriverDefectNotifiesAndCaptures(t *testing.T) {
	thumbs := &fakeThumbStore{}
	results := &fakeResultStore{}
	notifier := &fakeNotifier{}
	d := New(testConfig(), thumbs, results, notifier, zerolog.Nop())
	d.derive = func(thumbnail.Input) (*thumbnail.Result, error) {
		return nil, fmt.Errorf("sparkline too long: %w", thumbnail.ErrInvalidThumbnail)
	}

	_, err := d.Derive(context.Background(), testPayload())
	if !errors.Is(err, thumbnail.ErrInvalidThumbnail) {
		t.Fatalf("应返回校验错误: %v", err)
	}
	if len(thumbs.inserted) != 0 {
		t.Fatal("缺陷结果不应持久化缩略图")
	}
	if len(results.records) != 1 {
		t.Fatalf("缺陷结果集应被捕获以便回放, 实际 %d", len(results.records))
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("应发送 1 条缺陷告警, 实际 %d", len(notifier.notes))
	}
	if !strings.Contains(notifier.notes[0].Reason, "sparkline too long") {
		t.Fatalf("告警原因不正确: %q", notifier.notes[0].Reason)
	}
	if notifier.notes[0].RawRows != 2 {
		t.Fatalf("告警应带原始行数: %d", notifier.notes[0].RawRows)
	}
}

func TestDeriverDefectCooldown(t *testing.T) {
	cfg := testConfig()
	cfg.Alerting.Cooldown = time.Hour
	notifier := &fakeNotifier{}
	d := New(cfg, nil, nil, notifier, zerolog.Nop())
	d.derive = func(thumbnail.Input) (*thumbnail.Result, error) {
		return nil, thumbnail.ErrInvalidThumbnail
	}

	_, _ = d.Derive(context.Background(), testPayload())
	_, _ = d.Derive(context.Background(), testPayload())

	if len(notifier.notes) != 1 {
		t.Fatalf("冷却期内应只发送 1 条告警, 实际 %d", len(notifier.notes))
	}
}

func TestDeriveStoredLinksCapture(t *testing.T) {
	thumbs := &fakeThumbStore{}
	results := &fakeResultStore{}
	d := New(testConfig(), thumbs, results, &fakeNotifier{}, zerolog.Nop())

	rowsJSON, err := json.Marshal(testPayload().Rows)
	if err != nil {
		t.Fatalf("编码测试行失败: %v", err)
	}
	rec := storage.ResultSetRecord{
		ID:        42,
		PlotTitle: "Serum Potassium",
		Rows:      rowsJSON,
		Hint:      json.RawMessage(`{"status": "high"}`),
	}

	res, err := d.DeriveStored(context.Background(), rec)
	if err != nil {
		t.Fatalf("DeriveStored 不应报错: %v", err)
	}
	if res.Thumbnail.Status != thumbnail.StatusHigh {
		t.Fatalf("应沿用存储的 hint 状态, 实际 %s", res.Thumbnail.Status)
	}
	if len(results.records) != 0 {
		t.Fatal("重派生不应重复捕获结果集")
	}
	if len(thumbs.inserted) != 1 || thumbs.inserted[0].ResultSetID == nil || *thumbs.inserted[0].ResultSetID != 42 {
		t.Fatalf("缩略图应关联原结果集 42: %#v", thumbs.inserted)
	}
}

func TestDeriveStoredMissingHint(t *testing.T) {
	d := New(testConfig(), &fakeThumbStore{}, &fakeResultStore{}, &fakeNotifier{}, zerolog.Nop())

	res, err := d.DeriveStored(context.Background(), storage.ResultSetRecord{ID: 7, PlotTitle: "CRP", Rows: json.RawMessage(`[]`)})
	if err != nil {
		t.Fatalf("无 hint 的存量记录应静默跳过: %v", err)
	}
	if res != nil {
		t.Fatal("无 hint 不应产出缩略图")
	}
}

func TestRetentionSweep(t *testing.T) {
	thumbs := &fakeThumbStore{deleted: 3}
	d := New(testConfig(), thumbs, nil, nil, zerolog.Nop())

	tick := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	if err := d.RetentionSweep(context.Background(), tick); err != nil {
		t.Fatalf("RetentionSweep 不应报错: %v", err)
	}
	if len(thumbs.cutoffs) != 1 {
		t.Fatalf("应执行 1 次删除, 实际 %d", len(thumbs.cutoffs))
	}
	want := tick.Add(-24 * time.Hour)
	if !thumbs.cutoffs[0].Equal(want) {
		t.Fatalf("删除阈值应为 %s, 实际 %s", want, thumbs.cutoffs[0])
	}

	empty := New(testConfig(), nil, nil, nil, zerolog.Nop())
	if err := empty.RetentionSweep(context.Background(), tick); err == nil {
		t.Fatal("无存储时应报错")
	}
}
