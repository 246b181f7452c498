package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"

	"github.com/dkozyrev/tg-filestore/internal/domain"
	"github.com/dkozyrev/tg-filestore/internal/observability"
	"github.com/dkozyrev/tg-filestore/internal/repo"
	"github.com/dkozyrev/tg-filestore/internal/telegram"
)

// ----- Fakes -----

type fakeReader struct {
	items   map[string]*domain.ContentItem
	batches map[string]*domain.Batch
}

func (f *fakeReader) GetContentItem(ctx context.Context, db *gorm.DB, id string) (*domain.ContentItem, error) {
	if it, ok := f.items[id]; ok {
		return it, nil
	}
	return nil, repo.ErrNotFound
}

func (f *fakeReader) GetBatch(ctx context.Context, db *gorm.DB, id string) (*domain.Batch, error) {
	if b, ok := f.batches[id]; ok {
		return b, nil
	}
	return nil, repo.ErrNotFound
}

type sentMedia struct {
	fileID  string
	caption string
}

type fakeSender struct {
	media []sentMedia
	texts []string

	// failAfter aborts SendMedia once this many sends have succeeded
	// (negative disables).
	failAfter int
	nextID    int
}

func newFakeSender() *fakeSender { return &fakeSender{failAfter: -1} }

func (f *fakeSender) SendMedia(ctx context.Context, chatID int64, m telegram.Media, caption string) (int, error) {
	if f.failAfter >= 0 && len(f.media) >= f.failAfter {
		return 0, errors.New("blocked by user")
	}
	f.media = append(f.media, sentMedia{fileID: m.FileID, caption: caption})
	f.nextID++
	return f.nextID, nil
}

func (f *fakeSender) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	f.texts = append(f.texts, text)
	f.nextID++
	return f.nextID, nil
}

type scheduled struct {
	chatID int64
	ids    []int
	after  time.Duration
}

type fakeScheduler struct {
	calls []scheduled
}

func (f *fakeScheduler) Schedule(chatID int64, messageIDs []int, after time.Duration) {
	ids := make([]int, len(messageIDs))
	copy(ids, messageIDs)
	f.calls = append(f.calls, scheduled{chatID: chatID, ids: ids, after: after})
}

func newTestDelivery(reader *fakeReader, sender *fakeSender, sched *fakeScheduler, ephemeral bool) *Delivery {
	settings := &fakeSettings{settings: &domain.Settings{EphemeralEnabled: ephemeral}}
	return NewDelivery(nil, reader, settings, sender, sched, time.Millisecond, 10*time.Minute, 8*time.Second)
}

func threeItemBatch() *domain.Batch {
	return &domain.Batch{
		ID: "batch-1",
		Items: []domain.BatchItem{
			{Position: 0, FileID: "fa", Kind: domain.KindDocument, FileName: "a"},
			{Position: 1, FileID: "fb", Kind: domain.KindDocument, FileName: "b"},
			{Position: 2, FileID: "fc", Kind: domain.KindDocument, FileName: "c"},
		},
	}
}

// ----- Tests -----

func TestDeliver_UnknownTokenSendsNothing(t *testing.T) {
	sender := newFakeSender()
	d := newTestDelivery(&fakeReader{}, sender, &fakeScheduler{}, false)

	err := d.Deliver(context.Background(), 7, "no-such-token")
	if !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("err = %v; want ErrUnknownToken", err)
	}
	if len(sender.media) != 0 || len(sender.texts) != 0 {
		t.Fatalf("nothing may be sent for an unknown token")
	}
}

func TestDeliver_SingleItem(t *testing.T) {
	reader := &fakeReader{items: map[string]*domain.ContentItem{
		"item-1": {ID: "item-1", FileID: "f1", Kind: domain.KindDocument, FileName: "doc.pdf", Caption: "hello"},
	}}
	sender := newFakeSender()
	d := newTestDelivery(reader, sender, &fakeScheduler{}, false)

	if err := d.Deliver(context.Background(), 7, "item-1"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(sender.media) != 1 || sender.media[0].fileID != "f1" || sender.media[0].caption != "hello" {
		t.Fatalf("sent %+v; want one send of f1 with caption", sender.media)
	}
}

func TestDeliver_SingleItemFallsBackToFileName(t *testing.T) {
	reader := &fakeReader{items: map[string]*domain.ContentItem{
		"item-1": {ID: "item-1", FileID: "f1", Kind: domain.KindDocument, FileName: "doc.pdf"},
	}}
	sender := newFakeSender()
	d := newTestDelivery(reader, sender, &fakeScheduler{}, false)

	if err := d.Deliver(context.Background(), 7, "item-1"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if sender.media[0].caption != "doc.pdf" {
		t.Fatalf("caption = %q; want file name fallback", sender.media[0].caption)
	}
}

func TestDeliver_BatchPreservesOrderAndNotifies(t *testing.T) {
	reader := &fakeReader{batches: map[string]*domain.Batch{"batch-1": threeItemBatch()}}
	sender := newFakeSender()
	sched := &fakeScheduler{}
	d := newTestDelivery(reader, sender, sched, false)

	if err := d.Deliver(context.Background(), 7, "batch-1"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(sender.media) != 3 {
		t.Fatalf("sent %d items; want 3", len(sender.media))
	}
	for i, want := range []string{"fa", "fb", "fc"} {
		if sender.media[i].fileID != want {
			t.Errorf("send[%d] = %q; want %q", i, sender.media[i].fileID, want)
		}
	}
	if len(sender.texts) != 1 || !strings.Contains(sender.texts[0], "delivered") {
		t.Fatalf("texts = %v; want one completion notice", sender.texts)
	}
	// The completion notice is itself short-lived.
	if len(sched.calls) != 1 || sched.calls[0].after != 8*time.Second {
		t.Fatalf("schedule calls = %+v; want one notice cleanup at 8s", sched.calls)
	}
}

func TestDeliver_BatchAbortsOnSendFailure(t *testing.T) {
	reader := &fakeReader{batches: map[string]*domain.Batch{"batch-1": threeItemBatch()}}
	sender := newFakeSender()
	sender.failAfter = 1 // second item fails
	d := newTestDelivery(reader, sender, &fakeScheduler{}, false)

	err := d.Deliver(context.Background(), 7, "batch-1")
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("err = %v; want ErrSendFailed", err)
	}
	// What went out stays delivered; nothing after the failure is retried.
	if len(sender.media) != 1 {
		t.Fatalf("sent %d items before abort; want 1", len(sender.media))
	}
}

func TestDeliver_EphemeralSchedulesDeletionsBeforeReturn(t *testing.T) {
	reader := &fakeReader{batches: map[string]*domain.Batch{"batch-1": threeItemBatch()}}
	sender := newFakeSender()
	sched := &fakeScheduler{}
	d := newTestDelivery(reader, sender, sched, true)

	if err := d.Deliver(context.Background(), 7, "batch-1"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	// Expected schedules: completion notice (8s), warning text (8s), and
	// the three delivered messages (10m).
	var contentCall *scheduled
	for i := range sched.calls {
		if sched.calls[i].after == 10*time.Minute {
			contentCall = &sched.calls[i]
		}
	}
	if contentCall == nil {
		t.Fatalf("no content deletion scheduled at the ephemeral TTL; calls = %+v", sched.calls)
	}
	if len(contentCall.ids) != 3 {
		t.Fatalf("scheduled %d content deletions; want 3", len(contentCall.ids))
	}
	var warned bool
	for _, txt := range sender.texts {
		if strings.Contains(txt, "deleted in 10 minutes") {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("missing ephemeral warning, texts = %v", sender.texts)
	}
}

func TestDeliver_EphemeralDisabledSchedulesNoContentDeletion(t *testing.T) {
	reader := &fakeReader{items: map[string]*domain.ContentItem{
		"item-1": {ID: "item-1", FileID: "f1", Kind: domain.KindDocument},
	}}
	sched := &fakeScheduler{}
	d := newTestDelivery(reader, newFakeSender(), sched, false)

	if err := d.Deliver(context.Background(), 7, "item-1"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	for _, c := range sched.calls {
		if c.after == 10*time.Minute {
			t.Fatalf("content deletion scheduled with ephemeral mode off: %+v", c)
		}
	}
}

func TestDeliver_CanceledContextAbortsWithoutCountingSuccess(t *testing.T) {
	reader := &fakeReader{batches: map[string]*domain.Batch{"batch-1": threeItemBatch()}}
	sender := newFakeSender()
	d := newTestDelivery(reader, sender, &fakeScheduler{}, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	before := testutil.ToFloat64(observability.Deliveries.WithLabelValues("ok"))
	err := d.Deliver(ctx, 7, "batch-1")
	if err == nil {
		t.Fatalf("expected error from canceled context")
	}
	if len(sender.media) != 0 || len(sender.texts) != 0 {
		t.Fatalf("nothing may be sent after cancellation, got %d media %d texts", len(sender.media), len(sender.texts))
	}
	if after := testutil.ToFloat64(observability.Deliveries.WithLabelValues("ok")); after != before {
		t.Fatalf("ok counter advanced from %v to %v on an aborted walk", before, after)
	}
}

func TestFormatTTL(t *testing.T) {
	cases := map[time.Duration]string{
		10 * time.Minute: "10 minutes",
		time.Minute:      "1 minute",
		90 * time.Second: "1m30s",
		8 * time.Second:  "8s",
	}
	for in, want := range cases {
		if got := formatTTL(in); got != want {
			t.Errorf("formatTTL(%v) = %q; want %q", in, got, want)
		}
	}
}
