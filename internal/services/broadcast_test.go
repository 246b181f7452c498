package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

type fakeAudience struct {
	ids []int64
	err error
}

func (f *fakeAudience) ListUserIDs(ctx context.Context, db *gorm.DB) ([]int64, error) {
	return f.ids, f.err
}

type fakeForwarder struct {
	sent    []int64
	failFor map[int64]bool
}

func (f *fakeForwarder) ForwardMessage(ctx context.Context, toChat, fromChat int64, messageID int) error {
	if f.failFor[toChat] {
		return errors.New("bot was blocked by the user")
	}
	f.sent = append(f.sent, toChat)
	return nil
}

func TestBroadcast_ForwardsToEveryUserInOrder(t *testing.T) {
	fw := &fakeForwarder{}
	b := NewBroadcaster(nil, &fakeAudience{ids: []int64{1, 2, 3}}, fw, time.Millisecond)

	ok, failed, err := b.Broadcast(context.Background(), 42, 7)
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if ok != 3 || failed != 0 {
		t.Fatalf("ok=%d failed=%d; want 3/0", ok, failed)
	}
	for i, want := range []int64{1, 2, 3} {
		if fw.sent[i] != want {
			t.Fatalf("order %v; want [1 2 3]", fw.sent)
		}
	}
}

func TestBroadcast_PerUserFailureIsCountedAndSkipped(t *testing.T) {
	fw := &fakeForwarder{failFor: map[int64]bool{2: true}}
	b := NewBroadcaster(nil, &fakeAudience{ids: []int64{1, 2, 3}}, fw, time.Millisecond)

	ok, failed, err := b.Broadcast(context.Background(), 42, 7)
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if ok != 2 || failed != 1 {
		t.Fatalf("ok=%d failed=%d; want 2/1", ok, failed)
	}
	// User 3 must still receive despite user 2 failing.
	if len(fw.sent) != 2 || fw.sent[1] != 3 {
		t.Fatalf("sent %v; want [1 3]", fw.sent)
	}
}

func TestBroadcast_EmptyAudience(t *testing.T) {
	b := NewBroadcaster(nil, &fakeAudience{}, &fakeForwarder{}, time.Millisecond)

	_, _, err := b.Broadcast(context.Background(), 42, 7)
	if !errors.Is(err, ErrNoAudience) {
		t.Fatalf("err = %v; want ErrNoAudience", err)
	}
}

func TestBroadcast_ListErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	b := NewBroadcaster(nil, &fakeAudience{err: boom}, &fakeForwarder{}, time.Millisecond)

	_, _, err := b.Broadcast(context.Background(), 42, 7)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v; want %v", err, boom)
	}
}
