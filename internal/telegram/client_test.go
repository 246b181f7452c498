package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dkozyrev/tg-filestore/internal/domain"
)

func TestClassify_Document(t *testing.T) {
	m := &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "d1", FileName: "report.pdf"}}
	got := Classify(m)
	if got == nil || got.Kind != domain.KindDocument || got.FileID != "d1" || got.FileName != "report.pdf" {
		t.Fatalf("got %+v; want document d1", got)
	}
}

func TestClassify_PhotoPicksLargestVariant(t *testing.T) {
	m := &tgbotapi.Message{Photo: []tgbotapi.PhotoSize{
		{FileID: "small", Width: 90, Height: 90},
		{FileID: "large", Width: 1280, Height: 960},
		{FileID: "medium", Width: 320, Height: 240},
	}}
	got := Classify(m)
	if got == nil || got.Kind != domain.KindPhoto || got.FileID != "large" {
		t.Fatalf("got %+v; want the largest photo variant", got)
	}
}

func TestClassify_DocumentWinsOverPhoto(t *testing.T) {
	m := &tgbotapi.Message{
		Document: &tgbotapi.Document{FileID: "d1"},
		Photo:    []tgbotapi.PhotoSize{{FileID: "p1", Width: 10, Height: 10}},
	}
	got := Classify(m)
	if got == nil || got.Kind != domain.KindDocument {
		t.Fatalf("got %+v; want the document per extraction order", got)
	}
}

func TestClassify_RemainingKinds(t *testing.T) {
	cases := []struct {
		name string
		msg  *tgbotapi.Message
		kind domain.MediaKind
	}{
		{"video", &tgbotapi.Message{Video: &tgbotapi.Video{FileID: "v"}}, domain.KindVideo},
		{"audio", &tgbotapi.Message{Audio: &tgbotapi.Audio{FileID: "a"}}, domain.KindAudio},
		{"animation", &tgbotapi.Message{Animation: &tgbotapi.Animation{FileID: "g"}}, domain.KindAnimation},
		{"voice", &tgbotapi.Message{Voice: &tgbotapi.Voice{FileID: "o"}}, domain.KindVoice},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.msg)
			if got == nil || got.Kind != tc.kind {
				t.Fatalf("got %+v; want kind %q", got, tc.kind)
			}
		})
	}
}

func TestClassify_TextOnlyReturnsNil(t *testing.T) {
	if got := Classify(&tgbotapi.Message{Text: "hello"}); got != nil {
		t.Fatalf("got %+v; want nil for text-only", got)
	}
}

func TestClassify_StickerIsUnsupported(t *testing.T) {
	if got := Classify(&tgbotapi.Message{Sticker: &tgbotapi.Sticker{FileID: "s"}}); got != nil {
		t.Fatalf("got %+v; want nil for unsupported payload", got)
	}
}

func TestSenders_CoverEveryKind(t *testing.T) {
	for _, k := range domain.Kinds {
		build, ok := senders[k]
		if !ok {
			t.Fatalf("no sender registered for kind %q", k)
		}
		if c := build(7, "file", "cap"); c == nil {
			t.Fatalf("sender for %q produced nil", k)
		}
	}
}

func TestDeepLink(t *testing.T) {
	got := DeepLink("mybot", "abc-123")
	want := "https://t.me/mybot?start=abc-123"
	if got != want {
		t.Fatalf("DeepLink = %q; want %q", got, want)
	}
}
