package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"masar/internal/modules/parcel"
)

type fakeModel struct {
	system string
	msg    string
	reply  string
	err    error
	calls  int
}

func (m *fakeModel) Generate(_ context.Context, system, message string) (string, error) {
	m.calls++
	m.system, m.msg = system, message
	return m.reply, m.err
}

type fakeTracker map[string]parcel.PublicView

func (f fakeTracker) Track(_ context.Context, tracking string) (parcel.PublicView, error) {
	v, ok := f[strings.ToUpper(tracking)]
	if !ok {
		return parcel.PublicView{}, parcel.ErrNotFound
	}
	return v, nil
}

func TestChatConsumesQuota(t *testing.T) {
	quota := NewMemoryQuota(2)
	model := &fakeModel{reply: " Hello! "}
	svc := NewService(ServiceDeps{Quota: quota, Model: model})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		r, err := svc.Chat(ctx, ChatCommand{UID: "u1", Message: "hi"})
		if err != nil {
			t.Fatalf("Chat #%d: %v", i, err)
		}
		if r.Text != "Hello!" {
			t.Fatalf("reply = %q", r.Text)
		}
	}
	if _, err := svc.Chat(ctx, ChatCommand{UID: "u1", Message: "hi"}); !errors.Is(err, ErrInsufficientTokens) {
		t.Fatalf("expected ErrInsufficientTokens, got %v", err)
	}
	if model.calls != 2 {
		t.Fatalf("model calls = %d", model.calls)
	}
}

func TestMemoryQuotaMonthlyReset(t *testing.T) {
	quota := NewMemoryQuota(1)
	now := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	quota.now = func() time.Time { return now }
	svc := NewService(ServiceDeps{Quota: quota})
	ctx := context.Background()

	if err := svc.UseToken(ctx, "u"); err != nil {
		t.Fatalf("first use: %v", err)
	}
	if err := svc.UseToken(ctx, "u"); !errors.Is(err, ErrInsufficientTokens) {
		t.Fatalf("expected exhausted, got %v", err)
	}
	now = now.AddDate(0, 0, 1)
	if err := svc.UseToken(ctx, "u"); err != nil {
		t.Fatalf("use after month rollover: %v", err)
	}
	if quota.Remaining("u") != 0 {
		t.Fatalf("remaining = %d", quota.Remaining("u"))
	}
}

func TestChatEmptyMessage(t *testing.T) {
	quota := NewMemoryQuota(1)
	svc := NewService(ServiceDeps{Quota: quota, Model: &fakeModel{}})
	if _, err := svc.Chat(context.Background(), ChatCommand{UID: "u", Message: "   "}); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if quota.Remaining("u") != 0 {
		t.Fatalf("empty message must not create quota rows")
	}
}

func TestChatIncludesTrackingContext(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	svc := NewService(ServiceDeps{
		Quota: NewMemoryQuota(5),
		Model: model,
		Tracker: fakeTracker{"AB12CD34EF": {
			TrackingNumber: "AB12CD34EF",
			Status:         parcel.StatusInTransit,
			From:           "Bawshar, Muscat",
			To:             "Sohar, North Batinah",
			CreatedAt:      time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		}},
	})

	if _, err := svc.Chat(context.Background(), ChatCommand{UID: "u", Message: "where is it?", TrackingNumber: "ab12cd34ef", Language: "ar"}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	for _, want := range []string{"AB12CD34EF", "in_transit", "Sohar, North Batinah", "Answer in Arabic"} {
		if !strings.Contains(model.system, want) {
			t.Fatalf("system prompt missing %q:\n%s", want, model.system)
		}
	}

	if _, err := svc.Chat(context.Background(), ChatCommand{UID: "u", Message: "and this?", TrackingNumber: "ZZZ"}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !strings.Contains(model.system, "ZZZ, which was not found") {
		t.Fatalf("system prompt = %s", model.system)
	}
}

func TestChatModelFailure(t *testing.T) {
	svc := NewService(ServiceDeps{Quota: NewMemoryQuota(5), Model: &fakeModel{err: errors.New("quota exceeded upstream")}})
	if _, err := svc.Chat(context.Background(), ChatCommand{UID: "u", Message: "hi"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
