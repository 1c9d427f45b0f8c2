package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/NikFin25/deanery-bot/model"
	"github.com/NikFin25/deanery-bot/services/session"
)

// The assign-role flow must keep asking for the Telegram ID while the input
// is not a number, rather than moving on and failing at commit time.
func TestAssignRoleFlowRepromptsBadTelegramID(t *testing.T) {
	d := &Dispatcher{sessions: session.NewMemoryStore(time.Minute)}
	ctx := context.Background()
	admin := &model.User{Role: model.RoleAdmin}
	const adminID int64 = 42

	replies, err := d.startFlow(ctx, adminID, flowAssignRole)
	if err != nil {
		t.Fatalf("start flow: %v", err)
	}
	if !strings.Contains(repliesText(replies), "Telegram ID") {
		t.Fatalf("first prompt = %q", repliesText(replies))
	}

	for attempt := 0; attempt < 3; attempt++ {
		form, err := d.sessions.Get(ctx, adminID)
		if err != nil {
			t.Fatalf("attempt %d: get form: %v", attempt, err)
		}
		replies, err = d.continueFlow(ctx, admin, adminID, form, "not-a-number")
		if err != nil {
			t.Fatalf("attempt %d: continue: %v", attempt, err)
		}
		text := repliesText(replies)
		if !strings.Contains(text, "должен быть числом") {
			t.Fatalf("attempt %d: rejection missing: %q", attempt, text)
		}
		if !strings.Contains(text, "Telegram ID") {
			t.Fatalf("attempt %d: id step not re-prompted: %q", attempt, text)
		}

		form, err = d.sessions.Get(ctx, adminID)
		if err != nil {
			t.Fatalf("attempt %d: form lost: %v", attempt, err)
		}
		if form.Step != 0 {
			t.Fatalf("attempt %d: step = %d, want 0", attempt, form.Step)
		}
	}

	// A numeric id finally advances to the role step.
	form, err := d.sessions.Get(ctx, adminID)
	if err != nil {
		t.Fatalf("get form: %v", err)
	}
	replies, err = d.continueFlow(ctx, admin, adminID, form, "123456")
	if err != nil {
		t.Fatalf("continue with valid id: %v", err)
	}
	if !strings.Contains(repliesText(replies), "Введите роль") {
		t.Fatalf("role step not prompted: %q", repliesText(replies))
	}

	form, err = d.sessions.Get(ctx, adminID)
	if err != nil {
		t.Fatalf("get form after valid id: %v", err)
	}
	if form.Step != 1 {
		t.Fatalf("step = %d, want 1", form.Step)
	}
	if got := form.Fields["telegram_id"]; got != "123456" {
		t.Fatalf("telegram_id = %q", got)
	}
}
