package bot

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/NikFin25/deanery-bot/model"
	"github.com/NikFin25/deanery-bot/services"
)

func TestChunkShortTextIsSinglePart(t *testing.T) {
	parts := chunk("короткий текст", maxMessageLen)
	if len(parts) != 1 || parts[0] != "короткий текст" {
		t.Fatalf("got %d parts: %q", len(parts), parts)
	}
}

func TestChunkSplitsOnLineBoundaries(t *testing.T) {
	line := strings.Repeat("a", 30) + "\n"
	text := strings.Repeat(line, 10)

	parts := chunk(text, 100)
	if len(parts) < 2 {
		t.Fatalf("expected multiple parts, got %d", len(parts))
	}
	for i, part := range parts {
		if len(part) > 100 {
			t.Errorf("part %d is %d bytes, over the limit", i, len(part))
		}
		if i < len(parts)-1 && !strings.HasSuffix(part, "\n") {
			t.Errorf("part %d does not end on a line boundary: %q", i, part)
		}
	}
	if strings.Join(parts, "") != text {
		t.Error("parts do not reassemble the original text")
	}
}

func TestChunkOversizedLine(t *testing.T) {
	text := strings.Repeat("б", 350)

	parts := chunk(text, 100)
	for i, part := range parts {
		if len(part) > 100 {
			t.Errorf("part %d is %d bytes, over the limit", i, len(part))
		}
	}
	if strings.Join(parts, "") != text {
		t.Error("parts do not reassemble the original text")
	}
}

func TestChunkKeepsRunesIntact(t *testing.T) {
	// The leading ASCII byte pushes every naive 100-byte cut into the
	// middle of a two-byte rune.
	text := "a" + strings.Repeat("б", 200)

	parts := chunk(text, 100)
	for i, part := range parts {
		if len(part) > 100 {
			t.Errorf("part %d is %d bytes, over the limit", i, len(part))
		}
		if !utf8.ValidString(part) {
			t.Errorf("part %d is not valid UTF-8: %q", i, part)
		}
	}
	if strings.Join(parts, "") != text {
		t.Error("parts do not reassemble the original text")
	}
}

func TestFormatDay(t *testing.T) {
	periods := []model.Schedule{
		{StartTime: "08:30", EndTime: "10:00", Subject: "Математика", Teacher: "Петрова А.Н.", Room: "214"},
		{StartTime: "10:10", EndTime: "11:40", Subject: "Информатика", Teacher: "Сидоров В.К.", Room: "301"},
	}

	text := formatDay(periods)
	for _, want := range []string{"08:30", "Математика", "214", "Информатика", "Сидоров В.К."} {
		if !strings.Contains(text, want) {
			t.Errorf("formatted day misses %q:\n%s", want, text)
		}
	}
}

func TestFormatTwoWeeks(t *testing.T) {
	schedule := &services.TwoWeekSchedule{}
	schedule.Weeks[0].Week = 1
	schedule.Weeks[0].Days = []services.DaySchedule{
		{
			DayOfWeek: model.Monday,
			Periods: []model.Schedule{
				{StartTime: "08:30", EndTime: "10:00", Subject: "Физика", Teacher: "Козлов Д.М.", Room: "115"},
			},
		},
	}
	schedule.Weeks[1].Week = 2

	text := formatTwoWeeks(schedule)
	if !strings.Contains(text, "Неделя 1") {
		t.Errorf("missing week 1 header:\n%s", text)
	}
	if !strings.Contains(text, "Понедельник") {
		t.Errorf("weekday not localized:\n%s", text)
	}
	if strings.Contains(text, "Неделя 2") {
		t.Errorf("empty week 2 should be omitted:\n%s", text)
	}
}

func TestFormatTwoWeeksEmpty(t *testing.T) {
	if text := formatTwoWeeks(&services.TwoWeekSchedule{}); text != "" {
		t.Errorf("empty rotation rendered %q", text)
	}
}

func TestFormatEventForStaff(t *testing.T) {
	event := model.Event{Title: "Субботник", Description: "Уборка", Requirements: "—", IsActive: true}

	text := formatEventForStaff(event)
	if !strings.Contains(text, "🟢 Активно") {
		t.Errorf("active event not marked active:\n%s", text)
	}

	event.IsActive = false
	text = formatEventForStaff(event)
	if !strings.Contains(text, "⚪ Завершено") {
		t.Errorf("finished event not marked finished:\n%s", text)
	}
}

func TestFormatUserWithoutGroup(t *testing.T) {
	u := model.User{FullName: "Иванов Иван Иванович", TelegramID: 42}

	text := formatUser(u)
	if !strings.Contains(text, "—") {
		t.Errorf("missing group placeholder:\n%s", text)
	}
	if !strings.Contains(text, "tg://user?id=42") {
		t.Errorf("missing contact link:\n%s", text)
	}
}
