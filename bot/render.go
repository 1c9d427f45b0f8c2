package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/NikFin25/deanery-bot/model"
	"github.com/NikFin25/deanery-bot/services"
)

// maxMessageLen is the chat transport's message size limit; longer renderings
// are split into parts.
const maxMessageLen = 4000

// formatPeriod renders one timetable period.
func formatPeriod(p model.Schedule) string {
	return fmt.Sprintf("🕒 %s - %s\n   🏫 %s | 👨‍🏫 %s\n", p.TimeRange(), p.Subject, p.Room, p.Teacher)
}

// formatDay renders today's periods.
func formatDay(periods []model.Schedule) string {
	var b strings.Builder
	for _, p := range periods {
		b.WriteString(formatPeriod(p))
	}
	return b.String()
}

// formatTwoWeeks renders the full rotation: week header, then each day in
// Monday..Sunday order with its periods.
func formatTwoWeeks(schedule *services.TwoWeekSchedule) string {
	var b strings.Builder
	for _, week := range schedule.Weeks {
		if len(week.Days) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n📌 <b>Неделя %d:</b>\n", week.Week)
		for _, day := range week.Days {
			name := model.WeekdayNamesRU[day.DayOfWeek]
			if name == "" {
				name = day.DayOfWeek
			}
			fmt.Fprintf(&b, "\n<b>📅 %s:</b>\n", name)
			for _, p := range day.Periods {
				b.WriteString(formatPeriod(p))
			}
		}
	}
	return b.String()
}

// chunk splits text into transport-sized message parts. Splitting prefers
// line boundaries so a period never straddles two messages.
func chunk(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var parts []string
	var current strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if current.Len()+len(line) > limit && current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
		// A single oversized line is split unconditionally, cutting on a
		// rune boundary so multi-byte characters stay intact.
		for len(line) > limit {
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
			parts = append(parts, line[:cut])
			line = line[cut:]
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// formatApplication renders one application for its owner.
func formatApplication(app model.Application) string {
	return fmt.Sprintf(
		"📄 Заявка: %s\n📅 Дата: %s\n📊 Статус: %s",
		app.Content, app.CreatedAt.Format("2006-01-02 15:04:05"), app.Status,
	)
}

// formatApplicationForStaff adds the owner's identity and contact link.
func formatApplicationForStaff(app model.Application) string {
	return fmt.Sprintf(
		"👤 <b>%s</b> — <a href='tg://user?id=%d'>[написать]</a>\n%s",
		app.User.FullName, app.User.TelegramID, formatApplication(app),
	)
}

// formatEvent renders one event card for students.
func formatEvent(event model.Event) string {
	return fmt.Sprintf(
		"🎉 <b>%s</b>\n📝 <b>Описание:</b> %s\n📎 <b>Требования:</b> %s",
		event.Title, event.Description, event.Requirements,
	)
}

// formatEventForStaff adds the creation date and active flag.
func formatEventForStaff(event model.Event) string {
	status := "🟢 Активно"
	if !event.IsActive {
		status = "⚪ Завершено"
	}
	return fmt.Sprintf(
		"%s\n📅 <b>Создано:</b> %s\n%s",
		formatEvent(event), event.CreatedAt.Format("2006-01-02 15:04:05"), status,
	)
}

// formatParticipant renders one event sign-up for staff.
func formatParticipant(p model.EventParticipant) string {
	return fmt.Sprintf(
		"👤 <b>%s</b>\n🏫 Группа: %s\n📅 Записан: %s\n<a href='tg://user?id=%d'>[написать]</a>",
		p.User.FullName, p.User.GroupName(),
		p.RegisteredAt.Format("2006-01-02 15:04:05"), p.User.TelegramID,
	)
}

// formatUser renders one user card for the admin panel.
func formatUser(u model.User) string {
	return fmt.Sprintf(
		"👤 <b>%s</b> — <a href='tg://user?id=%d'>[написать]</a>\n🏫 Группа: %s\n🆔 Telegram ID: <code>%d</code>",
		u.FullName, u.TelegramID, u.GroupName(), u.TelegramID,
	)
}

// formatStats renders the admin counters.
func formatStats(stats *services.Stats) string {
	return fmt.Sprintf(
		"📊 <b>Статистика проекта</b>\n\n"+
			"👨‍🎓 Зарегистрировано студентов: <b>%d</b>\n"+
			"✉ Подано заявок: <b>%d</b>\n"+
			"🎉 Всего мероприятий: <b>%d</b>\n"+
			"🟢 Активных мероприятий: <b>%d</b>",
		stats.TotalUsers, stats.TotalApplications, stats.TotalEvents, stats.ActiveEvents,
	)
}
