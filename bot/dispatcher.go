package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/NikFin25/deanery-bot/model"
	"github.com/NikFin25/deanery-bot/services"
	"github.com/NikFin25/deanery-bot/services/session"
)

// Dispatcher routes transport-level updates to the service layer. It owns no
// transport details beyond the Update/Reply types, so the same routing is
// exercised by the long-polling loop and by tests.
type Dispatcher struct {
	registration *services.RegistrationService
	schedule     *services.ScheduleService
	applications *services.ApplicationService
	events       *services.EventService
	admin        *services.AdminService
	sessions     session.Store
}

func NewDispatcher(
	registration *services.RegistrationService,
	schedule *services.ScheduleService,
	applications *services.ApplicationService,
	events *services.EventService,
	admin *services.AdminService,
	sessions session.Store,
) *Dispatcher {
	return &Dispatcher{
		registration: registration,
		schedule:     schedule,
		applications: applications,
		events:       events,
		admin:        admin,
		sessions:     sessions,
	}
}

// Handle processes one update and returns the replies to send, in order.
// Service failures never surface as errors to the transport: they are logged
// and turned into a generic user-facing message. The returned error is
// reserved for context cancellation and session-store outages.
func (d *Dispatcher) Handle(ctx context.Context, up Update) ([]Reply, error) {
	switch up.Kind {
	case KindStart:
		return d.handleStart(ctx, up)
	case KindText:
		return d.handleText(ctx, up)
	case KindSelect:
		return d.handleSelect(ctx, up)
	default:
		return nil, fmt.Errorf("unknown update kind %q", up.Kind)
	}
}

// handleStart resets any in-flight form, then either greets a registered user
// with their menu or opens the registration flow.
func (d *Dispatcher) handleStart(ctx context.Context, up Update) ([]Reply, error) {
	if err := d.sessions.Clear(ctx, up.UserID); err != nil {
		return nil, err
	}

	user, err := d.registration.FindByTelegramID(ctx, up.UserID)
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			log.Printf("dispatcher: find user %d: %v", up.UserID, err)
			return []Reply{d.errorReply(err)}, nil
		}
		form := &session.Form{Flow: flowRegistration}
		form.Set("telegram_id", strconv.FormatInt(up.UserID, 10))
		if err := d.sessions.Put(ctx, up.UserID, form); err != nil {
			return nil, err
		}
		return []Reply{reply("👋 Добро пожаловать!\n\n" + flows[flowRegistration].steps[0].prompt)}, nil
	}

	return []Reply{
		reply(fmt.Sprintf("👋 С возвращением, <b>%s</b>!", user.FullName)),
		menuFor(user.Role),
	}, nil
}

// handleText feeds free text into the in-flight form, if any.
func (d *Dispatcher) handleText(ctx context.Context, up Update) ([]Reply, error) {
	form, err := d.sessions.Get(ctx, up.UserID)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return d.handleIdleText(ctx, up)
		}
		return nil, err
	}

	var user *model.User
	if form.Flow != flowRegistration {
		user, err = d.requireUser(ctx, up.UserID)
		if err != nil {
			return d.unknownUserReplies(ctx, up.UserID, err)
		}
	}
	return d.continueFlow(ctx, user, up.UserID, form, up.Text)
}

// handleIdleText answers text that arrives outside of any flow.
func (d *Dispatcher) handleIdleText(ctx context.Context, up Update) ([]Reply, error) {
	user, err := d.requireUser(ctx, up.UserID)
	if err != nil {
		return d.unknownUserReplies(ctx, up.UserID, err)
	}
	return []Reply{
		reply("ℹ Используйте кнопки меню ниже."),
		menuFor(user.Role),
	}, nil
}

// handleSelect routes inline-button presses. Every top-level intent cancels a
// pending form first, so a half-filled application never bleeds into the next
// flow.
func (d *Dispatcher) handleSelect(ctx context.Context, up Update) ([]Reply, error) {
	if err := d.sessions.Clear(ctx, up.UserID); err != nil {
		return nil, err
	}

	user, err := d.requireUser(ctx, up.UserID)
	if err != nil {
		return d.unknownUserReplies(ctx, up.UserID, err)
	}

	data := up.Data
	switch {
	case data == dataTodaySchedule:
		return d.todaySchedule(ctx, user)
	case data == dataTwoWeeksSchedule:
		return d.twoWeekSchedule(ctx, user)
	case data == dataViewEvents:
		return d.viewEvents(ctx, user)
	case strings.HasPrefix(data, dataRegisterEvent):
		return d.registerForEvent(ctx, user, data)
	case data == dataDeanApplication:
		return d.startFlow(ctx, up.UserID, flowApplication)
	case data == dataMyRequests:
		return d.myRequests(ctx, user)
	case data == dataDeleteAccount:
		return []Reply{{
			Text: "⚠ Вы уверены, что хотите удалить аккаунт? Это действие необратимо.",
			Buttons: []Button{
				{Label: "✅ Да, удалить", Data: dataConfirmDelete},
				{Label: "❌ Отмена", Data: dataCancelDelete},
			},
			Edit: true,
		}}, nil
	case data == dataConfirmDelete:
		return d.deleteAccount(ctx, user)
	case data == dataCancelDelete:
		return []Reply{editReply("❌ Удаление отменено."), menuFor(user.Role)}, nil
	}

	if !user.Role.IsStaff() {
		return []Reply{reply("⛔ Недостаточно прав."), menuFor(user.Role)}, nil
	}

	switch {
	case data == dataViewRequests:
		return d.viewRequests(ctx, user)
	case strings.HasPrefix(data, dataStatusPrefix):
		return d.setApplicationStatus(ctx, user, data)
	case data == dataAddEvent:
		return d.startFlow(ctx, up.UserID, flowEventCreate)
	case data == dataAdminEvents:
		return d.manageEvents(ctx, user)
	case strings.HasPrefix(data, dataDeleteEvent):
		return d.deactivateEvent(ctx, user, data)
	case strings.HasPrefix(data, dataEventParticipants):
		return d.eventParticipants(ctx, user, data)
	}

	if user.Role != model.RoleAdmin {
		return []Reply{reply("⛔ Недостаточно прав."), menuFor(user.Role)}, nil
	}

	switch {
	case data == dataAdminUsers:
		return d.listUsers(ctx, user)
	case data == dataAdminFindUser:
		return d.startFlow(ctx, up.UserID, flowFindStudent)
	case strings.HasPrefix(data, dataAdminDeleteUser):
		return d.deleteUser(ctx, user, data)
	case data == dataAdminAssignRole:
		return d.startFlow(ctx, up.UserID, flowAssignRole)
	case data == dataAdminStats:
		return d.showStats(ctx, user)
	case data == dataAdminClearApps:
		return []Reply{{
			Text: "⚠ Удалить <b>все</b> заявки? Это действие необратимо.",
			Buttons: []Button{
				{Label: "✅ Да, удалить", Data: dataAdminClearConfirm},
				{Label: "❌ Отмена", Data: dataAdminClearCancel},
			},
			Edit: true,
		}}, nil
	case data == dataAdminClearConfirm:
		return d.clearApplications(ctx, user)
	case data == dataAdminClearCancel:
		return []Reply{editReply("❌ Очистка отменена."), menuFor(user.Role)}, nil
	}

	return []Reply{reply("⚠ Неизвестная команда."), menuFor(user.Role)}, nil
}

func (d *Dispatcher) todaySchedule(ctx context.Context, user *model.User) ([]Reply, error) {
	if user.GroupID == nil || user.Group == nil {
		return []Reply{editReply("❌ У вас не указана группа. Обратитесь в деканат."), menuFor(user.Role)}, nil
	}

	periods, err := d.schedule.Today(ctx, user.Group.Name)
	if err != nil {
		log.Printf("dispatcher: today schedule for %q: %v", user.Group.Name, err)
		return []Reply{d.errorReply(err), menuFor(user.Role)}, nil
	}
	if len(periods) == 0 {
		return []Reply{editReply("❌ На сегодня занятий нет."), menuFor(user.Role)}, nil
	}
	return []Reply{
		editReply("📅 <b>Расписание на сегодня:</b>\n\n" + formatDay(periods)),
		menuFor(user.Role),
	}, nil
}

func (d *Dispatcher) twoWeekSchedule(ctx context.Context, user *model.User) ([]Reply, error) {
	if user.GroupID == nil || user.Group == nil {
		return []Reply{editReply("❌ У вас не указана группа. Обратитесь в деканат."), menuFor(user.Role)}, nil
	}

	weeks, err := d.schedule.TwoWeeks(ctx, user.Group.Name)
	if err != nil {
		log.Printf("dispatcher: two-week schedule for %q: %v", user.Group.Name, err)
		return []Reply{d.errorReply(err), menuFor(user.Role)}, nil
	}
	text := formatTwoWeeks(weeks)
	if text == "" {
		return []Reply{editReply("❌ Расписание на две недели не найдено."), menuFor(user.Role)}, nil
	}

	parts := chunk("📅 <b>Расписание на 2 недели:</b>\n\n"+text, maxMessageLen)
	replies := make([]Reply, 0, len(parts)+1)
	if len(parts) == 1 {
		replies = append(replies, editReply(parts[0]))
	} else {
		for _, p := range parts {
			replies = append(replies, reply(p))
		}
	}
	return append(replies, menuFor(user.Role)), nil
}

func (d *Dispatcher) viewEvents(ctx context.Context, user *model.User) ([]Reply, error) {
	active, err := d.events.ListActive(ctx)
	if err != nil {
		log.Printf("dispatcher: list events: %v", err)
		return []Reply{d.errorReply(err), menuFor(user.Role)}, nil
	}
	if len(active) == 0 {
		return []Reply{editReply("❌ Сейчас нет активных мероприятий."), menuFor(user.Role)}, nil
	}

	replies := []Reply{{DeleteMenu: true, Text: "🎉 <b>Актуальные мероприятия:</b>"}}
	for _, ev := range active {
		r := Reply{Text: formatEvent(ev)}
		registered, err := d.events.IsRegistered(ctx, user.ID, ev.ID)
		if err != nil {
			log.Printf("dispatcher: check registration for event %d: %v", ev.ID, err)
			continue
		}
		if registered {
			r.Text += "\n\n✅ Вы записаны."
		} else {
			r.Buttons = []Button{{Label: "✍ Записаться", Data: fmt.Sprintf("%s%d", dataRegisterEvent, ev.ID)}}
		}
		replies = append(replies, r)
	}
	return append(replies, menuFor(user.Role)), nil
}

func (d *Dispatcher) registerForEvent(ctx context.Context, user *model.User, data string) ([]Reply, error) {
	eventID, err := trailingID(data, dataRegisterEvent)
	if err != nil {
		return []Reply{reply("⚠ Неизвестная команда."), menuFor(user.Role)}, nil
	}

	ok, err := d.events.Register(ctx, user.ID, eventID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return []Reply{reply("❌ Это мероприятие уже завершено."), menuFor(user.Role)}, nil
		}
		log.Printf("dispatcher: register user %d for event %d: %v", user.ID, eventID, err)
		return []Reply{d.errorReply(err), menuFor(user.Role)}, nil
	}
	if !ok {
		return []Reply{reply("ℹ Вы уже записаны на это мероприятие."), menuFor(user.Role)}, nil
	}
	return []Reply{reply("✅ Вы успешно записались на мероприятие!"), menuFor(user.Role)}, nil
}

func (d *Dispatcher) myRequests(ctx context.Context, user *model.User) ([]Reply, error) {
	apps, err := d.applications.ListByUser(ctx, user.ID)
	if err != nil {
		log.Printf("dispatcher: list applications for user %d: %v", user.ID, err)
		return []Reply{d.errorReply(err), menuFor(user.Role)}, nil
	}
	if len(apps) == 0 {
		return []Reply{editReply("❌ У вас пока нет заявок."), menuFor(user.Role)}, nil
	}

	replies := make([]Reply, 0, len(apps)+1)
	for _, app := range apps {
		replies = append(replies, reply(formatApplication(app)))
	}
	return append(replies, menuFor(user.Role)), nil
}

func (d *Dispatcher) deleteAccount(ctx context.Context, user *model.User) ([]Reply, error) {
	if err := d.registration.DeleteAccount(ctx, user.TelegramID); err != nil {
		log.Printf("dispatcher: delete account %d: %v", user.TelegramID, err)
		return []Reply{d.errorReply(err), menuFor(user.Role)}, nil
	}
	return []Reply{editReply("✅ Ваш аккаунт был удалён. Для повторной регистрации отправьте /start.")}, nil
}

func (d *Dispatcher) viewRequests(ctx context.Context, user *model.User) ([]Reply, error) {
	apps, err := d.applications.ListAll(ctx)
	if err != nil {
		log.Printf("dispatcher: list all applications: %v", err)
		return []Reply{d.errorReply(err), menuFor(user.Role)}, nil
	}
	if len(apps) == 0 {
		return []Reply{editReply("❌ Заявок пока нет."), menuFor(user.Role)}, nil
	}

	replies := []Reply{{DeleteMenu: true, Text: "📬 <b>Заявки студентов:</b>"}}
	for _, app := range apps {
		replies = append(replies, Reply{
			Text:    formatApplicationForStaff(app),
			Buttons: statusButtons(app.ID),
		})
	}
	return append(replies, menuFor(user.Role)), nil
}

func statusButtons(applicationID uint) []Button {
	return []Button{
		{Label: "✅ Принять", Data: fmt.Sprintf("%saccept_%d", dataStatusPrefix, applicationID)},
		{Label: "⏳ В процесс", Data: fmt.Sprintf("%sprocess_%d", dataStatusPrefix, applicationID)},
		{Label: "❌ Отклонить", Data: fmt.Sprintf("%sreject_%d", dataStatusPrefix, applicationID)},
		{Label: "✔ Выполнена", Data: fmt.Sprintf("%sdone_%d", dataStatusPrefix, applicationID)},
	}
}

var statusActions = map[string]model.ApplicationStatus{
	"accept":  model.StatusAccepted,
	"process": model.StatusInProgress,
	"reject":  model.StatusRejected,
	"done":    model.StatusDone,
}

func (d *Dispatcher) setApplicationStatus(ctx context.Context, user *model.User, data string) ([]Reply, error) {
	rest := strings.TrimPrefix(data, dataStatusPrefix)
	action, idPart, found := strings.Cut(rest, "_")
	status, known := statusActions[action]
	if !found || !known {
		return []Reply{reply("⚠ Неизвестная команда."), menuFor(user.Role)}, nil
	}
	applicationID, err := strconv.ParseUint(idPart, 10, 32)
	if err != nil {
		return []Reply{reply("⚠ Неизвестная команда."), menuFor(user.Role)}, nil
	}

	if _, err := d.applications.SetStatus(ctx, uint(applicationID), status); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return []Reply{reply("❌ Заявка не найдена."), menuFor(user.Role)}, nil
		}
		log.Printf("dispatcher: set status of application %d: %v", applicationID, err)
		return []Reply{d.errorReply(err), menuFor(user.Role)}, nil
	}
	return []Reply{reply(fmt.Sprintf("✅ Статус заявки изменён на «%s». Студент уведомлён.", status))}, nil
}

func (d *Dispatcher) manageEvents(ctx context.Context, user *model.User) ([]Reply, error) {
	all, err := d.events.ListAll(ctx)
	if err != nil {
		log.Printf("dispatcher: list all events: %v", err)
		return []Reply{d.errorReply(err), menuFor(user.Role)}, nil
	}
	if len(all) == 0 {
		return []Reply{editReply("❌ Мероприятий пока нет."), menuFor(user.Role)}, nil
	}

	replies := []Reply{{DeleteMenu: true, Text: "📋 <b>Все мероприятия:</b>"}}
	for _, ev := range all {
		buttons := []Button{
			{Label: "👥 Участники", Data: fmt.Sprintf("%s%d", dataEventParticipants, ev.ID)},
		}
		if ev.IsActive {
			buttons = append(buttons, Button{Label: "🗑 Завершить", Data: fmt.Sprintf("%s%d", dataDeleteEvent, ev.ID)})
		}
		replies = append(replies, Reply{Text: formatEventForStaff(ev), Buttons: buttons})
	}
	return append(replies, menuFor(user.Role)), nil
}

func (d *Dispatcher) deactivateEvent(ctx context.Context, user *model.User, data string) ([]Reply, error) {
	eventID, err := trailingID(data, dataDeleteEvent)
	if err != nil {
		return []Reply{reply("⚠ Неизвестная команда."), menuFor(user.Role)}, nil
	}

	if err := d.events.Deactivate(ctx, eventID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return []Reply{reply("❌ Мероприятие не найдено или уже завершено."), menuFor(user.Role)}, nil
		}
		log.Printf("dispatcher: deactivate event %d: %v", eventID, err)
		return []Reply{d.errorReply(err), menuFor(user.Role)}, nil
	}
	return []Reply{reply("✅ Мероприятие завершено и скрыто от студентов."), menuFor(user.Role)}, nil
}

func (d *Dispatcher) eventParticipants(ctx context.Context, user *model.User, data string) ([]Reply, error) {
	eventID, err := trailingID(data, dataEventParticipants)
	if err != nil {
		return []Reply{reply("⚠ Неизвестная команда."), menuFor(user.Role)}, nil
	}

	participants, err := d.events.Participants(ctx, eventID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return []Reply{reply("❌ Мероприятие не найдено."), menuFor(user.Role)}, nil
		}
		log.Printf("dispatcher: participants of event %d: %v", eventID, err)
		return []Reply{d.errorReply(err), menuFor(user.Role)}, nil
	}
	if len(participants) == 0 {
		return []Reply{reply("❌ На это мероприятие пока никто не записался."), menuFor(user.Role)}, nil
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("👥 <b>Участники (%d):</b>\n\n", len(participants)))
	for i, p := range participants {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, formatParticipant(p)))
	}
	parts := chunk(b.String(), maxMessageLen)
	replies := make([]Reply, 0, len(parts)+1)
	for _, p := range parts {
		replies = append(replies, reply(p))
	}
	return append(replies, menuFor(user.Role)), nil
}

func (d *Dispatcher) listUsers(ctx context.Context, user *model.User) ([]Reply, error) {
	users, err := d.admin.ListUsers(ctx, 50)
	if err != nil {
		log.Printf("dispatcher: list users: %v", err)
		return []Reply{d.errorReply(err), menuFor(user.Role)}, nil
	}
	if len(users) == 0 {
		return []Reply{editReply("❌ Пользователей пока нет."), menuFor(user.Role)}, nil
	}

	replies := []Reply{{DeleteMenu: true, Text: fmt.Sprintf("👥 <b>Пользователи (%d):</b>", len(users))}}
	for _, u := range users {
		replies = append(replies, Reply{
			Text:    formatUser(u),
			Buttons: []Button{{Label: "❌ Удалить", Data: fmt.Sprintf("%s%d", dataAdminDeleteUser, u.ID)}},
		})
	}
	return append(replies, menuFor(user.Role)), nil
}

func (d *Dispatcher) deleteUser(ctx context.Context, user *model.User, data string) ([]Reply, error) {
	targetID, err := trailingID(data, dataAdminDeleteUser)
	if err != nil {
		return []Reply{reply("⚠ Неизвестная команда."), menuFor(user.Role)}, nil
	}

	if err := d.admin.DeleteUser(ctx, targetID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return []Reply{reply("❌ Пользователь не найден."), menuFor(user.Role)}, nil
		}
		log.Printf("dispatcher: delete user %d: %v", targetID, err)
		return []Reply{d.errorReply(err), menuFor(user.Role)}, nil
	}
	return []Reply{reply("✅ Пользователь удалён."), menuFor(user.Role)}, nil
}

func (d *Dispatcher) showStats(ctx context.Context, user *model.User) ([]Reply, error) {
	stats, err := d.admin.Stats(ctx)
	if err != nil {
		log.Printf("dispatcher: stats: %v", err)
		return []Reply{d.errorReply(err), menuFor(user.Role)}, nil
	}
	return []Reply{editReply(formatStats(stats)), menuFor(user.Role)}, nil
}

func (d *Dispatcher) clearApplications(ctx context.Context, user *model.User) ([]Reply, error) {
	removed, err := d.applications.ClearAll(ctx)
	if err != nil {
		log.Printf("dispatcher: clear applications: %v", err)
		return []Reply{d.errorReply(err), menuFor(user.Role)}, nil
	}
	return []Reply{
		editReply(fmt.Sprintf("✅ Все заявки удалены (%d шт.).", removed)),
		menuFor(user.Role),
	}, nil
}

// requireUser resolves the registered user behind an update.
func (d *Dispatcher) requireUser(ctx context.Context, telegramID int64) (*model.User, error) {
	return d.registration.FindByTelegramID(ctx, telegramID)
}

// unknownUserReplies nudges an unregistered sender into the registration flow.
func (d *Dispatcher) unknownUserReplies(ctx context.Context, telegramID int64, err error) ([]Reply, error) {
	if !errors.Is(err, services.ErrNotFound) {
		log.Printf("dispatcher: find user %d: %v", telegramID, err)
		return []Reply{d.errorReply(err)}, nil
	}
	return []Reply{reply("❌ Вы не зарегистрированы. Отправьте /start, чтобы начать.")}, nil
}

func (d *Dispatcher) errorReply(err error) Reply {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return reply("❌ Данные не найдены.")
	default:
		return reply("⚠ Произошла ошибка. Попробуйте позже.")
	}
}

// trailingID parses the numeric suffix of a callback token like
// "register_event_42".
func trailingID(data, prefix string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(data, prefix), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("callback %q: %w", data, err)
	}
	return uint(id), nil
}
