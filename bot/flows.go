package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/NikFin25/deanery-bot/model"
	"github.com/NikFin25/deanery-bot/services"
	"github.com/NikFin25/deanery-bot/services/session"
)

// Flow names stored in the session accumulator.
const (
	flowRegistration = "registration"
	flowApplication  = "application"
	flowEventCreate  = "event_create"
	flowAssignRole   = "assign_role"
	flowFindStudent  = "find_student"
)

// flowStep is one awaited input. Optional steps normalize a literal "-" to
// the empty string before storing.
type flowStep struct {
	field    string
	prompt   string
	optional bool
	// reject, when set, screens the input before it is stored; a non-empty
	// return is shown to the user and the same step is re-prompted.
	reject func(value string) string
}

// flowSpec is a finite sequence of steps plus the terminal commit. Input at a
// non-terminal step is stored verbatim and advances unconditionally; only the
// commit validates (registration format, role names) and persists.
type flowSpec struct {
	name      string
	staffOnly bool
	adminOnly bool
	steps     []flowStep
	commit    func(ctx context.Context, d *Dispatcher, user *model.User, fields map[string]string) ([]Reply, error)
}

var flows = map[string]flowSpec{
	flowRegistration: {
		name: flowRegistration,
		steps: []flowStep{
			{field: "raw", prompt: "Введите ваше <b>ФИО и группу</b> в формате:\n<i>Иванов Иван Иванович 21-СПО-ИСиП-02</i>"},
		},
		commit: commitRegistration,
	},
	flowApplication: {
		name: flowApplication,
		steps: []flowStep{
			{field: "subject", prompt: "📝 Введите <b>тему</b> вашей заявки:"},
			{field: "description", prompt: "✏ Теперь введите <b>описание</b> вашей заявки или напишите «-», если без описания:", optional: true},
		},
		commit: commitApplication,
	},
	flowEventCreate: {
		name:      flowEventCreate,
		staffOnly: true,
		steps: []flowStep{
			{field: "title", prompt: "📌 Введите <b>тему мероприятия</b>:"},
			{field: "description", prompt: "✏ Введите <b>описание мероприятия</b>:"},
			{field: "requirements", prompt: "📎 Введите <b>требования</b> или '-' если их нет:", optional: true},
		},
		commit: commitEventCreate,
	},
	flowAssignRole: {
		name:      flowAssignRole,
		adminOnly: true,
		steps: []flowStep{
			{field: "telegram_id", prompt: "🆔 Введите <b>Telegram ID</b> пользователя:", reject: rejectNonNumericID},
			{field: "role", prompt: "👤 Введите роль: <i>student</i>, <i>dean</i> или <i>admin</i>:"},
		},
		commit: commitAssignRole,
	},
	flowFindStudent: {
		name:      flowFindStudent,
		adminOnly: true,
		steps: []flowStep{
			{field: "query", prompt: "🔎 Введите ФИО, группу или Telegram ID для поиска:"},
		},
		commit: commitFindStudent,
	},
}

// startFlow replaces whatever form was pending with a fresh accumulator and
// prompts the first step.
func (d *Dispatcher) startFlow(ctx context.Context, telegramID int64, name string) ([]Reply, error) {
	spec := flows[name]
	form := &session.Form{Flow: name, Step: 0}
	if err := d.sessions.Put(ctx, telegramID, form); err != nil {
		return nil, err
	}
	return []Reply{editReply(spec.steps[0].prompt)}, nil
}

// continueFlow consumes one free-text message for the user's in-flight form.
func (d *Dispatcher) continueFlow(ctx context.Context, user *model.User, telegramID int64, form *session.Form, text string) ([]Reply, error) {
	spec, ok := flows[form.Flow]
	if !ok || form.Step >= len(spec.steps) {
		// Corrupt accumulator: drop it rather than leak it into a later flow.
		_ = d.sessions.Clear(ctx, telegramID)
		return []Reply{reply("⚠ Сессия устарела. Начните заново через /start.")}, nil
	}

	// Roles can change mid-flow; an accumulator started under a higher role
	// must not commit after a demotion.
	if spec.staffOnly || spec.adminOnly {
		if user == nil || !user.Role.IsStaff() || (spec.adminOnly && user.Role != model.RoleAdmin) {
			_ = d.sessions.Clear(ctx, telegramID)
			return []Reply{reply("⛔ Недостаточно прав.")}, nil
		}
	}

	step := spec.steps[form.Step]
	value := text
	if step.optional && strings.TrimSpace(value) == "-" {
		value = ""
	}
	if step.reject != nil {
		if msg := step.reject(value); msg != "" {
			if err := d.sessions.Put(ctx, telegramID, form); err != nil {
				return nil, err
			}
			return []Reply{reply(msg), reply(step.prompt)}, nil
		}
	}
	form.Set(step.field, value)
	form.Step++

	if form.Step < len(spec.steps) {
		if err := d.sessions.Put(ctx, telegramID, form); err != nil {
			return nil, err
		}
		return []Reply{reply(spec.steps[form.Step].prompt)}, nil
	}

	// Terminal step: commit, then clear the accumulator. A format error keeps
	// the form suspended at the failed step so the user can retry.
	replies, err := spec.commit(ctx, d, user, form.Fields)
	if err != nil {
		if isFormatError(err) {
			form.Step--
			if perr := d.sessions.Put(ctx, telegramID, form); perr != nil {
				return nil, perr
			}
			return append(replies, reply(spec.steps[form.Step].prompt)), nil
		}
		_ = d.sessions.Clear(ctx, telegramID)
		return append(replies, d.errorReply(err)), nil
	}

	if err := d.sessions.Clear(ctx, telegramID); err != nil {
		return nil, err
	}
	return replies, nil
}

func isFormatError(err error) bool {
	return errors.Is(err, services.ErrBadFormat)
}

// rejectNonNumericID guards steps that collect a Telegram ID, so a typo is
// caught while the step is still the current one.
func rejectNonNumericID(value string) string {
	if _, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err != nil {
		return "❌ Telegram ID должен быть числом."
	}
	return ""
}

func commitRegistration(ctx context.Context, d *Dispatcher, _ *model.User, fields map[string]string) ([]Reply, error) {
	// The dispatcher stashes the telegram id for flows that run before the
	// user row exists.
	telegramID, _ := strconv.ParseInt(fields["telegram_id"], 10, 64)

	user, err := d.registration.Register(ctx, telegramID, fields["raw"])
	if err != nil {
		if errors.Is(err, services.ErrBadFormat) {
			return []Reply{reply("❌ Неверный формат. Введите ФИО и группу.\n\nПример:\n<b>Иванов Иван Иванович 21-СПО-ИСиП-02</b>")}, err
		}
		if errors.Is(err, services.ErrDuplicate) {
			return []Reply{reply("❌ Ошибка регистрации. Возможно, вы уже зарегистрированы.")}, nil
		}
		if errors.Is(err, services.ErrNotAllowed) {
			return []Reply{reply("❌ Вас нет в списке студентов. Обратитесь в деканат.")}, nil
		}
		return nil, err
	}

	return []Reply{
		reply(fmt.Sprintf("✅ Регистрация успешна!\nФИО: %s\nГруппа: %s", user.FullName, user.GroupName())),
		menuFor(user.Role),
	}, nil
}

func commitApplication(ctx context.Context, d *Dispatcher, user *model.User, fields map[string]string) ([]Reply, error) {
	if _, err := d.applications.Create(ctx, user.ID, fields["subject"], fields["description"]); err != nil {
		return nil, err
	}
	return []Reply{
		reply("✅ Ваша заявка была отправлена в деканат."),
		menuFor(user.Role),
	}, nil
}

func commitEventCreate(ctx context.Context, d *Dispatcher, user *model.User, fields map[string]string) ([]Reply, error) {
	if _, err := d.events.Create(ctx, fields["title"], fields["description"], fields["requirements"]); err != nil {
		return nil, err
	}
	return []Reply{
		reply("✅ Мероприятие успешно создано и доступно студентам."),
		menuFor(user.Role),
	}, nil
}

func commitAssignRole(ctx context.Context, d *Dispatcher, user *model.User, fields map[string]string) ([]Reply, error) {
	// The id step rejects non-numeric input before storing it.
	targetID, _ := strconv.ParseInt(strings.TrimSpace(fields["telegram_id"]), 10, 64)

	role := model.Role(strings.ToLower(strings.TrimSpace(fields["role"])))
	target, err := d.admin.AssignRole(ctx, targetID, role)
	if err != nil {
		if errors.Is(err, services.ErrBadFormat) {
			return []Reply{reply("❌ Неизвестная роль. Допустимо: student, dean, admin.")}, err
		}
		return nil, err
	}

	return []Reply{
		reply(fmt.Sprintf("✅ Пользователю <b>%s</b> назначена роль <b>%s</b>.", target.FullName, target.Role)),
		menuFor(user.Role),
	}, nil
}

func commitFindStudent(ctx context.Context, d *Dispatcher, user *model.User, fields map[string]string) ([]Reply, error) {
	found, err := d.admin.FindUsers(ctx, strings.TrimSpace(fields["query"]))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return []Reply{reply("❌ Пользователь не найден."), menuFor(user.Role)}, nil
	}

	replies := make([]Reply, 0, len(found)+1)
	for _, u := range found {
		replies = append(replies, Reply{
			Text:    formatUser(u),
			Buttons: []Button{{Label: "❌ Удалить", Data: fmt.Sprintf("%s%d", dataAdminDeleteUser, u.ID)}},
		})
	}
	return append(replies, menuFor(user.Role)), nil
}
