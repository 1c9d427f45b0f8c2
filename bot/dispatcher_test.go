package bot

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/NikFin25/deanery-bot/database"
	"github.com/NikFin25/deanery-bot/model"
	"github.com/NikFin25/deanery-bot/services"
	"github.com/NikFin25/deanery-bot/services/session"
)

// fakeNotifier records pushed messages instead of talking to a chat API.
type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) Notify(ctx context.Context, telegramID int64, text string) error {
	f.sent = append(f.sent, text)
	return nil
}

type fixture struct {
	dispatcher *Dispatcher
	db         *gorm.DB
	notifier   *fakeNotifier
}

func setupDispatcher(t *testing.T) *fixture {
	t.Helper()

	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run.")
	}

	store, err := database.StartGORM()
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	if err := store.Init(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	db := store.GetDB()
	notifier := &fakeNotifier{}

	registration := services.NewRegistrationService(db, false)
	notifications := services.NewNotificationService(db, notifier)

	dispatcher := NewDispatcher(
		registration,
		services.NewScheduleService(db),
		services.NewApplicationService(db, notifications),
		services.NewEventService(db),
		services.NewAdminService(db, registration),
		session.NewMemoryStore(session.DefaultTTL),
	)
	return &fixture{dispatcher: dispatcher, db: db, notifier: notifier}
}

func repliesText(replies []Reply) string {
	var b strings.Builder
	for _, r := range replies {
		b.WriteString(r.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// register walks a fresh telegram id through /start and the registration form.
func register(t *testing.T, f *fixture, telegramID int64, raw string) {
	t.Helper()
	ctx := context.Background()

	replies, err := f.dispatcher.Handle(ctx, Update{UserID: telegramID, Kind: KindStart})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(repliesText(replies), "ФИО") {
		t.Fatalf("start did not prompt registration: %q", repliesText(replies))
	}

	replies, err = f.dispatcher.Handle(ctx, Update{UserID: telegramID, Kind: KindText, Text: raw})
	if err != nil {
		t.Fatalf("registration input: %v", err)
	}
	if !strings.Contains(repliesText(replies), "Регистрация успешна") {
		t.Fatalf("registration failed: %q", repliesText(replies))
	}
}

func TestDispatcherRegistrationFlow(t *testing.T) {
	f := setupDispatcher(t)
	ctx := context.Background()
	telegramID := time.Now().UnixNano()

	replies, err := f.dispatcher.Handle(ctx, Update{UserID: telegramID, Kind: KindStart})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(repliesText(replies), "ФИО") {
		t.Fatalf("unexpected start reply: %q", repliesText(replies))
	}

	// Bad format keeps the form alive and re-prompts.
	replies, err = f.dispatcher.Handle(ctx, Update{UserID: telegramID, Kind: KindText, Text: "Иванов Иван"})
	if err != nil {
		t.Fatalf("bad input: %v", err)
	}
	if !strings.Contains(repliesText(replies), "Неверный формат") {
		t.Fatalf("bad format not reported: %q", repliesText(replies))
	}

	raw := fmt.Sprintf("Иванов Иван Иванович ТЕСТ-ДС-%d", telegramID)
	replies, err = f.dispatcher.Handle(ctx, Update{UserID: telegramID, Kind: KindText, Text: raw})
	if err != nil {
		t.Fatalf("registration: %v", err)
	}
	text := repliesText(replies)
	if !strings.Contains(text, "Регистрация успешна") {
		t.Fatalf("registration failed: %q", text)
	}
	if !strings.Contains(text, "Главное меню") {
		t.Fatalf("no menu after registration: %q", text)
	}

	// A registered user who sends /start again gets the menu, not the form.
	replies, err = f.dispatcher.Handle(ctx, Update{UserID: telegramID, Kind: KindStart})
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if !strings.Contains(repliesText(replies), "С возвращением") {
		t.Fatalf("second start replied %q", repliesText(replies))
	}
}

func TestDispatcherApplicationFlow(t *testing.T) {
	f := setupDispatcher(t)
	ctx := context.Background()
	telegramID := time.Now().UnixNano()
	register(t, f, telegramID, fmt.Sprintf("Петров Пётр Петрович ТЕСТ-ПЗ-%d", telegramID))

	replies, err := f.dispatcher.Handle(ctx, Update{UserID: telegramID, Kind: KindSelect, Data: dataDeanApplication})
	if err != nil {
		t.Fatalf("open application flow: %v", err)
	}
	if !strings.Contains(repliesText(replies), "тему") {
		t.Fatalf("no subject prompt: %q", repliesText(replies))
	}

	replies, err = f.dispatcher.Handle(ctx, Update{UserID: telegramID, Kind: KindText, Text: "Справка об обучении"})
	if err != nil {
		t.Fatalf("subject input: %v", err)
	}
	if !strings.Contains(repliesText(replies), "описание") {
		t.Fatalf("no description prompt: %q", repliesText(replies))
	}

	replies, err = f.dispatcher.Handle(ctx, Update{UserID: telegramID, Kind: KindText, Text: "-"})
	if err != nil {
		t.Fatalf("description input: %v", err)
	}
	if !strings.Contains(repliesText(replies), "отправлена в деканат") {
		t.Fatalf("application not confirmed: %q", repliesText(replies))
	}

	replies, err = f.dispatcher.Handle(ctx, Update{UserID: telegramID, Kind: KindSelect, Data: dataMyRequests})
	if err != nil {
		t.Fatalf("my requests: %v", err)
	}
	if !strings.Contains(repliesText(replies), "Справка об обучении") {
		t.Fatalf("filed application not listed: %q", repliesText(replies))
	}
}

func TestDispatcherTopLevelIntentCancelsForm(t *testing.T) {
	f := setupDispatcher(t)
	ctx := context.Background()
	telegramID := time.Now().UnixNano()
	register(t, f, telegramID, fmt.Sprintf("Сидоров Семён Семёнович ТЕСТ-ОФ-%d", telegramID))

	if _, err := f.dispatcher.Handle(ctx, Update{UserID: telegramID, Kind: KindSelect, Data: dataDeanApplication}); err != nil {
		t.Fatalf("open application flow: %v", err)
	}

	// Tapping another menu button mid-form discards the accumulator.
	if _, err := f.dispatcher.Handle(ctx, Update{UserID: telegramID, Kind: KindSelect, Data: dataMyRequests}); err != nil {
		t.Fatalf("switch intent: %v", err)
	}

	replies, err := f.dispatcher.Handle(ctx, Update{UserID: telegramID, Kind: KindText, Text: "осиротевший ввод"})
	if err != nil {
		t.Fatalf("idle text: %v", err)
	}
	if !strings.Contains(repliesText(replies), "кнопки меню") {
		t.Fatalf("stale form was not cancelled: %q", repliesText(replies))
	}
}

func TestDispatcherRoleGates(t *testing.T) {
	f := setupDispatcher(t)
	ctx := context.Background()
	telegramID := time.Now().UnixNano()
	register(t, f, telegramID, fmt.Sprintf("Козлова Анна Павловна ТЕСТ-РГ-%d", telegramID))

	// A student cannot reach staff or admin surfaces.
	for _, data := range []string{dataViewRequests, dataAddEvent, dataAdminUsers, dataAdminStats} {
		replies, err := f.dispatcher.Handle(ctx, Update{UserID: telegramID, Kind: KindSelect, Data: data})
		if err != nil {
			t.Fatalf("select %q: %v", data, err)
		}
		if !strings.Contains(repliesText(replies), "Недостаточно прав") {
			t.Fatalf("token %q leaked to student: %q", data, repliesText(replies))
		}
	}

	// A dean gets staff surfaces but not the admin panel.
	if err := f.db.Model(&model.User{}).Where("telegram_id = ?", telegramID).Update("role", model.RoleDean).Error; err != nil {
		t.Fatalf("promote to dean: %v", err)
	}
	replies, err := f.dispatcher.Handle(ctx, Update{UserID: telegramID, Kind: KindSelect, Data: dataViewRequests})
	if err != nil {
		t.Fatalf("dean view requests: %v", err)
	}
	if strings.Contains(repliesText(replies), "Недостаточно прав") {
		t.Fatalf("dean blocked from staff surface: %q", repliesText(replies))
	}
	replies, err = f.dispatcher.Handle(ctx, Update{UserID: telegramID, Kind: KindSelect, Data: dataAdminStats})
	if err != nil {
		t.Fatalf("dean admin stats: %v", err)
	}
	if !strings.Contains(repliesText(replies), "Недостаточно прав") {
		t.Fatalf("admin panel leaked to dean: %q", repliesText(replies))
	}
}

func TestDispatcherEventSignup(t *testing.T) {
	f := setupDispatcher(t)
	ctx := context.Background()

	staffID := time.Now().UnixNano()
	register(t, f, staffID, fmt.Sprintf("Смирнова Елена Викторовна ТЕСТ-МС-%d", staffID))
	if err := f.db.Model(&model.User{}).Where("telegram_id = ?", staffID).Update("role", model.RoleDean).Error; err != nil {
		t.Fatalf("promote to dean: %v", err)
	}

	// Dean creates an event through the three-step form.
	if _, err := f.dispatcher.Handle(ctx, Update{UserID: staffID, Kind: KindSelect, Data: dataAddEvent}); err != nil {
		t.Fatalf("open event flow: %v", err)
	}
	title := fmt.Sprintf("Субботник %d", staffID)
	for _, input := range []string{title, "Уборка территории", "-"} {
		if _, err := f.dispatcher.Handle(ctx, Update{UserID: staffID, Kind: KindText, Text: input}); err != nil {
			t.Fatalf("event flow input %q: %v", input, err)
		}
	}

	studentID := staffID + 1
	register(t, f, studentID, fmt.Sprintf("Орлов Олег Олегович ТЕСТ-МС2-%d", studentID))

	replies, err := f.dispatcher.Handle(ctx, Update{UserID: studentID, Kind: KindSelect, Data: dataViewEvents})
	if err != nil {
		t.Fatalf("view events: %v", err)
	}
	var signupData string
	for _, r := range replies {
		if !strings.Contains(r.Text, title) {
			continue
		}
		for _, b := range r.Buttons {
			if strings.HasPrefix(b.Data, dataRegisterEvent) {
				signupData = b.Data
			}
		}
	}
	if signupData == "" {
		t.Fatalf("no sign-up button for %q: %q", title, repliesText(replies))
	}

	replies, err = f.dispatcher.Handle(ctx, Update{UserID: studentID, Kind: KindSelect, Data: signupData})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if !strings.Contains(repliesText(replies), "успешно записались") {
		t.Fatalf("sign-up not confirmed: %q", repliesText(replies))
	}

	replies, err = f.dispatcher.Handle(ctx, Update{UserID: studentID, Kind: KindSelect, Data: signupData})
	if err != nil {
		t.Fatalf("repeat sign-up: %v", err)
	}
	if !strings.Contains(repliesText(replies), "уже записаны") {
		t.Fatalf("duplicate sign-up not reported: %q", repliesText(replies))
	}
}
