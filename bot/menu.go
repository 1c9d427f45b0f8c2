package bot

import (
	"github.com/NikFin25/deanery-bot/model"
)

// Callback tokens. They mirror the menu choices the transport renders as
// buttons; parameterized tokens carry a trailing numeric id.
const (
	dataTodaySchedule    = "today_schedule"
	dataTwoWeeksSchedule = "two_weeks_schedule"
	dataViewEvents       = "view_events"
	dataRegisterEvent    = "register_event_" // + event id
	dataDeanApplication  = "dean_application"
	dataMyRequests       = "my_requests"
	dataDeleteAccount    = "delete_account"
	dataConfirmDelete    = "confirm_delete"
	dataCancelDelete     = "cancel_delete"

	dataViewRequests      = "view_requests"
	dataStatusPrefix      = "status_" // + action + "_" + application id
	dataAddEvent          = "add_event"
	dataAdminEvents       = "admin_events"
	dataDeleteEvent       = "delete_event_"       // + event id
	dataEventParticipants = "event_participants_" // + event id

	dataAdminUsers        = "admin_users"
	dataAdminFindUser     = "admin_find_user"
	dataAdminDeleteUser   = "admin_delete_user_" // + user row id
	dataAdminAssignRole   = "admin_assign_role"
	dataAdminStats        = "admin_stats"
	dataAdminClearApps    = "admin_clear_apps"
	dataAdminClearConfirm = "admin_clear_confirm"
	dataAdminClearCancel  = "admin_clear_cancel"
)

// menuFor picks the menu for a stored role. The switch is exhaustive over
// model.Role; an unknown role falls back to the student menu.
func menuFor(role model.Role) Reply {
	switch role {
	case model.RoleDean:
		return staffMenu()
	case model.RoleAdmin:
		return adminMenu()
	case model.RoleStudent:
		return studentMenu()
	}
	return studentMenu()
}

func studentMenu() Reply {
	return Reply{
		Text: "📋 Главное меню",
		Buttons: []Button{
			{Label: "📅 Сегодня", Data: dataTodaySchedule},
			{Label: "📅 Расписание на 2 недели", Data: dataTwoWeeksSchedule},
			{Label: "🎉 Мероприятия", Data: dataViewEvents},
			{Label: "✉ Заявка в деканат", Data: dataDeanApplication},
			{Label: "📥 Мои заявки", Data: dataMyRequests},
			{Label: "🗑 Удалить аккаунт", Data: dataDeleteAccount},
		},
	}
}

func staffMenu() Reply {
	return Reply{
		Text: "📋 Главное меню (Деканат)",
		Buttons: []Button{
			{Label: "📥 Заявки студентов", Data: dataViewRequests},
			{Label: "📣 Добавить мероприятие", Data: dataAddEvent},
			{Label: "🎉 Мероприятия", Data: dataAdminEvents},
		},
	}
}

// adminMenu extends the staff menu with the admin panel.
func adminMenu() Reply {
	menu := staffMenu()
	menu.Text = "🛠 Главное меню (Администратор)"
	menu.Buttons = append(menu.Buttons,
		Button{Label: "📋 Пользователи", Data: dataAdminUsers},
		Button{Label: "🔍 Поиск студента", Data: dataAdminFindUser},
		Button{Label: "👤 Назначить роль", Data: dataAdminAssignRole},
		Button{Label: "📊 Отчёты", Data: dataAdminStats},
		Button{Label: "🧹 Очистить заявки", Data: dataAdminClearApps},
	)
	return menu
}
