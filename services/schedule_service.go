package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/NikFin25/deanery-bot/model"
	"gorm.io/gorm"
)

// ScheduleService resolves the two timetable views: today and the full
// two-week rotation.
type ScheduleService struct {
	db *gorm.DB

	// now is swappable in tests.
	now func() time.Time
}

// NewScheduleService creates a new schedule service
func NewScheduleService(db *gorm.DB) *ScheduleService {
	return &ScheduleService{db: db, now: time.Now}
}

// DaySchedule is one weekday's ordered periods.
type DaySchedule struct {
	DayOfWeek string           `json:"day_of_week"`
	Periods   []model.Schedule `json:"periods"`
}

// WeekSchedule is one parity's days, ordered Monday..Sunday.
type WeekSchedule struct {
	Week int           `json:"week"`
	Days []DaySchedule `json:"days"`
}

// TwoWeekSchedule is the full rotation: week 1 then week 2. The shape is
// serializable incrementally (week, then day) so the presentation layer can
// split long renderings into message-sized chunks.
type TwoWeekSchedule struct {
	Weeks [2]WeekSchedule `json:"weeks"`
}

// WeekdayToken converts a time.Weekday to the canonical stored token.
func WeekdayToken(d time.Weekday) string {
	switch d {
	case time.Monday:
		return model.Monday
	case time.Tuesday:
		return model.Tuesday
	case time.Wednesday:
		return model.Wednesday
	case time.Thursday:
		return model.Thursday
	case time.Friday:
		return model.Friday
	case time.Saturday:
		return model.Saturday
	case time.Sunday:
		return model.Sunday
	}
	return ""
}

// WeekParity derives the fixed two-cycle label from the ISO calendar week:
// odd weeks are 1, even weeks are 2.
func WeekParity(t time.Time) int {
	_, week := t.ISOWeek()
	if week%2 == 1 {
		return 1
	}
	return 2
}

// findGroup resolves a normalized group name, distinguishing a missing group
// from a group with no timetable.
func (s *ScheduleService) findGroup(ctx context.Context, groupName string) (*model.Group, error) {
	var group model.Group
	err := s.db.WithContext(ctx).
		Where("name = ?", NormalizeGroupName(groupName)).
		First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: group %q", ErrNotFound, groupName)
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// Today returns the group's periods for the current weekday and week parity,
// ordered by start time. A group with no matching rows gets an empty slice,
// not an error; an unknown group gets ErrNotFound.
func (s *ScheduleService) Today(ctx context.Context, groupName string) ([]model.Schedule, error) {
	group, err := s.findGroup(ctx, groupName)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var rows []model.Schedule
	err = s.db.WithContext(ctx).
		Where("group_id = ? AND day_of_week = ? AND week = ?",
			group.ID, WeekdayToken(now.Weekday()), WeekParity(now)).
		Order("start_time ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch today's schedule: %w", err)
	}
	return rows, nil
}

// TwoWeeks returns the group's full rotation bucketed by (week, weekday),
// weekdays ordered Monday..Sunday and periods ordered by start time,
// regardless of storage order.
func (s *ScheduleService) TwoWeeks(ctx context.Context, groupName string) (*TwoWeekSchedule, error) {
	group, err := s.findGroup(ctx, groupName)
	if err != nil {
		return nil, err
	}

	var rows []model.Schedule
	err = s.db.WithContext(ctx).
		Where("group_id = ?", group.ID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch two-week schedule: %w", err)
	}

	return BucketTwoWeeks(rows), nil
}

// BucketTwoWeeks partitions schedule rows into the nested week → day → periods
// shape. Rows with an unknown weekday token or week outside {1,2} are dropped.
func BucketTwoWeeks(rows []model.Schedule) *TwoWeekSchedule {
	byWeekDay := make(map[int]map[string][]model.Schedule)
	for _, row := range rows {
		if row.Week != 1 && row.Week != 2 {
			continue
		}
		if _, ok := model.WeekdayOrder[row.DayOfWeek]; !ok {
			continue
		}
		if byWeekDay[row.Week] == nil {
			byWeekDay[row.Week] = make(map[string][]model.Schedule)
		}
		byWeekDay[row.Week][row.DayOfWeek] = append(byWeekDay[row.Week][row.DayOfWeek], row)
	}

	result := &TwoWeekSchedule{}
	for i := range result.Weeks {
		week := i + 1
		result.Weeks[i].Week = week

		days := byWeekDay[week]
		tokens := make([]string, 0, len(days))
		for token := range days {
			tokens = append(tokens, token)
		}
		sort.Slice(tokens, func(a, b int) bool {
			return model.WeekdayOrder[tokens[a]] < model.WeekdayOrder[tokens[b]]
		})

		for _, token := range tokens {
			periods := days[token]
			sort.Slice(periods, func(a, b int) bool {
				return periods[a].StartTime < periods[b].StartTime
			})
			result.Weeks[i].Days = append(result.Weeks[i].Days, DaySchedule{
				DayOfWeek: token,
				Periods:   periods,
			})
		}
	}
	return result
}

// CurrentSemester returns the group's semester whose date range contains today.
func (s *ScheduleService) CurrentSemester(ctx context.Context, groupName string) (*model.Semester, error) {
	group, err := s.findGroup(ctx, groupName)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var sem model.Semester
	err = s.db.WithContext(ctx).
		Where("group_id = ? AND start_date <= ? AND end_date >= ?", group.ID, now, now).
		First(&sem).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no current semester for group %q", ErrNotFound, groupName)
	}
	if err != nil {
		return nil, err
	}
	return &sem, nil
}
