package analytics

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"tapandtrack-backend/internal/platform/apperr"
)

type Service struct {
	store ReadStore
	clock func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{
		store: NewStore(db),
		clock: func() time.Time { return time.Now().UTC() },
	}
}

// SessionStats: 件数・先頭/末尾の打刻・出席者一覧（time_in昇順）
func (s *Service) SessionStats(ctx context.Context, code string) (SessionStatsResponse, error) {
	if strings.TrimSpace(code) == "" {
		return SessionStatsResponse{}, apperr.Invalid("sessionCode is required")
	}
	sess, err := s.store.GetSession(ctx, code)
	if err != nil {
		return SessionStatsResponse{}, err
	}
	if sess == nil {
		return SessionStatsResponse{}, apperr.NotFound("session not found")
	}

	entries, err := s.store.SessionAttendance(ctx, code)
	if err != nil {
		return SessionStatsResponse{}, err
	}

	out := SessionStatsResponse{
		Count:     int64(len(entries)),
		Attendees: make([]AttendeeStat, 0, len(entries)),
	}
	for _, e := range entries {
		out.Attendees = append(out.Attendees, AttendeeStat{AttendeeID: e.AttendeeID, TimeIn: e.TimeIn})
	}
	if len(entries) > 0 {
		first := entries[0].TimeIn
		last := entries[len(entries)-1].TimeIn
		out.FirstTimeIn = &first
		out.LastTimeIn = &last
	}
	return out, nil
}

// OwnerOverview: 集計はすべてDB側のGROUP/COUNTに寄せ、クエリ数を一定にする
func (s *Service) OwnerOverview(ctx context.Context, ownerID string) (OwnerOverviewResponse, error) {
	if strings.TrimSpace(ownerID) == "" {
		return OwnerOverviewResponse{}, apperr.Invalid("ownerId is required")
	}

	total, active, err := s.store.OwnerSessionCounts(ctx, ownerID)
	if err != nil {
		return OwnerOverviewResponse{}, err
	}
	totalAttendance, err := s.store.OwnerAttendanceTotal(ctx, ownerID)
	if err != nil {
		return OwnerOverviewResponse{}, err
	}

	out := OwnerOverviewResponse{
		TotalSessions:     total,
		ActiveSessions:    active,
		CompletedSessions: total - active,
		TotalAttendance:   totalAttendance,
	}
	if total > 0 {
		out.AverageAttendancePerSession = float64(totalAttendance) / float64(total)
	}
	return out, nil
}

// AttendeeOverview: UTCの暦で今日/今週(日曜始まり)/今月に区切って数える
func (s *Service) AttendeeOverview(ctx context.Context, attendeeID string) (AttendeeOverviewResponse, error) {
	if strings.TrimSpace(attendeeID) == "" {
		return AttendeeOverviewResponse{}, apperr.Invalid("attendeeId is required")
	}

	records, err := s.store.AttendeeRecords(ctx, attendeeID)
	if err != nil {
		return AttendeeOverviewResponse{}, err
	}

	now := s.clock().UTC()
	today := dayStart(now)
	weekStart := today.AddDate(0, 0, -int(now.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	out := AttendeeOverviewResponse{
		TotalAttendance:  int64(len(records)),
		RecentAttendance: records,
	}
	for _, r := range records {
		t := r.TimeIn.UTC()
		if !t.Before(today) {
			out.TodayAttendance++
		}
		if !t.Before(weekStart) {
			out.ThisWeekAttendance++
		}
		if !t.Before(monthStart) {
			out.ThisMonthAttendance++
		}
	}
	if len(out.RecentAttendance) > recentAttendanceLimit {
		out.RecentAttendance = out.RecentAttendance[:recentAttendanceLimit]
	}
	if out.RecentAttendance == nil {
		out.RecentAttendance = []AttendanceEntry{}
	}
	return out, nil
}

// ExportSession: その時点のスナップショット文書を作る
func (s *Service) ExportSession(ctx context.Context, code string) (ExportResponse, error) {
	if strings.TrimSpace(code) == "" {
		return ExportResponse{}, apperr.Invalid("sessionCode is required")
	}

	sess, entries, err := s.store.ExportSnapshot(ctx, code)
	if err != nil {
		return ExportResponse{}, err
	}
	if sess == nil {
		return ExportResponse{}, apperr.NotFound("session not found")
	}
	if entries == nil {
		entries = []AttendanceEntry{}
	}
	return ExportResponse{
		Session:    *sess,
		Attendance: entries,
		ExportedAt: s.clock(),
	}, nil
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
