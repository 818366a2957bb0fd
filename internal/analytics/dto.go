package analytics

import "time"

const recentAttendanceLimit = 10

type SessionInfo struct {
	SessionID   string     `json:"sessionId"`
	OwnerID     string     `json:"ownerId"`
	Subject     string     `json:"subject"`
	SessionCode string     `json:"sessionCode"`
	CreatedAt   time.Time  `json:"createdAt"`
	IsActive    bool       `json:"isActive"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

type AttendanceEntry struct {
	AttendanceID string    `json:"attendanceId"`
	AttendeeID   string    `json:"attendeeId"`
	SessionCode  string    `json:"sessionCode"`
	TimeIn       time.Time `json:"timeIn"`
}

type AttendeeStat struct {
	AttendeeID string    `json:"attendeeId"`
	TimeIn     time.Time `json:"timeIn"`
}

type SessionStatsResponse struct {
	Count       int64          `json:"count"`
	FirstTimeIn *time.Time     `json:"firstTimeIn"` // count==0 のとき null
	LastTimeIn  *time.Time     `json:"lastTimeIn"`  // 同上
	Attendees   []AttendeeStat `json:"attendees"`
}

type OwnerOverviewResponse struct {
	TotalSessions     int64 `json:"totalSessions"`
	ActiveSessions    int64 `json:"activeSessions"`
	CompletedSessions int64 `json:"completedSessions"`
	TotalAttendance   int64 `json:"totalAttendance"`
	// 平均は小数で返す（全経路で統一。整数切り捨ては使わない）
	AverageAttendancePerSession float64 `json:"averageAttendancePerSession"`
}

type AttendeeOverviewResponse struct {
	TotalAttendance     int64             `json:"totalAttendance"`
	TodayAttendance     int64             `json:"todayAttendance"`
	ThisWeekAttendance  int64             `json:"thisWeekAttendance"`
	ThisMonthAttendance int64             `json:"thisMonthAttendance"`
	RecentAttendance    []AttendanceEntry `json:"recentAttendance"`
}

type ExportResponse struct {
	Session    SessionInfo       `json:"session"`
	Attendance []AttendanceEntry `json:"attendance"`
	ExportedAt time.Time         `json:"exportedAt"`
}
