package attendance

import "time"

type RecordAttendanceRequest struct {
	SessionCode string `json:"sessionCode" binding:"required"`
	AttendeeID  string `json:"attendeeId" binding:"required"`
}

type RecordResponse struct {
	AttendanceID string    `json:"attendanceId"`
	AttendeeID   string    `json:"attendeeId"`
	SessionCode  string    `json:"sessionCode"`
	TimeIn       time.Time `json:"timeIn"`
}

type RecordListResponse struct {
	Attendance []RecordResponse `json:"attendance"`
}

// websocketで押し出すライブカウント。ポーリングAPIの上に載る追加機能で、
// これが無くても GET /attendance/session/:code だけで成立する
type LiveCountFrame struct {
	SessionCode string    `json:"sessionCode"`
	Count       int64     `json:"count"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
