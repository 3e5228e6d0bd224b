package api

import (
	"time"

	"meetingflow/meeting"
)

type meetingResponse struct {
	ID             string             `json:"id"`
	CreatorID      string             `json:"creatorId"`
	ParticipantID  string             `json:"participantId"`
	ScheduledStart string             `json:"scheduledStart"`
	ScheduledEnd   string             `json:"scheduledEnd"`
	Status         string             `json:"status"`
	Message        *string            `json:"message,omitempty"`
	Version        int64              `json:"version"`
	CreatedAt      string             `json:"createdAt"`
	UpdatedAt      string             `json:"updatedAt"`
	Admission      *admissionResponse `json:"admission,omitempty"`
}

type admissionResponse struct {
	MeetingID        string `json:"meetingId,omitempty"`
	State            string `json:"state"`
	Label            string `json:"label"`
	Enterable        bool   `json:"enterable"`
	RemainingSeconds int64  `json:"remainingSeconds"`
	EntryOpensAt     string `json:"entryOpensAt"`
}

type createMeetingRequest struct {
	ParticipantID   string `json:"participantId"`
	Start           string `json:"start"`
	DurationMinutes int    `json:"durationMinutes"`
	Message         string `json:"message"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type rescheduleRequest struct {
	Start           string `json:"start"`
	DurationMinutes int    `json:"durationMinutes"`
}

type calendarDay struct {
	Date     string            `json:"date"`
	Meetings []meetingResponse `json:"meetings"`
}

type calendarResponse struct {
	TimeZone  string            `json:"timeZone"`
	Days      []calendarDay     `json:"days"`
	Attention []meetingResponse `json:"attention"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	TimeZone  string `json:"timeZone"`
	CreatedAt string `json:"createdAt"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toMeetingResponse(m meeting.Meeting) meetingResponse {
	return meetingResponse{
		ID:             m.ID,
		CreatorID:      m.CreatorID,
		ParticipantID:  m.ParticipantID,
		ScheduledStart: m.ScheduledStart.UTC().Format(time.RFC3339),
		ScheduledEnd:   m.ScheduledEnd.UTC().Format(time.RFC3339),
		Status:         string(m.Status),
		Message:        m.Message,
		Version:        m.Version,
		CreatedAt:      m.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      m.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func withAdmission(m meeting.Meeting, policy meeting.AdmissionPolicy, now time.Time) meetingResponse {
	resp := toMeetingResponse(m)
	adm := toAdmissionResponse("", policy.Admission(m, now))
	resp.Admission = &adm
	return resp
}

func toAdmissionResponse(meetingID string, r meeting.AdmissionResult) admissionResponse {
	return admissionResponse{
		MeetingID:        meetingID,
		State:            string(r.State),
		Label:            r.Label,
		Enterable:        r.Enterable,
		RemainingSeconds: int64(r.Remaining / time.Second),
		EntryOpensAt:     r.EntryOpensAt.UTC().Format(time.RFC3339),
	}
}

// parseStart accepts RFC3339 with or without fractional seconds.
func parseStart(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}
