package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"meetingflow/meeting"
)

func (s *Server) handleCreateMeeting(c *gin.Context) {
	var req createMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	start, ok := s.bindStart(c, req.Start)
	if !ok {
		return
	}

	m, err := s.meetings.CreateMeeting(c.Request.Context(), meeting.CreateParams{
		CreatorID:       currentUser(c),
		ParticipantID:   req.ParticipantID,
		Start:           start,
		DurationMinutes: req.DurationMinutes,
		Message:         req.Message,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMeetingResponse(m))
}

func (s *Server) handleListMeetings(c *gin.Context) {
	list, err := s.meetings.ListMeetings(c.Request.Context(), currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	var filter meeting.Status
	if raw := c.Query("status"); raw != "" {
		parsed, err := meeting.ParseStatus(raw)
		if err != nil {
			s.writeError(c, err)
			return
		}
		filter = parsed
	}

	policy := s.meetings.Policy()
	now := s.clock.Now()
	out := make([]meetingResponse, 0, len(list))
	for _, m := range list {
		if filter != "" && m.Status != filter {
			continue
		}
		out = append(out, withAdmission(m, policy, now))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetMeeting(c *gin.Context) {
	m, err := s.meetings.GetMeeting(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, withAdmission(m, s.meetings.Policy(), s.clock.Now()))
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	status, err := meeting.ParseStatus(req.Status)
	if err != nil {
		s.writeError(c, err)
		return
	}

	m, err := s.meetings.UpdateMeetingStatus(c.Request.Context(), c.Param("id"), currentUser(c), status)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMeetingResponse(m))
}

func (s *Server) handleReschedule(c *gin.Context) {
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	start, ok := s.bindStart(c, req.Start)
	if !ok {
		return
	}

	m, err := s.meetings.RescheduleMeeting(c.Request.Context(), c.Param("id"), currentUser(c), start, req.DurationMinutes)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMeetingResponse(m))
}

func (s *Server) handleAdmission(c *gin.Context) {
	m, err := s.meetings.GetMeeting(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAdmissionResponse(m.ID, s.meetings.Policy().Admission(m, s.clock.Now())))
}

// bindStart parses an RFC3339 start. An empty value passes through as the zero
// time so the service reports the missing field.
func (s *Server) bindStart(c *gin.Context, raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, true
	}
	start, err := parseStart(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "start must be an RFC3339 timestamp"})
		return time.Time{}, false
	}
	return start, true
}
