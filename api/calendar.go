package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"meetingflow/clock"
	"meetingflow/meeting"
)

func (s *Server) viewerLocation(c *gin.Context) (*time.Location, bool) {
	tz := c.Query("tz")
	if tz == "" {
		return s.location, true
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "unknown time zone " + tz})
		return nil, false
	}
	return loc, true
}

func (s *Server) handleCalendar(c *gin.Context) {
	loc, ok := s.viewerLocation(c)
	if !ok {
		return
	}
	list, err := s.meetings.ListMeetings(c.Request.Context(), currentUser(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	policy := s.meetings.Policy()
	now := s.clock.Now()
	cal := meeting.Calendar{Location: loc, Policy: policy}
	index := cal.IndexByDay(list)

	resp := calendarResponse{
		TimeZone:  loc.String(),
		Days:      make([]calendarDay, 0, len(index)),
		Attention: []meetingResponse{},
	}
	for _, day := range meeting.Days(index) {
		entry := calendarDay{Date: day.String()}
		for _, m := range index[day] {
			entry.Meetings = append(entry.Meetings, withAdmission(m, policy, now))
		}
		resp.Days = append(resp.Days, entry)
	}
	for _, m := range cal.UpcomingAdmissible(list, now) {
		resp.Attention = append(resp.Attention, withAdmission(m, policy, now))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCalendarICS(c *gin.Context) {
	userID := currentUser(c)
	list, err := s.meetings.ListMeetings(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Content-Type", "text/calendar; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="meetings.ics"`)
	c.Status(http.StatusOK)
	if err := meeting.WriteICS(c.Writer, list, userID); err != nil {
		s.logger.Printf("api: write ics for %s: %v", userID, err)
	}
}

// handleAdmissionStream pushes the admission of the caller's accepted meetings
// as server-sent events, one batch per tick, until the client goes away.
func (s *Server) handleAdmissionStream(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)

	snapshot := func(now time.Time) ([]admissionResponse, error) {
		list, err := s.meetings.ListMeetings(ctx, userID)
		if err != nil {
			return nil, err
		}
		policy := s.meetings.Policy()
		out := make([]admissionResponse, 0, len(list))
		for _, m := range list {
			if m.Status != meeting.StatusAccepted {
				continue
			}
			res := policy.Admission(m, now)
			if res.State == meeting.AdmissionFinished {
				continue
			}
			out = append(out, toAdmissionResponse(m.ID, res))
		}
		return out, nil
	}

	first, err := snapshot(s.clock.Now())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent("admission", first)
	c.Writer.Flush()

	// Returns once the client disconnects and the request context is cancelled.
	_ = clock.Tick(ctx, s.clock, s.tick, func(now time.Time) bool {
		batch, err := snapshot(now)
		if err != nil {
			c.SSEvent("error", errorResponse{Error: "admission unavailable", Retryable: meeting.IsRetryable(err)})
			c.Writer.Flush()
			return false
		}
		c.SSEvent("admission", batch)
		c.Writer.Flush()
		return true
	})
}
