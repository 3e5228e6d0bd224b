// Package api exposes the meeting engine over HTTP with gin.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"meetingflow/auth"
	"meetingflow/clock"
	"meetingflow/meeting"
)

const ctxKeyUserID = "userID"

// MeetingService is the subset of meeting.Service the handlers use.
type MeetingService interface {
	CreateMeeting(ctx context.Context, params meeting.CreateParams) (meeting.Meeting, error)
	UpdateMeetingStatus(ctx context.Context, meetingID, actorID string, requested meeting.Status) (meeting.Meeting, error)
	RescheduleMeeting(ctx context.Context, meetingID, actorID string, newStart time.Time, newDurationMinutes int) (meeting.Meeting, error)
	ListMeetings(ctx context.Context, userID string) ([]meeting.Meeting, error)
	GetMeeting(ctx context.Context, meetingID, actorID string) (meeting.Meeting, error)
	Policy() meeting.AdmissionPolicy
}

// Accounts registers users and verifies bearer tokens.
type Accounts interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	VerifyToken(token string) (string, error)
}

// Directory lists and records connections between users.
type Directory interface {
	List(ctx context.Context, userID string) ([]string, error)
	Connect(ctx context.Context, userA, userB string) error
}

// Server wires HTTP handlers to the domain services.
type Server struct {
	meetings    MeetingService
	accounts    Accounts
	directory   Directory
	clock       clock.Clock
	location    *time.Location
	tick        time.Duration
	corsOrigins []string
	logger      *log.Logger
}

// NewServer builds a Server. Optional collaborators are set with the With* methods.
func NewServer(meetings MeetingService, accounts Accounts) *Server {
	return &Server{
		meetings: meetings,
		accounts: accounts,
		clock:    clock.System,
		location: time.UTC,
		tick:     time.Second,
		logger:   log.Default(),
	}
}

func (s *Server) WithDirectory(d Directory) *Server {
	s.directory = d
	return s
}

func (s *Server) WithClock(c clock.Clock) *Server {
	s.clock = c
	return s
}

// WithLocation sets the time zone used when a request does not name one.
func (s *Server) WithLocation(loc *time.Location) *Server {
	if loc != nil {
		s.location = loc
	}
	return s
}

// WithTickInterval sets how often the admission stream pushes updates.
func (s *Server) WithTickInterval(d time.Duration) *Server {
	if d > 0 {
		s.tick = d
	}
	return s
}

func (s *Server) WithCORSOrigins(origins []string) *Server {
	s.corsOrigins = origins
	return s
}

func (s *Server) WithLogger(l *log.Logger) *Server {
	s.logger = l
	return s
}

// Router builds the gin engine serving every route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), cors.New(s.corsConfig()))

	r.GET("/health", s.handleHealth)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", s.handleRegister)
		authGroup.POST("/login", s.handleLogin)
	}

	api := r.Group("/api")
	api.Use(s.requireUser)
	{
		api.POST("/meetings", s.handleCreateMeeting)
		api.GET("/meetings", s.handleListMeetings)
		api.GET("/meetings/admission/stream", s.handleAdmissionStream)
		api.GET("/meetings/:id", s.handleGetMeeting)
		api.PATCH("/meetings/:id/status", s.handleUpdateStatus)
		api.PATCH("/meetings/:id/schedule", s.handleReschedule)
		api.GET("/meetings/:id/admission", s.handleAdmission)

		api.GET("/calendar", s.handleCalendar)
		api.GET("/calendar.ics", s.handleCalendarICS)

		api.GET("/connections", s.handleListConnections)
		api.POST("/connections", s.handleConnect)
	}
	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(s.corsOrigins) == 0 || slices.Contains(s.corsOrigins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = s.corsOrigins
	cfg.AllowCredentials = true
	return cfg
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": s.clock.Now().UTC().Format(time.RFC3339)})
}

// requireUser resolves the bearer token into a user id stored on the context.
func (s *Server) requireUser(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}
	userID, err := s.accounts.VerifyToken(strings.TrimSpace(token))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid token"})
		return
	}
	c.Set(ctxKeyUserID, userID)
	c.Next()
}

func currentUser(c *gin.Context) string {
	return c.GetString(ctxKeyUserID)
}

// msgTryAgain is the only text transient failures expose.
const msgTryAgain = "temporarily unavailable, try again"

type errorResponse struct {
	Error         string `json:"error"`
	CurrentStatus string `json:"currentStatus,omitempty"`
	Retryable     bool   `json:"retryable,omitempty"`
}

// writeError renders a domain error. Non-parties get the same 404 as a
// missing meeting so ids cannot be enumerated. Transient failures carry a fixed
// message; their cause only goes to the log.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, meeting.ErrMissingField), errors.Is(err, meeting.ErrUnknownStatus):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case meeting.IsValidation(err):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, meeting.ErrNotParty), errors.Is(err, meeting.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "meeting not found"})
	case errors.Is(err, meeting.ErrForbidden):
		c.JSON(http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, meeting.ErrInvalidTransition):
		current, _ := meeting.CurrentStatus(err)
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error(), CurrentStatus: string(current)})
	case errors.Is(err, meeting.ErrConflict):
		s.logger.Printf("api: %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusConflict, errorResponse{Error: msgTryAgain, Retryable: true})
	case errors.Is(err, meeting.ErrTimeout):
		s.logger.Printf("api: %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: msgTryAgain, Retryable: true})
	default:
		s.logger.Printf("api: %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
