// Package handlers serves the offline-aware client over HTTP so browser
// and desktop UIs share one queue and one cache.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	v1 "uamvh.cloud/escolar/escolar/v1"
	"uamvh.cloud/escolar/infrastructure/logging"
	"uamvh.cloud/escolar/offline"
	"uamvh.cloud/escolar/security"
	"uamvh.cloud/escolar/store"
	"uamvh.cloud/escolar/web/common"
	"uamvh.cloud/escolar/web/middlewares"
)

const (
	RoleAdmin   = "administrador"
	RoleTeacher = "maestro"

	maxUploadSize = 50 << 20
	xlsxMime      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Options struct {
	Service *offline.Service
	Session *security.Session
	// SigningSecret is the base64 secret for gateway tokens. Without it
	// the API is served unauthenticated.
	SigningSecret string
	TokenTTL      time.Duration
	Logger        *zap.Logger
}

type Endpoint struct {
	svc     *offline.Service
	session *security.Session
	secret  string
	ttl     time.Duration
	logger  *zap.Logger
}

// NewRouter assembles the gateway routes.
func NewRouter(opts Options) (*gin.Engine, error) {
	logger := logging.OrNop(opts.Logger).Named("web")
	ep := &Endpoint{
		svc:     opts.Service,
		session: opts.Session,
		secret:  opts.SigningSecret,
		ttl:     opts.TokenTTL,
		logger:  logger,
	}
	if ep.ttl <= 0 {
		ep.ttl = 12 * time.Hour
	}

	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLog(logger))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.POST("/auth/login", ep.Login)

	protected := r.Group("/api")
	admin := protected.Group("")
	if opts.SigningSecret != "" {
		jwtSecret, err := security.DecodeSecret(opts.SigningSecret)
		if err != nil {
			return nil, err
		}
		protected.Use(middlewares.Authentication(jwtSecret))
		admin = protected.Group("", middlewares.RequireRole(RoleAdmin))
	} else {
		logger.Warn("no signing secret configured, gateway API is unauthenticated")
	}

	protected.GET("/me", ep.Me)

	registerEntity(protected, "/students", opts.Service.Students)
	registerEntity(protected, "/groups", opts.Service.Groups)
	registerEntity(protected, "/periods", opts.Service.Periods)
	registerEntity(protected, "/courses", opts.Service.Courses)
	protected.GET("/groups/:key/concentrado", ep.ExportConcentrado)
	protected.POST("/groups/:key/students", ep.AssignStudents)
	protected.GET("/course-groups/:id/attendances", ep.CourseGroupAttendances)
	protected.GET("/course-groups/:id/final-data", ep.CourseGroupFinalData)
	protected.GET("/course-groups/:id/available-students", ep.AvailableStudents)

	protected.GET("/attendances", ep.ListAttendances)
	protected.GET("/attendances/pending", ep.PendingAttendances)
	protected.POST("/attendances", ep.SaveAttendance)
	protected.PATCH("/attendances/:key", ep.UpdateAttendance)
	protected.DELETE("/attendances/:key", ep.DeleteAttendance)

	protected.POST("/grades/evaluations", ep.SaveEvaluationGrade)
	protected.POST("/grades/partials", ep.SavePartialGrade)
	protected.POST("/grades/finals", ep.SaveFinalGrade)
	protected.GET("/grades/students/:id", ep.StudentGrades)
	protected.POST("/averages", ep.Averages)

	protected.POST("/sync", ep.Sync)
	protected.GET("/sync/status", ep.SyncStatus)
	protected.GET("/sync/dead-letters", ep.DeadLetters)
	protected.POST("/sync/dead-letters/requeue", ep.Requeue)

	admin.POST("/statistics", ep.Statistics)
	admin.POST("/import/roster", ep.ImportRoster)
	admin.POST("/import/grades", ep.ImportGrades)

	return r, nil
}

// writeError maps err to a status code and a message fit for the user.
func writeError(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
	case errors.Is(err, offline.ErrNotFound), errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, common.NewErrorResponse("Recurso no encontrado"))
	case errors.Is(err, offline.ErrServerUnreachable):
		c.JSON(http.StatusServiceUnavailable, common.NewErrorResponse("Servidor no disponible"))
	case errors.Is(err, security.ErrNotLoggedIn):
		c.JSON(http.StatusUnauthorized, common.NewErrorResponse(err.Error()))
	case v1.StatusCode(err) != 0:
		c.JSON(v1.StatusCode(err), common.NewErrorResponse(v1.UserMessage(err, err.Error())))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
	}
}

// writeOutcome answers a write: 201 or 200 when the server took it, 202
// when it was queued for the next sync.
func writeOutcome(c *gin.Context, created bool, outcome offline.Outcome, data any) {
	status := http.StatusOK
	switch {
	case outcome == offline.OutcomeQueued:
		status = http.StatusAccepted
	case created:
		status = http.StatusCreated
	}
	c.JSON(status, common.NewSuccessResponse(gin.H{
		"outcome": outcome,
		"record":  data,
	}))
}
