// Package mockapi serves an in-memory copy of the school API. It backs
// the offline tests and the local development server.
package mockapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"uamvh.cloud/escolar/infrastructure/logging"
)

// Resources lists the collections served under /<name>.
var Resources = []string{
	"students",
	"groups",
	"periods",
	"courses",
	"users",
	"attendances",
	"courses-groups",
	"partial-evaluation-grades",
	"partial-grades",
	"final-grades",
}

type Item map[string]any

func (i Item) ID() int64 {
	switch v := i["id"].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	}
	return 0
}

type Call struct {
	Method string
	Path   string
}

type fault struct {
	method string
	prefix string
	status int
	times  int
}

type Server struct {
	mu          sync.Mutex
	collections map[string][]Item
	nextID      int64
	faults      []*fault
	down        bool
	calls       []Call
	users       map[string]string
	token       string
	logger      *zap.Logger
}

func New(logger *zap.Logger) *Server {
	s := &Server{
		collections: map[string][]Item{},
		nextID:      1,
		users:       map[string]string{},
		token:       "mock-token",
		logger:      logging.OrNop(logger).Named("mockapi"),
	}
	for _, r := range Resources {
		s.collections[r] = []Item{}
	}
	return s
}

// AddUser registers credentials accepted by POST /auth/login.
func (s *Server) AddUser(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = password
}

// SetToken changes the token handed out on login.
func (s *Server) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Seed stores items as if they had been created through the API and
// returns their ids.
func (s *Server) Seed(resource string, items ...Item) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, s.insert(resource, it))
	}
	return ids
}

// Items returns a copy of a collection.
func (s *Server) Items(resource string) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, 0, len(s.collections[resource]))
	for _, it := range s.collections[resource] {
		out = append(out, clone(it))
	}
	return out
}

// Fail makes the next times requests matching method and path prefix
// answer with status. times <= 0 fails forever.
func (s *Server) Fail(method, prefix string, status, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, &fault{method: method, prefix: prefix, status: status, times: times})
}

func (s *Server) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = nil
}

// SetDown makes every request answer 503.
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// Calls returns the mutating requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call{}, s.calls...)
}

func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.intercept)

	r.POST("/auth/login", s.login)
	r.GET("/groups/:id/find-boletas", func(c *gin.Context) { c.JSON(http.StatusOK, []Item{}) })
	r.GET("/courses-groups-students/byGroup/:id", func(c *gin.Context) { c.JSON(http.StatusOK, []Item{}) })

	for _, name := range Resources {
		r.HEAD("/"+name, s.list(name))
		r.GET("/"+name, s.list(name))
		r.GET("/"+name+"/:id", s.get(name))
		r.POST("/"+name, s.create(name))
		r.PATCH("/"+name+"/:id", s.update(name))
		r.DELETE("/"+name+"/:id", s.remove(name))
	}
	return r
}

func (s *Server) intercept(c *gin.Context) {
	s.mu.Lock()
	if s.down {
		s.mu.Unlock()
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "service unavailable"})
		return
	}
	path := c.Request.URL.Path
	method := c.Request.Method
	if method != http.MethodGet && method != http.MethodHead {
		s.calls = append(s.calls, Call{Method: method, Path: path})
	}
	for i, f := range s.faults {
		if f.method != "" && f.method != method {
			continue
		}
		if !strings.HasPrefix(path, f.prefix) {
			continue
		}
		status := f.status
		if f.times > 0 {
			f.times--
			if f.times == 0 {
				s.faults = append(s.faults[:i], s.faults[i+1:]...)
			}
		}
		s.mu.Unlock()
		s.logger.Debug("injected failure", zap.String("method", method), zap.String("path", path), zap.Int("status", status))
		c.AbortWithStatusJSON(status, gin.H{"message": http.StatusText(status)})
		return
	}
	s.mu.Unlock()
	c.Next()
}

func (s *Server) login(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	s.mu.Lock()
	pw, ok := s.users[body.Email]
	token := s.token
	s.mu.Unlock()
	if !ok || pw != body.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       1,
		"fullName": body.Email,
		"email":    body.Email,
		"role":     "maestro",
		"token":    token,
	})
}

func (s *Server) list(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		offset, _ := strconv.Atoi(c.Query("offset"))

		s.mu.Lock()
		var items []Item
		for _, it := range s.collections[name] {
			if !matchesQuery(it, c) {
				continue
			}
			items = append(items, clone(it))
		}
		s.mu.Unlock()

		total := len(items)
		if offset > len(items) {
			offset = len(items)
		}
		items = items[offset:]
		if limit > 0 && limit < len(items) {
			items = items[:limit]
		}
		if items == nil {
			items = []Item{}
		}
		c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
	}
}

// matchesQuery filters on the camelCase id parameters the API accepts,
// e.g. courseGroupId.
func matchesQuery(it Item, c *gin.Context) bool {
	for key, values := range c.Request.URL.Query() {
		if key == "limit" || key == "offset" || !strings.HasSuffix(key, "Id") || len(values) == 0 {
			continue
		}
		if fmt.Sprint(it[key]) != values[0] {
			return false
		}
	}
	return true
}

func (s *Server) get(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		i := s.indexOf(name, c.Param("id"))
		if i < 0 {
			c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
			return
		}
		c.JSON(http.StatusOK, s.collections[name][i])
	}
}

func (s *Server) create(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var it Item
		if err := c.ShouldBindJSON(&it); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		s.mu.Lock()
		delete(it, "id")
		s.insert(name, it)
		out := clone(it)
		s.mu.Unlock()
		c.JSON(http.StatusCreated, out)
	}
}

func (s *Server) update(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch Item
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		i := s.indexOf(name, c.Param("id"))
		if i < 0 {
			c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
			return
		}
		it := s.collections[name][i]
		for k, v := range patch {
			if k == "id" {
				continue
			}
			it[k] = v
		}
		c.JSON(http.StatusOK, clone(it))
	}
}

func (s *Server) remove(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		i := s.indexOf(name, c.Param("id"))
		if i < 0 {
			c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
			return
		}
		items := s.collections[name]
		s.collections[name] = append(items[:i], items[i+1:]...)
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) insert(name string, it Item) int64 {
	id := s.nextID
	s.nextID++
	it["id"] = id
	s.collections[name] = append(s.collections[name], it)
	return id
}

func (s *Server) indexOf(name, raw string) int {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return -1
	}
	for i, it := range s.collections[name] {
		if it.ID() == id {
			return i
		}
	}
	return -1
}

func clone(it Item) Item {
	out := make(Item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}
