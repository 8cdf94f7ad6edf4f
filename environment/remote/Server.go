package remote

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samuelfneumann/wsnlearn/environment"
)

// Server serves an environment.Port over HTTP. Requests are handled one
// at a time, since a Port is not safe for concurrent use.
type Server struct {
	port   environment.Port
	mu     sync.Mutex
	server *http.Server
	logger *log.Logger
	closed chan struct{}
	once   sync.Once
}

// NewServer returns a new Server which serves port on addr. If logger
// is nil, nothing is logged.
func NewServer(port environment.Port, addr string,
	logger *log.Logger) *Server {
	s := &Server{
		port:   port,
		logger: logger,
		closed: make(chan struct{}),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET(SpacesPath, s.handleSpaces)
	r.POST(ResetPath, s.handleReset)
	r.POST(StepPath, s.handleStep)
	r.POST(ClosePath, s.handleClose)

	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// Handler returns the HTTP handler of the Server
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Closed returns a channel which is closed once a client has closed the
// served Port
func (s *Server) Closed() <-chan struct{} {
	return s.closed
}

// Run serves requests until ctx is cancelled or a client closes the
// Port. The Port is closed before Run returns.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()
	s.logf("serving on %v", s.server.Addr)

	var err error
	select {
	case <-ctx.Done():
	case <-s.closed:
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		2*time.Second)
	defer cancel()
	s.server.Shutdown(shutdownCtx)

	closeErr := s.closePort()
	if closeErr != nil && !errors.Is(closeErr, environment.ErrClosed) &&
		err == nil {
		err = closeErr
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}

func (s *Server) handleSpaces(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.JSON(http.StatusOK, Spaces{
		Observation: s.port.ObservationSpace(),
		Action:      s.port.ActionSpace(),
	})
}

func (s *Server) handleReset(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	step, err := s.port.Reset(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, fromTimeStep(step))
}

func (s *Server) handleStep(c *gin.Context) {
	var a Action
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{"failed to unmarshal action"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	step, err := s.port.Step(c.Request.Context(), a.Action)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, fromTimeStep(step))
}

func (s *Server) handleClose(c *gin.Context) {
	if err := s.closePort(); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// closePort closes the served Port once
func (s *Server) closePort() error {
	err := environment.ErrClosed
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		err = s.port.Close()
		close(s.closed)
	})
	return err
}

// fail writes err with the status code matching its kind
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, environment.ErrInvalidAction):
		status = http.StatusBadRequest
	case errors.Is(err, environment.ErrClosed):
		status = http.StatusGone
	}
	s.logf("%v %v: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(status, errorBody{err.Error()})
}

func (s *Server) logf(format string, v ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, v...)
	}
}
