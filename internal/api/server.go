package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/cisa/internal/logger"
	"github.com/samcharles93/cisa/internal/registry"
	"github.com/samcharles93/cisa/internal/symgraph"
	"github.com/samcharles93/cisa/internal/version"
	"github.com/samcharles93/cisa/pkg/cisa"
)

// DefaultMaxUpload caps upload bodies when no limit is configured.
const DefaultMaxUpload = 64 << 20

type Server struct {
	reg       *registry.Registry
	log       logger.Logger
	maxUpload int64
	clock     func() time.Time
}

func NewServer(reg *registry.Registry, log logger.Logger, maxUpload int64) *Server {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &Server{
		reg:       reg,
		log:       log,
		maxUpload: maxUpload,
		clock:     time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.Use(s.requestID)

	e.POST("/v1/containers", s.handleUpload)
	e.GET("/v1/containers", s.handleList)
	e.GET("/v1/containers/:id", s.handleGet)
	e.DELETE("/v1/containers/:id", s.handleDelete)
	e.GET("/v1/containers/:id/raw", s.handleRaw)
	e.GET("/v1/containers/:id/graph", s.handleGraph)
	e.GET("/v1/containers/:id/kernels", s.handleKernels)
	e.GET("/v1/containers/:id/kernels/:name", s.handleKernelBody)
	e.GET("/v1/containers/:id/kernels/:name/instructions", s.handleInstructions)
	e.GET("/v1/containers/:id/functions/:name", s.handleFunctionBody)
}

// requestID tags each request and its log lines with a fresh id.
func (s *Server) requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		id := c.Request().Header.Get(headerRequestID)
		if id == "" {
			id = newRequestID()
		}
		c.Response().Header().Set(headerRequestID, id)
		c.Response().Header().Set("Server", version.UserAgent())
		log := s.log.With("request_id", id)
		c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context(), log)))

		start := s.clock()
		err := next(c)
		log.Debug("request handled",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"duration", s.clock().Sub(start),
		)
		return err
	}
}

func (s *Server) handleUpload(c *echo.Context) error {
	body := http.MaxBytesReader(c.Response(), c.Request().Body, s.maxUpload)
	data, err := io.ReadAll(body)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		return s.fail(c, "upload", newInvalidRequest(status, err.Error()))
	}
	if len(data) == 0 {
		return s.fail(c, "upload", newInvalidRequest(http.StatusBadRequest, "empty upload"))
	}

	name := c.QueryParam("name")
	if name == "" {
		name = "upload"
	}
	e, err := s.reg.Put(name, data)
	if err != nil {
		return s.fail(c, name, err)
	}
	return writeJSON(c, http.StatusCreated, e)
}

func (s *Server) handleList(c *echo.Context) error {
	entries, err := s.reg.List()
	if err != nil {
		return s.fail(c, "list", err)
	}
	if entries == nil {
		entries = []registry.Entry{}
	}
	return writeJSON(c, http.StatusOK, map[string]any{
		"object": "list",
		"data":   entries,
	})
}

type containerResponse struct {
	registry.Entry
	Container ContainerView `json:"container"`
}

func (s *Server) handleGet(c *echo.Context) error {
	id := c.Param("id")
	entry, err := s.reg.Entry(id)
	if err != nil {
		return s.fail(c, id, err)
	}
	ctr, err := s.reg.Container(id)
	if err != nil {
		return s.fail(c, id, err)
	}
	return writeJSON(c, http.StatusOK, containerResponse{Entry: entry, Container: NewContainerView(ctr)})
}

func (s *Server) handleDelete(c *echo.Context) error {
	id := c.Param("id")
	if err := s.reg.Delete(id); err != nil {
		return s.fail(c, id, err)
	}
	return writeJSON(c, http.StatusOK, map[string]any{
		"id":      id,
		"deleted": true,
	})
}

func (s *Server) handleRaw(c *echo.Context) error {
	id := c.Param("id")
	data, err := s.reg.Data(id)
	if err != nil {
		return s.fail(c, id, err)
	}
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, data)
}

func (s *Server) handleGraph(c *echo.Context) error {
	id := c.Param("id")
	ctr, err := s.reg.Container(id)
	if err != nil {
		return s.fail(c, id, err)
	}
	g := symgraph.Build(ctr.Header())
	return c.Blob(http.StatusOK, "text/vnd.graphviz", []byte(g.DOT(id)))
}

func (s *Server) handleKernels(c *echo.Context) error {
	id := c.Param("id")
	ctr, err := s.reg.Container(id)
	if err != nil {
		return s.fail(c, id, err)
	}
	out := make([]KernelView, 0, len(ctr.Kernels()))
	for _, k := range ctr.Kernels() {
		out = append(out, NewKernelView(k))
	}
	return writeJSON(c, http.StatusOK, map[string]any{
		"object": "list",
		"data":   out,
	})
}

func (s *Server) kernelBody(c *echo.Context) (cisa.KernelBody, error) {
	id, name := c.Param("id"), c.Param("name")
	ctr, err := s.reg.Container(id)
	if err != nil {
		return cisa.KernelBody{}, err
	}
	k, ok := ctr.KernelByName(name)
	if !ok {
		return cisa.KernelBody{}, registry.ErrNotFound
	}
	return ctr.KernelBody(k)
}

func (s *Server) handleKernelBody(c *echo.Context) error {
	kb, err := s.kernelBody(c)
	if err != nil {
		return s.fail(c, c.Param("id")+"/"+c.Param("name"), err)
	}
	return writeJSON(c, http.StatusOK, NewKernelBodyView(kb))
}

func (s *Server) handleInstructions(c *echo.Context) error {
	kb, err := s.kernelBody(c)
	if err != nil {
		return s.fail(c, c.Param("id")+"/"+c.Param("name"), err)
	}
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, kb.Instructions())
}

func (s *Server) handleFunctionBody(c *echo.Context) error {
	id, name := c.Param("id"), c.Param("name")
	ctr, err := s.reg.Container(id)
	if err != nil {
		return s.fail(c, id, err)
	}
	f, ok := ctr.FunctionByName(name)
	if !ok {
		return writeNotFound(c, "function "+name+" not found")
	}
	fb, err := ctr.FunctionBody(f)
	if err != nil {
		return s.fail(c, id+"/"+name, err)
	}
	return writeJSON(c, http.StatusOK, NewFunctionBodyView(fb))
}

// fail writes the error response for err. Not-found errors name what was
// looked up; server errors are logged with the request id.
func (s *Server) fail(c *echo.Context, what string, err error) error {
	status, errType := classify(err)
	msg := err.Error()
	switch status {
	case http.StatusNotFound:
		msg = what + " not found"
	case http.StatusInternalServerError:
		logger.FromContext(c.Request().Context()).Error("request failed", "what", what, "error", err)
	}
	return writeError(c, status, errType, msg)
}
