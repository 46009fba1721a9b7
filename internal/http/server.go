// README: Local API surface; registers HTTP routes and delegates to module services.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"valetlink/internal/conn"
	"valetlink/internal/credstore"
	"valetlink/internal/http/middleware"
	"valetlink/internal/modules/request"
	"valetlink/internal/types"
)

type ServerDeps struct {
	Requests *request.Service
	Coord    *request.Coordinator
	Conn     *conn.Manager
	Creds    credstore.Store
	Log      *slog.Logger
}

type Server struct {
	requests *request.Service
	coord    *request.Coordinator
	conn     *conn.Manager
	creds    credstore.Store
	log      *slog.Logger
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		requests: deps.Requests,
		coord:    deps.Coord,
		conn:     deps.Conn,
		creds:    deps.Creds,
		log:      deps.Log,
	}
}

func (s *Server) Routes() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(s.log), middleware.Logging(s.log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(s.creds))
	api.GET("/connection", s.handleConnection)
	api.GET("/requests", s.handleList)
	api.POST("/requests/:id/accept", s.handleAccept)
	api.POST("/requests/:id/complete", s.handleComplete)
	api.POST("/requests/:id/self-park", s.handleSelfPark)
	api.POST("/requests/:id/self-pickup", s.handleSelfPickup)
	api.POST("/vehicles/verify", s.handleVerify)
	api.POST("/requests/park", s.handleCreatePark)
	api.POST("/requests/pickup", s.handleCreatePickup)
	api.POST("/refresh", s.handleRefresh)
	api.POST("/resume", s.handleResume)

	return r
}

func (s *Server) handleConnection(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": s.conn.State()})
}

func (s *Server) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"requests": s.coord.CurrentView()})
}

func (s *Server) handleAccept(c *gin.Context) {
	id := types.ID(c.Param("id"))
	dec, err := s.requests.Accept(c.Request.Context(), id)
	if err != nil {
		writeActionError(c, err)
		return
	}
	if !dec.Allowed {
		writeGeofenceDenied(c, dec)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allowed": true, "distance_m": dec.DistanceMeters})
}

func (s *Server) handleComplete(c *gin.Context) {
	id := types.ID(c.Param("id"))
	dec, err := s.requests.Complete(c.Request.Context(), id)
	if err != nil {
		writeActionError(c, err)
		return
	}
	if !dec.Allowed {
		writeGeofenceDenied(c, dec)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allowed": true, "distance_m": dec.DistanceMeters})
}

func (s *Server) handleSelfPark(c *gin.Context) {
	id := types.ID(c.Param("id"))
	if err := s.requests.MarkSelfPark(c.Request.Context(), id); err != nil {
		writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "self_parked"})
}

func (s *Server) handleSelfPickup(c *gin.Context) {
	id := types.ID(c.Param("id"))
	if err := s.requests.MarkSelfPickup(c.Request.Context(), id); err != nil {
		writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "self_pickup"})
}

func (s *Server) handleVerify(c *gin.Context) {
	var body struct {
		VehicleRef string `json:"vehicle_ref" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vehicle_ref is required"})
		return
	}
	dec, err := s.requests.Verify(c.Request.Context(), body.VehicleRef)
	if err != nil {
		writeActionError(c, err)
		return
	}
	if !dec.Allowed {
		writeGeofenceDenied(c, dec)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allowed": true, "distance_m": dec.DistanceMeters})
}

func (s *Server) handleCreatePark(c *gin.Context) {
	var body struct {
		VehicleRef   string      `json:"vehicle_ref" binding:"required"`
		Origin       types.Point `json:"origin" binding:"required"`
		OwnerContact string      `json:"owner_contact"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.requests.CreatePark(body.VehicleRef, body.Origin, body.OwnerContact); err != nil {
		writeActionError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "submitted"})
}

func (s *Server) handleCreatePickup(c *gin.Context) {
	var body struct {
		VehicleRef   string `json:"vehicle_ref" binding:"required"`
		OwnerContact string `json:"owner_contact"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.requests.CreatePickup(body.VehicleRef, body.OwnerContact); err != nil {
		writeActionError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "submitted"})
}

func (s *Server) handleRefresh(c *gin.Context) {
	if err := s.requests.Refresh(c.Request.Context()); err != nil {
		writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": s.coord.CurrentView()})
}

func (s *Server) handleResume(c *gin.Context) {
	s.conn.OnResume(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"state": s.conn.State()})
}
