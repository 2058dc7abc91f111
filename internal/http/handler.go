package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"fieldtech/internal/http/middleware"
	"fieldtech/internal/model"
	"fieldtech/internal/service"
)

const (
	maxUploadBytes = 20 << 20
	maxPhotoBytes  = 8 << 20
	dateLayout     = "2006-01-02"
)

type Handler struct {
	ticketService *service.TicketService
	log           zerolog.Logger
}

func NewHandler(ticketService *service.TicketService, log zerolog.Logger) *Handler {
	return &Handler{
		ticketService: ticketService,
		log:           log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	tech := r.Group("/api/tech")
	tech.Use(authMiddleware)

	tech.GET("/home", h.home)

	tickets := tech.Group("/tickets")
	{
		tickets.GET("/view/:id", h.viewTicket)
		tickets.GET("/history/:id", h.ticketHistory)
		tickets.GET("/accepted/:id", h.acceptTicket)
		tickets.GET("/in_progress/:id", h.startWork)
		tickets.POST("/rejected/:id", h.rejectTicket)
		tickets.POST("/rescheduled/:id", h.rescheduleTicket)
		tickets.POST("/completed/:id", h.completeTicket)
	}
}

type clientResponse struct {
	Name         string  `json:"name"`
	MobileNumber *string `json:"mobile_number"`
}

type subscriptionResponse struct {
	InstallationAddress string `json:"installation_address"`
}

type ticketResponse struct {
	ID             uint                  `json:"id"`
	TicketNumber   string                `json:"ticket_number"`
	SubscriptionID uint                  `json:"subscription_id"`
	Client         *clientResponse       `json:"client"`
	Subscription   *subscriptionResponse `json:"subscription"`
	Status         string                `json:"status"`
	Type           string                `json:"type"`
	CreatedAt      string                `json:"created_at"`
	Subject        string                `json:"subject"`
	Remarks        string                `json:"remarks"`
	Location       string                `json:"location"`
	Picture        string                `json:"picture"`
	PictureReading string                `json:"picture_reading"`
	ScheduledFor   *string               `json:"scheduled_for,omitempty"`
}

func toTicketResponse(t *model.Ticket) ticketResponse {
	resp := ticketResponse{
		ID:             t.ID,
		TicketNumber:   t.TicketNumber,
		SubscriptionID: t.SubscriptionID,
		Status:         string(t.Status),
		Type:           string(t.Type),
		CreatedAt:      t.CreatedAt.Format(dateLayout),
		Subject:        t.Subject,
		Remarks:        t.Remarks,
		Location:       t.Location,
		Picture:        t.Picture,
		PictureReading: t.PictureReading,
	}
	if t.Client != nil {
		resp.Client = &clientResponse{Name: t.Client.Name, MobileNumber: t.Client.MobileNumber}
	}
	if t.Subscription != nil {
		resp.Subscription = &subscriptionResponse{InstallationAddress: t.Subscription.InstallationAddress}
	}
	if t.ScheduledFor != nil {
		date := t.ScheduledFor.Format(dateLayout)
		resp.ScheduledFor = &date
	}
	return resp
}

func (h *Handler) home(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	tickets, err := h.ticketService.Home(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make([]ticketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, toTicketResponse(&tickets[i]))
	}
	c.JSON(http.StatusOK, gin.H{"tickets": out})
}

func (h *Handler) viewTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	ticket, err := h.ticketService.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ticket": toTicketResponse(ticket)})
}

func (h *Handler) ticketHistory(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	events, err := h.ticketService.History(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(events))
}

func (h *Handler) acceptTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	ticket, err := h.ticketService.Accept(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, statusResponse("Ticket accepted", ticket))
}

func (h *Handler) startWork(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	ticket, err := h.ticketService.StartWork(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, statusResponse("Work started", ticket))
}

func (h *Handler) rejectTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	ticket, err := h.ticketService.Reject(c.Request.Context(), principal, c.Param("id"), req.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, statusResponse("Ticket has been rejected", ticket))
}

func (h *Handler) rescheduleTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		Date   string `json:"date" binding:"required"`
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	ticket, err := h.ticketService.Reschedule(c.Request.Context(), principal, c.Param("id"), service.RescheduleInput{
		Date:   req.Date,
		Reason: req.Reason,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, statusResponse("Ticket rescheduled successfully", ticket))
}

func (h *Handler) completeTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid multipart body"))
		return
	}

	cause, err := readPhoto(c, "picture_cause")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	reading, err := readPhoto(c, "picture_reading")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	ticket, err := h.ticketService.Complete(c.Request.Context(), principal, c.Param("id"), service.CompleteInput{
		Remarks:        c.PostForm("remarks"),
		Location:       c.PostForm("location"),
		PictureCause:   cause,
		PictureReading: reading,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, statusResponse("Ticket completed successfully", ticket))
}

// readPhoto returns the uploaded file of field, or nil when it was not
// sent.
func readPhoto(c *gin.Context, field string) ([]byte, error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	if header.Size > maxPhotoBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", field, maxPhotoBytes)
	}
	return readMultipartFile(header)
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func statusResponse(message string, ticket *model.Ticket) gin.H {
	return gin.H{
		"status":  "success",
		"message": message,
		"ticket":  toTicketResponse(ticket),
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
