package class

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"gymcore/internal/api"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListClasses godoc
// @Summary      List classes with availability
// @Description  Upcoming classes by default; use from/to (RFC3339) to narrow.
// @Tags         classes
// @Security     BearerAuth
// @Produce      json
// @Param        from       query     string  false  "Start of window (RFC3339)"
// @Param        to         query     string  false  "End of window (RFC3339)"
// @Param        all        query     bool    false  "Include past and cancelled classes"
// @Success      200        {array}   Response
// @Failure      400        {object}  api.ErrorResponse
// @Router       /classes [get]
func (h *Handler) ListClasses(c *gin.Context) {
	var filter ListFilter

	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid from time"})
			return
		}
		filter.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid to time"})
			return
		}
		filter.To = &t
	}
	if c.Query("all") == "true" {
		filter.IncludeCancelled = true
		filter.IncludePast = true
	}

	classes, err := h.service.List(c.Request.Context(), filter, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch classes"})
		return
	}

	c.JSON(http.StatusOK, classes)
}

// GetClass godoc
// @Summary      Get a class with availability
// @Tags         classes
// @Security     BearerAuth
// @Produce      json
// @Param        classID  path      int  true  "Class ID"
// @Success      200      {object}  Response
// @Failure      404      {object}  api.ErrorResponse
// @Router       /classes/{classID} [get]
func (h *Handler) GetClass(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("classID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid class ID"})
		return
	}

	resp, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Class not found"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ScheduleClass godoc
// @Summary      Schedule a class
// @Description  Staff only. Omitted title, capacity and end time fall back to
// @Description  the class type defaults.
// @Tags         classes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      ScheduleRequest  true  "Class data"
// @Success      201      {object}  Response
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Router       /admin/classes [post]
func (h *Handler) ScheduleClass(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.service.Schedule(c.Request.Context(), req, time.Now())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// CancelClass godoc
// @Summary      Cancel a class
// @Description  Staff only. Confirmed attendees get a cancellation notice.
// @Tags         classes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        classID  path      int            true  "Class ID"
// @Param        request  body      CancelRequest  true  "Cancellation reason"
// @Success      200      {object}  Response
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /admin/classes/{classID}/cancel [post]
func (h *Handler) CancelClass(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("classID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid class ID"})
		return
	}

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.service.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateClassType godoc
// @Summary      Create a class type
// @Description  Admin only.
// @Tags         classes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateTypeRequest  true  "Class type data"
// @Success      201      {object}  ClassType
// @Failure      400      {object}  api.ErrorResponse
// @Router       /admin/class-types [post]
func (h *Handler) CreateClassType(c *gin.Context) {
	var req CreateTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	ct, err := h.service.CreateType(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create class type"})
		return
	}

	c.JSON(http.StatusCreated, ct)
}

// ListClassTypes godoc
// @Summary      List class types
// @Tags         classes
// @Security     BearerAuth
// @Produce      json
// @Param        all  query     bool  false  "Include retired types"
// @Success      200  {array}   ClassType
// @Router       /class-types [get]
func (h *Handler) ListClassTypes(c *gin.Context) {
	onlyActive := c.Query("all") != "true"

	types, err := h.service.ListTypes(c.Request.Context(), onlyActive)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch class types"})
		return
	}

	c.JSON(http.StatusOK, types)
}

// RetireClassType godoc
// @Summary      Retire a class type
// @Description  Admin only. Already-scheduled classes are untouched.
// @Tags         classes
// @Security     BearerAuth
// @Produce      json
// @Param        typeID  path      int  true  "Class type ID"
// @Success      200     {object}  api.MessageResponse
// @Failure      404     {object}  api.ErrorResponse
// @Router       /admin/class-types/{typeID}/retire [post]
func (h *Handler) RetireClassType(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("typeID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid class type ID"})
		return
	}

	if err := h.service.RetireType(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrClassTypeNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Class type not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to retire class type"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Class type retired"})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrClassNotFound), errors.Is(err, ErrClassTypeNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrClassAlreadyCancelled):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrClassTypeRetired),
		errors.Is(err, ErrInvalidTimeRange),
		errors.Is(err, ErrStartInPast):
		c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Something went wrong"})
	}
}
