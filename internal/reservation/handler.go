package reservation

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"gymcore/internal/api"
	"gymcore/internal/auth"
	"gymcore/internal/class"
	"gymcore/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type staffBookingRequest struct {
	ClassID int `json:"class_id" binding:"required"`
}

// Reserve godoc
// @Summary      Reserve a spot in a class
// @Description  Confirms when capacity allows, otherwise joins the waitlist.
// @Tags         reservations
// @Security     BearerAuth
// @Produce      json
// @Param        classID  path      int  true  "Class ID"
// @Success      201      {object}  Reservation
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      422      {object}  api.ErrorResponse
// @Router       /classes/{classID}/reserve [post]
func (h *Handler) Reserve(c *gin.Context) {
	classID, err := strconv.Atoi(c.Param("classID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid class ID"})
		return
	}

	memberID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Unauthorized"})
		return
	}

	res, err := h.service.Create(c.Request.Context(), memberID, classID, false, time.Now())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// StaffReserve godoc
// @Summary      Book a class for a member
// @Description  Staff only. Bypasses the membership and quota checks; capacity
// @Description  rules still apply.
// @Tags         reservations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        memberID  path      int                  true  "Member ID"
// @Param        request   body      staffBookingRequest  true  "Class to book"
// @Success      201       {object}  Reservation
// @Failure      404       {object}  api.ErrorResponse
// @Failure      409       {object}  api.ErrorResponse
// @Router       /admin/members/{memberID}/reservations [post]
func (h *Handler) StaffReserve(c *gin.Context) {
	memberID, err := strconv.Atoi(c.Param("memberID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid member ID"})
		return
	}

	var req staffBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	res, err := h.service.Create(c.Request.Context(), memberID, req.ClassID, true, time.Now())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// Cancel godoc
// @Summary      Cancel a reservation
// @Description  Frees the spot; the head of the waitlist is promoted into it.
// @Tags         reservations
// @Security     BearerAuth
// @Produce      json
// @Param        reservationID  path      int  true  "Reservation ID"
// @Success      200            {object}  CancelOutcome
// @Failure      403            {object}  api.ErrorResponse
// @Failure      404            {object}  api.ErrorResponse
// @Failure      422            {object}  api.ErrorResponse
// @Router       /reservations/{reservationID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	reservationID, err := strconv.Atoi(c.Param("reservationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid reservation ID"})
		return
	}

	memberID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Unauthorized"})
		return
	}

	outcome, err := h.service.Cancel(c.Request.Context(), reservationID, memberID,
		auth.HasStaffCapability(c), time.Now())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// ListMine godoc
// @Summary      List my reservations
// @Tags         reservations
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   WithClass
// @Failure      500  {object}  api.ErrorResponse
// @Router       /reservations [get]
func (h *Handler) ListMine(c *gin.Context) {
	memberID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Unauthorized"})
		return
	}

	reservations, err := h.service.ListMine(c.Request.Context(), memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch reservations"})
		return
	}

	c.JSON(http.StatusOK, reservations)
}

// ListByClass godoc
// @Summary      Class roster
// @Description  Staff only. Confirmed and waitlisted members of a class.
// @Tags         reservations
// @Security     BearerAuth
// @Produce      json
// @Param        classID  path      int  true  "Class ID"
// @Success      200      {array}   WithMember
// @Failure      500      {object}  api.ErrorResponse
// @Router       /admin/classes/{classID}/reservations [get]
func (h *Handler) ListByClass(c *gin.Context) {
	classID, err := strconv.Atoi(c.Param("classID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid class ID"})
		return
	}

	reservations, err := h.service.ListByClass(c.Request.Context(), classID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch reservations"})
		return
	}

	c.JSON(http.StatusOK, reservations)
}

// MarkAttended godoc
// @Summary      Mark a reservation attended
// @Description  Staff only. Allowed once the class has started.
// @Tags         reservations
// @Security     BearerAuth
// @Produce      json
// @Param        reservationID  path      int  true  "Reservation ID"
// @Success      200            {object}  Reservation
// @Failure      404            {object}  api.ErrorResponse
// @Failure      422            {object}  api.ErrorResponse
// @Router       /admin/reservations/{reservationID}/attended [post]
func (h *Handler) MarkAttended(c *gin.Context) {
	h.markAttendance(c, StatusAttended)
}

// MarkNoShow godoc
// @Summary      Mark a reservation no-show
// @Description  Staff only. Allowed once the class has started.
// @Tags         reservations
// @Security     BearerAuth
// @Produce      json
// @Param        reservationID  path      int  true  "Reservation ID"
// @Success      200            {object}  Reservation
// @Failure      404            {object}  api.ErrorResponse
// @Failure      422            {object}  api.ErrorResponse
// @Router       /admin/reservations/{reservationID}/no-show [post]
func (h *Handler) MarkNoShow(c *gin.Context) {
	h.markAttendance(c, StatusNoShow)
}

func (h *Handler) markAttendance(c *gin.Context, status Status) {
	reservationID, err := strconv.Atoi(c.Param("reservationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid reservation ID"})
		return
	}

	var res *Reservation
	if status == StatusAttended {
		res, err = h.service.MarkAttended(c.Request.Context(), reservationID, time.Now())
	} else {
		res, err = h.service.MarkNoShow(c.Request.Context(), reservationID, time.Now())
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// GetAnalytics godoc
// @Summary      Reservation analytics
// @Description  Aggregated reservation activity. Admin only.
// @Tags         reservations
// @Security     BearerAuth
// @Produce      json
// @Param        group_by  query     string  false  "Group by dimension (day or class)"
// @Param        from      query     string  true   "Start datetime (RFC3339)"
// @Param        to        query     string  true   "End datetime (RFC3339)"
// @Success      200       {object}  map[string]interface{}
// @Failure      400       {object}  api.ErrorResponse
// @Failure      500       {object}  api.ErrorResponse
// @Router       /admin/analytics/reservations [get]
func (h *Handler) GetAnalytics(c *gin.Context) {
	groupBy := c.DefaultQuery("group_by", "day")

	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid from format, use RFC3339"})
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid to format, use RFC3339"})
		return
	}

	switch groupBy {
	case "day":
		stats, err := h.service.StatsByDay(c.Request.Context(), from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to fetch stats"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"group_by": "day", "from": from, "to": to, "data": stats})
	case "class":
		stats, err := h.service.StatsByClass(c.Request.Context(), from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to fetch stats"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"group_by": "class", "from": from, "to": to, "data": stats})
	default:
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "group_by must be 'day' or 'class'"})
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var invariant *InvariantError
	if errors.As(err, &invariant) {
		logger.Errorf("Reservation invariant breach: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Something went wrong"})
		return
	}

	switch {
	case errors.Is(err, ErrReservationNotFound), errors.Is(err, class.ErrClassNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrAlreadyReserved):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrNotOwner):
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrMembershipInactive),
		errors.Is(err, ErrQuotaExceeded),
		errors.Is(err, ErrClassCancelled),
		errors.Is(err, ErrClassInPast),
		errors.Is(err, ErrClassNotStarted),
		errors.Is(err, ErrNotCancellable),
		errors.Is(err, ErrNotConfirmed):
		c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Something went wrong"})
	}
}
