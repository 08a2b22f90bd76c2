package membership

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"gymcore/internal/api"
	"gymcore/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetMyMembership godoc
// @Summary      Current membership
// @Description  Returns the caller's active or frozen membership with derived days_remaining and is_expiring_soon.
// @Tags         memberships
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Response
// @Failure      404  {object}  api.ErrorResponse
// @Router       /memberships/me [get]
func (h *Handler) GetMyMembership(c *gin.Context) {
	memberID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	resp, err := h.service.GetCurrentByMember(c.Request.Context(), memberID, time.Now())
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "No current membership"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch membership"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListMyMemberships godoc
// @Summary      Membership history
// @Tags         memberships
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Response
// @Failure      500  {object}  api.ErrorResponse
// @Router       /memberships [get]
func (h *Handler) ListMyMemberships(c *gin.Context) {
	memberID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	responses, err := h.service.ListByMember(c.Request.Context(), memberID, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch memberships"})
		return
	}

	c.JSON(http.StatusOK, responses)
}

// GetMembership godoc
// @Summary      Get membership
// @Description  Owner or staff only.
// @Tags         memberships
// @Security     BearerAuth
// @Produce      json
// @Param        membershipID  path      int  true  "Membership ID"
// @Success      200           {object}  Response
// @Failure      403           {object}  api.ErrorResponse
// @Failure      404           {object}  api.ErrorResponse
// @Router       /memberships/{membershipID} [get]
func (h *Handler) GetMembership(c *gin.Context) {
	memberID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	membershipID, err := strconv.Atoi(c.Param("membershipID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid membership ID"})
		return
	}

	resp, err := h.service.GetByID(c.Request.Context(), membershipID, memberID, auth.HasStaffCapability(c), time.Now())
	if err != nil {
		respondMembershipError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Freeze godoc
// @Summary      Freeze membership
// @Description  Pauses an active membership. The expiry is extended by the paused duration on unfreeze.
// @Tags         memberships
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        membershipID  path      int            true  "Membership ID"
// @Param        request       body      FreezeRequest  true  "Reason and planned days"
// @Success      200           {object}  Response
// @Failure      400           {object}  api.ErrorResponse
// @Failure      403           {object}  api.ErrorResponse
// @Failure      404           {object}  api.ErrorResponse
// @Failure      422           {object}  api.ErrorResponse
// @Router       /memberships/{membershipID}/freeze [post]
func (h *Handler) Freeze(c *gin.Context) {
	memberID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	membershipID, err := strconv.Atoi(c.Param("membershipID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid membership ID"})
		return
	}

	var req FreezeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.service.Freeze(c.Request.Context(), membershipID, memberID, auth.HasStaffCapability(c), req, time.Now())
	if err != nil {
		respondMembershipError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Unfreeze godoc
// @Summary      Unfreeze membership
// @Description  Reactivates a frozen membership and extends its end date by the days it was frozen.
// @Tags         memberships
// @Security     BearerAuth
// @Produce      json
// @Param        membershipID  path      int  true  "Membership ID"
// @Success      200           {object}  Response
// @Failure      403           {object}  api.ErrorResponse
// @Failure      404           {object}  api.ErrorResponse
// @Failure      422           {object}  api.ErrorResponse
// @Router       /memberships/{membershipID}/unfreeze [post]
func (h *Handler) Unfreeze(c *gin.Context) {
	memberID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	membershipID, err := strconv.Atoi(c.Param("membershipID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid membership ID"})
		return
	}

	resp, err := h.service.Unfreeze(c.Request.Context(), membershipID, memberID, auth.HasStaffCapability(c), time.Now())
	if err != nil {
		respondMembershipError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Renew godoc
// @Summary      Renew membership
// @Description  Extends the membership from its current end date. Duration is 1, 3, 6 or 12 months with tiered discounts. Payment is recorded separately by the caller.
// @Tags         memberships
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        membershipID  path      int           true  "Membership ID"
// @Param        request       body      RenewRequest  true  "Duration and payment method tag"
// @Success      200           {object}  RenewResponse
// @Failure      400           {object}  api.ErrorResponse
// @Failure      403           {object}  api.ErrorResponse
// @Failure      404           {object}  api.ErrorResponse
// @Failure      422           {object}  api.ErrorResponse
// @Router       /memberships/{membershipID}/renew [post]
func (h *Handler) Renew(c *gin.Context) {
	memberID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	membershipID, err := strconv.Atoi(c.Param("membershipID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid membership ID"})
		return
	}

	var req RenewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.service.Renew(c.Request.Context(), membershipID, memberID, auth.HasStaffCapability(c), req, time.Now())
	if err != nil {
		respondMembershipError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// AssignMembership godoc
// @Summary      Assign membership
// @Description  Staff only. Creates a membership for the member with the plan's current terms snapshotted.
// @Tags         memberships
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        memberID  path      int            true  "Member ID"
// @Param        request   body      AssignRequest  true  "Plan, start date (YYYY-MM-DD) and notes"
// @Success      201       {object}  Response
// @Failure      400       {object}  api.ErrorResponse
// @Failure      404       {object}  api.ErrorResponse
// @Failure      409       {object}  api.ErrorResponse
// @Router       /admin/members/{memberID}/memberships [post]
func (h *Handler) AssignMembership(c *gin.Context) {
	memberID, err := strconv.Atoi(c.Param("memberID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid member ID"})
		return
	}

	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.service.Assign(c.Request.Context(), memberID, req, time.Now())
	if err != nil {
		respondMembershipError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListMemberMemberships godoc
// @Summary      List a member's memberships
// @Description  Staff only.
// @Tags         memberships
// @Security     BearerAuth
// @Produce      json
// @Param        memberID  path      int  true  "Member ID"
// @Success      200       {array}   Response
// @Failure      500       {object}  api.ErrorResponse
// @Router       /admin/members/{memberID}/memberships [get]
func (h *Handler) ListMemberMemberships(c *gin.Context) {
	memberID, err := strconv.Atoi(c.Param("memberID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid member ID"})
		return
	}

	responses, err := h.service.ListByMember(c.Request.Context(), memberID, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch memberships"})
		return
	}

	c.JSON(http.StatusOK, responses)
}

// CancelMembership godoc
// @Summary      Cancel membership
// @Description  Staff only. Terminal transition.
// @Tags         memberships
// @Security     BearerAuth
// @Produce      json
// @Param        membershipID  path      int  true  "Membership ID"
// @Success      200           {object}  Response
// @Failure      404           {object}  api.ErrorResponse
// @Failure      422           {object}  api.ErrorResponse
// @Router       /admin/memberships/{membershipID}/cancel [post]
func (h *Handler) CancelMembership(c *gin.Context) {
	membershipID, err := strconv.Atoi(c.Param("membershipID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid membership ID"})
		return
	}

	resp, err := h.service.Cancel(c.Request.Context(), membershipID, time.Now())
	if err != nil {
		respondMembershipError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListFreezes godoc
// @Summary      Freeze history
// @Description  Staff only.
// @Tags         memberships
// @Security     BearerAuth
// @Produce      json
// @Param        membershipID  path      int  true  "Membership ID"
// @Success      200           {array}   FreezeRecord
// @Failure      500           {object}  api.ErrorResponse
// @Router       /admin/memberships/{membershipID}/freezes [get]
func (h *Handler) ListFreezes(c *gin.Context) {
	membershipID, err := strconv.Atoi(c.Param("membershipID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid membership ID"})
		return
	}

	records, err := h.service.ListFreezes(c.Request.Context(), membershipID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch freeze history"})
		return
	}

	c.JSON(http.StatusOK, records)
}

func respondMembershipError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrMembershipNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Membership not found"})
	case errors.Is(err, ErrNotOwner):
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "You can only manage your own membership"})
	case errors.Is(err, ErrActiveMembershipExists):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Member already has an active membership"})
	case errors.Is(err, ErrInvalidStartDate):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Start date must be YYYY-MM-DD"})
	case errors.Is(err, ErrPlanRetired),
		errors.Is(err, ErrPlanNotFreezable),
		errors.Is(err, ErrFreezeLimitExceeded),
		errors.Is(err, ErrFreezeReasonRequired),
		errors.Is(err, ErrMembershipNotActive),
		errors.Is(err, ErrMembershipNotFrozen),
		errors.Is(err, ErrMembershipCancelled),
		errors.Is(err, ErrInvalidDuration),
		errors.Is(err, ErrNoActiveOrExpiredMembership):
		c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Membership operation failed"})
	}
}
