package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymcore/internal/auth"
	"gymcore/internal/membership"
	"gymcore/internal/plan"
)

func newMembershipRouter(db *sqlx.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)

	service := membership.NewService(membership.NewRepository(db), plan.NewRepository(db), newTestNotifier())
	handler := membership.NewHandler(service)

	router := gin.New()
	authMiddleware := auth.AuthMiddleware(testSecret)
	staffMiddleware := auth.RequireRole(auth.RoleStaff, auth.RoleAdmin)

	router.GET("/memberships/me", authMiddleware, handler.GetMyMembership)
	router.POST("/memberships/:membershipID/freeze", authMiddleware, handler.Freeze)
	router.POST("/memberships/:membershipID/unfreeze", authMiddleware, handler.Unfreeze)
	router.POST("/memberships/:membershipID/renew", authMiddleware, handler.Renew)
	router.POST("/admin/members/:memberID/memberships", authMiddleware, staffMiddleware, handler.AssignMembership)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path, token string, body interface{}) *httptest.ResponseRecorder {
	bodyBytes, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAssignMembershipIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()

	router := newMembershipRouter(db)

	cleanDatabase(t, db)

	staffID := createTestUser(t, db, "staff@example.com", "Staff", "staff")
	memberID := createTestUser(t, db, "ana@example.com", "Ana", "member")
	planID := createTestPlan(t, db, "Standard", nil, true)

	staffToken := generateTestToken(staffID, "staff@example.com", "staff")
	startDate := time.Now().Format("2006-01-02")

	w := postJSON(t, router, fmt.Sprintf("/admin/members/%d/memberships", memberID), staffToken,
		map[string]interface{}{"plan_id": planID, "start_date": startDate})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp membership.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, membership.StatusActive, resp.Status)
	assert.Equal(t, int64(3000), resp.PriceCents)
	assert.Equal(t, 30, resp.DurationDays)

	// A second active membership for the same member is rejected.
	w = postJSON(t, router, fmt.Sprintf("/admin/members/%d/memberships", memberID), staffToken,
		map[string]interface{}{"plan_id": planID, "start_date": startDate})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Members cannot assign memberships.
	memberToken := generateTestToken(memberID, "ana@example.com", "member")
	w = postJSON(t, router, fmt.Sprintf("/admin/members/%d/memberships", memberID), memberToken,
		map[string]interface{}{"plan_id": planID, "start_date": startDate})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestFreezeUnfreezeIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()

	router := newMembershipRouter(db)

	t.Run("Freeze then unfreeze reactivates", func(t *testing.T) {
		cleanDatabase(t, db)

		memberID := createTestUser(t, db, "ana@example.com", "Ana", "member")
		planID := createTestPlan(t, db, "Standard", nil, true)
		start, end := activeWindow()
		membershipID := createTestMembership(t, db, memberID, planID, "active", start, end)

		token := generateTestToken(memberID, "ana@example.com", "member")

		w := postJSON(t, router, fmt.Sprintf("/memberships/%d/freeze", membershipID), token,
			map[string]interface{}{"reason": "vacation", "days": 7})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var frozen membership.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &frozen))
		assert.Equal(t, membership.StatusFrozen, frozen.Status)
		require.NotNil(t, frozen.FrozenAt)

		w = postJSON(t, router, fmt.Sprintf("/memberships/%d/unfreeze", membershipID), token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var active membership.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &active))
		assert.Equal(t, membership.StatusActive, active.Status)
		assert.Nil(t, active.FrozenAt)

		// Freeze history has a closed record.
		var open int
		require.NoError(t, db.Get(&open,
			"SELECT COUNT(*) FROM membership_freezes WHERE membership_id = $1 AND end_date IS NULL",
			membershipID))
		assert.Equal(t, 0, open)
	})

	t.Run("Freeze rejected for non freezable plan", func(t *testing.T) {
		cleanDatabase(t, db)

		memberID := createTestUser(t, db, "ana@example.com", "Ana", "member")
		planID := createTestPlan(t, db, "Basic", nil, false)
		start, end := activeWindow()
		membershipID := createTestMembership(t, db, memberID, planID, "active", start, end)

		token := generateTestToken(memberID, "ana@example.com", "member")
		w := postJSON(t, router, fmt.Sprintf("/memberships/%d/freeze", membershipID), token,
			map[string]interface{}{"reason": "vacation", "days": 7})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Freeze rejected for another member", func(t *testing.T) {
		cleanDatabase(t, db)

		ownerID := createTestUser(t, db, "ana@example.com", "Ana", "member")
		otherID := createTestUser(t, db, "boris@example.com", "Boris", "member")
		planID := createTestPlan(t, db, "Standard", nil, true)
		start, end := activeWindow()
		membershipID := createTestMembership(t, db, ownerID, planID, "active", start, end)

		token := generateTestToken(otherID, "boris@example.com", "member")
		w := postJSON(t, router, fmt.Sprintf("/memberships/%d/freeze", membershipID), token,
			map[string]interface{}{"reason": "vacation", "days": 7})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRenewIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()

	router := newMembershipRouter(db)

	cleanDatabase(t, db)

	memberID := createTestUser(t, db, "ana@example.com", "Ana", "member")
	planID := createTestPlan(t, db, "Standard", nil, true)
	start, end := activeWindow()
	membershipID := createTestMembership(t, db, memberID, planID, "active", start, end)

	token := generateTestToken(memberID, "ana@example.com", "member")
	w := postJSON(t, router, fmt.Sprintf("/memberships/%d/renew", membershipID), token,
		map[string]interface{}{"duration_months": 3, "payment_method": "cash"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp membership.RenewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	// 3 months at 3000 cents with the 5% tier discount.
	assert.Equal(t, int64(8550), resp.PriceCents)
	assert.Equal(t, "cash", resp.PaymentMethod)

	wantEnd := end.AddDate(0, 0, 90).Format("2006-01-02")
	assert.Equal(t, wantEnd, resp.Membership.EndDate.Format("2006-01-02"))

	// Unsupported duration is rejected.
	w = postJSON(t, router, fmt.Sprintf("/memberships/%d/renew", membershipID), token,
		map[string]interface{}{"duration_months": 5, "payment_method": "cash"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
