package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
)

func runRBAC(t *testing.T, mw gin.HandlerFunc, claims *models.JWTClaims, paramID string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/users/"+paramID, nil)
	if paramID != "" {
		c.Params = gin.Params{{Key: "id", Value: paramID}}
	}
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}
	handled := false
	mw(c)
	if !c.IsAborted() {
		handled = true
	}
	if handled {
		return http.StatusOK
	}
	return w.Code
}

func TestRBACRejectsMissingClaims(t *testing.T) {
	code := runRBAC(t, RequireStaff(), nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRequireStaffAllowsManagersAndAdmins(t *testing.T) {
	for _, role := range []models.UserRole{models.RoleManager, models.RoleAdmin} {
		code := runRBAC(t, RequireStaff(), &models.JWTClaims{UserID: "s1", Role: role}, "")
		assert.Equal(t, http.StatusOK, code)
	}
}

func TestRequireStaffRejectsStudents(t *testing.T) {
	code := runRBAC(t, RequireStaff(), &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, "")
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRBACSelfMatchesPathParam(t *testing.T) {
	mw := RBAC(string(models.RoleManager), string(models.RoleAdmin), SelfRole)

	code := runRBAC(t, mw, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, "u1")
	assert.Equal(t, http.StatusOK, code)

	code = runRBAC(t, mw, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, "u2")
	assert.Equal(t, http.StatusForbidden, code)
}
