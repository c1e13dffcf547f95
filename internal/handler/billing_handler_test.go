package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/service"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/config"
)

// A trigger without a running worker is a precondition failure, and the
// handler must surface it as such instead of a generic server error.
func TestBillingTriggerWithoutWorker(t *testing.T) {
	gin.SetMode(gin.TestMode)
	billing := service.NewBillingService(nil, nil, zap.NewNop(), config.BillingConfig{})
	router := gin.New()
	router.POST("/billing/run", NewBillingHandler(billing).Trigger)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/billing/run", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Contains(t, rec.Body.String(), "PRECONDITION_FAILED")
}
