package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/scan-orchestrator/pkg/api/dto"
	"github.com/LENAX/scan-orchestrator/pkg/api/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// TestRecoveryReturnsEnvelope 测试Handler panic时返回统一500信封
func TestRecoveryReturnsEnvelope(t *testing.T) {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	req, _ := http.NewRequest("GET", "/boom", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp dto.APIResponse[any]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 500, resp.Code)
	assert.Equal(t, "服务器内部错误", resp.Message)
}
