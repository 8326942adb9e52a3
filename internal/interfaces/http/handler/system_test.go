package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/api/v1")
	NewSystemHandler("Facturante Backend", "1.0.0").RegisterRoutes(api)

	t.Run("ping", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var envelope struct {
			Data PingResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
		assert.Equal(t, "pong", envelope.Data.Message)
	})

	t.Run("info", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/info", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var envelope struct {
			Data SystemInfoResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
		assert.Equal(t, "Facturante Backend", envelope.Data.Name)
		assert.NotEmpty(t, envelope.Data.GoVersion)
	})
}
