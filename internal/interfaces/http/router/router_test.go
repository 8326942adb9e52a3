package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubRegistrar struct {
	prefix string
}

func (s *stubRegistrar) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET(s.prefix+"/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("registers under default v1 prefix", func(t *testing.T) {
		engine := gin.New()
		NewRouter(engine).Register(&stubRegistrar{prefix: "/editor"}).Setup()

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/editor/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("honors custom api version", func(t *testing.T) {
		engine := gin.New()
		NewRouter(engine, WithAPIVersion("v2")).Register(&stubRegistrar{prefix: "/editor"}).Setup()

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/editor/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/editor/ping", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("registers multiple registrars", func(t *testing.T) {
		engine := gin.New()
		NewRouter(engine).
			Register(&stubRegistrar{prefix: "/a"}).
			Register(&stubRegistrar{prefix: "/b"}).
			Setup()

		for _, path := range []string{"/api/v1/a/ping", "/api/v1/b/ping"} {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, w.Code, path)
		}
	})
}
