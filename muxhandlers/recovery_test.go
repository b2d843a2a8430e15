package muxhandlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/arbor/mux"
)

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("boom")
	})

	t.Run("answers 500 on panic", func(t *testing.T) {
		h := RecoveryMiddleware(RecoveryConfig{})(panicking)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("passes healthy requests through", func(t *testing.T) {
		h := RecoveryMiddleware(RecoveryConfig{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("invokes the log callback with the panic value", func(t *testing.T) {
		var got PanicInfo
		h := RecoveryMiddleware(RecoveryConfig{
			LogFunc:      func(_ *http.Request, info PanicInfo) { got = info },
			CaptureStack: true,
		})(panicking)

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "boom", got.Value)
		assert.NotEmpty(t, got.Stack)
	})

	t.Run("reports the matched template inside dispatch", func(t *testing.T) {
		root, err := mux.NewResource("/")
		require.NoError(t, err)
		res, err := root.Subresource("/boom")
		require.NoError(t, err)
		require.NoError(t, res.SetHandler(http.MethodGet, panicking))

		var got PanicInfo
		res.Wrap(mux.TargetRequestHandler, RecoveryMiddleware(RecoveryConfig{
			LogFunc: func(_ *http.Request, info PanicInfo) { got = info },
		}))

		svc, err := root.IntoService()
		require.NoError(t, err)

		w := httptest.NewRecorder()
		svc.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "/boom", got.Template)
	})

	t.Run("re-raises ErrAbortHandler", func(t *testing.T) {
		h := RecoveryMiddleware(RecoveryConfig{})(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		})
	})
}
