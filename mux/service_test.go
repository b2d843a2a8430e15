package mux

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildService finalizes a tree built by the configure callback.
func buildService(t *testing.T, configure func(root *Resource)) *ResourceService {
	t.Helper()
	root, err := NewResource("/")
	require.NoError(t, err)
	configure(root)
	svc, err := root.IntoService()
	require.NoError(t, err)
	return svc
}

func echoHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	})
}

func paramEchoHandler(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, _ := ParamValue(r, name)
		fmt.Fprint(w, v)
	})
}

func serve(svc http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	svc.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestServiceDispatch(t *testing.T) {
	t.Run("root handler", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			require.NoError(t, root.SetHandler(http.MethodGet, echoHandler("home")))
		})

		w := serve(svc, http.MethodGet, "/")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "home", w.Body.String())
	})

	t.Run("nested static resource", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			users, err := root.Subresource("/api/users")
			require.NoError(t, err)
			require.NoError(t, users.SetHandler(http.MethodGet, echoHandler("users")))
		})

		assert.Equal(t, "users", serve(svc, http.MethodGet, "/api/users").Body.String())
		assert.Equal(t, http.StatusNotFound, serve(svc, http.MethodGet, "/api/other").Code)
	})

	t.Run("regex resource captures params", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			user, err := root.Subresource("/users/$id:@([0-9]+)")
			require.NoError(t, err)
			require.NoError(t, user.SetHandler(http.MethodGet, paramEchoHandler("id")))
		})

		assert.Equal(t, "42", serve(svc, http.MethodGet, "/users/42").Body.String())
		assert.Equal(t, http.StatusNotFound, serve(svc, http.MethodGet, "/users/abc").Code)
	})

	t.Run("wildcard captures the whole decoded segment", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			file, err := root.Subresource("/files/*name")
			require.NoError(t, err)
			require.NoError(t, file.SetHandler(http.MethodGet, paramEchoHandler("name")))
		})

		assert.Equal(t, "a b", serve(svc, http.MethodGet, "/files/a%20b").Body.String())
	})

	t.Run("params accumulate along the path", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			post, err := root.Subresource("/users/$uid:@([0-9]+)/posts/$pid:@([0-9]+)")
			require.NoError(t, err)
			require.NoError(t, post.SetHandlerFunc(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
				uid, _ := ParamValue(r, "uid")
				pid, _ := ParamValue(r, "pid")
				fmt.Fprintf(w, "%s/%s", uid, pid)
			}))
		})

		assert.Equal(t, "7/13", serve(svc, http.MethodGet, "/users/7/posts/13").Body.String())
	})

	t.Run("current template is exposed", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			user, err := root.Subresource("/users/$id:@([0-9]+)")
			require.NoError(t, err)
			require.NoError(t, user.SetHandlerFunc(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, CurrentTemplate(r))
			}))
		})

		assert.Equal(t, "/users/$id:@([0-9]+)", serve(svc, http.MethodGet, "/users/42").Body.String())
	})
}

func TestServiceMatchingOrder(t *testing.T) {
	t.Run("static beats regex beats wildcard", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			static, err := root.Subresource("/items/new")
			require.NoError(t, err)
			require.NoError(t, static.SetHandler(http.MethodGet, echoHandler("static")))

			regex, err := root.Subresource("/items/$id:@([0-9]+)")
			require.NoError(t, err)
			require.NoError(t, regex.SetHandler(http.MethodGet, echoHandler("regex")))

			wild, err := root.Subresource("/items/*rest")
			require.NoError(t, err)
			require.NoError(t, wild.SetHandler(http.MethodGet, echoHandler("wildcard")))
		})

		assert.Equal(t, "static", serve(svc, http.MethodGet, "/items/new").Body.String())
		assert.Equal(t, "regex", serve(svc, http.MethodGet, "/items/42").Body.String())
		assert.Equal(t, "wildcard", serve(svc, http.MethodGet, "/items/misc").Body.String())
	})

	t.Run("regex children match in registration order", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			first, err := root.Subresource("/v/$num:@([0-9]+)")
			require.NoError(t, err)
			require.NoError(t, first.SetHandler(http.MethodGet, echoHandler("first")))

			second, err := root.Subresource("/v/$word:@([0-9a-z]+)")
			require.NoError(t, err)
			require.NoError(t, second.SetHandler(http.MethodGet, echoHandler("second")))
		})

		// "42" satisfies both; the earlier registration wins.
		assert.Equal(t, "first", serve(svc, http.MethodGet, "/v/42").Body.String())
		assert.Equal(t, "second", serve(svc, http.MethodGet, "/v/4a2").Body.String())
	})

	t.Run("static matches the raw encoded segment", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			enc, err := root.Subresource("/caf%C3%A9")
			require.NoError(t, err)
			require.NoError(t, enc.SetHandler(http.MethodGet, echoHandler("encoded")))
		})

		assert.Equal(t, http.StatusOK, serve(svc, http.MethodGet, "/caf%C3%A9").Code)
	})

	t.Run("undecodable segment answers 400", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			user, err := root.Subresource("/users/$id:@([0-9]+)")
			require.NoError(t, err)
			require.NoError(t, user.SetHandler(http.MethodGet, echoHandler("user")))
		})

		req := httptest.NewRequest(http.MethodGet, "/users/0", nil)
		req.URL.RawPath = "/users/%zz"
		req.URL.Path = "/users/%zz"
		w := httptest.NewRecorder()
		svc.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServiceMethodDispatch(t *testing.T) {
	newSvc := func(t *testing.T) *ResourceService {
		return buildService(t, func(root *Resource) {
			res, err := root.Subresource("/res")
			require.NoError(t, err)
			require.NoError(t, res.SetHandler(http.MethodGet, echoHandler("got")))
			require.NoError(t, res.SetHandler(http.MethodPost, echoHandler("posted")))
		})
	}

	t.Run("exact method", func(t *testing.T) {
		svc := newSvc(t)
		assert.Equal(t, "got", serve(svc, http.MethodGet, "/res").Body.String())
		assert.Equal(t, "posted", serve(svc, http.MethodPost, "/res").Body.String())
	})

	t.Run("HEAD falls back to GET with the body discarded", func(t *testing.T) {
		svc := newSvc(t)
		w := serve(svc, http.MethodHead, "/res")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("explicit HEAD handler wins over the fallback", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			res, err := root.Subresource("/res")
			require.NoError(t, err)
			require.NoError(t, res.SetHandler(http.MethodGet, echoHandler("got")))
			require.NoError(t, res.SetHandlerFunc(http.MethodHead, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("X-Head", "yes")
			}))
		})

		w := serve(svc, http.MethodHead, "/res")
		assert.Equal(t, "yes", w.Header().Get("X-Head"))
	})

	t.Run("default 405 with sorted Allow including implied HEAD", func(t *testing.T) {
		svc := newSvc(t)
		w := serve(svc, http.MethodDelete, "/res")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, "GET, HEAD, POST", w.Header().Get("Allow"))
	})

	t.Run("custom wildcard method handler", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			res, err := root.Subresource("/res")
			require.NoError(t, err)
			require.NoError(t, res.SetHandler(http.MethodGet, echoHandler("got")))
			res.SetWildcardMethodHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, "wildcard:%s", r.Method)
			}))
		})

		assert.Equal(t, "got", serve(svc, http.MethodGet, "/res").Body.String())
		assert.Equal(t, "wildcard:DELETE", serve(svc, http.MethodDelete, "/res").Body.String())
	})

	t.Run("disabled wildcard method answers not found", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			res, err := root.Subresource("/res")
			require.NoError(t, err)
			require.NoError(t, res.SetHandler(http.MethodGet, echoHandler("got")))
			res.DisableWildcardMethodHandler()
		})

		assert.Equal(t, http.StatusNotFound, serve(svc, http.MethodDelete, "/res").Code)
	})

	t.Run("structural resource answers not found", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			leaf, err := root.Subresource("/a/b")
			require.NoError(t, err)
			require.NoError(t, leaf.SetHandler(http.MethodGet, echoHandler("leaf")))
		})

		// /a exists as a structural node but handles nothing.
		assert.Equal(t, http.StatusNotFound, serve(svc, http.MethodGet, "/a").Code)
	})
}

func TestServiceTrailingSlash(t *testing.T) {
	t.Run("redirects to the registered shape by default", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			res, err := root.Subresource("/docs/")
			require.NoError(t, err)
			require.NoError(t, res.SetHandler(http.MethodGet, echoHandler("docs")))
		})

		w := serve(svc, http.MethodGet, "/docs")
		assert.Equal(t, http.StatusPermanentRedirect, w.Code)
		assert.Equal(t, "/docs/", w.Header().Get("Location"))
		assert.Empty(t, w.Body.String())

		assert.Equal(t, "docs", serve(svc, http.MethodGet, "/docs/").Body.String())
	})

	t.Run("redirect strips an extra slash", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			res, err := root.Subresource("/docs")
			require.NoError(t, err)
			require.NoError(t, res.SetHandler(http.MethodGet, echoHandler("docs")))
		})

		w := serve(svc, http.MethodGet, "/docs/")
		assert.Equal(t, http.StatusPermanentRedirect, w.Code)
		assert.Equal(t, "/docs", w.Header().Get("Location"))
	})

	t.Run("redirect preserves the query", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			res, err := root.Subresource("/docs/")
			require.NoError(t, err)
			require.NoError(t, res.SetHandler(http.MethodGet, echoHandler("docs")))
		})

		w := serve(svc, http.MethodGet, "/docs?page=2")
		assert.Equal(t, "/docs/?page=2", w.Header().Get("Location"))
	})

	t.Run("drop policy answers not found", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			res, err := root.Subresource("/docs/")
			require.NoError(t, err)
			require.NoError(t, res.SetHandler(http.MethodGet, echoHandler("docs")))
			res.SetSlashPolicy(SlashDrop)
		})

		assert.Equal(t, http.StatusNotFound, serve(svc, http.MethodGet, "/docs").Code)
		assert.Equal(t, http.StatusOK, serve(svc, http.MethodGet, "/docs/").Code)
	})

	t.Run("handle policy ignores the mismatch", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			res, err := root.Subresource("/docs/")
			require.NoError(t, err)
			require.NoError(t, res.SetHandler(http.MethodGet, echoHandler("docs")))
			res.SetSlashPolicy(SlashHandle)
		})

		assert.Equal(t, "docs", serve(svc, http.MethodGet, "/docs").Body.String())
		assert.Equal(t, "docs", serve(svc, http.MethodGet, "/docs/").Body.String())
	})

	t.Run("dot segments redirect to the clean path", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			res, err := root.Subresource("/docs")
			require.NoError(t, err)
			require.NoError(t, res.SetHandler(http.MethodGet, echoHandler("docs")))
		})

		w := serve(svc, http.MethodGet, "/a/../docs")
		assert.Equal(t, http.StatusPermanentRedirect, w.Code)
		assert.Equal(t, "/docs", w.Header().Get("Location"))
	})
}

func TestServiceSubtreeHandler(t *testing.T) {
	t.Run("recovers an unmatched deeper request", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			api, err := root.Subresource("/api")
			require.NoError(t, err)
			require.NoError(t, api.SetHandlerFunc(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, "fallback:%s", CurrentTemplate(r))
			}))
			api.SetSubtreeHandler()

			users, err := api.Subresource("/users")
			require.NoError(t, err)
			require.NoError(t, users.SetHandler(http.MethodGet, echoHandler("users")))
		})

		// Registered paths still dispatch normally.
		assert.Equal(t, "users", serve(svc, http.MethodGet, "/api/users").Body.String())
		// An unknown deeper path backtracks to /api.
		assert.Equal(t, "fallback:/api", serve(svc, http.MethodGet, "/api/unknown").Body.String())
		assert.Equal(t, "fallback:/api", serve(svc, http.MethodGet, "/api/users/1/x").Body.String())
	})

	t.Run("backtracking truncates deeper captures", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			api, err := root.Subresource("/api")
			require.NoError(t, err)
			require.NoError(t, api.SetHandlerFunc(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, "params:%d", len(Params(r)))
			}))
			api.SetSubtreeHandler()

			user, err := api.Subresource("/users/$id:@([0-9]+)")
			require.NoError(t, err)
			require.NoError(t, user.SetHandler(http.MethodGet, echoHandler("user")))
		})

		// /api/users/42/extra matches $id on the way down, then fails
		// deeper; the capture must not leak into the fallback.
		assert.Equal(t, "params:0", serve(svc, http.MethodGet, "/api/users/42/extra").Body.String())
	})

	t.Run("nearest subtree handler wins", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			require.NoError(t, root.SetHandler(http.MethodGet, echoHandler("root")))
			root.SetSubtreeHandler()

			api, err := root.Subresource("/api")
			require.NoError(t, err)
			require.NoError(t, api.SetHandler(http.MethodGet, echoHandler("api")))
			api.SetSubtreeHandler()
		})

		assert.Equal(t, "api", serve(svc, http.MethodGet, "/api/unknown").Body.String())
		assert.Equal(t, "root", serve(svc, http.MethodGet, "/other").Body.String())
	})

	t.Run("without method handlers there is no recovery", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			api, err := root.Subresource("/api")
			require.NoError(t, err)
			api.SetSubtreeHandler()

			users, err := api.Subresource("/users")
			require.NoError(t, err)
			require.NoError(t, users.SetHandler(http.MethodGet, echoHandler("users")))
		})

		assert.Equal(t, http.StatusNotFound, serve(svc, http.MethodGet, "/api/unknown").Code)
	})
}

func TestServiceMistargetedHandler(t *testing.T) {
	t.Run("custom responder answers at the failing resource", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			api, err := root.Subresource("/api")
			require.NoError(t, err)
			api.SetMistargetedHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, "api 404")
			}))

			users, err := api.Subresource("/users")
			require.NoError(t, err)
			require.NoError(t, users.SetHandler(http.MethodGet, echoHandler("users")))
		})

		w := serve(svc, http.MethodGet, "/api/unknown")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "api 404", w.Body.String())
	})

	t.Run("custom responder short-circuits subtree recovery", func(t *testing.T) {
		svc := buildService(t, func(root *Resource) {
			require.NoError(t, root.SetHandler(http.MethodGet, echoHandler("root")))
			root.SetSubtreeHandler()

			api, err := root.Subresource("/api")
			require.NoError(t, err)
			api.SetMistargetedHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, "api 404")
			}))
		})

		assert.Equal(t, "api 404", serve(svc, http.MethodGet, "/api/unknown").Body.String())
	})
}

func TestIntoService(t *testing.T) {
	t.Run("finalizing twice fails", func(t *testing.T) {
		root, err := NewResource("/")
		require.NoError(t, err)
		_, err = root.IntoService()
		require.NoError(t, err)
		_, err = root.IntoService()
		assert.Error(t, err)
	})

	t.Run("unreconciled placeholder fails", func(t *testing.T) {
		root, err := NewResource("/")
		require.NoError(t, err)
		// Force a placeholder node past the builder checks.
		child := newSegmentResource(&Pattern{kind: patternRegex, template: "$id", name: "id"})
		require.NoError(t, root.insertChild(child))

		_, err = root.IntoService()
		assert.Error(t, err)
	})

	t.Run("method middleware without the method fails", func(t *testing.T) {
		root, err := NewResource("/")
		require.NoError(t, err)
		res, err := root.Subresource("/res")
		require.NoError(t, err)
		require.NoError(t, res.WrapMethod(http.MethodPost, passThroughMiddleware()))

		_, err = root.IntoService()
		assert.Error(t, err)
	})

	t.Run("deep-rooted service matches its own segment", func(t *testing.T) {
		res, err := NewResource("/api/users")
		require.NoError(t, err)
		require.NoError(t, res.SetHandler(http.MethodGet, echoHandler("users")))

		svc, err := res.IntoService()
		require.NoError(t, err)

		// The service is rooted at "users": the first segment must be
		// its own.
		assert.Equal(t, "users", serve(svc, http.MethodGet, "/users").Body.String())
		assert.Equal(t, http.StatusNotFound, serve(svc, http.MethodGet, "/api/users").Code)
	})
}

func TestServiceConcurrentDispatch(t *testing.T) {
	svc := buildService(t, func(root *Resource) {
		user, err := root.Subresource("/users/$id:@([0-9]+)")
		require.NoError(t, err)
		require.NoError(t, user.SetHandler(http.MethodGet, paramEchoHandler("id")))
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("%d", n)
			w := serve(svc, http.MethodGet, "/users/"+id)
			assert.Equal(t, id, w.Body.String())
		}(i)
	}
	wg.Wait()
}
