package router

import (
	"fmt"
	"net/http"
	"sync"

	"goji.io"
	"goji.io/pat"
)

type gojiRouter struct {
	mux *goji.Mux

	// unmatched requests are routed to the catch all route registered
	// after all other routes, once the router starts serving
	catchAll sync.Once
}

func (g *gojiRouter) Handle(method string, pattern string, handler http.Handler) {
	g.mux.Handle(pat.NewWithMethods(pattern, method), handler)
}

func (g *gojiRouter) Use(mw MiddlewareFunc) {
	g.mux.Use(func(h http.Handler) http.Handler { return mw(h) })
}

func (g *gojiRouter) pathParam(r *http.Request, name string) string {
	return pat.Param(r, name)
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	newHTTPErrorFromError(ResourceNotFoundError(fmt.Sprint("Route ", r.Method, " ", r.URL.Path, " not found"))).Send(w)
}

func (g *gojiRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.catchAll.Do(func() {
		g.mux.Handle(pat.New("/*"), http.HandlerFunc(routeNotFound))
	})
	g.mux.ServeHTTP(w, r)
}

func createGojiRouter() Router {
	return &gojiRouter{mux: goji.NewMux()}
}
