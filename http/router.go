package http

import "slices"

// Router collects routes at startup. Routes are evaluated in the order they
// were added, so register specific patterns before general ones.
type Router struct {
	routes     []Route
	prefix     string
	Middleware []Middleware
}

func NewRouter() *Router {
	return &Router{
		routes:     make([]Route, 0),
		Middleware: make([]Middleware, 0),
	}
}

func (router *Router) GET(url string, handler HandlerFunc, middleware ...Middleware) {
	router.Static([]Method{MethodGet}, []string{url}, handler, middleware...)
}

func (router *Router) HEAD(url string, handler HandlerFunc, middleware ...Middleware) {
	router.Static([]Method{MethodHead}, []string{url}, handler, middleware...)
}

func (router *Router) POST(url string, handler HandlerFunc, middleware ...Middleware) {
	router.Static([]Method{MethodPost}, []string{url}, handler, middleware...)
}

func (router *Router) PUT(url string, handler HandlerFunc, middleware ...Middleware) {
	router.Static([]Method{MethodPut}, []string{url}, handler, middleware...)
}

func (router *Router) DELETE(url string, handler HandlerFunc, middleware ...Middleware) {
	router.Static([]Method{MethodDelete}, []string{url}, handler, middleware...)
}

func (router *Router) OPTIONS(url string, handler HandlerFunc, middleware ...Middleware) {
	router.Static([]Method{MethodOptions}, []string{url}, handler, middleware...)
}

func (router *Router) Static(methods []Method, urls []string, handler HandlerFunc, middleware ...Middleware) {
	if router.prefix != "" {
		prefixed := make([]string, len(urls))
		for i, url := range urls {
			prefixed[i] = router.prefix + url
		}
		urls = prefixed
	}
	router.Add(NewStaticRoute(methods, urls, router.wrap(handler, middleware)))
}

func (router *Router) Dynamic(methods []Method, template string, handler DynamicHandlerFunc, middleware ...Middleware) error {
	route, err := NewDynamicRoute(methods, router.prefix+template, handler)
	if err != nil {
		return err
	}

	if len(middleware) > 0 || len(router.Middleware) > 0 {
		shared := slices.Clone(router.Middleware)
		route.Handler = func(req *Request, vars Vars) (*Response, error) {
			next := func(req *Request) (*Response, error) {
				return handler(req, vars)
			}
			return chain(next, middleware, shared)(req)
		}
	}

	router.Add(route)
	return nil
}

// MustDynamic is Dynamic for route tables built at startup.
func (router *Router) MustDynamic(methods []Method, template string, handler DynamicHandlerFunc, middleware ...Middleware) {
	if err := router.Dynamic(methods, template, handler, middleware...); err != nil {
		panic(err)
	}
}

// Group registers the routes added by groupFunc under path. Group
// middleware runs inside the router's own middleware. Routes passed to the
// group's Add are taken as they are, without the prefix.
func (router *Router) Group(path string, groupFunc func(group *Router), middleware ...Middleware) {
	group := &Router{
		routes:     make([]Route, 0),
		prefix:     router.prefix + path,
		Middleware: slices.Concat(middleware, router.Middleware),
	}

	groupFunc(group)

	router.routes = append(router.routes, group.routes...)
}

func (router *Router) Add(route Route) {
	router.routes = append(router.routes, route)
}

// Routes returns the route list to hand to a server.
func (router *Router) Routes() []Route {
	return slices.Clone(router.routes)
}

func (router *Router) Match(req *Request) (Route, error) {
	return Match(router.routes, req)
}

func (router *Router) wrap(handler HandlerFunc, middleware []Middleware) HandlerFunc {
	return chain(handler, middleware, router.Middleware)
}

// Route middleware wraps first, router middleware ends up outermost.
func chain(handler HandlerFunc, lists ...[]Middleware) HandlerFunc {
	for _, list := range lists {
		for _, m := range list {
			handler = m(handler)
		}
	}
	return handler
}
