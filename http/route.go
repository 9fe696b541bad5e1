package http

import (
	"errors"
	"fmt"
	"slices"
)

type HandlerFunc func(req *Request) (*Response, error)

type DynamicHandlerFunc func(req *Request, vars Vars) (*Response, error)

type Middleware func(next HandlerFunc) HandlerFunc

// Route is a pattern, a set of allowed methods and a handler.
type Route interface {
	Applies(req *Request) bool
	Execute(req *Request) (*Response, error)
}

// StaticRoute matches a fixed set of exact URLs.
type StaticRoute struct {
	URLs    []string
	Methods []Method
	Handler HandlerFunc
}

func NewStaticRoute(methods []Method, urls []string, handler HandlerFunc) *StaticRoute {
	return &StaticRoute{
		URLs:    urls,
		Methods: methods,
		Handler: handler,
	}
}

func (route *StaticRoute) Applies(req *Request) bool {
	return slices.Contains(route.URLs, req.URL) && slices.Contains(route.Methods, req.Method)
}

func (route *StaticRoute) Execute(req *Request) (*Response, error) {
	return route.Handler(req)
}

// DynamicRoute matches a URL template and passes the captured variables on
// to its handler.
type DynamicRoute struct {
	Template *Template
	Methods  []Method
	Handler  DynamicHandlerFunc
}

func NewDynamicRoute(methods []Method, template string, handler DynamicHandlerFunc) (*DynamicRoute, error) {
	t, err := CompileTemplate(template)
	if err != nil {
		return nil, err
	}

	return &DynamicRoute{
		Template: t,
		Methods:  methods,
		Handler:  handler,
	}, nil
}

func (route *DynamicRoute) Applies(req *Request) bool {
	if !slices.Contains(route.Methods, req.Method) {
		return false
	}
	_, ok := route.Template.Match(req.URL)
	return ok
}

func (route *DynamicRoute) Execute(req *Request) (*Response, error) {
	vars, ok := route.Template.Match(req.URL)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not match %s", ErrNoRouteFound, req.URL, route.Template)
	}
	return route.Handler(req, vars)
}

// Match returns the first route, in registration order, that applies to req.
func Match(routes []Route, req *Request) (Route, error) {
	for _, route := range routes {
		if route.Applies(req) {
			return route, nil
		}
	}
	return nil, fmt.Errorf("%w: %s %s", ErrNoRouteFound, req.Method, req.URL)
}

// Execute runs the route's handler. Handler errors, panics and missing
// responses are all reported as ErrProcessing.
func Execute(route Route, req *Request) (res *Response, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			res = nil
			err = fmt.Errorf("%w: panic: %v", ErrProcessing, recovered)
		}
	}()

	res, err = route.Execute(req)
	if err != nil {
		if errors.Is(err, ErrProcessing) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: handler returned no response", ErrProcessing)
	}

	return res, nil
}
