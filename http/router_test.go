package http

import (
	"errors"
	"strings"
	"testing"

	"github.com/freekieb7/corehttp/test"
)

func request(method Method, url string) *Request {
	return &Request{
		Method:  method,
		Version: "1.1",
		URL:     url,
		Headers: make(map[string]string),
	}
}

func textHandler(body string) HandlerFunc {
	return func(req *Request) (*Response, error) {
		return Text(body), nil
	}
}

func TestStaticRouteExactness(t *testing.T) {
	route := NewStaticRoute([]Method{MethodGet}, []string{"/"}, textHandler("root"))
	routes := []Route{route}

	matched, err := Match(routes, request(MethodGet, "/"))
	test.AssertNoError(t, err)
	test.AssertTrue(t, matched == Route(route), "GET / matches")

	_, err = Match(routes, request(MethodPost, "/"))
	test.AssertErrorIs(t, err, ErrNoRouteFound)

	_, err = Match(routes, request(MethodGet, "/x"))
	test.AssertErrorIs(t, err, ErrNoRouteFound)

	_, err = Match(routes, request(MethodGet, ""))
	test.AssertErrorIs(t, err, ErrNoRouteFound)
}

func TestStaticRouteSets(t *testing.T) {
	route := NewStaticRoute(
		[]Method{MethodGet, MethodHead},
		[]string{"/", "/index.html"},
		textHandler("index"),
	)

	for _, url := range []string{"/", "/index.html"} {
		for _, method := range []Method{MethodGet, MethodHead} {
			test.AssertTrue(t, route.Applies(request(method, url)), method.String()+" "+url)
		}
		test.AssertTrue(t, !route.Applies(request(MethodPost, url)), "POST "+url)
	}
	test.AssertTrue(t, !route.Applies(request(MethodGet, "/index.htm")), "GET /index.htm")
}

func TestDynamicRouteCapture(t *testing.T) {
	var captured Vars
	route, err := NewDynamicRoute([]Method{MethodGet}, "/test/:id/", func(req *Request, vars Vars) (*Response, error) {
		captured = vars
		return Text("id " + vars.Get("id")), nil
	})
	test.AssertNoError(t, err)

	for _, url := range []string{"/test/123/", "/test/123"} {
		req := request(MethodGet, url)
		test.AssertTrue(t, route.Applies(req), url)

		res, err := Execute(route, req)
		test.AssertNoError(t, err)
		test.AssertEqual(t, Vars{"id": "123"}, captured)
		test.AssertEqual(t, []byte("id 123"), res.Body)
	}

	test.AssertTrue(t, !route.Applies(request(MethodGet, "/test/123/extra")), "/test/123/extra")
	test.AssertTrue(t, !route.Applies(request(MethodPost, "/test/123")), "POST /test/123")
}

func TestDynamicRouteExecuteWithoutMatch(t *testing.T) {
	route, err := NewDynamicRoute([]Method{MethodGet}, "/test/:id", func(req *Request, vars Vars) (*Response, error) {
		return Text("unreachable"), nil
	})
	test.AssertNoError(t, err)

	_, err = route.Execute(request(MethodGet, "/nope"))
	test.AssertErrorIs(t, err, ErrNoRouteFound)
}

func TestNewDynamicRouteInvalidTemplate(t *testing.T) {
	_, err := NewDynamicRoute([]Method{MethodGet}, "", nil)
	test.AssertErrorIs(t, err, ErrInvalidTemplate)
}

func TestMatchFirstWins(t *testing.T) {
	first, err := NewDynamicRoute([]Method{MethodGet}, "/items/:id", func(req *Request, vars Vars) (*Response, error) {
		return Text("dynamic"), nil
	})
	test.AssertNoError(t, err)
	second := NewStaticRoute([]Method{MethodGet}, []string{"/items/new"}, textHandler("static"))

	matched, err := Match([]Route{first, second}, request(MethodGet, "/items/new"))
	test.AssertNoError(t, err)
	test.AssertTrue(t, matched == Route(first), "first registered route wins")

	matched, err = Match([]Route{second, first}, request(MethodGet, "/items/new"))
	test.AssertNoError(t, err)
	test.AssertTrue(t, matched == Route(second), "order decides, not specificity")
}

func TestMatchEmptyRouteList(t *testing.T) {
	_, err := Match(nil, request(MethodGet, "/"))
	test.AssertErrorIs(t, err, ErrNoRouteFound)
}

func TestExecuteProcessingErrors(t *testing.T) {
	errBoom := errors.New("boom")

	cases := map[string]HandlerFunc{
		"error": func(req *Request) (*Response, error) {
			return nil, errBoom
		},
		"nil response": func(req *Request) (*Response, error) {
			return nil, nil
		},
		"panic": func(req *Request) (*Response, error) {
			panic("handler exploded")
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			route := NewStaticRoute([]Method{MethodGet}, []string{"/"}, handler)

			res, err := Execute(route, request(MethodGet, "/"))
			test.AssertErrorIs(t, err, ErrProcessing)
			test.AssertTrue(t, res == nil, "no response on failure")
		})
	}

	route := NewStaticRoute([]Method{MethodGet}, []string{"/"}, cases["error"])
	_, err := Execute(route, request(MethodGet, "/"))
	test.AssertErrorIs(t, err, errBoom)
}

func TestRouterHelpers(t *testing.T) {
	router := NewRouter()
	router.GET("/", textHandler("get"))
	router.HEAD("/", textHandler("head"))
	router.POST("/", textHandler("post"))
	router.PUT("/", textHandler("put"))
	router.DELETE("/", textHandler("delete"))
	router.OPTIONS("/", textHandler("options"))
	router.MustDynamic([]Method{MethodGet}, "/hello/:name", func(req *Request, vars Vars) (*Response, error) {
		return Text("hello " + vars.Get("name")), nil
	})

	test.AssertEqual(t, 7, len(router.Routes()))

	for _, method := range []Method{MethodGet, MethodHead, MethodPost, MethodPut, MethodDelete, MethodOptions} {
		req := request(method, "/")
		route, err := router.Match(req)
		if !test.AssertNoError(t, err) {
			continue
		}

		res, err := Execute(route, req)
		test.AssertNoError(t, err)
		test.AssertEqual(t, strings.ToLower(method.String()), string(res.Body))
	}

	req := request(MethodGet, "/hello/world")
	route, err := router.Match(req)
	test.AssertNoError(t, err)
	res, err := Execute(route, req)
	test.AssertNoError(t, err)
	test.AssertEqual(t, "hello world", string(res.Body))
}

func TestRouterDynamicInvalidTemplate(t *testing.T) {
	router := NewRouter()

	err := router.Dynamic([]Method{MethodGet}, "/a/:", nil)
	test.AssertErrorIs(t, err, ErrInvalidTemplate)
	test.AssertEqual(t, 0, len(router.Routes()))
}

func TestRouterMiddlewareOrder(t *testing.T) {
	var trail []string
	tag := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(req *Request) (*Response, error) {
				trail = append(trail, name)
				return next(req)
			}
		}
	}

	router := NewRouter()
	router.Middleware = append(router.Middleware, tag("router"))
	router.GET("/static", textHandler("ok"), tag("route"))
	router.MustDynamic([]Method{MethodGet}, "/dynamic/:id", func(req *Request, vars Vars) (*Response, error) {
		trail = append(trail, "handler "+vars.Get("id"))
		return Text("ok"), nil
	}, tag("route"))

	for _, url := range []string{"/static", "/dynamic/7"} {
		req := request(MethodGet, url)
		route, err := router.Match(req)
		test.AssertNoError(t, err)
		_, err = Execute(route, req)
		test.AssertNoError(t, err)
	}

	test.AssertEqual(t, []string{"router", "route", "router", "route", "handler 7"}, trail)
}

func TestRouterGroup(t *testing.T) {
	var trail []string
	tag := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(req *Request) (*Response, error) {
				trail = append(trail, name)
				return next(req)
			}
		}
	}

	router := NewRouter()
	router.Middleware = append(router.Middleware, tag("router"))
	router.GET("/health", textHandler("health"))
	router.Group("/api", func(api *Router) {
		api.GET("/status", textHandler("status"))
		api.MustDynamic([]Method{MethodGet}, "/users/:id", func(req *Request, vars Vars) (*Response, error) {
			return Text("user " + vars.Get("id")), nil
		})
		api.Group("/v2", func(v2 *Router) {
			v2.POST("/items", textHandler("items"))
		})
	}, tag("group"))

	test.AssertEqual(t, 4, len(router.Routes()))

	cases := []struct {
		method Method
		url    string
		body   string
	}{
		{MethodGet, "/health", "health"},
		{MethodGet, "/api/status", "status"},
		{MethodGet, "/api/users/7", "user 7"},
		{MethodPost, "/api/v2/items", "items"},
	}

	for _, tc := range cases {
		req := request(tc.method, tc.url)
		route, err := router.Match(req)
		if !test.AssertNoError(t, err) {
			continue
		}

		res, err := Execute(route, req)
		test.AssertNoError(t, err)
		test.AssertEqual(t, tc.body, string(res.Body))
	}

	for _, url := range []string{"/status", "/users/7", "/v2/items", "/api/items"} {
		_, err := router.Match(request(MethodGet, url))
		test.AssertErrorIs(t, err, ErrNoRouteFound)
	}

	trail = nil
	req := request(MethodGet, "/api/users/7")
	route, err := router.Match(req)
	test.AssertNoError(t, err)
	_, err = Execute(route, req)
	test.AssertNoError(t, err)
	test.AssertEqual(t, []string{"router", "group"}, trail)
}

func TestRecoverMiddleware(t *testing.T) {
	handler := RecoverMiddleware(discardLogger())(func(req *Request) (*Response, error) {
		panic("boom")
	})

	res, err := handler(request(MethodGet, "/"))
	test.AssertErrorIs(t, err, ErrProcessing)
	test.AssertTrue(t, res == nil, "no response after panic")
}

func BenchmarkMatch(b *testing.B) {
	router := NewRouter()
	router.GET("/", textHandler("root"))
	router.GET("/about", textHandler("about"))
	router.MustDynamic([]Method{MethodGet}, "/users/:user/posts/:post", func(req *Request, vars Vars) (*Response, error) {
		return Text("post"), nil
	})
	routes := router.Routes()
	req := request(MethodGet, "/users/alice/posts/7")

	for b.Loop() {
		if _, err := Match(routes, req); err != nil {
			b.Fatal(err)
		}
	}
}
