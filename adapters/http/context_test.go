package vocabhttp

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/goliatone/go-router"
)

type testContext struct {
	req           *http.Request
	body          []byte
	params        map[string]string
	locals        map[any]any
	ctx           context.Context
	recorder      *httptest.ResponseRecorder
	statusWritten bool
	status        int
}

func newTestContext(t *testing.T, req *http.Request, params map[string]string) *testContext {
	t.Helper()
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
	}
	if params == nil {
		params = map[string]string{}
	}
	return &testContext{
		req:      req,
		body:     body,
		params:   params,
		locals:   make(map[any]any),
		ctx:      req.Context(),
		recorder: httptest.NewRecorder(),
	}
}

func (c *testContext) Bind(v any) error {
	if len(c.body) == 0 {
		return nil
	}
	return json.Unmarshal(c.body, v)
}

func (c *testContext) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

func (c *testContext) SetContext(ctx context.Context) { c.ctx = ctx }

func (c *testContext) Next() error { return nil }

func (c *testContext) RouteName() string { return "" }

func (c *testContext) RouteParams() map[string]string { return c.params }

func (c *testContext) Method() string { return c.req.Method }

func (c *testContext) Path() string { return c.req.URL.Path }

func (c *testContext) Param(name string, defaultValue ...string) string {
	if val, ok := c.params[name]; ok {
		return val
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) ParamsInt(key string, defaultValue int) int {
	parsed, err := strconv.Atoi(c.Param(key))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (c *testContext) Query(name string, defaultValue ...string) string {
	if val := c.req.URL.Query().Get(name); val != "" {
		return val
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) QueryValues(name string) []string {
	return c.req.URL.Query()[name]
}

func (c *testContext) QueryInt(name string, defaultValue int) int {
	parsed, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (c *testContext) Queries() map[string]string {
	out := map[string]string{}
	for key := range c.req.URL.Query() {
		out[key] = c.req.URL.Query().Get(key)
	}
	return out
}

func (c *testContext) Body() []byte { return c.body }

func (c *testContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		c.locals[key] = value[0]
		return value[0]
	}
	return c.locals[key]
}

func (c *testContext) LocalsMerge(key any, value map[string]any) map[string]any {
	merged, _ := c.locals[key].(map[string]any)
	if merged == nil {
		merged = map[string]any{}
	}
	for k, v := range value {
		merged[k] = v
	}
	c.locals[key] = merged
	return merged
}

func (c *testContext) Render(name string, bind any, layouts ...string) error { return nil }

func (c *testContext) Cookie(cookie *router.Cookie) {}

func (c *testContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) CookieParser(out any) error { return nil }

func (c *testContext) Redirect(location string, status ...int) error {
	code := http.StatusFound
	if len(status) > 0 {
		code = status[0]
	}
	c.SetHeader("Location", location)
	c.writeHeader(code)
	return nil
}

func (c *testContext) RedirectToRoute(routeName string, params router.ViewContext, status ...int) error {
	return nil
}

func (c *testContext) RedirectBack(fallback string, status ...int) error { return nil }

func (c *testContext) Header(name string) string { return c.req.Header.Get(name) }

func (c *testContext) Referer() string { return c.req.Referer() }

func (c *testContext) OriginalURL() string { return c.req.URL.RequestURI() }

func (c *testContext) FormFile(key string) (*multipart.FileHeader, error) { return nil, nil }

func (c *testContext) FormValue(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) IP() string { return "127.0.0.1" }

func (c *testContext) Status(code int) router.Context {
	c.writeHeader(code)
	return c
}

func (c *testContext) Send(body []byte) error {
	if !c.statusWritten {
		c.writeHeader(http.StatusOK)
	}
	_, err := c.recorder.Write(body)
	return err
}

func (c *testContext) SendString(body string) error { return c.Send([]byte(body)) }

func (c *testContext) SendStatus(code int) error {
	c.writeHeader(code)
	return nil
}

func (c *testContext) JSON(code int, v any) error {
	c.recorder.Header().Set("Content-Type", "application/json")
	c.writeHeader(code)
	return json.NewEncoder(c.recorder).Encode(v)
}

func (c *testContext) SendStream(r io.Reader) error {
	if !c.statusWritten {
		c.writeHeader(http.StatusOK)
	}
	_, err := io.Copy(c.recorder, r)
	return err
}

func (c *testContext) NoContent(code int) error {
	c.writeHeader(code)
	return nil
}

func (c *testContext) SetHeader(key, val string) router.Context {
	c.recorder.Header().Set(key, val)
	return c
}

func (c *testContext) Set(key string, value any) { c.locals[key] = value }

func (c *testContext) Get(key string, def any) any {
	if val, ok := c.locals[key]; ok {
		return val
	}
	return def
}

func (c *testContext) GetString(key string, def string) string {
	if val, ok := c.locals[key].(string); ok {
		return val
	}
	return def
}

func (c *testContext) GetInt(key string, def int) int {
	if val, ok := c.locals[key].(int); ok {
		return val
	}
	return def
}

func (c *testContext) GetBool(key string, def bool) bool {
	if val, ok := c.locals[key].(bool); ok {
		return val
	}
	return def
}

func (c *testContext) writeHeader(code int) {
	if c.statusWritten {
		c.status = code
		return
	}
	c.statusWritten = true
	c.status = code
	c.recorder.WriteHeader(code)
}

var _ router.Context = (*testContext)(nil)
