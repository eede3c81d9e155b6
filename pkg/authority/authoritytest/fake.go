// Package authoritytest provides an in-memory authority for tests.
package authoritytest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/smallstep/agentctl/pkg/authority"
)

// Call records one request made against the fake
type Call struct {
	Method string
	Path   string
	Body   map[string]any
}

// Fake stores objects by path. POST to a collection path stores the body
// under <path>/<slug>; PUT stores the body at the path itself.
type Fake struct {
	mu       sync.Mutex
	objects  map[string]map[string]any
	failures map[string]*authority.Error
	calls    []Call

	// Decorate, when set, may add server-owned attributes to an object
	// before it is stored
	Decorate func(path string, obj map[string]any) map[string]any

	AuthorityList []authority.Authority
}

var _ authority.API = (*Fake)(nil)

// New creates an empty fake
func New() *Fake {
	return &Fake{
		objects:  make(map[string]map[string]any),
		failures: make(map[string]*authority.Error),
	}
}

// Seed stores an object without recording a call
func (f *Fake) Seed(path string, obj map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = clone(obj)
}

// Object returns a copy of the stored object
func (f *Fake) Object(path string) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[path]
	return clone(obj), ok
}

// Fail makes every subsequent request with method and path return err
func (f *Fake) Fail(method, path string, err *authority.Error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = err
}

// Calls returns every recorded request
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Mutations returns the recorded non-GET requests
func (f *Fake) Mutations() []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method != http.MethodGet {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears the recorded calls
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *Fake) record(method, path string, body map[string]any) error {
	f.calls = append(f.calls, Call{Method: method, Path: path, Body: clone(body)})
	if err, ok := f.failures[method+" "+path]; ok {
		out := *err
		out.Method, out.Path = method, path
		return &out
	}
	return nil
}

func (f *Fake) store(path string, obj map[string]any) map[string]any {
	obj = clone(obj)
	if f.Decorate != nil {
		obj = f.Decorate(path, obj)
	}
	f.objects[path] = obj
	return clone(obj)
}

func notFound(method, path string) *authority.Error {
	return &authority.Error{
		Method:     method,
		Path:       path,
		StatusCode: http.StatusNotFound,
		Message:    "not found",
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func (f *Fake) Get(ctx context.Context, path string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(http.MethodGet, path, nil); err != nil {
		return nil, err
	}
	obj, ok := f.objects[path]
	if !ok {
		return nil, notFound(http.MethodGet, path)
	}
	return clone(obj), nil
}

func (f *Fake) Post(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(http.MethodPost, path, body); err != nil {
		return nil, err
	}
	slug, _ := body["slug"].(string)
	if slug == "" {
		return nil, &authority.Error{
			Method:     http.MethodPost,
			Path:       path,
			StatusCode: http.StatusBadRequest,
			Message:    "slug is required",
		}
	}
	target := strings.TrimRight(path, "/") + authority.Path(slug)
	if existing, ok := f.objects[target]; ok {
		return nil, &authority.Error{
			Method:     http.MethodPost,
			Path:       path,
			StatusCode: http.StatusConflict,
			Message:    fmt.Sprintf("%s already exists", slug),
			Body:       clone(existing),
		}
	}
	return f.store(target, body), nil
}

func (f *Fake) Put(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(http.MethodPut, path, body); err != nil {
		return nil, err
	}
	return f.store(path, body), nil
}

func (f *Fake) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(http.MethodDelete, path, nil); err != nil {
		return err
	}
	if _, ok := f.objects[path]; !ok {
		return notFound(http.MethodDelete, path)
	}
	delete(f.objects, path)
	return nil
}

func (f *Fake) Authorities(ctx context.Context) ([]authority.Authority, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(http.MethodGet, "/authorities", nil); err != nil {
		return nil, err
	}
	return append([]authority.Authority(nil), f.AuthorityList...), nil
}

// clone deep-copies through JSON so stored objects look exactly like
// decoded responses (numbers become float64)
func clone(obj map[string]any) map[string]any {
	if obj == nil {
		return nil
	}
	data, err := json.Marshal(obj)
	if err != nil {
		panic(fmt.Sprintf("authoritytest: object is not JSON: %v", err))
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("authoritytest: %v", err))
	}
	return out
}
