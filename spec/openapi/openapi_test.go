package openapi_test

import (
	"context"
	"errors"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/restbuilder/builder"
	"github.com/adamwoolhether/restbuilder/spec"
	"github.com/adamwoolhether/restbuilder/spec/openapi"
)

const postsAPI = `
openapi: 3.0.3
info:
  title: Posts
  version: "1.0"
servers:
  - url: https://api.example.com/v1
paths:
  /posts:
    get:
      operationId: listPosts
      parameters:
        - name: userId
          in: query
          schema: {type: integer, minimum: 1}
        - name: _limit
          in: query
          schema: {type: integer, default: 10}
        - name: X-Trace
          in: header
          required: true
          schema: {type: string}
        - name: session
          in: cookie
          schema: {type: string}
      responses:
        "200":
          description: posts
          content:
            application/json:
              schema:
                type: array
                items: {$ref: "#/components/schemas/Post"}
    post:
      operationId: createPost
      requestBody:
        required: true
        content:
          application/json:
            schema: {$ref: "#/components/schemas/NewPost"}
      responses:
        "201":
          description: created
          content:
            application/json:
              schema: {$ref: "#/components/schemas/Post"}
  /posts/{post-id}:
    parameters:
      - name: post-id
        in: path
        required: true
        schema: {type: integer}
    get:
      responses:
        "200":
          description: post
          content:
            application/json:
              schema: {$ref: "#/components/schemas/Post"}
    put:
      operationId: replacePost
      requestBody:
        content:
          application/msgpack:
            schema: {type: string}
      responses:
        "204":
          description: replaced
components:
  schemas:
    Post:
      type: object
      properties:
        id: {type: integer}
        title: {type: string}
    NewPost:
      type: object
      required: [title]
      properties:
        title: {type: string, minLength: 1}
        userId: {type: integer}
        status: {type: string, enum: [draft, published]}
`

func load(t *testing.T) *spec.Catalog {
	t.Helper()

	cat, err := openapi.Load(context.Background(), []byte(postsAPI))
	if err != nil {
		t.Fatalf("exp no error, got %v", err)
	}

	return cat
}

func TestLoad(t *testing.T) {
	cat := load(t)

	if cat.BaseURL != "https://api.example.com/v1" {
		t.Errorf("exp base url from first server, got %q", cat.BaseURL)
	}

	type endpoint struct {
		Name, Method, Path, Hint, Codec string
	}

	var got []endpoint
	for _, e := range cat.Endpoints {
		s := e.Spec
		got = append(got, endpoint{s.Name(), s.Method(), s.Template().String(), s.ResponseHint(), s.Codec().Name()})
	}

	exp := []endpoint{
		{"listPosts", "GET", "/posts", "[]Post", "json"},
		{"createPost", "POST", "/posts", "Post", "json"},
		{"getPostsByPostId", "GET", "/posts/{post_id}", "Post", "json"},
		{"replacePost", "PUT", "/posts/{post_id}", "", "msgpack"},
	}

	if diff := cmp.Diff(exp, got); diff != "" {
		t.Errorf("endpoints mismatch (-exp +got):\n%s", diff)
	}
}

func TestLoad_Fields(t *testing.T) {
	cat := load(t)

	type field struct {
		Name       string
		Role       spec.Role
		Rename     string
		HeaderName string
		Optional   bool
		Type       string
		Rules      string
	}

	describe := func(s *spec.Specification) []field {
		var out []field
		for _, f := range s.Fields() {
			typ := ""
			if f.Type != nil {
				typ = f.Type.String()
			}
			out = append(out, field{f.Name, f.Role, f.Rename, f.HeaderName, f.Optional, typ, f.Rules})
		}
		return out
	}

	tests := map[string]struct {
		index int
		exp   []field
	}{
		"query and header parameters": {
			index: 0,
			exp: []field{
				{Name: "user_id", Role: spec.RoleQuery, Rename: "userId", Optional: true, Type: "int64", Rules: "min=1"},
				{Name: "limit", Role: spec.RoleQuery, Rename: "_limit", Optional: true, Type: "int64"},
				{Name: "x_trace", Role: spec.RoleHeader, HeaderName: "X-Trace", Type: "string"},
			},
		},
		"object body properties": {
			index: 1,
			exp: []field{
				{Name: "status", Role: spec.RoleBody, Optional: true, Type: "string", Rules: "oneof=draft published"},
				{Name: "title", Role: spec.RoleBody, Type: "string", Rules: "min=1"},
				{Name: "user_id", Role: spec.RoleBody, Rename: "userId", Optional: true, Type: "int64"},
			},
		},
		"shared path parameter": {
			index: 2,
			exp: []field{
				{Name: "post_id", Role: spec.RolePath, Type: "int64"},
			},
		},
		"whole body": {
			index: 3,
			exp: []field{
				{Name: "post_id", Role: spec.RolePath, Type: "int64"},
				{Name: "body", Role: spec.RoleBody, Optional: true},
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := describe(cat.Endpoints[tc.index].Spec)
			if diff := cmp.Diff(tc.exp, got); diff != "" {
				t.Errorf("fields mismatch (-exp +got):\n%s", diff)
			}
		})
	}

	if f, _ := cat.Endpoints[3].Spec.Field("body"); !f.Whole {
		t.Error("exp non-object body to be bound whole")
	}

	limit, _ := cat.Endpoints[0].Spec.Field("limit")
	def, ok := limit.DefaultValue()
	if !ok || def != int64(10) {
		t.Errorf("exp default int64(10), got %v (%v)", def, ok)
	}
}

func TestLoad_Build(t *testing.T) {
	cat := load(t)
	list := cat.Endpoints[0].Spec

	req, err := builder.New(list, builder.WithBaseURL(cat.BaseURL)).
		Set("user_id", 3).
		Set("x_trace", "abc").
		Build()
	if err != nil {
		t.Fatalf("exp no error, got %v", err)
	}

	if exp := "https://api.example.com/v1/posts?userId=3&_limit=10"; req.URL() != exp {
		t.Errorf("exp url %q, got %q", exp, req.URL())
	}
	if v, _ := req.Header("X-Trace"); v != "abc" {
		t.Errorf("exp header X-Trace=abc, got %q", v)
	}

	_, err = builder.New(list, builder.WithBaseURL(cat.BaseURL)).
		Set("user_id", 0).
		Set("x_trace", "abc").
		Build()
	if !errors.Is(err, builder.ErrValidation) {
		t.Errorf("exp minimum to be enforced, got %v", err)
	}

	req, err = builder.New(cat.Endpoints[1].Spec, builder.WithBaseURL(cat.BaseURL)).
		Set("title", "Hi").
		Set("user_id", 1).
		Build()
	if err != nil {
		t.Fatalf("exp no error, got %v", err)
	}
	if exp := `{"title":"Hi","userId":1}`; string(req.Body()) != exp {
		t.Errorf("exp body %s, got %s", exp, req.Body())
	}
}

func TestFromDocument_Errors(t *testing.T) {
	form := openapi3.NewOperation()
	form.OperationID = "upload"
	form.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithFormDataSchema(openapi3.NewObjectSchema()),
	}
	form.Responses = openapi3.NewResponses()

	withForm := &openapi3.T{Paths: openapi3.NewPaths()}
	withForm.AddOperation("/upload", "POST", form)

	tests := map[string]struct {
		doc *openapi3.T
		exp error
	}{
		"nil document":      {doc: nil, exp: openapi.ErrNoOperations},
		"no paths":          {doc: &openapi3.T{Paths: openapi3.NewPaths()}, exp: openapi.ErrNoOperations},
		"form request body": {doc: withForm, exp: openapi.ErrUnsupportedMediaType},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := openapi.FromDocument(tc.doc)
			if !errors.Is(err, tc.exp) {
				t.Errorf("exp %v, got %v", tc.exp, err)
			}
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	if _, err := openapi.Load(context.Background(), []byte("openapi: [")); err == nil {
		t.Error("exp error for malformed document")
	}
}

func TestFromDocument_TypeMapping(t *testing.T) {
	op := openapi3.NewOperation()
	op.OperationID = "search"
	op.Responses = openapi3.NewResponses()
	op.AddParameter(openapi3.NewQueryParameter("since").WithSchema(openapi3.NewDateTimeSchema()))
	op.AddParameter(openapi3.NewQueryParameter("tags").WithSchema(openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())))
	op.AddParameter(openapi3.NewQueryParameter("ratio").WithSchema(openapi3.NewFloat64Schema()))
	op.AddParameter(openapi3.NewQueryParameter("draft").WithSchema(openapi3.NewBoolSchema()))

	doc := &openapi3.T{Paths: openapi3.NewPaths()}
	doc.AddOperation("/search", "GET", op)

	cat, err := openapi.FromDocument(doc)
	if err != nil {
		t.Fatalf("exp no error, got %v", err)
	}

	got := make(map[string]string)
	for _, f := range cat.Endpoints[0].Spec.Fields() {
		got[f.Name] = f.Type.String()
	}

	exp := map[string]string{
		"since": "time.Time",
		"tags":  "[]string",
		"ratio": "float64",
		"draft": "bool",
	}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Errorf("types mismatch (-exp +got):\n%s", diff)
	}
}
