package restbuilder_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/adamwoolhether/restbuilder"
	"github.com/adamwoolhether/restbuilder/apiclient"
	"github.com/adamwoolhether/restbuilder/builder"
	"github.com/adamwoolhether/restbuilder/spec"
	"github.com/adamwoolhether/restbuilder/transport"
	"github.com/adamwoolhether/restbuilder/transport/httptransport"
)

type post struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
}

var getPost = spec.MustNew("GetPost", http.MethodGet, "/posts/{id}",
	spec.WithField("id", spec.Path()),
	spec.WithResponse[post](),
)

func ExampleNewHTTPClient() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":1,"userId":7,"title":"requested %s"}`, r.URL.Path)
	}))
	defer ts.Close()

	c, err := restbuilder.NewHTTPClient(
		apiclient.Config{BaseURL: ts.URL},
		[]httptransport.Option{httptransport.WithTimeout(5 * time.Second)},
		apiclient.WithEndpoint(getPost),
	)
	if err != nil {
		fmt.Println("build error:", err)
		return
	}

	p, err := builder.SendAs[post](context.Background(), c.MustEndpoint("get_post").Set("id", 1))
	if err != nil {
		fmt.Println("send error:", err)
		return
	}

	fmt.Println(p.UserID, p.Title)
	// Output: 7 requested /posts/1
}

func ExampleNewClient() {
	record := transport.Func(func(_ context.Context, method, url string, _ map[string]string, _ []byte) ([]byte, error) {
		fmt.Println(method, url)
		return []byte(`{"id":3}`), nil
	})

	c, err := restbuilder.NewClient(
		apiclient.Config{BaseURL: "https://jsonplaceholder.typicode.com"},
		record,
		apiclient.WithAlias(getPost, "post"),
	)
	if err != nil {
		fmt.Println("build error:", err)
		return
	}

	p, err := builder.SendAs[post](context.Background(), c.MustEndpoint("post").Set("id", 3))
	if err != nil {
		fmt.Println("send error:", err)
		return
	}

	fmt.Println(p.ID)
	// Output:
	// GET https://jsonplaceholder.typicode.com/posts/3
	// 3
}
