package apiclient_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/adamwoolhether/apiclient"
	"github.com/adamwoolhether/apiclient/api"
	"github.com/adamwoolhether/apiclient/client"
)

type serviceError struct {
	Message string `json:"message" validate:"required"`
}

func (e *serviceError) Error() string { return e.Message }

func ExampleNew() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success":true,"errors":null,"token":null,"data":{"msg":"hello"}}`)
	}))
	defer ts.Close()

	transport, err := apiclient.NewTransport(client.WithTimeout(5 * time.Second))
	if err != nil {
		fmt.Println("build error:", err)
		return
	}

	c, err := apiclient.New[*serviceError](ts.URL, api.WithTransport(transport))
	if err != nil {
		fmt.Println("build error:", err)
		return
	}
	defer c.Close()

	resp, err := api.Fetch[struct{ Msg string }](context.Background(), c, http.MethodGet, "/greeting")
	if err != nil {
		fmt.Println("fetch error:", err)
		return
	}

	fmt.Println(resp.Msg)
	// Output: hello
}
