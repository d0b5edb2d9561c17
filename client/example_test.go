package client_test

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/adamwoolhether/apiclient/client"
	"github.com/adamwoolhether/apiclient/client/download"
)

func ExampleBuild() {
	c, err := client.Build(
		client.WithTimeout(10*time.Second),
		client.WithUserAgent("apiclient/1.0"),
		client.WithThrottle(20, 5),
	)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(c != nil)
	// Output: true
}

func ExampleClient_Send() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		fmt.Fprint(w, `{"success":false}`)
	}))
	defer srv.Close()

	c, err := client.Build()
	if err != nil {
		log.Fatal(err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	if err != nil {
		log.Fatal(err)
	}

	// Non-2xx responses are returned, not treated as errors.
	resp, err := c.Send(req)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(resp.StatusCode, resp.IsSuccess(), string(resp.Body))
	// Output: 418 false {"success":false}
}

func ExampleClient_Download() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "report contents")
	}))
	defer srv.Close()

	dir, err := os.MkdirTemp("", "apiclient-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	c, err := client.Build()
	if err != nil {
		log.Fatal(err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	if err != nil {
		log.Fatal(err)
	}

	dest := filepath.Join(dir, "reports", "latest.txt")

	var received int64
	status, err := c.Download(req, dest, download.WithProgress(func(p download.Progress) {
		received = p.Received
	}))
	if err != nil {
		log.Fatal(err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(status, received, string(data))
	// Output: 200 15 report contents
}
