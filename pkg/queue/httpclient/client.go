package httpclient

import (
	"net/http"

	// Packages
	client "github.com/mutablelogic/go-client"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type Client struct {
	*client.Client
}

// envelope is the uniform response body the server wraps results in.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates a client with the API endpoint, for example
// http://localhost:8080/api/v1
func New(endpoint string, opts ...client.ClientOpt) (*Client, error) {
	if endpoint == "" {
		return nil, httpresponse.Err(http.StatusBadRequest).With("missing endpoint")
	}
	c, err := client.New(append([]client.ClientOpt{client.OptEndpoint(endpoint)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Client{c}, nil
}
