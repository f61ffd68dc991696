// Package api contains the typed resource clients. Each is a thin wrapper
// that issues one HTTP call through the gateway and reshapes the JSON
// result; none of them hold session state.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/pocketledger/pocketledger-go/apierror"
	"github.com/pocketledger/pocketledger-go/gateway"
)

// do issues req through the gateway and decodes a 2xx JSON body into T.
// Non-2xx responses become apierror values with their status preserved.
func do[T any](ctx context.Context, gw *gateway.Client, req *gateway.Request) (*T, error) {
	resp, err := gw.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if !resp.OK() {
		return nil, apierror.FromResponse(resp.StatusCode, resp.Body)
	}

	var out T
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &out); err != nil {
			return nil, errors.Wrap(err, "decode response")
		}
	}

	return &out, nil
}

func jsonRequest(method, path string, body any) (*gateway.Request, error) {
	req := &gateway.Request{
		Method: method,
		Path:   path,
	}

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request")
		}
		req.Body = payload
	}

	return req, nil
}

func getRequest(path string) *gateway.Request {
	return &gateway.Request{
		Method: http.MethodGet,
		Path:   path,
	}
}

func deleteRequest(path string) *gateway.Request {
	return &gateway.Request{
		Method: http.MethodDelete,
		Path:   path,
	}
}

// message is the generic acknowledgement body for write operations.
type message struct {
	Message string `json:"message"`
}
