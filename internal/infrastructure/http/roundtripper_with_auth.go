package httpinfra

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"hokz.academy/cli/internal/core/domain"
	httpdomain "hokz.academy/cli/internal/core/domain/http"
	httpports "hokz.academy/cli/internal/core/ports/http"
)

// RoundTripperWithAuth lets a plain *http.Client use the session coordinator.
// Requests are forwarded by path and query to the dispatcher's API endpoint; the
// request host is ignored. Repeated header values are joined into one
// comma-separated value. Responses built from a terminal *StatusError carry its
// status and body but no headers.
type RoundTripperWithAuth struct {
	dispatcher httpports.Dispatcher
}

func NewRoundTripperWithAuth(dispatcher httpports.Dispatcher) *RoundTripperWithAuth {
	return &RoundTripperWithAuth{dispatcher: dispatcher}
}

func (t *RoundTripperWithAuth) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to buffer request body: %w", err)
		}
	}

	domainReq := httpdomain.NewRequest(req.Method, req.URL.RequestURI())
	domainReq.Body = body
	for k, values := range req.Header {
		if len(values) > 0 {
			domainReq.SetHeader(k, strings.Join(values, ", "))
		}
	}

	resp, err := t.dispatcher.Dispatch(req.Context(), domainReq)
	if err != nil {
		// A rejected status is still a valid HTTP exchange for net/http callers
		var statusErr *domain.StatusError
		if errors.As(err, &statusErr) {
			return newHTTPResponse(req, statusErr.StatusCode, nil, statusErr.Body), nil
		}
		return nil, err
	}
	return newHTTPResponse(req, resp.StatusCode, resp.Headers, resp.Body), nil
}

func newHTTPResponse(req *http.Request, status int, header http.Header, body []byte) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

var _ http.RoundTripper = (*RoundTripperWithAuth)(nil)
