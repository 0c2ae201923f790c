package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// HandleApiEvent serves an API Gateway HTTP API (payload format version 2.0)
// request through the same router as ServeHTTP.
func (h *ApiHandler) HandleApiEvent(
	ctx context.Context, origReq *events.APIGatewayV2HTTPRequest,
) *events.APIGatewayV2HTTPResponse {
	req, err := newHttpRequest(ctx, origReq)
	if err != nil {
		h.Log.Printf(`%s: %s "%s %s %s" %d: %s`,
			origReq.RequestContext.RequestID,
			origReq.RequestContext.HTTP.SourceIP,
			origReq.RequestContext.HTTP.Method,
			origReq.RequestContext.HTTP.Path,
			origReq.RequestContext.HTTP.Protocol,
			http.StatusBadRequest,
			err,
		)
		body := fmt.Sprintf("{\"error\":%q}\n", "Invalid request: "+err.Error())
		return &events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusBadRequest,
			Headers: map[string]string{
				"content-type": "application/json; charset=utf-8",
			},
			Body: body,
		}
	}

	res := newResponseBuffer()
	h.ServeHTTP(res, req)
	return res.apiResponse()
}

func newHttpRequest(
	ctx context.Context, req *events.APIGatewayV2HTTPRequest,
) (*http.Request, error) {
	body := req.Body

	// The production API Gateway base64 encodes binary payloads such as
	// multipart/form-data, while `sam local` doesn't.
	if req.IsBase64Encoded {
		if decoded, err := base64.StdEncoding.DecodeString(body); err != nil {
			return nil, fmt.Errorf("failed to base64 decode body: %w", err)
		} else {
			body = string(decoded)
		}
	}

	target := req.RawPath
	if req.RawQueryString != "" {
		target += "?" + req.RawQueryString
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		req.RequestContext.HTTP.Method,
		target,
		strings.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// API Gateway lowercases header names and joins repeated values with
	// commas. http.Header.Set canonicalizes the names.
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}
	for _, cookie := range req.Cookies {
		httpReq.Header.Add("Cookie", cookie)
	}
	if req.RequestContext.RequestID != "" {
		httpReq.Header.Set(RequestIdHeader, req.RequestContext.RequestID)
	}
	httpReq.RemoteAddr = req.RequestContext.HTTP.SourceIP
	if proto := req.RequestContext.HTTP.Protocol; proto != "" {
		httpReq.Proto = proto
	}
	return httpReq, nil
}

// responseBuffer is an http.ResponseWriter that collects a response for
// conversion to an events.APIGatewayV2HTTPResponse.
type responseBuffer struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{header: http.Header{}}
}

func (rb *responseBuffer) Header() http.Header {
	return rb.header
}

func (rb *responseBuffer) WriteHeader(status int) {
	if rb.status == 0 {
		rb.status = status
	}
}

func (rb *responseBuffer) Write(data []byte) (int, error) {
	rb.WriteHeader(http.StatusOK)
	return rb.body.Write(data)
}

func (rb *responseBuffer) apiResponse() *events.APIGatewayV2HTTPResponse {
	res := &events.APIGatewayV2HTTPResponse{
		StatusCode: rb.status,
		Headers:    make(map[string]string, len(rb.header)),
		Body:       rb.body.String(),
	}
	if res.StatusCode == 0 {
		res.StatusCode = http.StatusOK
	}

	for name, values := range rb.header {
		if name == "Set-Cookie" {
			res.Cookies = append(res.Cookies, values...)
		} else {
			res.Headers[strings.ToLower(name)] = strings.Join(values, ",")
		}
	}
	return res
}
