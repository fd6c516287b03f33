package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/diag"
)

var defaultLogger = diag.CreateLogger()

const defaultTimeout = 10 * time.Second

// HTTPError is returned when the response status is other than 2xx
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Unexpected response status %v: %v", e.StatusCode, e.Body)
}

// NewHTTPErrorFromResponse creates an error and consumes the response body
func NewHTTPErrorFromResponse(res *http.Response) error {
	defer res.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return &HTTPError{StatusCode: res.StatusCode, Body: string(body)}
}

type sendCfg struct {
	logger diag.Logger
	client *http.Client
}

// SendOpt is a send specific option
type SendOpt func(cfg *sendCfg)

// WithClient option to use a custom http client
func WithClient(client *http.Client) SendOpt {
	return func(cfg *sendCfg) {
		cfg.client = client
	}
}

// ReqFactory is a function that creates an instance of a request
type ReqFactory func() (*http.Request, error)

// Get creates a new req factory that creates a get request for given url
func Get(url string) ReqFactory {
	return func() (*http.Request, error) {
		return http.NewRequest("GET", url, nil)
	}
}

// PostJSON creates a new req factory that posts the payload as json
func PostJSON(url string, payload interface{}) ReqFactory {
	return func() (*http.Request, error) {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to marshal payload")
		}
		req, err := http.NewRequest("POST", url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("content-type", "application/json")
		return req, nil
	}
}

// WithHeader decorates the request with a header
func (f ReqFactory) WithHeader(name string, value string) ReqFactory {
	return func() (*http.Request, error) {
		req, err := f()
		if err != nil {
			return nil, err
		}
		req.Header.Set(name, value)
		return req, nil
	}
}

// ResFactory is a function that holds a request result with a response or error
type ResFactory func() (*http.Response, error)

// ReadAll will read entire body as a byte array
func (f ResFactory) ReadAll() ([]byte, error) {
	res, err := f()
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	return io.ReadAll(res.Body)
}

// Discard will read and drop the body, only the error is returned
func (f ResFactory) Discard() error {
	res, err := f()
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, err = io.Copy(io.Discard, res.Body)
	return err
}

func newResFactory(res *http.Response, err error) ResFactory {
	if err == nil && res.StatusCode >= 300 {
		err = NewHTTPErrorFromResponse(res)
		res = nil
	}
	return func() (*http.Response, error) {
		return res, err
	}
}

// Do will send the request. Will fail if response status is other than 2xx
func Do(ctx context.Context, factory ReqFactory, opts ...SendOpt) ResFactory {
	cfg := sendCfg{
		logger: defaultLogger,
		client: &http.Client{Transport: http.DefaultTransport, Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	req, err := factory()
	if err != nil {
		return newResFactory(nil, err)
	}
	if requestID := diag.RequestIDValue(ctx); requestID != "" {
		req.Header.Set("x-request-id", requestID)
	}

	cfg.logger.Debug(ctx, "SEND REQ: %v %v", req.Method, req.URL)
	startedAt := time.Now()
	res, err := cfg.client.Do(req.WithContext(ctx))
	if err != nil {
		cfg.logger.WithError(err).Info(ctx, "REQ FAILED: %v %v", req.Method, req.URL)
		return newResFactory(nil, err)
	}
	cfg.logger.WithData(diag.MsgData{
		"statusCode": res.StatusCode,
		"duration":   time.Since(startedAt).Seconds(),
	}).Debug(ctx, "RES: %v %v %v", res.StatusCode, req.Method, req.URL)
	return newResFactory(res, nil)
}
