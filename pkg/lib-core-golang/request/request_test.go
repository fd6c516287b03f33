package request

import (
	"context"
	"net/http"
	"testing"

	"github.com/bxcodec/faker/v3"
	"github.com/stretchr/testify/assert"
	"gopkg.in/h2non/gock.v1"

	"github.com/evgeny-myasishchev/ledger.engine/pkg/lib-core-golang/diag"
)

func TestDo(t *testing.T) {
	defer gock.Off()

	type tcFn func(*testing.T)
	tests := []func() (string, tcFn){
		func() (string, tcFn) {
			return "should send the request and return response", func(t *testing.T) {
				url := faker.URL()
				expectedBody := faker.Sentence()

				gock.New(url).
					Get("/").
					Reply(200).
					BodyString(expectedBody)

				resp := Do(context.TODO(), Get(url))
				if !assert.True(t, gock.IsDone(), "No request performed") {
					return
				}

				respVal, err := resp()
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, 200, respVal.StatusCode)

				actualBody, err := resp.ReadAll()
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, expectedBody, string(actualBody))
			}
		},
		func() (string, tcFn) {
			return "should post json with headers", func(t *testing.T) {
				url := faker.URL()
				payload := map[string]interface{}{"key": faker.Word()}
				headerVal := faker.Word()
				requestID := faker.UUIDHyphenated()

				gock.New(url).
					Post("/").
					MatchHeader("content-type", "application/json").
					MatchHeader("x-custom", headerVal).
					MatchHeader("x-request-id", requestID).
					JSON(payload).
					Reply(204)

				ctx := diag.ContextWithRequestID(context.Background(), requestID)
				err := Do(ctx, PostJSON(url, payload).WithHeader("x-custom", headerVal)).Discard()
				if !assert.NoError(t, err) {
					return
				}
				assert.True(t, gock.IsDone(), "No request performed")
			}
		},
		func() (string, tcFn) {
			return "should fail with http err if not 2xx", func(t *testing.T) {
				url := faker.URL()
				body := faker.Sentence()
				gock.New(url).
					Get("/").
					Reply(http.StatusBadGateway).
					BodyString(body)

				_, err := Do(context.TODO(), Get(url))()
				if !assert.Error(t, err) {
					return
				}
				assert.Equal(t, &HTTPError{StatusCode: http.StatusBadGateway, Body: body}, err)
			}
		},
		func() (string, tcFn) {
			return "should fail if request can not be built", func(t *testing.T) {
				_, err := Do(context.TODO(), PostJSON(faker.URL(), make(chan int)))()
				assert.Error(t, err)
			}
		},
	}
	for _, tt := range tests {
		t.Run(tt())
	}
}
