package router

import (
	"encoding/json"
	"net/http"
)

type handlerToolkit struct {
	request        *http.Request
	responseWriter http.ResponseWriter
	validator      *structValidator
	pathParamValue pathParamValueFunc
}

func (h *handlerToolkit) BindParams() *ParamsBinder {
	return newParamsBinder(h.request, h.validator, h.pathParamValue)
}

func (h *handlerToolkit) BindPayload(receiver interface{}) error {
	decoder := json.NewDecoder(h.request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(receiver); err != nil {
		logger.WithError(err).Info(h.request.Context(), "Failed to decode payload")
		return BadRequestError("ValidationFailed: malformed payload")
	}

	// Validator is failing to validate maps so have to ignore explicitly
	if _, isMap := receiver.(*map[string]interface{}); isMap {
		return nil
	}

	return h.validator.validateStruct(h.request.Context(), receiver)
}

func (h *handlerToolkit) WriteJSON(payload interface{}, decorators ...ResponseDecorator) error {
	// Headers must be set before WithStatus sends them
	h.responseWriter.Header().Set("content-type", "application/json")

	for _, decorator := range decorators {
		if err := decorator(h.responseWriter); err != nil {
			return err
		}
	}
	return json.NewEncoder(h.responseWriter).Encode(payload)
}

// WithStatus decorate response with particular http status
func (h *handlerToolkit) WithStatus(status int) ResponseDecorator {
	return func(w http.ResponseWriter) error {
		w.WriteHeader(status)
		return nil
	}
}
