package client

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/dmitrijs2005/storefront/internal/common"
)

// mapError classifies a finished exchange. It returns nil for a 2xx response.
func mapError(op string, ex *Exchange) error {
	if ex.Err != nil {
		return transportError(op, ex.Err)
	}

	status := ex.Response.StatusCode
	if status >= 200 && status < 300 {
		return nil
	}

	e := &common.Error{Op: op, Status: status, Detail: detailOf(ex.Body)}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = common.KindAuthentication
	case status == http.StatusNotFound:
		e.Kind = common.KindNotFound
	case status >= 500:
		e.Kind = common.KindServer
	default:
		e.Kind = common.KindRejected
	}
	return e
}

func transportError(op string, err error) error {
	if isTimeout(err) {
		return &common.Error{Kind: common.KindNetworkTimeout, Op: op, Err: err}
	}
	return &common.Error{Kind: common.KindNetwork, Op: op, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// detailOf extracts a string "detail" field. Structured details, such as
// validation error lists, are ignored.
func detailOf(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err != nil {
		return ""
	}
	return detail
}
