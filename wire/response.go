package wire

import (
	"fmt"

	"github.com/kartikbazzad/bunbase/docql/datum"
	docqlerrors "github.com/kartikbazzad/bunbase/docql/errors"
)

// Response is the decoded form of one server->client frame payload:
// {t: int, r: array, e?: int, ...}. Only t, r, and e are used by the core;
// any other field (n, b, p — notes, backtrace, profile) is ignored here.
type Response struct {
	Kind      ResponseKind
	ErrorKind ErrorKind // only meaningful when Kind == ResponseRuntimeError
	Result    []datum.Datum
}

// DecodeResponse parses a raw JSON payload into a Response.
func DecodeResponse(payload []byte) (Response, error) {
	d, err := datum.ParseBytes(payload)
	if err != nil {
		return Response{}, &docqlerrors.ProtocolError{Reason: "response payload is not valid JSON", Err: err}
	}
	return DecodeResponseDatum(d)
}

// DecodeResponseDatum extracts a Response from an already-parsed Datum,
// per §4.7: t -> response kind, r -> result array, e -> error kind (if present).
func DecodeResponseDatum(d datum.Datum) (Response, error) {
	obj, ok := d.GetObject()
	if !ok {
		return Response{}, &docqlerrors.ProtocolError{Reason: "response is not a JSON object"}
	}

	tVal, ok := obj["t"]
	if !ok {
		return Response{}, &docqlerrors.ProtocolError{Reason: "response is missing field \"t\""}
	}
	tNum, ok := tVal.GetNumber()
	if !ok {
		return Response{}, &docqlerrors.ProtocolError{Reason: "response field \"t\" is not a number"}
	}
	kind := ResponseKind(int(tNum))
	if !validResponseKind(kind) {
		return Response{}, &docqlerrors.ProtocolError{Reason: fmt.Sprintf("unknown response kind %d", int(tNum))}
	}

	var result []datum.Datum
	if rVal, ok := obj["r"]; ok {
		arr, ok := rVal.GetArray()
		if !ok {
			return Response{}, &docqlerrors.ProtocolError{Reason: "response field \"r\" is not an array"}
		}
		result = arr
	}

	resp := Response{Kind: kind, Result: result}

	if kind == ResponseRuntimeError {
		eVal, ok := obj["e"]
		if !ok {
			return Response{}, &docqlerrors.ProtocolError{Reason: "RUNTIME_ERROR response is missing field \"e\""}
		}
		eNum, ok := eVal.GetNumber()
		if !ok {
			return Response{}, &docqlerrors.ProtocolError{Reason: "response field \"e\" is not a number"}
		}
		ek := ErrorKind(int(eNum))
		if !validErrorKind(ek) {
			return Response{}, &docqlerrors.ProtocolError{Reason: fmt.Sprintf("unknown error kind %d", int(eNum))}
		}
		resp.ErrorKind = ek
	}

	if kind == ResponseSuccessAtom && len(result) != 1 {
		return Response{}, &docqlerrors.ProtocolError{Reason: fmt.Sprintf("SUCCESS_ATOM response carries %d results, expected 1", len(result))}
	}

	return resp, nil
}

func validResponseKind(k ResponseKind) bool {
	switch k {
	case ResponseSuccessAtom, ResponseSuccessSequence, ResponseSuccessPartial,
		ResponseWaitComplete, ResponseServerInfo,
		ResponseClientError, ResponseCompileError, ResponseRuntimeError:
		return true
	default:
		return false
	}
}

func validErrorKind(k ErrorKind) bool {
	switch k {
	case ErrorInternal, ErrorResourceLimit, ErrorQueryLogic, ErrorNonExistence,
		ErrorOpFailed, ErrorOpIndeterminate, ErrorUser, ErrorPermission:
		return true
	default:
		return false
	}
}

// IsError reports whether Kind is one of the three error responses.
func (r Response) IsError() bool {
	switch r.Kind {
	case ResponseClientError, ResponseCompileError, ResponseRuntimeError:
		return true
	default:
		return false
	}
}

// ToServerError converts an error Response into a *errors.ServerError. The
// message is the first result element's string form, per the protocol's
// convention of carrying the error message as r[0].
func (r Response) ToServerError() error {
	msg := ""
	if len(r.Result) > 0 {
		if s, ok := r.Result[0].GetString(); ok {
			msg = s
		} else {
			msg = datum.String(r.Result[0])
		}
	}

	var rk docqlerrors.ResponseKind
	switch r.Kind {
	case ResponseClientError:
		rk = docqlerrors.ResponseKindClientError
	case ResponseCompileError:
		rk = docqlerrors.ResponseKindCompileError
	default:
		rk = docqlerrors.ResponseKindRuntimeError
	}

	return &docqlerrors.ServerError{
		Response: rk,
		Kind:     toErrorsErrorKind(r.ErrorKind),
		Message:  msg,
	}
}

func toErrorsErrorKind(k ErrorKind) docqlerrors.ErrorKind {
	switch k {
	case ErrorInternal:
		return docqlerrors.ErrorKindInternal
	case ErrorResourceLimit:
		return docqlerrors.ErrorKindResourceLimit
	case ErrorQueryLogic:
		return docqlerrors.ErrorKindQueryLogic
	case ErrorNonExistence:
		return docqlerrors.ErrorKindNonExistence
	case ErrorOpFailed:
		return docqlerrors.ErrorKindOpFailed
	case ErrorOpIndeterminate:
		return docqlerrors.ErrorKindOpIndeterminate
	case ErrorUser:
		return docqlerrors.ErrorKindUser
	case ErrorPermission:
		return docqlerrors.ErrorKindPermission
	default:
		return docqlerrors.ErrorKindNone
	}
}
