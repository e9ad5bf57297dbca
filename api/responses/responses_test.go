package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/trayfoods/trayfoods-backend/pkg/errors"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error.Code, envelope.Error.Message
}

func TestWriteErrorMapsCodesToStatus(t *testing.T) {
	cases := []struct {
		code   pkgerrors.Code
		status int
	}{
		{pkgerrors.CodeValidation, http.StatusBadRequest},
		{pkgerrors.CodeUnauthorized, http.StatusForbidden},
		{pkgerrors.CodeIllegalTransition, http.StatusUnprocessableEntity},
		{pkgerrors.CodeOrderNotFound, http.StatusNotFound},
		{pkgerrors.CodeAlreadyTaken, http.StatusConflict},
		{pkgerrors.CodeGatewayUnavailable, http.StatusServiceUnavailable},
		{pkgerrors.CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(context.Background(), nil, rec, pkgerrors.New(tc.code, "boom"))
		if rec.Code != tc.status {
			t.Fatalf("%s: status = %d, want %d", tc.code, rec.Code, tc.status)
		}
		code, _ := decodeError(t, rec)
		if code != string(tc.code) {
			t.Fatalf("%s: body code = %s", tc.code, code)
		}
	}
}

func TestWriteErrorHidesInternalMessages(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, errors.New("pq: connection refused on 10.0.0.3"))

	code, msg := decodeError(t, rec)
	if code != string(pkgerrors.CodeInternal) {
		t.Fatalf("code = %s", code)
	}
	if msg != "internal server error" {
		t.Fatalf("internal detail leaked: %q", msg)
	}
}

func TestWriteErrorPassesThroughSafeMessages(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec,
		pkgerrors.New(pkgerrors.CodeIllegalTransition, "store cannot move from pending to delivered"))

	_, msg := decodeError(t, rec)
	if msg != "store cannot move from pending to delivered" {
		t.Fatalf("msg = %q", msg)
	}
}

func TestWriteSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"trackId": "order_ab12cd34ef"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data["trackId"] != "order_ab12cd34ef" {
		t.Fatalf("data = %v", envelope.Data)
	}
}
