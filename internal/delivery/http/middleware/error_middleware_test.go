package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"spotfence/internal/delivery/http/response"
	domainerrors "spotfence/internal/domain/errors"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runErrorHandler(t *testing.T, err error) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := NewErrorMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))
	mw.HandleHTTPError(err, c)

	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	return rec, resp
}

func TestHandleHTTPErrorMapsAppError(t *testing.T) {
	rec, resp := runErrorHandler(t, domainerrors.ErrUnknownAuthorizationState.WrapMessage("sometimes"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "unknown authorization state", resp.Message)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNKNOWN_AUTHORIZATION_STATE", resp.Error.Code)
	assert.Contains(t, resp.Error.Details, "sometimes")
}

func TestHandleHTTPErrorMapsWrappedAppError(t *testing.T) {
	err := errors.Wrap(domainerrors.ErrPermissionRequestFailed.WrapMessage("device offline"), "upgrade")
	rec, resp := runErrorHandler(t, err)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "PERMISSION_REQUEST_FAILED", resp.Error.Code)
}

func TestHandleHTTPErrorMapsEchoHTTPError(t *testing.T) {
	rec, resp := runErrorHandler(t, echo.NewHTTPError(http.StatusNotFound, "no such route"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "HTTP_ERROR", resp.Error.Code)
	assert.Equal(t, "no such route", resp.Message)
}

func TestHandleHTTPErrorDefaultsToInternal(t *testing.T) {
	rec, resp := runErrorHandler(t, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.Equal(t, "boom", resp.Error.Details)
}
