package req

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"vaaniarc/internal/pkg/errs"
)

type sampleInput struct {
	Name  string `json:"name" validate:"required,min=2"`
	Count int    `json:"count" validate:"omitempty,min=1,max=10"`
}

func bind(t *testing.T, contentType, body string) (*sampleInput, *errs.CustomError) {
	t.Helper()
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))
	r.Header.Set("Content-Type", contentType)
	var dst sampleInput
	return &dst, BindJSON(r, &dst)
}

func TestBindJSONSuccess(t *testing.T) {
	dst, customErr := bind(t, "application/json", `{"name":"alice","count":3}`)
	require.Nil(t, customErr)
	require.Equal(t, "alice", dst.Name)
	require.Equal(t, 3, dst.Count)
}

func TestBindJSONRejectsWrongContentType(t *testing.T) {
	_, customErr := bind(t, "text/plain", `{"name":"alice"}`)
	require.NotNil(t, customErr)
	require.Equal(t, errs.ErrUnsupportedMediaType, customErr.Code)
}

func TestBindJSONRejectsMalformedBody(t *testing.T) {
	_, customErr := bind(t, "application/json", `{"name":`)
	require.NotNil(t, customErr)
	require.Equal(t, errs.ErrInvalidJSONFormat, customErr.Code)
}

func TestBindJSONRejectsUnknownFields(t *testing.T) {
	_, customErr := bind(t, "application/json", `{"name":"alice","sneaky":true}`)
	require.NotNil(t, customErr)
	require.Equal(t, errs.ErrInvalidJSONFormat, customErr.Code)
}

func TestBindJSONRejectsTrailingContent(t *testing.T) {
	_, customErr := bind(t, "application/json", `{"name":"alice"}{"name":"bob"}`)
	require.NotNil(t, customErr)
	require.Equal(t, errs.ErrExtraContentInBody, customErr.Code)
}

func TestBindJSONRunsValidation(t *testing.T) {
	_, customErr := bind(t, "application/json", `{"name":"a"}`)
	require.NotNil(t, customErr)
	require.Equal(t, errs.ErrInvalidParams, customErr.Code)

	_, customErr = bind(t, "application/json", `{"name":"alice","count":99}`)
	require.NotNil(t, customErr)
	require.Equal(t, errs.ErrInvalidParams, customErr.Code)
}
