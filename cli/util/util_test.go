package util_test

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/ckpt/cli/util"
)

func TestHumanBytes(t *testing.T) {
	cases := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, c := range cases {
		assert.Equal(t, c.expected, util.HumanBytes(c.input))
	}
}

func TestCheckResponse(t *testing.T) {
	response := func(code int, body string) *http.Response {
		return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(body))}
	}
	require.NoError(t, util.CheckResponse(response(http.StatusOK, "")))

	err := util.CheckResponse(response(http.StatusNotFound, `{"error":"index x not found"}`))
	apiErr := util.APIError{}
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Code)
	assert.Equal(t, "index x not found", err.Error())

	err = util.CheckResponse(response(http.StatusBadRequest, `{"error":"bad","detail":"why"}`))
	assert.Equal(t, "bad (why)", err.Error())

	err = util.CheckResponse(response(http.StatusBadGateway, "<html>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
