package util

import (
	"fmt"
	"net/http"
	"os"

	"github.com/goccy/go-json"
	"github.com/wkalt/ckpt/util/httputil"
)

// StdoutRedirected returns true if stdout is redirected to a file or pipe.
func StdoutRedirected() bool {
	if fi, err := os.Stdout.Stat(); err == nil {
		return (fi.Mode() & os.ModeCharDevice) == 0
	}
	return false
}

// HumanBytes renders a byte count with a binary unit.
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// APIError is an error response from the server.
type APIError struct {
	Code   int
	err    string
	detail string
}

func (e APIError) Error() string {
	if e.detail != "" {
		return fmt.Sprintf("%s (%s)", e.err, e.detail)
	}
	return e.err
}

func (e APIError) Detail() string {
	return e.detail
}

// CheckResponse returns an APIError for non-200 responses.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	response := httputil.ErrorResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("unexpected status %d: %w", resp.StatusCode, err)
	}
	return APIError{Code: resp.StatusCode, err: response.Error, detail: response.Detail}
}
