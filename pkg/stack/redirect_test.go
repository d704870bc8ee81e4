package stack

import (
	"encoding/json"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedirectFunctionCode(t *testing.T) {
	t.Parallel()

	code := RedirectFunctionCode("example.com")
	require.True(t, strings.HasPrefix(code, "function handler(event) {"))
	require.Contains(t, code, `host === "www.example.com"`)
	require.Contains(t, code, "statusCode: 301")
	require.Contains(t, code, `var location = "https://example.com" + request.uri;`)
	require.Contains(t, code, "request.querystring")
	require.Contains(t, code, "return request;")
}

type redirectResult struct {
	StatusCode int    `json:"statusCode"`
	URI        string `json:"uri"`
	Headers    map[string]struct {
		Value string `json:"value"`
	} `json:"headers"`
}

// runRedirect evaluates the function under node with a CloudFront viewer-request event.
func runRedirect(t *testing.T, host, uri string, querystring map[string]any) redirectResult {
	t.Helper()

	event, err := json.Marshal(map[string]any{
		"request": map[string]any{
			"uri":         uri,
			"headers":     map[string]any{"host": map[string]any{"value": host}},
			"querystring": querystring,
		},
	})
	require.NoError(t, err)

	script := RedirectFunctionCode("example.com") +
		"\nconsole.log(JSON.stringify(handler(" + string(event) + ")));\n"
	out, err := exec.Command("node", "-e", script).Output()
	require.NoError(t, err)

	var res redirectResult
	require.NoError(t, json.Unmarshal(out, &res))
	return res
}

func TestRedirectFunctionCode_Behavior(t *testing.T) {
	requireNode(t)

	res := runRedirect(t, "www.example.com", "/a", map[string]any{
		"q": map[string]any{"value": "1"},
		"tag": map[string]any{
			"value":      "x",
			"multiValue": []any{map[string]any{"value": "x"}, map[string]any{"value": "y"}},
		},
		"flag": map[string]any{"value": ""},
	})
	require.Equal(t, 301, res.StatusCode)
	location := res.Headers["location"].Value
	require.True(t, strings.HasPrefix(location, "https://example.com/a?"), location)
	query := strings.Split(strings.TrimPrefix(location, "https://example.com/a?"), "&")
	require.ElementsMatch(t, []string{"q=1", "tag=x", "tag=y", "flag"}, query)

	res = runRedirect(t, "www.example.com", "/docs/", map[string]any{})
	require.Equal(t, "https://example.com/docs/", res.Headers["location"].Value)

	res = runRedirect(t, "example.com", "/a", map[string]any{"q": map[string]any{"value": "1"}})
	require.Zero(t, res.StatusCode)
	require.Equal(t, "/a", res.URI)
}
