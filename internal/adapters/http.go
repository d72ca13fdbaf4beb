package adapters

import (
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes caps upstream response bodies; structured records are large
// but bounded.
const maxBodyBytes = 32 << 20

// Do sends req and returns the body of a 2xx response. Every failure is an
// *Error classified by status or transport cause.
func Do(client *http.Client, adapter string, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, FromTransport(adapter, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, FromTransport(adapter, err)
	}
	if aerr := FromStatus(adapter, resp.StatusCode); aerr != nil {
		aerr.Err = fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, truncate(body, 256))
		return nil, aerr
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
