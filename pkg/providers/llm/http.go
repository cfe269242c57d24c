package llm

import (
	"context"
	"net/http"
	"time"
)

// maxAttempts bounds the retry loop every HTTP-backed provider in this
// package shares; a chat completion is a single request per turn, so a
// transient 429/5xx shouldn't fail the whole turn outright.
const maxAttempts = 3

// doWithRetry runs the request built by newReq, retrying on a 429 or 5xx
// response (or a transport error) with exponential backoff, up to
// maxAttempts. newReq is called once per attempt since an *http.Request's
// body can only be read once. The final attempt's response (or error) is
// always returned, so callers keep handling non-2xx statuses themselves.
func doWithRetry(ctx context.Context, client *http.Client, newReq func() (*http.Request, error)) (*http.Response, error) {
	backoff := 200 * time.Millisecond
	var resp *http.Response
	var err error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var req *http.Request
		req, err = newReq()
		if err != nil {
			return nil, err
		}

		resp, err = client.Do(req)
		retryable := err != nil || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		if !retryable || attempt == maxAttempts {
			return resp, err
		}
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return resp, err
}
