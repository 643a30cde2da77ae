// Package httpclient is the shared HTTP transport of the provider adapters.
//
// Failures come back as *errors.AppError: a deadline becomes TIMEOUT, a
// connection failure becomes a retryable EXTERNAL_SERVICE_ERROR and a non-2xx
// status is classified by errors.FromHTTPStatus. Retry and circuit breaking
// are applied one level up, by provider.WithResilience.
//
//	client, err := httpclient.New(httpclient.Config{
//	    Name:    "openai",
//	    BaseURL: "https://api.openai.com/v1",
//	    Auth:    httpclient.BearerAuth(apiKey),
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/chat/completions",
//	    Body:   payload,
//	})
package httpclient
