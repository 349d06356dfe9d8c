// Package httpclient provides the HTTP plumbing shared by skierload's API clients.
//
// [NewClient] creates a client whose idle connection pool is sized for the
// number of concurrent workers, so each worker can reuse a keep-alive
// connection to the target:
//
//	client := httpclient.NewClient(15*time.Second, cfg.Threads)
//
// [RequestBuilder] fixes a method, base URL, static headers and optional
// Basic credentials, and builds one request per call:
//
//	builder, err := httpclient.NewRequestBuilder(http.MethodPost, cfg.BaseURL(), nil)
//	if err != nil {
//		return err
//	}
//	body, _ := httpclient.JSONBody(ride)
//	req, err := builder.WithBasicAuth("admin", "admin").Build(ctx, "/liftrides", body)
package httpclient
