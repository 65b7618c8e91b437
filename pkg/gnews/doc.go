// Package gnews is a client for the GNews.io news search API.
//
// A Client wraps two remote operations:
//
//   - Headlines: GET <base>/top-headlines
//   - Search:    GET <base>/search (requires a search term)
//
// where <base> is https://gnews.io/api/<version>. The API key is sent as the
// first query parameter (apikey) of every request.
//
// # Usage
//
//	client, err := gnews.New(apiKey, gnews.Options{})
//	if err != nil {
//		return err
//	}
//	resp, err := client.Headlines(ctx, gnews.HeadlinesQuery{
//		Lang:     "en",
//		Max:      5,
//		Category: gnews.CategoryTechnology,
//	}.Params())
//
// # Bounded wait
//
// Every call runs under a deadline of Options.MaxWait (10s by default) derived
// from the caller's context. The deadline is released on every exit path.
//
// # Errors
//
// Failures are reported with the concrete types ConfigurationError,
// ValidationError, TimeoutError, NetworkError and APIError; match them with
// errors.As. Nothing is retried and no partial result is returned with an
// error.
package gnews
