// Package fetch executes batches of HTTP requests against a routing host
// under a strict in-flight ceiling.
//
// A Fetcher owns one connection pool (an http.Transport with a TTL DNS
// cache) shared by every batch running on it. The pool is created on first
// use and torn down when the last batch finishes, unless Config.KeepOpen is
// set or Open was called; Close always tears it down.
//
// Every request resolves to an Outcome at the same index as its Request.
// Timeouts and transport failures are recorded per outcome as a
// *RequestError matching ErrTimeout or ErrTransport and never abort the
// rest of the batch.
package fetch
