// Package regions provides deterministic country-to-state data and a small
// net/http handler that returns JSON state options for dependent form inputs.
//
// The default handler responds to GET and HEAD requests and takes the country
// through a query parameter. The backing data is loaded from the embedded
// dataset under data/states.txt.
package regions
