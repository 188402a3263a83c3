// Package document implements the JSON REST transport of alert-docserver.
//
// It speaks the dialect of a realtime database: GET, PUT, PATCH and POST on
// "/{path}.json", where POST appends to a collection and answers with the
// generated key as {"name": key}. Requests are counted and timed in a
// Prometheus registry exposed on /metrics.
package document
