// Package document models the JSON document tree served by alert-docserver:
// slash-separated paths addressing values inside a root object, with the
// get, replace, merge and append operations of a realtime-database REST API.
package document
