// Package wireapi defines the JSON shapes exchanged between the Workload
// API service and the Identity Agent client.
// Both sides import this package so the wire contract lives in exactly one
// place; neither side depends on the other.
package wireapi
