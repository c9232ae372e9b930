// Package fault defines the error taxonomy shared by the tabula server.
//
// Every failure that can reach an HTTP client carries one of the sentinel kinds
// below. Handlers never inspect error strings; they call Status and Message.
package fault
