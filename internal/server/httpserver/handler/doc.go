// Package handler implements the admin HTTP endpoints.
package handler
