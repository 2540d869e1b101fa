// Package models defines the client-side data shapes exchanged with the
// storefront API and the client-side checks run before a request is sent.
package models
