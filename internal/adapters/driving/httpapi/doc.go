// Package httpapi exposes the sync triggers, status, data and export over
// HTTP using a chi router.
//
// Runs started through the API outlive the request that started them; they
// are bound to the context passed to NewHandler, which the serve command
// cancels on shutdown.
package httpapi
