// Package connectors holds the clients for remote inventories. Each
// connector implements driven.PageFetcher for one remote API and owns its
// authentication, cursor format and retry policy.
//
// The only connector today is certview.
package connectors
