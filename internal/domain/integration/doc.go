// Package integration defines the ports to external marketplace APIs.
//
// This package follows the Ports & Adapters pattern: the domain layer owns
// the Connector interface and its value objects, while concrete adapters
// (Wildberries, Ozon) live in the infrastructure layer.
package integration
