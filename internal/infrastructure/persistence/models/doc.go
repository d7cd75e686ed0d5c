// Package models holds the GORM table mappings for order tracking.
// Domain entities stay free of ORM tags, the repositories translate
// between the two through the mappers next to each model.
//
//   - tracking.go: orders and their status event log
//   - credentials.go: marketplace API credential storage
package models
