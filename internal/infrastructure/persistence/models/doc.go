// Package models contains the GORM persistence models of the asset
// transition tables and the event outbox. Domain entities stay free of ORM
// tags; each model converts to its domain type with ToDomain.
package models
