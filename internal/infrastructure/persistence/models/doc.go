// Package models contains the GORM database models of the signer store.
// They are kept apart from the registry records so that column layout can
// change without touching the in-memory model.
package models
