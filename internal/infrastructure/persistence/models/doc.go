// Package models contains the GORM models of the gateway store. Business
// records stay in Odoo; these tables only hold what the gateway itself owns:
// API key mirrors, the webhook delivery log and duplication job history.
//
// Mappers convert between the models and the domain types so the domain
// packages stay free of ORM tags.
package models
