// Package database stores orchestration instances in a SQL database through
// GORM.
//
// The driver is chosen by Config.Driver: "sqlite" (the default, also used by
// tests with an in-memory DSN) or "mysql". The instances table is migrated on
// start.
//
//	comp := database.NewComponent(database.Config{Enabled: true, DSN: "jobflow.db"}, log)
//	registry.Register(comp)
//	// after start
//	st := comp.Store()
package database
