package bootstrap

import "github.com/kbukum/jobflow/config"

// Config is satisfied by any pointer to a struct embedding
// config.ServiceConfig that also defines ApplyDefaults and Validate for its
// own sections.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
