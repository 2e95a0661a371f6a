// Package version reports the build version of jobflow binaries, served at
// /version and printed by "jobflow version".
package version
