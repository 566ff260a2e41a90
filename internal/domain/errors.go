package domain

import "fmt"

// ConfigurationError reports a missing or invalid region field. Fatal for
// the region: it is raised before any frame is processed.
type ConfigurationError struct {
	Region string
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("region %s: invalid configuration for %s: %s", e.Region, e.Field, e.Reason)
}

// AssetDiscoveryError reports an unreadable source directory. Fatal for
// the region's run.
type AssetDiscoveryError struct {
	Region string
	Dir    string
	Err    error
}

func (e *AssetDiscoveryError) Error() string {
	return fmt.Sprintf("region %s: discovering assets under %s: %v", e.Region, e.Dir, e.Err)
}

func (e *AssetDiscoveryError) Unwrap() error { return e.Err }
