package cli

import _ "embed"

//go:embed default_config.yaml
var defaultConfigurationContent []byte

// EmbeddedDefaultConfiguration returns a copy of the embedded default configuration alongside its type identifier.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	duplicatedConfiguration := make([]byte, len(defaultConfigurationContent))
	copy(duplicatedConfiguration, defaultConfigurationContent)
	return duplicatedConfiguration, configurationTypeConstant
}
