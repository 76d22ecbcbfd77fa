// Package config resolves the settings of the advconfig command from CLI flags,
// environment variables and defaults, with precedence: CLI flags > Environment
// variables > Defaults. These settings describe which plugin config file the
// tool operates on and how the admin server behaves; the plugin config itself
// is handled by the advconfig package.
package config
