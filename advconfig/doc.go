// Package advconfig binds program values to entries of a YAML configuration
// file. Values are declared as bindings (a dotted path, an optional comment and a
// typed target), grouped and registered on a Registry. A Store owns the file:
// on Load it writes every missing entry with the target's current value as the
// default, then reads every present entry back into its target. Types the YAML
// encoder cannot represent as a scalar can be stored as a section through a
// registered Parser.
package advconfig
