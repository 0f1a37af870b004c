package version

// Version is the current version of the analytics engine.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/LurkingFox/Tradeworth-sub000/internal/version.Version=1.2.3"
// The value "main" indicates a development build.
var Version = "v1.4.0"

// SchemaVersion is the version of the persisted trade schema and of statistics exports.
// Bump the minor version for additive changes and the major version for breaking ones.
const SchemaVersion = "1.2.0"

// GetVersion returns the current version of the engine.
func GetVersion() string {
	return Version
}
