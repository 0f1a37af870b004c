package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckCompatibility checks whether data stamped with writtenVersion can be read by a
// reader at readerVersion. Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - The writer's minor version must not be newer than the reader's
//   - Patch versions can differ freely
//
// Examples:
//   - Reader 1.2.0, Written 1.2.0 -> OK (exact match)
//   - Reader 1.2.0, Written 1.1.7 -> OK (older minor, additive changes only)
//   - Reader 1.2.0, Written 1.3.0 -> ERROR (written by a newer minor)
//   - Reader 2.0.0, Written 1.2.0 -> ERROR (major differs)
func CheckCompatibility(readerVersion, writtenVersion string) error {
	readerVersion = strings.TrimPrefix(readerVersion, "v")
	writtenVersion = strings.TrimPrefix(writtenVersion, "v")

	if readerVersion == "main" || writtenVersion == "main" {
		return nil
	}

	reader, err := semver.NewVersion(readerVersion)
	if err != nil {
		return fmt.Errorf("invalid reader version '%s': %w", readerVersion, err)
	}

	written, err := semver.NewVersion(writtenVersion)
	if err != nil {
		return fmt.Errorf("invalid written version '%s': %w", writtenVersion, err)
	}

	if reader.Major() != written.Major() {
		return fmt.Errorf("major version mismatch: reader is %d.x.x but data was written by %d.x.x",
			reader.Major(), written.Major())
	}

	if written.Minor() > reader.Minor() {
		return fmt.Errorf("data written by newer minor version: reader is %d.%d.x but data is %d.%d.x",
			reader.Major(), reader.Minor(),
			written.Major(), written.Minor())
	}

	return nil
}
