package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/baiguoname/qust-sub001/pkg/errors"
)

// CheckArtifactCompatibility reports whether a reader at readerVersion can
// load an artifact written at artifactVersion.
//
// Rules:
//   - "main" on either side skips the check
//   - major versions must match
//   - the artifact's minor version must not be newer than the reader's
//   - patch versions may differ
//
// Examples:
//   - reader 0.4.0, artifact 0.4.7 -> OK
//   - reader 0.4.0, artifact 0.3.2 -> OK
//   - reader 0.4.0, artifact 0.5.0 -> ERROR (artifact is newer)
//   - reader 1.0.0, artifact 0.4.0 -> ERROR (major differs)
func CheckArtifactCompatibility(readerVersion, artifactVersion string) error {
	readerVersion = strings.TrimPrefix(readerVersion, "v")
	artifactVersion = strings.TrimPrefix(artifactVersion, "v")

	if readerVersion == "main" || artifactVersion == "main" {
		return nil
	}

	reader, err := semver.NewVersion(readerVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid reader version '%s'", readerVersion)
	}

	artifact, err := semver.NewVersion(artifactVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid artifact version '%s'", artifactVersion)
	}

	if reader.Major() != artifact.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch, "major version mismatch: reader is %d.x.x but artifact was written by %d.x.x",
			reader.Major(), artifact.Major())
	}

	if artifact.Minor() > reader.Minor() {
		return errors.Newf(errors.ErrCodeVersionMismatch, "artifact version %d.%d.x is newer than reader %d.%d.x",
			artifact.Major(), artifact.Minor(),
			reader.Major(), reader.Minor())
	}

	return nil
}
