package version

// Version is the format version written into persisted artifacts. It is set
// at build time with
// -ldflags "-X github.com/baiguoname/qust-sub001/internal/version.Version=0.5.0"
// and "main" marks a development build.
var Version = "v0.4.0"

func GetVersion() string {
	return Version
}
