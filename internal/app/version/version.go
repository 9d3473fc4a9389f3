package version

// Overridden at build time with -ldflags "-X analyst/internal/app/version.buildVersion=...".
var (
	buildVersion = "dev"
	builtAt      = "unknown"
)

// Info is the build metadata reported by GET /version.
type Info struct {
	Version    string `json:"version"`
	BuiltAt    string `json:"built_at"`
	APIVersion string `json:"api_version"`
}

func BuildVersion() string {
	return buildVersion
}

func Get(apiVersion string) Info {
	return Info{
		Version:    buildVersion,
		BuiltAt:    builtAt,
		APIVersion: apiVersion,
	}
}
