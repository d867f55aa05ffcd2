package buildinfo

// Set at build time via -ldflags "-X tvout/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns a compact build identifier for window titles.
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		return Commit
	}
	return "dev"
}

// Banner is the startup log line.
func Banner() string {
	s := "tvout " + Short()
	if Date != "" && Date != "unknown" {
		s += " built " + Date
	}
	return s
}
