package version

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/alvmarrod/site-spider/internal/version.Version=..."
var Version = "0.3.0"

// UserAgent is the default User-Agent header sent by the crawler
func UserAgent() string {
	return "site-spider/" + Version
}
