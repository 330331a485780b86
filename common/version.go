package common

import "fmt"

// BatchdavVersion is the semantic version baked into the User-Agent
// string and printed by the root command's --version flag. Bumped by hand at
// release time, the same way the teacher bakes AzcopyVersion in
// common/version.go.
const BatchdavVersion = "1.0.0"

const repository = "github.com/webdavcrawl/batchdav"

// UserAgent builds the "name/version (repo)" string the WebDAV client
// sends on every request, the Go translation of the original's
// concat!()-built USER_AGENT static in client.rs.
func UserAgent() string {
	return fmt.Sprintf("batchdav/%s (%s)", BatchdavVersion, repository)
}
