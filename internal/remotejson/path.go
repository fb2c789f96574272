package remotejson

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// pathNamespace seeds the name-based UUID of generated paths.
var pathNamespace = uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")

// timestampLayout renders local time with microseconds.
const timestampLayout = "2006-01-02T15:04:05.000000"

// pathShape matches generated blob paths: an optional directory prefix, a
// timestamp, a hyphen, a hex and dash identifier and the .json extension.
var pathShape = regexp.MustCompile(`^(?:[\w\-./]+/)?\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?-[0-9a-fA-F-]+\.json$`)

// IsPath reports whether s looks like a path generated by a Field, as
// opposed to a literal string payload.
func IsPath(s string) bool {
	return pathShape.MatchString(s)
}

// filename returns "<timestamp>-<uuid5(key)>.json".
func filename(now time.Time, key string) string {
	return now.Format(timestampLayout) + "-" + uuid.NewSHA1(pathNamespace, []byte(key)).String() + ".json"
}
