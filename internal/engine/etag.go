package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tessellate-io/strata/pkg/types"
)

// FormatETag renders the version token for an instance: the version
// counter and the updated timestamp in epoch millis, dash-joined. The
// transport layer wraps it into a weak ETag; the engine only ever sees
// this body form.
func FormatETag(version int64, updated time.Time) string {
	return fmt.Sprintf("%d-%d", version, updated.UnixMilli())
}

// ParseETag splits a version token into its components.
func ParseETag(token string) (version, updatedMillis int64, err error) {
	dash := strings.IndexByte(token, '-')
	if dash <= 0 {
		return 0, 0, fmt.Errorf("malformed version token %q", token)
	}
	version, err = strconv.ParseInt(token[:dash], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed version token %q", token)
	}
	updatedMillis, err = strconv.ParseInt(token[dash+1:], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed version token %q", token)
	}
	return version, updatedMillis, nil
}

// CheckIfMatch validates a caller-supplied If-Match token against the
// stored version and updated timestamp. "*" always matches. An empty
// token fails with the "missing" reason; a parseable token with either
// component off fails with "stale". Both components are checked
// independently.
func CheckIfMatch(token string, version int64, updated time.Time) *types.Error {
	if token == "" {
		return types.PreconditionFailedMissing()
	}
	if token == "*" {
		return nil
	}
	v, u, err := ParseETag(token)
	if err != nil {
		return types.PreconditionFailedStale()
	}
	if v != version || u != updated.UnixMilli() {
		return types.PreconditionFailedStale()
	}
	return nil
}
