package queue

import (
	"fmt"
	"regexp"
)

// queueURLPattern matches (http|https)://<host>/<12 digit account id>/<queue name>.
var queueURLPattern = regexp.MustCompile(`^(http|https)://[a-zA-Z0-9_:.\-]+/[0-9]{12}/[a-zA-Z0-9_\-]{0,80}(\.fifo)?$`)

// ValidateQueueURL reports whether url has the shape of a queue address.
func ValidateQueueURL(url string) error {
	if !queueURLPattern.MatchString(url) {
		return fmt.Errorf("%w: %q", ErrInvalidQueueURL, url)
	}
	return nil
}
