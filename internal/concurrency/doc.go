// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Background loops for hioload-meta. The only one today is the Janitor,
// which periodically forces a full metadata expiry sweep across the owner
// registry when an interval is configured.
package concurrency
