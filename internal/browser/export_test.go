// internal/browser/export_test.go
package browser

import "context"

// TabContext exposes the tab context so tests can drive the page directly.
func TabContext(s *Session) context.Context { return s.ctx }
