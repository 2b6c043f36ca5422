// internal/selector/xpath.go
package selector

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/boxscope/internal/document"
)

// XPathFor generates an absolute XPath for n, anchored on the nearest ancestor
// whose id is unique in the document. Text nodes get a trailing text()[i] step.
func (s *Synthesizer) XPathFor(n document.Node) string {
	if !n.Valid() {
		return ""
	}

	var path []string
	if n.IsText() {
		path = append(path, fmt.Sprintf("text()[%d]", n.TextIndex()))
		parent, ok := n.ParentElement()
		if !ok {
			return "/" + path[0]
		}
		n = parent
	}

	anchored := false
	for cur, ok := n, true; ok; cur, ok = cur.ParentElement() {
		if anchor, found := s.idAnchor(cur); found {
			path = append(path, anchor)
			anchored = true
			break
		}

		// XPath positions count same-tag siblings only and are 1-based.
		tag := cur.LocalName()
		index := 1
		for prev := cur.HTML().PrevSibling; prev != nil; prev = prev.PrevSibling {
			if p := document.Wrap(prev); p.IsElement() && p.LocalName() == tag {
				index++
			}
		}
		path = append(path, fmt.Sprintf("%s[%d]", tag, index))
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	xpath := strings.Join(path, "/")
	if !anchored {
		xpath = "/" + xpath
	}
	return xpath
}

// idAnchor returns //*[@id=...] for an element whose id is unique and quotable.
func (s *Synthesizer) idAnchor(n document.Node) (string, bool) {
	id := n.ID()
	if id == "" {
		return "", false
	}
	var anchor string
	switch {
	case !strings.Contains(id, "'"):
		anchor = fmt.Sprintf("//*[@id='%s']", id)
	case !strings.Contains(id, `"`):
		anchor = fmt.Sprintf(`//*[@id="%s"]`, id)
	default:
		return "", false
	}
	if s.doc.CountXPath(anchor) != 1 {
		return "", false
	}
	return anchor, true
}
