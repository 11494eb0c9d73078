// Package analysis inspects raw navigation item collections: content hashing
// for change detection and a structural diagnostics report.
package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/vanderheijden86/navtree/pkg/model"
)

// ComputeDataHash returns a stable hex digest of the fields that affect the
// built tree and its display. Input order is part of the hash because it
// breaks sibling ties.
func ComputeDataHash(items []model.NavigationItem) string {
	h := sha256.New()
	buf := make([]byte, 0, 256)
	for _, it := range items {
		buf = buf[:0]
		buf = append(buf, it.ID...)
		buf = append(buf, 0)
		buf = append(buf, it.Title...)
		buf = append(buf, 0)
		buf = append(buf, it.Type...)
		buf = append(buf, 0)
		if it.ParentID != nil {
			buf = append(buf, 'p')
			buf = append(buf, *it.ParentID...)
		}
		buf = append(buf, 0)
		buf = strconv.AppendInt(buf, int64(it.Order), 10)
		buf = append(buf, 0)
		buf = strconv.AppendBool(buf, it.Published)
		buf = append(buf, 0)
		buf = append(buf, it.URL...)
		buf = append(buf, 0)
		buf = append(buf, it.Description...)
		buf = append(buf, '\n')
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}
