package cmd

import (
	"bytes"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// fieldDiff renders a character-level change as old text with [-removed-]
// and {+added+} markers. Secrets are never passed here.
func fieldDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var buf bytes.Buffer
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			buf.WriteString(d.Text)
		case diffmatchpatch.DiffDelete:
			buf.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			buf.WriteString("{+" + d.Text + "+}")
		}
	}
	return buf.String()
}
