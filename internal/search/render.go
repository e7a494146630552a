package search

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/docwatch/internal/output"
)

// Print writes res to w: the total, then one bold path per hit followed,
// when details is set, by its highlighted fragments.
func Print(w *output.Writer, res *Result, details bool) {
	w.Line(fmt.Sprintf("Files count: %s", w.Bold(fmt.Sprint(res.Total))))
	for _, h := range res.Hits {
		w.Line(w.Bold(h.Path))
		if !details {
			continue
		}
		for _, frag := range h.Fragments {
			w.Status("", strings.ReplaceAll(strings.TrimSpace(frag), "\n", " "))
		}
	}
}
