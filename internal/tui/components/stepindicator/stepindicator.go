// Package stepindicator renders the wizard's position as a row of numbered
// steps.
package stepindicator

import (
	"fmt"
	"strings"

	"github.com/alkime/saywhat/internal/tui/style"
	"github.com/alkime/saywhat/internal/wizard"
)

const separator = " ─ "

// View renders every step up to wizard.NumSteps with current highlighted and
// earlier steps marked done.
func View(current wizard.Step) string {
	parts := make([]string, 0, wizard.NumSteps)

	for s := wizard.StepMethod; s <= wizard.StepResults; s++ {
		label := fmt.Sprintf("%d %s", int(s), s)

		switch {
		case s < current:
			parts = append(parts, style.Success.Render("✓ "+label))
		case s == current:
			parts = append(parts, style.StepActive.Render(label))
		default:
			parts = append(parts, style.Muted.Render(label))
		}
	}

	return strings.Join(parts, style.Muted.Render(separator))
}
