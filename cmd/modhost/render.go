// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/modhost/modhost/internal/issue"
	"github.com/modhost/modhost/pkg/modload"
)

// catalogStyle is the glamour style used for issue catalog entries; "auto"
// falls back to plain text when stdout is not a terminal.
var catalogStyle = "auto"

// renderError formats err for stderr. Resolution errors get a styled card;
// verbose output appends the matching issue catalog entry.
func renderError(err error, verbose bool) string {
	var (
		cycle *modload.CycleError
		dup   *modload.DuplicateIdentityError
		ae    *issue.ActionableError
	)
	switch {
	case errors.As(err, &cycle):
		return withCatalog(RenderCycleError(cycle), issue.DependencyCycleId, verbose)
	case errors.As(err, &dup):
		return withCatalog(RenderDuplicateError(dup), issue.DuplicateModuleId, verbose)
	case errors.As(err, &ae):
		return withCatalog(ErrorStyle.Render("Error: ")+ae.Format(verbose), ae.IssueId, verbose)
	default:
		return ErrorStyle.Render("Error: ") + err.Error()
	}
}

func withCatalog(text string, id issue.Id, verbose bool) string {
	if !verbose || id == 0 {
		return text
	}
	iss := issue.Get(id)
	if iss == nil {
		return text
	}
	rendered, err := iss.Render(catalogStyle)
	if err != nil {
		return text
	}
	return text + "\n" + rendered
}

// RenderCycleError creates a styled error card for a dependency cycle.
func RenderCycleError(err *modload.CycleError) string {
	var sb strings.Builder

	sb.WriteString(cardHeaderStyle.Render("✗ Circular module dependency!"))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "%d module(s) depend on each other, so no load order exists.\n\n", len(err.Members()))

	sb.WriteString(cardLabelStyle.Render("Cycle:"))
	sb.WriteString("\n")
	sb.WriteString(cardValueStyle.Render("  " + err.ChainString()))
	sb.WriteString("\n")

	sb.WriteString(cardHintStyle.Render("Remove one of these dependencies, or disable a module with --disable."))
	return sb.String()
}

// RenderDuplicateError creates a styled error card for a duplicated identity.
func RenderDuplicateError(err *modload.DuplicateIdentityError) string {
	var sb strings.Builder

	sb.WriteString(cardHeaderStyle.Render("✗ Duplicate module identity!"))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Module %s is declared more than once.\n\n", ModuleStyle.Render("'"+string(err.Identity)+"'"))

	sb.WriteString(cardLabelStyle.Render("Discovered at:"))
	sb.WriteString("\n")
	sb.WriteString(cardValueStyle.Render(fmt.Sprintf("  positions %d and %d", err.First+1, err.Second+1)))
	sb.WriteString("\n")

	sb.WriteString(cardHintStyle.Render("Rename one of them, or use overrides.replace to swap an implementation."))
	return sb.String()
}
