package card

import (
	"strings"

	"glyphline/internal/errors"
)

// DefaultSize is used when a card is created without an estimate.
const DefaultSize = "2-4 hours"

// Validate checks card fields at the store boundary. Malformed records are
// rejected before they enter the engine.
func Validate(c *Card) error {
	if strings.TrimSpace(c.Title) == "" {
		return errors.NewValidation("title", "must not be empty")
	}
	if strings.TrimSpace(c.Project) == "" {
		return errors.NewMissingProject()
	}
	if strings.TrimSpace(c.AssignedTo) == "" {
		return errors.NewValidation("assigned_to", "must not be empty")
	}
	if c.Status != "" && !c.Status.Known() {
		return errors.NewValidation("status", "unknown status "+string(c.Status))
	}
	if c.LinkedTo != nil && *c.LinkedTo == c.ID {
		return errors.NewValidation("linked_to", "card cannot depend on itself")
	}
	return nil
}

// ValidateProjectName enforces the project naming convention: lowercase
// with underscores, so project names map cleanly onto workspace paths.
func ValidateProjectName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.NewValidation("project", "must not be empty")
	}
	clean := strings.ReplaceAll(strings.ReplaceAll(strings.ToLower(trimmed), " ", "_"), "-", "_")
	if clean != trimmed {
		err := errors.NewValidation("project", "use lowercase and underscores, e.g. "+clean)
		err.Details["suggestion"] = clean
		return err
	}
	return nil
}

// CleanList trims entries and drops empties, preserving order.
func CleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
