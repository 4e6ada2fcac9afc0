// Package compat decides whether a candidate part is physically connectable
// to the current BOM. The check is a hazard-avoidance heuristic: one mateable
// port pair anywhere in the BOM is sufficient. It does not model which
// specific part the candidate should mate to, nor quantity-aware port
// capacity; see the project design notes.
package compat

import (
	"fmt"

	"partforge/internal/catalog"
	"partforge/internal/logging"
)

// Result is the outcome of a compatibility check.
type Result struct {
	IsCompatible bool
	Warnings     []string
}

// PendingValidationWarning is attached to virtual parts whose ports are
// unknown; they are assumed compatible until catalog data exists.
const PendingValidationWarning = "Inferred part pending physical validation."

// Validate checks newPart against the parts already in the BOM.
// Trivially compatible when the BOM is empty or the part declares no ports.
func Validate(newPart catalog.Part, existing []catalog.Part) Result {
	if newPart.Virtual {
		return Result{IsCompatible: true, Warnings: []string{PendingValidationWarning}}
	}
	if len(existing) == 0 || len(newPart.Ports) == 0 {
		return Result{IsCompatible: true}
	}

	for _, port := range newPart.Ports {
		for _, other := range existing {
			for _, otherPort := range other.Ports {
				if catalog.Mateable(port, otherPort) {
					logging.BOMDebug("compat: %s port %q mates %s port %q (spec=%s)",
						newPart.ID, port.Name, other.ID, otherPort.Name, port.Spec)
					return Result{IsCompatible: true}
				}
			}
		}
	}

	logging.BOMDebug("compat: no mateable port for %s across %d existing parts", newPart.ID, len(existing))
	return Result{
		IsCompatible: false,
		Warnings:     []string{fmt.Sprintf("Port spec mismatch for %s.", newPart.Name)},
	}
}
