// Package collect implements the evidence collectors the investigation stage
// fans out to. Collectors are read-only against the observed systems and
// never return errors: every internal failure becomes an error-severity
// evidence entry so one unreachable source cannot abort an investigation.
package collect

import (
	"github.com/linnemanlabs/remedy/internal/incident"
)

func errEvidence(source, detail string) incident.Findings {
	return incident.Findings{Evidence: []incident.Evidence{{
		Source:   source,
		Detail:   detail,
		Severity: incident.SeverityError,
	}}}
}
